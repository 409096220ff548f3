package visionhelpdesk

import (
	"testing"

	"github.com/alauppe/clawdbot/core"
	"github.com/alauppe/clawdbot/providers/devkit"
)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	provider, err := New(Config{BaseURL: "https://support.example.com"})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	return provider
}

func TestProviderConformance(t *testing.T) {
	if err := devkit.ValidateProviderConformance(newTestProvider(t)); err != nil {
		t.Fatalf("conformance: %v", err)
	}
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected error for missing base url")
	}
}

func TestManifestShape(t *testing.T) {
	manifest := newTestProvider(t).Manifest()

	if manifest.Scheme != core.AuthSchemeExternalToken {
		t.Fatalf("scheme = %q", manifest.Scheme)
	}
	if manifest.Token.QueryParam != "vis_txttoken" || manifest.Token.Header != "" {
		t.Fatalf("token placement = %+v", manifest.Token)
	}
	if manifest.StaticQuery["vis_encode"] != "json" {
		t.Fatalf("static query = %v", manifest.StaticQuery)
	}
}

func TestTicketsRouteEverythingThroughQueryParams(t *testing.T) {
	manifest := newTestProvider(t).Manifest()

	tickets, ok := manifest.Resource("tickets")
	if !ok {
		t.Fatalf("tickets resource missing")
	}
	if tickets.PathTemplate != "/api/index.php" {
		t.Fatalf("path = %q", tickets.PathTemplate)
	}
	if !tickets.ParamsAsQuery {
		t.Fatalf("tickets must send params as query")
	}
	if tickets.IDQueryParam != "vis_ticket_id" {
		t.Fatalf("id query param = %q", tickets.IDQueryParam)
	}

	for _, op := range []core.OperationKind{
		core.OperationList, core.OperationGet, core.OperationCreate,
		core.OperationUpdate, core.OperationDelete,
	} {
		if tickets.MethodOverrides[op] != "GET" {
			t.Fatalf("method for %q = %q", op, tickets.MethodOverrides[op])
		}
		query := tickets.OperationQuery[op]
		if query["vis_module"] != "ticket" {
			t.Fatalf("vis_module for %q = %v", op, query)
		}
		if query["vis_operation"] == "" {
			t.Fatalf("vis_operation missing for %q", op)
		}
	}
	if tickets.OperationQuery[core.OperationGet]["vis_operation"] != "ticket_details" {
		t.Fatalf("get operation = %v", tickets.OperationQuery[core.OperationGet])
	}
}
