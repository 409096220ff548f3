package visionhelpdesk

import (
	"strings"
	"time"

	"github.com/alauppe/clawdbot/auth"
	"github.com/alauppe/clawdbot/core"
)

const ProviderID = "visionhelpdesk"

// Vision Helpdesk exposes a single endpoint driven entirely by query
// parameters: vis_module selects the module, vis_operation the action,
// and vis_txttoken carries the API token. There is no separate token
// endpoint; the token is issued in the admin console.
type Config struct {
	BaseURL string
}

type Provider struct {
	manifest core.Manifest
	strategy core.AuthStrategy
}

func New(cfg Config) (*Provider, error) {
	manifest := buildManifest(cfg)
	if err := manifest.Validate(); err != nil {
		return nil, err
	}
	return &Provider{
		manifest: manifest,
		strategy: auth.NewExternalTokenStrategy(),
	}, nil
}

func (p *Provider) ID() string {
	return ProviderID
}

func (p *Provider) Manifest() core.Manifest {
	if p == nil {
		return core.Manifest{}
	}
	return p.manifest
}

func (p *Provider) Strategy() core.AuthStrategy {
	if p == nil {
		return nil
	}
	return p.strategy
}

func buildManifest(cfg Config) core.Manifest {
	return core.Manifest{
		ID:      ProviderID,
		BaseURL: strings.TrimSpace(cfg.BaseURL),
		Scheme:  core.AuthSchemeExternalToken,
		Token: core.TokenPlacement{
			QueryParam: "vis_txttoken",
		},
		RateLimit: core.RateLimitSettings{
			MaxRequests: 30,
			Window:      time.Minute,
		},
		StaticQuery: map[string]string{
			"vis_encode": "json",
		},
		Resources: []core.ResourceDescriptor{
			{
				Name:            "tickets",
				PathTemplate:    "/api/index.php",
				CollectionKey:   "tickets",
				OptionalFilters: []string{"vis_status", "vis_department", "vis_priority", "vis_ticket_id"},
				RequiredFields:  []string{"vis_subject", "vis_message"},
				ParamsAsQuery:   true,
				IDQueryParam:    "vis_ticket_id",
				MethodOverrides: map[core.OperationKind]string{
					core.OperationList:   "GET",
					core.OperationGet:    "GET",
					core.OperationCreate: "GET",
					core.OperationUpdate: "GET",
					core.OperationDelete: "GET",
				},
				OperationQuery: map[core.OperationKind]map[string]string{
					core.OperationList: {
						"vis_module":    "ticket",
						"vis_operation": "ticket_list",
					},
					core.OperationGet: {
						"vis_module":    "ticket",
						"vis_operation": "ticket_details",
					},
					core.OperationCreate: {
						"vis_module":    "ticket",
						"vis_operation": "ticket_create",
					},
					core.OperationUpdate: {
						"vis_module":    "ticket",
						"vis_operation": "ticket_update",
					},
					core.OperationDelete: {
						"vis_module":    "ticket",
						"vis_operation": "ticket_delete",
					},
				},
			},
		},
	}
}

var _ core.Provider = (*Provider)(nil)
