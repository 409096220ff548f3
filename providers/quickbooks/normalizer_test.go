package quickbooks

import (
	"context"
	"testing"

	"github.com/alauppe/clawdbot/core"
)

func customerDescriptor() core.ResourceDescriptor {
	return entityResource("customers", "Customer")
}

func TestNormalize_UnwrapsQueryResponse(t *testing.T) {
	provider := newTestProvider(t)
	body := `{
		"QueryResponse": {
			"Customer": [
				{"Id": "1", "DisplayName": "Acme"},
				{"Id": "2", "DisplayName": "Globex"}
			],
			"startPosition": 1,
			"maxResults": 2,
			"totalCount": 17
		},
		"time": "2026-04-01T12:00:00Z"
	}`

	result, err := provider.Normalize(context.Background(), customerDescriptor(), core.TransportResponse{
		StatusCode: 200,
		Body:       []byte(body),
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(result.Records) != 2 {
		t.Fatalf("records = %d", len(result.Records))
	}
	if result.Records[0]["DisplayName"] != "Acme" {
		t.Fatalf("first record = %v", result.Records[0])
	}
	if result.Meta["startPosition"] != float64(1) || result.Meta["totalCount"] != float64(17) {
		t.Fatalf("meta = %v", result.Meta)
	}
}

func TestNormalize_EmptyQueryResponse(t *testing.T) {
	provider := newTestProvider(t)
	result, err := provider.Normalize(context.Background(), customerDescriptor(), core.TransportResponse{
		StatusCode: 200,
		Body:       []byte(`{"QueryResponse":{},"time":"2026-04-01T12:00:00Z"}`),
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if result.Records == nil || len(result.Records) != 0 {
		t.Fatalf("expected empty record slice, got %v", result.Records)
	}
}

func TestNormalize_EntityEnvelope(t *testing.T) {
	provider := newTestProvider(t)
	result, err := provider.Normalize(context.Background(), customerDescriptor(), core.TransportResponse{
		StatusCode: 200,
		Body:       []byte(`{"Customer":{"Id":"1","DisplayName":"Acme"},"time":"2026-04-01T12:00:00Z"}`),
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if result.Record == nil || result.Record["Id"] != "1" {
		t.Fatalf("record = %v", result.Record)
	}
	if len(result.Records) != 0 {
		t.Fatalf("entity reads should not produce a collection: %v", result.Records)
	}
}

func TestNormalize_FaultFallsBackToErrorMapping(t *testing.T) {
	provider := newTestProvider(t)
	body := `{
		"Fault": {
			"Error": [{"Message": "Object Not Found", "code": "610"}],
			"type": "ValidationFault"
		},
		"time": "2026-04-01T12:00:00Z"
	}`

	_, err := provider.Normalize(context.Background(), customerDescriptor(), core.TransportResponse{
		StatusCode: 400,
		Body:       []byte(body),
	})
	if err == nil {
		t.Fatalf("expected error for fault response")
	}
}

func TestNormalize_NonEnvelopeBodyUsesDefaultShapes(t *testing.T) {
	provider := newTestProvider(t)
	result, err := provider.Normalize(context.Background(), customerDescriptor(), core.TransportResponse{
		StatusCode: 200,
		Body:       []byte(`[{"Id":"1"},{"Id":"2"}]`),
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(result.Records) != 2 {
		t.Fatalf("records = %v", result.Records)
	}
}

func TestRecordsFromSlice_WrapsScalars(t *testing.T) {
	records := recordsFromSlice([]any{map[string]any{"Id": "1"}, "stray"})
	if len(records) != 2 {
		t.Fatalf("records = %v", records)
	}
	if records[1]["value"] != "stray" {
		t.Fatalf("scalar wrap = %v", records[1])
	}
}
