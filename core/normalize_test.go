package core

import (
	"context"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestDefaultNormalizerArrayBody(t *testing.T) {
	result, err := DefaultNormalizer{}.Normalize(context.Background(),
		ResourceDescriptor{Name: "domains"},
		jsonResponse(200, `[{"domain": "east.example"}, {"domain": "west.example"}]`),
	)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(result.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(result.Records))
	}
	if result.Records[1]["domain"] != "west.example" {
		t.Fatalf("unexpected record %v", result.Records[1])
	}
}

func TestDefaultNormalizerEnvelopeWithDescriptorKey(t *testing.T) {
	result, err := DefaultNormalizer{}.Normalize(context.Background(),
		ResourceDescriptor{Name: "tasks", CollectionKey: "tasks", CursorField: "meta.nextCursor"},
		jsonResponse(200, `{"tasks": [{"id": "t-1"}], "meta": {"nextCursor": "abc"}}`),
	)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(result.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(result.Records))
	}
	if result.NextCursor != "abc" {
		t.Fatalf("expected cursor abc, got %q", result.NextCursor)
	}
}

func TestDefaultNormalizerCommonEnvelopeKeys(t *testing.T) {
	result, err := DefaultNormalizer{}.Normalize(context.Background(),
		ResourceDescriptor{Name: "widgets"},
		jsonResponse(200, `{"data": [{"id": 1}], "cursor": "next-1"}`),
	)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(result.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(result.Records))
	}
	if result.NextCursor != "next-1" {
		t.Fatalf("expected cursor next-1, got %q", result.NextCursor)
	}
}

func TestDefaultNormalizerSingleRecord(t *testing.T) {
	result, err := DefaultNormalizer{}.Normalize(context.Background(),
		ResourceDescriptor{Name: "tasks"},
		jsonResponse(200, `{"id": "t-1", "name": "triage"}`),
	)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if result.Record == nil || result.Record["id"] != "t-1" {
		t.Fatalf("expected single record, got %+v", result)
	}
	if len(result.Records) != 0 {
		t.Fatalf("single records must not populate the collection")
	}
}

func TestDefaultNormalizerEmptyAndNonJSONBodies(t *testing.T) {
	result, err := DefaultNormalizer{}.Normalize(context.Background(),
		ResourceDescriptor{Name: "tasks"},
		TransportResponse{StatusCode: 204},
	)
	if err != nil {
		t.Fatalf("normalize empty: %v", err)
	}
	if result.StatusCode != 204 {
		t.Fatalf("expected status passthrough, got %d", result.StatusCode)
	}

	result, err = DefaultNormalizer{}.Normalize(context.Background(),
		ResourceDescriptor{Name: "tasks"},
		TransportResponse{StatusCode: 200, Body: []byte("OK")},
	)
	if err != nil {
		t.Fatalf("normalize text: %v", err)
	}
	if result.Meta["raw"] != "OK" {
		t.Fatalf("expected raw text in meta, got %v", result.Meta)
	}
}

func TestDefaultNormalizerErrorStatuses(t *testing.T) {
	cases := []struct {
		status   int
		textCode string
	}{
		{400, TextCodeInvalidRequest},
		{401, TextCodeAuthenticationFailed},
		{403, TextCodeAuthenticationFailed},
		{404, TextCodeNotFound},
		{429, TextCodeRateLimited},
		{500, TextCodeUpstreamError},
	}
	for _, tc := range cases {
		_, err := DefaultNormalizer{}.Normalize(context.Background(),
			ResourceDescriptor{Name: "tasks"},
			jsonResponse(tc.status, `{"error": {"code": "upstream_code", "message": "boom"}}`),
		)
		if err == nil {
			t.Fatalf("status %d: expected error", tc.status)
		}
		var richErr *goerrors.Error
		if !goerrors.As(err, &richErr) {
			t.Fatalf("status %d: expected rich error, got %T", tc.status, err)
		}
		if richErr.TextCode != tc.textCode {
			t.Fatalf("status %d: expected %q, got %q", tc.status, tc.textCode, richErr.TextCode)
		}
		if richErr.Code != tc.status {
			t.Fatalf("status %d: expected raw status on code, got %d", tc.status, richErr.Code)
		}
		if richErr.Metadata["provider_code"] != "upstream_code" {
			t.Fatalf("status %d: expected provider code in metadata, got %v", tc.status, richErr.Metadata)
		}
		if richErr.Metadata["provider_message"] != "boom" {
			t.Fatalf("status %d: expected provider message in metadata, got %v", tc.status, richErr.Metadata)
		}
	}
}

func TestExtractErrorDetailsQuickBooksFault(t *testing.T) {
	code, message := extractErrorDetails([]byte(`{
		"Fault": {"Error": [{"code": "610", "Message": "Object Not Found"}], "type": "ValidationFault"}
	}`))
	if code != "610" {
		t.Fatalf("expected fault code, got %q", code)
	}
	if message != "Object Not Found" {
		t.Fatalf("expected fault message, got %q", message)
	}
}

func TestExtractErrorDetailsPlainText(t *testing.T) {
	code, message := extractErrorDetails([]byte("service unavailable"))
	if code != "" {
		t.Fatalf("expected empty code, got %q", code)
	}
	if message != "service unavailable" {
		t.Fatalf("expected text body as message, got %q", message)
	}
}
