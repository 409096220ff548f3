package quickbooks

import (
	"context"
	"encoding/json"

	"github.com/alauppe/clawdbot/core"
)

func normalizeQueryResponse(ctx context.Context, descriptor core.ResourceDescriptor, res core.TransportResponse) (core.NormalizedResult, error) {
	fallback := core.DefaultNormalizer{}
	if res.StatusCode >= 400 || len(res.Body) == 0 {
		return fallback.Normalize(ctx, descriptor, res)
	}

	var payload map[string]any
	if err := json.Unmarshal(res.Body, &payload); err != nil {
		return fallback.Normalize(ctx, descriptor, res)
	}

	if envelope, ok := payload["QueryResponse"].(map[string]any); ok {
		result := core.NormalizedResult{
			StatusCode: res.StatusCode,
			Meta:       map[string]any{},
		}
		if items, ok := envelope[descriptor.CollectionKey].([]any); ok {
			result.Records = recordsFromSlice(items)
		} else {
			result.Records = []map[string]any{}
		}
		for _, key := range []string{"startPosition", "maxResults", "totalCount"} {
			if value, ok := envelope[key]; ok {
				result.Meta[key] = value
			}
		}
		return result, nil
	}

	// Entity reads and writes come back keyed by the entity name:
	// {"Customer": {...}, "time": "..."}.
	if entity, ok := payload[descriptor.CollectionKey].(map[string]any); ok {
		return core.NormalizedResult{
			Record:     entity,
			StatusCode: res.StatusCode,
		}, nil
	}

	return fallback.Normalize(ctx, descriptor, res)
}

func recordsFromSlice(items []any) []map[string]any {
	records := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if record, ok := item.(map[string]any); ok {
			records = append(records, record)
			continue
		}
		records = append(records, map[string]any{"value": item})
	}
	return records
}
