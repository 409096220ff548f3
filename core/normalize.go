package core

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// DefaultNormalizer folds raw upstream responses into the uniform result
// shape and maps error statuses onto the stable error taxonomy. Raw
// provider codes and messages survive in error metadata.
type DefaultNormalizer struct{}

func (DefaultNormalizer) Normalize(_ context.Context, descriptor ResourceDescriptor, res TransportResponse) (NormalizedResult, error) {
	if res.StatusCode >= http.StatusBadRequest {
		return NormalizedResult{}, upstreamStatusError(descriptor, res)
	}

	result := NormalizedResult{
		StatusCode: res.StatusCode,
		Meta:       map[string]any{},
	}
	body := strings.TrimSpace(string(res.Body))
	if body == "" {
		return result, nil
	}

	var decoded any
	if err := json.Unmarshal([]byte(body), &decoded); err != nil {
		// Some APIs answer mutations with non-JSON bodies; keep the raw
		// text rather than failing the call.
		result.Meta["raw"] = body
		return result, nil
	}

	switch value := decoded.(type) {
	case []any:
		result.Records = toRecordSlice(value)
	case map[string]any:
		collection, cursor := unwrapEnvelope(value, descriptor)
		if collection != nil {
			result.Records = collection
			result.NextCursor = cursor
		} else {
			result.Record = value
		}
	default:
		result.Meta["raw"] = decoded
	}
	return result, nil
}

// unwrapEnvelope extracts a collection and continuation cursor from a
// wrapped response. Returns a nil collection when the object is a single
// record.
func unwrapEnvelope(value map[string]any, descriptor ResourceDescriptor) ([]map[string]any, string) {
	keys := []string{"data", "items", "results"}
	if key := strings.TrimSpace(descriptor.CollectionKey); key != "" {
		keys = append([]string{key}, keys...)
	}
	for _, key := range keys {
		nested, ok := value[key]
		if !ok {
			continue
		}
		list, ok := nested.([]any)
		if !ok {
			continue
		}
		return toRecordSlice(list), extractCursor(value, descriptor)
	}
	return nil, ""
}

func extractCursor(value map[string]any, descriptor ResourceDescriptor) string {
	fields := []string{"cursor", "nextCursor", "next_cursor"}
	if field := strings.TrimSpace(descriptor.CursorField); field != "" {
		fields = append([]string{field}, fields...)
	}
	for _, field := range fields {
		if cursor := lookupPath(value, field); cursor != "" {
			return cursor
		}
	}
	if meta, ok := value["meta"].(map[string]any); ok {
		for _, field := range []string{"nextPageToken", "next_cursor", "cursor"} {
			if cursor := stringValue(meta[field]); cursor != "" {
				return cursor
			}
		}
	}
	return ""
}

// lookupPath resolves dotted paths like "meta.nextPageToken".
func lookupPath(value map[string]any, path string) string {
	parts := strings.Split(path, ".")
	current := any(value)
	for _, part := range parts {
		object, ok := current.(map[string]any)
		if !ok {
			return ""
		}
		current = object[part]
	}
	return stringValue(current)
}

func stringValue(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(typed)
	case json.Number:
		return typed.String()
	case float64:
		if typed == float64(int64(typed)) {
			return fmt.Sprintf("%d", int64(typed))
		}
		return fmt.Sprintf("%v", typed)
	default:
		return ""
	}
}

func toRecordSlice(list []any) []map[string]any {
	records := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if record, ok := item.(map[string]any); ok {
			records = append(records, record)
			continue
		}
		records = append(records, map[string]any{"value": item})
	}
	return records
}

func upstreamStatusError(descriptor ResourceDescriptor, res TransportResponse) error {
	providerCode, providerMessage := extractErrorDetails(res.Body)
	metadata := map[string]any{
		"status_code": res.StatusCode,
		"resource":    descriptor.Name,
	}
	if providerCode != "" {
		metadata["provider_code"] = providerCode
	}
	if providerMessage != "" {
		metadata["provider_message"] = providerMessage
	}

	var category goerrors.Category
	var textCode string
	switch {
	case res.StatusCode == http.StatusNotFound:
		category = goerrors.CategoryNotFound
		textCode = TextCodeNotFound
	case res.StatusCode == http.StatusUnauthorized, res.StatusCode == http.StatusForbidden:
		category = goerrors.CategoryAuth
		textCode = TextCodeAuthenticationFailed
	case res.StatusCode == http.StatusTooManyRequests:
		category = goerrors.CategoryRateLimit
		textCode = TextCodeRateLimited
	case res.StatusCode < http.StatusInternalServerError:
		category = goerrors.CategoryBadInput
		textCode = TextCodeInvalidRequest
	default:
		category = goerrors.CategoryExternal
		textCode = TextCodeUpstreamError
	}

	message := fmt.Sprintf("upstream returned status %d for resource %q", res.StatusCode, descriptor.Name)
	if providerMessage != "" {
		message = fmt.Sprintf("%s: %s", message, providerMessage)
	}
	return goerrors.New(message, category).
		WithTextCode(textCode).
		WithCode(res.StatusCode).
		WithMetadata(metadata)
}

// extractErrorDetails pulls a code and message out of common upstream error
// envelopes without committing to any one provider's shape.
func extractErrorDetails(body []byte) (string, string) {
	if len(body) == 0 {
		return "", ""
	}
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		text := strings.TrimSpace(string(body))
		if len(text) > 200 {
			text = text[:200]
		}
		return "", text
	}

	if nested, ok := decoded["error"].(map[string]any); ok {
		decoded = nested
	}
	if fault, ok := decoded["Fault"].(map[string]any); ok {
		if errs, ok := fault["Error"].([]any); ok && len(errs) > 0 {
			if first, ok := errs[0].(map[string]any); ok {
				decoded = first
			}
		}
	}

	code := ""
	for _, key := range []string{"code", "error_code", "errorCode", "type"} {
		if code = stringValue(decoded[key]); code != "" {
			break
		}
	}
	message := ""
	for _, key := range []string{"message", "error_description", "detail", "Message", "error"} {
		if message = stringValue(decoded[key]); message != "" {
			break
		}
	}
	return code, message
}

var _ ResponseNormalizer = DefaultNormalizer{}
