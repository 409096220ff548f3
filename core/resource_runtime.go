package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// ListResources fetches one page of a collection. The cursor is the opaque
// continuation value from a previous page; empty starts from the beginning.
func (s *Service) ListResources(ctx context.Context, providerID, resource string, filters map[string]string, cursor string) (result NormalizedResult, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"provider_id": providerID, "resource": resource}
	defer func() {
		s.observeOperation(ctx, startedAt, "list_resources", err, fields)
	}()

	provider, descriptor, err := s.resolveResource(providerID, resource)
	if err != nil {
		return NormalizedResult{}, err
	}
	if err = validateFilters(descriptor, filters); err != nil {
		err = s.mapError(err)
		return NormalizedResult{}, err
	}

	spec := NewRequestSpec(descriptor.MethodFor(OperationList), descriptor.PathFor(OperationList))
	spec.BucketKey = descriptor.Name
	applyFilters(&spec, descriptor, filters)
	applyOperationQuery(&spec, descriptor, OperationList)
	pageStart := applyCursor(&spec, descriptor, cursor)

	res, err := s.executeResolved(ctx, provider, spec)
	if err != nil {
		return NormalizedResult{}, err
	}
	result, err = s.normalizeResponse(ctx, provider, descriptor, res)
	if err != nil {
		err = s.mapError(err)
		return NormalizedResult{}, err
	}
	if descriptor.Pagination == PaginationPage {
		result.NextCursor = nextPageCursor(descriptor, pageStart, len(result.Records))
	}
	return result, nil
}

// GetResource fetches a single record by id.
func (s *Service) GetResource(ctx context.Context, providerID, resource, id string) (result NormalizedResult, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"provider_id": providerID, "resource": resource}
	defer func() {
		s.observeOperation(ctx, startedAt, "get_resource", err, fields)
	}()

	provider, descriptor, err := s.resolveResource(providerID, resource)
	if err != nil {
		return NormalizedResult{}, err
	}
	if err = requireResourceID(descriptor, id); err != nil {
		err = s.mapError(err)
		return NormalizedResult{}, err
	}

	spec := NewRequestSpec(descriptor.MethodFor(OperationGet), descriptor.PathFor(OperationGet))
	spec.BucketKey = descriptor.Name
	spec.ResourceID = id
	applyResourceID(&spec, descriptor, id)
	applyOperationQuery(&spec, descriptor, OperationGet)

	res, err := s.executeResolved(ctx, provider, spec)
	if err != nil {
		return NormalizedResult{}, err
	}
	result, err = s.normalizeResponse(ctx, provider, descriptor, res)
	if err != nil {
		err = s.mapError(err)
		return NormalizedResult{}, err
	}
	return result, nil
}

// CreateResource creates a record from the given body.
func (s *Service) CreateResource(ctx context.Context, providerID, resource string, body map[string]any) (result NormalizedResult, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"provider_id": providerID, "resource": resource}
	defer func() {
		s.observeOperation(ctx, startedAt, "create_resource", err, fields)
	}()

	provider, descriptor, err := s.resolveResource(providerID, resource)
	if err != nil {
		return NormalizedResult{}, err
	}
	if err = validateFields(descriptor, body); err != nil {
		err = s.mapError(err)
		return NormalizedResult{}, err
	}

	spec := NewRequestSpec(descriptor.MethodFor(OperationCreate), descriptor.PathFor(OperationCreate))
	spec.BucketKey = descriptor.Name
	applyOperationQuery(&spec, descriptor, OperationCreate)
	if err = applyBody(&spec, descriptor, body); err != nil {
		err = s.mapError(err)
		return NormalizedResult{}, err
	}

	res, err := s.executeResolved(ctx, provider, spec)
	if err != nil {
		return NormalizedResult{}, err
	}
	result, err = s.normalizeResponse(ctx, provider, descriptor, res)
	if err != nil {
		err = s.mapError(err)
		return NormalizedResult{}, err
	}
	return result, nil
}

// UpdateResource updates a record by id.
func (s *Service) UpdateResource(ctx context.Context, providerID, resource, id string, body map[string]any) (result NormalizedResult, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"provider_id": providerID, "resource": resource}
	defer func() {
		s.observeOperation(ctx, startedAt, "update_resource", err, fields)
	}()

	provider, descriptor, err := s.resolveResource(providerID, resource)
	if err != nil {
		return NormalizedResult{}, err
	}
	if err = requireResourceID(descriptor, id); err != nil {
		err = s.mapError(err)
		return NormalizedResult{}, err
	}

	spec := NewRequestSpec(descriptor.MethodFor(OperationUpdate), descriptor.PathFor(OperationUpdate))
	spec.BucketKey = descriptor.Name
	spec.ResourceID = id
	applyResourceID(&spec, descriptor, id)
	applyOperationQuery(&spec, descriptor, OperationUpdate)
	if err = applyBody(&spec, descriptor, body); err != nil {
		err = s.mapError(err)
		return NormalizedResult{}, err
	}

	res, err := s.executeResolved(ctx, provider, spec)
	if err != nil {
		return NormalizedResult{}, err
	}
	result, err = s.normalizeResponse(ctx, provider, descriptor, res)
	if err != nil {
		err = s.mapError(err)
		return NormalizedResult{}, err
	}
	return result, nil
}

// DeleteResource removes a record. Resources addressed by query parameters
// instead of an id path pass their addressing values as filters.
func (s *Service) DeleteResource(ctx context.Context, providerID, resource, id string, filters map[string]string) (result NormalizedResult, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"provider_id": providerID, "resource": resource}
	defer func() {
		s.observeOperation(ctx, startedAt, "delete_resource", err, fields)
	}()

	provider, descriptor, err := s.resolveResource(providerID, resource)
	if err != nil {
		return NormalizedResult{}, err
	}
	if descriptor.ParamsAsQuery {
		if err = validateFilters(descriptor, filters); err != nil {
			err = s.mapError(err)
			return NormalizedResult{}, err
		}
	} else if err = requireResourceID(descriptor, id); err != nil {
		err = s.mapError(err)
		return NormalizedResult{}, err
	}

	spec := NewRequestSpec(descriptor.MethodFor(OperationDelete), descriptor.PathFor(OperationDelete))
	spec.BucketKey = descriptor.Name
	if !descriptor.ParamsAsQuery {
		spec.ResourceID = id
		spec.PathParams["id"] = id
	}
	applyFilters(&spec, descriptor, filters)
	applyOperationQuery(&spec, descriptor, OperationDelete)

	res, err := s.executeResolved(ctx, provider, spec)
	if err != nil {
		return NormalizedResult{}, err
	}
	result, err = s.normalizeResponse(ctx, provider, descriptor, res)
	if err != nil {
		err = s.mapError(err)
		return NormalizedResult{}, err
	}
	return result, nil
}

func (s *Service) resolveResource(providerID, resource string) (Provider, ResourceDescriptor, error) {
	provider, err := s.resolveProvider(providerID)
	if err != nil {
		return nil, ResourceDescriptor{}, err
	}
	descriptor, ok := provider.Manifest().Resource(resource)
	if !ok {
		return nil, ResourceDescriptor{}, s.mapError(goerrors.New(
			fmt.Sprintf("resource %q is not declared by provider %q", resource, provider.ID()),
			goerrors.CategoryBadInput,
		).WithTextCode(TextCodeInvalidRequest).
			WithMetadata(map[string]any{"provider_id": provider.ID(), "resource": resource}))
	}
	return provider, descriptor, nil
}

func (s *Service) executeResolved(ctx context.Context, provider Provider, spec RequestSpec) (TransportResponse, error) {
	res, err := s.executeForProvider(ctx, provider, spec)
	if err != nil {
		return TransportResponse{}, s.mapError(err)
	}
	return res, nil
}

func (s *Service) normalizeResponse(ctx context.Context, provider Provider, descriptor ResourceDescriptor, res TransportResponse) (NormalizedResult, error) {
	normalizer := s.normalizer
	if normalizer == nil {
		if custom, ok := provider.(ResponseNormalizer); ok {
			normalizer = custom
		}
	}
	if normalizer == nil {
		normalizer = DefaultNormalizer{}
	}
	return normalizer.Normalize(ctx, descriptor, res)
}

func validateFilters(descriptor ResourceDescriptor, filters map[string]string) error {
	var missing []goerrors.FieldError
	for _, name := range descriptor.RequiredFilters {
		if strings.TrimSpace(filters[name]) == "" {
			missing = append(missing, goerrors.FieldError{
				Field:   name,
				Message: "filter is required",
			})
		}
	}
	if len(missing) > 0 {
		return goerrors.NewValidation(
			fmt.Sprintf("resource %q is missing required filters", descriptor.Name),
			missing...,
		).WithTextCode(TextCodeInvalidRequest)
	}
	return nil
}

func validateFields(descriptor ResourceDescriptor, body map[string]any) error {
	var missing []goerrors.FieldError
	for _, name := range descriptor.RequiredFields {
		value, ok := body[name]
		if !ok || strings.TrimSpace(fmt.Sprint(value)) == "" {
			missing = append(missing, goerrors.FieldError{
				Field:   name,
				Message: "field is required",
			})
		}
	}
	if len(missing) > 0 {
		return goerrors.NewValidation(
			fmt.Sprintf("resource %q is missing required fields", descriptor.Name),
			missing...,
		).WithTextCode(TextCodeInvalidRequest)
	}
	return nil
}

func requireResourceID(descriptor ResourceDescriptor, id string) error {
	if strings.TrimSpace(id) == "" {
		return goerrors.NewValidation(
			fmt.Sprintf("resource %q requires an id", descriptor.Name),
			goerrors.FieldError{Field: "id", Message: "id is required"},
		).WithTextCode(TextCodeInvalidRequest)
	}
	return nil
}

func applyResourceID(spec *RequestSpec, descriptor ResourceDescriptor, id string) {
	if descriptor.ParamsAsQuery && strings.TrimSpace(descriptor.IDQueryParam) != "" {
		spec.Query[descriptor.IDQueryParam] = id
		return
	}
	spec.PathParams["id"] = id
}

func applyFilters(spec *RequestSpec, descriptor ResourceDescriptor, filters map[string]string) {
	for key, value := range filters {
		key = strings.TrimSpace(key)
		if key == "" || strings.TrimSpace(value) == "" {
			continue
		}
		// Filters matching a path placeholder fill the path instead of
		// the query string.
		if strings.Contains(descriptor.PathTemplate, "{"+key+"}") {
			spec.PathParams[key] = value
			continue
		}
		spec.Query[key] = value
	}
}

func applyOperationQuery(spec *RequestSpec, descriptor ResourceDescriptor, op OperationKind) {
	for key, value := range descriptor.queryFor(op) {
		spec.Query[key] = value
	}
}

func applyCursor(spec *RequestSpec, descriptor ResourceDescriptor, cursor string) int {
	cursor = strings.TrimSpace(cursor)
	switch descriptor.Pagination {
	case PaginationCursor:
		if cursor != "" {
			spec.Query[descriptor.CursorParam] = cursor
		}
		return 0
	case PaginationPage:
		start := 1
		if cursor != "" {
			if parsed, err := strconv.Atoi(cursor); err == nil && parsed > 0 {
				start = parsed
			}
		}
		if param := strings.TrimSpace(descriptor.QueryStatementParam); param != "" {
			clause := descriptor.PageParam + " " + strconv.Itoa(start)
			if descriptor.PageSizeParam != "" && descriptor.PageSize > 0 {
				clause += " " + descriptor.PageSizeParam + " " + strconv.Itoa(descriptor.PageSize)
			}
			spec.Query[param] = strings.TrimSpace(spec.Query[param] + " " + clause)
			return start
		}
		spec.Query[descriptor.PageParam] = strconv.Itoa(start)
		if descriptor.PageSizeParam != "" && descriptor.PageSize > 0 {
			spec.Query[descriptor.PageSizeParam] = strconv.Itoa(descriptor.PageSize)
		}
		return start
	default:
		return 0
	}
}

// nextPageCursor derives the continuation for position-based paging: a full
// page means more records may follow at start+count.
func nextPageCursor(descriptor ResourceDescriptor, start, count int) string {
	if descriptor.PageSize <= 0 || count < descriptor.PageSize {
		return ""
	}
	return strconv.Itoa(start + count)
}

func applyBody(spec *RequestSpec, descriptor ResourceDescriptor, body map[string]any) error {
	if descriptor.ParamsAsQuery {
		for key, value := range body {
			key = strings.TrimSpace(key)
			if key == "" {
				continue
			}
			if strings.Contains(descriptor.PathTemplate, "{"+key+"}") {
				spec.PathParams[key] = fmt.Sprint(value)
				continue
			}
			spec.Query[key] = fmt.Sprint(value)
		}
		return nil
	}
	if len(body) == 0 {
		return nil
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "request body is not serializable").
			WithTextCode(TextCodeInvalidRequest)
	}
	spec.Body = encoded
	spec.Headers["Content-Type"] = "application/json"
	return nil
}
