package query

import (
	"context"

	"github.com/alauppe/clawdbot/core"
)

// ReadingService is the read-only slice of the skills facade the query
// handlers depend on.
type ReadingService interface {
	ListResources(ctx context.Context, providerID, resource string, filters map[string]string, cursor string) (core.NormalizedResult, error)
	GetResource(ctx context.Context, providerID, resource, id string) (core.NormalizedResult, error)
	Status(ctx context.Context, providerID string) (core.TokenStatus, error)
	Registry() core.Registry
}

type ListResourcesQuery struct {
	service ReadingService
}

func NewListResourcesQuery(service ReadingService) *ListResourcesQuery {
	return &ListResourcesQuery{service: service}
}

func (q *ListResourcesQuery) Query(ctx context.Context, msg ListResourcesMessage) (core.NormalizedResult, error) {
	if q == nil || q.service == nil {
		return core.NormalizedResult{}, queryDependencyError("query: resource service is required")
	}
	return q.service.ListResources(ctx, msg.ProviderID, msg.Resource, msg.Filters, msg.Cursor)
}

type GetResourceQuery struct {
	service ReadingService
}

func NewGetResourceQuery(service ReadingService) *GetResourceQuery {
	return &GetResourceQuery{service: service}
}

func (q *GetResourceQuery) Query(ctx context.Context, msg GetResourceMessage) (core.NormalizedResult, error) {
	if q == nil || q.service == nil {
		return core.NormalizedResult{}, queryDependencyError("query: resource service is required")
	}
	return q.service.GetResource(ctx, msg.ProviderID, msg.Resource, msg.ID)
}

type TokenStatusQuery struct {
	service ReadingService
}

func NewTokenStatusQuery(service ReadingService) *TokenStatusQuery {
	return &TokenStatusQuery{service: service}
}

func (q *TokenStatusQuery) Query(ctx context.Context, msg TokenStatusMessage) (core.TokenStatus, error) {
	if q == nil || q.service == nil {
		return core.TokenStatus{}, queryDependencyError("query: token status service is required")
	}
	return q.service.Status(ctx, msg.ProviderID)
}

type ListProvidersQuery struct {
	service ReadingService
}

func NewListProvidersQuery(service ReadingService) *ListProvidersQuery {
	return &ListProvidersQuery{service: service}
}

func (q *ListProvidersQuery) Query(_ context.Context, _ ListProvidersMessage) ([]core.Manifest, error) {
	if q == nil || q.service == nil {
		return nil, queryDependencyError("query: provider registry is required")
	}
	registry := q.service.Registry()
	if registry == nil {
		return nil, queryDependencyError("query: provider registry is required")
	}
	providers := registry.List()
	manifests := make([]core.Manifest, 0, len(providers))
	for _, provider := range providers {
		manifests = append(manifests, provider.Manifest())
	}
	return manifests, nil
}
