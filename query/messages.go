package query

import (
	"fmt"
	"strings"
)

const (
	TypeListResources = "skills.query.resource.list"
	TypeGetResource   = "skills.query.resource.get"
	TypeTokenStatus   = "skills.query.token.status"
	TypeListProviders = "skills.query.provider.list"
)

type ListResourcesMessage struct {
	ProviderID string
	Resource   string
	Filters    map[string]string
	Cursor     string
}

func (ListResourcesMessage) Type() string { return TypeListResources }

func (m ListResourcesMessage) Validate() error {
	return validateResourceTarget(m.ProviderID, m.Resource)
}

type GetResourceMessage struct {
	ProviderID string
	Resource   string
	ID         string
}

func (GetResourceMessage) Type() string { return TypeGetResource }

func (m GetResourceMessage) Validate() error {
	if err := validateResourceTarget(m.ProviderID, m.Resource); err != nil {
		return err
	}
	if strings.TrimSpace(m.ID) == "" {
		return fmt.Errorf("query: resource id is required")
	}
	return nil
}

type TokenStatusMessage struct {
	ProviderID string
}

func (TokenStatusMessage) Type() string { return TypeTokenStatus }

func (m TokenStatusMessage) Validate() error {
	if strings.TrimSpace(m.ProviderID) == "" {
		return fmt.Errorf("query: provider id is required")
	}
	return nil
}

type ListProvidersMessage struct{}

func (ListProvidersMessage) Type() string { return TypeListProviders }

func (ListProvidersMessage) Validate() error { return nil }

func validateResourceTarget(providerID, resource string) error {
	if strings.TrimSpace(providerID) == "" {
		return fmt.Errorf("query: provider id is required")
	}
	if strings.TrimSpace(resource) == "" {
		return fmt.Errorf("query: resource is required")
	}
	return nil
}
