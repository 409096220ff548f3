package command

import (
	"fmt"
	"strings"

	"github.com/alauppe/clawdbot/core"
)

const (
	TypeAuthenticate   = "skills.command.authenticate"
	TypeRefreshToken   = "skills.command.token.refresh"
	TypeLogout         = "skills.command.logout"
	TypeCreateResource = "skills.command.resource.create"
	TypeUpdateResource = "skills.command.resource.update"
	TypeDeleteResource = "skills.command.resource.delete"
)

type AuthenticateMessage struct {
	Record core.CredentialRecord
}

func (AuthenticateMessage) Type() string { return TypeAuthenticate }

func (m AuthenticateMessage) Validate() error {
	if strings.TrimSpace(m.Record.ProviderID) == "" {
		return fmt.Errorf("command: provider id is required")
	}
	return nil
}

type RefreshTokenMessage struct {
	ProviderID string
}

func (RefreshTokenMessage) Type() string { return TypeRefreshToken }

func (m RefreshTokenMessage) Validate() error {
	if strings.TrimSpace(m.ProviderID) == "" {
		return fmt.Errorf("command: provider id is required")
	}
	return nil
}

type LogoutMessage struct {
	ProviderID string
}

func (LogoutMessage) Type() string { return TypeLogout }

func (m LogoutMessage) Validate() error {
	if strings.TrimSpace(m.ProviderID) == "" {
		return fmt.Errorf("command: provider id is required")
	}
	return nil
}

type CreateResourceMessage struct {
	ProviderID string
	Resource   string
	Body       map[string]any
}

func (CreateResourceMessage) Type() string { return TypeCreateResource }

func (m CreateResourceMessage) Validate() error {
	return validateResourceTarget(m.ProviderID, m.Resource)
}

type UpdateResourceMessage struct {
	ProviderID string
	Resource   string
	ID         string
	Body       map[string]any
}

func (UpdateResourceMessage) Type() string { return TypeUpdateResource }

func (m UpdateResourceMessage) Validate() error {
	if err := validateResourceTarget(m.ProviderID, m.Resource); err != nil {
		return err
	}
	if strings.TrimSpace(m.ID) == "" {
		return fmt.Errorf("command: resource id is required")
	}
	return nil
}

type DeleteResourceMessage struct {
	ProviderID string
	Resource   string
	ID         string
	Filters    map[string]string
}

func (DeleteResourceMessage) Type() string { return TypeDeleteResource }

func (m DeleteResourceMessage) Validate() error {
	return validateResourceTarget(m.ProviderID, m.Resource)
}

func validateResourceTarget(providerID, resource string) error {
	if strings.TrimSpace(providerID) == "" {
		return fmt.Errorf("command: provider id is required")
	}
	if strings.TrimSpace(resource) == "" {
		return fmt.Errorf("command: resource is required")
	}
	return nil
}
