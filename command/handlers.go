package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"

	"github.com/alauppe/clawdbot/core"
)

// MutatingService is the slice of the skills facade the command handlers
// depend on.
type MutatingService interface {
	Authenticate(ctx context.Context, record core.CredentialRecord) (core.TokenStatus, error)
	ForceRefresh(ctx context.Context, providerID string) (core.BearerToken, error)
	Logout(ctx context.Context, providerID string) error
	CreateResource(ctx context.Context, providerID, resource string, body map[string]any) (core.NormalizedResult, error)
	UpdateResource(ctx context.Context, providerID, resource, id string, body map[string]any) (core.NormalizedResult, error)
	DeleteResource(ctx context.Context, providerID, resource, id string, filters map[string]string) (core.NormalizedResult, error)
}

type AuthenticateCommand struct {
	service MutatingService
}

func NewAuthenticateCommand(service MutatingService) *AuthenticateCommand {
	return &AuthenticateCommand{service: service}
}

func (c *AuthenticateCommand) Execute(ctx context.Context, msg AuthenticateMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: authenticate service is required")
	}
	out, err := c.service.Authenticate(ctx, msg.Record)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RefreshTokenCommand struct {
	service MutatingService
}

func NewRefreshTokenCommand(service MutatingService) *RefreshTokenCommand {
	return &RefreshTokenCommand{service: service}
}

func (c *RefreshTokenCommand) Execute(ctx context.Context, msg RefreshTokenMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: refresh service is required")
	}
	out, err := c.service.ForceRefresh(ctx, msg.ProviderID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type LogoutCommand struct {
	service MutatingService
}

func NewLogoutCommand(service MutatingService) *LogoutCommand {
	return &LogoutCommand{service: service}
}

func (c *LogoutCommand) Execute(ctx context.Context, msg LogoutMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: logout service is required")
	}
	return c.service.Logout(ctx, msg.ProviderID)
}

type CreateResourceCommand struct {
	service MutatingService
}

func NewCreateResourceCommand(service MutatingService) *CreateResourceCommand {
	return &CreateResourceCommand{service: service}
}

func (c *CreateResourceCommand) Execute(ctx context.Context, msg CreateResourceMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: create resource service is required")
	}
	out, err := c.service.CreateResource(ctx, msg.ProviderID, msg.Resource, msg.Body)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type UpdateResourceCommand struct {
	service MutatingService
}

func NewUpdateResourceCommand(service MutatingService) *UpdateResourceCommand {
	return &UpdateResourceCommand{service: service}
}

func (c *UpdateResourceCommand) Execute(ctx context.Context, msg UpdateResourceMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: update resource service is required")
	}
	out, err := c.service.UpdateResource(ctx, msg.ProviderID, msg.Resource, msg.ID, msg.Body)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type DeleteResourceCommand struct {
	service MutatingService
}

func NewDeleteResourceCommand(service MutatingService) *DeleteResourceCommand {
	return &DeleteResourceCommand{service: service}
}

func (c *DeleteResourceCommand) Execute(ctx context.Context, msg DeleteResourceMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: delete resource service is required")
	}
	out, err := c.service.DeleteResource(ctx, msg.ProviderID, msg.Resource, msg.ID, msg.Filters)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
