package clawdbot

import (
	"fmt"

	skillscommand "github.com/alauppe/clawdbot/command"
	skillsquery "github.com/alauppe/clawdbot/query"
)

// CommandQueryService is the full surface the facade wraps: the mutating
// operations the command handlers need plus the read side the query
// handlers need. *core.Service satisfies it.
type CommandQueryService interface {
	skillscommand.MutatingService
	skillsquery.ReadingService
}

type Commands struct {
	Authenticate   *skillscommand.AuthenticateCommand
	RefreshToken   *skillscommand.RefreshTokenCommand
	Logout         *skillscommand.LogoutCommand
	CreateResource *skillscommand.CreateResourceCommand
	UpdateResource *skillscommand.UpdateResourceCommand
	DeleteResource *skillscommand.DeleteResourceCommand
}

type Queries struct {
	ListResources *skillsquery.ListResourcesQuery
	GetResource   *skillsquery.GetResourceQuery
	TokenStatus   *skillsquery.TokenStatusQuery
	ListProviders *skillsquery.ListProvidersQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

func NewFacade(service CommandQueryService) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("clawdbot: command/query service is required")
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		Authenticate:   skillscommand.NewAuthenticateCommand(service),
		RefreshToken:   skillscommand.NewRefreshTokenCommand(service),
		Logout:         skillscommand.NewLogoutCommand(service),
		CreateResource: skillscommand.NewCreateResourceCommand(service),
		UpdateResource: skillscommand.NewUpdateResourceCommand(service),
		DeleteResource: skillscommand.NewDeleteResourceCommand(service),
	}
	facade.queries = Queries{
		ListResources: skillsquery.NewListResourcesQuery(service),
		GetResource:   skillsquery.NewGetResourceQuery(service),
		TokenStatus:   skillsquery.NewTokenStatusQuery(service),
		ListProviders: skillsquery.NewListProvidersQuery(service),
	}
	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}
