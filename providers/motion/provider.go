package motion

import (
	"strings"
	"time"

	"github.com/alauppe/clawdbot/auth"
	"github.com/alauppe/clawdbot/core"
)

const (
	ProviderID = "motion"
	BaseURL    = "https://api.usemotion.com/v1"
)

// Motion enforces a hard requests-per-minute budget per API key and
// signals overruns with Retry-After, so the manifest carries a small
// rolling window on top of the retry ladder.
type Config struct {
	BaseURL     string
	MaxRequests int
	Window      time.Duration
}

type Provider struct {
	manifest core.Manifest
	strategy core.AuthStrategy
}

func DefaultConfig() Config {
	return Config{
		BaseURL:     BaseURL,
		MaxRequests: 12,
		Window:      time.Minute,
	}
}

func New(cfg Config) (*Provider, error) {
	defaults := DefaultConfig()
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaults.BaseURL
	}
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = defaults.MaxRequests
	}
	if cfg.Window <= 0 {
		cfg.Window = defaults.Window
	}

	manifest := buildManifest(cfg)
	if err := manifest.Validate(); err != nil {
		return nil, err
	}

	return &Provider{
		manifest: manifest,
		strategy: auth.NewStaticKeyStrategy(),
	}, nil
}

func (p *Provider) ID() string {
	return ProviderID
}

func (p *Provider) Manifest() core.Manifest {
	if p == nil {
		return core.Manifest{}
	}
	return p.manifest
}

func (p *Provider) Strategy() core.AuthStrategy {
	if p == nil {
		return nil
	}
	return p.strategy
}

func buildManifest(cfg Config) core.Manifest {
	updateViaPatch := map[core.OperationKind]string{
		core.OperationUpdate: "PATCH",
	}
	return core.Manifest{
		ID:      ProviderID,
		BaseURL: strings.TrimSpace(cfg.BaseURL),
		Scheme:  core.AuthSchemeStaticKey,
		Token: core.TokenPlacement{
			Header: "X-API-Key",
		},
		RateLimit: core.RateLimitSettings{
			MaxRequests: cfg.MaxRequests,
			Window:      cfg.Window,
		},
		Resources: []core.ResourceDescriptor{
			{
				Name:            "tasks",
				PathTemplate:    "/tasks",
				CollectionKey:   "tasks",
				OptionalFilters: []string{"workspaceId", "assigneeId", "projectId", "status", "label", "name"},
				RequiredFields:  []string{"name", "workspaceId"},
				Pagination:      core.PaginationCursor,
				CursorParam:     "cursor",
				CursorField:     "meta.nextCursor",
				MethodOverrides: updateViaPatch,
			},
			{
				Name:            "recurring-tasks",
				PathTemplate:    "/recurring-tasks",
				CollectionKey:   "tasks",
				RequiredFilters: []string{"workspaceId"},
				RequiredFields:  []string{"name", "workspaceId", "assigneeId", "frequency"},
				Pagination:      core.PaginationCursor,
				CursorParam:     "cursor",
				CursorField:     "meta.nextCursor",
			},
			{
				Name:            "projects",
				PathTemplate:    "/projects",
				CollectionKey:   "projects",
				OptionalFilters: []string{"workspaceId"},
				RequiredFields:  []string{"name", "workspaceId"},
				Pagination:      core.PaginationCursor,
				CursorParam:     "cursor",
				CursorField:     "meta.nextCursor",
			},
			{
				Name:          "workspaces",
				PathTemplate:  "/workspaces",
				CollectionKey: "workspaces",
				Pagination:    core.PaginationCursor,
				CursorParam:   "cursor",
				CursorField:   "meta.nextCursor",
			},
			{
				Name:            "users",
				PathTemplate:    "/users",
				CollectionKey:   "users",
				OptionalFilters: []string{"workspaceId", "teamId"},
				Pagination:      core.PaginationCursor,
				CursorParam:     "cursor",
				CursorField:     "meta.nextCursor",
			},
			{
				Name:            "comments",
				PathTemplate:    "/comments",
				CollectionKey:   "comments",
				RequiredFilters: []string{"taskId"},
				RequiredFields:  []string{"taskId", "content"},
				Pagination:      core.PaginationCursor,
				CursorParam:     "cursor",
				CursorField:     "meta.nextCursor",
			},
			// Task sub-actions: POST /tasks/{id}/move relocates a task to
			// another workspace or project, POST /tasks/{id}/unassign drops
			// its assignee. Both are update-shaped calls against the task id.
			{
				Name:             "task-moves",
				PathTemplate:     "/tasks",
				ItemPathTemplate: "/tasks/{id}/move",
				MethodOverrides: map[core.OperationKind]string{
					core.OperationUpdate: "POST",
				},
			},
			{
				Name:             "task-unassignments",
				PathTemplate:     "/tasks",
				ItemPathTemplate: "/tasks/{id}/unassign",
				MethodOverrides: map[core.OperationKind]string{
					core.OperationUpdate: "POST",
				},
			},
			{
				Name:            "schedules",
				PathTemplate:    "/schedules",
				OptionalFilters: []string{"workspaceId"},
			},
			{
				Name:            "statuses",
				PathTemplate:    "/statuses",
				OptionalFilters: []string{"workspaceId"},
			},
		},
	}
}

var _ core.Provider = (*Provider)(nil)
