package motion

import (
	"testing"
	"time"

	"github.com/alauppe/clawdbot/core"
	"github.com/alauppe/clawdbot/providers/devkit"
)

func TestProviderConformance(t *testing.T) {
	provider, err := New(Config{})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	if err := devkit.ValidateProviderConformance(provider); err != nil {
		t.Fatalf("conformance: %v", err)
	}
}

func TestManifestShape(t *testing.T) {
	provider, err := New(Config{})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	manifest := provider.Manifest()

	if manifest.ID != ProviderID || manifest.BaseURL != BaseURL {
		t.Fatalf("identity = %q %q", manifest.ID, manifest.BaseURL)
	}
	if manifest.Scheme != core.AuthSchemeStaticKey {
		t.Fatalf("scheme = %q", manifest.Scheme)
	}
	if manifest.Token.Header != "X-API-Key" || manifest.Token.Prefix != "" {
		t.Fatalf("token placement = %+v", manifest.Token)
	}
	if manifest.RateLimit.MaxRequests != 12 || manifest.RateLimit.Window != time.Minute {
		t.Fatalf("rate limit = %+v", manifest.RateLimit)
	}
}

func TestTasksResourceUsesCursorPaginationAndPatch(t *testing.T) {
	provider, err := New(Config{})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	tasks, ok := provider.Manifest().Resource("tasks")
	if !ok {
		t.Fatalf("tasks resource missing")
	}
	if tasks.Pagination != core.PaginationCursor {
		t.Fatalf("pagination = %q", tasks.Pagination)
	}
	if tasks.CursorParam != "cursor" || tasks.CursorField != "meta.nextCursor" {
		t.Fatalf("cursor wiring = %q %q", tasks.CursorParam, tasks.CursorField)
	}
	if tasks.MethodOverrides[core.OperationUpdate] != "PATCH" {
		t.Fatalf("update override = %q", tasks.MethodOverrides[core.OperationUpdate])
	}
	if tasks.CollectionKey != "tasks" {
		t.Fatalf("collection key = %q", tasks.CollectionKey)
	}
}

func TestCommentsRequireTaskFilter(t *testing.T) {
	provider, err := New(Config{})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	comments, ok := provider.Manifest().Resource("comments")
	if !ok {
		t.Fatalf("comments resource missing")
	}
	if len(comments.RequiredFilters) != 1 || comments.RequiredFilters[0] != "taskId" {
		t.Fatalf("required filters = %v", comments.RequiredFilters)
	}
}

func TestTaskSubActionsPostAgainstTaskPath(t *testing.T) {
	provider, err := New(Config{})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	manifest := provider.Manifest()

	cases := []struct {
		resource string
		path     string
	}{
		{"task-moves", "/tasks/{id}/move"},
		{"task-unassignments", "/tasks/{id}/unassign"},
	}
	for _, tc := range cases {
		descriptor, ok := manifest.Resource(tc.resource)
		if !ok {
			t.Fatalf("resource %q missing", tc.resource)
		}
		if got := descriptor.PathFor(core.OperationUpdate); got != tc.path {
			t.Fatalf("%s update path = %q", tc.resource, got)
		}
		if got := descriptor.MethodFor(core.OperationUpdate); got != "POST" {
			t.Fatalf("%s update method = %q", tc.resource, got)
		}
	}
}

func TestConfigOverridesRollingWindow(t *testing.T) {
	provider, err := New(Config{MaxRequests: 120, Window: 30 * time.Second})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	limit := provider.Manifest().RateLimit
	if limit.MaxRequests != 120 || limit.Window != 30*time.Second {
		t.Fatalf("rate limit = %+v", limit)
	}
}

func TestDeclaredResourceCatalog(t *testing.T) {
	provider, err := New(Config{})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	manifest := provider.Manifest()

	for _, name := range []string{
		"tasks", "recurring-tasks", "projects", "workspaces",
		"users", "comments", "schedules", "statuses",
		"task-moves", "task-unassignments",
	} {
		if _, ok := manifest.Resource(name); !ok {
			t.Fatalf("resource %q missing", name)
		}
	}
}
