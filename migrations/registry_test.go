package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"testing"
	"testing/fstest"
)

func TestFilesystems_ResolvesBothDialects(t *testing.T) {
	filesystems, err := Filesystems()
	if err != nil {
		t.Fatalf("filesystems: %v", err)
	}
	if len(filesystems) != 2 {
		t.Fatalf("expected postgres and sqlite filesystems, got %d", len(filesystems))
	}

	byDialect := map[string]FilesystemSpec{}
	for _, fsys := range filesystems {
		byDialect[fsys.Dialect] = fsys
	}
	for _, dialect := range []string{DialectPostgres, DialectSQLite} {
		spec, ok := byDialect[dialect]
		if !ok {
			t.Fatalf("missing %s filesystem", dialect)
		}
		matches, err := fs.Glob(spec.FS, "*.up.sql")
		if err != nil {
			t.Fatalf("glob %s: %v", dialect, err)
		}
		if len(matches) == 0 {
			t.Fatalf("%s filesystem has no up migrations", dialect)
		}
	}

	sqliteSpec := byDialect[DialectSQLite]
	if _, err := fs.ReadFile(sqliteSpec.FS, "0001_skill_credentials.up.sql"); err != nil {
		t.Fatalf("sqlite filesystem should be rooted at the dialect dir: %v", err)
	}
}

func TestRegister_InvokesCallbackPerValidatedDialect(t *testing.T) {
	seen := map[string]string{}
	reg, err := Register(context.Background(), func(_ context.Context, dialect string, sourceLabel string, fsys fs.FS) error {
		if fsys == nil {
			t.Fatalf("nil filesystem for %s", dialect)
		}
		seen[dialect] = sourceLabel
		return nil
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if len(seen) != 2 {
		t.Fatalf("expected both dialects registered, got %v", seen)
	}
	if seen[DialectPostgres] != "clawdbot" || seen[DialectSQLite] != "clawdbot" {
		t.Fatalf("unexpected source labels: %v", seen)
	}
	if reg.SourceLabel != "clawdbot" {
		t.Fatalf("source label = %q", reg.SourceLabel)
	}
}

func TestRegister_HonorsValidationTargets(t *testing.T) {
	var dialects []string
	_, err := Register(context.Background(), func(_ context.Context, dialect string, _ string, _ fs.FS) error {
		dialects = append(dialects, dialect)
		return nil
	}, WithValidationTargets(DialectSQLite))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if len(dialects) != 1 || dialects[0] != DialectSQLite {
		t.Fatalf("expected sqlite only, got %v", dialects)
	}
}

func TestRegister_CustomSourceLabel(t *testing.T) {
	var label string
	_, err := Register(context.Background(), func(_ context.Context, _ string, sourceLabel string, _ fs.FS) error {
		label = sourceLabel
		return nil
	}, WithDialectSourceLabel("custom-label"), WithValidationTargets(DialectSQLite))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if label != "custom-label" {
		t.Fatalf("label = %q", label)
	}
}

func TestRegister_PropagatesCallbackErrors(t *testing.T) {
	_, err := Register(context.Background(), func(context.Context, string, string, fs.FS) error {
		return fmt.Errorf("boom")
	})
	if err == nil {
		t.Fatalf("expected callback error to surface")
	}
}

func TestRegister_RequiresCallback(t *testing.T) {
	if _, err := Register(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil register function")
	}
}

func TestFilesystems_AcceptsFlatMigrationRoot(t *testing.T) {
	flat := fstest.MapFS{
		"0001_init.up.sql":          {Data: []byte("CREATE TABLE t (id TEXT);")},
		"0001_init.down.sql":        {Data: []byte("DROP TABLE t;")},
		"sqlite/0001_init.up.sql":   {Data: []byte("CREATE TABLE t (id TEXT);")},
		"sqlite/0001_init.down.sql": {Data: []byte("DROP TABLE t;")},
	}
	filesystems, err := Filesystems(flat)
	if err != nil {
		t.Fatalf("filesystems: %v", err)
	}
	if len(filesystems) != 2 {
		t.Fatalf("expected two filesystems, got %d", len(filesystems))
	}
	if filesystems[0].Path != "." {
		t.Fatalf("flat root path = %q", filesystems[0].Path)
	}
}
