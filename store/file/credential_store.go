package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/alauppe/clawdbot/core"
)

const (
	credentialFileMode os.FileMode = 0o600
	credentialDirMode  os.FileMode = 0o700
)

// Store persists one credential file per provider under a private
// directory. Files are written with owner-only permissions and replaced
// atomically so a crashed write never leaves a torn credential.
type Store struct {
	dir   string
	codec core.CredentialCodec
	now   func() time.Time
}

type Option func(*Store)

func WithCodec(codec core.CredentialCodec) Option {
	return func(s *Store) {
		if codec != nil {
			s.codec = codec
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func NewStore(dir string, opts ...Option) (*Store, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("file: credential directory is required")
	}
	store := &Store{
		dir:   dir,
		codec: core.JSONCredentialCodec{},
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

func (s *Store) Load(_ context.Context, providerID string) (core.CredentialRecord, error) {
	path, err := s.pathFor(providerID)
	if err != nil {
		return core.CredentialRecord{}, err
	}
	payload, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return core.CredentialRecord{}, core.ErrCredentialNotFound
		}
		return core.CredentialRecord{}, storageError(err, "read credential file", providerID)
	}
	record, err := s.codec.Decode(payload)
	if err != nil {
		return core.CredentialRecord{}, storageError(err, "decode credential file", providerID)
	}
	return record, nil
}

func (s *Store) Save(_ context.Context, record core.CredentialRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}
	path, err := s.pathFor(record.ProviderID)
	if err != nil {
		return err
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = s.now()
	}
	payload, err := s.codec.Encode(record)
	if err != nil {
		return storageError(err, "encode credential", record.ProviderID)
	}

	if err := os.MkdirAll(s.dir, credentialDirMode); err != nil {
		return storageError(err, "create credential directory", record.ProviderID)
	}
	// Write-then-rename keeps the previous credential intact if the write
	// fails partway.
	tmp, err := os.CreateTemp(s.dir, ".credential-*")
	if err != nil {
		return storageError(err, "create temp credential file", record.ProviderID)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := tmp.Chmod(credentialFileMode); err != nil {
		tmp.Close()
		return storageError(err, "set credential file mode", record.ProviderID)
	}
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return storageError(err, "write credential file", record.ProviderID)
	}
	if err := tmp.Close(); err != nil {
		return storageError(err, "close credential file", record.ProviderID)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return storageError(err, "replace credential file", record.ProviderID)
	}
	return nil
}

func (s *Store) Delete(_ context.Context, providerID string) error {
	path, err := s.pathFor(providerID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return storageError(err, "delete credential file", providerID)
	}
	return nil
}

func (s *Store) pathFor(providerID string) (string, error) {
	providerID = strings.TrimSpace(providerID)
	if providerID == "" {
		return "", fmt.Errorf("file: provider id is required")
	}
	// Provider ids come from registered manifests, but sanitize anyway so
	// a hostile id cannot escape the credential directory.
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, providerID)
	return filepath.Join(s.dir, safe+".json"), nil
}

func storageError(source error, action string, providerID string) error {
	return goerrors.Wrap(source, goerrors.CategoryInternal, "file: "+action).
		WithTextCode(core.TextCodeStorageError).
		WithMetadata(map[string]any{"provider_id": strings.TrimSpace(providerID)})
}

var _ core.CredentialStore = (*Store)(nil)
