package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/alauppe/clawdbot/core"
)

// CredentialStore persists credential records as an append-only version
// chain per provider. Saving a record revokes the previous active version
// inside the same transaction, so readers always observe exactly one
// active credential per provider.
type CredentialStore struct {
	db    *bun.DB
	repo  repository.Repository[*credentialRecord]
	codec core.CredentialCodec
	now   func() time.Time
}

func NewCredentialStore(db *bun.DB, codec core.CredentialCodec) (*CredentialStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	if codec == nil {
		codec = core.JSONCredentialCodec{}
	}
	repo := repository.NewRepository[*credentialRecord](db, credentialHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid credential repository wiring: %w", err)
		}
	}
	return &CredentialStore{
		db:    db,
		repo:  repo,
		codec: codec,
		now:   time.Now,
	}, nil
}

func (s *CredentialStore) Load(ctx context.Context, providerID string) (core.CredentialRecord, error) {
	if s == nil || s.repo == nil {
		return core.CredentialRecord{}, fmt.Errorf("sqlstore: credential store is not configured")
	}
	providerID = strings.TrimSpace(providerID)
	if providerID == "" {
		return core.CredentialRecord{}, core.ErrCredentialNotFound
	}

	records, _, err := s.repo.List(ctx,
		repository.SelectBy("provider_id", "=", providerID),
		repository.SelectBy("status", "=", credentialStatusActive),
		repository.OrderBy("version DESC"),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.CredentialRecord{}, storageError(err, providerID, "load credential")
	}
	if len(records) == 0 {
		return core.CredentialRecord{}, core.ErrCredentialNotFound
	}

	decoded, err := s.codec.Decode(records[0].Payload)
	if err != nil {
		return core.CredentialRecord{}, storageError(err, providerID, "decode credential payload")
	}
	decoded.ProviderID = providerID
	return decoded, nil
}

func (s *CredentialStore) Save(ctx context.Context, record core.CredentialRecord) error {
	if s == nil || s.repo == nil || s.db == nil {
		return fmt.Errorf("sqlstore: credential store is not configured")
	}
	if err := record.Validate(); err != nil {
		return err
	}

	payload, err := s.codec.Encode(record)
	if err != nil {
		return storageError(err, record.ProviderID, "encode credential payload")
	}
	now := s.currentTime()

	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		nextVersion, versionErr := s.nextVersion(ctx, tx, record.ProviderID)
		if versionErr != nil {
			return versionErr
		}

		_, updateErr := tx.NewUpdate().
			Model((*credentialRecord)(nil)).
			Set("status = ?", credentialStatusRevoked).
			Set("revocation_reason = ?", "rotated").
			Set("updated_at = ?", now).
			Where("provider_id = ?", record.ProviderID).
			Where("status = ?", credentialStatusActive).
			Exec(ctx)
		if updateErr != nil {
			return updateErr
		}

		row := &credentialRecord{
			ID:             uuid.NewString(),
			ProviderID:     record.ProviderID,
			Version:        nextVersion,
			Scheme:         string(record.Scheme),
			Payload:        payload,
			PayloadFormat:  s.codec.Format(),
			PayloadVersion: s.codec.Version(),
			ExpiresAt:      copyTimePointer(record.ExpiresAt),
			Status:         credentialStatusActive,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		_, createErr := s.repo.CreateTx(ctx, tx, row)
		return createErr
	})
	if err != nil {
		return storageError(err, record.ProviderID, "save credential")
	}
	return nil
}

func (s *CredentialStore) Delete(ctx context.Context, providerID string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: credential store is not configured")
	}
	providerID = strings.TrimSpace(providerID)
	if providerID == "" {
		return nil
	}

	_, err := s.db.NewUpdate().
		Model((*credentialRecord)(nil)).
		Set("status = ?", credentialStatusRevoked).
		Set("revocation_reason = ?", "logout").
		Set("updated_at = ?", s.currentTime()).
		Where("provider_id = ?", providerID).
		Where("status = ?", credentialStatusActive).
		Exec(ctx)
	if err != nil {
		return storageError(err, providerID, "delete credential")
	}
	return nil
}

func (s *CredentialStore) nextVersion(ctx context.Context, tx bun.Tx, providerID string) (int, error) {
	var maxVersion int
	if err := tx.NewSelect().
		Model((*credentialRecord)(nil)).
		ColumnExpr("COALESCE(MAX(version), 0)").
		Where("?TableAlias.provider_id = ?", providerID).
		Scan(ctx, &maxVersion); err != nil {
		return 0, err
	}
	return maxVersion + 1, nil
}

func (s *CredentialStore) currentTime() time.Time {
	if s == nil || s.now == nil {
		return time.Now().UTC()
	}
	return s.now().UTC()
}

func storageError(err error, providerID, msg string) error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, "sqlstore: "+msg).
		WithTextCode(core.TextCodeStorageError).
		WithMetadata(map[string]any{"provider_id": providerID})
}
