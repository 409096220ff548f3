package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alauppe/clawdbot/core"
)

// StaticKeyStrategy validates and stores a fixed API key. There is no
// exchange and no renewal; a rejected key means the user must supply a new
// one.
type StaticKeyStrategy struct {
	now func() time.Time
}

func NewStaticKeyStrategy() *StaticKeyStrategy {
	return &StaticKeyStrategy{now: func() time.Time { return time.Now().UTC() }}
}

func (*StaticKeyStrategy) Scheme() core.AuthSchemeKind {
	return core.AuthSchemeStaticKey
}

func (s *StaticKeyStrategy) Authenticate(_ context.Context, record core.CredentialRecord) (core.CredentialRecord, error) {
	if strings.TrimSpace(record.APIKey) == "" {
		return core.CredentialRecord{}, fmt.Errorf("auth: static key scheme requires api_key")
	}
	out := record.Clone()
	out.UpdatedAt = s.now()
	return out, nil
}

func (*StaticKeyStrategy) Refresh(context.Context, core.CredentialRecord) (core.CredentialRecord, error) {
	return core.CredentialRecord{}, core.ErrRefreshNotSupported
}

var _ core.AuthStrategy = (*StaticKeyStrategy)(nil)
