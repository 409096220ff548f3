package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alauppe/clawdbot/core"
)

// ExternalTokenStrategy stores a token minted outside the client, for
// example from a provider admin console. Expiry is honored but renewal is
// the user's responsibility.
type ExternalTokenStrategy struct {
	now func() time.Time
}

func NewExternalTokenStrategy() *ExternalTokenStrategy {
	return &ExternalTokenStrategy{now: func() time.Time { return time.Now().UTC() }}
}

func (*ExternalTokenStrategy) Scheme() core.AuthSchemeKind {
	return core.AuthSchemeExternalToken
}

func (s *ExternalTokenStrategy) Authenticate(_ context.Context, record core.CredentialRecord) (core.CredentialRecord, error) {
	if strings.TrimSpace(record.AccessToken) == "" {
		return core.CredentialRecord{}, fmt.Errorf("auth: external token scheme requires access_token")
	}
	out := record.Clone()
	out.UpdatedAt = s.now()
	return out, nil
}

func (*ExternalTokenStrategy) Refresh(context.Context, core.CredentialRecord) (core.CredentialRecord, error) {
	return core.CredentialRecord{}, core.ErrRefreshNotSupported
}

var _ core.AuthStrategy = (*ExternalTokenStrategy)(nil)
