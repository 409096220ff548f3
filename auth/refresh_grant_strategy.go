package auth

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/alauppe/clawdbot/core"
)

type RefreshGrantStrategyConfig struct {
	TokenURL  string
	Transport core.TransportAdapter
	Now       func() time.Time
}

// RefreshGrantStrategy renews sessions from a long-lived refresh token
// using HTTP basic client authentication. Endpoints that rotate the
// refresh token on every renewal get the rotated value persisted.
type RefreshGrantStrategy struct {
	config RefreshGrantStrategyConfig
}

func NewRefreshGrantStrategy(cfg RefreshGrantStrategyConfig) *RefreshGrantStrategy {
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &RefreshGrantStrategy{
		config: RefreshGrantStrategyConfig{
			TokenURL:  strings.TrimSpace(cfg.TokenURL),
			Transport: cfg.Transport,
			Now:       now,
		},
	}
}

func (*RefreshGrantStrategy) Scheme() core.AuthSchemeKind {
	return core.AuthSchemeRefreshGrant
}

// Authenticate seeds a session from an externally obtained refresh token;
// the exchange itself is identical to a renewal.
func (s *RefreshGrantStrategy) Authenticate(ctx context.Context, record core.CredentialRecord) (core.CredentialRecord, error) {
	return s.Refresh(ctx, record)
}

func (s *RefreshGrantStrategy) Refresh(ctx context.Context, record core.CredentialRecord) (core.CredentialRecord, error) {
	refreshToken := strings.TrimSpace(record.RefreshToken)
	if refreshToken == "" {
		return core.CredentialRecord{}, fmt.Errorf("auth: refresh grant requires a refresh token")
	}
	clientID := strings.TrimSpace(record.ClientID)
	clientSecret := strings.TrimSpace(record.ClientSecret)
	if clientID == "" || clientSecret == "" {
		return core.CredentialRecord{}, fmt.Errorf("auth: refresh grant requires client id and client secret")
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	headers := map[string]string{
		"Authorization": "Basic " + base64.StdEncoding.EncodeToString([]byte(clientID+":"+clientSecret)),
	}
	res, err := postTokenForm(ctx, s.config.Transport, s.config.TokenURL, headers, form)
	if err != nil {
		return core.CredentialRecord{}, err
	}
	return applyTokenResponse(record, res, s.config.Now()), nil
}

var _ core.AuthStrategy = (*RefreshGrantStrategy)(nil)
