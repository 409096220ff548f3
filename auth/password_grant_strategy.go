package auth

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/alauppe/clawdbot/core"
)

type PasswordGrantStrategyConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	DefaultScope string
	Transport    core.TransportAdapter
	Now          func() time.Time
}

// PasswordGrantStrategy exchanges a stored username and password for a
// bearer token. Both the initial exchange and refresh-token renewal go
// through the same token endpoint.
type PasswordGrantStrategy struct {
	config PasswordGrantStrategyConfig
}

func NewPasswordGrantStrategy(cfg PasswordGrantStrategyConfig) *PasswordGrantStrategy {
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &PasswordGrantStrategy{
		config: PasswordGrantStrategyConfig{
			TokenURL:     strings.TrimSpace(cfg.TokenURL),
			ClientID:     strings.TrimSpace(cfg.ClientID),
			ClientSecret: strings.TrimSpace(cfg.ClientSecret),
			DefaultScope: strings.TrimSpace(cfg.DefaultScope),
			Transport:    cfg.Transport,
			Now:          now,
		},
	}
}

func (*PasswordGrantStrategy) Scheme() core.AuthSchemeKind {
	return core.AuthSchemePasswordGrant
}

func (s *PasswordGrantStrategy) Authenticate(ctx context.Context, record core.CredentialRecord) (core.CredentialRecord, error) {
	username := strings.TrimSpace(record.Username)
	password := record.Password
	if username == "" || strings.TrimSpace(password) == "" {
		return core.CredentialRecord{}, fmt.Errorf("auth: password grant requires username and password")
	}
	clientID := firstNonEmpty(record.ClientID, s.config.ClientID)
	clientSecret := firstNonEmpty(record.ClientSecret, s.config.ClientSecret)
	scope := firstNonEmpty(record.Scope, s.config.DefaultScope)

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", username)
	form.Set("password", password)
	if clientID != "" {
		form.Set("client_id", clientID)
	}
	if clientSecret != "" {
		form.Set("client_secret", clientSecret)
	}
	if scope != "" {
		form.Set("scope", scope)
	}

	res, err := postTokenForm(ctx, s.config.Transport, s.config.TokenURL, nil, form)
	if err != nil {
		return core.CredentialRecord{}, err
	}
	return applyTokenResponse(record, res, s.config.Now()), nil
}

func (s *PasswordGrantStrategy) Refresh(ctx context.Context, record core.CredentialRecord) (core.CredentialRecord, error) {
	refreshToken := strings.TrimSpace(record.RefreshToken)
	if refreshToken == "" {
		return s.Authenticate(ctx, record)
	}
	clientID := firstNonEmpty(record.ClientID, s.config.ClientID)
	clientSecret := firstNonEmpty(record.ClientSecret, s.config.ClientSecret)

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	if clientID != "" {
		form.Set("client_id", clientID)
	}
	if clientSecret != "" {
		form.Set("client_secret", clientSecret)
	}

	res, err := postTokenForm(ctx, s.config.Transport, s.config.TokenURL, nil, form)
	if err != nil {
		return core.CredentialRecord{}, err
	}
	return applyTokenResponse(record, res, s.config.Now()), nil
}

var _ core.AuthStrategy = (*PasswordGrantStrategy)(nil)
