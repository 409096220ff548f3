package core

import (
	"strings"
	"time"
)

const (
	DefaultCredentialExpiringSoonWindow = 5 * time.Minute
	DefaultCredentialRefreshLeadWindow  = time.Minute
)

// CredentialTokenState captures access/refresh lifecycle state derived from
// a stored credential.
type CredentialTokenState struct {
	ExpiresAt       *time.Time
	HasAccessToken  bool
	HasRefreshToken bool
	CanAutoRefresh  bool
	IsExpired       bool
	IsExpiringSoon  bool
}

// ResolveCredentialTokenState evaluates expiry and refreshability flags.
func ResolveCredentialTokenState(now time.Time, record CredentialRecord, expiringSoonWindow time.Duration) CredentialTokenState {
	if now.IsZero() {
		now = time.Now().UTC()
	} else {
		now = now.UTC()
	}
	if expiringSoonWindow <= 0 {
		expiringSoonWindow = DefaultCredentialExpiringSoonWindow
	}

	state := CredentialTokenState{
		HasAccessToken:  strings.TrimSpace(record.AccessToken) != "",
		HasRefreshToken: strings.TrimSpace(record.RefreshToken) != "",
	}
	// Password grants can re-exchange stored inputs even without a refresh
	// token; refresh grants need the token itself.
	switch record.Scheme {
	case AuthSchemePasswordGrant:
		state.CanAutoRefresh = true
	case AuthSchemeRefreshGrant:
		state.CanAutoRefresh = state.HasRefreshToken
	}
	if record.ExpiresAt == nil {
		return state
	}
	expiresAt := record.ExpiresAt.UTC()
	state.ExpiresAt = &expiresAt
	if !expiresAt.After(now) {
		state.IsExpired = true
		return state
	}
	state.IsExpiringSoon = !expiresAt.After(now.Add(expiringSoonWindow))
	return state
}

// ShouldRefreshCredential returns true when a renewal should run before the
// token is handed out.
func ShouldRefreshCredential(now time.Time, state CredentialTokenState, refreshLeadWindow time.Duration) bool {
	if !state.CanAutoRefresh {
		return false
	}
	if !state.HasAccessToken {
		return true
	}
	if state.ExpiresAt == nil {
		return false
	}
	if refreshLeadWindow <= 0 {
		refreshLeadWindow = DefaultCredentialRefreshLeadWindow
	}
	if now.IsZero() {
		now = time.Now().UTC()
	} else {
		now = now.UTC()
	}
	return !state.ExpiresAt.UTC().After(now.Add(refreshLeadWindow))
}
