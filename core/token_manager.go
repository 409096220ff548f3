package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// tokenRefreshPasses bounds how often a caller re-checks freshness after a
// coalesced refresh completes. A waiter that joined a nearly-finished
// flight gets one more pass with a refresh of its own.
const tokenRefreshPasses = 2

// GetValidToken returns a token guaranteed to be unexpired at return time.
// Concurrent callers for the same provider share a single refresh.
func (s *Service) GetValidToken(ctx context.Context, providerID string) (token BearerToken, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"provider_id": providerID}
	defer func() {
		s.observeOperation(ctx, startedAt, "get_valid_token", err, fields)
	}()

	provider, err := s.resolveProvider(providerID)
	if err != nil {
		return BearerToken{}, err
	}
	token, err = s.validTokenForProvider(ctx, provider, false)
	if err != nil {
		err = s.mapError(err)
		return BearerToken{}, err
	}
	return token, nil
}

// ForceRefresh discards the cached token and renews immediately. The
// request executor uses it after an upstream 401.
func (s *Service) ForceRefresh(ctx context.Context, providerID string) (token BearerToken, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"provider_id": providerID}
	defer func() {
		s.observeOperation(ctx, startedAt, "force_refresh", err, fields)
	}()

	provider, err := s.resolveProvider(providerID)
	if err != nil {
		return BearerToken{}, err
	}
	token, err = s.validTokenForProvider(ctx, provider, true)
	if err != nil {
		err = s.mapError(err)
		return BearerToken{}, err
	}
	return token, nil
}

func (s *Service) validTokenForProvider(ctx context.Context, provider Provider, force bool) (BearerToken, error) {
	record, err := s.loadCredential(ctx, provider.ID())
	if err != nil {
		return BearerToken{}, err
	}

	switch record.Scheme {
	case AuthSchemeStaticKey:
		if strings.TrimSpace(record.APIKey) == "" {
			return BearerToken{}, notAuthenticatedError(provider.ID())
		}
		return BearerToken{Value: record.APIKey, Scheme: record.Scheme}, nil
	case AuthSchemeExternalToken:
		// External tokens are renewed out of band; the stored value is sent
		// as-is and staleness surfaces as an upstream 401.
		if strings.TrimSpace(record.AccessToken) == "" {
			return BearerToken{}, notAuthenticatedError(provider.ID())
		}
		return BearerToken{
			Value:     record.AccessToken,
			Scheme:    record.Scheme,
			ExpiresAt: cloneTimePointer(record.ExpiresAt),
		}, nil
	}

	needsRefresh := force
	// A forced caller holds a token the upstream just rejected; the flight
	// must not short-circuit on local freshness for that exact token.
	rejectedToken := ""
	if force {
		rejectedToken = record.AccessToken
	}
	for pass := 1; pass <= tokenRefreshPasses; pass++ {
		if !needsRefresh {
			now := s.now()
			state := ResolveCredentialTokenState(now, record, s.config.Token.ExpiringSoonWindow)
			needsRefresh = ShouldRefreshCredential(now, state, s.config.Token.RefreshLeadWindow)
			if !needsRefresh && state.HasAccessToken && !state.IsExpired {
				return BearerToken{
					Value:     record.AccessToken,
					Scheme:    record.Scheme,
					ExpiresAt: cloneTimePointer(record.ExpiresAt),
				}, nil
			}
		}

		record, err = s.refreshCredentialShared(ctx, provider, rejectedToken)
		if err != nil {
			return BearerToken{}, err
		}
		// A coalesced waiter may receive a token the winner minted just
		// before it expired, or a forced caller may join another caller's
		// flight and get the rejected token back; either way the next pass
		// refreshes again instead of returning an unusable token.
		refreshedToken := BearerToken{
			Value:     record.AccessToken,
			Scheme:    record.Scheme,
			ExpiresAt: cloneTimePointer(record.ExpiresAt),
		}
		usable := strings.TrimSpace(refreshedToken.Value) != "" && !refreshedToken.ExpiredAt(s.now())
		if usable && refreshedToken.Value != rejectedToken {
			return refreshedToken, nil
		}
		needsRefresh = true
	}
	return BearerToken{}, authenticationFailedError(provider.ID(), fmt.Errorf("core: refresh did not produce a usable token"))
}

// refreshCredentialShared coalesces concurrent refreshes per provider. The
// flight reloads the stored record so waiters that queued behind a
// completed refresh do not replay stale state. rejectedToken is the access
// token a forced caller saw the upstream reject; a still-fresh stored token
// only short-circuits the flight when it differs from that one, so forced
// refreshes renew even inside the freshness window while callers that
// queued behind a completed rotation still reuse its result.
func (s *Service) refreshCredentialShared(ctx context.Context, provider Provider, rejectedToken string) (CredentialRecord, error) {
	result, err, _ := s.refreshGroup.Do(provider.ID(), func() (any, error) {
		record, loadErr := s.loadCredential(ctx, provider.ID())
		if loadErr != nil {
			return nil, loadErr
		}
		now := s.now()
		state := ResolveCredentialTokenState(now, record, s.config.Token.ExpiringSoonWindow)
		fresh := state.HasAccessToken && !state.IsExpired && !ShouldRefreshCredential(now, state, s.config.Token.RefreshLeadWindow)
		if fresh && (rejectedToken == "" || record.AccessToken != rejectedToken) {
			return record, nil
		}

		strategy := provider.Strategy()
		if strategy == nil {
			return nil, fmt.Errorf("core: provider %q has no auth strategy", provider.ID())
		}
		refreshed, refreshErr := s.runTokenRefresh(ctx, strategy, record)
		if refreshErr != nil {
			if isUnrecoverableRefreshError(refreshErr) {
				return nil, authenticationFailedError(provider.ID(), refreshErr)
			}
			return nil, refreshErr
		}
		refreshed.ProviderID = provider.ID()
		refreshed.UpdatedAt = s.now().UTC()
		if saveErr := s.credentialStore.Save(ctx, refreshed); saveErr != nil {
			return nil, wrapStorageError(saveErr)
		}
		return refreshed, nil
	})
	if err != nil {
		return CredentialRecord{}, err
	}
	record, ok := result.(CredentialRecord)
	if !ok {
		return CredentialRecord{}, fmt.Errorf("core: unexpected refresh result type %T", result)
	}
	return record.Clone(), nil
}

func (s *Service) loadCredential(ctx context.Context, providerID string) (CredentialRecord, error) {
	record, err := s.credentialStore.Load(ctx, providerID)
	if err != nil {
		if errors.Is(err, ErrCredentialNotFound) {
			return CredentialRecord{}, notAuthenticatedError(providerID)
		}
		return CredentialRecord{}, wrapStorageError(err)
	}
	return record, nil
}

func notAuthenticatedError(providerID string) error {
	return goerrors.New(
		fmt.Sprintf("no valid credential for provider %q; authenticate first", providerID),
		goerrors.CategoryAuth,
	).WithTextCode(TextCodeNotAuthenticated).
		WithMetadata(map[string]any{"provider_id": providerID})
}

func authenticationFailedError(providerID string, source error) error {
	message := fmt.Sprintf("authentication failed for provider %q", providerID)
	if source != nil {
		return goerrors.Wrap(source, goerrors.CategoryAuth, message).
			WithTextCode(TextCodeAuthenticationFailed).
			WithMetadata(map[string]any{"provider_id": providerID})
	}
	return goerrors.New(message, goerrors.CategoryAuth).
		WithTextCode(TextCodeAuthenticationFailed).
		WithMetadata(map[string]any{"provider_id": providerID})
}
