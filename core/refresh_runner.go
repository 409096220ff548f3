package core

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const (
	defaultRefreshMaxAttempts    = 3
	defaultRefreshInitialBackoff = 500 * time.Millisecond
	defaultRefreshMaxBackoff     = 10 * time.Second
)

type RefreshBackoffScheduler interface {
	NextDelay(attempt int) time.Duration
}

type ExponentialBackoffScheduler struct {
	Initial time.Duration
	Max     time.Duration
}

func (s ExponentialBackoffScheduler) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	initial := s.Initial
	if initial <= 0 {
		initial = defaultRefreshInitialBackoff
	}
	max := s.Max
	if max <= 0 {
		max = defaultRefreshMaxBackoff
	}

	delay := initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}

// runAuthExchange performs the initial credential exchange with bounded
// retries. Upstream rejections are terminal; transient failures back off
// and retry.
func (s *Service) runAuthExchange(ctx context.Context, strategy AuthStrategy, record CredentialRecord) (CredentialRecord, error) {
	return s.runCredentialExchange(ctx, record, strategy.Authenticate)
}

// runTokenRefresh renews an existing session, falling back to the initial
// exchange when no refresh token is stored (password grants re-exchange
// their long-lived inputs).
func (s *Service) runTokenRefresh(ctx context.Context, strategy AuthStrategy, record CredentialRecord) (CredentialRecord, error) {
	exchange := strategy.Refresh
	if strings.TrimSpace(record.RefreshToken) == "" && record.Scheme == AuthSchemePasswordGrant {
		exchange = strategy.Authenticate
	}
	refreshed, err := s.runCredentialExchange(ctx, record, exchange)
	if err == nil {
		return refreshed, nil
	}
	// A rejected refresh token on a password grant can still recover by
	// re-exchanging the stored username and password.
	if record.Scheme == AuthSchemePasswordGrant &&
		strings.TrimSpace(record.RefreshToken) != "" &&
		isUnrecoverableRefreshError(err) {
		return s.runCredentialExchange(ctx, record, strategy.Authenticate)
	}
	return CredentialRecord{}, err
}

func (s *Service) runCredentialExchange(
	ctx context.Context,
	record CredentialRecord,
	exchange func(ctx context.Context, record CredentialRecord) (CredentialRecord, error),
) (CredentialRecord, error) {
	maxAttempts := s.config.Token.RefreshMaxAttempts
	if maxAttempts < 1 {
		maxAttempts = defaultRefreshMaxAttempts
	}
	scheduler := ExponentialBackoffScheduler{
		Initial: s.config.Token.RefreshInitialDelay,
		Max:     s.config.Token.RefreshMaxDelay,
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		refreshed, err := exchange(ctx, record)
		if err == nil {
			return refreshed, nil
		}
		lastErr = err

		if isUnrecoverableRefreshError(err) || attempt == maxAttempts {
			return CredentialRecord{}, err
		}
		if waitErr := s.sleep(ctx, scheduler.NextDelay(attempt)); waitErr != nil {
			return CredentialRecord{}, waitErr
		}
	}
	return CredentialRecord{}, lastErr
}

func isUnrecoverableRefreshError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		switch richErr.Category {
		case goerrors.CategoryAuth, goerrors.CategoryAuthz, goerrors.CategoryValidation, goerrors.CategoryNotFound:
			return true
		}
		switch strings.TrimSpace(strings.ToUpper(richErr.TextCode)) {
		case "TOKEN_EXPIRED", "UNAUTHORIZED", "FORBIDDEN", TextCodeAuthenticationFailed:
			return true
		}
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	return strings.Contains(msg, "invalid_grant") ||
		strings.Contains(msg, "invalid refresh token") ||
		strings.Contains(msg, "invalid credentials")
}

func waitWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
