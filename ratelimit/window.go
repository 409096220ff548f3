package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/alauppe/clawdbot/core"
)

// WindowLimiter enforces a client-side sliding window per provider: at most
// N requests inside the window, blocking callers until a slot frees up
// rather than rejecting them.
type WindowLimiter struct {
	Now   func() time.Time
	Sleep func(ctx context.Context, delay time.Duration) error

	mu     sync.Mutex
	limits map[string]windowLimit
	calls  map[string][]time.Time
}

type windowLimit struct {
	maxRequests int
	window      time.Duration
}

func NewWindowLimiter() *WindowLimiter {
	return &WindowLimiter{
		Now:    func() time.Time { return time.Now().UTC() },
		Sleep:  defaultSleep,
		limits: map[string]windowLimit{},
		calls:  map[string][]time.Time{},
	}
}

// SetLimit configures the window for one provider. Providers without a
// limit pass through unthrottled.
func (l *WindowLimiter) SetLimit(providerID string, maxRequests int, window time.Duration) {
	if l == nil || maxRequests <= 0 || window <= 0 {
		return
	}
	key := normalizeKey(core.RateLimitKey{ProviderID: providerID}).ProviderID
	l.mu.Lock()
	l.limits[key] = windowLimit{maxRequests: maxRequests, window: window}
	l.mu.Unlock()
}

// BeforeCall blocks until the provider window admits another request.
func (l *WindowLimiter) BeforeCall(ctx context.Context, key core.RateLimitKey) error {
	if l == nil {
		return nil
	}
	providerID := normalizeKey(key).ProviderID
	for {
		delay, admitted := l.tryAdmit(providerID)
		if admitted {
			return nil
		}
		if err := l.sleep(ctx, delay); err != nil {
			return err
		}
	}
}

func (l *WindowLimiter) AfterCall(context.Context, core.RateLimitKey, core.ProviderResponseMeta) error {
	return nil
}

// tryAdmit records the call when the window has room; otherwise it returns
// how long until the oldest timestamp rolls out.
func (l *WindowLimiter) tryAdmit(providerID string) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	limit, ok := l.limits[providerID]
	if !ok {
		return 0, true
	}
	now := l.now()
	cutoff := now.Add(-limit.window)

	recent := l.calls[providerID][:0]
	for _, at := range l.calls[providerID] {
		if at.After(cutoff) {
			recent = append(recent, at)
		}
	}
	if len(recent) < limit.maxRequests {
		l.calls[providerID] = append(recent, now)
		return 0, true
	}
	l.calls[providerID] = recent
	return recent[0].Add(limit.window).Sub(now), false
}

func (l *WindowLimiter) now() time.Time {
	if l != nil && l.Now != nil {
		return l.Now().UTC()
	}
	return time.Now().UTC()
}

func (l *WindowLimiter) sleep(ctx context.Context, delay time.Duration) error {
	fn := defaultSleep
	if l != nil && l.Sleep != nil {
		fn = l.Sleep
	}
	return fn(ctx, delay)
}

func defaultSleep(ctx context.Context, delay time.Duration) error {
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

// PolicyChain runs policies in order: every BeforeCall must admit, and
// every AfterCall sees the response.
type PolicyChain []core.RateLimitPolicy

func (c PolicyChain) BeforeCall(ctx context.Context, key core.RateLimitKey) error {
	for _, policy := range c {
		if policy == nil {
			continue
		}
		if err := policy.BeforeCall(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func (c PolicyChain) AfterCall(ctx context.Context, key core.RateLimitKey, meta core.ProviderResponseMeta) error {
	var firstErr error
	for _, policy := range c {
		if policy == nil {
			continue
		}
		if err := policy.AfterCall(ctx, key, meta); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var (
	_ core.RateLimitPolicy = (*WindowLimiter)(nil)
	_ core.RateLimitPolicy = PolicyChain{}
)
