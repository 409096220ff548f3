package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alauppe/clawdbot/core"
)

func TestWindowLimiter_AdmitsUnconfiguredProviders(t *testing.T) {
	limiter := NewWindowLimiter()

	for i := 0; i < 5; i++ {
		if err := limiter.BeforeCall(context.Background(), core.RateLimitKey{ProviderID: "skyswitch"}); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
}

func TestWindowLimiter_BlocksUntilWindowRolls(t *testing.T) {
	limiter := NewWindowLimiter()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	limiter.Now = func() time.Time { return now }

	var slept []time.Duration
	limiter.Sleep = func(_ context.Context, delay time.Duration) error {
		slept = append(slept, delay)
		now = now.Add(delay)
		return nil
	}

	limiter.SetLimit("motion", 2, time.Minute)
	key := core.RateLimitKey{ProviderID: "motion"}

	for i := 0; i < 2; i++ {
		if err := limiter.BeforeCall(context.Background(), key); err != nil {
			t.Fatalf("warm call %d: %v", i, err)
		}
	}
	if len(slept) != 0 {
		t.Fatalf("expected first two calls to pass without sleeping, slept %v", slept)
	}

	if err := limiter.BeforeCall(context.Background(), key); err != nil {
		t.Fatalf("third call: %v", err)
	}
	if len(slept) != 1 {
		t.Fatalf("expected one sleep, got %v", slept)
	}
	if slept[0] != time.Minute {
		t.Fatalf("expected to wait for the full window, got %s", slept[0])
	}
}

func TestWindowLimiter_PropagatesContextCancellation(t *testing.T) {
	limiter := NewWindowLimiter()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	limiter.Now = func() time.Time { return now }
	limiter.SetLimit("motion", 1, time.Minute)

	key := core.RateLimitKey{ProviderID: "motion"}
	if err := limiter.BeforeCall(context.Background(), key); err != nil {
		t.Fatalf("warm call: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := limiter.BeforeCall(ctx, key); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestPolicyChain_StopsAtFirstBeforeCallError(t *testing.T) {
	store := NewMemoryStateStore()
	policy := NewAdaptivePolicy(store)
	now := time.Unix(1_700_000_000, 0).UTC()
	policy.Now = func() time.Time { return now }

	key := core.RateLimitKey{ProviderID: "motion", BucketKey: "default"}
	until := now.Add(5 * time.Second)
	if err := store.Upsert(context.Background(), State{Key: key, ThrottledUntil: &until}); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	chain := PolicyChain{NewWindowLimiter(), policy}
	if err := chain.BeforeCall(context.Background(), key); err == nil {
		t.Fatalf("expected throttle error from chained policy")
	}
}
