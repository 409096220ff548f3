package core

import (
	"context"
	"sync"
	"testing"
)

type capturedMetric struct {
	name string
	tags map[string]string
}

type capturingRecorder struct {
	mu         sync.Mutex
	counters   []capturedMetric
	histograms []capturedMetric
}

func (r *capturingRecorder) IncCounter(_ context.Context, name string, _ int64, tags map[string]string) {
	r.mu.Lock()
	r.counters = append(r.counters, capturedMetric{name: name, tags: tags})
	r.mu.Unlock()
}

func (r *capturingRecorder) ObserveHistogram(_ context.Context, name string, _ float64, tags map[string]string) {
	r.mu.Lock()
	r.histograms = append(r.histograms, capturedMetric{name: name, tags: tags})
	r.mu.Unlock()
}

func TestOperationsEmitCountersAndLatency(t *testing.T) {
	recorder := &capturingRecorder{}
	service := newTestService(t, WithMetricsRecorder(recorder))
	provider := stubProvider{manifest: testManifest("motion", AuthSchemeStaticKey)}
	if err := service.RegisterProvider(provider); err != nil {
		t.Fatalf("register provider: %v", err)
	}

	if _, err := service.Status(context.Background(), "motion"); err != nil {
		t.Fatalf("status: %v", err)
	}

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	if len(recorder.counters) != 1 {
		t.Fatalf("expected one counter, got %d", len(recorder.counters))
	}
	counter := recorder.counters[0]
	if counter.name != "skills.token_status.total" {
		t.Fatalf("unexpected counter name %q", counter.name)
	}
	if counter.tags["status"] != "success" {
		t.Fatalf("expected success status tag, got %q", counter.tags["status"])
	}
	if counter.tags["provider_id"] != "motion" {
		t.Fatalf("expected provider tag, got %v", counter.tags)
	}
	if len(recorder.histograms) != 1 || recorder.histograms[0].name != "skills.token_status.duration_ms" {
		t.Fatalf("expected latency histogram, got %+v", recorder.histograms)
	}
}

func TestFailedOperationsTagFailure(t *testing.T) {
	recorder := &capturingRecorder{}
	service := newTestService(t, WithMetricsRecorder(recorder))

	if _, err := service.Status(context.Background(), "ghost"); err == nil {
		t.Fatalf("expected unknown provider error")
	}

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	if len(recorder.counters) != 1 {
		t.Fatalf("expected one counter, got %d", len(recorder.counters))
	}
	if recorder.counters[0].tags["status"] != "failure" {
		t.Fatalf("expected failure tag, got %v", recorder.counters[0].tags)
	}
}
