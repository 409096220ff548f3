package devkit

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/alauppe/clawdbot/core"
)

// TransportScript is one canned exchange. Scripts play back in request
// order; the last script repeats once the list is exhausted.
type TransportScript struct {
	Response core.TransportResponse
	Err      error
}

type FakeTransportAdapter struct {
	mu       sync.Mutex
	kind     string
	scripts  []TransportScript
	requests []core.TransportRequest
}

func NewFakeTransportAdapter(kind string, scripts ...TransportScript) *FakeTransportAdapter {
	return &FakeTransportAdapter{
		kind:    strings.TrimSpace(strings.ToLower(kind)),
		scripts: append([]TransportScript(nil), scripts...),
	}
}

func (a *FakeTransportAdapter) Kind() string {
	if a == nil {
		return ""
	}
	return a.kind
}

func (a *FakeTransportAdapter) Do(_ context.Context, req core.TransportRequest) (core.TransportResponse, error) {
	if a == nil {
		return core.TransportResponse{}, fmt.Errorf("devkit: fake transport adapter is nil")
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	a.requests = append(a.requests, req.Clone())
	index := len(a.requests) - 1
	if index < len(a.scripts) {
		script := a.scripts[index]
		return script.Response.Clone(), script.Err
	}
	if len(a.scripts) > 0 {
		last := a.scripts[len(a.scripts)-1]
		return last.Response.Clone(), last.Err
	}
	return core.TransportResponse{
		StatusCode: 200,
		Headers:    map[string]string{},
		Metadata:   map[string]any{"kind": a.kind},
	}, nil
}

func (a *FakeTransportAdapter) Append(scripts ...TransportScript) {
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.scripts = append(a.scripts, scripts...)
}

func (a *FakeTransportAdapter) Requests() []core.TransportRequest {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]core.TransportRequest, 0, len(a.requests))
	for _, item := range a.requests {
		out = append(out, item.Clone())
	}
	return out
}

// FakeTransportResolver hands the same fake adapter back for every kind.
type FakeTransportResolver struct {
	Adapter *FakeTransportAdapter
}

func (r FakeTransportResolver) Build(kind string, _ map[string]any) (core.TransportAdapter, error) {
	if r.Adapter == nil {
		return nil, fmt.Errorf("devkit: fake transport resolver has no adapter")
	}
	_ = kind
	return r.Adapter, nil
}

var (
	_ core.TransportAdapter  = (*FakeTransportAdapter)(nil)
	_ core.TransportResolver = (FakeTransportResolver{})
)
