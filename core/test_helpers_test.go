package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type stubProvider struct {
	manifest Manifest
	strategy AuthStrategy
}

func (p stubProvider) ID() string             { return p.manifest.ID }
func (p stubProvider) Manifest() Manifest     { return p.manifest }
func (p stubProvider) Strategy() AuthStrategy { return p.strategy }

func testManifest(id string, scheme AuthSchemeKind) Manifest {
	return Manifest{
		ID:      id,
		BaseURL: "https://api.example.com",
		Scheme:  scheme,
		Resources: []ResourceDescriptor{
			{
				Name:            "widgets",
				PathTemplate:    "/widgets",
				CollectionKey:   "data",
				RequiredFilters: []string{},
				RequiredFields:  []string{"name"},
				Pagination:      PaginationCursor,
				CursorParam:     "cursor",
			},
		},
	}
}

type stubStrategy struct {
	scheme AuthSchemeKind

	mu               sync.Mutex
	authenticateErr  error
	refreshErr       error
	issued           int
	refreshed        int
	tokenLifetime    time.Duration
	now              func() time.Time
	refreshTokenSeed string
}

func newStubStrategy(scheme AuthSchemeKind, now func() time.Time) *stubStrategy {
	return &stubStrategy{
		scheme:           scheme,
		tokenLifetime:    time.Hour,
		now:              now,
		refreshTokenSeed: "refresh",
	}
}

func (s *stubStrategy) Scheme() AuthSchemeKind { return s.scheme }

func (s *stubStrategy) Authenticate(_ context.Context, record CredentialRecord) (CredentialRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.authenticateErr != nil {
		return CredentialRecord{}, s.authenticateErr
	}
	s.issued++
	expiry := s.now().UTC().Add(s.tokenLifetime)
	out := record
	out.AccessToken = fmt.Sprintf("access-%d", s.issued)
	out.RefreshToken = fmt.Sprintf("%s-%d", s.refreshTokenSeed, s.issued)
	out.ExpiresAt = &expiry
	return out, nil
}

func (s *stubStrategy) Refresh(_ context.Context, record CredentialRecord) (CredentialRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refreshErr != nil {
		return CredentialRecord{}, s.refreshErr
	}
	if !s.scheme.Refreshable() {
		return CredentialRecord{}, ErrRefreshNotSupported
	}
	s.refreshed++
	expiry := s.now().UTC().Add(s.tokenLifetime)
	out := record
	out.AccessToken = fmt.Sprintf("refreshed-%d", s.refreshed)
	out.ExpiresAt = &expiry
	return out, nil
}

func (s *stubStrategy) refreshCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshed
}

type scriptedResponse struct {
	res TransportResponse
	err error
}

type scriptedTransport struct {
	mu       sync.Mutex
	scripts  []scriptedResponse
	requests []TransportRequest
}

func (t *scriptedTransport) Kind() string { return "rest" }

func (t *scriptedTransport) Do(_ context.Context, req TransportRequest) (TransportResponse, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.requests = append(t.requests, req.Clone())
	if len(t.scripts) == 0 {
		return TransportResponse{StatusCode: 200}, nil
	}
	next := t.scripts[0]
	if len(t.scripts) > 1 {
		t.scripts = t.scripts[1:]
	}
	return next.res.Clone(), next.err
}

func (t *scriptedTransport) recorded() []TransportRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]TransportRequest, len(t.requests))
	copy(out, t.requests)
	return out
}

type scriptedResolver struct {
	adapter TransportAdapter
}

func (r scriptedResolver) Build(string, map[string]any) (TransportAdapter, error) {
	return r.adapter, nil
}

type recordedSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordedSleeper) sleep(_ context.Context, delay time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, delay)
	s.mu.Unlock()
	return nil
}

func (s *recordedSleeper) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.delays))
	copy(out, s.delays)
	return out
}

func jsonResponse(status int, body string) TransportResponse {
	return TransportResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       []byte(body),
	}
}

func newTestService(t interface{ Fatalf(string, ...any) }, opts ...Option) *Service {
	base := []Option{
		WithCredentialStore(NewMemoryCredentialStore()),
	}
	service, err := NewService(DefaultConfig(), append(base, opts...)...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service
}

func textCodeOf(err error) string {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode
	}
	return ""
}
