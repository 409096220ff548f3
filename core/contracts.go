package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// Logger aliases keep the rest of the module decoupled from the logging
// library import path.
type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

// TransportRequest is the wire-level request handed to a transport adapter
// after auth placement and rate-limit admission.
type TransportRequest struct {
	Method               string
	URL                  string
	Headers              map[string]string
	Query                map[string]string
	Body                 []byte
	Timeout              time.Duration
	MaxResponseBodyBytes int64
	IdempotencyKey       string
	Metadata             map[string]any
}

func (r TransportRequest) Clone() TransportRequest {
	out := r
	out.Headers = copyStringMap(r.Headers)
	out.Query = copyStringMap(r.Query)
	out.Body = append([]byte(nil), r.Body...)
	out.Metadata = copyAnyMap(r.Metadata)
	return out
}

// TransportResponse is the raw upstream reply before normalization.
type TransportResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

func (r TransportResponse) Clone() TransportResponse {
	out := r
	out.Headers = copyStringMap(r.Headers)
	out.Body = append([]byte(nil), r.Body...)
	out.Metadata = copyAnyMap(r.Metadata)
	return out
}

// TransportAdapter executes a single wire request. Implementations must be
// safe for concurrent use.
type TransportAdapter interface {
	Kind() string
	Do(ctx context.Context, req TransportRequest) (TransportResponse, error)
}

// TransportResolver builds transport adapters by kind.
type TransportResolver interface {
	Build(kind string, config map[string]any) (TransportAdapter, error)
}

// RateLimitKey scopes pacing state to a provider bucket.
type RateLimitKey struct {
	ProviderID string
	BucketKey  string
}

// ProviderResponseMeta carries the subset of a response that rate-limit
// policies inspect after each call.
type ProviderResponseMeta struct {
	StatusCode int
	Headers    map[string]string
	Err        error
}

// RateLimitPolicy gates outbound calls. BeforeCall may block or reject;
// AfterCall records upstream feedback.
type RateLimitPolicy interface {
	BeforeCall(ctx context.Context, key RateLimitKey) error
	AfterCall(ctx context.Context, key RateLimitKey, meta ProviderResponseMeta) error
}

// CredentialStore persists per-provider credentials. Load returns
// ErrCredentialNotFound when nothing is stored.
type CredentialStore interface {
	Load(ctx context.Context, providerID string) (CredentialRecord, error)
	Save(ctx context.Context, record CredentialRecord) error
	Delete(ctx context.Context, providerID string) error
}

// AuthStrategy obtains and renews credentials for one auth scheme.
// Authenticate performs the initial exchange from long-lived inputs;
// Refresh renews an existing session. Non-refreshable schemes return
// ErrRefreshNotSupported from Refresh.
type AuthStrategy interface {
	Scheme() AuthSchemeKind
	Authenticate(ctx context.Context, record CredentialRecord) (CredentialRecord, error)
	Refresh(ctx context.Context, record CredentialRecord) (CredentialRecord, error)
}

// Provider bundles a manifest with the strategy that serves its scheme.
type Provider interface {
	ID() string
	Manifest() Manifest
	Strategy() AuthStrategy
}

// ResponseNormalizer folds a raw response into the uniform result shape.
// Providers may implement it to override the default envelope handling.
type ResponseNormalizer interface {
	Normalize(ctx context.Context, resource ResourceDescriptor, res TransportResponse) (NormalizedResult, error)
}

// MetricsRecorder receives operation counters and latency observations.
type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

// RepositoryStoreFactory builds credential stores from a persistence
// client. The concrete SQL factory lives outside core to keep driver
// imports out of this package.
type RepositoryStoreFactory interface {
	BuildStores(persistenceClient any) (CredentialStore, error)
}

// retryHinter is implemented by rate-limit rejections that carry an
// upstream wait hint.
type retryHinter interface {
	RetryAfterHint() time.Duration
}

func copyStringMap(in map[string]string) map[string]string {
	if len(in) == 0 {
		return map[string]string{}
	}
	out := make(map[string]string, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}
