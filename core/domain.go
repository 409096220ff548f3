package core

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var (
	ErrInvalidAuthScheme    = errors.New("core: invalid auth scheme")
	ErrInvalidResource      = errors.New("core: invalid resource descriptor")
	ErrUnresolvedPathParam  = errors.New("core: unresolved path parameter")
	ErrCredentialNotFound   = errors.New("core: credential not found")
	ErrResourceNotDeclared  = errors.New("core: resource not declared by provider")
	ErrInvalidManifest      = errors.New("core: invalid provider manifest")
	ErrRefreshNotSupported  = errors.New("core: auth scheme does not support refresh")
	ErrMissingRequiredField = errors.New("core: missing required field")
)

// AuthSchemeKind identifies how a provider issues and renews credentials.
type AuthSchemeKind string

const (
	AuthSchemePasswordGrant AuthSchemeKind = "password_grant"
	AuthSchemeRefreshGrant  AuthSchemeKind = "refresh_grant"
	AuthSchemeStaticKey     AuthSchemeKind = "static_key"
	AuthSchemeExternalToken AuthSchemeKind = "external_token"
)

// Refreshable reports whether the client can renew the credential on its
// own. Static keys and externally managed tokens are terminal on rejection.
func (k AuthSchemeKind) Refreshable() bool {
	switch k {
	case AuthSchemePasswordGrant, AuthSchemeRefreshGrant:
		return true
	default:
		return false
	}
}

func (k AuthSchemeKind) Valid() bool {
	switch k {
	case AuthSchemePasswordGrant, AuthSchemeRefreshGrant, AuthSchemeStaticKey, AuthSchemeExternalToken:
		return true
	default:
		return false
	}
}

// CredentialRecord is the persisted per-provider credential state. Secret
// fields are scheme specific; Validate enforces which are required.
type CredentialRecord struct {
	ProviderID   string         `json:"provider_id"`
	Scheme       AuthSchemeKind `json:"scheme"`
	ClientID     string         `json:"client_id,omitempty"`
	ClientSecret string         `json:"client_secret,omitempty"`
	Username     string         `json:"username,omitempty"`
	Password     string         `json:"password,omitempty"`
	APIKey       string         `json:"api_key,omitempty"`
	Scope        string         `json:"scope,omitempty"`
	AccessToken  string         `json:"access_token,omitempty"`
	RefreshToken string         `json:"refresh_token,omitempty"`
	ExpiresAt    *time.Time     `json:"expires_at,omitempty"`
	UpdatedAt    time.Time      `json:"updated_at"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

func (r CredentialRecord) Validate() error {
	if strings.TrimSpace(r.ProviderID) == "" {
		return fmt.Errorf("core: credential provider id is required")
	}
	if !r.Scheme.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidAuthScheme, r.Scheme)
	}
	switch r.Scheme {
	case AuthSchemePasswordGrant:
		if strings.TrimSpace(r.Username) == "" || strings.TrimSpace(r.Password) == "" {
			return fmt.Errorf("core: password grant requires username and password")
		}
	case AuthSchemeRefreshGrant:
		if strings.TrimSpace(r.ClientID) == "" || strings.TrimSpace(r.ClientSecret) == "" {
			return fmt.Errorf("core: refresh grant requires client id and client secret")
		}
		if strings.TrimSpace(r.RefreshToken) == "" && strings.TrimSpace(r.AccessToken) == "" {
			return fmt.Errorf("core: refresh grant requires a refresh token or access token")
		}
	case AuthSchemeStaticKey:
		if strings.TrimSpace(r.APIKey) == "" {
			return fmt.Errorf("core: static key scheme requires api_key")
		}
	case AuthSchemeExternalToken:
		if strings.TrimSpace(r.AccessToken) == "" {
			return fmt.Errorf("core: external token scheme requires access_token")
		}
	}
	if r.Scheme.Refreshable() {
		hasToken := strings.TrimSpace(r.AccessToken) != ""
		hasExpiry := r.ExpiresAt != nil
		if hasToken != hasExpiry {
			return fmt.Errorf("core: access token and expiry must be set together")
		}
	}
	return nil
}

func (r CredentialRecord) Clone() CredentialRecord {
	out := r
	out.ExpiresAt = cloneTimePointer(r.ExpiresAt)
	out.Metadata = copyAnyMap(r.Metadata)
	return out
}

// BearerToken is the value handed to the request executor. For static key
// schemes ExpiresAt is nil.
type BearerToken struct {
	Value     string
	Scheme    AuthSchemeKind
	ExpiresAt *time.Time
}

func (t BearerToken) ExpiredAt(now time.Time) bool {
	if t.ExpiresAt == nil {
		return false
	}
	return !t.ExpiresAt.UTC().After(now.UTC())
}

// TokenStatus is the introspection view of a stored credential.
type TokenStatus struct {
	ProviderID    string
	Scheme        AuthSchemeKind
	Authenticated bool
	Refreshable   bool
	ExpiresAt     *time.Time
	ExpiresIn     time.Duration
}

// RequestSpec describes a single upstream call. Specs are value types;
// Clone before mutating shared copies.
type RequestSpec struct {
	Method       string
	PathTemplate string
	PathParams   map[string]string
	Query        map[string]string
	Headers      map[string]string
	Body         []byte
	ResourceID   string
	BucketKey    string
	Timeout      time.Duration
}

func NewRequestSpec(method string, pathTemplate string) RequestSpec {
	method = strings.TrimSpace(strings.ToUpper(method))
	if method == "" {
		method = http.MethodGet
	}
	return RequestSpec{
		Method:       method,
		PathTemplate: strings.TrimSpace(pathTemplate),
		PathParams:   map[string]string{},
		Query:        map[string]string{},
		Headers:      map[string]string{},
	}
}

func (s RequestSpec) Clone() RequestSpec {
	out := s
	out.PathParams = copyStringMap(s.PathParams)
	out.Query = copyStringMap(s.Query)
	out.Headers = copyStringMap(s.Headers)
	out.Body = append([]byte(nil), s.Body...)
	return out
}

// ExpandPath substitutes {name} placeholders from PathParams. Unresolved
// placeholders fail rather than leaking template text upstream.
func (s RequestSpec) ExpandPath() (string, error) {
	path := s.PathTemplate
	for key, value := range s.PathParams {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		path = strings.ReplaceAll(path, "{"+key+"}", value)
	}
	if start := strings.Index(path, "{"); start >= 0 {
		if end := strings.Index(path[start:], "}"); end > 0 {
			return "", fmt.Errorf("%w: %s", ErrUnresolvedPathParam, path[start:start+end+1])
		}
	}
	return path, nil
}

type PaginationKind string

const (
	PaginationNone   PaginationKind = "none"
	PaginationCursor PaginationKind = "cursor"
	PaginationPage   PaginationKind = "page"
)

type OperationKind string

const (
	OperationList   OperationKind = "list"
	OperationGet    OperationKind = "get"
	OperationCreate OperationKind = "create"
	OperationUpdate OperationKind = "update"
	OperationDelete OperationKind = "delete"
)

// ResourceDescriptor declares a provider resource once: path shape,
// validation requirements, and pagination behavior. The facade derives
// every operation from the descriptor.
type ResourceDescriptor struct {
	Name             string
	PathTemplate     string
	ItemPathTemplate string
	CollectionKey    string
	RequiredFilters  []string
	OptionalFilters  []string
	RequiredFields   []string
	Pagination       PaginationKind
	CursorParam      string
	CursorField      string
	PageParam        string
	PageSizeParam    string
	PageSize         int
	MethodOverrides  map[OperationKind]string
	// PathOverrides replaces the derived path template for specific
	// operations, for APIs that list through a dedicated endpoint.
	PathOverrides map[OperationKind]string
	// ParamsAsQuery sends create/update/delete inputs as query parameters
	// instead of a JSON body.
	ParamsAsQuery bool
	// IDQueryParam carries the resource id as a query parameter on item
	// operations when the API has no item path.
	IDQueryParam   string
	OperationQuery map[OperationKind]map[string]string
	// QueryStatementParam names the query parameter holding a query
	// statement. With page pagination the page bounds are appended to that
	// statement (PageParam/PageSizeParam become statement keywords) instead
	// of traveling as separate parameters.
	QueryStatementParam string
}

func (d ResourceDescriptor) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidResource)
	}
	if strings.TrimSpace(d.PathTemplate) == "" {
		return fmt.Errorf("%w: path template is required for %q", ErrInvalidResource, d.Name)
	}
	switch d.Pagination {
	case "", PaginationNone:
	case PaginationCursor:
		if strings.TrimSpace(d.CursorParam) == "" {
			return fmt.Errorf("%w: cursor pagination requires cursor param for %q", ErrInvalidResource, d.Name)
		}
	case PaginationPage:
		if strings.TrimSpace(d.PageParam) == "" {
			return fmt.Errorf("%w: page pagination requires page param for %q", ErrInvalidResource, d.Name)
		}
	default:
		return fmt.Errorf("%w: unknown pagination kind %q for %q", ErrInvalidResource, d.Pagination, d.Name)
	}
	return nil
}

// MethodFor resolves the HTTP method for an operation, honoring per-resource
// overrides (some APIs create with PUT).
func (d ResourceDescriptor) MethodFor(op OperationKind) string {
	if method, ok := d.MethodOverrides[op]; ok && strings.TrimSpace(method) != "" {
		return strings.TrimSpace(strings.ToUpper(method))
	}
	switch op {
	case OperationCreate:
		return http.MethodPost
	case OperationUpdate:
		return http.MethodPut
	case OperationDelete:
		return http.MethodDelete
	default:
		return http.MethodGet
	}
}

// PathFor returns the collection or item path template for an operation.
func (d ResourceDescriptor) PathFor(op OperationKind) string {
	if path, ok := d.PathOverrides[op]; ok && strings.TrimSpace(path) != "" {
		return path
	}
	switch op {
	case OperationGet, OperationUpdate, OperationDelete:
		if strings.TrimSpace(d.ItemPathTemplate) != "" {
			return d.ItemPathTemplate
		}
		if d.ParamsAsQuery {
			return d.PathTemplate
		}
		return strings.TrimSuffix(d.PathTemplate, "/") + "/{id}"
	default:
		return d.PathTemplate
	}
}

func (d ResourceDescriptor) queryFor(op OperationKind) map[string]string {
	merged := map[string]string{}
	for key, value := range d.OperationQuery[op] {
		if strings.TrimSpace(key) == "" {
			continue
		}
		merged[key] = value
	}
	return merged
}

// TokenPlacement describes where the bearer credential travels on each
// request. Header placement is the default; some APIs take the token as a
// query parameter instead.
type TokenPlacement struct {
	Header     string
	Prefix     string
	QueryParam string
}

func DefaultTokenPlacement() TokenPlacement {
	return TokenPlacement{Header: "Authorization", Prefix: "Bearer "}
}

// RateLimitSettings are the client-side pacing and retry knobs for one
// provider.
type RateLimitSettings struct {
	MaxRequests     int
	Window          time.Duration
	MaxRetries      int
	Backoff         []time.Duration
	UpstreamRetries int
	UpstreamBackoff time.Duration
}

const (
	defaultRateLimitMaxRetries      = 3
	defaultRateLimitUpstreamRetries = 2
	defaultRateLimitUpstreamBackoff = 500 * time.Millisecond
)

func defaultRateLimitBackoff() []time.Duration {
	return []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
}

func (s RateLimitSettings) Normalize() RateLimitSettings {
	out := s
	if out.MaxRetries <= 0 {
		out.MaxRetries = defaultRateLimitMaxRetries
	}
	if len(out.Backoff) == 0 {
		out.Backoff = defaultRateLimitBackoff()
	}
	if out.UpstreamRetries <= 0 {
		out.UpstreamRetries = defaultRateLimitUpstreamRetries
	}
	if out.UpstreamBackoff <= 0 {
		out.UpstreamBackoff = defaultRateLimitUpstreamBackoff
	}
	return out
}

// BackoffFor returns the schedule delay for a 1-based retry attempt. The
// last entry repeats when attempts outnumber the schedule.
func (s RateLimitSettings) BackoffFor(attempt int) time.Duration {
	if len(s.Backoff) == 0 {
		return time.Second
	}
	if attempt < 1 {
		attempt = 1
	}
	if attempt > len(s.Backoff) {
		attempt = len(s.Backoff)
	}
	return s.Backoff[attempt-1]
}

// Manifest is the static declaration a provider package exports: identity,
// base URL, auth scheme, token placement, pacing, and resources.
type Manifest struct {
	ID          string
	BaseURL     string
	Scheme      AuthSchemeKind
	Token       TokenPlacement
	RateLimit   RateLimitSettings
	StaticQuery map[string]string
	Resources   []ResourceDescriptor
}

func (m Manifest) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidManifest)
	}
	if strings.TrimSpace(m.BaseURL) == "" {
		return fmt.Errorf("%w: base url is required for %q", ErrInvalidManifest, m.ID)
	}
	if !m.Scheme.Valid() {
		return fmt.Errorf("%w: %q scheme %q", ErrInvalidManifest, m.ID, m.Scheme)
	}
	seen := map[string]struct{}{}
	for _, resource := range m.Resources {
		if err := resource.Validate(); err != nil {
			return err
		}
		name := strings.TrimSpace(strings.ToLower(resource.Name))
		if _, exists := seen[name]; exists {
			return fmt.Errorf("%w: duplicate resource %q in %q", ErrInvalidManifest, resource.Name, m.ID)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// Resource finds a declared resource by name, case-insensitive.
func (m Manifest) Resource(name string) (ResourceDescriptor, bool) {
	name = strings.TrimSpace(strings.ToLower(name))
	for _, resource := range m.Resources {
		if strings.TrimSpace(strings.ToLower(resource.Name)) == name {
			return resource, true
		}
	}
	return ResourceDescriptor{}, false
}

// NormalizedResult is the uniform success shape returned by facade
// operations: a collection page, a single record, or neither (delete).
type NormalizedResult struct {
	Records    []map[string]any
	Record     map[string]any
	NextCursor string
	StatusCode int
	Meta       map[string]any
}

func cloneTimePointer(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := value.UTC()
	return &clone
}

func copyAnyMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}
