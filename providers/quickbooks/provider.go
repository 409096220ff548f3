package quickbooks

import (
	"context"
	"strings"
	"time"

	"github.com/alauppe/clawdbot/auth"
	"github.com/alauppe/clawdbot/core"
)

const (
	ProviderID = "quickbooks"
	TokenURL   = "https://oauth.platform.intuit.com/oauth2/v1/tokens/bearer"

	productionBaseURL = "https://quickbooks.api.intuit.com/v3/company"
	sandboxBaseURL    = "https://sandbox-quickbooks.api.intuit.com/v3/company"

	defaultMinorVersion = "75"
	defaultPageSize     = 100
)

// Config identifies one QuickBooks Online company. CompanyID is the
// realm id captured during the authorization redirect; refresh tokens
// rotate on every exchange and the rotated value must be persisted.
type Config struct {
	CompanyID    string
	MinorVersion string
	Sandbox      bool
	BaseURL      string
	TokenURL     string
	Transport    core.TransportAdapter
	Now          func() time.Time
}

type Provider struct {
	manifest core.Manifest
	strategy core.AuthStrategy
}

func New(cfg Config) (*Provider, error) {
	if strings.TrimSpace(cfg.MinorVersion) == "" {
		cfg.MinorVersion = defaultMinorVersion
	}
	if strings.TrimSpace(cfg.TokenURL) == "" {
		cfg.TokenURL = TokenURL
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		root := productionBaseURL
		if cfg.Sandbox {
			root = sandboxBaseURL
		}
		cfg.BaseURL = root + "/" + strings.TrimSpace(cfg.CompanyID)
	}

	manifest := buildManifest(cfg)
	if err := manifest.Validate(); err != nil {
		return nil, err
	}

	strategy := auth.NewRefreshGrantStrategy(auth.RefreshGrantStrategyConfig{
		TokenURL:  cfg.TokenURL,
		Transport: cfg.Transport,
		Now:       cfg.Now,
	})

	return &Provider{manifest: manifest, strategy: strategy}, nil
}

func (p *Provider) ID() string {
	return ProviderID
}

func (p *Provider) Manifest() core.Manifest {
	if p == nil {
		return core.Manifest{}
	}
	return p.manifest
}

func (p *Provider) Strategy() core.AuthStrategy {
	if p == nil {
		return nil
	}
	return p.strategy
}

// Normalize unwraps the QueryResponse envelope QuickBooks wraps around
// list results before falling back to the default shape handling.
func (p *Provider) Normalize(ctx context.Context, descriptor core.ResourceDescriptor, res core.TransportResponse) (core.NormalizedResult, error) {
	return normalizeQueryResponse(ctx, descriptor, res)
}

func buildManifest(cfg Config) core.Manifest {
	return core.Manifest{
		ID:      ProviderID,
		BaseURL: strings.TrimSpace(cfg.BaseURL),
		Scheme:  core.AuthSchemeRefreshGrant,
		Token:   core.DefaultTokenPlacement(),
		RateLimit: core.RateLimitSettings{
			MaxRequests: 500,
			Window:      time.Minute,
		},
		StaticQuery: map[string]string{
			"minorversion": strings.TrimSpace(cfg.MinorVersion),
		},
		Resources: []core.ResourceDescriptor{
			entityResource("customers", "Customer"),
			entityResource("invoices", "Invoice"),
			entityResource("accounts", "Account"),
			entityResource("vendors", "Vendor"),
			entityResource("items", "Item"),
		},
	}
}

// entityResource maps one QuickBooks entity onto the descriptor model:
// lists go through the SQL-ish /query endpoint with STARTPOSITION and
// MAXRESULTS appended to the statement, reads hit the entity path, and
// updates are sparse POSTs against the collection path.
func entityResource(name, entity string) core.ResourceDescriptor {
	lower := strings.ToLower(entity)
	return core.ResourceDescriptor{
		Name:                name,
		PathTemplate:        "/" + lower,
		ItemPathTemplate:    "/" + lower + "/{id}",
		CollectionKey:       entity,
		Pagination:          core.PaginationPage,
		PageParam:           "STARTPOSITION",
		PageSizeParam:       "MAXRESULTS",
		PageSize:            defaultPageSize,
		QueryStatementParam: "query",
		PathOverrides: map[core.OperationKind]string{
			core.OperationList:   "/query",
			core.OperationUpdate: "/" + lower,
		},
		MethodOverrides: map[core.OperationKind]string{
			core.OperationUpdate: "POST",
		},
		OperationQuery: map[core.OperationKind]map[string]string{
			core.OperationList: {
				"query": "select * from " + entity,
			},
		},
	}
}

var (
	_ core.Provider           = (*Provider)(nil)
	_ core.ResponseNormalizer = (*Provider)(nil)
)
