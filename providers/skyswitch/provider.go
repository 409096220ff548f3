package skyswitch

import (
	"strings"
	"time"

	"github.com/alauppe/clawdbot/auth"
	"github.com/alauppe/clawdbot/core"
)

const (
	ProviderID = "skyswitch"
	BaseURL    = "https://api.skyswitch.com"
	TokenURL   = "https://api.skyswitch.com/oauth/token"
)

// Config carries the OAuth application credentials for a SkySwitch
// reseller account. AccountID scopes every resource path.
type Config struct {
	ClientID     string
	ClientSecret string
	AccountID    string
	BaseURL      string
	TokenURL     string
	Transport    core.TransportAdapter
	Now          func() time.Time
}

type Provider struct {
	manifest core.Manifest
	strategy core.AuthStrategy
}

func DefaultConfig() Config {
	return Config{
		BaseURL:  BaseURL,
		TokenURL: TokenURL,
	}
}

func New(cfg Config) (*Provider, error) {
	defaults := DefaultConfig()
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaults.BaseURL
	}
	if strings.TrimSpace(cfg.TokenURL) == "" {
		cfg.TokenURL = defaults.TokenURL
	}

	manifest := buildManifest(cfg)
	if err := manifest.Validate(); err != nil {
		return nil, err
	}

	strategy := auth.NewPasswordGrantStrategy(auth.PasswordGrantStrategyConfig{
		TokenURL:     cfg.TokenURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Transport:    cfg.Transport,
		Now:          cfg.Now,
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

func buildManifest(cfg Config) core.Manifest {
	accountID := strings.TrimSpace(cfg.AccountID)
	return core.Manifest{
		ID:      ProviderID,
		BaseURL: strings.TrimSpace(cfg.BaseURL),
		Scheme:  core.AuthSchemePasswordGrant,
		Token:   core.DefaultTokenPlacement(),
		RateLimit: core.RateLimitSettings{
			MaxRequests: 60,
			Window:      time.Minute,
		},
		Resources: []core.ResourceDescriptor{
			{
				Name:          "domains",
				PathTemplate:  "/accounts/" + accountID + "/pbx/domains",
				CollectionKey: "data",
			},
			{
				// Route-by-ANI entries are addressed by their parameter
				// tuple, not by a resource id. All mutations go through
				// the collection path with query parameters.
				Name:            "vip-routes",
				PathTemplate:    "/accounts/" + accountID + "/pbx/route-by-ani",
				CollectionKey:   "data",
				OptionalFilters: []string{"domain", "ani", "dnis"},
				RequiredFields:  []string{"ani", "domain", "destination"},
				ParamsAsQuery:   true,
				MethodOverrides: map[core.OperationKind]string{
					core.OperationCreate: "PUT",
				},
			},
		},
	}
}

var _ core.Provider = (*Provider)(nil)
