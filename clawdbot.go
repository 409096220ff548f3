package clawdbot

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	filestore "github.com/alauppe/clawdbot/store/file"
	sqlstore "github.com/alauppe/clawdbot/store/sql"

	"github.com/alauppe/clawdbot/core"
	"github.com/alauppe/clawdbot/ratelimit"
	"github.com/alauppe/clawdbot/transport"
)

// Client bundles the configured service with the rolling-window limiter
// so provider registration can seed per-provider budgets from manifests.
type Client struct {
	*core.Service
	limiter *ratelimit.WindowLimiter
}

// New wires the default stack: REST transport registry, adaptive
// rate-limit policy layered behind a rolling-window limiter, and a
// credential store picked from config. Callers needing SQL persistence
// pass core.WithRepositoryFactory or core.WithCredentialStore instead.
func New(cfg core.Config, opts ...core.Option) (*Client, error) {
	limiter := ratelimit.NewWindowLimiter()
	policy := ratelimit.PolicyChain{
		limiter,
		ratelimit.NewAdaptivePolicy(ratelimit.NewMemoryStateStore()),
	}

	baseOpts := []core.Option{
		core.WithTransportResolver(transport.NewDefaultRegistry()),
		core.WithRateLimitPolicy(policy),
	}

	store, err := buildCredentialStore(cfg)
	if err != nil {
		return nil, err
	}
	if store != nil {
		baseOpts = append(baseOpts, core.WithCredentialStore(store))
	}

	service, err := core.NewService(cfg, append(baseOpts, opts...)...)
	if err != nil {
		return nil, err
	}
	return &Client{Service: service, limiter: limiter}, nil
}

// RegisterProvider registers the provider and seeds the rolling-window
// budget its manifest declares.
func (c *Client) RegisterProvider(provider core.Provider) error {
	if c == nil || c.Service == nil {
		return fmt.Errorf("clawdbot: client is not configured")
	}
	if err := c.Service.RegisterProvider(provider); err != nil {
		return err
	}
	manifest := provider.Manifest()
	if manifest.RateLimit.MaxRequests > 0 && manifest.RateLimit.Window > 0 {
		c.limiter.SetLimit(manifest.ID, manifest.RateLimit.MaxRequests, manifest.RateLimit.Window)
	}
	return nil
}

// Facade builds the command/query facade over this client's service.
func (c *Client) Facade() (*Facade, error) {
	if c == nil || c.Service == nil {
		return nil, fmt.Errorf("clawdbot: client is not configured")
	}
	return NewFacade(c.Service)
}

func buildCredentialStore(cfg core.Config) (core.CredentialStore, error) {
	switch strings.TrimSpace(strings.ToLower(cfg.Store.Kind)) {
	case "", "file":
		dir := strings.TrimSpace(cfg.Store.CredentialDir)
		if dir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("clawdbot: cannot resolve credential dir: %w", err)
			}
			dir = filepath.Join(home, ".config", "clawdbot", "credentials")
		}
		return filestore.NewStore(dir)
	case "memory":
		return core.NewMemoryCredentialStore(), nil
	case "sql":
		dsn := strings.TrimSpace(cfg.Store.DSN)
		if dsn == "" {
			// The caller supplies the database through
			// core.WithRepositoryFactory and core.WithPersistenceClient.
			return nil, nil
		}
		driver := strings.TrimSpace(cfg.Store.Driver)
		if driver == "" {
			driver = sqlstore.DriverPostgres
		}
		client, err := sqlstore.Open(sqlstore.ConnectConfig{Driver: driver, DSN: dsn})
		if err != nil {
			return nil, err
		}
		factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
		if err != nil {
			return nil, err
		}
		return factory.CredentialStore(), nil
	default:
		return nil, fmt.Errorf("clawdbot: unknown store kind %q", cfg.Store.Kind)
	}
}
