package core

import (
	"fmt"
	"strings"
	"time"
)

type StoreConfig struct {
	Kind          string `koanf:"kind" mapstructure:"kind"`
	CredentialDir string `koanf:"credential_dir" mapstructure:"credential_dir"`
	Driver        string `koanf:"driver" mapstructure:"driver"`
	DSN           string `koanf:"dsn" mapstructure:"dsn"`
}

type TransportConfig struct {
	Timeout              time.Duration `koanf:"timeout" mapstructure:"timeout"`
	MaxResponseBodyBytes int64         `koanf:"max_response_body_bytes" mapstructure:"max_response_body_bytes"`
}

type TokenConfig struct {
	RefreshLeadWindow   time.Duration `koanf:"refresh_lead_window" mapstructure:"refresh_lead_window"`
	ExpiringSoonWindow  time.Duration `koanf:"expiring_soon_window" mapstructure:"expiring_soon_window"`
	RefreshMaxAttempts  int           `koanf:"refresh_max_attempts" mapstructure:"refresh_max_attempts"`
	RefreshInitialDelay time.Duration `koanf:"refresh_initial_delay" mapstructure:"refresh_initial_delay"`
	RefreshMaxDelay     time.Duration `koanf:"refresh_max_delay" mapstructure:"refresh_max_delay"`
}

type Config struct {
	ServiceName string          `koanf:"service_name" mapstructure:"service_name"`
	Store       StoreConfig     `koanf:"store" mapstructure:"store"`
	Transport   TransportConfig `koanf:"transport" mapstructure:"transport"`
	Token       TokenConfig     `koanf:"token" mapstructure:"token"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "skills",
		Store: StoreConfig{
			Kind: "file",
		},
		Transport: TransportConfig{
			Timeout:              30 * time.Second,
			MaxResponseBodyBytes: 10 << 20,
		},
		Token: TokenConfig{
			RefreshLeadWindow:   time.Minute,
			ExpiringSoonWindow:  5 * time.Minute,
			RefreshMaxAttempts:  3,
			RefreshInitialDelay: 500 * time.Millisecond,
			RefreshMaxDelay:     10 * time.Second,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	switch strings.TrimSpace(strings.ToLower(c.Store.Kind)) {
	case "", "file", "sql", "memory":
	default:
		return fmt.Errorf("core: unknown store kind %q", c.Store.Kind)
	}
	if c.Transport.Timeout < 0 {
		return fmt.Errorf("core: transport timeout must not be negative")
	}
	if c.Token.RefreshLeadWindow < 0 || c.Token.ExpiringSoonWindow < 0 {
		return fmt.Errorf("core: token windows must not be negative")
	}
	return nil
}

func (c Config) normalized() Config {
	defaults := DefaultConfig()
	out := c
	if strings.TrimSpace(out.ServiceName) == "" {
		out.ServiceName = defaults.ServiceName
	}
	if strings.TrimSpace(out.Store.Kind) == "" {
		out.Store.Kind = defaults.Store.Kind
	}
	if out.Transport.Timeout <= 0 {
		out.Transport.Timeout = defaults.Transport.Timeout
	}
	if out.Transport.MaxResponseBodyBytes <= 0 {
		out.Transport.MaxResponseBodyBytes = defaults.Transport.MaxResponseBodyBytes
	}
	if out.Token.RefreshLeadWindow <= 0 {
		out.Token.RefreshLeadWindow = defaults.Token.RefreshLeadWindow
	}
	if out.Token.ExpiringSoonWindow <= 0 {
		out.Token.ExpiringSoonWindow = defaults.Token.ExpiringSoonWindow
	}
	if out.Token.RefreshMaxAttempts <= 0 {
		out.Token.RefreshMaxAttempts = defaults.Token.RefreshMaxAttempts
	}
	if out.Token.RefreshInitialDelay <= 0 {
		out.Token.RefreshInitialDelay = defaults.Token.RefreshInitialDelay
	}
	if out.Token.RefreshMaxDelay <= 0 {
		out.Token.RefreshMaxDelay = defaults.Token.RefreshMaxDelay
	}
	return out
}
