package core

import (
	"context"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}

	cfg.Store.Kind = "etcd"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected unknown store kind to fail")
	}

	cfg = DefaultConfig()
	cfg.ServiceName = " "
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected blank service name to fail")
	}
}

func TestServiceConfigLayering(t *testing.T) {
	loader := staticRawConfigLoader{Values: map[string]any{
		"store": map[string]any{"kind": "memory"},
		"transport": map[string]any{
			"timeout": 5 * time.Second,
		},
	}}

	runtime := Config{Token: TokenConfig{RefreshMaxAttempts: 7}}

	service, err := NewService(runtime,
		WithConfigProvider(NewCfgxConfigProvider(loader)),
		WithCredentialStore(NewMemoryCredentialStore()),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	resolved := service.Config()
	if resolved.Store.Kind != "memory" {
		t.Fatalf("expected loaded store kind, got %q", resolved.Store.Kind)
	}
	if resolved.Transport.Timeout != 5*time.Second {
		t.Fatalf("expected loaded timeout, got %s", resolved.Transport.Timeout)
	}
	if resolved.Token.RefreshMaxAttempts != 7 {
		t.Fatalf("runtime layer must win, got %d", resolved.Token.RefreshMaxAttempts)
	}
	if resolved.Token.RefreshLeadWindow != time.Minute {
		t.Fatalf("defaults must fill unset values, got %s", resolved.Token.RefreshLeadWindow)
	}
}

func TestCfgxConfigProviderValidatesLoadedConfig(t *testing.T) {
	loader := staticRawConfigLoader{Values: map[string]any{
		"store": map[string]any{"kind": "etcd"},
	}}

	provider := NewCfgxConfigProvider(loader)
	if _, err := provider.Load(context.Background(), DefaultConfig()); err == nil {
		t.Fatalf("expected invalid store kind to fail load")
	}
}

func TestServiceDependenciesExposeWiring(t *testing.T) {
	store := NewMemoryCredentialStore()
	service := newTestService(t, WithCredentialStore(store))

	deps := service.Dependencies()
	if deps.CredentialStore != CredentialStore(store) {
		t.Fatalf("expected injected credential store in dependencies")
	}
	if deps.Registry == nil {
		t.Fatalf("expected default registry")
	}
	if deps.CredentialCodec == nil {
		t.Fatalf("expected default credential codec")
	}
}
