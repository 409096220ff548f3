package devkit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alauppe/clawdbot/core"
)

// ValidateProviderConformance checks the contract every provider must
// honor before it can be registered: a valid manifest, a strategy whose
// scheme matches the manifest, and resolvable resources.
func ValidateProviderConformance(provider core.Provider) error {
	if provider == nil {
		return fmt.Errorf("devkit: provider is required")
	}
	if strings.TrimSpace(provider.ID()) == "" {
		return fmt.Errorf("devkit: provider id is required")
	}

	manifest := provider.Manifest()
	if err := manifest.Validate(); err != nil {
		return err
	}
	if manifest.ID != provider.ID() {
		return fmt.Errorf("devkit: manifest id %q does not match provider id %q", manifest.ID, provider.ID())
	}

	strategy := provider.Strategy()
	if strategy == nil {
		return fmt.Errorf("devkit: provider %q has no auth strategy", provider.ID())
	}
	if strategy.Scheme() != manifest.Scheme {
		return fmt.Errorf("devkit: strategy scheme %q does not match manifest scheme %q",
			strategy.Scheme(), manifest.Scheme)
	}

	for _, descriptor := range manifest.Resources {
		resolved, ok := manifest.Resource(descriptor.Name)
		if !ok {
			return fmt.Errorf("devkit: resource %q is not resolvable on %q", descriptor.Name, provider.ID())
		}
		if resolved.Name != descriptor.Name {
			return fmt.Errorf("devkit: resource lookup for %q returned %q", descriptor.Name, resolved.Name)
		}
	}
	return nil
}

// ValidateTransportAdapterConformance checks an adapter can be driven
// through the TransportAdapter contract.
func ValidateTransportAdapterConformance(
	ctx context.Context,
	adapter core.TransportAdapter,
	request core.TransportRequest,
) error {
	if adapter == nil {
		return fmt.Errorf("devkit: transport adapter is required")
	}
	if strings.TrimSpace(adapter.Kind()) == "" {
		return fmt.Errorf("devkit: transport adapter kind is required")
	}
	_, err := adapter.Do(ctx, request)
	return err
}

// ValidateCredentialStoreConformance runs a save/load/delete cycle and
// asserts post-delete loads report the credential missing.
func ValidateCredentialStoreConformance(
	ctx context.Context,
	store core.CredentialStore,
	record core.CredentialRecord,
) error {
	if store == nil {
		return fmt.Errorf("devkit: credential store is required")
	}
	if err := store.Save(ctx, record); err != nil {
		return err
	}
	loaded, err := store.Load(ctx, record.ProviderID)
	if err != nil {
		return err
	}
	if loaded.AccessToken != record.AccessToken {
		return fmt.Errorf("devkit: loaded access token does not match saved value")
	}
	if err := store.Delete(ctx, record.ProviderID); err != nil {
		return err
	}
	if _, err := store.Load(ctx, record.ProviderID); !errors.Is(err, core.ErrCredentialNotFound) {
		return fmt.Errorf("devkit: expected missing credential after delete, got %v", err)
	}
	return nil
}
