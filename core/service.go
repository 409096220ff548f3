package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	"golang.org/x/sync/singleflight"
)

var ErrProviderNotFound = errors.New("core: provider not found")

// Service is the authenticated client core: it resolves providers, keeps
// credentials fresh, paces outbound calls, and shapes results.
type Service struct {
	config            Config
	logger            Logger
	loggerProvider    LoggerProvider
	metricsRecorder   MetricsRecorder
	errorFactory      ErrorFactory
	errorMapper       ErrorMapper
	persistenceClient any
	repositoryFactory any
	configProvider    ConfigProvider
	optionsResolver   OptionsResolver
	transportResolver TransportResolver
	rateLimitPolicy   RateLimitPolicy
	registry          Registry
	credentialStore   CredentialStore
	credentialCodec   CredentialCodec
	normalizer        ResponseNormalizer
	now               func() time.Time
	sleep             func(ctx context.Context, delay time.Duration) error

	refreshGroup singleflight.Group

	transportMu sync.Mutex
	transports  map[string]TransportAdapter
}

type ServiceDependencies struct {
	Logger            Logger
	LoggerProvider    LoggerProvider
	MetricsRecorder   MetricsRecorder
	ErrorFactory      ErrorFactory
	ErrorMapper       ErrorMapper
	PersistenceClient any
	RepositoryFactory any
	ConfigProvider    ConfigProvider
	OptionsResolver   OptionsResolver
	TransportResolver TransportResolver
	RateLimitPolicy   RateLimitPolicy
	Registry          Registry
	CredentialStore   CredentialStore
	CredentialCodec   CredentialCodec
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("skills", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("skills"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.registry == nil {
		builder.registry = NewProviderRegistry()
	}
	if builder.credentialCodec == nil {
		builder.credentialCodec = JSONCredentialCodec{}
	}
	if builder.clock == nil {
		builder.clock = time.Now
	}
	if builder.sleep == nil {
		builder.sleep = waitWithContext
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig = finalConfig.normalized()

	if builder.credentialStore == nil && builder.repositoryFactory != nil {
		if storeFactory, ok := builder.repositoryFactory.(RepositoryStoreFactory); ok {
			store, buildErr := storeFactory.BuildStores(builder.persistenceClient)
			if buildErr != nil {
				return nil, mapBuildError(builder.errorMapper, buildErr)
			}
			builder.credentialStore = store
		}
	}
	if builder.credentialStore == nil {
		builder.credentialStore = NewMemoryCredentialStore()
	}

	return &Service{
		config:            finalConfig,
		logger:            logger,
		loggerProvider:    provider,
		metricsRecorder:   builder.metricsRecorder,
		errorFactory:      builder.errorFactory,
		errorMapper:       builder.errorMapper,
		persistenceClient: builder.persistenceClient,
		repositoryFactory: builder.repositoryFactory,
		configProvider:    builder.configProvider,
		optionsResolver:   builder.optionsResolver,
		transportResolver: builder.transportResolver,
		rateLimitPolicy:   builder.rateLimitPolicy,
		registry:          builder.registry,
		credentialStore:   builder.credentialStore,
		credentialCodec:   builder.credentialCodec,
		normalizer:        builder.normalizer,
		now:               builder.clock,
		sleep:             builder.sleep,
		transports:        map[string]TransportAdapter{},
	}, nil
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return NewService(cfg, opts...)
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Registry() Registry {
	if s == nil {
		return nil
	}
	return s.registry
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:            s.logger,
		LoggerProvider:    s.loggerProvider,
		MetricsRecorder:   s.metricsRecorder,
		ErrorFactory:      s.errorFactory,
		ErrorMapper:       s.errorMapper,
		PersistenceClient: s.persistenceClient,
		RepositoryFactory: s.repositoryFactory,
		ConfigProvider:    s.configProvider,
		OptionsResolver:   s.optionsResolver,
		TransportResolver: s.transportResolver,
		RateLimitPolicy:   s.rateLimitPolicy,
		Registry:          s.registry,
		CredentialStore:   s.credentialStore,
		CredentialCodec:   s.credentialCodec,
	}
}

// RegisterProvider adds a provider to the registry during wiring.
func (s *Service) RegisterProvider(provider Provider) error {
	if s == nil || s.registry == nil {
		return fmt.Errorf("core: registry unavailable")
	}
	return s.mapError(s.registry.Register(provider))
}

// Authenticate stores long-lived inputs for a provider and, for grant
// schemes, performs the initial token exchange before persisting.
func (s *Service) Authenticate(ctx context.Context, record CredentialRecord) (status TokenStatus, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"provider_id": record.ProviderID,
		"scheme":      string(record.Scheme),
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "authenticate", err, fields)
	}()

	provider, err := s.resolveProvider(record.ProviderID)
	if err != nil {
		return TokenStatus{}, err
	}
	manifest := provider.Manifest()
	if record.Scheme == "" {
		record.Scheme = manifest.Scheme
	}
	if record.Scheme != manifest.Scheme {
		err = s.mapError(goerrors.New(
			fmt.Sprintf("provider %q uses scheme %q, got %q", manifest.ID, manifest.Scheme, record.Scheme),
			goerrors.CategoryBadInput,
		).WithTextCode(TextCodeInvalidRequest))
		return TokenStatus{}, err
	}
	if err = record.Validate(); err != nil {
		// Initial input may lack a token pair; the exchange below fills it.
		if !record.Scheme.Refreshable() {
			err = s.mapError(goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid credential input").
				WithTextCode(TextCodeInvalidRequest))
			return TokenStatus{}, err
		}
	}

	if record.Scheme.Refreshable() {
		strategy := provider.Strategy()
		if strategy == nil {
			err = s.mapError(fmt.Errorf("core: provider %q has no auth strategy", manifest.ID))
			return TokenStatus{}, err
		}
		record, err = s.runAuthExchange(ctx, strategy, record)
		if err != nil {
			err = s.mapError(err)
			return TokenStatus{}, err
		}
	}

	record.ProviderID = manifest.ID
	record.UpdatedAt = s.now().UTC()
	if err = record.Validate(); err != nil {
		err = s.mapError(err)
		return TokenStatus{}, err
	}
	if err = s.credentialStore.Save(ctx, record); err != nil {
		err = s.mapError(wrapStorageError(err))
		return TokenStatus{}, err
	}
	return s.statusForRecord(record), nil
}

// Status reports the stored credential state without touching the network.
func (s *Service) Status(ctx context.Context, providerID string) (status TokenStatus, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"provider_id": providerID}
	defer func() {
		s.observeOperation(ctx, startedAt, "token_status", err, fields)
	}()

	provider, err := s.resolveProvider(providerID)
	if err != nil {
		return TokenStatus{}, err
	}
	record, loadErr := s.credentialStore.Load(ctx, provider.ID())
	if loadErr != nil {
		if errors.Is(loadErr, ErrCredentialNotFound) {
			return TokenStatus{
				ProviderID:  provider.ID(),
				Scheme:      provider.Manifest().Scheme,
				Refreshable: provider.Manifest().Scheme.Refreshable(),
			}, nil
		}
		err = s.mapError(wrapStorageError(loadErr))
		return TokenStatus{}, err
	}
	return s.statusForRecord(record), nil
}

// Logout removes the stored credential. Missing credentials are not an
// error; logout is idempotent.
func (s *Service) Logout(ctx context.Context, providerID string) (err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"provider_id": providerID}
	defer func() {
		s.observeOperation(ctx, startedAt, "logout", err, fields)
	}()

	provider, err := s.resolveProvider(providerID)
	if err != nil {
		return err
	}
	if deleteErr := s.credentialStore.Delete(ctx, provider.ID()); deleteErr != nil {
		if errors.Is(deleteErr, ErrCredentialNotFound) {
			return nil
		}
		err = s.mapError(wrapStorageError(deleteErr))
		return err
	}
	return nil
}

func (s *Service) statusForRecord(record CredentialRecord) TokenStatus {
	status := TokenStatus{
		ProviderID:  record.ProviderID,
		Scheme:      record.Scheme,
		Refreshable: record.Scheme.Refreshable(),
		ExpiresAt:   cloneTimePointer(record.ExpiresAt),
	}
	switch record.Scheme {
	case AuthSchemeStaticKey:
		status.Authenticated = strings.TrimSpace(record.APIKey) != ""
	default:
		status.Authenticated = strings.TrimSpace(record.AccessToken) != ""
	}
	if status.ExpiresAt != nil {
		status.ExpiresIn = status.ExpiresAt.Sub(s.now().UTC())
		if status.ExpiresIn < 0 {
			status.ExpiresIn = 0
			status.Authenticated = status.Refreshable && strings.TrimSpace(record.RefreshToken) != ""
		}
	}
	return status
}

func (s *Service) resolveProvider(providerID string) (Provider, error) {
	if s == nil || s.registry == nil {
		return nil, s.mapError(fmt.Errorf("core: registry unavailable"))
	}
	providerID = strings.TrimSpace(providerID)
	provider, ok := s.registry.Get(providerID)
	if ok {
		return provider, nil
	}
	wrapped := s.errorFactory(
		fmt.Sprintf("provider %q is not registered", providerID),
		goerrors.CategoryNotFound,
	).WithTextCode(TextCodeProviderNotFound)
	return nil, wrapped.WithMetadata(map[string]any{"provider_id": providerID})
}

func (s *Service) resolveTransport(kind string) (TransportAdapter, error) {
	if s == nil {
		return nil, fmt.Errorf("core: service unavailable")
	}
	kind = strings.TrimSpace(strings.ToLower(kind))
	if kind == "" {
		kind = "rest"
	}
	s.transportMu.Lock()
	defer s.transportMu.Unlock()
	if adapter, ok := s.transports[kind]; ok {
		return adapter, nil
	}
	if s.transportResolver == nil {
		return nil, fmt.Errorf("core: transport resolver unavailable")
	}
	adapter, err := s.transportResolver.Build(kind, map[string]any{
		"timeout":                 s.config.Transport.Timeout,
		"max_response_body_bytes": s.config.Transport.MaxResponseBodyBytes,
	})
	if err != nil {
		return nil, err
	}
	s.transports[kind] = adapter
	return adapter, nil
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func wrapStorageError(err error) error {
	if err == nil {
		return nil
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return err
	}
	if errors.Is(err, ErrCredentialNotFound) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, "credential storage failed").
		WithTextCode(TextCodeStorageError)
}
