package clawdbot

import "github.com/alauppe/clawdbot/core"

type Config = core.Config

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies

type CredentialRecord = core.CredentialRecord
type CredentialStore = core.CredentialStore
type AuthSchemeKind = core.AuthSchemeKind
type BearerToken = core.BearerToken
type TokenStatus = core.TokenStatus
type Manifest = core.Manifest
type ResourceDescriptor = core.ResourceDescriptor
type NormalizedResult = core.NormalizedResult
type RequestSpec = core.RequestSpec
type Provider = core.Provider
type AuthStrategy = core.AuthStrategy
type TransportAdapter = core.TransportAdapter
type TransportResolver = core.TransportResolver
type RateLimitPolicy = core.RateLimitPolicy
type ResponseNormalizer = core.ResponseNormalizer

const (
	AuthSchemePasswordGrant = core.AuthSchemePasswordGrant
	AuthSchemeRefreshGrant  = core.AuthSchemeRefreshGrant
	AuthSchemeStaticKey     = core.AuthSchemeStaticKey
	AuthSchemeExternalToken = core.AuthSchemeExternalToken
)

var (
	WithLogger             = core.WithLogger
	WithLoggerProvider     = core.WithLoggerProvider
	WithMetricsRecorder    = core.WithMetricsRecorder
	WithErrorFactory       = core.WithErrorFactory
	WithErrorMapper        = core.WithErrorMapper
	WithPersistenceClient  = core.WithPersistenceClient
	WithRepositoryFactory  = core.WithRepositoryFactory
	WithConfigProvider     = core.WithConfigProvider
	WithOptionsResolver    = core.WithOptionsResolver
	WithTransportResolver  = core.WithTransportResolver
	WithRateLimitPolicy    = core.WithRateLimitPolicy
	WithRegistry           = core.WithRegistry
	WithCredentialStore    = core.WithCredentialStore
	WithCredentialCodec    = core.WithCredentialCodec
	WithResponseNormalizer = core.WithResponseNormalizer
	WithClock              = core.WithClock
	WithSleeper            = core.WithSleeper
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}
