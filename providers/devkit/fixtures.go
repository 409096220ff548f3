package devkit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alauppe/clawdbot/core"
)

// StaticProvider pairs an arbitrary manifest with an arbitrary strategy.
// Tests use it to exercise the service runtime without a real upstream.
type StaticProvider struct {
	ProviderManifest core.Manifest
	AuthStrategy     core.AuthStrategy
	Normalizer       core.ResponseNormalizer
}

func (p *StaticProvider) ID() string {
	return p.ProviderManifest.ID
}

func (p *StaticProvider) Manifest() core.Manifest {
	return p.ProviderManifest
}

func (p *StaticProvider) Strategy() core.AuthStrategy {
	return p.AuthStrategy
}

func (p *StaticProvider) Normalize(ctx context.Context, descriptor core.ResourceDescriptor, res core.TransportResponse) (core.NormalizedResult, error) {
	if p.Normalizer == nil {
		return core.DefaultNormalizer{}.Normalize(ctx, descriptor, res)
	}
	return p.Normalizer.Normalize(ctx, descriptor, res)
}

// NewManifestFixture returns a minimal valid password-grant manifest with
// a single "widgets" resource.
func NewManifestFixture(providerID string) core.Manifest {
	return core.Manifest{
		ID:      providerID,
		BaseURL: "https://api." + providerID + ".test",
		Scheme:  core.AuthSchemePasswordGrant,
		Token:   core.DefaultTokenPlacement(),
		Resources: []core.ResourceDescriptor{
			{
				Name:          "widgets",
				PathTemplate:  "/widgets",
				CollectionKey: "data",
			},
		},
	}
}

// NewCredentialFixture returns a stored credential for the given scheme
// with an access token that expires one hour after issuedAt.
func NewCredentialFixture(providerID string, scheme core.AuthSchemeKind, issuedAt time.Time) core.CredentialRecord {
	expiresAt := issuedAt.Add(time.Hour)
	record := core.CredentialRecord{
		ProviderID: providerID,
		Scheme:     scheme,
		UpdatedAt:  issuedAt,
	}
	switch scheme {
	case core.AuthSchemePasswordGrant:
		record.ClientID = "client-fixture"
		record.ClientSecret = "secret-fixture"
		record.Username = "user-fixture"
		record.Password = "password-fixture"
		record.AccessToken = "access-fixture"
		record.RefreshToken = "refresh-fixture"
		record.ExpiresAt = &expiresAt
	case core.AuthSchemeRefreshGrant:
		record.ClientID = "client-fixture"
		record.ClientSecret = "secret-fixture"
		record.AccessToken = "access-fixture"
		record.RefreshToken = "refresh-fixture"
		record.ExpiresAt = &expiresAt
	case core.AuthSchemeStaticKey:
		record.APIKey = "api-key-fixture"
	case core.AuthSchemeExternalToken:
		record.AccessToken = "external-token-fixture"
	}
	return record
}

// TokenResponseScript builds a successful token endpoint exchange.
func TokenResponseScript(accessToken, refreshToken string, expiresIn int64) TransportScript {
	body, _ := json.Marshal(map[string]any{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"token_type":    "Bearer",
		"expires_in":    expiresIn,
	})
	return TransportScript{
		Response: core.TransportResponse{
			StatusCode: 200,
			Headers:    map[string]string{"content-type": "application/json"},
			Body:       body,
		},
	}
}

// JSONScript builds a scripted JSON response from any marshalable value.
func JSONScript(statusCode int, payload any) TransportScript {
	body, err := json.Marshal(payload)
	if err != nil {
		panic(fmt.Sprintf("devkit: unmarshalable script payload: %v", err))
	}
	return TransportScript{
		Response: core.TransportResponse{
			StatusCode: statusCode,
			Headers:    map[string]string{"content-type": "application/json"},
			Body:       body,
		},
	}
}

var (
	_ core.Provider           = (*StaticProvider)(nil)
	_ core.ResponseNormalizer = (*StaticProvider)(nil)
)
