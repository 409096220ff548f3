package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	CredentialPayloadFormatJSONV1 = "skill_credential_json"
	CredentialPayloadVersionV1    = 1
)

// CredentialCodec serializes credential records for storage backends that
// persist opaque payloads.
type CredentialCodec interface {
	Format() string
	Version() int
	Encode(record CredentialRecord) ([]byte, error)
	Decode(payload []byte) (CredentialRecord, error)
}

type JSONCredentialCodec struct{}

func (JSONCredentialCodec) Format() string {
	return CredentialPayloadFormatJSONV1
}

func (JSONCredentialCodec) Version() int {
	return CredentialPayloadVersionV1
}

type jsonCredentialPayload struct {
	ProviderID   string         `json:"provider_id"`
	Scheme       string         `json:"scheme"`
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

func (JSONCredentialCodec) Encode(record CredentialRecord) ([]byte, error) {
	payload := jsonCredentialPayload{
		ProviderID:   strings.TrimSpace(record.ProviderID),
		Scheme:       string(record.Scheme),
		ClientID:     strings.TrimSpace(record.ClientID),
		ClientSecret: record.ClientSecret,
		Username:     strings.TrimSpace(record.Username),
		Password:     record.Password,
		APIKey:       record.APIKey,
		Scope:        strings.TrimSpace(record.Scope),
		AccessToken:  record.AccessToken,
		RefreshToken: record.RefreshToken,
		ExpiresAt:    cloneTimePointer(record.ExpiresAt),
		UpdatedAt:    record.UpdatedAt.UTC(),
		Metadata:     copyAnyMap(record.Metadata),
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("core: encode credential payload: %w", err)
	}
	return encoded, nil
}

func (JSONCredentialCodec) Decode(payload []byte) (CredentialRecord, error) {
	if len(payload) == 0 {
		return CredentialRecord{}, fmt.Errorf("core: credential payload is empty")
	}
	decoded := jsonCredentialPayload{}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return CredentialRecord{}, fmt.Errorf("core: decode credential payload: %w", err)
	}
	return CredentialRecord{
		ProviderID:   strings.TrimSpace(decoded.ProviderID),
		Scheme:       AuthSchemeKind(strings.TrimSpace(decoded.Scheme)),
		ClientID:     strings.TrimSpace(decoded.ClientID),
		ClientSecret: decoded.ClientSecret,
		Username:     strings.TrimSpace(decoded.Username),
		Password:     decoded.Password,
		APIKey:       decoded.APIKey,
		Scope:        strings.TrimSpace(decoded.Scope),
		AccessToken:  decoded.AccessToken,
		RefreshToken: decoded.RefreshToken,
		ExpiresAt:    cloneTimePointer(decoded.ExpiresAt),
		UpdatedAt:    decoded.UpdatedAt.UTC(),
		Metadata:     copyAnyMap(decoded.Metadata),
	}, nil
}
