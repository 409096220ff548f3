package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/alauppe/clawdbot/core"
)

// tokenEndpointResponse is the wire shape of an OAuth-style token reply.
// expires_in arrives as seconds.
type tokenEndpointResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
	ExpiresIn    int64  `json:"expires_in"`
}

// postTokenForm submits a form-encoded token request and decodes the reply.
// Token endpoint rejections come back as auth-category errors so callers
// treat them as terminal rather than retryable.
func postTokenForm(
	ctx context.Context,
	transport core.TransportAdapter,
	tokenURL string,
	headers map[string]string,
	form url.Values,
) (tokenEndpointResponse, error) {
	if transport == nil {
		return tokenEndpointResponse{}, fmt.Errorf("auth: transport adapter is required for token exchange")
	}
	tokenURL = strings.TrimSpace(tokenURL)
	if tokenURL == "" {
		return tokenEndpointResponse{}, fmt.Errorf("auth: token url is required")
	}

	merged := map[string]string{
		"Content-Type": "application/x-www-form-urlencoded",
		"Accept":       "application/json",
	}
	for key, value := range headers {
		merged[key] = value
	}

	res, err := transport.Do(ctx, core.TransportRequest{
		Method:  http.MethodPost,
		URL:     tokenURL,
		Headers: merged,
		Body:    []byte(form.Encode()),
	})
	if err != nil {
		return tokenEndpointResponse{}, err
	}
	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return tokenEndpointResponse{}, tokenEndpointError(tokenURL, res)
	}

	decoded := tokenEndpointResponse{}
	if err := json.Unmarshal(res.Body, &decoded); err != nil {
		return tokenEndpointResponse{}, goerrors.Wrap(err, goerrors.CategoryExternal, "auth: decode token response").
			WithTextCode(core.TextCodeUpstreamError)
	}
	if strings.TrimSpace(decoded.AccessToken) == "" {
		return tokenEndpointResponse{}, goerrors.New("auth: token response missing access_token", goerrors.CategoryExternal).
			WithTextCode(core.TextCodeUpstreamError)
	}
	return decoded, nil
}

func tokenEndpointError(tokenURL string, res core.TransportResponse) error {
	code := ""
	description := ""
	var payload map[string]any
	if json.Unmarshal(res.Body, &payload) == nil {
		code = readString(payload, "error")
		description = readString(payload, "error_description", "message")
	}

	metadata := map[string]any{
		"status_code": res.StatusCode,
		"token_url":   tokenURL,
	}
	if code != "" {
		metadata["provider_code"] = code
	}
	if description != "" {
		metadata["provider_message"] = description
	}

	message := fmt.Sprintf("auth: token endpoint returned status %d", res.StatusCode)
	if code != "" {
		message = fmt.Sprintf("%s (%s)", message, code)
	}

	category := goerrors.CategoryExternal
	textCode := core.TextCodeUpstreamError
	if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden ||
		res.StatusCode == http.StatusBadRequest {
		category = goerrors.CategoryAuth
		textCode = core.TextCodeAuthenticationFailed
	}
	return goerrors.New(message, category).
		WithCode(res.StatusCode).
		WithTextCode(textCode).
		WithMetadata(metadata)
}

// applyTokenResponse merges an exchange result into the credential record.
// A rotated refresh token replaces the stored one; an absent refresh token
// keeps it.
func applyTokenResponse(record core.CredentialRecord, res tokenEndpointResponse, now time.Time) core.CredentialRecord {
	out := record.Clone()
	out.AccessToken = strings.TrimSpace(res.AccessToken)
	if refresh := strings.TrimSpace(res.RefreshToken); refresh != "" {
		out.RefreshToken = refresh
	}
	if scope := strings.TrimSpace(res.Scope); scope != "" {
		out.Scope = scope
	}
	if res.ExpiresIn > 0 {
		expiresAt := now.UTC().Add(time.Duration(res.ExpiresIn) * time.Second)
		out.ExpiresAt = &expiresAt
	} else {
		// Without expires_in the previous deadline no longer describes the
		// new token; an already-past carryover would mark it dead on arrival.
		out.ExpiresAt = nil
	}
	out.UpdatedAt = now.UTC()
	return out
}
