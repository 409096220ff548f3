package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// Execute runs a single authenticated request against a provider: token
// placement, rate-limit admission, and the retry ladder for 429, 401, and
// upstream failures all happen here.
func (s *Service) Execute(ctx context.Context, providerID string, spec RequestSpec) (res TransportResponse, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"provider_id": providerID,
		"method":      spec.Method,
		"path":        spec.PathTemplate,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "execute_request", err, fields)
	}()

	provider, err := s.resolveProvider(providerID)
	if err != nil {
		return TransportResponse{}, err
	}
	res, err = s.executeForProvider(ctx, provider, spec)
	if err != nil {
		err = s.mapError(err)
		return TransportResponse{}, err
	}
	return res, nil
}

func (s *Service) executeForProvider(ctx context.Context, provider Provider, spec RequestSpec) (TransportResponse, error) {
	manifest := provider.Manifest()
	settings := manifest.RateLimit.Normalize()

	token, err := s.validTokenForProvider(ctx, provider, false)
	if err != nil {
		return TransportResponse{}, err
	}

	req, err := s.buildTransportRequest(manifest, spec, token)
	if err != nil {
		return TransportResponse{}, err
	}
	adapter, err := s.resolveTransport("rest")
	if err != nil {
		return TransportResponse{}, err
	}

	key := RateLimitKey{ProviderID: manifest.ID, BucketKey: bucketKeyForSpec(spec)}

	rateAttempts := 0
	upstreamAttempts := 0
	retriedAuth := false
	for {
		if s.rateLimitPolicy != nil {
			if gateErr := s.rateLimitPolicy.BeforeCall(ctx, key); gateErr != nil {
				var hinted retryHinter
				if errors.As(gateErr, &hinted) {
					rateAttempts++
					if rateAttempts > settings.MaxRetries {
						return TransportResponse{}, rateLimitedError(manifest.ID, hinted.RetryAfterHint(), gateErr)
					}
					delay := hinted.RetryAfterHint()
					if delay <= 0 {
						delay = settings.BackoffFor(rateAttempts)
					}
					if waitErr := s.sleep(ctx, delay); waitErr != nil {
						return TransportResponse{}, waitErr
					}
					continue
				}
				return TransportResponse{}, gateErr
			}
		}

		res, doErr := adapter.Do(ctx, req.Clone())

		if s.rateLimitPolicy != nil {
			meta := ProviderResponseMeta{StatusCode: res.StatusCode, Headers: res.Headers, Err: doErr}
			_ = s.rateLimitPolicy.AfterCall(ctx, key, meta)
		}

		if doErr != nil {
			if isContextCancellation(doErr) {
				return TransportResponse{}, doErr
			}
			upstreamAttempts++
			if upstreamAttempts > settings.UpstreamRetries {
				return TransportResponse{}, upstreamError(manifest.ID, 0, doErr)
			}
			if waitErr := s.sleep(ctx, settings.UpstreamBackoff); waitErr != nil {
				return TransportResponse{}, waitErr
			}
			continue
		}

		switch {
		case res.StatusCode == http.StatusUnauthorized:
			if retriedAuth || !manifest.Scheme.Refreshable() {
				return TransportResponse{}, authenticationFailedError(manifest.ID,
					fmt.Errorf("core: upstream rejected credentials with status 401"))
			}
			retriedAuth = true
			token, err = s.validTokenForProvider(ctx, provider, true)
			if err != nil {
				return TransportResponse{}, err
			}
			req, err = s.buildTransportRequest(manifest, spec, token)
			if err != nil {
				return TransportResponse{}, err
			}
			continue

		case res.StatusCode == http.StatusTooManyRequests:
			rateAttempts++
			retryAfter := parseRetryAfterHeader(headerValue(res.Headers, "Retry-After"), s.now())
			if rateAttempts > settings.MaxRetries {
				return TransportResponse{}, rateLimitedError(manifest.ID, retryAfter, nil)
			}
			delay := retryAfter
			if delay <= 0 {
				delay = settings.BackoffFor(rateAttempts)
			}
			if waitErr := s.sleep(ctx, delay); waitErr != nil {
				return TransportResponse{}, waitErr
			}
			continue

		case res.StatusCode >= http.StatusInternalServerError:
			upstreamAttempts++
			if upstreamAttempts > settings.UpstreamRetries {
				return TransportResponse{}, upstreamError(manifest.ID, res.StatusCode, nil)
			}
			if waitErr := s.sleep(ctx, settings.UpstreamBackoff); waitErr != nil {
				return TransportResponse{}, waitErr
			}
			continue
		}

		return res, nil
	}
}

func (s *Service) buildTransportRequest(manifest Manifest, spec RequestSpec, token BearerToken) (TransportRequest, error) {
	path, err := spec.ExpandPath()
	if err != nil {
		return TransportRequest{}, goerrors.Wrap(err, goerrors.CategoryBadInput, "request path is incomplete").
			WithTextCode(TextCodeInvalidRequest)
	}

	query := copyStringMap(manifest.StaticQuery)
	for key, value := range spec.Query {
		query[key] = value
	}
	headers := copyStringMap(spec.Headers)

	placement := manifest.Token
	if strings.TrimSpace(placement.Header) == "" && strings.TrimSpace(placement.QueryParam) == "" {
		placement = DefaultTokenPlacement()
	}
	if strings.TrimSpace(placement.QueryParam) != "" {
		query[placement.QueryParam] = token.Value
	} else {
		headers[placement.Header] = placement.Prefix + token.Value
	}

	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = s.config.Transport.Timeout
	}

	return TransportRequest{
		Method:               spec.Method,
		URL:                  joinBaseURL(manifest.BaseURL, path),
		Headers:              headers,
		Query:                query,
		Body:                 append([]byte(nil), spec.Body...),
		Timeout:              timeout,
		MaxResponseBodyBytes: s.config.Transport.MaxResponseBodyBytes,
	}, nil
}

func bucketKeyForSpec(spec RequestSpec) string {
	if key := strings.TrimSpace(spec.BucketKey); key != "" {
		return key
	}
	return "default"
}

func joinBaseURL(base string, path string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	path = strings.TrimSpace(path)
	if path == "" {
		return base
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

func rateLimitedError(providerID string, retryAfter time.Duration, source error) error {
	message := fmt.Sprintf("rate limit retries exhausted for provider %q", providerID)
	metadata := map[string]any{"provider_id": providerID}
	if retryAfter > 0 {
		metadata["retry_after_ms"] = retryAfter.Milliseconds()
	}
	if source != nil {
		return goerrors.Wrap(source, goerrors.CategoryRateLimit, message).
			WithTextCode(TextCodeRateLimited).
			WithMetadata(metadata)
	}
	return goerrors.New(message, goerrors.CategoryRateLimit).
		WithTextCode(TextCodeRateLimited).
		WithMetadata(metadata)
}

func upstreamError(providerID string, statusCode int, source error) error {
	message := fmt.Sprintf("upstream failure for provider %q", providerID)
	metadata := map[string]any{"provider_id": providerID}
	if statusCode > 0 {
		metadata["status_code"] = statusCode
	}
	if source != nil {
		return goerrors.Wrap(source, goerrors.CategoryExternal, message).
			WithTextCode(TextCodeUpstreamError).
			WithMetadata(metadata)
	}
	return goerrors.New(message, goerrors.CategoryExternal).
		WithTextCode(TextCodeUpstreamError).
		WithMetadata(metadata)
}

func isContextCancellation(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func headerValue(headers map[string]string, name string) string {
	if len(headers) == 0 {
		return ""
	}
	if value, ok := headers[name]; ok {
		return value
	}
	for key, value := range headers {
		if strings.EqualFold(key, name) {
			return value
		}
	}
	return ""
}

// parseRetryAfterHeader accepts delta-seconds or an HTTP date.
func parseRetryAfterHeader(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds <= 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	for _, layout := range []string{time.RFC1123, time.RFC1123Z} {
		if at, err := time.Parse(layout, value); err == nil {
			delay := at.Sub(now.UTC())
			if delay < 0 {
				return 0
			}
			return delay
		}
	}
	return 0
}
