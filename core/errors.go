package core

import (
	"context"
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Stable text codes surfaced to skill callers. Raw provider codes travel in
// error metadata, never in the top-level code.
const (
	TextCodeNotAuthenticated     = "SKILL_NOT_AUTHENTICATED"
	TextCodeAuthenticationFailed = "SKILL_AUTHENTICATION_FAILED"
	TextCodeInvalidRequest       = "SKILL_INVALID_REQUEST"
	TextCodeRateLimited          = "SKILL_RATE_LIMITED"
	TextCodeUpstreamError        = "SKILL_UPSTREAM_ERROR"
	TextCodeNotFound             = "SKILL_NOT_FOUND"
	TextCodeCancelled            = "SKILL_CANCELLED"
	TextCodeStorageError         = "SKILL_STORAGE_ERROR"
	TextCodeProviderNotFound     = "SKILL_PROVIDER_NOT_FOUND"
)

// skillErrorMapper coerces any error into the module's rich error envelope.
// Known sentinel and rich errors keep their classification; everything else
// funnels through the default mappers.
func skillErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureSkillErrorEnvelope(richErr)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "operation cancelled").
			WithTextCode(TextCodeCancelled).
			WithCode(http.StatusRequestTimeout)
	}

	switch {
	case errors.Is(err, ErrCredentialNotFound):
		return newSkillError(goerrors.CategoryAuth, TextCodeNotAuthenticated, "no stored credential for provider")
	case errors.Is(err, ErrResourceNotDeclared):
		return newSkillError(goerrors.CategoryBadInput, TextCodeInvalidRequest, err.Error())
	case errors.Is(err, ErrUnresolvedPathParam), errors.Is(err, ErrMissingRequiredField):
		return newSkillError(goerrors.CategoryBadInput, TextCodeInvalidRequest, err.Error())
	case errors.Is(err, ErrRefreshNotSupported):
		return newSkillError(goerrors.CategoryAuth, TextCodeAuthenticationFailed, err.Error())
	}

	message := strings.ToLower(err.Error())
	switch {
	case strings.Contains(message, "not found"):
		return newSkillError(goerrors.CategoryNotFound, TextCodeNotFound, err.Error())
	case strings.Contains(message, "rate limit"), strings.Contains(message, "throttl"):
		return newSkillError(goerrors.CategoryRateLimit, TextCodeRateLimited, err.Error())
	case strings.Contains(message, "unauthorized"), strings.Contains(message, "invalid_grant"):
		return newSkillError(goerrors.CategoryAuth, TextCodeAuthenticationFailed, err.Error())
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureSkillErrorEnvelope(mapped)
}

func newSkillError(category goerrors.Category, textCode, message string) *goerrors.Error {
	return goerrors.New(message, category).
		WithTextCode(textCode).
		WithCode(skillHTTPStatus(category))
}

// ensureSkillErrorEnvelope backfills the numeric code and text code on rich
// errors raised by lower layers without one.
func ensureSkillErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err = err.WithCode(skillHTTPStatus(err.Category))
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err = err.WithTextCode(defaultSkillTextCode(err.Category))
	}
	return err
}

func defaultSkillTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryAuth:
		return TextCodeNotAuthenticated
	case goerrors.CategoryAuthz:
		return TextCodeAuthenticationFailed
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return TextCodeInvalidRequest
	case goerrors.CategoryNotFound:
		return TextCodeNotFound
	case goerrors.CategoryRateLimit:
		return TextCodeRateLimited
	case goerrors.CategoryExternal:
		return TextCodeUpstreamError
	case goerrors.CategoryOperation:
		return TextCodeUpstreamError
	default:
		return TextCodeStorageError
	}
}

func skillHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
