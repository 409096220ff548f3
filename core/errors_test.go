package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestSkillErrorMapperSentinels(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		textCode string
		category goerrors.Category
	}{
		{
			name:     "credential not found",
			err:      ErrCredentialNotFound,
			textCode: TextCodeNotAuthenticated,
			category: goerrors.CategoryAuth,
		},
		{
			name:     "resource not declared",
			err:      ErrResourceNotDeclared,
			textCode: TextCodeInvalidRequest,
			category: goerrors.CategoryBadInput,
		},
		{
			name:     "unresolved path param",
			err:      fmt.Errorf("build request: %w", ErrUnresolvedPathParam),
			textCode: TextCodeInvalidRequest,
			category: goerrors.CategoryBadInput,
		},
		{
			name:     "refresh not supported",
			err:      ErrRefreshNotSupported,
			textCode: TextCodeAuthenticationFailed,
			category: goerrors.CategoryAuth,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mapped := skillErrorMapper(tc.err)
			if mapped == nil {
				t.Fatalf("expected mapped error")
			}
			if mapped.TextCode != tc.textCode {
				t.Fatalf("expected %q, got %q", tc.textCode, mapped.TextCode)
			}
			if mapped.Category != tc.category {
				t.Fatalf("expected category %q, got %q", tc.category, mapped.Category)
			}
		})
	}
}

func TestSkillErrorMapperContextCancellation(t *testing.T) {
	for _, err := range []error{context.Canceled, context.DeadlineExceeded} {
		mapped := skillErrorMapper(fmt.Errorf("call failed: %w", err))
		if mapped == nil {
			t.Fatalf("expected mapped error for %v", err)
		}
		if mapped.TextCode != TextCodeCancelled {
			t.Fatalf("expected %q for %v, got %q", TextCodeCancelled, err, mapped.TextCode)
		}
	}
}

func TestSkillErrorMapperKeepsRichErrors(t *testing.T) {
	source := goerrors.New("throttled", goerrors.CategoryRateLimit).
		WithTextCode(TextCodeRateLimited).
		WithCode(http.StatusTooManyRequests)

	mapped := skillErrorMapper(source)
	if mapped.TextCode != TextCodeRateLimited {
		t.Fatalf("rich errors keep their text code, got %q", mapped.TextCode)
	}
	if mapped.Code != http.StatusTooManyRequests {
		t.Fatalf("rich errors keep their status code, got %d", mapped.Code)
	}
}

func TestSkillErrorMapperBackfillsEnvelope(t *testing.T) {
	source := goerrors.New("stored credential is corrupt", goerrors.CategoryInternal)

	mapped := skillErrorMapper(source)
	if mapped.Code != http.StatusInternalServerError {
		t.Fatalf("expected backfilled status, got %d", mapped.Code)
	}
	if mapped.TextCode != TextCodeStorageError {
		t.Fatalf("expected backfilled text code, got %q", mapped.TextCode)
	}
}

func TestSkillErrorMapperMessageHeuristics(t *testing.T) {
	cases := []struct {
		message  string
		textCode string
	}{
		{"record not found", TextCodeNotFound},
		{"rate limit exceeded", TextCodeRateLimited},
		{"request throttled by upstream", TextCodeRateLimited},
		{"unauthorized client", TextCodeAuthenticationFailed},
		{"invalid_grant: token revoked", TextCodeAuthenticationFailed},
	}
	for _, tc := range cases {
		mapped := skillErrorMapper(errors.New(tc.message))
		if mapped.TextCode != tc.textCode {
			t.Fatalf("%q: expected %q, got %q", tc.message, tc.textCode, mapped.TextCode)
		}
	}
}

func TestSkillHTTPStatusByCategory(t *testing.T) {
	cases := map[goerrors.Category]int{
		goerrors.CategoryAuth:      http.StatusUnauthorized,
		goerrors.CategoryAuthz:     http.StatusForbidden,
		goerrors.CategoryBadInput:  http.StatusBadRequest,
		goerrors.CategoryNotFound:  http.StatusNotFound,
		goerrors.CategoryConflict:  http.StatusConflict,
		goerrors.CategoryRateLimit: http.StatusTooManyRequests,
		goerrors.CategoryExternal:  http.StatusBadGateway,
		goerrors.CategoryInternal:  http.StatusInternalServerError,
	}
	for category, status := range cases {
		if got := skillHTTPStatus(category); got != status {
			t.Fatalf("category %q: expected %d, got %d", category, status, got)
		}
	}
}
