package transport

import (
	"testing"

	goerrors "github.com/goliatone/go-errors"

	"github.com/alauppe/clawdbot/core"
)

func TestTransportTextCode(t *testing.T) {
	cases := []struct {
		category goerrors.Category
		want     string
	}{
		{goerrors.CategoryBadInput, core.TextCodeInvalidRequest},
		{goerrors.CategoryValidation, core.TextCodeInvalidRequest},
		{goerrors.CategoryAuth, core.TextCodeAuthenticationFailed},
		{goerrors.CategoryAuthz, core.TextCodeAuthenticationFailed},
		{goerrors.CategoryRateLimit, core.TextCodeRateLimited},
		{goerrors.CategoryExternal, core.TextCodeUpstreamError},
		{goerrors.CategoryOperation, core.TextCodeUpstreamError},
		{goerrors.CategoryInternal, core.TextCodeStorageError},
	}
	for _, tc := range cases {
		if got := transportTextCode(tc.category); got != tc.want {
			t.Fatalf("transportTextCode(%q) = %q, want %q", tc.category, got, tc.want)
		}
	}
}

func TestTransportErrorCarriesMetadata(t *testing.T) {
	err := transportError("transport: boom", goerrors.CategoryExternal, 502, map[string]any{"adapter": "rest"})
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected rich error, got %T", err)
	}
	if rich.Code != 502 || rich.TextCode != core.TextCodeUpstreamError {
		t.Fatalf("code = %d textCode = %q", rich.Code, rich.TextCode)
	}
	if rich.Metadata["adapter"] != "rest" {
		t.Fatalf("metadata = %v", rich.Metadata)
	}
}
