package sqlstore

import (
	"github.com/alauppe/clawdbot/core"
	"github.com/alauppe/clawdbot/ratelimit"
)

var (
	_ core.CredentialStore        = (*CredentialStore)(nil)
	_ core.RepositoryStoreFactory = (*RepositoryFactory)(nil)
	_ ratelimit.StateStore        = (*RateLimitStateStore)(nil)
)
