package query

import (
	gocmd "github.com/goliatone/go-command"

	"github.com/alauppe/clawdbot/core"
)

var (
	_ gocmd.Querier[ListResourcesMessage, core.NormalizedResult] = (*ListResourcesQuery)(nil)
	_ gocmd.Querier[GetResourceMessage, core.NormalizedResult]   = (*GetResourceQuery)(nil)
	_ gocmd.Querier[TokenStatusMessage, core.TokenStatus]        = (*TokenStatusQuery)(nil)
	_ gocmd.Querier[ListProvidersMessage, []core.Manifest]       = (*ListProvidersQuery)(nil)
)
