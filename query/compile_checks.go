package query

import (
	"github.com/goliatone/go-accountlink/core"
	gocmd "github.com/goliatone/go-command"
)

var (
	_ gocmd.Querier[ListRemoteAccountsMessage, []core.LinkedAccount] = (*ListRemoteAccountsQuery)(nil)
	_ gocmd.Querier[LookupPlatformUserMessage, string]               = (*LookupPlatformUserQuery)(nil)
	_ gocmd.Querier[IsRemoteUserRegisteredMessage, bool]             = (*IsRemoteUserRegisteredQuery)(nil)
	_ gocmd.Querier[StoreStatsMessage, core.StoreStats]              = (*StoreStatsQuery)(nil)
)
