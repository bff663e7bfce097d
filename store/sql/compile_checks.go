package sqlstore

import "github.com/goliatone/go-accountlink/core"

var (
	_ core.LinkStore        = (*LinkStore)(nil)
	_ core.StatsReader      = (*LinkStore)(nil)
	_ core.LinkStore        = (*CachedLinkStore)(nil)
	_ core.StatsReader      = (*CachedLinkStore)(nil)
	_ core.LinkStoreFactory = (*RepositoryFactory)(nil)
)
