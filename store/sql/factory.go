package sqlstore

import (
	"fmt"

	"github.com/goliatone/go-accountlink/core"
	persistence "github.com/goliatone/go-persistence-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/uptrace/bun"
)

// RepositoryFactory builds the link store for core.Service. When a cache
// service is configured the store is wrapped in a CachedLinkStore.
type RepositoryFactory struct {
	db        *bun.DB
	cache     repositorycache.CacheService
	storeOpts []LinkStoreOption

	linkStore *LinkStore
	store     core.LinkStore
}

type FactoryOption func(*RepositoryFactory)

func WithCacheService(cacheService repositorycache.CacheService) FactoryOption {
	return func(f *RepositoryFactory) {
		f.cache = cacheService
	}
}

func WithLinkStoreOptions(opts ...LinkStoreOption) FactoryOption {
	return func(f *RepositoryFactory) {
		f.storeOpts = append(f.storeOpts, opts...)
	}
}

func NewRepositoryFactory(opts ...FactoryOption) *RepositoryFactory {
	factory := &RepositoryFactory{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(factory)
	}
	return factory
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client, opts ...FactoryOption) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory(opts...)
	if _, err := factory.BuildLinkStore(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB, opts ...FactoryOption) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory(opts...)
	if _, err := factory.BuildLinkStore(db); err != nil {
		return nil, err
	}
	return factory, nil
}

func (f *RepositoryFactory) BuildLinkStore(persistenceClient any) (core.LinkStore, error) {
	if f == nil {
		return nil, fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.store != nil {
		return f.store, nil
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return nil, err
		}
		f.db = db
	}
	linkStore, err := NewLinkStore(f.db, f.storeOpts...)
	if err != nil {
		return nil, err
	}
	f.linkStore = linkStore
	f.store = linkStore
	if f.cache != nil {
		cached, err := NewCachedLinkStore(linkStore, f.cache)
		if err != nil {
			return nil, err
		}
		f.store = cached
	}
	return f.store, nil
}

// LinkStore returns the uncached store.
func (f *RepositoryFactory) LinkStore() *LinkStore {
	if f == nil {
		return nil
	}
	return f.linkStore
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
