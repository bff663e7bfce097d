package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/goliatone/go-accountlink/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const linkCacheKeyPrefix = "go-accountlink::links::v1"

// CachedLinkStore serves the read operations from a cache and invalidates the
// affected keys after every successful RegisterLink. NotFound results and
// store failures are never cached.
//
// Each logical key carries a generation. Reads fetch under the generation
// observed before the fetch started and RegisterLink bumps the generation
// after the write committed, so a fetch that raced the write can only fill a
// key no later read will ask for.
type CachedLinkStore struct {
	base        core.LinkStore
	cache       repositorycache.CacheService
	generations *keyGenerations
}

func NewCachedLinkStore(base core.LinkStore, cacheService repositorycache.CacheService) (*CachedLinkStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base link store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: link cache service is required")
	}
	return &CachedLinkStore{
		base:        base,
		cache:       cacheService,
		generations: newKeyGenerations(),
	}, nil
}

// LinkCacheKey builds go-accountlink::links::v1::<kind>::<segment>... with
// each segment URL-path escaped. Segments are not trimmed.
func LinkCacheKey(kind string, segments ...string) string {
	parts := make([]string, 0, len(segments)+2)
	parts = append(parts, linkCacheKeyPrefix, kind)
	for _, segment := range segments {
		parts = append(parts, url.PathEscape(segment))
	}
	return strings.Join(parts, "::")
}

func versionedCacheKey(key string, generation uint64) string {
	return key + "::g" + strconv.FormatUint(generation, 10)
}

func (s *CachedLinkStore) RegisterLink(
	ctx context.Context,
	account core.RemoteAccount,
	platformUserID string,
) (core.RegisterLinkResult, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.RegisterLinkResult{}, fmt.Errorf("sqlstore: cached link store is not configured")
	}
	result, err := s.base.RegisterLink(ctx, account, platformUserID)
	if err != nil {
		return core.RegisterLinkResult{}, err
	}
	if err := s.invalidate(ctx, registrationKeys(result, account, platformUserID)); err != nil {
		return core.RegisterLinkResult{}, err
	}
	return result, nil
}

// registrationKeys lists every read a registration can change. The stored
// remote identity wins over the supplied one because an existing token keeps
// its first-seen user id and instance; both are dropped when they differ.
func registrationKeys(result core.RegisterLinkResult, account core.RemoteAccount, platformUserID string) []string {
	seen := map[string]struct{}{}
	keys := []string{}
	add := func(key string) {
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	add(LinkCacheKey("list", platformUserID))

	identities := [][2]string{{account.RemoteInstance, account.RemoteUserID}}
	if result.RemoteUserID != "" || result.RemoteInstance != "" {
		identities = append([][2]string{{result.RemoteInstance, result.RemoteUserID}}, identities...)
	}
	for _, identity := range identities {
		instance, remoteUserID := identity[0], identity[1]
		if remoteUserID == "" {
			continue
		}
		add(LinkCacheKey("registered", remoteUserID))
		add(LinkCacheKey("lookup", "", remoteUserID))
		if instance != "" {
			add(LinkCacheKey("lookup", instance, remoteUserID))
		}
	}
	return keys
}

func (s *CachedLinkStore) invalidate(ctx context.Context, keys []string) error {
	stale := make([]string, 0, len(keys))
	for _, key := range keys {
		previous := s.generations.bump(key)
		stale = append(stale, versionedCacheKey(key, previous))
	}
	return s.cache.InvalidateKeys(ctx, stale)
}

func (s *CachedLinkStore) ListRemoteAccounts(ctx context.Context, platformUserID string) ([]core.LinkedAccount, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return nil, fmt.Errorf("sqlstore: cached link store is not configured")
	}
	accounts, err := repositorycache.GetOrFetch(ctx, s.cache, s.currentKey(LinkCacheKey("list", platformUserID)),
		func(ctx context.Context) ([]core.LinkedAccount, error) {
			return s.base.ListRemoteAccounts(ctx, platformUserID)
		})
	if err != nil {
		return nil, err
	}
	return append([]core.LinkedAccount{}, accounts...), nil
}

func (s *CachedLinkStore) LookupPlatformUser(ctx context.Context, remoteUserID string) (string, error) {
	return s.LookupPlatformUserOnInstance(ctx, "", remoteUserID)
}

func (s *CachedLinkStore) LookupPlatformUserOnInstance(
	ctx context.Context,
	remoteInstance string,
	remoteUserID string,
) (string, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return "", fmt.Errorf("sqlstore: cached link store is not configured")
	}
	return repositorycache.GetOrFetch(ctx, s.cache, s.currentKey(LinkCacheKey("lookup", remoteInstance, remoteUserID)),
		func(ctx context.Context) (string, error) {
			if remoteInstance == "" {
				return s.base.LookupPlatformUser(ctx, remoteUserID)
			}
			return s.base.LookupPlatformUserOnInstance(ctx, remoteInstance, remoteUserID)
		})
}

func (s *CachedLinkStore) IsRemoteUserRegistered(ctx context.Context, remoteUserID string) (bool, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return false, fmt.Errorf("sqlstore: cached link store is not configured")
	}
	return repositorycache.GetOrFetch(ctx, s.cache, s.currentKey(LinkCacheKey("registered", remoteUserID)),
		func(ctx context.Context) (bool, error) {
			return s.base.IsRemoteUserRegistered(ctx, remoteUserID)
		})
}

// Stats bypasses the cache.
func (s *CachedLinkStore) Stats(ctx context.Context) (core.StoreStats, error) {
	if s == nil || s.base == nil {
		return core.StoreStats{}, fmt.Errorf("sqlstore: cached link store is not configured")
	}
	reader, ok := s.base.(core.StatsReader)
	if !ok {
		return core.StoreStats{}, fmt.Errorf("sqlstore: base link store does not expose stats")
	}
	return reader.Stats(ctx)
}

func (s *CachedLinkStore) currentKey(key string) string {
	return versionedCacheKey(key, s.generations.current(key))
}

// keyGenerations tracks one counter per logical key that has been written.
// The cache service is process local, so the counters live beside it.
type keyGenerations struct {
	mu     sync.Mutex
	counts map[string]uint64
}

func newKeyGenerations() *keyGenerations {
	return &keyGenerations{counts: map[string]uint64{}}
}

func (g *keyGenerations) current(key string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.counts[key]
}

// bump advances key and returns the generation it replaced.
func (g *keyGenerations) bump(key string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	previous := g.counts[key]
	g.counts[key] = previous + 1
	return previous
}
