package core

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryLinkStore struct {
	mu       sync.Mutex
	now      func() time.Time
	accounts map[string]RemoteAccountRegistration
	users    map[string]PlatformUser
	links    map[string]Link
	failWith error
}

func newMemoryLinkStore() *memoryLinkStore {
	tick := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return &memoryLinkStore{
		now: func() time.Time {
			tick = tick.Add(time.Second)
			return tick
		},
		accounts: map[string]RemoteAccountRegistration{},
		users:    map[string]PlatformUser{},
		links:    map[string]Link{},
	}
}

func (s *memoryLinkStore) platformUser(platformUserID string) (PlatformUser, bool) {
	if user, ok := s.users[platformUserID]; ok {
		return user, false
	}
	user := PlatformUser{ID: "pu_" + platformUserID, PlatformUserID: platformUserID, CreatedAt: s.now()}
	s.users[platformUserID] = user
	return user, true
}

func (s *memoryLinkStore) RegisterLink(
	_ context.Context,
	account RemoteAccount,
	platformUserID string,
) (RegisterLinkResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return RegisterLinkResult{}, s.failWith
	}
	result := RegisterLinkResult{}
	registration, ok := s.accounts[account.Token]
	if !ok {
		registration = RemoteAccountRegistration{
			ID:             "ra_" + account.Token,
			Token:          account.Token,
			RemoteUserID:   account.RemoteUserID,
			RemoteUserName: account.RemoteUserName,
			RemoteInstance: account.RemoteInstance,
			CreatedAt:      s.now(),
		}
		s.accounts[account.Token] = registration
		result.RemoteAccountCreated = true
	}
	user, created := s.platformUser(platformUserID)
	result.PlatformUserCreated = created
	key := user.ID + "|" + registration.ID
	if _, ok := s.links[key]; !ok {
		s.links[key] = Link{PlatformID: user.ID, RemoteID: registration.ID, LinkedAt: s.now()}
		result.LinkCreated = true
	}
	result.RemoteAccountID = registration.ID
	result.PlatformID = user.ID
	result.RemoteUserID = registration.RemoteUserID
	result.RemoteInstance = registration.RemoteInstance
	return result, nil
}

func (s *memoryLinkStore) ListRemoteAccounts(_ context.Context, platformUserID string) ([]LinkedAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	user, _ := s.platformUser(platformUserID)
	out := []LinkedAccount{}
	for _, link := range s.links {
		if link.PlatformID != user.ID {
			continue
		}
		for _, registration := range s.accounts {
			if registration.ID != link.RemoteID {
				continue
			}
			out = append(out, LinkedAccount{
				RemoteUserID:   registration.RemoteUserID,
				RemoteInstance: registration.RemoteInstance,
				Token:          registration.Token,
				RemoteUserName: registration.RemoteUserName,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out, nil
}

func (s *memoryLinkStore) LookupPlatformUser(ctx context.Context, remoteUserID string) (string, error) {
	return s.LookupPlatformUserOnInstance(ctx, "", remoteUserID)
}

func (s *memoryLinkStore) LookupPlatformUserOnInstance(
	_ context.Context,
	remoteInstance string,
	remoteUserID string,
) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return "", s.failWith
	}
	var best Link
	found := false
	for _, link := range s.links {
		for _, registration := range s.accounts {
			if registration.ID != link.RemoteID || registration.RemoteUserID != remoteUserID {
				continue
			}
			if remoteInstance != "" && registration.RemoteInstance != remoteInstance {
				continue
			}
			if !found || link.LinkedAt.After(best.LinkedAt) {
				best, found = link, true
			}
		}
	}
	if !found {
		return "", NewNotFound(remoteInstance, remoteUserID)
	}
	for _, user := range s.users {
		if user.ID == best.PlatformID {
			return user.PlatformUserID, nil
		}
	}
	return "", NewIntegrityViolation("lookup_platform_user", nil)
}

func (s *memoryLinkStore) IsRemoteUserRegistered(_ context.Context, remoteUserID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return false, s.failWith
	}
	for _, registration := range s.accounts {
		if registration.RemoteUserID == remoteUserID {
			return true, nil
		}
	}
	return false, nil
}

func (s *memoryLinkStore) Stats(context.Context) (StoreStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StoreStats{
		RemoteAccounts: len(s.accounts),
		PlatformUsers:  len(s.users),
		Links:          len(s.links),
	}, nil
}

type staticLinkStoreFactory struct {
	store LinkStore
	err   error
	seen  any
}

func (f *staticLinkStoreFactory) BuildLinkStore(persistenceClient any) (LinkStore, error) {
	f.seen = persistenceClient
	if f.err != nil {
		return nil, f.err
	}
	return f.store, nil
}

type stubLogger struct{}

func (stubLogger) Trace(string, ...any) {}
func (stubLogger) Debug(string, ...any) {}
func (stubLogger) Info(string, ...any)  {}
func (stubLogger) Warn(string, ...any)  {}
func (stubLogger) Error(string, ...any) {}
func (stubLogger) Fatal(string, ...any) {}
func (s stubLogger) WithContext(context.Context) Logger {
	return s
}

type stubLoggerProvider struct {
	logger Logger
}

func (s stubLoggerProvider) GetLogger(string) Logger {
	return s.logger
}

type mapRawLoader struct {
	values map[string]any
}

func (l mapRawLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.values))
	for key, value := range l.values {
		out[key] = value
	}
	return out, nil
}

func newTestService(store LinkStore, opts ...Option) (*Service, error) {
	base := []Option{WithLinkStore(store), WithLogger(stubLogger{}), WithLoggerProvider(stubLoggerProvider{logger: stubLogger{}})}
	return NewService(Config{Database: DatabaseConfig{URL: ":memory:"}}, append(base, opts...)...)
}
