package query

import (
	"context"

	"github.com/goliatone/go-accountlink/core"
)

type RemoteAccountLister interface {
	ListRemoteAccounts(ctx context.Context, platformUserID string) ([]core.LinkedAccount, error)
}

type PlatformUserResolver interface {
	LookupPlatformUserOnInstance(ctx context.Context, remoteInstance string, remoteUserID string) (string, error)
}

type RegistrationChecker interface {
	IsRemoteUserRegistered(ctx context.Context, remoteUserID string) (bool, error)
}

type ListRemoteAccountsQuery struct {
	reader RemoteAccountLister
}

func NewListRemoteAccountsQuery(reader RemoteAccountLister) *ListRemoteAccountsQuery {
	return &ListRemoteAccountsQuery{reader: reader}
}

func (q *ListRemoteAccountsQuery) Query(ctx context.Context, msg ListRemoteAccountsMessage) ([]core.LinkedAccount, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: remote account lister is required")
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return q.reader.ListRemoteAccounts(ctx, msg.PlatformUserID)
}

type LookupPlatformUserQuery struct {
	reader PlatformUserResolver
}

func NewLookupPlatformUserQuery(reader PlatformUserResolver) *LookupPlatformUserQuery {
	return &LookupPlatformUserQuery{reader: reader}
}

func (q *LookupPlatformUserQuery) Query(ctx context.Context, msg LookupPlatformUserMessage) (string, error) {
	if q == nil || q.reader == nil {
		return "", queryDependencyError("query: platform user resolver is required")
	}
	if err := msg.Validate(); err != nil {
		return "", err
	}
	return q.reader.LookupPlatformUserOnInstance(ctx, msg.RemoteInstance, msg.RemoteUserID)
}

type IsRemoteUserRegisteredQuery struct {
	reader RegistrationChecker
}

func NewIsRemoteUserRegisteredQuery(reader RegistrationChecker) *IsRemoteUserRegisteredQuery {
	return &IsRemoteUserRegisteredQuery{reader: reader}
}

func (q *IsRemoteUserRegisteredQuery) Query(ctx context.Context, msg IsRemoteUserRegisteredMessage) (bool, error) {
	if q == nil || q.reader == nil {
		return false, queryDependencyError("query: registration checker is required")
	}
	if err := msg.Validate(); err != nil {
		return false, err
	}
	return q.reader.IsRemoteUserRegistered(ctx, msg.RemoteUserID)
}

type StoreStatsQuery struct {
	reader core.StatsReader
}

func NewStoreStatsQuery(reader core.StatsReader) *StoreStatsQuery {
	return &StoreStatsQuery{reader: reader}
}

func (q *StoreStatsQuery) Query(ctx context.Context, _ StoreStatsMessage) (core.StoreStats, error) {
	if q == nil || q.reader == nil {
		return core.StoreStats{}, queryDependencyError("query: stats reader is required")
	}
	return q.reader.Stats(ctx)
}
