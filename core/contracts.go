package core

import (
	"context"

	glog "github.com/goliatone/go-logger/glog"
)

// LinkStore persists platform user to remote account associations.
type LinkStore interface {
	RegisterLink(ctx context.Context, account RemoteAccount, platformUserID string) (RegisterLinkResult, error)
	ListRemoteAccounts(ctx context.Context, platformUserID string) ([]LinkedAccount, error)
	LookupPlatformUser(ctx context.Context, remoteUserID string) (string, error)
	LookupPlatformUserOnInstance(ctx context.Context, remoteInstance string, remoteUserID string) (string, error)
	IsRemoteUserRegistered(ctx context.Context, remoteUserID string) (bool, error)
}

type StatsReader interface {
	Stats(ctx context.Context) (StoreStats, error)
}

// LinkStoreFactory builds a LinkStore from a persistence client.
type LinkStoreFactory interface {
	BuildLinkStore(persistenceClient any) (LinkStore, error)
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger
