package accountlink

import "github.com/goliatone/go-accountlink/core"

type Config = core.Config

type DatabaseConfig = core.DatabaseConfig

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies

type LinkStore = core.LinkStore
type LinkStoreFactory = core.LinkStoreFactory
type StatsReader = core.StatsReader

type RemoteAccount = core.RemoteAccount
type LinkedAccount = core.LinkedAccount
type RegisterLinkResult = core.RegisterLinkResult
type StoreStats = core.StoreStats

var (
	WithLogger            = core.WithLogger
	WithLoggerProvider    = core.WithLoggerProvider
	WithMetricsRecorder   = core.WithMetricsRecorder
	WithErrorMapper       = core.WithErrorMapper
	WithConfigProvider    = core.WithConfigProvider
	WithOptionsResolver   = core.WithOptionsResolver
	WithPersistenceClient = core.WithPersistenceClient
	WithLinkStoreFactory  = core.WithLinkStoreFactory
	WithLinkStore         = core.WithLinkStore
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}
