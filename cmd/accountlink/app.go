package main

import (
	"context"
	"strings"

	"github.com/goliatone/go-accountlink/core"
	"github.com/goliatone/go-accountlink/migrations"
	sqlstore "github.com/goliatone/go-accountlink/store/sql"
	persistence "github.com/goliatone/go-persistence-bun"
)

type globalFlags struct {
	database string
	debug    bool
}

// app holds one opened database and the service built over it.
type app struct {
	config  core.Config
	dialect string
	client  *persistence.Client
	service *core.Service
}

// openApp layers defaults < ACCOUNTLINK_* environment < flags, opens the
// database and applies migrations.
func openApp(ctx context.Context, env map[string]string, flags globalFlags) (*app, error) {
	defaults := core.DefaultConfig()
	loaded, err := core.NewCfgxConfigProvider(core.EnvConfigLoader{Environment: env}).Load(ctx, defaults)
	if err != nil {
		return nil, err
	}
	runtime := core.Config{
		Database: core.DatabaseConfig{
			URL:   strings.TrimSpace(flags.database),
			Debug: flags.debug,
		},
	}
	cfg, err := core.GoOptionsResolver{}.Resolve(defaults, loaded, runtime)
	if err != nil {
		return nil, err
	}

	target, err := core.ResolveDatabase(cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	dialect, err := migrations.DialectForDriver(target.Driver)
	if err != nil {
		return nil, err
	}

	client, err := sqlstore.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	service, err := core.NewService(cfg,
		core.WithPersistenceClient(client),
		core.WithLinkStoreFactory(sqlstore.NewRepositoryFactory()),
	)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return &app{config: cfg, dialect: dialect, client: client, service: service}, nil
}

func (a *app) Close() error {
	if a == nil || a.client == nil {
		return nil
	}
	return a.client.Close()
}
