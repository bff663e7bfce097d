package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goliatone/go-accountlink/core"
	"github.com/goliatone/go-accountlink/migrations"
	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

type persistenceConfig struct {
	target      core.DatabaseTarget
	debug       bool
	pingTimeout time.Duration
	identifier  string
}

func (c persistenceConfig) GetDebug() bool {
	return c.debug
}

func (c persistenceConfig) GetDriver() string {
	return c.target.Driver
}

func (c persistenceConfig) GetServer() string {
	return c.target.DSN
}

func (c persistenceConfig) GetPingTimeout() time.Duration {
	return c.pingTimeout
}

func (c persistenceConfig) GetOtelIdentifier() string {
	return c.identifier
}

type openOptions struct {
	migrate    bool
	identifier string
	migrations []migrations.Option
}

type OpenOption func(*openOptions)

// WithoutMigrations skips schema migration on open.
func WithoutMigrations() OpenOption {
	return func(o *openOptions) {
		o.migrate = false
	}
}

func WithOtelIdentifier(identifier string) OpenOption {
	return func(o *openOptions) {
		if identifier != "" {
			o.identifier = identifier
		}
	}
}

// WithMigrationOptions shapes the migration plan applied on open, for example
// to add host sources next to the identity schema.
func WithMigrationOptions(opts ...migrations.Option) OpenOption {
	return func(o *openOptions) {
		o.migrations = append(o.migrations, opts...)
	}
}

// Open resolves cfg.URL, connects, and applies the embedded migrations for
// the selected dialect. The sqlite parent directory is created when missing.
func Open(ctx context.Context, cfg core.DatabaseConfig, opts ...OpenOption) (*persistence.Client, error) {
	options := openOptions{migrate: true, identifier: "go-accountlink"}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&options)
	}

	target, err := core.ResolveDatabase(cfg.URL)
	if err != nil {
		return nil, err
	}
	if target.IsSQLite() && target.Path != "" {
		if err := os.MkdirAll(filepath.Dir(target.Path), 0o755); err != nil {
			return nil, core.NewBackingStoreError("open", fmt.Errorf("create sqlite directory: %w", err))
		}
	}

	dialect, err := migrations.DialectForDriver(target.Driver)
	if err != nil {
		return nil, err
	}

	sqlDB, err := sql.Open(target.Driver, target.DSN)
	if err != nil {
		return nil, core.NewBackingStoreError("open", err)
	}
	maxOpen := cfg.MaxOpenConns
	if maxOpen == 0 && target.IsSQLite() {
		maxOpen = 1
	}
	if maxOpen > 0 {
		sqlDB.SetMaxOpenConns(maxOpen)
	}

	pingTimeout := cfg.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = 5 * time.Second
	}
	client, err := persistence.New(persistenceConfig{
		target:      target,
		debug:       cfg.Debug,
		pingTimeout: pingTimeout,
		identifier:  options.identifier,
	}, sqlDB, bunDialect(dialect))
	if err != nil {
		_ = sqlDB.Close()
		return nil, core.NewBackingStoreError("open", err)
	}

	if !options.migrate {
		return client, nil
	}
	if err := Migrate(ctx, client, dialect, options.migrations...); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// Migrate registers the migration plan for dialect on client and runs it.
func Migrate(ctx context.Context, client *persistence.Client, dialect string, opts ...migrations.Option) error {
	if client == nil {
		return fmt.Errorf("sqlstore: persistence client is required")
	}
	plan, err := migrations.NewPlan(dialect, opts...)
	if err != nil {
		return fmt.Errorf("sqlstore: plan migrations: %w", err)
	}
	if err := plan.Apply(ctx, func(_ context.Context, source migrations.Source) error {
		client.RegisterSQLMigrations(source.FS)
		return nil
	}); err != nil {
		return fmt.Errorf("sqlstore: register migrations: %w", err)
	}
	if err := client.Migrate(ctx); err != nil {
		return core.NewBackingStoreError("migrate", err)
	}
	return nil
}

func bunDialect(dialect string) schema.Dialect {
	if dialect == migrations.DialectPostgres {
		return pgdialect.New()
	}
	return sqlitedialect.New()
}
