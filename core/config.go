package core

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"

	defaultPingTimeout = 5 * time.Second
	sqliteBusyTimeout  = 5000
)

type DatabaseConfig struct {
	// URL is a postgres connection string, a sqlite URL or a bare sqlite path.
	// Empty selects DefaultDatabasePath.
	URL          string        `koanf:"url" mapstructure:"url"`
	Debug        bool          `koanf:"debug" mapstructure:"debug"`
	PingTimeout  time.Duration `koanf:"ping_timeout" mapstructure:"ping_timeout"`
	MaxOpenConns int           `koanf:"max_open_conns" mapstructure:"max_open_conns"`
}

type Config struct {
	ServiceName string         `koanf:"service_name" mapstructure:"service_name"`
	Database    DatabaseConfig `koanf:"database" mapstructure:"database"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "accountlink",
		Database: DatabaseConfig{
			PingTimeout: defaultPingTimeout,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	return c.Database.Validate()
}

func (c DatabaseConfig) Validate() error {
	if c.PingTimeout < 0 {
		return fmt.Errorf("core: database.ping_timeout must be >= 0")
	}
	if c.MaxOpenConns < 0 {
		return fmt.Errorf("core: database.max_open_conns must be >= 0")
	}
	if _, err := ResolveDatabase(c.URL); err != nil {
		return err
	}
	return nil
}

// DefaultDatabasePath returns the per-user sqlite location used when no URL is
// configured: $XDG_DATA_HOME/accountlink/bridges/gitlab/db.sqlite3.
func DefaultDatabasePath() string {
	base := strings.TrimSpace(os.Getenv("XDG_DATA_HOME"))
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil || home == "" {
			home = "."
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "accountlink", "bridges", "gitlab", "db.sqlite3")
}

// DatabaseTarget is a resolved connection setting.
type DatabaseTarget struct {
	Driver string
	DSN    string
	// Path is the sqlite file, empty for postgres and in-memory databases.
	Path string
}

func (t DatabaseTarget) IsSQLite() bool {
	return t.Driver == DriverSQLite
}

// ResolveDatabase maps the single connection setting to a driver and DSN.
func ResolveDatabase(raw string) (DatabaseTarget, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		value = DefaultDatabasePath()
	}

	lower := strings.ToLower(value)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		if _, err := url.Parse(value); err != nil {
			return DatabaseTarget{}, fmt.Errorf("core: invalid postgres url: %w", err)
		}
		return DatabaseTarget{Driver: DriverPostgres, DSN: value}, nil
	case strings.HasPrefix(lower, "sqlite3://"):
		return sqliteTarget(value[len("sqlite3://"):])
	case strings.HasPrefix(lower, "sqlite://"):
		// sqlite:///abs/path keeps the leading slash of the absolute path.
		return sqliteTarget(value[len("sqlite://"):])
	case strings.HasPrefix(lower, "file:"):
		path := strings.TrimPrefix(value[len("file:"):], "//")
		query := ""
		if idx := strings.Index(path, "?"); idx >= 0 {
			path, query = path[:idx], path[idx+1:]
		}
		target := DatabaseTarget{Driver: DriverSQLite, DSN: sqliteDSN("file:"+path, query)}
		if !isMemoryPath(path, query) {
			target.Path = path
		}
		return target, nil
	case strings.Contains(lower, "://"):
		return DatabaseTarget{}, fmt.Errorf("core: unsupported database url scheme in %q", value)
	default:
		return sqliteTarget(value)
	}
}

func sqliteTarget(path string) (DatabaseTarget, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return DatabaseTarget{}, fmt.Errorf("core: sqlite path is required")
	}
	if path == ":memory:" {
		return DatabaseTarget{Driver: DriverSQLite, DSN: sqliteDSN("file::memory:", "cache=shared")}, nil
	}
	return DatabaseTarget{
		Driver: DriverSQLite,
		DSN:    sqliteDSN("file:"+path, ""),
		Path:   path,
	}, nil
}

func sqliteDSN(base string, query string) string {
	values, err := url.ParseQuery(query)
	if err != nil {
		values = url.Values{}
	}
	if values.Get("_foreign_keys") == "" && values.Get("_fk") == "" {
		values.Set("_foreign_keys", "on")
	}
	if values.Get("_busy_timeout") == "" {
		values.Set("_busy_timeout", fmt.Sprint(sqliteBusyTimeout))
	}
	if values.Get("_txlock") == "" && values.Get("mode") != "memory" {
		values.Set("_txlock", "immediate")
	}
	return base + "?" + values.Encode()
}

func isMemoryPath(path string, query string) bool {
	return path == ":memory:" || strings.Contains(query, "mode=memory")
}
