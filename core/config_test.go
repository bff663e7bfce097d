package core

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveDatabase(t *testing.T) {
	cases := []struct {
		name   string
		raw    string
		driver string
		dsn    string
		path   string
	}{
		{
			name:   "postgres url",
			raw:    "postgres://bridge@localhost:5432/accounts?sslmode=disable",
			driver: DriverPostgres,
			dsn:    "postgres://bridge@localhost:5432/accounts?sslmode=disable",
		},
		{
			name:   "postgresql url",
			raw:    "postgresql://bridge@localhost/accounts",
			driver: DriverPostgres,
			dsn:    "postgresql://bridge@localhost/accounts",
		},
		{
			name:   "bare path",
			raw:    "/var/lib/accountlink/db.sqlite3",
			driver: DriverSQLite,
			dsn:    "file:/var/lib/accountlink/db.sqlite3?_busy_timeout=5000&_foreign_keys=on&_txlock=immediate",
			path:   "/var/lib/accountlink/db.sqlite3",
		},
		{
			name:   "sqlite url with absolute path",
			raw:    "sqlite:///data/db.sqlite3",
			driver: DriverSQLite,
			dsn:    "file:/data/db.sqlite3?_busy_timeout=5000&_foreign_keys=on&_txlock=immediate",
			path:   "/data/db.sqlite3",
		},
		{
			name:   "memory",
			raw:    ":memory:",
			driver: DriverSQLite,
			dsn:    "file::memory:?_busy_timeout=5000&_foreign_keys=on&_txlock=immediate&cache=shared",
		},
		{
			name:   "file url keeps query",
			raw:    "file:links?mode=memory&cache=shared",
			driver: DriverSQLite,
			dsn:    "file:links?_busy_timeout=5000&_foreign_keys=on&cache=shared&mode=memory",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			target, err := ResolveDatabase(tc.raw)
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if target.Driver != tc.driver {
				t.Fatalf("expected driver %q, got %q", tc.driver, target.Driver)
			}
			if target.DSN != tc.dsn {
				t.Fatalf("expected dsn %q, got %q", tc.dsn, target.DSN)
			}
			if target.Path != tc.path {
				t.Fatalf("expected path %q, got %q", tc.path, target.Path)
			}
		})
	}
}

func TestResolveDatabase_UnsupportedScheme(t *testing.T) {
	if _, err := ResolveDatabase("mysql://localhost/accounts"); err == nil {
		t.Fatalf("expected unsupported scheme error")
	}
}

func TestResolveDatabase_EmptyUsesDefaultPath(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/srv/data")
	target, err := ResolveDatabase("  ")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := filepath.Join("/srv/data", "accountlink", "bridges", "gitlab", "db.sqlite3")
	if target.Path != want {
		t.Fatalf("expected default path %q, got %q", want, target.Path)
	}
	if !target.IsSQLite() {
		t.Fatalf("expected sqlite target")
	}
}

func TestDefaultDatabasePath_FallsBackToHome(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "")
	t.Setenv("HOME", "/home/bridge")
	got := DefaultDatabasePath()
	if !strings.HasPrefix(got, filepath.Join("/home/bridge", ".local", "share")) {
		t.Fatalf("expected home based path, got %q", got)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Database.URL = ":memory:"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected default config to validate: %v", err)
	}
	cfg.ServiceName = " "
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected missing service name error")
	}
	cfg = DefaultConfig()
	cfg.Database.MaxOpenConns = -1
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected negative max open conns error")
	}
}
