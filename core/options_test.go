package core

import (
	"context"
	"errors"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type fixedConfigProvider struct {
	cfg Config
}

func (p *fixedConfigProvider) Load(context.Context, Config) (Config, error) {
	return p.cfg, nil
}

type fixedOptionsResolver struct {
	cfg Config
}

func (r *fixedOptionsResolver) Resolve(Config, Config, Config) (Config, error) {
	return r.cfg, nil
}

func TestNewService_DefaultDependencies(t *testing.T) {
	svc, err := NewService(Config{}, WithLinkStore(newMemoryLinkStore()))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	deps := svc.Dependencies()
	if deps.Logger == nil {
		t.Fatalf("expected default logger")
	}
	if deps.LoggerProvider == nil {
		t.Fatalf("expected default logger provider")
	}
	if deps.ErrorMapper == nil {
		t.Fatalf("expected default error mapper")
	}
	if deps.ConfigProvider == nil {
		t.Fatalf("expected default config provider")
	}
	if deps.OptionsResolver == nil {
		t.Fatalf("expected default options resolver")
	}
	if deps.MetricsRecorder == nil {
		t.Fatalf("expected default metrics recorder")
	}
	if got := svc.Config().ServiceName; got != "accountlink" {
		t.Fatalf("expected default config service_name=accountlink, got %q", got)
	}
	if got := svc.Config().Database.PingTimeout; got != 5*time.Second {
		t.Fatalf("expected default ping timeout, got %s", got)
	}
}

func TestNewService_RequiresLinkStore(t *testing.T) {
	_, err := NewService(Config{})
	if err == nil {
		t.Fatalf("expected missing link store error")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
}

func TestNewService_WithXOverrides(t *testing.T) {
	customLogger := stubLogger{}
	customProvider := stubLoggerProvider{logger: customLogger}
	sentinel := errors.New("sentinel")
	customMapper := func(error) *goerrors.Error {
		return goerrors.Wrap(sentinel, goerrors.CategoryOperation, "mapped")
	}
	persistenceClient := &struct{ Name string }{Name: "persistence"}
	store := newMemoryLinkStore()
	factory := &staticLinkStoreFactory{store: store}
	configProvider := &fixedConfigProvider{cfg: Config{ServiceName: "from-provider"}}
	optionsResolver := &fixedOptionsResolver{cfg: Config{ServiceName: "resolved"}}
	metrics := &captureMetricsRecorder{}

	svc, err := NewService(Config{ServiceName: "runtime"},
		WithLogger(customLogger),
		WithLoggerProvider(customProvider),
		WithErrorMapper(customMapper),
		WithMetricsRecorder(metrics),
		WithPersistenceClient(persistenceClient),
		WithLinkStoreFactory(factory),
		WithConfigProvider(configProvider),
		WithOptionsResolver(optionsResolver),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	deps := svc.Dependencies()
	if deps.Logger != customLogger {
		t.Fatalf("expected custom logger override")
	}
	if resolved := deps.LoggerProvider.GetLogger("accountlink.override"); resolved != customLogger {
		t.Fatalf("expected logger provider to resolve custom logger")
	}
	if deps.PersistenceClient != persistenceClient {
		t.Fatalf("expected custom persistence client override")
	}
	if factory.seen != persistenceClient {
		t.Fatalf("expected factory to receive persistence client")
	}
	if deps.LinkStore != store {
		t.Fatalf("expected factory-built link store")
	}
	if deps.ConfigProvider != configProvider {
		t.Fatalf("expected custom config provider override")
	}
	if deps.OptionsResolver != optionsResolver {
		t.Fatalf("expected custom options resolver override")
	}
	if deps.MetricsRecorder != metrics {
		t.Fatalf("expected custom metrics recorder override")
	}
	if got := svc.Config().ServiceName; got != "resolved" {
		t.Fatalf("expected options resolver output config, got %q", got)
	}
}

func TestNewService_ExplicitStoreWinsOverFactory(t *testing.T) {
	explicit := newMemoryLinkStore()
	factory := &staticLinkStoreFactory{err: errors.New("should not be called")}
	svc, err := NewService(Config{}, WithLinkStore(explicit), WithLinkStoreFactory(factory))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if svc.Dependencies().LinkStore != explicit {
		t.Fatalf("expected explicit link store")
	}
}

func TestNewService_FactoryErrorIsMapped(t *testing.T) {
	factory := &staticLinkStoreFactory{err: NewBackingStoreError("open", errors.New("dial tcp: refused"))}
	_, err := NewService(Config{}, WithLinkStoreFactory(factory))
	if err == nil {
		t.Fatalf("expected factory error")
	}
	if !IsBackingStoreUnavailable(err) {
		t.Fatalf("expected backing store classification, got %v", err)
	}
}

func TestNewService_ConfigLayeringPrecedence(t *testing.T) {
	provider := NewCfgxConfigProvider(mapRawLoader{values: map[string]any{
		"service_name": "from-config",
		"database": map[string]any{
			"url":   "/tmp/from-config.sqlite3",
			"debug": true,
		},
	}})

	svc, err := NewService(Config{ServiceName: "from-runtime"},
		WithConfigProvider(provider),
		WithLinkStore(newMemoryLinkStore()),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	cfg := svc.Config()
	if cfg.ServiceName != "from-runtime" {
		t.Fatalf("expected runtime value to override config/default, got %q", cfg.ServiceName)
	}
	if cfg.Database.URL != "/tmp/from-config.sqlite3" {
		t.Fatalf("expected config layer database url, got %q", cfg.Database.URL)
	}
	if !cfg.Database.Debug {
		t.Fatalf("expected config layer debug flag")
	}
}

func TestNewService_RejectsInvalidDatabaseURL(t *testing.T) {
	_, err := NewService(Config{Database: DatabaseConfig{URL: "mysql://db/accounts"}},
		WithLinkStore(newMemoryLinkStore()),
	)
	if err == nil {
		t.Fatalf("expected unsupported scheme to fail validation")
	}
}

func TestEnvConfigLoader_ReadsAccountlinkVariables(t *testing.T) {
	loader := EnvConfigLoader{Environment: map[string]string{
		"ACCOUNTLINK_DB_PATH":           "postgres://bridge@localhost/accounts",
		"ACCOUNTLINK_DB_DEBUG":          "true",
		"ACCOUNTLINK_DB_PING_TIMEOUT":   "2s",
		"ACCOUNTLINK_DB_MAX_OPEN_CONNS": "4",
		"ACCOUNTLINK_SERVICE_NAME":      "bridge",
	}}
	raw, err := loader.LoadRaw(context.Background())
	if err != nil {
		t.Fatalf("load env: %v", err)
	}
	if raw["service_name"] != "bridge" {
		t.Fatalf("expected service name from env, got %#v", raw["service_name"])
	}
	database, ok := raw["database"].(map[string]any)
	if !ok {
		t.Fatalf("expected nested database layer, got %#v", raw["database"])
	}
	if database["url"] != "postgres://bridge@localhost/accounts" {
		t.Fatalf("unexpected url %#v", database["url"])
	}
	if database["debug"] != true {
		t.Fatalf("expected debug flag")
	}
	if database["ping_timeout"] != 2*time.Second {
		t.Fatalf("unexpected ping timeout %#v", database["ping_timeout"])
	}
	if database["max_open_conns"] != 4 {
		t.Fatalf("unexpected max open conns %#v", database["max_open_conns"])
	}
}

func TestEnvConfigLoader_EmptyEnvironmentYieldsEmptyLayer(t *testing.T) {
	raw, err := EnvConfigLoader{Environment: map[string]string{}}.LoadRaw(context.Background())
	if err != nil {
		t.Fatalf("load env: %v", err)
	}
	if len(raw) != 0 {
		t.Fatalf("expected empty layer, got %#v", raw)
	}
}

func TestEnvConfigLoader_RejectsMalformedValues(t *testing.T) {
	_, err := EnvConfigLoader{Environment: map[string]string{
		"ACCOUNTLINK_DB_DEBUG": "not-a-bool",
	}}.LoadRaw(context.Background())
	if err == nil {
		t.Fatalf("expected parse error")
	}
}
