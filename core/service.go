package core

import (
	"context"
	"fmt"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// Service validates input, observes and maps errors around a LinkStore.
type Service struct {
	config            Config
	logger            Logger
	loggerProvider    LoggerProvider
	metricsRecorder   MetricsRecorder
	errorMapper       ErrorMapper
	configProvider    ConfigProvider
	optionsResolver   OptionsResolver
	persistenceClient any
	store             LinkStore
}

type ServiceDependencies struct {
	Logger            Logger
	LoggerProvider    LoggerProvider
	MetricsRecorder   MetricsRecorder
	ErrorMapper       ErrorMapper
	ConfigProvider    ConfigProvider
	OptionsResolver   OptionsResolver
	PersistenceClient any
	LinkStore         LinkStore
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("accountlink", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("accountlink"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = MapError
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if builder.store == nil && builder.storeFactory != nil {
		store, buildErr := builder.storeFactory.BuildLinkStore(builder.persistenceClient)
		if buildErr != nil {
			return nil, mapBuildError(builder.errorMapper, buildErr)
		}
		builder.store = store
	}
	if builder.store == nil {
		return nil, mapBuildError(builder.errorMapper, fmt.Errorf("core: link store is required"))
	}

	return &Service{
		config:            finalConfig,
		logger:            logger,
		loggerProvider:    provider,
		metricsRecorder:   builder.metricsRecorder,
		errorMapper:       builder.errorMapper,
		configProvider:    builder.configProvider,
		optionsResolver:   builder.optionsResolver,
		persistenceClient: builder.persistenceClient,
		store:             builder.store,
	}, nil
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:            s.logger,
		LoggerProvider:    s.loggerProvider,
		MetricsRecorder:   s.metricsRecorder,
		ErrorMapper:       s.errorMapper,
		ConfigProvider:    s.configProvider,
		OptionsResolver:   s.optionsResolver,
		PersistenceClient: s.persistenceClient,
		LinkStore:         s.store,
	}
}

func (s *Service) RegisterLink(
	ctx context.Context,
	account RemoteAccount,
	platformUserID string,
) (result RegisterLinkResult, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"platform_user_id":  platformUserID,
		"remote_user_id":    account.RemoteUserID,
		"remote_instance":   account.RemoteInstance,
		"token_fingerprint": TokenFingerprint(account.Token),
	}
	defer func() {
		if err == nil {
			fields["remote_account_id"] = result.RemoteAccountID
			fields["link_created"] = result.LinkCreated
			s.recordCreations(ctx, result)
		}
		s.observeOperation(ctx, startedAt, "register_link", err, fields)
	}()

	if s == nil || s.store == nil {
		return RegisterLinkResult{}, s.mapError(fmt.Errorf("core: link store is not configured"))
	}
	if err := account.Validate(); err != nil {
		return RegisterLinkResult{}, s.mapError(err)
	}
	if err := validatePlatformUserID(platformUserID); err != nil {
		return RegisterLinkResult{}, s.mapError(err)
	}

	result, err = s.store.RegisterLink(ctx, account, platformUserID)
	if err != nil {
		return RegisterLinkResult{}, s.mapError(err)
	}
	return result, nil
}

func (s *Service) ListRemoteAccounts(ctx context.Context, platformUserID string) (accounts []LinkedAccount, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"platform_user_id": platformUserID}
	defer func() {
		fields["count"] = len(accounts)
		s.observeOperation(ctx, startedAt, "list_remote_accounts", err, fields)
	}()

	if s == nil || s.store == nil {
		return nil, s.mapError(fmt.Errorf("core: link store is not configured"))
	}
	if err := validatePlatformUserID(platformUserID); err != nil {
		return nil, s.mapError(err)
	}
	accounts, err = s.store.ListRemoteAccounts(ctx, platformUserID)
	if err != nil {
		return nil, s.mapError(err)
	}
	if accounts == nil {
		accounts = []LinkedAccount{}
	}
	return accounts, nil
}

func (s *Service) LookupPlatformUser(ctx context.Context, remoteUserID string) (string, error) {
	return s.LookupPlatformUserOnInstance(ctx, "", remoteUserID)
}

// LookupPlatformUserOnInstance restricts the lookup to one remote instance
// unless remoteInstance is empty. Identifiers are matched exactly.
func (s *Service) LookupPlatformUserOnInstance(
	ctx context.Context,
	remoteInstance string,
	remoteUserID string,
) (platformUserID string, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"remote_user_id":  remoteUserID,
		"remote_instance": remoteInstance,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "lookup_platform_user", err, fields)
	}()

	if s == nil || s.store == nil {
		return "", s.mapError(fmt.Errorf("core: link store is not configured"))
	}
	if err := validateRemoteUserID(remoteUserID); err != nil {
		return "", s.mapError(err)
	}
	if remoteInstance == "" {
		platformUserID, err = s.store.LookupPlatformUser(ctx, remoteUserID)
	} else {
		platformUserID, err = s.store.LookupPlatformUserOnInstance(ctx, remoteInstance, remoteUserID)
	}
	if err != nil {
		return "", s.mapError(err)
	}
	fields["platform_user_id"] = platformUserID
	return platformUserID, nil
}

func (s *Service) IsRemoteUserRegistered(ctx context.Context, remoteUserID string) (registered bool, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"remote_user_id": remoteUserID}
	defer func() {
		fields["registered"] = registered
		s.observeOperation(ctx, startedAt, "is_remote_user_registered", err, fields)
	}()

	if s == nil || s.store == nil {
		return false, s.mapError(fmt.Errorf("core: link store is not configured"))
	}
	if err := validateRemoteUserID(remoteUserID); err != nil {
		return false, s.mapError(err)
	}
	registered, err = s.store.IsRemoteUserRegistered(ctx, remoteUserID)
	if err != nil {
		return false, s.mapError(err)
	}
	return registered, nil
}

// Stats is available when the configured store implements StatsReader.
func (s *Service) Stats(ctx context.Context) (StoreStats, error) {
	if s == nil || s.store == nil {
		return StoreStats{}, s.mapError(fmt.Errorf("core: link store is not configured"))
	}
	reader, ok := s.store.(StatsReader)
	if !ok {
		return StoreStats{}, s.mapError(fmt.Errorf("core: link store does not expose stats"))
	}
	stats, err := reader.Stats(ctx)
	if err != nil {
		return StoreStats{}, s.mapError(err)
	}
	return stats, nil
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}
