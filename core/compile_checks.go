package core

import glog "github.com/goliatone/go-logger/glog"

var (
	_ LinkStore = (*Service)(nil)

	_ ServiceError = (*InvalidInputError)(nil)
	_ ServiceError = (*NotFoundError)(nil)
	_ ServiceError = (*IntegrityViolationError)(nil)
	_ ServiceError = (*BackingStoreError)(nil)

	_ ConfigProvider  = (*CfgxConfigProvider)(nil)
	_ OptionsResolver = GoOptionsResolver{}
	_ RawConfigLoader = StaticConfigLoader{}
	_ RawConfigLoader = EnvConfigLoader{}

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
