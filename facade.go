package accountlink

import (
	"fmt"

	linkcommand "github.com/goliatone/go-accountlink/command"
	"github.com/goliatone/go-accountlink/core"
	linkquery "github.com/goliatone/go-accountlink/query"
)

type CommandQueryService interface {
	linkcommand.LinkRegistrar
	linkquery.RemoteAccountLister
	linkquery.PlatformUserResolver
	linkquery.RegistrationChecker
}

type Commands struct {
	RegisterLink *linkcommand.RegisterLinkCommand
}

type Queries struct {
	ListRemoteAccounts     *linkquery.ListRemoteAccountsQuery
	LookupPlatformUser     *linkquery.LookupPlatformUserQuery
	IsRemoteUserRegistered *linkquery.IsRemoteUserRegisteredQuery
	// Stats is nil unless the service or WithStatsReader supplies a reader.
	Stats *linkquery.StoreStatsQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	statsReader core.StatsReader
}

func WithStatsReader(reader core.StatsReader) FacadeOption {
	return func(options *facadeOptions) {
		options.statsReader = reader
	}
}

func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("accountlink: command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	reader := cfg.statsReader
	if reader == nil {
		if candidate, ok := service.(core.StatsReader); ok {
			reader = candidate
		}
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		RegisterLink: linkcommand.NewRegisterLinkCommand(service),
	}
	facade.queries = Queries{
		ListRemoteAccounts:     linkquery.NewListRemoteAccountsQuery(service),
		LookupPlatformUser:     linkquery.NewLookupPlatformUserQuery(service),
		IsRemoteUserRegistered: linkquery.NewIsRemoteUserRegisteredQuery(service),
	}
	if reader != nil {
		facade.queries.Stats = linkquery.NewStoreStatsQuery(reader)
	}
	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}

var _ CommandQueryService = (*core.Service)(nil)
