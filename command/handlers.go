package command

import (
	"context"

	"github.com/goliatone/go-accountlink/core"
	gocmd "github.com/goliatone/go-command"
)

type LinkRegistrar interface {
	RegisterLink(ctx context.Context, account core.RemoteAccount, platformUserID string) (core.RegisterLinkResult, error)
}

type RegisterLinkCommand struct {
	service LinkRegistrar
}

func NewRegisterLinkCommand(service LinkRegistrar) *RegisterLinkCommand {
	return &RegisterLinkCommand{service: service}
}

// Execute stores the core.RegisterLinkResult in the context result collector
// when one is present.
func (c *RegisterLinkCommand) Execute(ctx context.Context, msg RegisterLinkMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: link registrar is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	out, err := c.service.RegisterLink(ctx, msg.Account, msg.PlatformUserID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
