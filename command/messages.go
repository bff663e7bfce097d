package command

import (
	"strings"

	"github.com/goliatone/go-accountlink/core"
)

const TypeRegisterLink = "accountlink.command.link.register"

// RegisterLinkMessage links Account to PlatformUserID, creating any missing
// row along the way.
type RegisterLinkMessage struct {
	Account        core.RemoteAccount
	PlatformUserID string
}

func (RegisterLinkMessage) Type() string { return TypeRegisterLink }

func (m RegisterLinkMessage) Validate() error {
	if strings.TrimSpace(m.Account.Token) == "" {
		return commandValidationError("token", "token is required")
	}
	if strings.TrimSpace(m.PlatformUserID) == "" {
		return commandValidationError("platform_user_id", "platform user id is required")
	}
	return nil
}
