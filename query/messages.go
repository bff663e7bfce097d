package query

import "strings"

const (
	TypeListRemoteAccounts     = "accountlink.query.remote_accounts.list"
	TypeLookupPlatformUser     = "accountlink.query.platform_user.lookup"
	TypeIsRemoteUserRegistered = "accountlink.query.remote_user.registered"
	TypeStoreStats             = "accountlink.query.stats"
)

type ListRemoteAccountsMessage struct {
	PlatformUserID string
}

func (ListRemoteAccountsMessage) Type() string { return TypeListRemoteAccounts }

func (m ListRemoteAccountsMessage) Validate() error {
	if strings.TrimSpace(m.PlatformUserID) == "" {
		return queryValidationError("platform_user_id", "platform user id is required")
	}
	return nil
}

// LookupPlatformUserMessage resolves RemoteUserID across every instance when
// RemoteInstance is empty.
type LookupPlatformUserMessage struct {
	RemoteInstance string
	RemoteUserID   string
}

func (LookupPlatformUserMessage) Type() string { return TypeLookupPlatformUser }

func (m LookupPlatformUserMessage) Validate() error {
	if strings.TrimSpace(m.RemoteUserID) == "" {
		return queryValidationError("remote_user_id", "remote user id is required")
	}
	return nil
}

type IsRemoteUserRegisteredMessage struct {
	RemoteUserID string
}

func (IsRemoteUserRegisteredMessage) Type() string { return TypeIsRemoteUserRegistered }

func (m IsRemoteUserRegisteredMessage) Validate() error {
	if strings.TrimSpace(m.RemoteUserID) == "" {
		return queryValidationError("remote_user_id", "remote user id is required")
	}
	return nil
}

type StoreStatsMessage struct{}

func (StoreStatsMessage) Type() string { return TypeStoreStats }

func (StoreStatsMessage) Validate() error { return nil }
