package sqlstore

import (
	"time"

	"github.com/goliatone/go-accountlink/core"
	"github.com/uptrace/bun"
)

type remoteAccountRecord struct {
	bun.BaseModel `bun:"table:identity_remote_accounts,alias:ra"`

	ID             string    `bun:"id,pk"`
	Token          string    `bun:"token,notnull"`
	RemoteUserID   string    `bun:"remote_user_id,notnull"`
	RemoteUserName string    `bun:"remote_user_name,notnull"`
	RemoteInstance string    `bun:"remote_instance,notnull"`
	CreatedAt      time.Time `bun:"created_at,notnull"`
}

type platformUserRecord struct {
	bun.BaseModel `bun:"table:identity_platform_users,alias:pu"`

	ID             string    `bun:"id,pk"`
	PlatformUserID string    `bun:"platform_user_id,notnull"`
	CreatedAt      time.Time `bun:"created_at,notnull"`
}

type linkRecord struct {
	bun.BaseModel `bun:"table:identity_links,alias:il"`

	PlatformID string    `bun:"platform_id,pk"`
	RemoteID   string    `bun:"remote_id,pk"`
	LinkedAt   time.Time `bun:"linked_at,notnull"`
}

func newRemoteAccountRecord(account core.RemoteAccount, id string, now time.Time) *remoteAccountRecord {
	return &remoteAccountRecord{
		ID:             id,
		Token:          account.Token,
		RemoteUserID:   account.RemoteUserID,
		RemoteUserName: account.RemoteUserName,
		RemoteInstance: account.RemoteInstance,
		CreatedAt:      now,
	}
}

func (r *remoteAccountRecord) toDomain() core.RemoteAccountRegistration {
	if r == nil {
		return core.RemoteAccountRegistration{}
	}
	return core.RemoteAccountRegistration{
		ID:             r.ID,
		Token:          r.Token,
		RemoteUserID:   r.RemoteUserID,
		RemoteUserName: r.RemoteUserName,
		RemoteInstance: r.RemoteInstance,
		CreatedAt:      r.CreatedAt.UTC(),
	}
}

func (r *remoteAccountRecord) toLinkedAccount() core.LinkedAccount {
	return core.LinkedAccount{
		RemoteUserID:   r.RemoteUserID,
		RemoteInstance: r.RemoteInstance,
		Token:          r.Token,
		RemoteUserName: r.RemoteUserName,
	}
}

func (r *platformUserRecord) toDomain() core.PlatformUser {
	if r == nil {
		return core.PlatformUser{}
	}
	return core.PlatformUser{
		ID:             r.ID,
		PlatformUserID: r.PlatformUserID,
		CreatedAt:      r.CreatedAt.UTC(),
	}
}
