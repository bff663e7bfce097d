package sqlstore

import (
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

func remoteAccountHandlers() repository.ModelHandlers[*remoteAccountRecord] {
	return repository.ModelHandlers[*remoteAccountRecord]{
		NewRecord: func() *remoteAccountRecord {
			return &remoteAccountRecord{}
		},
		GetID: func(record *remoteAccountRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *remoteAccountRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "token"
		},
		GetIdentifierValue: func(record *remoteAccountRecord) string {
			if record == nil {
				return ""
			}
			return record.Token
		},
	}
}

func platformUserHandlers() repository.ModelHandlers[*platformUserRecord] {
	return repository.ModelHandlers[*platformUserRecord]{
		NewRecord: func() *platformUserRecord {
			return &platformUserRecord{}
		},
		GetID: func(record *platformUserRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *platformUserRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "platform_user_id"
		},
		GetIdentifierValue: func(record *platformUserRecord) string {
			if record == nil {
				return ""
			}
			return record.PlatformUserID
		},
	}
}

func parseUUID(value string) uuid.UUID {
	parsed, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil
	}
	return parsed
}
