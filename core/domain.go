package core

import (
	"strings"
	"time"
)

// RemoteAccount describes an account on the remote service as supplied by the
// caller when a platform user connects it. Token is the natural key and is
// stored byte for byte; "abc" and "abc " are different credentials.
type RemoteAccount struct {
	Token          string
	RemoteUserID   string
	RemoteUserName string
	RemoteInstance string
}

// Validate rejects empty and whitespace-only tokens.
func (a RemoteAccount) Validate() error {
	if strings.TrimSpace(a.Token) == "" {
		return invalidInput("token", "token is required")
	}
	return nil
}

// RemoteAccountRegistration is the persisted form of a RemoteAccount.
type RemoteAccountRegistration struct {
	ID             string
	Token          string
	RemoteUserID   string
	RemoteUserName string
	RemoteInstance string
	CreatedAt      time.Time
}

type PlatformUser struct {
	ID             string
	PlatformUserID string
	CreatedAt      time.Time
}

type Link struct {
	PlatformID string
	RemoteID   string
	LinkedAt   time.Time
}

// LinkedAccount is one remote account reachable from a platform user.
type LinkedAccount struct {
	RemoteUserID   string
	RemoteInstance string
	Token          string
	RemoteUserName string
}

const (
	LinkedAccountFieldUserID   = "user_id"
	LinkedAccountFieldInstance = "instance"
	LinkedAccountFieldToken    = "token"
	LinkedAccountFieldUserName = "user_name"
)

// Fields returns the stable key/value shape consumed by response shaping code.
func (a LinkedAccount) Fields() map[string]string {
	return map[string]string{
		LinkedAccountFieldUserID:   a.RemoteUserID,
		LinkedAccountFieldInstance: a.RemoteInstance,
		LinkedAccountFieldToken:    a.Token,
		LinkedAccountFieldUserName: a.RemoteUserName,
	}
}

func (a LinkedAccount) RemoteAccount() RemoteAccount {
	return RemoteAccount{
		Token:          a.Token,
		RemoteUserID:   a.RemoteUserID,
		RemoteUserName: a.RemoteUserName,
		RemoteInstance: a.RemoteInstance,
	}
}

// RegisterLinkResult reports the rows a registration touched.
// RemoteUserID and RemoteInstance are the stored values, which keep their
// first-seen form when the token was already registered.
type RegisterLinkResult struct {
	RemoteAccountID      string
	PlatformID           string
	RemoteUserID         string
	RemoteInstance       string
	RemoteAccountCreated bool
	PlatformUserCreated  bool
	LinkCreated          bool
}

// Created reports whether the call added any row.
func (r RegisterLinkResult) Created() bool {
	return r.RemoteAccountCreated || r.PlatformUserCreated || r.LinkCreated
}

type StoreStats struct {
	RemoteAccounts int
	PlatformUsers  int
	Links          int
}

func validatePlatformUserID(platformUserID string) error {
	if strings.TrimSpace(platformUserID) == "" {
		return invalidInput("platform_user_id", "platform user id is required")
	}
	return nil
}

func validateRemoteUserID(remoteUserID string) error {
	if strings.TrimSpace(remoteUserID) == "" {
		return invalidInput("remote_user_id", "remote user id is required")
	}
	return nil
}

// ValidatePlatformUserID is exported for store implementations.
func ValidatePlatformUserID(platformUserID string) error {
	return validatePlatformUserID(platformUserID)
}

func ValidateRemoteUserID(remoteUserID string) error {
	return validateRemoteUserID(remoteUserID)
}
