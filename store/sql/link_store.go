package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-accountlink/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// LinkStore persists identity links in three tables. Every write runs in one
// transaction and relies on ON CONFLICT DO NOTHING so that concurrent first
// registrations converge on the row that won the insert.
type LinkStore struct {
	db           *bun.DB
	remoteRepo   repository.Repository[*remoteAccountRecord]
	platformRepo repository.Repository[*platformUserRecord]
	now          func() time.Time
	newID        func() string
}

type LinkStoreOption func(*LinkStore)

// WithClock overrides the time source used for created_at and linked_at.
func WithClock(now func() time.Time) LinkStoreOption {
	return func(s *LinkStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides surrogate id generation.
func WithIDGenerator(newID func() string) LinkStoreOption {
	return func(s *LinkStore) {
		if newID != nil {
			s.newID = newID
		}
	}
}

func NewLinkStore(db *bun.DB, opts ...LinkStoreOption) (*LinkStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	remoteRepo := repository.NewRepository[*remoteAccountRecord](db, remoteAccountHandlers())
	if validator, ok := remoteRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid remote account repository wiring: %w", err)
		}
	}
	platformRepo := repository.NewRepository[*platformUserRecord](db, platformUserHandlers())
	if validator, ok := platformRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid platform user repository wiring: %w", err)
		}
	}
	store := &LinkStore{
		db:           db,
		remoteRepo:   remoteRepo,
		platformRepo: platformRepo,
		now:          func() time.Time { return time.Now().UTC() },
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(store)
	}
	return store, nil
}

func (s *LinkStore) DB() *bun.DB {
	if s == nil {
		return nil
	}
	return s.db
}

func (s *LinkStore) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *LinkStore) RegisterLink(
	ctx context.Context,
	account core.RemoteAccount,
	platformUserID string,
) (core.RegisterLinkResult, error) {
	if s == nil || s.db == nil {
		return core.RegisterLinkResult{}, fmt.Errorf("sqlstore: link store is not configured")
	}
	if err := account.Validate(); err != nil {
		return core.RegisterLinkResult{}, err
	}
	if err := core.ValidatePlatformUserID(platformUserID); err != nil {
		return core.RegisterLinkResult{}, err
	}
	now := s.timestamp()

	var result core.RegisterLinkResult
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		remote, remoteCreated, err := s.getOrCreateRemoteAccountTx(ctx, tx, account, now)
		if err != nil {
			return err
		}
		user, userCreated, err := s.getOrCreatePlatformUserTx(ctx, tx, platformUserID, now)
		if err != nil {
			return err
		}
		linkCreated, err := ensureLinkTx(ctx, tx, user.ID, remote.ID, now)
		if err != nil {
			return err
		}
		result = core.RegisterLinkResult{
			RemoteAccountID:      remote.ID,
			PlatformID:           user.ID,
			RemoteUserID:         remote.RemoteUserID,
			RemoteInstance:       remote.RemoteInstance,
			RemoteAccountCreated: remoteCreated,
			PlatformUserCreated:  userCreated,
			LinkCreated:          linkCreated,
		}
		return nil
	})
	if err != nil {
		return core.RegisterLinkResult{}, classifyError("register_link", err)
	}
	return result, nil
}

// ListRemoteAccounts creates the platform user when it is missing, so a first
// read for an id leaves the same row a later RegisterLink reuses.
func (s *LinkStore) ListRemoteAccounts(ctx context.Context, platformUserID string) ([]core.LinkedAccount, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: link store is not configured")
	}
	if err := core.ValidatePlatformUserID(platformUserID); err != nil {
		return nil, err
	}
	now := s.timestamp()

	out := []core.LinkedAccount{}
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, _, err := s.getOrCreatePlatformUserTx(ctx, tx, platformUserID, now)
		if err != nil {
			return err
		}
		records := []*remoteAccountRecord{}
		if err := tx.NewSelect().
			Model(&records).
			Join("JOIN identity_links AS il ON il.remote_id = ra.id").
			Where("il.platform_id = ?", user.ID).
			OrderExpr("il.linked_at ASC").
			OrderExpr("ra.id ASC").
			Scan(ctx); err != nil {
			return err
		}
		for _, record := range records {
			out = append(out, record.toLinkedAccount())
		}
		return nil
	})
	if err != nil {
		return nil, classifyError("list_remote_accounts", err)
	}
	return out, nil
}

func (s *LinkStore) LookupPlatformUser(ctx context.Context, remoteUserID string) (string, error) {
	return s.LookupPlatformUserOnInstance(ctx, "", remoteUserID)
}

// LookupPlatformUserOnInstance resolves the platform user linked to a remote
// user id, matched exactly. When several links match, the most recently linked wins, then the
// most recently created registration, then the lowest platform user id.
func (s *LinkStore) LookupPlatformUserOnInstance(
	ctx context.Context,
	remoteInstance string,
	remoteUserID string,
) (string, error) {
	if s == nil || s.db == nil {
		return "", fmt.Errorf("sqlstore: link store is not configured")
	}
	if err := core.ValidateRemoteUserID(remoteUserID); err != nil {
		return "", err
	}

	query := s.db.NewSelect().
		TableExpr("identity_links AS il").
		ColumnExpr("pu.platform_user_id").
		Join("JOIN identity_platform_users AS pu ON pu.id = il.platform_id").
		Join("JOIN identity_remote_accounts AS ra ON ra.id = il.remote_id").
		Where("ra.remote_user_id = ?", remoteUserID)
	if remoteInstance != "" {
		query = query.Where("ra.remote_instance = ?", remoteInstance)
	}

	var platformUserID string
	err := query.
		OrderExpr("il.linked_at DESC").
		OrderExpr("ra.created_at DESC").
		OrderExpr("pu.platform_user_id ASC").
		Limit(1).
		Scan(ctx, &platformUserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", core.NewNotFound(remoteInstance, remoteUserID)
		}
		return "", classifyError("lookup_platform_user", err)
	}
	return platformUserID, nil
}

func (s *LinkStore) IsRemoteUserRegistered(ctx context.Context, remoteUserID string) (bool, error) {
	if s == nil || s.remoteRepo == nil {
		return false, fmt.Errorf("sqlstore: link store is not configured")
	}
	if err := core.ValidateRemoteUserID(remoteUserID); err != nil {
		return false, err
	}
	records, _, err := s.remoteRepo.List(ctx,
		repository.SelectBy("remote_user_id", "=", remoteUserID),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return false, classifyError("is_remote_user_registered", err)
	}
	return len(records) > 0, nil
}

// FindRemoteAccount returns the registration stored for token.
func (s *LinkStore) FindRemoteAccount(ctx context.Context, token string) (core.RemoteAccountRegistration, bool, error) {
	if s == nil || s.remoteRepo == nil {
		return core.RemoteAccountRegistration{}, false, fmt.Errorf("sqlstore: link store is not configured")
	}
	records, _, err := s.remoteRepo.List(ctx,
		repository.SelectBy("token", "=", token),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.RemoteAccountRegistration{}, false, classifyError("find_remote_account", err)
	}
	if len(records) == 0 {
		return core.RemoteAccountRegistration{}, false, nil
	}
	return records[0].toDomain(), true, nil
}

func (s *LinkStore) FindPlatformUser(ctx context.Context, platformUserID string) (core.PlatformUser, bool, error) {
	if s == nil || s.platformRepo == nil {
		return core.PlatformUser{}, false, fmt.Errorf("sqlstore: link store is not configured")
	}
	records, _, err := s.platformRepo.List(ctx,
		repository.SelectBy("platform_user_id", "=", platformUserID),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.PlatformUser{}, false, classifyError("find_platform_user", err)
	}
	if len(records) == 0 {
		return core.PlatformUser{}, false, nil
	}
	return records[0].toDomain(), true, nil
}

func (s *LinkStore) Stats(ctx context.Context) (core.StoreStats, error) {
	if s == nil || s.db == nil {
		return core.StoreStats{}, fmt.Errorf("sqlstore: link store is not configured")
	}
	var stats core.StoreStats
	counts := []struct {
		model any
		dest  *int
	}{
		{model: (*remoteAccountRecord)(nil), dest: &stats.RemoteAccounts},
		{model: (*platformUserRecord)(nil), dest: &stats.PlatformUsers},
		{model: (*linkRecord)(nil), dest: &stats.Links},
	}
	for _, item := range counts {
		count, err := s.db.NewSelect().Model(item.model).Count(ctx)
		if err != nil {
			return core.StoreStats{}, classifyError("stats", err)
		}
		*item.dest = count
	}
	return stats, nil
}

func (s *LinkStore) getOrCreateRemoteAccountTx(
	ctx context.Context,
	tx bun.Tx,
	account core.RemoteAccount,
	now time.Time,
) (*remoteAccountRecord, bool, error) {
	record := newRemoteAccountRecord(account, s.newID(), now)
	res, err := tx.NewInsert().
		Model(record).
		On("CONFLICT (token) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, false, err
	}
	if inserted(res) {
		return record, true, nil
	}

	existing := &remoteAccountRecord{}
	err = tx.NewSelect().
		Model(existing).
		Where("?TableAlias.token = ?", account.Token).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, core.NewIntegrityViolation("register_link",
				fmt.Errorf("remote account insert conflicted but no row holds the token"))
		}
		return nil, false, err
	}
	return existing, false, nil
}

func (s *LinkStore) getOrCreatePlatformUserTx(
	ctx context.Context,
	tx bun.Tx,
	platformUserID string,
	now time.Time,
) (*platformUserRecord, bool, error) {
	record := &platformUserRecord{
		ID:             s.newID(),
		PlatformUserID: platformUserID,
		CreatedAt:      now,
	}
	res, err := tx.NewInsert().
		Model(record).
		On("CONFLICT (platform_user_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, false, err
	}
	if inserted(res) {
		return record, true, nil
	}

	existing := &platformUserRecord{}
	err = tx.NewSelect().
		Model(existing).
		Where("?TableAlias.platform_user_id = ?", platformUserID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, core.NewIntegrityViolation("register_link",
				fmt.Errorf("platform user insert conflicted but no row holds the id"))
		}
		return nil, false, err
	}
	return existing, false, nil
}

func ensureLinkTx(ctx context.Context, tx bun.Tx, platformID string, remoteID string, now time.Time) (bool, error) {
	res, err := tx.NewInsert().
		Model(&linkRecord{PlatformID: platformID, RemoteID: remoteID, LinkedAt: now}).
		On("CONFLICT (platform_id, remote_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, err
	}
	return inserted(res), nil
}

func inserted(res sql.Result) bool {
	if res == nil {
		return false
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false
	}
	return affected > 0
}
