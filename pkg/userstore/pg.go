// Package userstore persists TaskChain user profiles in PostgreSQL.
package userstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"github.com/taskchain/taskchain/pkg/pgutil"
	"github.com/taskchain/taskchain/pkg/user"
)

type pgStore struct {
	db *bun.DB
}

// NewStore creates a new postgres implementation of the user store
func NewStore(db *bun.DB) *pgStore {
	return &pgStore{db: db}
}

// EnsureUser inserts a bare profile for id when none exists and returns the stored profile.
func (s *pgStore) EnsureUser(ctx context.Context, id string) (*user.User, error) {
	_, err := s.db.NewInsert().
		Model(toUserDao(user.New(id))).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, pgutil.WrapError("failed to ensure user", err)
	}
	return s.GetUser(ctx, id)
}

// SaveUser inserts or replaces the linked accounts of usr.
func (s *pgStore) SaveUser(ctx context.Context, usr *user.User) error {
	_, err := s.db.NewInsert().
		Model(toUserDao(usr)).
		On("CONFLICT (id) DO UPDATE").
		Set("github_username = EXCLUDED.github_username").
		Set("wallet_address = EXCLUDED.wallet_address").
		Exec(ctx)
	if err != nil {
		if pgutil.IsUniqueViolation(err) {
			return user.ErrUsernameTaken
		}
		return pgutil.WrapError("failed to save user", err)
	}
	return nil
}

func (s *pgStore) GetUser(ctx context.Context, id string) (*user.User, error) {
	return s.getUser(ctx, "u.id = ?", id)
}

func (s *pgStore) GetUserByGithubUsername(ctx context.Context, username string) (*user.User, error) {
	return s.getUser(ctx, "u.github_username = ?", user.NormalizeUsername(username))
}

func (s *pgStore) getUser(ctx context.Context, where string, arg any) (*user.User, error) {
	dao := new(UserDao)
	err := s.db.NewSelect().
		Model(dao).
		Where(where, arg).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, user.ErrUserNotFound
		}
		return nil, pgutil.WrapError("failed to get user", err)
	}
	return fromUserDao(dao), nil
}

// ListUsersByIDs returns the profiles for ids that exist, keyed by id.
func (s *pgStore) ListUsersByIDs(ctx context.Context, ids []string) (map[string]*user.User, error) {
	out := make(map[string]*user.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var daos []UserDao
	err := s.db.NewSelect().
		Model(&daos).
		Where("u.id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, pgutil.WrapError("failed to list users", err)
	}
	for i := range daos {
		out[daos[i].ID] = fromUserDao(&daos[i])
	}
	return out, nil
}
