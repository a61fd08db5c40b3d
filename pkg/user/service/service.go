// Package service implements the caller profile operations behind GET/PUT /me.
package service

import (
	"context"
	"errors"

	apperrors "github.com/taskchain/taskchain/pkg/app/errors"
	"github.com/taskchain/taskchain/pkg/auth"
	"github.com/taskchain/taskchain/pkg/user"
)

// Store is the narrow data-access interface for the profile service.
type Store interface {
	EnsureUser(ctx context.Context, id string) (*user.User, error)
	SaveUser(ctx context.Context, usr *user.User) error
}

// Service defines the interface for the profile business logic
type Service interface {
	GetProfile(ctx context.Context, userID string) (*user.User, error)
	UpdateProfile(ctx context.Context, userID string, req *user.ProfileRequest) (*user.User, error)
}

type profileService struct {
	store Store
}

// NewService creates a new profile service
func NewService(store Store) Service {
	return &profileService{store: store}
}

// GetProfile returns the caller's profile, creating an empty one on first use.
func (s *profileService) GetProfile(ctx context.Context, userID string) (*user.User, error) {
	usr, err := s.store.EnsureUser(ctx, userID)
	if err != nil {
		return nil, apperrors.FromStore(err)
	}
	return usr, nil
}

// UpdateProfile links or unlinks the caller's GitHub username and wallet address.
func (s *profileService) UpdateProfile(ctx context.Context, userID string, req *user.ProfileRequest) (*user.User, error) {
	usr, err := s.store.EnsureUser(ctx, userID)
	if err != nil {
		return nil, apperrors.FromStore(err)
	}

	if req.GithubUsername != nil {
		usr.GithubUsername = user.NormalizeUsername(*req.GithubUsername)
	}
	if req.WalletAddress != nil {
		usr.WalletAddress = ""
		if *req.WalletAddress != "" {
			addr, err := auth.NormalizeAddress(*req.WalletAddress)
			if err != nil {
				return nil, apperrors.BadRequestError(err, "invalid wallet address")
			}
			usr.WalletAddress = addr
		}
	}

	if err := s.store.SaveUser(ctx, usr); err != nil {
		if errors.Is(err, user.ErrUsernameTaken) {
			return nil, apperrors.ConflictError(err, "github username already linked to another user")
		}
		return nil, apperrors.FromStore(err)
	}
	return usr, nil
}
