// Package user defines the TaskChain user profile: the identity provider
// subject plus the GitHub account and wallet linked to it.
package user

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrUserNotFound is returned when a user lookup finds no matching record.
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameTaken is returned when a GitHub username is linked to another user.
	ErrUsernameTaken = errors.New("github username already linked to another user")
)

// User represents the domain model for a registered user.
type User struct {
	ID             string    `json:"id"`
	GithubUsername string    `json:"github_username,omitzero"`
	WalletAddress  string    `json:"wallet_address,omitzero"`
	CreatedAt      time.Time `json:"created_at"`
}

// New creates a User for an identity provider subject.
func New(id string) *User {
	return &User{
		ID:        id,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

// HasWallet reports whether a wallet address is linked.
func (u *User) HasWallet() bool {
	return u.WalletAddress != ""
}

// NormalizeUsername lowercases a GitHub login. GitHub logins are case-insensitive.
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "@"))
}

// ProfileRequest updates the caller's profile. Nil fields are left unchanged;
// an empty string unlinks the value.
type ProfileRequest struct {
	GithubUsername *string `json:"github_username" validate:"omitempty,max=39"`
	WalletAddress  *string `json:"wallet_address" validate:"omitempty,eth_addr"`
}
