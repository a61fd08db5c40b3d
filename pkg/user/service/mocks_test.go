package service

import (
	"context"

	"github.com/taskchain/taskchain/pkg/user"
)

// mockStore is an in-memory Store.
type mockStore struct {
	users   map[string]*user.User
	SaveErr error
}

func newMockStore() *mockStore {
	return &mockStore{users: map[string]*user.User{}}
}

func (m *mockStore) EnsureUser(_ context.Context, id string) (*user.User, error) {
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	u := user.New(id)
	m.users[id] = u
	cp := *u
	return &cp, nil
}

func (m *mockStore) SaveUser(_ context.Context, usr *user.User) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	cp := *usr
	m.users[usr.ID] = &cp
	return nil
}
