// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package accounttest provides an in-memory [account.Store] that shares its
// rows with the memory backends of the principal repositories.
package accounttest

import (
	"context"
	"strings"
	"sync"

	"github.com/taibuivan/backoffice/internal/access/rbac"
	"github.com/taibuivan/backoffice/internal/platform/apperr"
	"github.com/taibuivan/backoffice/internal/platform/repository"
	"github.com/taibuivan/backoffice/internal/platform/repository/repositorytest"
	"github.com/taibuivan/backoffice/internal/platform/sec"
	"github.com/taibuivan/backoffice/internal/users/account"
	"github.com/taibuivan/backoffice/pkg/uuid"
)

// Store is a fake [account.Store].
type Store struct {
	Users  *repositorytest.MemoryBackend[*account.User]
	Admins *repositorytest.MemoryBackend[*account.Admin]

	// FailRecord, when set, is returned by RecordLogin.
	FailRecord error

	mu     sync.Mutex
	logins map[string]account.LoginRecord
}

// NewStore returns a store with empty backends.
func NewStore() *Store {
	return &Store{
		Users:  repositorytest.NewMemoryBackend(account.UserDescriptor),
		Admins: repositorytest.NewMemoryBackend(account.AdminDescriptor),
		logins: map[string]account.LoginRecord{},
	}
}

// # Fixtures

// AddUser seeds an end user with the given credentials.
func (store *Store) AddUser(username, password string, status account.Status) *account.User {
	user := &account.User{Profile: profile(username, password, status)}
	store.Users.Seed(user)
	return user
}

// AddAdmin seeds an operator with the given credentials.
func (store *Store) AddAdmin(username, password string, status account.Status) *account.Admin {
	admin := &account.Admin{Profile: profile(username, password, status)}
	store.Admins.Seed(admin)
	return admin
}

func profile(username, password string, status account.Status) account.Profile {
	hashed, err := sec.HashPassword(password)
	if err != nil {
		panic(err)
	}
	return account.Profile{
		ID:           uuid.New(),
		Name:         strings.ToUpper(username[:1]) + username[1:],
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hashed,
		Status:       status,
	}
}

// LastLogin returns the metadata recorded for a principal, if any.
func (store *Store) LastLogin(guard rbac.Guard, id string) (account.LoginRecord, bool) {
	store.mu.Lock()
	defer store.mu.Unlock()
	record, ok := store.logins[guard.String()+":"+id]
	return record, ok
}

// # account.Store

func (store *Store) profiles(ctx context.Context, guard rbac.Guard) ([]*account.Profile, error) {
	criteria := repository.Criteria{SortField: "created_at"}

	if guard == rbac.GuardAdmin {
		admins, _, err := store.Admins.List(ctx, criteria)
		if err != nil {
			return nil, err
		}
		profiles := make([]*account.Profile, 0, len(admins))
		for _, admin := range admins {
			profiles = append(profiles, admin.Base())
		}
		return profiles, nil
	}

	users, _, err := store.Users.List(ctx, criteria)
	if err != nil {
		return nil, err
	}
	profiles := make([]*account.Profile, 0, len(users))
	for _, user := range users {
		profiles = append(profiles, user.Base())
	}
	return profiles, nil
}

func (store *Store) FindByLogin(ctx context.Context, guard rbac.Guard, login string) (*account.Profile, error) {
	profiles, err := store.profiles(ctx, guard)
	if err != nil {
		return nil, err
	}
	for _, candidate := range profiles {
		if strings.EqualFold(candidate.Email, login) || strings.EqualFold(candidate.Username, login) {
			return candidate, nil
		}
	}
	return nil, apperr.NotFound("Account")
}

func (store *Store) FindByID(ctx context.Context, guard rbac.Guard, id string) (*account.Profile, error) {
	profiles, err := store.profiles(ctx, guard)
	if err != nil {
		return nil, err
	}
	for _, candidate := range profiles {
		if candidate.ID == id {
			return candidate, nil
		}
	}
	return nil, apperr.NotFound("Account")
}

func (store *Store) RecordLogin(ctx context.Context, guard rbac.Guard, id string, login account.LoginRecord) error {
	if store.FailRecord != nil {
		return store.FailRecord
	}

	store.mu.Lock()
	store.logins[guard.String()+":"+id] = login
	store.mu.Unlock()

	return store.patch(ctx, guard, id, map[string]any{"last_login_at": login.At})
}

func (store *Store) UpdatePassword(ctx context.Context, guard rbac.Guard, id, passwordHash string) error {
	return store.patch(ctx, guard, id, map[string]any{"password_hash": passwordHash})
}

func (store *Store) patch(ctx context.Context, guard rbac.Guard, id string, fields map[string]any) error {
	if _, err := store.FindByID(ctx, guard, id); err != nil {
		return err
	}
	if guard == rbac.GuardAdmin {
		return store.Admins.Patch(ctx, id, fields)
	}
	return store.Users.Patch(ctx, id, fields)
}
