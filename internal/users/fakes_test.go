package users

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"runner-service/internal/apperr"
	"runner-service/internal/sessions"
	"runner-service/pkg/db"
)

type memStore struct {
	mu    sync.Mutex
	users map[string]User
	creds map[string]Credential
}

func newMemStore() *memStore {
	return &memStore{users: map[string]User{}, creds: map[string]Credential{}}
}

func credKey(id, name string) string { return id + "|" + name }

func (m *memStore) snapshot() (map[string]User, map[string]Credential) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := make(map[string]User, len(m.users))
	for k, v := range m.users {
		u[k] = v
	}
	c := make(map[string]Credential, len(m.creds))
	for k, v := range m.creds {
		c[k] = v
	}
	return u, c
}

func (m *memStore) restore(u map[string]User, c map[string]Credential) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users, m.creds = u, c
}

func (m *memStore) InsertUser(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.UserName == u.UserName {
			return apperr.ErrDuplicateUser
		}
	}
	m.users[u.ID] = *u
	return nil
}

func (m *memStore) UserByName(_ context.Context, name string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.UserName == name {
			u := u
			return &u, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (m *memStore) UserByID(_ context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &u, nil
}

func (m *memStore) InsertCredential(_ context.Context, c *Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds[credKey(c.UserID, c.UserName)] = *c
	return nil
}

func (m *memStore) Credential(_ context.Context, id, name string) (*Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.creds[credKey(id, name)]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &c, nil
}

func (m *memStore) UpdatePassword(_ context.Context, id, name, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.creds[credKey(id, name)]
	if !ok {
		return apperr.ErrNotFound
	}
	c.PasswordHash = hash
	m.creds[credKey(id, name)] = c
	return nil
}

func (m *memStore) SetOTP(_ context.Context, id, name, code string, expiry time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.creds[credKey(id, name)]
	if !ok {
		return apperr.ErrNotFound
	}
	c.OTPCode, c.OTPExpiry = &code, &expiry
	m.creds[credKey(id, name)] = c
	return nil
}

func (m *memStore) ResetPassword(_ context.Context, id, name, expected, hash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.creds[credKey(id, name)]
	if !ok || c.OTPCode == nil || *c.OTPCode != expected {
		return false, nil
	}
	c.PasswordHash, c.OTPCode, c.OTPExpiry = hash, nil, nil
	m.creds[credKey(id, name)] = c
	return true, nil
}

// memTx restores the store when fn fails, like a rollback.
type memTx struct{ store *memStore }

func (t memTx) InTx(_ context.Context, fn func(q db.DBTX) error) error {
	u, c := t.store.snapshot()
	if err := fn(nil); err != nil {
		t.store.restore(u, c)
		return err
	}
	return nil
}

type fakeSessions struct {
	mu      sync.Mutex
	n       int
	owners  map[string]string
	revoked map[string]bool
	failing bool
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{owners: map[string]string{}, revoked: map[string]bool{}}
}

func (f *fakeSessions) Issue(_ context.Context, _ db.DBTX, userID string) (*sessions.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return nil, errors.New("session insert failed")
	}
	f.n++
	tok := fmt.Sprintf("sess-%02d", f.n)
	f.owners[tok] = userID
	return &sessions.Session{Token: tok, UserID: userID, Status: sessions.StatusActive}, nil
}

func (f *fakeSessions) Revoke(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked[token] = true
	return nil
}

type sentCode struct {
	user    string
	code    string
	expires time.Time
}

type captureMailer struct {
	sent []sentCode
}

func (m *captureMailer) SendResetCode(_ context.Context, user, code string, expires time.Time) error {
	m.sent = append(m.sent, sentCode{user, code, expires})
	return nil
}

func (m *captureMailer) last() sentCode { return m.sent[len(m.sent)-1] }
