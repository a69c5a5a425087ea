package rewards

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"runner-service/internal/apperr"
	"runner-service/internal/users"
	"runner-service/pkg/db"
)

type memStore struct {
	mu         sync.Mutex
	next       int64
	tokens     map[int64]Token
	failInsert bool
}

func newMemStore() *memStore { return &memStore{tokens: map[int64]Token{}} }

func (m *memStore) snapshot() (map[int64]Token, int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make(map[int64]Token, len(m.tokens))
	for k, v := range m.tokens {
		cp[k] = v
	}
	return cp, m.next
}

func (m *memStore) restore(t map[int64]Token, next int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens, m.next = t, next
}

func (m *memStore) InsertBatch(_ context.Context, tokens []*Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range tokens {
		if m.failInsert && i == len(tokens)-1 {
			return errors.New("insert failed")
		}
		for _, existing := range m.tokens {
			if existing.Tkn == t.Tkn {
				return errors.New("duplicate tkn")
			}
		}
		m.next++
		t.ID = m.next
		m.tokens[t.ID] = *t
	}
	return nil
}

func (m *memStore) ByID(_ context.Context, id int64) (*Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &t, nil
}

func (m *memStore) ByTkn(_ context.Context, tkn string) (*Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		if t.Tkn == tkn {
			return &t, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (m *memStore) filter(keep func(Token) bool) []Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Token{}
	for _, t := range m.tokens {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (m *memStore) ListByCompany(_ context.Context, company string) ([]Token, error) {
	return m.filter(func(t Token) bool { return t.CompanyName == company }), nil
}

func (m *memStore) ListOpen(_ context.Context, now time.Time) ([]Token, error) {
	return m.filter(func(t Token) bool { return t.Status == StatusOpen && !t.Expired(now) }), nil
}

func (m *memStore) ListClaimedBy(_ context.Context, userID string) ([]Token, error) {
	return m.filter(func(t Token) bool {
		return t.Status == StatusClaimed && t.ClaimantID != nil && *t.ClaimantID == userID
	}), nil
}

func (m *memStore) Claim(_ context.Context, id int64, claimant string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[id]
	if !ok || t.Status != StatusOpen || t.Expired(at) {
		return false, nil
	}
	t.Status, t.ClaimantID, t.ClaimedAt = StatusClaimed, &claimant, &at
	m.tokens[id] = t
	return true, nil
}

func (m *memStore) Redeem(_ context.Context, tkn string, prior int, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, t := range m.tokens {
		if t.Tkn == tkn && t.Status == prior {
			t.Status, t.RedeemedAt = StatusRedeemed, &at
			m.tokens[id] = t
			return true, nil
		}
	}
	return false, nil
}

type memTx struct{ store *memStore }

func (t memTx) InTx(_ context.Context, fn func(q db.DBTX) error) error {
	snap, next := t.store.snapshot()
	if err := fn(nil); err != nil {
		t.store.restore(snap, next)
		return err
	}
	return nil
}

type fakeAccounts struct {
	users     map[string]*users.User
	passwords map[string]string
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{users: map[string]*users.User{}, passwords: map[string]string{}}
}

func (f *fakeAccounts) add(id string, typ users.Type, company, password string) {
	f.users[id] = &users.User{ID: id, UserName: id, Type: typ, Status: users.StatusActive, CompanyName: company}
	f.passwords[id] = password
}

func (f *fakeAccounts) Get(_ context.Context, id string) (*users.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperr.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeAccounts) VerifyPassword(_ context.Context, u *users.User, password string) error {
	if f.passwords[u.ID] != password {
		return apperr.ErrIncorrectPassword
	}
	return nil
}

type fakeDistances map[string]float64

func (f fakeDistances) TotalDistance(_ context.Context, userID string) (float64, error) {
	return f[userID], nil
}

type published struct {
	topic string
	key   string
	value any
}

type chanPublisher chan published

func (c chanPublisher) Publish(_ context.Context, topic, key string, value any) error {
	c <- published{topic, key, value}
	return nil
}
