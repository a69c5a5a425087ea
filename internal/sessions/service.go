package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"runner-service/internal/apperr"
	"runner-service/internal/logging"
	"runner-service/pkg/db"
	"runner-service/pkg/random"
)

// DefaultTTL is the fixed session lifetime.
const DefaultTTL = 5 * time.Minute

// Service issues and resolves sessions.
type Service struct {
	q        db.DBTX
	newStore func(db.DBTX) Store
	cache    Cache
	ttl      time.Duration
	log      logging.Logger
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithCache enables the read-through cache.
func WithCache(c Cache) Option { return func(s *Service) { s.cache = c } }

// WithTTL overrides the session lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithStoreFactory overrides how stores are bound to a query handle.
func WithStoreFactory(f func(db.DBTX) Store) Option { return func(s *Service) { s.newStore = f } }

// NewService creates a session service over q.
func NewService(q db.DBTX, log logging.Logger, opts ...Option) *Service {
	s := &Service{
		q:        q,
		newStore: func(q db.DBTX) Store { return NewPostgresStore(q) },
		ttl:      DefaultTTL,
		log:      log,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Issue creates a fresh active session for userID using q, so callers can
// include it in a larger transaction.
func (s *Service) Issue(ctx context.Context, q db.DBTX, userID string) (*Session, error) {
	token, err := random.AlphaNum(TokenLength)
	if err != nil {
		return nil, fmt.Errorf("session token: %w", err)
	}
	now := s.now()
	exp := now.Add(s.ttl)
	sess := &Session{
		Token:     token,
		UserID:    userID,
		Status:    StatusActive,
		ExpiresAt: &exp,
		CreatedAt: now,
	}
	if err := s.newStore(q).Insert(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Resolve implements auth.SessionResolver.
func (s *Service) Resolve(ctx context.Context, token string) (string, bool, error) {
	now := s.now()

	if s.cache != nil {
		sess, hit, err := s.cache.Get(ctx, token)
		if err != nil {
			s.log.Warn(ctx, "session cache read failed", "error", err)
		} else if hit {
			return sess.UserID, sess.Valid(now), nil
		}
	}

	sess, err := s.newStore(s.q).Get(ctx, token)
	if errors.Is(err, apperr.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if !sess.Valid(now) {
		return "", false, nil
	}

	if s.cache != nil {
		ttl := s.ttl
		if sess.ExpiresAt != nil {
			ttl = sess.ExpiresAt.Sub(now)
		}
		if err := s.cache.Put(ctx, sess, ttl); err != nil {
			s.log.Warn(ctx, "session cache write failed", "error", err)
		}
	}
	return sess.UserID, true, nil
}

// Revoke deactivates the session and evicts it from the cache.
func (s *Service) Revoke(ctx context.Context, token string) error {
	if _, err := s.newStore(s.q).Deactivate(ctx, token); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, token); err != nil {
			s.log.Warn(ctx, "session cache evict failed", "error", err)
		}
	}
	return nil
}
