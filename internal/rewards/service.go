package rewards

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"runner-service/internal/apperr"
	"runner-service/internal/auth"
	"runner-service/internal/events"
	"runner-service/internal/logging"
	"runner-service/internal/metrics"
	"runner-service/internal/users"
	"runner-service/pkg/db"
	"runner-service/pkg/kafka"
	"runner-service/pkg/random"
	"runner-service/pkg/validation"
)

const publishTimeout = 5 * time.Second

// Accounts resolves callers and re-checks their password.
type Accounts interface {
	Get(ctx context.Context, userID string) (*users.User, error)
	VerifyPassword(ctx context.Context, u *users.User, password string) error
}

// Distances reports a runner's accumulated distance.
type Distances interface {
	TotalDistance(ctx context.Context, userID string) (float64, error)
}

// Publisher sends lifecycle events to the live feed.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value any) error
}

// Service contains reward token business logic.
type Service struct {
	q         db.DBTX
	tx        db.TxRunner
	newStore  func(db.DBTX) Store
	accounts  Accounts
	distances Distances
	events    Publisher
	log       logging.Logger
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func WithStoreFactory(f func(db.DBTX) Store) Option { return func(s *Service) { s.newStore = f } }

// WithPublisher enables lifecycle events. Without it nothing is published.
func WithPublisher(p Publisher) Option { return func(s *Service) { s.events = p } }

func NewService(q db.DBTX, tx db.TxRunner, accounts Accounts, distances Distances, log logging.Logger, opts ...Option) *Service {
	s := &Service{
		q:         q,
		tx:        tx,
		newStore:  func(q db.DBTX) Store { return NewPostgresStore(q) },
		accounts:  accounts,
		distances: distances,
		log:       log,
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Generate issues quantity open tokens for the caller's company and returns
// their strings. Nothing is created unless every row is written.
func (s *Service) Generate(ctx context.Context, p auth.Principal, req GenerateRequest) (_ []string, err error) {
	defer metrics.ObserveOperation("token.generate", time.Now(), &err)

	u, err := s.companyCaller(ctx, p, req.Password)
	if err != nil {
		return nil, err
	}

	qty := 1
	if req.Quantity != nil && *req.Quantity != 0 {
		qty = *req.Quantity
	}
	price := strings.TrimSpace(req.Price)
	switch {
	case qty < 0:
		return nil, apperr.Newf(apperr.InvalidRequest, "quantity must be positive")
	case qty > MaxBatch:
		return nil, apperr.Newf(apperr.LimitExceeded, "at most %d tokens can be generated at once", MaxBatch)
	case req.RequiredDistance != nil && !validation.ValidateDistance(*req.RequiredDistance):
		return nil, apperr.Newf(apperr.InvalidRequest, "requiredDistance must be a non-negative number")
	case utf8.RuneCountInString(price) > MaxPriceLength:
		return nil, apperr.Newf(apperr.InvalidRequest, "price must be at most %d characters", MaxPriceLength)
	}

	now := s.now()
	if req.ExpireDate != nil && !req.ExpireDate.After(now) {
		return nil, apperr.Newf(apperr.InvalidRequest, "expireDate must be in the future")
	}

	tokens := make([]*Token, 0, qty)
	seen := make(map[string]struct{}, qty)
	for len(tokens) < qty {
		tkn, err := random.AlphaNum(TokenLength)
		if err != nil {
			return nil, fmt.Errorf("token string: %w", err)
		}
		if _, dup := seen[tkn]; dup {
			continue
		}
		seen[tkn] = struct{}{}
		tokens = append(tokens, &Token{
			Tkn:              tkn,
			CompanyName:      u.CompanyName,
			IssuerID:         u.ID,
			Status:           StatusOpen,
			Price:            price,
			Challenge:        strings.TrimSpace(req.Challenge),
			RequiredDistance: req.RequiredDistance,
			CreatedAt:        now,
			ExpiresAt:        req.ExpireDate,
		})
	}

	err = s.tx.InTx(ctx, func(q db.DBTX) error {
		return s.newStore(q).InsertBatch(ctx, tokens)
	})
	if err != nil {
		return nil, err
	}

	out := make([]string, len(tokens))
	ids := make([]int64, len(tokens))
	for i, t := range tokens {
		out[i] = t.Tkn
		ids[i] = t.ID
	}

	metrics.RecordTokens("generated", len(tokens))
	s.log.Info(ctx, "tokens generated", "company", u.CompanyName, "count", len(tokens))
	s.publish(kafka.TopicTokenGenerated, u.CompanyName, events.TokensGeneratedEvent{
		CompanyName: u.CompanyName,
		IssuerID:    u.ID,
		TokenIDs:    ids,
		Challenge:   tokens[0].Challenge,
		Price:       tokens[0].Price,
		GeneratedAt: now.UTC().Format(time.RFC3339),
	})
	return out, nil
}

// AcceptChallenge claims an open token for the calling runner.
func (s *Service) AcceptChallenge(ctx context.Context, p auth.Principal, tokenID int64) (_ *Token, err error) {
	defer metrics.ObserveOperation("token.accept", time.Now(), &err)

	u, err := s.accounts.Get(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	if !u.IsRunner() {
		return nil, apperr.ErrNotRunner
	}

	store := s.newStore(s.q)
	t, err := store.ByID(ctx, tokenID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	switch {
	case t.ClaimantID != nil && *t.ClaimantID == u.ID:
		return nil, apperr.ErrTokenAlreadyOwned
	case t.Status != StatusOpen:
		return nil, apperr.ErrTokenUnavailable
	case t.Expired(now):
		return nil, apperr.ErrTokenExpired
	}

	if t.RequiredDistance != nil && *t.RequiredDistance > 0 {
		total, err := s.distances.TotalDistance(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		if total < *t.RequiredDistance {
			return nil, apperr.Newf(apperr.InsufficientDistance,
				"required distance %.2f, current total %.2f", *t.RequiredDistance, total)
		}
	}

	ok, err := store.Claim(ctx, t.ID, u.ID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.ErrTokenUnavailable
	}

	t.Status = StatusClaimed
	t.ClaimantID = &u.ID
	t.ClaimedAt = &now

	metrics.RecordTokens("claimed", 1)
	s.log.Info(ctx, "challenge accepted", "token_id", t.ID, "user_id", u.ID)
	s.publish(kafka.TopicTokenClaimed, t.CompanyName, events.TokenClaimedEvent{
		TokenID:     t.ID,
		CompanyName: t.CompanyName,
		ClaimantID:  u.ID,
		ClaimedAt:   now.UTC().Format(time.RFC3339),
	})
	return t, nil
}

// Redeem consumes a token presented to the issuing company.
func (s *Service) Redeem(ctx context.Context, p auth.Principal, req RedeemRequest) (err error) {
	defer metrics.ObserveOperation("token.redeem", time.Now(), &err)

	u, err := s.companyCaller(ctx, p, req.Password)
	if err != nil {
		return err
	}

	tkn := strings.TrimSpace(req.Token)
	if !validation.ValidateTokenString(tkn) {
		return apperr.ErrIncorrectToken
	}
	store := s.newStore(s.q)
	t, err := store.ByTkn(ctx, tkn)
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.ErrIncorrectToken
	}
	if err != nil {
		return err
	}
	if t.CompanyName != u.CompanyName {
		return apperr.ErrIncorrectToken
	}

	now := s.now()
	switch t.Status {
	case StatusRedeemed:
		return apperr.ErrTokenAlreadyRedeemed
	case StatusOpen:
		if t.Expired(now) {
			return apperr.ErrTokenExpired
		}
	case StatusClaimed:
		// already earned; expiry no longer applies
	default:
		return apperr.ErrIncorrectToken
	}

	ok, err := store.Redeem(ctx, t.Tkn, t.Status, now)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.ErrTokenAlreadyRedeemed
	}

	metrics.RecordTokens("redeemed", 1)
	s.log.Info(ctx, "token redeemed", "token_id", t.ID, "company", u.CompanyName, "prior_status", t.Status)
	s.publish(kafka.TopicTokenRedeemed, t.CompanyName, events.TokenRedeemedEvent{
		TokenID:     t.ID,
		CompanyName: t.CompanyName,
		RedeemedBy:  u.ID,
		PriorStatus: t.Status,
		RedeemedAt:  now.UTC().Format(time.RFC3339),
	})
	return nil
}

// ListCompanyTokens returns every token of the caller's company, newest first.
func (s *Service) ListCompanyTokens(ctx context.Context, p auth.Principal) ([]Token, error) {
	u, err := s.accounts.Get(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	if !u.IsCompany() {
		return nil, apperr.ErrNotCompanyUser
	}
	return s.newStore(s.q).ListByCompany(ctx, u.CompanyName)
}

// ListActiveChallenges returns open, unexpired tokens without their strings.
func (s *Service) ListActiveChallenges(ctx context.Context) ([]Challenge, error) {
	tokens, err := s.newStore(s.q).ListOpen(ctx, s.now())
	if err != nil {
		return nil, err
	}
	out := make([]Challenge, len(tokens))
	for i, t := range tokens {
		out[i] = ChallengeOf(t)
	}
	return out, nil
}

// ListClaimedTokens returns the caller's claimed, unredeemed tokens.
func (s *Service) ListClaimedTokens(ctx context.Context, p auth.Principal) ([]Token, error) {
	return s.newStore(s.q).ListClaimedBy(ctx, p.UserID)
}

// companyCaller loads the caller, requires a company affiliation and re-checks the password.
func (s *Service) companyCaller(ctx context.Context, p auth.Principal, password string) (*users.User, error) {
	u, err := s.accounts.Get(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	if !u.IsCompany() {
		return nil, apperr.ErrNotCompanyUser
	}
	if err := s.accounts.VerifyPassword(ctx, u, password); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) publish(topic, key string, ev any) {
	if s.events == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := s.events.Publish(ctx, topic, key, ev); err != nil {
			s.log.Warn(ctx, "event publish failed", "topic", topic, "error", err)
		}
	}()
}
