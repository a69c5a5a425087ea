package runs

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"runner-service/internal/apperr"
	"runner-service/internal/auth"
	"runner-service/internal/logging"
	"runner-service/internal/metrics"
	"runner-service/pkg/db"
	"runner-service/pkg/validation"
)

var nullRoute = json.RawMessage("null")

// Service records and aggregates runs.
type Service struct {
	q        db.DBTX
	newStore func(db.DBTX) Store
	log      logging.Logger
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func WithStoreFactory(f func(db.DBTX) Store) Option { return func(s *Service) { s.newStore = f } }

func NewService(q db.DBTX, log logging.Logger, opts ...Option) *Service {
	s := &Service{
		q:        q,
		newStore: func(q db.DBTX) Store { return NewPostgresStore(q) },
		log:      log,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Record appends a run for the caller.
func (s *Service) Record(ctx context.Context, p auth.Principal, req RecordRequest) (_ *Run, err error) {
	defer metrics.ObserveOperation("run.record", time.Now(), &err)

	if !validation.ValidateDistance(req.Distance) {
		return nil, apperr.Newf(apperr.InvalidRequest, "distance must be a non-negative number")
	}
	route := bytes.TrimSpace(req.Route)
	if len(route) == 0 {
		route = nullRoute
	} else if !json.Valid(route) {
		return nil, apperr.Newf(apperr.InvalidRequest, "route must be valid JSON")
	}

	r := &Run{
		UserID:    p.UserID,
		Distance:  req.Distance,
		Route:     route,
		CreatedAt: s.now(),
	}
	if err := s.newStore(s.q).Insert(ctx, r); err != nil {
		return nil, err
	}
	s.log.Debug(ctx, "run recorded", "user_id", p.UserID, "run_id", r.ID, "distance", r.Distance)
	return r, nil
}

// List returns the caller's runs, newest first.
func (s *Service) List(ctx context.Context, p auth.Principal) ([]Run, error) {
	return s.newStore(s.q).ListByUser(ctx, p.UserID)
}

// TotalDistance sums every run of the user; zero when there are none.
func (s *Service) TotalDistance(ctx context.Context, userID string) (float64, error) {
	return s.newStore(s.q).TotalDistance(ctx, userID)
}
