package companies

import (
	"context"
	"errors"
	"strings"
	"time"

	"runner-service/internal/apperr"
	"runner-service/internal/auth"
	"runner-service/internal/logging"
	"runner-service/internal/users"
	"runner-service/pkg/db"
	"runner-service/pkg/objectstore"
	"runner-service/pkg/validation"
)

const maxDetails = 4000

// Accounts resolves callers.
type Accounts interface {
	Get(ctx context.Context, userID string) (*users.User, error)
}

// Pictures presigns uploads of profile pictures.
type Pictures interface {
	PresignPut(ctx context.Context, prefix, contentType string) (*objectstore.Upload, error)
}

// Service manages company profiles.
type Service struct {
	q        db.DBTX
	newStore func(db.DBTX) Store
	accounts Accounts
	pictures Pictures
	log      logging.Logger
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func WithStoreFactory(f func(db.DBTX) Store) Option { return func(s *Service) { s.newStore = f } }

// WithPictures enables presigned picture uploads.
func WithPictures(p Pictures) Option { return func(s *Service) { s.pictures = p } }

func NewService(q db.DBTX, accounts Accounts, log logging.Logger, opts ...Option) *Service {
	s := &Service{
		q:        q,
		newStore: func(q db.DBTX) Store { return NewPostgresStore(q) },
		accounts: accounts,
		log:      log,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Upsert creates or replaces the caller's company profile. An empty company
// name falls back to the account's company.
func (s *Service) Upsert(ctx context.Context, p auth.Principal, req UpsertRequest) (*Profile, error) {
	u, err := s.companyUser(ctx, p)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Company)
	if name == "" {
		name = u.CompanyName
	}
	if !validation.ValidateCompanyName(name) {
		return nil, apperr.Newf(apperr.InvalidRequest, "company must be 1-200 characters")
	}
	if len(req.Details) > maxDetails {
		return nil, apperr.Newf(apperr.InvalidRequest, "details must be at most %d bytes", maxDetails)
	}

	prof := &Profile{
		UserID:    u.ID,
		Company:   name,
		Picture:   strings.TrimSpace(req.Picture),
		Details:   req.Details,
		UpdatedAt: s.now(),
	}
	if err := s.newStore(s.q).Upsert(ctx, prof); err != nil {
		return nil, err
	}
	s.log.Info(ctx, "company profile saved", "user_id", u.ID)
	return prof, nil
}

// Get returns the caller's company profile.
func (s *Service) Get(ctx context.Context, p auth.Principal) (*Profile, error) {
	u, err := s.companyUser(ctx, p)
	if err != nil {
		return nil, err
	}
	prof, err := s.newStore(s.q).Get(ctx, u.ID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.ErrCompanyNotFound
	}
	return prof, err
}

// PictureUploadURL presigns a PUT for a new profile picture.
func (s *Service) PictureUploadURL(ctx context.Context, p auth.Principal) (*PictureUpload, error) {
	u, err := s.companyUser(ctx, p)
	if err != nil {
		return nil, err
	}
	if s.pictures == nil {
		return nil, apperr.Wrap(apperr.Internal, errors.New("object store is not configured"))
	}
	up, err := s.pictures.PresignPut(ctx, "companies/"+u.ID, "")
	if err != nil {
		return nil, err
	}
	return &PictureUpload{UploadURL: up.URL, PictureRef: up.Key}, nil
}

func (s *Service) companyUser(ctx context.Context, p auth.Principal) (*users.User, error) {
	u, err := s.accounts.Get(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	if !u.IsCompany() {
		return nil, apperr.ErrNotCompanyUser
	}
	return u, nil
}
