package users

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"runner-service/internal/apperr"
	"runner-service/internal/auth"
	"runner-service/internal/logging"
	"runner-service/internal/sessions"
	"runner-service/pkg/db"
	"runner-service/pkg/random"
	"runner-service/pkg/validation"
)

// DefaultOTPTTL is how long a password reset code stays valid.
const DefaultOTPTTL = 10 * time.Minute

// Sessions issues and revokes login sessions.
type Sessions interface {
	Issue(ctx context.Context, q db.DBTX, userID string) (*sessions.Session, error)
	Revoke(ctx context.Context, token string) error
}

// Service contains account business logic.
type Service struct {
	q          db.DBTX
	tx         db.TxRunner
	newStore   func(db.DBTX) Store
	sessions   Sessions
	mailer     Mailer
	log        logging.Logger
	now        func() time.Time
	otpTTL     time.Duration
	bcryptCost int
}

// Option configures a Service.
type Option func(*Service)

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func WithOTPTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.otpTTL = d
		}
	}
}

func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.bcryptCost = cost
		}
	}
}

func WithStoreFactory(f func(db.DBTX) Store) Option { return func(s *Service) { s.newStore = f } }

// NewService creates an account service. q serves reads; tx runs the
// multi-row writes of registration.
func NewService(q db.DBTX, tx db.TxRunner, sess Sessions, mailer Mailer, log logging.Logger, opts ...Option) *Service {
	s := &Service{
		q:          q,
		tx:         tx,
		newStore:   func(q db.DBTX) Store { return NewPostgresStore(q) },
		sessions:   sess,
		mailer:     mailer,
		log:        log,
		now:        time.Now,
		otpTTL:     DefaultOTPTTL,
		bcryptCost: bcrypt.DefaultCost,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Register creates the user, its credential and a first session atomically
// and returns the session token.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (string, error) {
	name := strings.TrimSpace(req.UserName)
	company := strings.TrimSpace(req.CompanyName)

	switch {
	case !validation.ValidateUserName(name):
		return "", apperr.Newf(apperr.InvalidRequest, "userName must be 2-200 characters")
	case !validation.ValidatePassword(req.Password):
		return "", apperr.Newf(apperr.InvalidRequest, "userPass must be 6-72 bytes")
	case req.UserType != TypeCompany && req.UserType != TypeRunner:
		return "", apperr.Newf(apperr.InvalidRequest, "userType must be COMPANY or RUNNER")
	case req.UserType == TypeCompany && !validation.ValidateCompanyName(company):
		return "", apperr.Newf(apperr.InvalidRequest, "companyName is required for company accounts")
	}
	if req.UserType == TypeRunner {
		company = ""
	}

	store := s.newStore(s.q)
	if _, err := store.UserByName(ctx, name); err == nil {
		return "", apperr.ErrDuplicateUser
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	u := &User{
		ID:          uuid.New().String(),
		UserName:    name,
		Type:        req.UserType,
		Status:      StatusActive,
		CompanyName: company,
		CreatedAt:   s.now(),
	}

	var token string
	err = s.tx.InTx(ctx, func(q db.DBTX) error {
		st := s.newStore(q)
		if err := st.InsertUser(ctx, u); err != nil {
			return err
		}
		if err := st.InsertCredential(ctx, &Credential{UserID: u.ID, UserName: u.UserName, PasswordHash: string(hash)}); err != nil {
			return err
		}
		sess, err := s.sessions.Issue(ctx, q, u.ID)
		if err != nil {
			return err
		}
		token = sess.Token
		return nil
	})
	if err != nil {
		return "", err
	}

	s.log.Info(ctx, "user registered", "user_id", u.ID, "type", u.Type)
	return token, nil
}

// CreateAdmin provisions an ADMIN account. Admins cannot self-register, so
// this is only reachable from the seeding command.
func (s *Service) CreateAdmin(ctx context.Context, userName, password string) (*User, error) {
	name := strings.TrimSpace(userName)
	if !validation.ValidateUserName(name) {
		return nil, apperr.Newf(apperr.InvalidRequest, "userName must be 2-200 characters")
	}
	if !validation.ValidatePassword(password) {
		return nil, apperr.Newf(apperr.InvalidRequest, "userPass must be 6-72 bytes")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{
		ID:        uuid.New().String(),
		UserName:  name,
		Type:      TypeAdmin,
		Status:    StatusActive,
		CreatedAt: s.now(),
	}
	err = s.tx.InTx(ctx, func(q db.DBTX) error {
		st := s.newStore(q)
		if err := st.InsertUser(ctx, u); err != nil {
			return err
		}
		return st.InsertCredential(ctx, &Credential{UserID: u.ID, UserName: u.UserName, PasswordHash: string(hash)})
	})
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "admin created", "user_id", u.ID)
	return u, nil
}

// Login verifies the password and the client/role pairing, then issues a new
// session. Earlier sessions stay valid.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if req.ClientType != ClientWeb && req.ClientType != ClientMobile {
		return nil, apperr.Newf(apperr.InvalidRequest, "clientType must be WEB or MOBILE")
	}

	store := s.newStore(s.q)
	u, err := store.UserByName(ctx, strings.TrimSpace(req.UserName))
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	cred, err := store.Credential(ctx, u.ID, u.UserName)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.ErrCredentialNotFound
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(req.Password)) != nil {
		return nil, apperr.ErrBadCredentials
	}

	if u.Status != StatusActive || !clientAllowed(req.ClientType, u.Type) {
		return nil, apperr.ErrAccessDenied
	}

	sess, err := s.sessions.Issue(ctx, s.q, u.ID)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Session: sess.Token, UserType: u.Type}, nil
}

// clientAllowed: web is for admins and companies, mobile for everyone else.
func clientAllowed(client ClientType, t Type) bool {
	back := t == TypeAdmin || t == TypeCompany
	if client == ClientWeb {
		return back
	}
	return !back
}

// Logout revokes the caller's current session.
func (s *Service) Logout(ctx context.Context, p auth.Principal) error {
	return s.sessions.Revoke(ctx, p.Token)
}

// Get returns the user with the given id.
func (s *Service) Get(ctx context.Context, userID string) (*User, error) {
	u, err := s.newStore(s.q).UserByID(ctx, userID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.ErrUserNotFound
	}
	return u, err
}

// Current returns the caller's account.
func (s *Service) Current(ctx context.Context, p auth.Principal) (*User, error) {
	return s.Get(ctx, p.UserID)
}

// VerifyPassword re-checks a password for an already authenticated user.
func (s *Service) VerifyPassword(ctx context.Context, u *User, password string) error {
	cred, err := s.newStore(s.q).Credential(ctx, u.ID, u.UserName)
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.ErrIncorrectPassword
	}
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)) != nil {
		return apperr.ErrIncorrectPassword
	}
	return nil
}

// UpdateCredential overwrites the caller's password hash.
func (s *Service) UpdateCredential(ctx context.Context, p auth.Principal, req UpdateCredentialRequest) error {
	if !validation.ValidatePassword(req.Password) {
		return apperr.Newf(apperr.InvalidRequest, "userPass must be 6-72 bytes")
	}
	u, err := s.Get(ctx, p.UserID)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	err = s.newStore(s.q).UpdatePassword(ctx, u.ID, u.UserName, string(hash))
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.ErrCredentialNotFound
	}
	return err
}

// RequestPasswordReset stores a fresh 6-digit code and hands it to the mailer.
func (s *Service) RequestPasswordReset(ctx context.Context, req ForgotPasswordRequest) error {
	u, err := s.byName(ctx, req.UserName)
	if err != nil {
		return err
	}

	code, err := random.Digits(6)
	if err != nil {
		return fmt.Errorf("otp: %w", err)
	}
	expires := s.now().Add(s.otpTTL)

	err = s.newStore(s.q).SetOTP(ctx, u.ID, u.UserName, code, expires)
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.ErrCredentialNotFound
	}
	if err != nil {
		return err
	}
	return s.mailer.SendResetCode(ctx, u.UserName, code, expires)
}

// VerifyOTP checks a reset code without consuming it.
func (s *Service) VerifyOTP(ctx context.Context, req VerifyOTPRequest) error {
	_, cred, err := s.credentialByName(ctx, req.UserName)
	if err != nil {
		return err
	}
	return checkOTP(cred, req.OTP, s.now())
}

// ResetPassword verifies the code, then replaces the hash and clears the code.
func (s *Service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	if !validation.ValidatePassword(req.NewPassword) {
		return apperr.Newf(apperr.InvalidRequest, "newPassword must be 6-72 bytes")
	}
	u, cred, err := s.credentialByName(ctx, req.UserName)
	if err != nil {
		return err
	}
	if err := checkOTP(cred, req.OTP, s.now()); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	ok, err := s.newStore(s.q).ResetPassword(ctx, u.ID, u.UserName, *cred.OTPCode, string(hash))
	if err != nil {
		return err
	}
	if !ok {
		// A concurrent reset consumed the code first.
		return apperr.ErrOTPNotRequested
	}
	s.log.Info(ctx, "password reset", "user_id", u.ID)
	return nil
}

func (s *Service) byName(ctx context.Context, userName string) (*User, error) {
	u, err := s.newStore(s.q).UserByName(ctx, strings.TrimSpace(userName))
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.ErrUserNotFound
	}
	return u, err
}

func (s *Service) credentialByName(ctx context.Context, userName string) (*User, *Credential, error) {
	u, err := s.byName(ctx, userName)
	if err != nil {
		return nil, nil, err
	}
	cred, err := s.newStore(s.q).Credential(ctx, u.ID, u.UserName)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil, apperr.ErrCredentialNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	return u, cred, nil
}

func checkOTP(cred *Credential, code string, now time.Time) error {
	if cred.OTPCode == nil || *cred.OTPCode == "" {
		return apperr.ErrOTPNotRequested
	}
	if cred.OTPExpiry == nil || !now.Before(*cred.OTPExpiry) {
		return apperr.ErrOTPExpired
	}
	if subtle.ConstantTimeCompare([]byte(*cred.OTPCode), []byte(code)) != 1 {
		return apperr.ErrOTPMismatch
	}
	return nil
}
