// Package apperr defines the stable error codes returned to API clients.
//
// Every failure leaving a service is either an *Error carrying a Code or an
// unexpected error, which the HTTP layer reports as Internal without echoing
// its text.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a stable, client-visible failure code.
type Code int

const (
	InvalidRequest       Code = 1
	Unauthenticated      Code = 2
	NotFound             Code = 3
	DuplicateUser        Code = 10
	UserNotFound         Code = 11
	CredentialNotFound   Code = 12
	BadCredentials       Code = 13
	AccessDenied         Code = 14
	OTPNotRequested      Code = 20
	OTPExpired           Code = 21
	OTPMismatch          Code = 22
	NotCompanyUser       Code = 30
	IncorrectPassword    Code = 31
	LimitExceeded        Code = 32
	IncorrectToken       Code = 33
	TokenExpired         Code = 34
	TokenUnavailable     Code = 35
	TokenAlreadyOwned    Code = 36
	InsufficientDistance Code = 37
	NotRunner            Code = 38
	TokenNotFound        Code = 39
	TokenAlreadyRedeemed Code = 40
	CompanyNotFound      Code = 50
	RateLimited          Code = 429
	Internal             Code = 500
)

type codeInfo struct {
	name   string
	msg    string
	status int
}

var codes = map[Code]codeInfo{
	InvalidRequest:       {"INVALID_REQUEST", "Invalid request", http.StatusBadRequest},
	Unauthenticated:      {"UNAUTHENTICATED", "Authentication required", http.StatusUnauthorized},
	NotFound:             {"NOT_FOUND", "Not found", http.StatusNotFound},
	DuplicateUser:        {"DUPLICATE_USER", "Already user!", http.StatusConflict},
	UserNotFound:         {"USER_NOT_FOUND", "User not found", http.StatusNotFound},
	CredentialNotFound:   {"CREDENTIAL_NOT_FOUND", "UserCred not found", http.StatusNotFound},
	BadCredentials:       {"BAD_CREDENTIALS", "Invalid password", http.StatusUnauthorized},
	AccessDenied:         {"ACCESS_DENIED", "Access denied for this client", http.StatusForbidden},
	OTPNotRequested:      {"OTP_NOT_REQUESTED", "No reset code requested", http.StatusBadRequest},
	OTPExpired:           {"OTP_EXPIRED", "Reset code expired", http.StatusBadRequest},
	OTPMismatch:          {"OTP_MISMATCH", "Invalid reset code", http.StatusBadRequest},
	NotCompanyUser:       {"NOT_COMPANY_USER", "Not company user", http.StatusForbidden},
	IncorrectPassword:    {"INCORRECT_PASSWORD", "Incorrect password!", http.StatusUnauthorized},
	LimitExceeded:        {"LIMIT_EXCEEDED", "Quantity limit exceeded", http.StatusBadRequest},
	IncorrectToken:       {"INCORRECT_TOKEN", "Incorrect token!", http.StatusNotFound},
	TokenExpired:         {"TOKEN_EXPIRED", "Token is expired!", http.StatusConflict},
	TokenUnavailable:     {"TOKEN_UNAVAILABLE", "Challenge is no longer available", http.StatusConflict},
	TokenAlreadyOwned:    {"TOKEN_ALREADY_OWNED", "Challenge already accepted", http.StatusConflict},
	InsufficientDistance: {"INSUFFICIENT_DISTANCE", "Not enough distance", http.StatusConflict},
	NotRunner:            {"NOT_RUNNER", "Only runners can accept challenges", http.StatusForbidden},
	TokenNotFound:        {"TOKEN_NOT_FOUND", "Challenge not found", http.StatusNotFound},
	TokenAlreadyRedeemed: {"TOKEN_ALREADY_REDEEMED", "Token already redeemed", http.StatusConflict},
	CompanyNotFound:      {"COMPANY_NOT_FOUND", "Company profile not found", http.StatusNotFound},
	RateLimited:          {"RATE_LIMITED", "Too many requests. Please try again later.", http.StatusTooManyRequests},
	Internal:             {"INTERNAL", "internal error", http.StatusInternalServerError},
}

// String returns the code's wire name, e.g. "TOKEN_EXPIRED".
func (c Code) String() string {
	if info, ok := codes[c]; ok {
		return info.name
	}
	return fmt.Sprintf("CODE_%d", int(c))
}

// Message is the default client-facing description.
func (c Code) Message() string {
	if info, ok := codes[c]; ok {
		return info.msg
	}
	return codes[Internal].msg
}

// HTTPStatus is the status the code is served with.
func (c Code) HTTPStatus() int {
	if info, ok := codes[c]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}

// Error is a domain failure with a stable code.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches any *Error with the same code, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

// New returns an error with the code's default message.
func New(code Code) *Error {
	return &Error{Code: code, Message: code.Message()}
}

// Newf returns an error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause that is logged but never shown to clients.
func Wrap(code Code, cause error) *Error {
	return &Error{Code: code, Message: code.Message(), cause: cause}
}

// CodeOf extracts the code from err. Errors without one are Internal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return Internal
}

// Sentinels for errors.Is checks.
var (
	ErrNotFound             = New(NotFound)
	ErrInvalidRequest       = New(InvalidRequest)
	ErrUnauthenticated      = New(Unauthenticated)
	ErrDuplicateUser        = New(DuplicateUser)
	ErrUserNotFound         = New(UserNotFound)
	ErrCredentialNotFound   = New(CredentialNotFound)
	ErrBadCredentials       = New(BadCredentials)
	ErrAccessDenied         = New(AccessDenied)
	ErrOTPNotRequested      = New(OTPNotRequested)
	ErrOTPExpired           = New(OTPExpired)
	ErrOTPMismatch          = New(OTPMismatch)
	ErrNotCompanyUser       = New(NotCompanyUser)
	ErrIncorrectPassword    = New(IncorrectPassword)
	ErrLimitExceeded        = New(LimitExceeded)
	ErrIncorrectToken       = New(IncorrectToken)
	ErrTokenExpired         = New(TokenExpired)
	ErrTokenUnavailable     = New(TokenUnavailable)
	ErrTokenAlreadyOwned    = New(TokenAlreadyOwned)
	ErrInsufficientDistance = New(InsufficientDistance)
	ErrNotRunner            = New(NotRunner)
	ErrTokenNotFound        = New(TokenNotFound)
	ErrTokenAlreadyRedeemed = New(TokenAlreadyRedeemed)
	ErrCompanyNotFound      = New(CompanyNotFound)
	ErrRateLimited          = New(RateLimited)
)
