package users

import "time"

// Type is the account role.
type Type string

const (
	TypeAdmin   Type = "ADMIN"
	TypeCompany Type = "COMPANY"
	TypeRunner  Type = "RUNNER"
)

// ClientType identifies the calling application at login.
type ClientType string

const (
	ClientWeb    ClientType = "WEB"
	ClientMobile ClientType = "MOBILE"
)

// User status values.
const (
	StatusInactive = 0
	StatusActive   = 1
)

// User is an account.
type User struct {
	ID          string    `json:"userId"`
	UserName    string    `json:"userName"`
	Type        Type      `json:"userType"`
	Status      int       `json:"status"`
	CompanyName string    `json:"companyName,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// IsCompany reports whether the user is affiliated with a company.
func (u *User) IsCompany() bool { return u.CompanyName != "" }

// IsRunner reports whether the user may accept challenges.
func (u *User) IsRunner() bool {
	return u.Status == StatusActive && u.Type != TypeAdmin && u.Type != TypeCompany && !u.IsCompany()
}

// Credential is the password record keyed by (UserID, UserName).
type Credential struct {
	UserID       string
	UserName     string
	PasswordHash string
	OTPCode      *string
	OTPExpiry    *time.Time
}

// RegisterRequest is the body for POST /api/registerUser.
type RegisterRequest struct {
	UserName    string `json:"userName"`
	UserType    Type   `json:"userType"`
	CompanyName string `json:"companyName"`
	Password    string `json:"userPass"`
}

// LoginRequest is the body for POST /api/login.
type LoginRequest struct {
	UserName   string     `json:"userName"`
	Password   string     `json:"userPass"`
	ClientType ClientType `json:"clientType"`
}

// LoginResult is returned on login.
type LoginResult struct {
	Session  string
	UserType Type
}

// UpdateCredentialRequest is the body for POST /api/updateUserCred.
type UpdateCredentialRequest struct {
	Password string `json:"userPass"`
}

// ForgotPasswordRequest is the body for POST /api/forgot-password/request.
type ForgotPasswordRequest struct {
	UserName string `json:"userName"`
}

// VerifyOTPRequest is the body for POST /api/forgot-password/verify.
type VerifyOTPRequest struct {
	UserName string `json:"userName"`
	OTP      string `json:"otp"`
}

// ResetPasswordRequest is the body for POST /api/forgot-password/reset.
type ResetPasswordRequest struct {
	UserName    string `json:"userName"`
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}
