package rewards

import "time"

// Token status values. Redeemed is terminal.
const (
	StatusRedeemed = 0
	StatusOpen     = 1
	StatusClaimed  = 2
)

// TokenLength is the length of the opaque token string.
const TokenLength = 25

// MaxBatch caps how many tokens a single generate call may create.
const MaxBatch = 100

// MaxPriceLength matches the price column width, in characters.
const MaxPriceLength = 100

// Token is a company-issued reward.
type Token struct {
	ID               int64      `json:"id"`
	Tkn              string     `json:"token"`
	CompanyName      string     `json:"companyName"`
	IssuerID         string     `json:"issuerId"`
	ClaimantID       *string    `json:"claimantId,omitempty"`
	Status           int        `json:"status"`
	Price            string     `json:"price"`
	Challenge        string     `json:"challenge"`
	RequiredDistance *float64   `json:"requiredDistance,omitempty"`
	CreatedAt        time.Time  `json:"createdDate"`
	ExpiresAt        *time.Time `json:"expireDate,omitempty"`
	ClaimedAt        *time.Time `json:"claimedDate,omitempty"`
	RedeemedAt       *time.Time `json:"redeemedDate,omitempty"`
}

// Expired reports whether the token has an expiry at or before now.
func (t *Token) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && !now.Before(*t.ExpiresAt)
}

// Challenge is the public view of an open token. It never carries the token string.
type Challenge struct {
	ID               int64      `json:"id"`
	CompanyName      string     `json:"companyName"`
	Price            string     `json:"price"`
	Challenge        string     `json:"challenge"`
	RequiredDistance *float64   `json:"requiredDistance,omitempty"`
	ExpiresAt        *time.Time `json:"expireDate,omitempty"`
	CreatedAt        time.Time  `json:"createdDate"`
}

// ChallengeOf strips the token string from t.
func ChallengeOf(t Token) Challenge {
	return Challenge{
		ID:               t.ID,
		CompanyName:      t.CompanyName,
		Price:            t.Price,
		Challenge:        t.Challenge,
		RequiredDistance: t.RequiredDistance,
		ExpiresAt:        t.ExpiresAt,
		CreatedAt:        t.CreatedAt,
	}
}

// GenerateRequest is the body for POST /api/token/generate.
type GenerateRequest struct {
	Password         string     `json:"userPass"`
	ExpireDate       *time.Time `json:"expireDate"`
	Price            string     `json:"price"`
	Challenge        string     `json:"challenge"`
	Quantity         *int       `json:"quantity"`
	RequiredDistance *float64   `json:"requiredDistance"`
}

// RedeemRequest is the body for POST /api/token/redeem.
type RedeemRequest struct {
	Password string `json:"userPass"`
	Token    string `json:"token"`
}
