package jwt

import (
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// Audience marks tickets that may only be used to open the live feed.
const Audience = "runner-feed"

// Claims represents a feed ticket payload.
type Claims struct {
	UserID      string `json:"user_id"`
	CompanyName string `json:"company_name,omitempty"`
	gojwt.RegisteredClaims
}

var (
	secret []byte
	now    = time.Now
)

// ErrNotInitialised is returned when Generate or Validate run before Init.
var ErrNotInitialised = errors.New("jwt: secret not initialised")

// Init must be called once at startup with the feed ticket secret.
func Init(s string) error {
	if len(s) < 16 {
		return errors.New("jwt: secret must be at least 16 bytes")
	}
	secret = []byte(s)
	return nil
}

// Generate creates a signed short-lived ticket for the given user.
func Generate(userID, companyName string, ttl time.Duration) (string, error) {
	if secret == nil {
		return "", ErrNotInitialised
	}
	issued := now()
	claims := Claims{
		UserID:      userID,
		CompanyName: companyName,
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   userID,
			Audience:  gojwt.ClaimStrings{Audience},
			IssuedAt:  gojwt.NewNumericDate(issued),
			ExpiresAt: gojwt.NewNumericDate(issued.Add(ttl)),
		},
	}
	return gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString(secret)
}

// Validate parses and validates a raw ticket string.
func Validate(raw string) (*Claims, error) {
	if secret == nil {
		return nil, ErrNotInitialised
	}
	token, err := gojwt.ParseWithClaims(raw, &Claims{}, func(t *gojwt.Token) (any, error) {
		if _, ok := t.Method.(*gojwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	},
		gojwt.WithAudience(Audience),
		gojwt.WithTimeFunc(now),
	)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
