package validation

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	otpRegex   = regexp.MustCompile(`^\d{6}$`)
	tokenRegex = regexp.MustCompile(`^[A-Za-z0-9]{25}$`)
)

func ValidateUserName(name string) bool {
	name = strings.TrimSpace(name)
	n := utf8.RuneCountInString(name)
	return n >= 2 && n <= 200
}

func ValidateCompanyName(name string) bool {
	name = strings.TrimSpace(name)
	return name != "" && utf8.RuneCountInString(name) <= 200
}

// MaxPasswordBytes is the longest input bcrypt will hash.
const MaxPasswordBytes = 72

func ValidatePassword(password string) bool {
	return len(password) >= 6 && len(password) <= MaxPasswordBytes
}

func ValidateOTP(code string) bool {
	return otpRegex.MatchString(code)
}

func ValidateTokenString(tkn string) bool {
	return tokenRegex.MatchString(tkn)
}

// ValidateDistance accepts finite, non-negative distances.
func ValidateDistance(d float64) bool {
	return !math.IsNaN(d) && !math.IsInf(d, 0) && d >= 0
}
