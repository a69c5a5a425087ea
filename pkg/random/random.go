// Package random builds unguessable strings from crypto/rand.
package random

import (
	"crypto/rand"
	"math/big"
)

const (
	alphaNum = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	digits   = "0123456789"
)

// AlphaNum returns n characters drawn uniformly from [A-Za-z0-9].
func AlphaNum(n int) (string, error) {
	return fromCharset(alphaNum, n)
}

// Digits returns n decimal digits; leading zeros are kept.
func Digits(n int) (string, error) {
	return fromCharset(digits, n)
}

func fromCharset(charset string, n int) (string, error) {
	max := big.NewInt(int64(len(charset)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = charset[idx.Int64()]
	}
	return string(b), nil
}
