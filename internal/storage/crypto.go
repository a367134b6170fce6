// Package storage handles persistence for guests, approvers, admins and
// users, plus the one-way hashing used for passwords and approval codes.
package storage

import (
	"golang.org/x/crypto/bcrypt"
)

// bcryptCost matches the cost used for every stored secret. Approval codes
// are short-lived, so a moderate cost keeps the O(n) validation scan cheap.
const bcryptCost = 12

// HashSecret creates a bcrypt hash of a password or approval code.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifySecret checks a plaintext secret against a bcrypt hash. It returns
// nil on match; bcrypt's comparison is constant time.
func VerifySecret(secret, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
}
