package models

import (
	"fmt"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"
)

// CredentialEncoder hashes plaintext credentials into the opaque value
// stored in the password column. The engine only ever stores hashes of
// random placeholders; verification against these hashes is never part of
// the login path.
type CredentialEncoder interface {
	Hash(plaintext string) (string, error)
}

// Argon2idEncoder hashes credentials with Argon2id using the default
// parameters. This is the default encoder.
type Argon2idEncoder struct{}

// Hash implements CredentialEncoder.
func (Argon2idEncoder) Hash(plaintext string) (string, error) {
	hash, err := argon2id.CreateHash(plaintext, argon2id.DefaultParams)
	if err != nil {
		return "", fmt.Errorf("failed to hash credential: %w", err)
	}

	return hash, nil
}

// BcryptEncoder hashes credentials with bcrypt at the default cost,
// matching the hash format Contao uses natively.
type BcryptEncoder struct{}

// Hash implements CredentialEncoder.
func (BcryptEncoder) Hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash credential: %w", err)
	}

	return string(hash), nil
}

// NewCredentialEncoder returns the encoder selected by name. Unknown names
// fall back to Argon2id.
func NewCredentialEncoder(name string) CredentialEncoder {
	if name == "bcrypt" {
		return BcryptEncoder{}
	}

	return Argon2idEncoder{}
}
