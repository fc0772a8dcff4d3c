// Package auth checks credentials and gates the API behind a logged-in
// session.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Verifier decides whether a username/password pair is valid.
type Verifier interface {
	Verify(username, password string) bool
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(username, password string) bool

func (f VerifierFunc) Verify(username, password string) bool { return f(username, password) }

// DemoUsername and DemoPassword form the single built-in demo account used
// when no accounts are configured.
const (
	DemoUsername = "shuimianjibing"
	DemoPassword = "123456"
)

type staticVerifier struct {
	passwords map[string]string
}

// NewStaticVerifier compares plaintext passwords. Only meant for the demo
// account and tests.
func NewStaticVerifier(passwords map[string]string) Verifier {
	cp := make(map[string]string, len(passwords))
	for u, p := range passwords {
		cp[u] = p
	}
	return &staticVerifier{passwords: cp}
}

func (v *staticVerifier) Verify(username, password string) bool {
	want, ok := v.passwords[username]
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(want), []byte(password)) == 1
}

type bcryptVerifier struct {
	hashes map[string][]byte
}

// NewBcryptVerifier checks passwords against bcrypt hashes keyed by username.
func NewBcryptVerifier(hashes map[string]string) (Verifier, error) {
	v := &bcryptVerifier{hashes: make(map[string][]byte, len(hashes))}
	for user, hash := range hashes {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("user %q: invalid bcrypt hash: %w", user, err)
		}
		v.hashes[user] = []byte(hash)
	}
	return v, nil
}

func (v *bcryptVerifier) Verify(username, password string) bool {
	hash, ok := v.hashes[username]
	if !ok {
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}

// HashPassword returns a bcrypt hash suitable for AUTH_USERS.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
