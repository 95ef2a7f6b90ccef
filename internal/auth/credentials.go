// Package auth implements the ledger's stateless cookie authentication.
//
// There is no session table: a session token is derived from the configured
// credentials by a Codec, and a request is authenticated when its cookie
// carries exactly that token. Changing the credentials (or the codec key)
// invalidates every cookie previously issued.
package auth

import (
	"crypto/subtle"
	"errors"
)

var ErrEmptyCredentials = errors.New("auth email and password must not be empty")

// Credentials is the single account allowed to use the ledger.
// It is built once at startup and never mutated.
type Credentials struct {
	email    string
	password string
}

// NewCredentials returns the immutable credential pair.
func NewCredentials(email, password string) (*Credentials, error) {
	if email == "" || password == "" {
		return nil, ErrEmptyCredentials
	}
	return &Credentials{email: email, password: password}, nil
}

// Email returns the configured login email.
func (c *Credentials) Email() string {
	return c.email
}

// Verifier checks submitted credentials against the configured ones.
type Verifier struct {
	creds *Credentials
}

func NewVerifier(creds *Credentials) *Verifier {
	return &Verifier{creds: creds}
}

// Verify reports whether both values match exactly.
// Both comparisons always run so timing does not reveal which one failed.
func (v *Verifier) Verify(email, password string) bool {
	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(v.creds.email))
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(v.creds.password))
	return emailOK&passOK == 1
}
