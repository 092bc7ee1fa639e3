// Package auth mints the bearer tokens that identify a user to the places backend.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer           = "place-picker"
	defaultTokenLife = 5 * time.Minute
)

// ErrNoSubject is returned when a signer is built without a user id
var ErrNoSubject = errors.New("auth: user id is required")

// Signer issues short-lived HS256 tokens for a single user
type Signer struct {
	key     []byte
	subject string
	life    time.Duration
	now     func() time.Time
}

// NewSigner creates a Signer for userID using secret as the HMAC key
func NewSigner(secret, userID string) (*Signer, error) {
	if userID == "" {
		return nil, ErrNoSubject
	}
	if secret == "" {
		return nil, errors.New("auth: signing secret is required")
	}
	return &Signer{
		key:     []byte(secret),
		subject: userID,
		life:    defaultTokenLife,
		now:     time.Now,
	}, nil
}

// Token returns a freshly signed token. It satisfies api.TokenSource.
func (s *Signer) Token() (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   s.subject,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.life)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Subject validates tokenString against secret and returns the user id it carries
func Subject(secret, tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", errors.New("invalid token: missing subject")
	}
	return claims.Subject, nil
}
