package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var errTokenSubject = errors.New("token was issued for a different note")

// Signer issues and checks short-lived tokens granting access to one note file
type Signer struct {
	key      []byte
	lifetime time.Duration
	now      func() time.Time
}

// NewSigner creates a signer with an HMAC key and a token lifetime
func NewSigner(key string, lifetime time.Duration) *Signer {
	return &Signer{key: []byte(key), lifetime: lifetime, now: time.Now}
}

// Sign returns a token for noteID and the time it stops being accepted
func (s *Signer) Sign(noteID string) (string, time.Time, error) {
	issued := s.now()
	expires := issued.Add(s.lifetime)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   noteID,
		IssuedAt:  jwt.NewNumericDate(issued),
		ExpiresAt: jwt.NewNumericDate(expires),
	})
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return signed, expires, nil
}

// Verify checks that token is valid, unexpired and issued for noteID
func (s *Signer) Verify(tokenString, noteID string) error {
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		// Validate the algorithm is HMAC
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.key, nil
	}, jwt.WithExpirationRequired(), jwt.WithTimeFunc(s.now))
	if err != nil {
		return fmt.Errorf("parsing token: %w", err)
	}
	if !token.Valid {
		return fmt.Errorf("invalid token")
	}
	if claims.Subject != noteID {
		return errTokenSubject
	}
	return nil
}
