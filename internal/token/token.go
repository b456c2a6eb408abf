// Package token issues and verifies the two classes of bearer tokens:
// short-lived access tokens and long-lived refresh tokens. Tokens are
// self-contained HS256 JWTs; nothing is persisted and nothing can be
// revoked before expiry.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the minimal claim set carried by both token classes.
type Claims struct {
	UserID string `json:"_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

var (
	ErrExpired = errors.New("token expired")
	ErrInvalid = errors.New("token invalid")
)

// Issuer signs and verifies one token class. Build one per class with its
// own secret and lifetime.
type Issuer struct {
	secret []byte
	life   time.Duration
}

func NewIssuer(secret string, life time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), life: life}
}

func (i *Issuer) Generate(userID, email string) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.life)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(i.secret)
}

// Verify parses and validates a token, distinguishing expiry from every
// other failure so callers can tell "refresh" apart from "re-login".
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	t, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalid
		}
		return i.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalid
	}
	if !t.Valid {
		return nil, ErrInvalid
	}
	return claims, nil
}
