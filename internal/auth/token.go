// Package auth issues and verifies the bearer tokens of both APIs and hashes passwords.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var ErrInvalidToken = errors.New("auth: invalid token")

// Claims carry the subject (profile uuid or user id as text), its role and e-mail.
// Audience pins a token to the application that issued it.
type Claims struct {
	Role  string `json:"role"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type Issuer struct {
	secret   []byte
	ttl      time.Duration
	audience string
	now      func() time.Time
}

func NewIssuer(secret string, ttl time.Duration, audience string) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, audience: audience, now: time.Now}
}

// Issue signs an HS256 token valid for the issuer's TTL.
func (i *Issuer) Issue(subject, role, email string) (string, time.Time, error) {
	now := i.now()
	exp := now.Add(i.ttl)
	claims := Claims{
		Role:  role,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Audience:  jwt.ClaimStrings{i.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return tok, exp, nil
}

// Parse verifies signature, expiry and audience.
func (i *Issuer) Parse(raw string) (*Claims, error) {
	var claims Claims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil || !tok.Valid {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	if !claims.VerifyAudience(i.audience, true) || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}
