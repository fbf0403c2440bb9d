// Package token issues and verifies signed session resume tokens. A
// token lets a reconnecting client rebind its identity without
// re-entering the access key, within a bounded lifetime.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sablegrid/syndnet/internal/terminal/domain"
)

const issuerName = "syndnet-terminal"

// DefaultTTL matches the original terminal's seven-day persistent
// session lifetime.
const DefaultTTL = 7 * 24 * time.Hour

// resumeClaims is the JWT claims payload for a resume token.
type resumeClaims struct {
	jwt.RegisteredClaims
	Callsign string `json:"callsign"`
	Role     string `json:"role"`
	Squad    string `json:"squad"`
}

// Claims are the validated contents of a resume token.
type Claims struct {
	UID      string
	Callsign string
	Role     domain.Role
	Squad    domain.Squad
}

// Issuer signs and verifies resume tokens with an HMAC secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer builds an issuer. The secret is required; a zero ttl falls
// back to DefaultTTL.
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("session secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue signs a resume token for an identity.
func (i *Issuer) Issue(identity domain.Identity) (string, error) {
	if i == nil {
		return "", errors.New("issuer is not configured")
	}
	if strings.TrimSpace(identity.UID) == "" {
		return "", errors.New("identity uid is required")
	}

	now := i.now()
	claims := resumeClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuerName,
			Subject:   identity.UID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		Callsign: identity.Callsign,
		Role:     string(identity.Role),
		Squad:    string(identity.Squad),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign resume token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a resume token. The caller must still
// check the uid against the current user records; the token proves a
// past login, not continued registration.
func (i *Issuer) Verify(tokenString string) (Claims, error) {
	if i == nil {
		return Claims{}, errors.New("issuer is not configured")
	}

	var claims resumeClaims
	_, err := jwt.ParseWithClaims(
		tokenString,
		&claims,
		func(*jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuerName),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return i.now() }),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("parse resume token: %w", err)
	}

	role, ok := domain.ParseRole(claims.Role)
	if !ok || role == domain.RoleGuest {
		return Claims{}, errors.New("resume token carries an invalid role")
	}
	squad, ok := domain.ParseSquad(claims.Squad)
	if !ok {
		squad = domain.SquadNone
	}
	uid := strings.TrimSpace(claims.Subject)
	if uid == "" {
		return Claims{}, errors.New("resume token has no subject")
	}

	return Claims{
		UID:      uid,
		Callsign: claims.Callsign,
		Role:     role,
		Squad:    squad,
	}, nil
}
