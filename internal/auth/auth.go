// Package auth issues and verifies operator bearer tokens. Callers only ever see an
// Identity; how it was proven stays here.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kirinyoku/tix-booking/internal/clock"
)

const (
	RoleOperator = "operator"
	RoleViewer   = "viewer"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrEmptySecret  = errors.New("token secret is empty")
)

type Identity struct {
	Subject string
	Role    string
}

func (i Identity) IsOperator() bool {
	return i.Role == RoleOperator
}

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type Config struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// Issuer signs and verifies HS256 tokens.
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	clock  clock.Clock
}

func NewIssuer(cfg Config, clk clock.Clock) (*Issuer, error) {
	const op = "auth.NewIssuer"

	if cfg.Secret == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptySecret)
	}

	if cfg.Issuer == "" {
		cfg.Issuer = "tix-booking"
	}

	if cfg.TTL <= 0 {
		cfg.TTL = 12 * time.Hour
	}

	if clk == nil {
		clk = clock.NewSystem()
	}

	return &Issuer{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    cfg.TTL,
		clock:  clk,
	}, nil
}

// Issue signs a token for subject with role. ttl <= 0 uses the configured lifetime.
func (i *Issuer) Issue(subject, role string, ttl time.Duration) (string, time.Time, error) {
	const op = "auth.Issuer.Issue"

	if ttl <= 0 {
		ttl = i.ttl
	}

	now := i.clock.Now()
	exp := now.Add(ttl)

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})

	signed, err := tok.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	return signed, exp, nil
}

// Parse verifies raw and returns the identity it carries.
//
// Returns:
//   - error: auth.ErrInvalidToken if the signature, issuer, algorithm or expiry is wrong.
func (i *Issuer) Parse(raw string) (Identity, error) {
	const op = "auth.Issuer.Parse"

	var c claims
	_, err := jwt.ParseWithClaims(raw, &c,
		func(*jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.clock.Now),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("%s: %w: %v", op, ErrInvalidToken, err)
	}

	if c.Subject == "" {
		return Identity{}, fmt.Errorf("%s: %w: missing subject", op, ErrInvalidToken)
	}

	return Identity{Subject: c.Subject, Role: c.Role}, nil
}
