// Package auth signs and verifies the JWTs handed to clients. The Codec is
// the signing primitive; Strategy binds it to one token kind.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/apptracker/internal/common"
	"github.com/dmitrijs2005/apptracker/internal/timex"
	"github.com/golang-jwt/jwt/v5"
)

// TokenType tags a payload with the kind of token it belongs to.
type TokenType string

const (
	TypeAccess       TokenType = "access"
	TypeRefresh      TokenType = "refresh"
	TypeVerification TokenType = "verification"
)

// Payload is the subject data carried by every token kind.
type Payload struct {
	UserID    string    `json:"user_id"`
	UserEmail string    `json:"user_email"`
	Type      TokenType `json:"type"`
}

// Claims are the registered JWT claims plus the payload, flattened into one
// JSON object.
type Claims struct {
	jwt.RegisteredClaims
	Payload
}

// Codec signs and verifies claims with HS256.
type Codec struct {
	secret []byte
	now    timex.Clock
}

func NewCodec(secret string, now timex.Clock) *Codec {
	if now == nil {
		now = timex.UTCNow
	}
	return &Codec{secret: []byte(secret), now: now}
}

// Create signs claims. A missing expiry is set to now + lifetime.
func (c *Codec) Create(claims *Claims, lifetime time.Duration) (string, error) {
	now := c.now()
	if claims.ExpiresAt == nil {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(lifetime))
	}
	if claims.IssuedAt == nil {
		claims.IssuedAt = jwt.NewNumericDate(now)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(c.secret)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// Verify checks signature and expiry and decodes into claims.
// It returns common.ErrTokenExpired for a past exp claim and
// common.ErrTokenInvalid for everything else.
func (c *Codec) Verify(tokenString string, claims *Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return common.ErrTokenExpired
		}
		return fmt.Errorf("%w: %v", common.ErrTokenInvalid, err)
	}

	if !token.Valid {
		return common.ErrTokenInvalid
	}

	return nil
}
