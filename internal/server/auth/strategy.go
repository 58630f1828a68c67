package auth

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/apptracker/internal/common"
	"github.com/dmitrijs2005/apptracker/internal/timex"
	"github.com/golang-jwt/jwt/v5"
)

// Token is a verified token.
type Token struct {
	Payload
	ExpiresAt time.Time
}

// TokenStrategy issues and verifies one kind of token.
type TokenStrategy interface {
	Type() TokenType
	Create(p Payload) (string, error)
	CreateWithExpiry(p Payload, expiresAt time.Time) (string, error)
	Verify(tokenString string) (*Token, error)
	Lifetime() time.Duration
}

// Strategy is the TokenStrategy for a single kind. The kind is stamped into
// every token it creates and checked on every token it verifies, so a
// validly signed token of another kind is rejected.
type Strategy struct {
	codec    *Codec
	kind     TokenType
	lifetime time.Duration
}

func NewAccessStrategy(codec *Codec, lifetime time.Duration) *Strategy {
	return &Strategy{codec: codec, kind: TypeAccess, lifetime: lifetime}
}

func NewRefreshStrategy(codec *Codec, lifetime time.Duration) *Strategy {
	return &Strategy{codec: codec, kind: TypeRefresh, lifetime: lifetime}
}

func NewVerificationStrategy(codec *Codec, lifetime time.Duration) *Strategy {
	return &Strategy{codec: codec, kind: TypeVerification, lifetime: lifetime}
}

func (s *Strategy) Type() TokenType { return s.kind }

func (s *Strategy) Lifetime() time.Duration { return s.lifetime }

func (s *Strategy) Create(p Payload) (string, error) {
	return s.create(p, nil)
}

func (s *Strategy) CreateWithExpiry(p Payload, expiresAt time.Time) (string, error) {
	return s.create(p, jwt.NewNumericDate(expiresAt))
}

func (s *Strategy) create(p Payload, exp *jwt.NumericDate) (string, error) {
	p.Type = s.kind
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: p.UserID, ExpiresAt: exp},
		Payload:          p,
	}
	return s.codec.Create(claims, s.lifetime)
}

func (s *Strategy) Verify(tokenString string) (*Token, error) {
	claims := &Claims{}
	if err := s.codec.Verify(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.Type != s.kind {
		return nil, fmt.Errorf("%w: expected %s token, got %q", common.ErrTokenInvalid, s.kind, claims.Type)
	}
	return &Token{Payload: claims.Payload, ExpiresAt: claims.ExpiresAt.Time.UTC()}, nil
}

// Strategies groups the three strategies built from one secret.
type Strategies struct {
	Access       *Strategy
	Refresh      *Strategy
	Verification *Strategy
}

// StrategyConfig carries everything needed to build Strategies.
type StrategyConfig struct {
	Secret               string
	AccessLifetime       time.Duration
	RefreshLifetime      time.Duration
	VerificationLifetime time.Duration
	Now                  timex.Clock
}

func NewStrategies(cfg StrategyConfig) *Strategies {
	codec := NewCodec(cfg.Secret, cfg.Now)
	return &Strategies{
		Access:       NewAccessStrategy(codec, cfg.AccessLifetime),
		Refresh:      NewRefreshStrategy(codec, cfg.RefreshLifetime),
		Verification: NewVerificationStrategy(codec, cfg.VerificationLifetime),
	}
}
