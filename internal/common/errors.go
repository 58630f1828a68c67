// Package common defines shared constants and sentinel errors used across
// the server layers. Callers should use errors.Is / errors.As to match these
// values, or KindOf when an exhaustive switch is needed.
package common

import (
	"errors"
	"fmt"
	"time"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Token errors.
	ErrTokenInvalid        = errors.New("token is not valid")
	ErrTokenExpired        = errors.New("token is expired")
	ErrRefreshTokenRevoked = errors.New("refresh token has been revoked")
	ErrRefreshTokenReuse   = errors.New("refresh token has already been used, token family revoked")

	// User errors.
	ErrUserNotFound         = errors.New("user does not exist")
	ErrUserNotActivated     = errors.New("user is not activated")
	ErrUserAlreadyExists    = errors.New("user already exists")
	ErrUserAlreadyActivated = errors.New("user is already activated")
	ErrInvalidPassword      = errors.New("incorrect password")
	ErrRateLimitExceeded    = errors.New("rate limit exceeded")

	// OAuth errors.
	ErrOAuthTokenExchange           = errors.New("oauth token exchange failed")
	ErrOAuthProvider                = errors.New("oauth provider error")
	ErrOAuthAccountAlreadyLinked    = errors.New("oauth account is already linked to a different email")
	ErrOAuthAccountLinkedToProvider = errors.New("account was created with another provider")
	ErrOAuthStateInvalid            = errors.New("oauth state is missing or expired")
	ErrOAuthUnknownProvider         = errors.New("unknown oauth provider")
	ErrOAuthEmailNotVerified        = errors.New("oauth provider did not verify this email address")
)

// RateLimitError reports how long the caller has to wait before retrying.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: retry in %s", ErrRateLimitExceeded, e.RetryAfter.Round(time.Second))
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimitExceeded }

// LinkedToProviderError is returned when an email already belongs to an
// account registered through a different OAuth provider.
type LinkedToProviderError struct {
	Provider string
}

func (e *LinkedToProviderError) Error() string {
	return fmt.Sprintf("This account was created with %s. Please use %s to sign in.", e.Provider, e.Provider)
}

func (e *LinkedToProviderError) Unwrap() error { return ErrOAuthAccountLinkedToProvider }
