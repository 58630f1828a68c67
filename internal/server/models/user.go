// Package models defines server-side data models persisted in the database.
package models

import (
	"database/sql"
	"time"
)

// OAuthProvider names the identity provider that owns an account.
type OAuthProvider string

const (
	ProviderLocal    OAuthProvider = "local"
	ProviderGoogle   OAuthProvider = "google"
	ProviderLinkedIn OAuthProvider = "linkedin"
)

// DisplayName is the provider name shown to users ("Google").
func (p OAuthProvider) DisplayName() string {
	switch p {
	case ProviderGoogle:
		return "Google"
	case ProviderLinkedIn:
		return "LinkedIn"
	default:
		return "email and password"
	}
}

type User struct {
	ID            string
	Email         string
	Password      sql.NullString
	FirstName     sql.NullString
	SecondName    sql.NullString
	IsActive      bool
	OAuthProvider OAuthProvider
	OAuthID       sql.NullString
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HasPassword reports whether the user can sign in with a password.
func (u *User) HasPassword() bool {
	return u.Password.Valid && u.Password.String != ""
}

// UserProfile holds the optional fields a user may edit.
type UserProfile struct {
	FirstName  *string
	SecondName *string
}
