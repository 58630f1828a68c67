package models

import (
	"database/sql"
	"time"
)

// RefreshToken is the stored record of one issued refresh token. Only the
// keyed hash of the raw value is kept.
type RefreshToken struct {
	ID            string
	UserID        string
	TokenHash     string
	FamilyID      string
	ParentTokenID sql.NullString
	ExpiresAt     time.Time
	RevokedAt     sql.NullTime
	UsedAt        sql.NullTime
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (t *RefreshToken) IsExpired(now time.Time) bool { return !t.ExpiresAt.After(now) }
func (t *RefreshToken) IsRevoked() bool              { return t.RevokedAt.Valid }
func (t *RefreshToken) IsUsed() bool                 { return t.UsedAt.Valid }
