package models

import (
	"database/sql"
	"time"
)

// VerificationToken is a single-use account activation token.
type VerificationToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	UsedAt    sql.NullTime
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (t *VerificationToken) IsExpired(now time.Time) bool { return !t.ExpiresAt.After(now) }
func (t *VerificationToken) IsUsed() bool                 { return t.UsedAt.Valid }
