package models

import (
	"time"
)

// CodeTTL is how long a verification or reset code stays usable.
const CodeTTL = 10 * time.Minute

// RegistrationCode is a short-lived numeric credential proving email
// ownership during signup. Superseded codes are deleted before a new one
// is issued, so at most one live code exists per user.
type RegistrationCode struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
	Code      string    `gorm:"not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the code is past its 10-minute lifetime at now.
func (c *RegistrationCode) Expired(now time.Time) bool {
	return now.After(c.CreatedAt.Add(CodeTTL))
}

// PasswordResetCode mirrors RegistrationCode for the password reset flow.
// A new request replaces any prior live code.
type PasswordResetCode struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
	Code      string    `gorm:"not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the code is past its 10-minute lifetime at now.
func (c *PasswordResetCode) Expired(now time.Time) bool {
	return now.After(c.CreatedAt.Add(CodeTTL))
}
