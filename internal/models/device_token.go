package models

import (
	"time"
)

// Device platform values.
const (
	PlatformAndroid = "android"
	PlatformIOS     = "ios"
	PlatformWeb     = "web"
	PlatformUnknown = "unknown"
)

// NormalizePlatform maps unrecognized platform strings to "unknown".
func NormalizePlatform(p string) string {
	switch p {
	case PlatformAndroid, PlatformIOS, PlatformWeb:
		return p
	default:
		return PlatformUnknown
	}
}

// DeviceToken is one push-capable device registration. The (user, token)
// pair is idempotently upserted; delivery rejections and logout flip
// IsActive rather than deleting the row.
type DeviceToken struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;uniqueIndex:idx_device_user_token" json:"user_id"`
	User       User      `gorm:"foreignKey:UserID" json:"-"`
	Token      string    `gorm:"size:255;not null;uniqueIndex:idx_device_user_token" json:"token"`
	Platform   string    `gorm:"size:10;not null;default:unknown" json:"platform"`
	OSVersion  string    `gorm:"size:50" json:"os_version,omitempty"`
	DeviceName string    `gorm:"size:255" json:"device_name,omitempty"`
	IsActive   bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
