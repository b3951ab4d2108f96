package models

import (
	"time"
)

// Gender values accepted on a profile.
const (
	GenderMale   = "Male"
	GenderFemale = "Female"
	GenderOther  = "Other"
)

// ValidGender reports whether g is one of the accepted gender values.
func ValidGender(g string) bool {
	return g == GenderMale || g == GenderFemale || g == GenderOther
}

// Profile holds the per-user profile. Exactly one exists per active user;
// it is created at verification time.
type Profile struct {
	ID          uint       `gorm:"primaryKey" json:"-"`
	UserID      uint       `gorm:"uniqueIndex;not null" json:"user_id"`
	User        User       `gorm:"foreignKey:UserID" json:"-"`
	Image       string     `json:"image"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	Gender      string     `gorm:"not null;default:Other" json:"gender"`
	CreatedAt   time.Time  `json:"created_at"`

	// Following is the asymmetric follow graph: rows here mean "this
	// profile follows that profile", not the other way around.
	Following []*Profile `gorm:"many2many:profile_following;joinForeignKey:FollowerID;joinReferences:FollowedID" json:"-"`
}
