package models

import (
	"time"

	"gorm.io/gorm"
)

// Target audience values for a post.
const (
	TargetMen   = "Men"
	TargetWomen = "Women"
	TargetKids  = "Kids"
)

// ValidTarget reports whether t is one of the accepted target audiences.
func ValidTarget(t string) bool {
	return t == TargetMen || t == TargetWomen || t == TargetKids
}

// Post is a gift idea shared by a user. Only approved posts are publicly
// listed, searchable or recommended.
type Post struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;index" json:"user_id"`
	User         User      `gorm:"foreignKey:UserID" json:"user"`
	Content      string    `gorm:"type:text;not null" json:"content"`
	CategoryID   *uint     `gorm:"index" json:"category_id,omitempty"`
	Category     *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	OccasionID   *uint     `gorm:"index" json:"occasion_id,omitempty"`
	Occasion     *Occasion `gorm:"foreignKey:OccasionID" json:"occasion,omitempty"`
	ExternalLink string    `json:"external_link,omitempty"`
	Target       string    `gorm:"not null" json:"target"`
	Views        uint      `gorm:"not null;default:0" json:"views"`
	Approved     bool      `gorm:"not null;default:true" json:"approved"`

	Images []PostImage `gorm:"foreignKey:PostID" json:"images"`

	// LikesCount is not persisted; computed at query time
	LikesCount int `gorm:"->" json:"likes_count"`
	// CommentsCount is not persisted; computed at query time
	CommentsCount int `gorm:"->" json:"comments_count"`
	// Liked indicates whether the current requesting user liked this post (computed)
	Liked bool `gorm:"->" json:"liked"`
	// Wishlisted indicates whether the current requesting user wishlisted this post (computed)
	Wishlisted bool `gorm:"->" json:"wishlisted"`
	// AuthorImage is the author's profile image, denormalized into responses (computed)
	AuthorImage string `gorm:"->" json:"author_image,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// PostImage is a single image attached to a post.
type PostImage struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	PostID uint   `gorm:"not null;index" json:"post_id"`
	Image  string `gorm:"not null" json:"image"`
}
