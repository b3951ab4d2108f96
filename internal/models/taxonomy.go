package models

// Category is an admin-managed gift category (e.g. "Electronics").
// Categories are referenced by posts and never created through the API.
type Category struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"unique;not null" json:"name"`
}

// Occasion is an admin-managed occasion (e.g. "Birthday").
type Occasion struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"unique;not null" json:"name"`
}
