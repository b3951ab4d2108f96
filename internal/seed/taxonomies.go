// Package seed provides helpers to create demo and test data for the
// application database. Taxonomy seeding also runs at startup; everything
// else is development-only.
package seed

import (
	"giftfeed/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BuiltInCategories are the gift categories available from a fresh install.
// Categories are admin-managed; there is no API to create them.
var BuiltInCategories = []string{
	"Electronics",
	"Fashion",
	"Home & Kitchen",
	"Toys & Games",
	"Books",
	"Beauty",
	"Sports & Outdoors",
	"Jewelry",
	"Food & Drink",
	"Handmade",
	"Experiences",
	"Pets",
}

// BuiltInOccasions are the occasions available from a fresh install.
var BuiltInOccasions = []string{
	"Birthday",
	"Christmas",
	"Anniversary",
	"Wedding",
	"Valentine's Day",
	"Mother's Day",
	"Father's Day",
	"Graduation",
	"New Baby",
	"Housewarming",
	"Retirement",
	"Just Because",
}

// Taxonomies upserts the built-in categories and occasions. Safe to run on
// every startup; existing rows are left untouched.
func Taxonomies(db *gorm.DB) error {
	for _, name := range BuiltInCategories {
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).Create(&models.Category{Name: name}).Error
		if err != nil {
			return err
		}
	}
	for _, name := range BuiltInOccasions {
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).Create(&models.Occasion{Name: name}).Error
		if err != nil {
			return err
		}
	}
	return nil
}
