package repository

import (
	"testing"

	"giftfeed/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.Profile{},
		&models.RegistrationCode{},
		&models.PasswordResetCode{},
		&models.Category{},
		&models.Occasion{},
		&models.Post{},
		&models.PostImage{},
		&models.Comment{},
		&models.Like{},
		&models.Wishlist{},
		&models.DeviceToken{},
		&models.Notification{},
	)
	require.NoError(t, err)
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := models.User{
		Email:     email,
		FirstName: "Test",
		LastName:  "User",
		Password:  "hashed",
		IsActive:  true,
	}
	require.NoError(t, db.Create(&user).Error)
	require.NoError(t, db.Create(&models.Profile{UserID: user.ID, Gender: models.GenderOther}).Error)
	return &user
}

func createTestPost(t *testing.T, db *gorm.DB, userID uint, content string) *models.Post {
	t.Helper()
	post := models.Post{
		UserID:   userID,
		Content:  content,
		Target:   models.TargetMen,
		Approved: true,
	}
	require.NoError(t, db.Create(&post).Error)
	return &post
}
