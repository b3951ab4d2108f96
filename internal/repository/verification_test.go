package repository

import (
	"context"
	"testing"
	"time"

	"giftfeed/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeRepository_ReplaceRegistrationCode(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	repo := NewCodeRepository(db)

	user := createTestUser(t, db, "user@example.com")

	require.NoError(t, repo.ReplaceRegistrationCode(ctx, user.ID, "1234"))
	require.NoError(t, repo.ReplaceRegistrationCode(ctx, user.ID, "5678"))

	// Only the latest code survives
	var count int64
	require.NoError(t, db.Model(&models.RegistrationCode{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	stale, err := repo.GetRegistrationCode(ctx, user.ID, "1234")
	require.NoError(t, err)
	assert.Nil(t, stale)

	current, err := repo.GetRegistrationCode(ctx, user.ID, "5678")
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, "5678", current.Code)
}

func TestCodeRepository_GetRegistrationCode_WrongUser(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	repo := NewCodeRepository(db)

	alice := createTestUser(t, db, "alice@example.com")
	bob := createTestUser(t, db, "bob@example.com")

	require.NoError(t, repo.ReplaceRegistrationCode(ctx, alice.ID, "1234"))

	rec, err := repo.GetRegistrationCode(ctx, bob.ID, "1234")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestCodeRepository_ResetCodeLifecycle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	repo := NewCodeRepository(db)

	user := createTestUser(t, db, "user@example.com")

	require.NoError(t, repo.ReplaceResetCode(ctx, user.ID, "4321"))

	rec, err := repo.GetResetCode(ctx, user.ID, "4321")
	require.NoError(t, err)
	require.NotNil(t, rec)

	require.NoError(t, repo.DeleteResetCodes(ctx, user.ID))

	rec, err = repo.GetResetCode(ctx, user.ID, "4321")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestCodeExpiry(t *testing.T) {
	now := time.Now()

	fresh := models.RegistrationCode{Code: "1234", CreatedAt: now.Add(-9 * time.Minute)}
	assert.False(t, fresh.Expired(now))

	stale := models.RegistrationCode{Code: "1234", CreatedAt: now.Add(-11 * time.Minute)}
	assert.True(t, stale.Expired(now))

	reset := models.PasswordResetCode{Code: "4321", CreatedAt: now.Add(-models.CodeTTL - time.Second)}
	assert.True(t, reset.Expired(now))
}
