package repository

import (
	"context"

	"giftfeed/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeviceRepository manages push-capable device registrations.
type DeviceRepository interface {
	// Upsert registers a device for the user. Re-registering an existing
	// (user, token) pair refreshes its metadata and reactivates it.
	Upsert(ctx context.Context, token *models.DeviceToken) error
	Deactivate(ctx context.Context, userID uint, token string) error
	DeactivateAll(ctx context.Context, userID uint) error
	DeactivateTokens(ctx context.Context, tokens []string) error
	ActiveTokens(ctx context.Context, userID uint) ([]string, error)
}

type deviceRepository struct {
	db *gorm.DB
}

// NewDeviceRepository returns a new DeviceRepository implementation.
func NewDeviceRepository(db *gorm.DB) DeviceRepository {
	return &deviceRepository{db: db}
}

func (r *deviceRepository) Upsert(ctx context.Context, token *models.DeviceToken) error {
	token.Platform = models.NormalizePlatform(token.Platform)
	token.IsActive = true

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "token"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"platform", "os_version", "device_name", "is_active", "updated_at",
			}),
		}).
		Create(token).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// Deactivate flips IsActive off for one (user, token) pair. A token the user
// never registered is NOT_FOUND.
func (r *deviceRepository) Deactivate(ctx context.Context, userID uint, token string) error {
	res := r.db.WithContext(ctx).
		Model(&models.DeviceToken{}).
		Where("user_id = ? AND token = ?", userID, token).
		Update("is_active", false)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return &models.AppError{Code: "NOT_FOUND", Message: "Device token not found"}
	}
	return nil
}

func (r *deviceRepository) DeactivateAll(ctx context.Context, userID uint) error {
	err := r.db.WithContext(ctx).
		Model(&models.DeviceToken{}).
		Where("user_id = ?", userID).
		Update("is_active", false).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// DeactivateTokens prunes tokens rejected by the push provider, regardless
// of owner.
func (r *deviceRepository) DeactivateTokens(ctx context.Context, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Model(&models.DeviceToken{}).
		Where("token IN ?", tokens).
		Update("is_active", false).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *deviceRepository) ActiveTokens(ctx context.Context, userID uint) ([]string, error) {
	var tokens []string
	err := r.db.WithContext(ctx).
		Model(&models.DeviceToken{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Pluck("token", &tokens).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return tokens, nil
}
