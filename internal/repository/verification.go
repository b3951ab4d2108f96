package repository

import (
	"context"
	"errors"

	"giftfeed/internal/models"

	"gorm.io/gorm"
)

// CodeRepository manages short-lived registration and password reset codes.
// Issuing replaces any prior code for the user, so there is at most one live
// code of each kind per user.
type CodeRepository interface {
	ReplaceRegistrationCode(ctx context.Context, userID uint, code string) error
	GetRegistrationCode(ctx context.Context, userID uint, code string) (*models.RegistrationCode, error)
	DeleteRegistrationCodes(ctx context.Context, userID uint) error

	ReplaceResetCode(ctx context.Context, userID uint, code string) error
	GetResetCode(ctx context.Context, userID uint, code string) (*models.PasswordResetCode, error)
	DeleteResetCodes(ctx context.Context, userID uint) error
}

type codeRepository struct {
	db *gorm.DB
}

// NewCodeRepository returns a new CodeRepository implementation.
func NewCodeRepository(db *gorm.DB) CodeRepository {
	return &codeRepository{db: db}
}

func (r *codeRepository) ReplaceRegistrationCode(ctx context.Context, userID uint, code string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.RegistrationCode{}).Error; err != nil {
			return err
		}
		return tx.Create(&models.RegistrationCode{UserID: userID, Code: code}).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// GetRegistrationCode returns (nil, nil) when no matching code exists.
func (r *codeRepository) GetRegistrationCode(ctx context.Context, userID uint, code string) (*models.RegistrationCode, error) {
	var rec models.RegistrationCode
	if err := r.db.WithContext(ctx).Where("user_id = ? AND code = ?", userID, code).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &rec, nil
}

func (r *codeRepository) DeleteRegistrationCodes(ctx context.Context, userID uint) error {
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.RegistrationCode{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *codeRepository) ReplaceResetCode(ctx context.Context, userID uint, code string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.PasswordResetCode{}).Error; err != nil {
			return err
		}
		return tx.Create(&models.PasswordResetCode{UserID: userID, Code: code}).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// GetResetCode returns (nil, nil) when no matching code exists.
func (r *codeRepository) GetResetCode(ctx context.Context, userID uint, code string) (*models.PasswordResetCode, error) {
	var rec models.PasswordResetCode
	if err := r.db.WithContext(ctx).Where("user_id = ? AND code = ?", userID, code).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &rec, nil
}

func (r *codeRepository) DeleteResetCodes(ctx context.Context, userID uint) error {
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.PasswordResetCode{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
