package repository

import (
	"context"
	"errors"

	"giftfeed/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProfileRepository manages profiles and the follow graph.
type ProfileRepository interface {
	GetByUserID(ctx context.Context, userID uint) (*models.Profile, error)
	Create(ctx context.Context, profile *models.Profile) error
	Update(ctx context.Context, profile *models.Profile) error
	Follow(ctx context.Context, followerUserID, followedUserID uint) error
	Unfollow(ctx context.Context, followerUserID, followedUserID uint) error
	Following(ctx context.Context, userID uint) ([]models.Profile, error)
	Followers(ctx context.Context, userID uint) ([]models.Profile, error)
	IsFollowing(ctx context.Context, followerUserID, followedUserID uint) (bool, error)
}

type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository returns a new ProfileRepository implementation.
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) GetByUserID(ctx context.Context, userID uint) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).Preload("User").Where("user_id = ?", userID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Profile", userID)
		}
		return nil, models.NewInternalError(err)
	}
	return &profile, nil
}

func (r *profileRepository) Create(ctx context.Context, profile *models.Profile) error {
	if err := r.db.WithContext(ctx).Create(profile).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewValidationError("Profile already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *profileRepository) Update(ctx context.Context, profile *models.Profile) error {
	if err := r.db.WithContext(ctx).Save(profile).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *profileRepository) profileID(ctx context.Context, userID uint) (uint, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).Select("id").Where("user_id = ?", userID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, models.NewNotFoundError("Profile", userID)
		}
		return 0, models.NewInternalError(err)
	}
	return profile.ID, nil
}

// Follow is idempotent: following someone already followed is a no-op.
func (r *profileRepository) Follow(ctx context.Context, followerUserID, followedUserID uint) error {
	followerID, err := r.profileID(ctx, followerUserID)
	if err != nil {
		return err
	}
	followedID, err := r.profileID(ctx, followedUserID)
	if err != nil {
		return err
	}
	if followerID == followedID {
		return models.NewValidationError("Cannot follow yourself")
	}

	err = r.db.WithContext(ctx).
		Table("profile_following").
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(map[string]interface{}{
			"follower_id": followerID,
			"followed_id": followedID,
		}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *profileRepository) Unfollow(ctx context.Context, followerUserID, followedUserID uint) error {
	followerID, err := r.profileID(ctx, followerUserID)
	if err != nil {
		return err
	}
	followedID, err := r.profileID(ctx, followedUserID)
	if err != nil {
		return err
	}

	err = r.db.WithContext(ctx).
		Exec("DELETE FROM profile_following WHERE follower_id = ? AND followed_id = ?", followerID, followedID).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *profileRepository) Following(ctx context.Context, userID uint) ([]models.Profile, error) {
	id, err := r.profileID(ctx, userID)
	if err != nil {
		return nil, err
	}
	var profiles []models.Profile
	err = r.db.WithContext(ctx).
		Preload("User").
		Joins("JOIN profile_following pf ON pf.followed_id = profiles.id").
		Where("pf.follower_id = ?", id).
		Find(&profiles).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return profiles, nil
}

func (r *profileRepository) Followers(ctx context.Context, userID uint) ([]models.Profile, error) {
	id, err := r.profileID(ctx, userID)
	if err != nil {
		return nil, err
	}
	var profiles []models.Profile
	err = r.db.WithContext(ctx).
		Preload("User").
		Joins("JOIN profile_following pf ON pf.follower_id = profiles.id").
		Where("pf.followed_id = ?", id).
		Find(&profiles).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return profiles, nil
}

func (r *profileRepository) IsFollowing(ctx context.Context, followerUserID, followedUserID uint) (bool, error) {
	followerID, err := r.profileID(ctx, followerUserID)
	if err != nil {
		return false, err
	}
	followedID, err := r.profileID(ctx, followedUserID)
	if err != nil {
		return false, err
	}
	var count int64
	err = r.db.WithContext(ctx).
		Table("profile_following").
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}
