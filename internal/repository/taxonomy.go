package repository

import (
	"context"
	"errors"

	"giftfeed/internal/cache"
	"giftfeed/internal/models"

	"gorm.io/gorm"
)

// TaxonomyRepository reads the admin-managed category and occasion tables.
type TaxonomyRepository interface {
	Categories(ctx context.Context) ([]models.Category, error)
	Occasions(ctx context.Context) ([]models.Occasion, error)
	CategoryExists(ctx context.Context, id uint) (bool, error)
	OccasionExists(ctx context.Context, id uint) (bool, error)
}

type taxonomyRepository struct {
	db *gorm.DB
}

// NewTaxonomyRepository returns a new TaxonomyRepository implementation.
func NewTaxonomyRepository(db *gorm.DB) TaxonomyRepository {
	return &taxonomyRepository{db: db}
}

func (r *taxonomyRepository) Categories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := cache.Aside(ctx, cache.CategoriesKey, &categories, cache.TaxonomyTTL, func() error {
		return r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return categories, nil
}

func (r *taxonomyRepository) Occasions(ctx context.Context) ([]models.Occasion, error) {
	var occasions []models.Occasion
	err := cache.Aside(ctx, cache.OccasionsKey, &occasions, cache.TaxonomyTTL, func() error {
		return r.db.WithContext(ctx).Order("name ASC").Find(&occasions).Error
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return occasions, nil
}

func (r *taxonomyRepository) CategoryExists(ctx context.Context, id uint) (bool, error) {
	var cat models.Category
	if err := r.db.WithContext(ctx).First(&cat, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, models.NewInternalError(err)
	}
	return true, nil
}

func (r *taxonomyRepository) OccasionExists(ctx context.Context, id uint) (bool, error) {
	var occ models.Occasion
	if err := r.db.WithContext(ctx).First(&occ, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, models.NewInternalError(err)
	}
	return true, nil
}
