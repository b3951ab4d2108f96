package repository

import (
	"context"

	"giftfeed/internal/cache"
	"giftfeed/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EngagementRepository handles like and wishlist toggles. Both rely on a
// unique (user, post) index plus ON CONFLICT DO NOTHING inserts so concurrent
// toggles never produce duplicate rows.
type EngagementRepository interface {
	ToggleLike(ctx context.Context, userID, postID uint) (liked bool, err error)
	ToggleWishlist(ctx context.Context, userID, postID uint) (wishlisted bool, err error)
	WishlistPosts(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, error)
}

type engagementRepository struct {
	db    *gorm.DB
	posts *postRepository
}

// NewEngagementRepository creates a new engagement repository.
func NewEngagementRepository(db *gorm.DB) EngagementRepository {
	return &engagementRepository{db: db, posts: &postRepository{db: db}}
}

// ToggleLike adds the like if absent, removes it if present. Returns the
// resulting state.
func (r *engagementRepository) ToggleLike(ctx context.Context, userID, postID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Like{UserID: userID, PostID: postID})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	if res.RowsAffected > 0 {
		cache.InvalidatePost(ctx, postID)
		return true, nil
	}

	// Row already existed, so this toggle removes it.
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&models.Like{}).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	cache.InvalidatePost(ctx, postID)
	return false, nil
}

// ToggleWishlist mirrors ToggleLike for wishlist entries.
func (r *engagementRepository) ToggleWishlist(ctx context.Context, userID, postID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Wishlist{UserID: userID, PostID: postID})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	err := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&models.Wishlist{}).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return false, nil
}

// WishlistPosts lists the user's saved posts, most recently saved first.
func (r *engagementRepository) WishlistPosts(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.posts.withAssociations(r.posts.applyPostDetails(r.db.WithContext(ctx), userID)).
		Joins("JOIN wishlists ON wishlists.post_id = posts.id").
		Where("wishlists.user_id = ?", userID).
		Order("wishlists.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}
