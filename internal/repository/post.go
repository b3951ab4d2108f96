package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"giftfeed/internal/cache"
	"giftfeed/internal/models"

	"gorm.io/gorm"
)

// TrendingWindow is how far back trending scoring looks.
const TrendingWindow = 30 * 24 * time.Hour

// PostFilter narrows a post listing. Zero-valued fields are ignored;
// set fields combine conjunctively.
type PostFilter struct {
	CategoryID uint
	OccasionID uint
	Target     string
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint, currentUserID uint) (*models.Post, error)
	GetByUserID(ctx context.Context, userID uint, limit, offset int, currentUserID uint) ([]*models.Post, error)
	List(ctx context.Context, limit, offset int, currentUserID uint) ([]*models.Post, error)
	Filter(ctx context.Context, filter PostFilter, limit, offset int, currentUserID uint) ([]*models.Post, error)
	Search(ctx context.Context, query string, limit, offset int, currentUserID uint) ([]*models.Post, error)
	Trending(ctx context.Context, limit, offset int, currentUserID uint) ([]*models.Post, error)
	Recommend(ctx context.Context, userID uint, limit int) ([]*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
	IncrementViews(ctx context.Context, id uint) error
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// applyPostDetails adds subqueries to fetch counts, engagement flags and the
// author's profile image in a single query.
func (r *postRepository) applyPostDetails(db *gorm.DB, currentUserID uint) *gorm.DB {
	selectQuery := "posts.*, " +
		"(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id AND comments.deleted_at IS NULL) as comments_count, " +
		"(SELECT COUNT(*) FROM likes WHERE likes.post_id = posts.id) as likes_count, " +
		"(SELECT profiles.image FROM profiles WHERE profiles.user_id = posts.user_id) as author_image"

	if currentUserID != 0 {
		return db.Select(selectQuery+
			", EXISTS(SELECT 1 FROM likes WHERE likes.post_id = posts.id AND likes.user_id = ?) as liked"+
			", EXISTS(SELECT 1 FROM wishlists WHERE wishlists.post_id = posts.id AND wishlists.user_id = ?) as wishlisted",
			currentUserID, currentUserID)
	}

	return db.Select(selectQuery + ", 0 as liked, 0 as wishlisted")
}

func (r *postRepository) withAssociations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("User").
		Preload("Category").
		Preload("Occasion").
		Preload("Images")
}

// approvedOnly restricts listings to posts that passed the moderation gate.
func (r *postRepository) approvedOnly(db *gorm.DB) *gorm.DB {
	return db.Where("posts.approved = ?", true)
}

func (r *postRepository) GetByID(ctx context.Context, id uint, currentUserID uint) (*models.Post, error) {
	var post models.Post
	err := r.withAssociations(r.applyPostDetails(r.db.WithContext(ctx), currentUserID)).
		First(&post, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

func (r *postRepository) GetByUserID(ctx context.Context, userID uint, limit, offset int, currentUserID uint) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.withAssociations(r.applyPostDetails(r.db.WithContext(ctx), currentUserID)).
		Where("posts.user_id = ?", userID).
		Order("posts.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) List(ctx context.Context, limit, offset int, currentUserID uint) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.approvedOnly(r.withAssociations(r.applyPostDetails(r.db.WithContext(ctx), currentUserID))).
		Order("posts.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) Filter(ctx context.Context, filter PostFilter, limit, offset int, currentUserID uint) ([]*models.Post, error) {
	q := r.approvedOnly(r.withAssociations(r.applyPostDetails(r.db.WithContext(ctx), currentUserID)))

	if filter.CategoryID != 0 {
		q = q.Where("posts.category_id = ?", filter.CategoryID)
	}
	if filter.OccasionID != 0 {
		q = q.Where("posts.occasion_id = ?", filter.OccasionID)
	}
	if filter.Target != "" {
		q = q.Where("posts.target = ?", filter.Target)
	}

	var posts []*models.Post
	err := q.Order("posts.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// Search matches the query case-insensitively against post content, target
// and the names of the referenced category and occasion. A blank query
// returns no results.
func (r *postRepository) Search(ctx context.Context, query string, limit, offset int, currentUserID uint) ([]*models.Post, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*models.Post{}, nil
	}

	like := "%" + strings.ToLower(query) + "%"
	var posts []*models.Post
	err := r.approvedOnly(r.withAssociations(r.applyPostDetails(r.db.WithContext(ctx), currentUserID))).
		Joins("LEFT JOIN categories ON categories.id = posts.category_id").
		Joins("LEFT JOIN occasions ON occasions.id = posts.occasion_id").
		Where(
			"LOWER(posts.content) LIKE ? OR LOWER(posts.target) LIKE ? OR LOWER(categories.name) LIKE ? OR LOWER(occasions.name) LIKE ?",
			like, like, like, like,
		).
		Order("posts.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// Trending ranks recent approved posts by total engagement (likes plus
// comments), newest first on ties. The cutoff is computed here rather than
// in SQL so the query stays portable across dialects.
func (r *postRepository) Trending(ctx context.Context, limit, offset int, currentUserID uint) ([]*models.Post, error) {
	cutoff := time.Now().Add(-TrendingWindow)

	var posts []*models.Post
	err := r.approvedOnly(r.withAssociations(r.applyPostDetails(r.db.WithContext(ctx), currentUserID))).
		Where("posts.created_at > ?", cutoff).
		Order("((SELECT COUNT(*) FROM likes WHERE likes.post_id = posts.id) + " +
			"(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id AND comments.deleted_at IS NULL)) DESC, " +
			"posts.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// Recommend suggests approved posts sharing a category, occasion or target
// audience with posts the user engaged with (liked, wishlisted or commented
// on), excluding the user's own posts and posts already engaged with. A user
// with no engagement history gets an empty result rather than a generic feed.
func (r *postRepository) Recommend(ctx context.Context, userID uint, limit int) ([]*models.Post, error) {
	engagedIDs, err := r.engagedPostIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(engagedIDs) == 0 {
		return []*models.Post{}, nil
	}

	var categoryIDs []uint
	if err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Distinct("category_id").
		Where("id IN ? AND category_id IS NOT NULL", engagedIDs).
		Pluck("category_id", &categoryIDs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	var occasionIDs []uint
	if err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Distinct("occasion_id").
		Where("id IN ? AND occasion_id IS NOT NULL", engagedIDs).
		Pluck("occasion_id", &occasionIDs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	var targets []string
	if err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Distinct("target").
		Where("id IN ? AND target <> ''", engagedIDs).
		Pluck("target", &targets).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	var conds []string
	var args []interface{}
	if len(categoryIDs) > 0 {
		conds = append(conds, "posts.category_id IN ?")
		args = append(args, categoryIDs)
	}
	if len(occasionIDs) > 0 {
		conds = append(conds, "posts.occasion_id IN ?")
		args = append(args, occasionIDs)
	}
	if len(targets) > 0 {
		conds = append(conds, "posts.target IN ?")
		args = append(args, targets)
	}
	if len(conds) == 0 {
		return []*models.Post{}, nil
	}

	q := r.approvedOnly(r.withAssociations(r.applyPostDetails(r.db.WithContext(ctx), userID))).
		Where("posts.id NOT IN ?", engagedIDs).
		Where("posts.user_id <> ?", userID).
		Where(strings.Join(conds, " OR "), args...)

	var posts []*models.Post
	err = q.Order("posts.created_at DESC").
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// engagedPostIDs collects the distinct post IDs the user liked, wishlisted
// or commented on.
func (r *postRepository) engagedPostIDs(ctx context.Context, userID uint) ([]uint, error) {
	seen := map[uint]struct{}{}
	var out []uint

	collect := func(model interface{}) error {
		var ids []uint
		if err := r.db.WithContext(ctx).
			Model(model).
			Where("user_id = ?", userID).
			Pluck("post_id", &ids).Error; err != nil {
			return err
		}
		for _, id := range ids {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				out = append(out, id)
			}
		}
		return nil
	}

	for _, m := range []interface{}{&models.Like{}, &models.Wishlist{}, &models.Comment{}} {
		if err := collect(m); err != nil {
			return nil, models.NewInternalError(err)
		}
	}
	return out, nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Save(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidatePost(ctx, post.ID)
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.Post{}, id).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidatePost(ctx, id)
	return nil
}

func (r *postRepository) IncrementViews(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + 1")).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
