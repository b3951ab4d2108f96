package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix        = "user:%d"
	PostKeyPrefix        = "post:%d"
	UnreadCountKeyPrefix = "notif:unread:%d"
	CategoriesKey        = "categories"
	OccasionsKey         = "occasions"
)

const (
	UserTTL        = 5 * time.Minute
	PostTTL        = 30 * time.Minute
	TaxonomyTTL    = 1 * time.Hour
	UnreadCountTTL = 1 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func PostKey(postID uint) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

func UnreadCountKey(userID uint) string {
	return fmt.Sprintf(UnreadCountKeyPrefix, userID)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

func InvalidatePost(ctx context.Context, postID uint) {
	Invalidate(ctx, PostKey(postID))
}

func InvalidateUnreadCount(ctx context.Context, userID uint) {
	Invalidate(ctx, UnreadCountKey(userID))
}

func InvalidateTaxonomies(ctx context.Context) {
	Invalidate(ctx, CategoriesKey)
	Invalidate(ctx, OccasionsKey)
}
