// Package bootstrap wires up runtime dependencies shared by the server and
// the seeder commands.
package bootstrap

import (
	"fmt"

	"giftfeed/internal/cache"
	"giftfeed/internal/config"
	"giftfeed/internal/database"
	"giftfeed/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// InitRuntime connects to the database and Redis and ensures the built-in
// categories and occasions exist. The Redis client may be nil when the
// server is unreachable; callers degrade gracefully.
func InitRuntime(cfg *config.Config) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if err := seed.Taxonomies(db); err != nil {
		return nil, nil, fmt.Errorf("failed to seed built-in taxonomies: %w", err)
	}

	return db, r, nil
}
