package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckRateLimit(t *testing.T) {
	tests := []struct {
		name       string
		env        string
		nilClient  bool
		limit      int
		calls      int
		wantAllow  bool
		wantErr    bool
	}{
		{
			name:      "Test Environment Bypass",
			env:       "test",
			limit:     1,
			calls:     5,
			wantAllow: true,
		},
		{
			name:      "Development Environment Bypass",
			env:       "development",
			limit:     1,
			calls:     5,
			wantAllow: true,
		},
		{
			name:      "Production Under Limit",
			env:       "production",
			limit:     5,
			calls:     3,
			wantAllow: true,
		},
		{
			name:      "Production Over Limit",
			env:       "production",
			limit:     2,
			calls:     3,
			wantAllow: false,
		},
		{
			name:      "Nil Redis Returns Error",
			env:       "production",
			nilClient: true,
			limit:     5,
			calls:     1,
			wantAllow: false,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("APP_ENV", tt.env)

			var rdb *redis.Client
			if !tt.nilClient {
				mr := miniredis.RunT(t)
				rdb = redis.NewClient(&redis.Options{Addr: mr.Addr()})
			}

			var allowed bool
			var err error
			for i := 0; i < tt.calls; i++ {
				allowed, err = CheckRateLimit(context.Background(), rdb, "test-resource", "user:1", tt.limit, time.Minute)
			}

			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantAllow, allowed)
		})
	}
}

func TestCheckRateLimit_WindowReset(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	for i := 0; i < 2; i++ {
		allowed, err := CheckRateLimit(context.Background(), rdb, "reset", "ip:1.2.3.4", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, err := CheckRateLimit(context.Background(), rdb, "reset", "ip:1.2.3.4", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)

	// Advance past the window; the counter key expires and the limit resets.
	mr.FastForward(2 * time.Minute)

	allowed, err = CheckRateLimit(context.Background(), rdb, "reset", "ip:1.2.3.4", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}
