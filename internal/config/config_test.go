package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		env         string
		sslMode     string
		jwtSecret   string
		expectError bool
	}{
		{"Production with disable SSL mode", "production", "disable", "secure-secret-at-least-32-chars-long", true},
		{"Production with require SSL mode", "production", "require", "secure-secret-at-least-32-chars-long", false},
		{"Production with default JWT secret", "production", "require", "your-secret-key-change-in-production", true},
		{"Production with short JWT secret", "production", "require", "short", true},
		{"Development with disable SSL mode", "development", "disable", "dev-secret", false},
		{"Test with empty SSL mode", "test", "", "test-secret", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{
				Env:        tt.env,
				DBSSLMode:  tt.sslMode,
				JWTSecret:  tt.jwtSecret,
				DBPassword: "secure-password",
				Port:       "8460",
				RedisURL:   "redis://localhost:6379",
			}

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_TestEnvUsesDefaults(t *testing.T) {
	defer os.Unsetenv("APP_ENV")
	defer viper.Reset()

	os.Setenv("APP_ENV", "test")

	c, err := LoadConfig()
	assert.NoError(t, err)
	assert.Equal(t, "8460", c.Port)
	assert.Equal(t, "giftfeed", c.DBName)
	assert.Equal(t, 1025, c.SMTPPort)
	assert.Equal(t, "stdout", c.TracingExporter)
}
