package server

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	accessTokenTTL  = time.Hour
	refreshTokenTTL = 7 * 24 * time.Hour
)

// generateTokenPair creates a short-lived access token and a long-lived
// refresh token for the user. The "typ" claim stops the two being swapped:
// AuthRequired only accepts access tokens and Refresh only accepts refresh
// tokens.
func (s *Server) generateTokenPair(userID uint) (access string, refresh string, err error) {
	access, err = s.generateToken(userID, "access", accessTokenTTL)
	if err != nil {
		return "", "", err
	}
	refresh, err = s.generateToken(userID, "refresh", refreshTokenTTL)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (s *Server) generateToken(userID uint, typ string, ttl time.Duration) (string, error) {
	if s.config.JWTSecret == "" {
		return "", fmt.Errorf("JWT secret not configured")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"typ": typ,
		"iss": tokenIssuer,
		"aud": tokenAudience,
		"exp": now.Add(ttl).Unix(),
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"jti": s.generateJTI(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

// generateJTI creates a unique JWT ID to prevent replay attacks
func (s *Server) generateJTI() string {
	return fmt.Sprintf("%d-%s", time.Now().Unix(), uuid.New().String()[:8])
}

// blacklistToken revokes a token by its jti until the token would have
// expired anyway. No-op without Redis.
func (s *Server) blacklistToken(ctx context.Context, claims jwt.MapClaims) {
	if s.redis == nil {
		return
	}
	jti, _ := claims["jti"].(string)
	if jti == "" {
		return
	}

	ttl := refreshTokenTTL
	if expVal, ok := claims["exp"].(float64); ok {
		remaining := time.Until(time.Unix(int64(expVal), 0))
		if remaining <= 0 {
			return
		}
		ttl = remaining
	}
	s.redis.Set(ctx, "blacklist:"+jti, "1", ttl)
}

// isBlacklisted reports whether a token's jti has been revoked.
func (s *Server) isBlacklisted(ctx context.Context, claims jwt.MapClaims) bool {
	if s.redis == nil {
		return false
	}
	jti, _ := claims["jti"].(string)
	if jti == "" {
		return false
	}
	exists, err := s.redis.Exists(ctx, "blacklist:"+jti).Result()
	return err == nil && exists > 0
}
