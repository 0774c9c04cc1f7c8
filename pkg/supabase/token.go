package supabase

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims are the claims the auth API puts in its access tokens.
type AccessClaims struct {
	Email        string                 `json:"email"`
	Role         string                 `json:"role"`
	UserMetadata map[string]interface{} `json:"user_metadata"`
	jwt.RegisteredClaims
}

// MetadataRole returns the role the user picked at sign-up, if any.
func (c *AccessClaims) MetadataRole() string {
	if c == nil || c.UserMetadata == nil {
		return ""
	}
	role, _ := c.UserMetadata["role"].(string)
	return role
}

// ExpiresAtTime returns the token expiry or the zero time.
func (c *AccessClaims) ExpiresAtTime() time.Time {
	if c == nil || c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time.UTC()
}

// ParseAccessToken decodes an access token. With a JWT secret configured the
// HS256 signature is verified; without one the claims are read unverified,
// which is only safe because the backend re-validates every request.
func (c *AuthClient) ParseAccessToken(token string) (*AccessClaims, error) {
	return ParseAccessToken(token, c.jwtSecret)
}

// ParseAccessToken is the standalone form of AuthClient.ParseAccessToken.
func ParseAccessToken(token, secret string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if secret == "" {
		if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
			return nil, fmt.Errorf("supabase: parse token: %w", err)
		}
		return claims, nil
	}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, fmt.Errorf("supabase: verify token: %w", err)
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("supabase: token invalid")
	}
	return claims, nil
}
