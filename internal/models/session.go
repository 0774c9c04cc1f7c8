package models

import (
	"strings"
	"time"
)

// Role determines which top-level screen a session sees.
type Role string

const (
	RoleParent  Role = "parent"
	RoleTeacher Role = "teacher"
)

// Valid reports whether the role is one of the canonical values.
func (r Role) Valid() bool {
	return r == RoleParent || r == RoleTeacher
}

// ParseRole accepts the canonical spellings and the legacy Portuguese ones
// ("pai", "responsavel", "professor") used by earlier builds.
func ParseRole(raw string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "parent", "pai", "responsavel", "responsável":
		return RoleParent, true
	case "teacher", "professor":
		return RoleTeacher, true
	default:
		return "", false
	}
}

// Session is the single authenticated identity of this app instance.
type Session struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	Name         string    `json:"name,omitempty"`
	Role         Role      `json:"role"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Clone returns a copy safe to hand out to readers.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// Expired reports whether the access token expires within margin of now.
func (s *Session) Expired(now time.Time, margin time.Duration) bool {
	if s == nil || s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(margin).Before(s.ExpiresAt)
}

// AuthEvent names an auth-state transition.
type AuthEvent string

const (
	AuthEventInitialSession AuthEvent = "INITIAL_SESSION"
	AuthEventSignedIn       AuthEvent = "SIGNED_IN"
	AuthEventSignedOut      AuthEvent = "SIGNED_OUT"
	AuthEventTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
)
