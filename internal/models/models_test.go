package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseRoleAcceptsLegacySpellings(t *testing.T) {
	cases := map[string]Role{
		"parent":    RoleParent,
		"Pai":       RoleParent,
		"teacher":   RoleTeacher,
		"PROFESSOR": RoleTeacher,
	}
	for raw, want := range cases {
		got, ok := ParseRole(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}

	_, ok := ParseRole("admin")
	assert.False(t, ok)
}

func TestStudentStatusToggledTwiceRestores(t *testing.T) {
	assert.Equal(t, StudentStatusAbsent, StudentStatusPresent.Toggled())
	assert.Equal(t, StudentStatusPresent, StudentStatusPresent.Toggled().Toggled())
	assert.Equal(t, StudentStatusPresent, StudentStatusPickupConfirmed.Toggled())
	assert.False(t, StudentStatus("Perdido").Valid())
}

func TestSessionExpired(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	s := &Session{ExpiresAt: now.Add(90 * time.Second)}
	assert.False(t, s.Expired(now, time.Minute))
	assert.True(t, s.Expired(now, 2*time.Minute))

	var missing *Session
	assert.False(t, missing.Expired(now, time.Minute))
	assert.Nil(t, missing.Clone())
}
