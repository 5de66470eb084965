package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSession(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

	s := NewSession(Identity{Username: "admin", Role: RoleAdmin, Id: 1}, now)
	assert.Equal(t, UserId(1), s.Id)
	assert.Equal(t, now, s.LoginTime)
	assert.True(t, s.IsAdmin())

	s = NewSession(Identity{Username: "bob", Role: RoleUser}, now)
	assert.Equal(t, UserId(now.UnixMilli()), s.Id)
	assert.False(t, s.IsAdmin())
	assert.True(t, s.HasIdentity())
}

func TestSession_NilSafety(t *testing.T) {
	var s *Session
	assert.False(t, s.IsAdmin())
	assert.False(t, s.HasIdentity())
}

func TestSession_JsonFormat(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	s := NewSession(Identity{Username: "admin", Role: RoleAdmin, Id: 42}, now)

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"username":"admin","role":"ADMIN","id":42,"loginTime":"2024-05-01T12:30:00Z"}`,
		string(data))

	var decoded Session
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, *s, decoded)
}
