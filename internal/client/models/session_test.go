package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_IsValidAt(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewSession(User{Username: "adm"}, now, 48*time.Hour)

	assert.True(t, s.IsValidAt(now))
	assert.True(t, s.IsValidAt(now.Add(48*time.Hour-time.Millisecond)))
	assert.False(t, s.IsValidAt(now.Add(48*time.Hour)), "expiry instant is already invalid")
	assert.False(t, s.IsValidAt(now.Add(49*time.Hour)))

	var nilSession *Session
	assert.False(t, nilSession.IsValidAt(now))
}

func TestSession_RenewKeepsIssuedAt(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewSession(User{Username: "adm"}, now, time.Hour)

	later := now.Add(30 * time.Minute)
	s.Renew(later, time.Hour)

	assert.Equal(t, now, s.IssuedAt)
	assert.Equal(t, later.Add(time.Hour), s.ExpiresAt)
}

func TestSession_JSONUsesEpochMillis(t *testing.T) {
	issued := time.UnixMilli(1_700_000_000_123)
	s := NewSession(User{Username: "alice", Secret: "h"}.WithRemoteID(9), issued, time.Second)

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, s.ID.String(), raw["id"])
	assert.EqualValues(t, 1_700_000_000_123, raw["issuedAt"])
	assert.EqualValues(t, 1_700_000_001_123, raw["expiresAt"])
	assert.Equal(t, map[string]any{"username": "alice", "secret": "h", "remoteId": float64(9)}, raw["user"])

	var back Session
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.ExpiresAt.Equal(s.ExpiresAt))
	assert.True(t, back.User.SameRemoteID(9))
}

func TestSession_UnmarshalRejectsGarbage(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"not an object", `"str"`},
		{"no user", `{"id":"9b2f3b56-3c7a-4a53-9a59-0f5b1a0e0c11","expiresAt":1}`},
		{"no expiry", `{"id":"9b2f3b56-3c7a-4a53-9a59-0f5b1a0e0c11","user":{"username":"a"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Session
			assert.ErrorIs(t, json.Unmarshal([]byte(tt.in), &s), ErrInvalidSession)
		})
	}
}

func TestSession_UnmarshalWithoutID(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"missing id", `{"user":{"username":"bob","remoteId":7},"issuedAt":1000,"expiresAt":2000}`},
		{"unparseable id", `{"id":"x","user":{"username":"bob","remoteId":7},"issuedAt":1000,"expiresAt":2000}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Session
			require.NoError(t, json.Unmarshal([]byte(tt.in), &s))
			assert.NotEqual(t, uuid.Nil, s.ID)
			assert.Equal(t, "bob", s.User.Username)
			assert.True(t, s.User.SameRemoteID(7))
			assert.Equal(t, time.UnixMilli(1000), s.IssuedAt)
			assert.Equal(t, time.UnixMilli(2000), s.ExpiresAt)
		})
	}
}

func TestUser_CloneIsDeep(t *testing.T) {
	u := User{Username: "a"}.WithRemoteID(1)
	c := u.Clone()
	*c.RemoteID = 2

	assert.True(t, u.SameRemoteID(1))
	assert.False(t, User{}.HasRemoteID())
}
