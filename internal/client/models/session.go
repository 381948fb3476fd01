package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidSession = errors.New("invalid session record")

// Session is the persisted proof that a user authenticated on this device.
// It is valid strictly before ExpiresAt.
type Session struct {
	ID        uuid.UUID
	User      User
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// NewSession issues a session for user valid for d starting at now.
func NewSession(user User, now time.Time, d time.Duration) *Session {
	return &Session{
		ID:        uuid.New(),
		User:      user.Clone(),
		IssuedAt:  now,
		ExpiresAt: now.Add(d),
	}
}

// IsValidAt reports whether the session has not expired at now.
func (s *Session) IsValidAt(now time.Time) bool {
	return s != nil && now.Before(s.ExpiresAt)
}

// Renew moves the expiry to now+d. IssuedAt is kept.
func (s *Session) Renew(now time.Time, d time.Duration) {
	s.ExpiresAt = now.Add(d)
}

// Clone returns a deep copy of s.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.User = s.User.Clone()
	return &c
}

type sessionRecord struct {
	ID        string `json:"id,omitempty"`
	User      User   `json:"user"`
	IssuedAt  int64  `json:"issuedAt"`
	ExpiresAt int64  `json:"expiresAt"`
}

// MarshalJSON writes timestamps as epoch milliseconds.
func (s Session) MarshalJSON() ([]byte, error) {
	return json.Marshal(sessionRecord{
		ID:        s.ID.String(),
		User:      s.User,
		IssuedAt:  s.IssuedAt.UnixMilli(),
		ExpiresAt: s.ExpiresAt.UnixMilli(),
	})
}

// UnmarshalJSON rejects records without a user or expiry. The id is
// informational: records written without one get a fresh id.
func (s *Session) UnmarshalJSON(data []byte) error {
	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	id, err := uuid.Parse(rec.ID)
	if err != nil {
		id = uuid.New()
	}
	if rec.User.Username == "" {
		return fmt.Errorf("%w: missing user", ErrInvalidSession)
	}
	if rec.ExpiresAt <= 0 {
		return fmt.Errorf("%w: missing expiresAt", ErrInvalidSession)
	}

	*s = Session{
		ID:        id,
		User:      rec.User,
		IssuedAt:  time.UnixMilli(rec.IssuedAt),
		ExpiresAt: time.UnixMilli(rec.ExpiresAt),
	}
	return nil
}
