// Package session persists the user profile and the active session as JSON
// records in the metadata store.
//
// A record that cannot be decoded is treated as absent: it is deleted and the
// caller sees (nil, nil), so a damaged store never blocks startup.
package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/finkeeper/internal/client/models"
	"github.com/dmitrijs2005/finkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/finkeeper/internal/cryptox"
	"github.com/dmitrijs2005/finkeeper/internal/logging"
)

const (
	ProfileKey = "user_profile"
	SessionKey = "session"
)

type Store struct {
	repo metadata.Repository
	log  logging.Logger
}

func NewStore(repo metadata.Repository, log logging.Logger) *Store {
	return &Store{repo: repo, log: log.With("module", "session")}
}

func (s *Store) LoadSession(ctx context.Context) (*models.Session, error) {
	data, err := s.repo.Get(ctx, SessionKey)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if data == nil {
		return nil, nil
	}

	var sess models.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		s.discard(ctx, SessionKey, err)
		return nil, nil
	}
	return &sess, nil
}

func (s *Store) ClearSession(ctx context.Context) error {
	if err := s.repo.Delete(ctx, SessionKey); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (s *Store) LoadProfile(ctx context.Context) (*models.User, error) {
	data, err := s.repo.Get(ctx, ProfileKey)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if data == nil {
		return nil, nil
	}

	var user models.User
	if err := json.Unmarshal(data, &user); err != nil {
		s.discard(ctx, ProfileKey, err)
		return nil, nil
	}
	if user.Username == "" || user.Secret == "" {
		s.discard(ctx, ProfileKey, fmt.Errorf("incomplete profile"))
		return nil, nil
	}
	if cryptox.IsHashed(user.Secret) {
		if err := cryptox.CheckHash(user.Secret); err != nil {
			s.discard(ctx, ProfileKey, err)
			return nil, nil
		}
	}
	return &user, nil
}

func (s *Store) SaveProfile(ctx context.Context, user models.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	if err := s.repo.Set(ctx, ProfileKey, data); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// SaveProfileAndSession writes both records in one atomic step.
func (s *Store) SaveProfileAndSession(ctx context.Context, user models.User, sess *models.Session) error {
	profile, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	session, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	if err := s.repo.SetMany(ctx, map[string][]byte{ProfileKey: profile, SessionKey: session}); err != nil {
		return fmt.Errorf("save profile and session: %w", err)
	}
	return nil
}

// Forget removes every record this device holds and reports how many there
// were. The next start seeds the default identity again.
func (s *Store) Forget(ctx context.Context) (int, error) {
	records, err := s.repo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list records: %w", err)
	}
	if err := s.repo.Clear(ctx); err != nil {
		return 0, fmt.Errorf("clear records: %w", err)
	}
	return len(records), nil
}

func (s *Store) discard(ctx context.Context, key string, cause error) {
	s.log.Warn(ctx, "discarding unreadable record", "key", key, "error", cause)
	if err := s.repo.Delete(ctx, key); err != nil {
		s.log.Error(ctx, "failed to delete unreadable record", "key", key, "error", err)
	}
}
