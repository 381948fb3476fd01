package services

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/finkeeper/internal/client/client"
	"github.com/dmitrijs2005/finkeeper/internal/client/models"
	"github.com/dmitrijs2005/finkeeper/internal/common"
)

func withRemote[T any](ctx context.Context, timeout time.Duration, call func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return call(ctx)
}

// SyncWithBackend links the local identity to its remote record, creating
// the record if needed. Errors are logged and swallowed; the authentication
// state never changes.
func (m *AuthManager) SyncWithBackend(ctx context.Context) {
	p := m.Profile()
	if p == nil {
		return
	}
	if id, ok := m.findOrCreate(ctx, p.Username); ok {
		m.adopt(ctx, p.Username, id)
	}
}

// spawn runs fn in the background under the manager lifetime context.
// Callers hold opMu.
func (m *AuthManager) spawn(fn func(ctx context.Context)) {
	m.mu.RLock()
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return
	}

	m.taskWG.Add(1)
	go func() {
		defer m.taskWG.Done()
		fn(m.ctx)
	}()
}

func (m *AuthManager) reconcileAsync(username string) {
	m.spawn(func(ctx context.Context) {
		if id, ok := m.findOrCreate(ctx, username); ok {
			m.adopt(ctx, username, id)
		}
	})
}

func (m *AuthManager) findOrCreate(ctx context.Context, username string) (int64, bool) {
	ru, err := withRemote(ctx, m.remoteTimeout, func(ctx context.Context) (*client.RemoteUser, error) {
		return m.client.FindByUsername(ctx, username)
	})
	if err != nil {
		m.log.Warn(ctx, "reconciliation lookup failed", "username", username, "error", err)
		return 0, false
	}
	if ru != nil {
		return ru.ID, true
	}

	secret, ok := m.heldCredential(username)
	if !ok {
		m.log.Info(ctx, "remote user missing and no credential held to create it", "username", username)
		return 0, false
	}
	defer common.WipeByteArray(secret)
	return m.controlledCreate(ctx, username, secret)
}

// controlledCreate creates the remote user unless the name is taken, in
// which case the existing record is adopted.
func (m *AuthManager) controlledCreate(ctx context.Context, username string, secret []byte) (int64, bool) {
	exists, err := withRemote(ctx, m.remoteTimeout, func(ctx context.Context) (bool, error) {
		return m.client.Exists(ctx, username)
	})
	if err != nil {
		m.log.Warn(ctx, "reconciliation exists check failed", "username", username, "error", err)
		return 0, false
	}

	if !exists {
		ru, err := withRemote(ctx, m.remoteTimeout, func(ctx context.Context) (*client.RemoteUser, error) {
			return m.client.Create(ctx, username, string(secret))
		})
		switch {
		case err == nil:
			m.log.Info(ctx, "remote user created", "username", username, "remote_id", ru.ID)
			return ru.ID, true
		case !errors.Is(err, client.ErrAlreadyExists):
			m.log.Warn(ctx, "remote user creation failed", "username", username, "error", err)
			return 0, false
		}
	}

	ru, err := withRemote(ctx, m.remoteTimeout, func(ctx context.Context) (*client.RemoteUser, error) {
		return m.client.FindByUsername(ctx, username)
	})
	if err != nil || ru == nil {
		m.log.Warn(ctx, "existing remote user could not be fetched", "username", username, "error", err)
		return 0, false
	}
	return ru.ID, true
}

func (m *AuthManager) reconcileUpdateAsync(user models.User) {
	m.spawn(func(ctx context.Context) {
		secret, ok := m.heldCredential(user.Username)
		if !ok {
			return
		}
		defer common.WipeByteArray(secret)

		if user.RemoteID != nil {
			fields := client.UpdateFields{Username: user.Username, Secret: string(secret)}
			_, err := withRemote(ctx, m.remoteTimeout, func(ctx context.Context) (*client.RemoteUser, error) {
				return m.client.Update(ctx, *user.RemoteID, fields)
			})
			switch {
			case err == nil:
				m.log.Info(ctx, "remote user updated", "username", user.Username, "remote_id", *user.RemoteID)
				return
			case !errors.Is(err, client.ErrNotFound):
				m.log.Warn(ctx, "remote user update failed", "username", user.Username, "error", err)
				return
			}
			m.log.Info(ctx, "remote user vanished, recreating", "username", user.Username)
		}

		if id, ok := m.controlledCreate(ctx, user.Username, secret); ok {
			m.adopt(ctx, user.Username, id)
		}
	})
}

// adopt stores id on the profile and the active session, provided the
// identity is still username. A concurrent logout or update wins. A token
// left by a background create is dropped unless that user is still logged in.
func (m *AuthManager) adopt(ctx context.Context, username string, id int64) bool {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if ctx.Err() != nil {
		return false
	}
	p := m.Profile()
	if p == nil || p.Username != username {
		m.client.ClearToken()
		m.log.Debug(ctx, "reconciliation result superseded", "username", username)
		return false
	}
	if !m.IsAuthenticated() {
		m.client.ClearToken()
	}
	if p.SameRemoteID(id) {
		return false
	}

	user := p.WithRemoteID(id)
	sess := m.Session()

	var err error
	if sess != nil {
		sess.User = user.Clone()
		err = m.store.SaveProfileAndSession(ctx, user, sess)
	} else {
		err = m.store.SaveProfile(ctx, user)
	}
	if err != nil {
		m.log.Error(ctx, "failed to persist remote id", "username", username, "error", err)
		return false
	}

	m.mu.Lock()
	m.profile = &user
	if sess != nil {
		m.session = sess
	}
	m.mu.Unlock()

	m.log.Info(ctx, "adopted remote id", "username", username, "remote_id", id)
	return true
}
