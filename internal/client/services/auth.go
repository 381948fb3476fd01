// Package services contains application services for the finkeeper client.
// This file defines the AuthManager: the login/logout state machine, session
// persistence and expiry, and the background work tied to an authenticated
// period.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/finkeeper/internal/client/client"
	"github.com/dmitrijs2005/finkeeper/internal/client/models"
	"github.com/dmitrijs2005/finkeeper/internal/client/session"
	"github.com/dmitrijs2005/finkeeper/internal/common"
	"github.com/dmitrijs2005/finkeeper/internal/cryptox"
	"github.com/dmitrijs2005/finkeeper/internal/logging"
)

const (
	DefaultSessionDuration    = 48 * time.Hour
	DefaultRevalidateInterval = 5 * time.Minute
	DefaultRemoteTimeout      = 5 * time.Second
)

var ErrAlreadyStarted = errors.New("auth manager already started")

// State is the authentication state of the manager.
type State int

const (
	Anonymous State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "anonymous"
}

// Reason explains a state transition.
type Reason string

const (
	ReasonResumed Reason = "resumed"
	ReasonLogin   Reason = "login"
	ReasonLogout  Reason = "logout"
	ReasonExpired Reason = "expired"
	ReasonReset   Reason = "reset"
)

// Transition is delivered to the state listener after every change of State.
type Transition struct {
	From     State
	To       State
	Username string
	Reason   Reason
}

// StateListener observes transitions. It runs while the manager holds its
// operation lock and must not call back into Login, Logout or UpdateUser.
type StateListener func(ctx context.Context, t Transition)

type Option func(*AuthManager)

// WithNow replaces the wall clock used for expiry math.
func WithNow(now func() time.Time) Option {
	return func(m *AuthManager) { m.now = now }
}

func WithSessionDuration(d time.Duration) Option {
	return func(m *AuthManager) { m.sessionDuration = d }
}

func WithRevalidateInterval(d time.Duration) Option {
	return func(m *AuthManager) { m.revalidateInterval = d }
}

// WithRemoteTimeout bounds every call to the credential service.
func WithRemoteTimeout(d time.Duration) Option {
	return func(m *AuthManager) { m.remoteTimeout = d }
}

func WithHasher(h cryptox.SecretHasher) Option {
	return func(m *AuthManager) { m.hasher = h }
}

func WithLogger(l logging.Logger) Option {
	return func(m *AuthManager) { m.log = l }
}

func WithStateListener(l StateListener) Option {
	return func(m *AuthManager) { m.listener = l }
}

// AuthManager owns the authentication state of one client instance.
//
// Mutating operations (Login, Logout, UpdateUser, Revalidate and the
// application of reconciliation results) are serialized. Accessors may be
// called from any goroutine and return copies.
type AuthManager struct {
	client client.Client
	store  *session.Store
	hasher cryptox.SecretHasher
	log    logging.Logger

	now                func() time.Time
	sessionDuration    time.Duration
	revalidateInterval time.Duration
	remoteTimeout      time.Duration
	listener           StateListener

	strategies []LoginStrategy

	// opMu serializes state-mutating operations.
	opMu sync.Mutex

	mu      sync.RWMutex
	state   State
	profile *models.User
	session *models.Session
	// credential is the plaintext secret of the last login or update in
	// this process, kept so reconciliation can create the remote user.
	// It is wiped on logout. Strings handed to the client are not.
	credential []byte

	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	closed  bool
	clock   *sessionClock
	clockWG sync.WaitGroup
	taskWG  sync.WaitGroup
}

func NewAuthManager(c client.Client, store *session.Store, opts ...Option) *AuthManager {
	m := &AuthManager{
		client:             c,
		store:              store,
		now:                time.Now,
		sessionDuration:    DefaultSessionDuration,
		revalidateInterval: DefaultRevalidateInterval,
		remoteTimeout:      DefaultRemoteTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.hasher == nil {
		m.hasher = cryptox.NewArgon2idHasher()
	}
	if m.log == nil {
		m.log = logging.NewNopLogger()
	}
	m.log = m.log.With("module", "auth")

	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.strategies = []LoginStrategy{
		NewRemoteStrategy(c, m.remoteTimeout, m.log.With("strategy", "remote")),
		NewLocalFallbackStrategy(m.Profile, m.hasher, m.log.With("strategy", "local")),
	}
	return m
}

// IsAuthenticated reports whether a session is active.
func (m *AuthManager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == Authenticated
}

// CurrentUser returns the authenticated user, or nil when anonymous.
func (m *AuthManager) CurrentUser() *models.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state != Authenticated || m.profile == nil {
		return nil
	}
	u := m.profile.Clone()
	return &u
}

// Profile returns the identity cached on this device whether or not it is
// logged in. The login prompt uses it as a hint.
func (m *AuthManager) Profile() *models.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.profile == nil {
		return nil
	}
	u := m.profile.Clone()
	return &u
}

// Session returns the active session, or nil when anonymous.
func (m *AuthManager) Session() *models.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.Clone()
}

// Start resolves the initial state from the store: a valid persisted session
// is resumed and renewed, an expired one is discarded, and a missing profile
// is seeded with the default identity.
func (m *AuthManager) Start(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if m.started {
		return ErrAlreadyStarted
	}
	m.started = true

	sess, err := m.store.LoadSession(ctx)
	if err != nil {
		return err
	}

	now := m.now()
	if sess != nil && sess.IsValidAt(now) {
		return m.resume(ctx, sess, now)
	}

	if sess != nil {
		m.log.Info(ctx, "discarding expired session", "username", sess.User.Username, "expires_at", sess.ExpiresAt)
		if err := m.store.ClearSession(ctx); err != nil {
			return err
		}
	}

	profile, err := m.store.LoadProfile(ctx)
	if err != nil {
		return err
	}
	if profile == nil {
		if profile, err = m.seedProfile(ctx); err != nil {
			return err
		}
	}

	m.mu.Lock()
	m.profile = profile
	m.mu.Unlock()
	return nil
}

func (m *AuthManager) resume(ctx context.Context, sess *models.Session, now time.Time) error {
	sess.Renew(now, m.sessionDuration)

	profile, err := m.store.LoadProfile(ctx)
	if err != nil {
		return err
	}
	user := sess.User.Clone()
	if profile != nil && profile.Username == user.Username {
		user = *profile
		sess.User = user.Clone()
	}

	if err := m.store.SaveProfileAndSession(ctx, user, sess); err != nil {
		return err
	}

	m.log.Info(ctx, "session resumed", "username", user.Username, "expires_at", sess.ExpiresAt)
	m.enter(ctx, user, sess, ReasonResumed)
	m.reconcileAsync(user.Username)
	return nil
}

func (m *AuthManager) seedProfile(ctx context.Context) (*models.User, error) {
	hash, err := m.hasher.Hash(common.DefaultSecret)
	if err != nil {
		return nil, fmt.Errorf("hash default secret: %w", err)
	}
	user := &models.User{Username: common.DefaultUsername, Secret: hash}
	if err := m.store.SaveProfile(ctx, *user); err != nil {
		return nil, err
	}
	m.log.Info(ctx, "seeded default identity", "username", user.Username)
	return user, nil
}

// Login tries each strategy in order and reports whether the user is now
// authenticated. Transport failures never escape; on failure the current
// state is left as it was.
func (m *AuthManager) Login(ctx context.Context, username, secret string) bool {
	if username == "" || secret == "" {
		return false
	}

	m.opMu.Lock()
	defer m.opMu.Unlock()

	for _, s := range m.strategies {
		res := s.Authenticate(ctx, username, secret)
		m.log.Debug(ctx, "login strategy evaluated", "strategy", s.Name(), "outcome", res.Outcome.String())
		if res.Outcome != Matched {
			continue
		}

		var err error
		if _, remote := s.(*RemoteStrategy); remote {
			err = m.acceptRemote(ctx, res.User, secret)
		} else {
			err = m.acceptLocal(ctx, res.User, secret)
		}
		if err != nil {
			m.log.Error(ctx, "failed to persist login", "username", username, "error", err)
			return false
		}
		return true
	}

	m.log.Info(ctx, "login rejected", "username", username)
	return false
}

func (m *AuthManager) acceptRemote(ctx context.Context, remote models.User, secret string) error {
	user := remote.Clone()

	// Keep the stored hash when it already verifies with current parameters.
	if p := m.Profile(); p != nil && p.Username == user.Username && !m.hasher.NeedsUpgrade(p.Secret) {
		if ok, _ := m.hasher.Verify(secret, p.Secret); ok {
			user.Secret = p.Secret
		}
	}
	if user.Secret == "" {
		hash, err := m.hasher.Hash(secret)
		if err != nil {
			return fmt.Errorf("hash secret: %w", err)
		}
		user.Secret = hash
	}

	sess := models.NewSession(user, m.now(), m.sessionDuration)
	if err := m.store.SaveProfileAndSession(ctx, user, sess); err != nil {
		return err
	}

	m.log.Info(ctx, "login succeeded", "username", user.Username, "source", "remote", "remote_id", *user.RemoteID)
	m.holdCredential(secret)
	m.enter(ctx, user, sess, ReasonLogin)
	return nil
}

func (m *AuthManager) acceptLocal(ctx context.Context, local models.User, secret string) error {
	user := local.Clone()
	if m.hasher.NeedsUpgrade(user.Secret) {
		hash, err := m.hasher.Hash(secret)
		if err != nil {
			return fmt.Errorf("hash secret: %w", err)
		}
		user.Secret = hash
	}

	sess := models.NewSession(user, m.now(), m.sessionDuration)
	if err := m.store.SaveProfileAndSession(ctx, user, sess); err != nil {
		return err
	}

	// Any token held belongs to an earlier remote login.
	m.client.ClearToken()

	m.log.Info(ctx, "login succeeded", "username", user.Username, "source", "local")
	m.holdCredential(secret)
	m.enter(ctx, user, sess, ReasonLogin)
	m.reconcileAsync(user.Username)
	return nil
}

// Logout ends the session. The profile is kept for the next local login.
// Calling it while anonymous is a no-op.
func (m *AuthManager) Logout(ctx context.Context) {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	m.logoutLocked(ctx, ReasonLogout)
}

func (m *AuthManager) logoutLocked(ctx context.Context, reason Reason) {
	if err := m.store.ClearSession(ctx); err != nil {
		m.log.Error(ctx, "failed to clear persisted session", "error", err)
	}
	m.client.ClearToken()

	m.mu.Lock()
	from := m.state
	username := ""
	if m.profile != nil {
		username = m.profile.Username
	}
	m.state = Anonymous
	m.session = nil
	common.WipeByteArray(m.credential)
	m.credential = nil
	clock := m.clock
	m.clock = nil
	m.mu.Unlock()

	if clock != nil {
		clock.stop()
	}
	if from == Authenticated {
		m.log.Info(ctx, "logged out", "username", username, "reason", string(reason))
		m.notify(ctx, Transition{From: from, To: Anonymous, Username: username, Reason: reason})
	}
}

// Forget ends any session and removes every record stored on this device,
// then seeds the default identity as on a first run. It reports how many
// records were removed.
func (m *AuthManager) Forget(ctx context.Context) (int, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.logoutLocked(ctx, ReasonReset)

	n, err := m.store.Forget(ctx)
	if err != nil {
		return 0, err
	}
	profile, err := m.seedProfile(ctx)
	if err != nil {
		return n, err
	}

	m.mu.Lock()
	m.profile = profile
	m.mu.Unlock()

	m.log.Info(ctx, "device storage cleared", "records", n)
	return n, nil
}

// UpdateUser replaces the local identity. An active session is refreshed to
// carry the new identity and its expiry is renewed. The remote copy is
// reconciled in the background; its failures never roll back local state.
func (m *AuthManager) UpdateUser(ctx context.Context, username, secret string) error {
	if username == "" {
		return common.ErrorEmptyUsername
	}
	if secret == "" {
		return common.ErrorEmptySecret
	}

	m.opMu.Lock()
	defer m.opMu.Unlock()

	hash, err := m.hasher.Hash(secret)
	if err != nil {
		return fmt.Errorf("hash secret: %w", err)
	}

	prev := m.Profile()
	user := models.User{Username: username, Secret: hash}
	if prev != nil && prev.RemoteID != nil {
		user = user.WithRemoteID(*prev.RemoteID)
	}

	now := m.now()
	sess := m.Session()
	if sess != nil && !sess.IsValidAt(now) {
		m.logoutLocked(ctx, ReasonExpired)
		sess = nil
	}

	if sess != nil {
		sess.User = user.Clone()
		sess.Renew(now, m.sessionDuration)
		err = m.store.SaveProfileAndSession(ctx, user, sess)
	} else {
		err = m.store.SaveProfile(ctx, user)
	}
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.profile = &user
	if sess != nil {
		m.session = sess
	}
	m.mu.Unlock()
	m.holdCredential(secret)

	m.log.Info(ctx, "profile updated", "username", username)
	m.reconcileUpdateAsync(user)
	return nil
}

// Focus requests an immediate revalidation, as when the user returns to the
// application. It does nothing while anonymous.
func (m *AuthManager) Focus() {
	m.mu.RLock()
	clock := m.clock
	m.mu.RUnlock()
	if clock != nil {
		clock.poke()
	}
}

// Revalidate re-reads the persisted session and logs out when it is missing
// or expired. It never changes the expiry. It reports whether the user is
// still authenticated.
func (m *AuthManager) Revalidate(ctx context.Context) bool {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	return m.revalidateLocked(ctx)
}

func (m *AuthManager) revalidateLocked(ctx context.Context) bool {
	if !m.IsAuthenticated() {
		return false
	}

	persisted, err := m.store.LoadSession(ctx)
	if err != nil {
		m.log.Error(ctx, "revalidation could not read session", "error", err)
		return true
	}

	now := m.now()
	switch {
	case persisted == nil:
		m.log.Info(ctx, "persisted session missing")
	case !persisted.IsValidAt(now) || !m.Session().IsValidAt(now):
		m.log.Info(ctx, "session expired", "expires_at", persisted.ExpiresAt)
	default:
		return true
	}

	m.logoutLocked(ctx, ReasonExpired)
	return false
}

// Close stops the session clock and waits for background work. The
// persisted session is kept so the next start can resume it.
func (m *AuthManager) Close() error {
	m.opMu.Lock()
	if m.closed {
		m.opMu.Unlock()
		return nil
	}
	m.mu.Lock()
	m.closed = true
	clock := m.clock
	m.clock = nil
	m.mu.Unlock()
	m.cancel()
	if clock != nil {
		clock.stop()
	}
	m.opMu.Unlock()

	m.clockWG.Wait()
	m.taskWG.Wait()
	return nil
}

// enter switches to Authenticated and makes sure exactly one clock runs.
func (m *AuthManager) enter(ctx context.Context, user models.User, sess *models.Session, reason Reason) {
	m.mu.Lock()
	from := m.state
	m.state = Authenticated
	m.profile = &user
	m.session = sess
	if m.clock == nil && !m.closed {
		m.clock = startSessionClock(m.ctx, &m.clockWG, m.revalidateInterval, m.onClock)
	}
	m.mu.Unlock()

	m.notify(ctx, Transition{From: from, To: Authenticated, Username: user.Username, Reason: reason})
}

func (m *AuthManager) onClock(ctx context.Context) {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	if ctx.Err() != nil {
		return
	}
	m.revalidateLocked(ctx)
}

func (m *AuthManager) notify(ctx context.Context, t Transition) {
	if m.listener != nil {
		m.listener(ctx, t)
	}
}

func (m *AuthManager) holdCredential(secret string) {
	m.mu.Lock()
	common.WipeByteArray(m.credential)
	m.credential = []byte(secret)
	m.mu.Unlock()
}

// heldCredential returns a copy of the in-memory secret if it belongs to
// username. The caller wipes the copy when done with it.
func (m *AuthManager) heldCredential(username string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.credential) == 0 || m.profile == nil || m.profile.Username != username {
		return nil, false
	}
	return append([]byte(nil), m.credential...), true
}
