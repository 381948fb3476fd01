package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/finkeeper/internal/client/client"
	"github.com/dmitrijs2005/finkeeper/internal/client/config"
	"github.com/dmitrijs2005/finkeeper/internal/client/models"
	"github.com/dmitrijs2005/finkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/finkeeper/internal/client/services"
	"github.com/dmitrijs2005/finkeeper/internal/client/session"
	"github.com/dmitrijs2005/finkeeper/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// authManager is the part of services.AuthManager the CLI drives.
type authManager interface {
	Start(ctx context.Context) error
	Close() error
	IsAuthenticated() bool
	CurrentUser() *models.User
	Session() *models.Session
	Login(ctx context.Context, username, secret string) bool
	Logout(ctx context.Context)
	UpdateUser(ctx context.Context, username, secret string) error
	SyncWithBackend(ctx context.Context)
	Forget(ctx context.Context) (int, error)
	Focus()
}

type pinger interface {
	Ping(ctx context.Context) error
}

type App struct {
	config  *config.Config
	auth    authManager
	remote  pinger
	log     logging.Logger
	reader  *bufio.Reader
	out     io.Writer
	closers []func() error

	mu   sync.Mutex
	mode Mode
}

// NewApp wires the record store selected by cfg.StoreBackend, the gRPC
// credential client and the auth manager.
func NewApp(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	a := &App{
		config: cfg,
		log:    log.With("module", "cli"),
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}

	repo, err := a.openRepository(ctx)
	if err != nil {
		a.close()
		return nil, err
	}

	apiClient, err := client.NewGRPCClient(cfg.ServerEndpointAddr)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("init grpc client: %w", err)
	}
	a.closers = append(a.closers, apiClient.Close)
	a.remote = apiClient

	store := session.NewStore(repo, log)
	a.auth = services.NewAuthManager(apiClient, store,
		services.WithLogger(log),
		services.WithSessionDuration(cfg.SessionDuration),
		services.WithRevalidateInterval(cfg.RevalidateInterval),
		services.WithRemoteTimeout(cfg.RemoteTimeout),
		services.WithStateListener(a.onTransition),
	)

	return a, nil
}

func (a *App) openRepository(ctx context.Context) (metadata.Repository, error) {
	switch a.config.StoreBackend {
	case config.StoreRedis:
		rdb, err := metadata.NewRedisClient(ctx, a.config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.closers = append(a.closers, rdb.Close)
		return metadata.NewRedisRepository(rdb, a.config.ClientID), nil
	default:
		db, err := client.InitDatabase(ctx, a.config.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("init database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		return metadata.NewSQLiteRepository(db), nil
	}
}

// close releases resources in reverse order of acquisition.
func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn(context.Background(), "close failed", "error", err)
		}
	}
	a.closers = nil
}

func (a *App) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

// setMode records the connectivity mode and reports whether it changed.
func (a *App) setMode(mode Mode) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.mode == mode {
		return false
	}
	a.mode = mode
	a.log.Info(context.Background(), "switched mode", "mode", mode)
	return true
}

// Run starts the auth manager, offers a login prompt when no session was
// resumed and serves the REPL until the user exits or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	if err := a.auth.Start(ctx); err != nil {
		return fmt.Errorf("start auth manager: %w", err)
	}
	defer func() {
		if err := a.auth.Close(); err != nil {
			a.log.Warn(ctx, "auth manager close failed", "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)
	}()
	go func() {
		defer wg.Done()
		watchFocus(ctx, a.auth.Focus)
	}()

	a.checkOnline(ctx)
	printlnFn("Welcome to finkeeper (type 'help' for commands)")
	if u := a.auth.CurrentUser(); u != nil {
		printlnFn("Resumed session for", u.Username)
	} else {
		_ = a.Login(ctx)
	}

	runREPL(ctx, a, a.getStatus, a.reader)

	cancel()
	wg.Wait()
	return nil
}

func (a *App) isLoggedIn() bool {
	return a.auth.IsAuthenticated()
}

func (a *App) focus() {
	a.auth.Focus()
}

func (a *App) getStatus() string {
	s := ""
	if u := a.auth.CurrentUser(); u != nil {
		s = u.Username + " "
	}
	if m := a.Mode(); m != "" {
		s = s + string(m)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// onTransition tells the user when the session clock ended their session.
func (a *App) onTransition(ctx context.Context, t services.Transition) {
	a.log.Info(ctx, "auth state changed", "from", t.From, "to", t.To, "username", t.Username, "reason", t.Reason)
	if t.Reason == services.ReasonExpired {
		fmt.Fprintf(a.out, "\nSession for %s expired, please log in again\n", t.Username)
	}
}

// StartOnlineStatusWatcher pings the credential service every interval and
// flips Mode between online and offline. Coming back online while logged in
// schedules a reconciliation with the server.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) checkOnline(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, a.config.RemoteTimeout)
	err := a.remote.Ping(pctx)
	cancel()

	if err != nil {
		a.setMode(ModeOffline)
		return
	}
	if a.setMode(ModeOnline) && a.auth.IsAuthenticated() {
		a.auth.SyncWithBackend(ctx)
	}
}
