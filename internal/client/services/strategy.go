package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/finkeeper/internal/client/client"
	"github.com/dmitrijs2005/finkeeper/internal/client/models"
	"github.com/dmitrijs2005/finkeeper/internal/cryptox"
	"github.com/dmitrijs2005/finkeeper/internal/logging"
)

// Outcome is the verdict of a single login strategy.
type Outcome int

const (
	// NotMatched means the strategy could answer and the credentials did
	// not match.
	NotMatched Outcome = iota
	// Matched means the credentials were accepted.
	Matched
	// Unavailable means the strategy could not answer at all.
	Unavailable
)

func (o Outcome) String() string {
	switch o {
	case Matched:
		return "matched"
	case Unavailable:
		return "unavailable"
	default:
		return "not_matched"
	}
}

// Result is what a LoginStrategy returns. User is set only when Matched.
type Result struct {
	Outcome Outcome
	User    models.User
}

// LoginStrategy checks credentials against one source of truth. Strategies
// never return errors: a failure to answer is reported as Unavailable.
type LoginStrategy interface {
	Name() string
	Authenticate(ctx context.Context, username, secret string) Result
}

// RemoteStrategy asks the credential service.
type RemoteStrategy struct {
	client  client.Client
	timeout time.Duration
	log     logging.Logger
}

func NewRemoteStrategy(c client.Client, timeout time.Duration, log logging.Logger) *RemoteStrategy {
	return &RemoteStrategy{client: c, timeout: timeout, log: log}
}

func (s *RemoteStrategy) Name() string { return "remote" }

// Authenticate returns a user carrying the canonical username and remote id.
// The secret is left empty; the caller decides how to store it.
func (s *RemoteStrategy) Authenticate(ctx context.Context, username, secret string) Result {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ru, err := s.client.Authenticate(ctx, username, secret)
	if err != nil {
		s.log.Warn(ctx, "remote authentication unavailable", "username", username, "error", err)
		return Result{Outcome: Unavailable}
	}
	if ru == nil {
		return Result{Outcome: NotMatched}
	}

	return Result{Outcome: Matched, User: models.User{Username: ru.Username}.WithRemoteID(ru.ID)}
}

// LocalFallbackStrategy compares against the profile cached on this device.
type LocalFallbackStrategy struct {
	profile func() *models.User
	hasher  cryptox.SecretHasher
	log     logging.Logger
}

func NewLocalFallbackStrategy(profile func() *models.User, hasher cryptox.SecretHasher, log logging.Logger) *LocalFallbackStrategy {
	return &LocalFallbackStrategy{profile: profile, hasher: hasher, log: log}
}

func (s *LocalFallbackStrategy) Name() string { return "local" }

func (s *LocalFallbackStrategy) Authenticate(ctx context.Context, username, secret string) Result {
	p := s.profile()
	if p == nil {
		return Result{Outcome: Unavailable}
	}
	if p.Username != username {
		return Result{Outcome: NotMatched}
	}

	ok, err := s.hasher.Verify(secret, p.Secret)
	if err != nil {
		s.log.Error(ctx, "stored secret cannot be verified", "username", username, "error", err)
		return Result{Outcome: NotMatched}
	}
	if !ok {
		return Result{Outcome: NotMatched}
	}
	return Result{Outcome: Matched, User: p.Clone()}
}
