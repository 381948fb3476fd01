// Package services contains server-side business logic. This file implements
// UserService, which stores credential records, verifies secrets and issues
// access tokens.
package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/dmitrijs2005/finkeeper/internal/common"
	"github.com/dmitrijs2005/finkeeper/internal/cryptox"
	"github.com/dmitrijs2005/finkeeper/internal/dbx"
	"github.com/dmitrijs2005/finkeeper/internal/server/auth"
	"github.com/dmitrijs2005/finkeeper/internal/server/config"
	"github.com/dmitrijs2005/finkeeper/internal/server/models"
	"github.com/dmitrijs2005/finkeeper/internal/server/repositories/repomanager"
)

// Error codes attached to errors returned by UserService.
const (
	CodeUserNotFound          = "USER_NOT_FOUND"
	CodeUserAlreadyExists     = "USER_ALREADY_EXISTS"
	CodeUserInvalidInput      = "USER_INVALID_INPUT"
	CodeAuthInvalidCredential = "AUTH_INVALID_CREDENTIALS"
)

const maxUsernameLength = 128

// AuthResult is a user together with a freshly issued access token.
type AuthResult struct {
	User        *models.User
	AccessToken string
}

// UserService provides credential operations:
// - Authenticate: verify a secret and mint an access token
// - FindByUsername / Exists: lookups
// - Create: register a user and mint an access token
// - Update: change username and/or secret of an existing user
type UserService struct {
	db                          *sql.DB
	repomanager                 repomanager.RepositoryManager
	hasher                      cryptox.SecretHasher
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, hasher cryptox.SecretHasher, cfg *config.Config) *UserService {
	return &UserService{
		db:                          db,
		repomanager:                 m,
		hasher:                      hasher,
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
	}
}

// CodeOf returns the oops code attached to err, or "" when there is none.
func CodeOf(err error) string {
	if e, ok := oops.AsOops(err); ok {
		if code, ok := e.Code().(string); ok {
			return code
		}
	}
	return ""
}

func validateUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return oops.Code(CodeUserInvalidInput).Wrap(common.ErrorEmptyUsername)
	}
	if len(username) > maxUsernameLength {
		return oops.Code(CodeUserInvalidInput).With("length", len(username)).Errorf("username too long")
	}
	return nil
}

// Authenticate verifies secret against the stored hash of username. Unknown
// users and wrong secrets both yield CodeAuthInvalidCredential. Hashes using
// outdated parameters are re-hashed on success.
func (s *UserService) Authenticate(ctx context.Context, username, secret string) (*AuthResult, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, oops.Code(CodeAuthInvalidCredential).Errorf("invalid credentials")
		}
		return nil, oops.With("operation", "lookup user").Wrap(err)
	}

	ok, err := s.hasher.Verify(secret, user.SecretHash)
	if err != nil || !ok {
		return nil, oops.Code(CodeAuthInvalidCredential).Errorf("invalid credentials")
	}

	if s.hasher.NeedsUpgrade(user.SecretHash) {
		if hash, err := s.hasher.Hash(secret); err == nil {
			user.SecretHash = hash
			if updated, err := repo.Update(ctx, user); err == nil {
				user = updated
			}
		}
	}

	return s.issue(user)
}

// FindByUsername returns the user registered under username.
func (s *UserService) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, oops.Code(CodeUserNotFound).With("username", username).Wrap(err)
		}
		return nil, oops.With("operation", "lookup user").Wrap(err)
	}
	return user, nil
}

func (s *UserService) Exists(ctx context.Context, username string) (bool, error) {
	ok, err := s.repomanager.Users(s.db).Exists(ctx, username)
	if err != nil {
		return false, oops.With("operation", "check user").Wrap(err)
	}
	return ok, nil
}

// Create registers username with secret and returns it with an access token.
func (s *UserService) Create(ctx context.Context, username, secret string) (*AuthResult, error) {
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(secret)
	if err != nil {
		return nil, oops.Code(CodeUserInvalidInput).Wrap(err)
	}

	user, err := s.repomanager.Users(s.db).Create(ctx, &models.User{Username: username, SecretHash: hash})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, oops.Code(CodeUserAlreadyExists).With("username", username).Wrap(err)
		}
		return nil, oops.With("operation", "create user").Wrap(err)
	}

	return s.issue(user)
}

// Update replaces the username and/or secret of user id inside a
// transaction. Empty fields keep their current value.
func (s *UserService) Update(ctx context.Context, id int64, username, secret string) (*models.User, error) {
	if username != "" {
		if err := validateUsername(username); err != nil {
			return nil, err
		}
	}

	var hash string
	if secret != "" {
		h, err := s.hasher.Hash(secret)
		if err != nil {
			return nil, oops.Code(CodeUserInvalidInput).Wrap(err)
		}
		hash = h
	}

	var result *models.User
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		user, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if username != "" {
			user.Username = username
		}
		if hash != "" {
			user.SecretHash = hash
		}

		result, err = repo.Update(ctx, user)
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorNotFound):
			return nil, oops.Code(CodeUserNotFound).With("id", id).Wrap(err)
		case errors.Is(err, common.ErrorAlreadyExists):
			return nil, oops.Code(CodeUserAlreadyExists).With("username", username).Wrap(err)
		}
		return nil, oops.With("operation", "update user").Wrap(err)
	}
	return result, nil
}

func (s *UserService) issue(user *models.User) (*AuthResult, error) {
	token, err := auth.GenerateToken(user.ID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, oops.With("operation", "sign token").Wrap(err)
	}
	return &AuthResult{User: user, AccessToken: token}, nil
}
