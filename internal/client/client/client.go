package client

import (
	"context"
)

// RemoteUser is the backend's view of an identity.
type RemoteUser struct {
	ID       int64
	Username string
}

// UpdateFields lists the changes sent with Update. Empty fields are left
// unchanged on the server.
type UpdateFields struct {
	Username string
	Secret   string
}

// Client is the credential service as seen by the auth manager.
//
// Authenticate and FindByUsername return (nil, nil) when no user matches.
// Errors are one of the package sentinels or a wrapped transport error.
type Client interface {
	Authenticate(ctx context.Context, username, secret string) (*RemoteUser, error)
	FindByUsername(ctx context.Context, username string) (*RemoteUser, error)
	Exists(ctx context.Context, username string) (bool, error)
	Create(ctx context.Context, username, secret string) (*RemoteUser, error)
	Update(ctx context.Context, id int64, fields UpdateFields) (*RemoteUser, error)
	Ping(ctx context.Context) error
	// ClearToken forgets the access token obtained by the last
	// Authenticate or Create.
	ClearToken()
	Close() error
}
