// Package client talks to the finkeeper credential service.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic contract (see the Client interface) used by the
//     auth manager: Authenticate, FindByUsername, Exists, Create, Update
//     and Ping.
//  2. A gRPC implementation (see GRPCClient) that keeps the access token
//     issued by Authenticate/Create, attaches it to outgoing calls through an
//     interceptor, and maps gRPC status codes to sentinel errors.
//  3. Local persistence bootstrap (InitDatabase, RunMigrations) wiring an
//     SQLite database and applying the embedded goose migrations.
//
// # Error Handling
//
// Callers match failures with errors.Is against ErrUnavailable,
// ErrUnauthorized, ErrNotFound and ErrAlreadyExists. A timed-out or
// cancelled call is reported as ErrUnavailable.
//
// # Concurrency
//
// GRPCClient is safe for concurrent use. All calls honor the context
// deadline; the caller decides how long the backend may take.
package client
