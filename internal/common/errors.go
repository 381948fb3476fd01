// Package common defines shared constants and sentinel errors used across
// client and server layers of finkeeper. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Validation errors.
	ErrorEmptyUsername = errors.New("username cannot be empty")
	ErrorEmptySecret   = errors.New("secret cannot be empty")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
