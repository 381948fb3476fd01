package models

import "time"

// User is a credential record held by the credential service.
type User struct {
	ID         int64
	Username   string
	SecretHash string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
