// Package models defines the client-side identity and session records.
package models

// User is the locally known identity.
//
// Secret holds the credential verifier (an argon2id PHC string). Profiles
// written by older builds may still carry a plaintext secret; those are
// upgraded on the next successful login.
type User struct {
	Username string `json:"username"`
	Secret   string `json:"secret"`
	// RemoteID is nil while the user is known only locally.
	RemoteID *int64 `json:"remoteId,omitempty"`
}

// Clone returns a deep copy of u.
func (u User) Clone() User {
	if u.RemoteID != nil {
		id := *u.RemoteID
		u.RemoteID = &id
	}
	return u
}

// HasRemoteID reports whether the user is linked to a backend record.
func (u User) HasRemoteID() bool {
	return u.RemoteID != nil
}

// WithRemoteID returns a copy of u linked to the backend id.
func (u User) WithRemoteID(id int64) User {
	u.RemoteID = &id
	return u
}

// SameRemoteID reports whether u is linked to id.
func (u User) SameRemoteID(id int64) bool {
	return u.RemoteID != nil && *u.RemoteID == id
}
