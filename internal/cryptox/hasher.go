// Package cryptox hashes and verifies user secrets with argon2id.
//
// Hashes are encoded in the PHC string format:
//
//	$argon2id$v=19$m=65536,t=1,p=4$<salt>$<key>
//
// Both the client (local profile) and the credential service use it, so a
// secret is never persisted in plaintext on either side.
package cryptox

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/finkeeper/internal/common"
	"golang.org/x/crypto/argon2"
)

var (
	ErrEmptySecret = errors.New("secret cannot be empty")
	ErrInvalidHash = errors.New("invalid secret hash")
)

const phcPrefix = "$argon2id$"

// Bounds accepted when decoding a stored hash. Memory is in KiB.
const (
	maxTime   = 64
	maxMemory = 1 << 20
	maxKeyLen = 1024
)

// SecretHasher hashes secrets and checks candidates against stored hashes.
type SecretHasher interface {
	// Hash returns the encoded hash of secret.
	Hash(secret string) (string, error)

	// Verify reports whether secret matches encoded. Records that are not
	// PHC strings are legacy plaintext and are compared in constant time.
	Verify(secret, encoded string) (bool, error)

	// NeedsUpgrade reports whether encoded should be re-hashed with the
	// hasher's current parameters.
	NeedsUpgrade(encoded string) bool
}

// Argon2idHasher implements SecretHasher using argon2id.
type Argon2idHasher struct {
	time    uint32
	memory  uint32
	threads uint8
	saltLen int
	keyLen  uint32
}

// NewArgon2idHasher returns a hasher with the OWASP-recommended parameters
// (t=1, m=64MiB, p=4).
func NewArgon2idHasher() *Argon2idHasher {
	return NewArgon2idHasherWithParams(1, 64*1024, 4)
}

// NewArgon2idHasherWithParams returns a hasher with explicit cost parameters.
// memory is in KiB. Tests use small values to stay fast.
func NewArgon2idHasherWithParams(time, memory uint32, threads uint8) *Argon2idHasher {
	return &Argon2idHasher{time: time, memory: memory, threads: threads, saltLen: 16, keyLen: 32}
}

func (h *Argon2idHasher) Hash(secret string) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	salt := common.GenerateRandByteArray(h.saltLen)
	key := argon2.IDKey([]byte(secret), salt, h.time, h.memory, h.threads, h.keyLen)

	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		phcPrefix, argon2.Version, h.memory, h.time, h.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

func (h *Argon2idHasher) Verify(secret, encoded string) (bool, error) {
	if !IsHashed(encoded) {
		return subtle.ConstantTimeCompare([]byte(secret), []byte(encoded)) == 1 && encoded != "", nil
	}

	p, err := decode(encoded)
	if err != nil {
		return false, err
	}
	candidate := argon2.IDKey([]byte(secret), p.salt, p.time, p.memory, p.threads, uint32(len(p.key)))
	return subtle.ConstantTimeCompare(candidate, p.key) == 1, nil
}

func (h *Argon2idHasher) NeedsUpgrade(encoded string) bool {
	p, err := decode(encoded)
	if err != nil {
		return true
	}
	return p.time != h.time || p.memory != h.memory || p.threads != h.threads
}

// IsHashed reports whether s looks like an argon2id PHC string.
func IsHashed(s string) bool {
	return strings.HasPrefix(s, phcPrefix)
}

// CheckHash reports whether encoded is a well-formed argon2id hash whose
// parameters are within the accepted bounds.
func CheckHash(encoded string) error {
	_, err := decode(encoded)
	return err
}

type params struct {
	time, memory uint32
	threads      uint8
	salt, key    []byte
}

func decode(encoded string) (*params, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, ErrInvalidHash
	}

	var memory, time, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
	switch {
	case threads == 0 || threads > 255:
		return nil, fmt.Errorf("%w: p=%d", ErrInvalidHash, threads)
	case time < 1 || time > maxTime:
		return nil, fmt.Errorf("%w: t=%d", ErrInvalidHash, time)
	case memory < 8*threads || memory > maxMemory:
		return nil, fmt.Errorf("%w: m=%d", ErrInvalidHash, memory)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return nil, ErrInvalidHash
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 || len(key) > maxKeyLen {
		return nil, ErrInvalidHash
	}

	return &params{time: time, memory: memory, threads: uint8(threads), salt: salt, key: key}, nil
}
