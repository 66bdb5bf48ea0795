package ports

import (
	"context"
	"time"
)

// PasswordHasher hashes and verifies user passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// PayloadCipher encrypts the identity payload embedded in tokens.
type PayloadCipher interface {
	Encrypt(plaintext []byte, key string) (string, error)
	Decrypt(blob, key string) ([]byte, error)
}

// VerifiedToken is what a token codec returns for a valid token.
type VerifiedToken struct {
	Payload   string
	ID        string
	ExpiresAt time.Time
}

// TokenCodec signs and verifies the token envelope.
type TokenCodec interface {
	Sign(payload, secret string, ttl time.Duration) (string, error)
	Verify(token, secret string) (VerifiedToken, error)
}

// TokenDenylist records revoked token ids until they would have expired anyway.
type TokenDenylist interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
