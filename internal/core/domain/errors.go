package domain

import "errors"

var (
	ErrValidation         = errors.New("all fields are required")
	ErrUserExists         = errors.New("username or email already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrPasswordTooLong    = errors.New("password exceeds 72 bytes")
)

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

// Token failures. They all collapse to 403 at the HTTP boundary; the
// distinct kinds exist for logging and metrics only.
var (
	ErrTokenMissing   = errors.New("token required")
	ErrTokenInvalid   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenRevoked   = errors.New("token revoked")
	ErrPayloadDecrypt = errors.New("failed to decrypt token payload")

	// ErrDecryption is returned by the payload cipher.
	ErrDecryption = errors.New("decryption failed")

	ErrRevocationUnavailable = errors.New("token revocation is not configured")
)
