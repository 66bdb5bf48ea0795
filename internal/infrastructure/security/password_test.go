package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/auth-service/internal/core/domain"
)

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher()

	hash, err := h.Hash("p1")
	require.NoError(t, err)
	assert.NotEqual(t, "p1", hash)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, PasswordCost, cost)

	assert.NoError(t, h.Compare(hash, "p1"))
	assert.ErrorIs(t, h.Compare(hash, "p2"), domain.ErrInvalidCredentials)
	assert.ErrorIs(t, h.Compare("not-a-hash", "p1"), domain.ErrInvalidCredentials)
}

func TestBcryptHasher_Salted(t *testing.T) {
	h := NewBcryptHasher()
	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestBcryptHasher_RejectsOverlongMultibytePassword(t *testing.T) {
	h := NewBcryptHasher()

	// 40 runes, 80 bytes.
	_, err := h.Hash(strings.Repeat("é", 40))
	assert.ErrorIs(t, err, domain.ErrPasswordTooLong)

	// 36 runes, exactly 72 bytes.
	hash, err := h.Hash(strings.Repeat("é", 36))
	require.NoError(t, err)
	assert.NoError(t, h.Compare(hash, strings.Repeat("é", 36)))
}
