package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/99minutos/auth-service/internal/core/domain"
)

const blobSeparator = ":"

// AESCipher implements ports.PayloadCipher with AES-256-GCM.
//
// The key string is hashed with SHA-256 into a 32-byte key. Every call to
// Encrypt draws a fresh nonce, so equal plaintexts never produce equal blobs.
// Blob format: hex(nonce) ":" hex(ciphertext || tag).
type AESCipher struct{}

func NewAESCipher() *AESCipher {
	return &AESCipher{}
}

func (AESCipher) Encrypt(plaintext []byte, key string) (string, error) {
	aead, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := aead.Seal(nil, nonce, plaintext, nil)
	return hex.EncodeToString(nonce) + blobSeparator + hex.EncodeToString(sealed), nil
}

func (AESCipher) Decrypt(blob, key string) ([]byte, error) {
	nonceHex, sealedHex, ok := strings.Cut(blob, blobSeparator)
	if !ok || nonceHex == "" || sealedHex == "" {
		return nil, fmt.Errorf("%w: malformed blob", domain.ErrDecryption)
	}

	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce, err := hex.DecodeString(nonceHex)
	if err != nil || len(nonce) != aead.NonceSize() {
		return nil, fmt.Errorf("%w: bad nonce", domain.ErrDecryption)
	}
	sealed, err := hex.DecodeString(sealedHex)
	if err != nil || len(sealed) < aead.Overhead() {
		return nil, fmt.Errorf("%w: bad ciphertext", domain.ErrDecryption)
	}

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecryption, err)
	}
	return plaintext, nil
}

func newGCM(key string) (cipher.AEAD, error) {
	sum := sha256.Sum256([]byte(key))
	block, err := aes.NewCipher(sum[:])
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return aead, nil
}
