package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

// envelopeClaims is the signed token body. Data holds the encrypted identity;
// the signature covers it together with the registered claims.
type envelopeClaims struct {
	Data string `json:"data"`
	jwt.RegisteredClaims
}

// JWTCodec implements ports.TokenCodec with HS256.
type JWTCodec struct {
	now func() time.Time
}

func NewJWTCodec() *JWTCodec {
	return &JWTCodec{now: time.Now}
}

func (c *JWTCodec) Sign(payload, secret string, ttl time.Duration) (string, error) {
	now := c.now()
	claims := envelopeClaims{
		Data: payload,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify returns domain.ErrTokenExpired only for tokens whose signature is
// valid; every other failure is domain.ErrTokenInvalid.
func (c *JWTCodec) Verify(token, secret string) (ports.VerifiedToken, error) {
	claims := &envelopeClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ports.VerifiedToken{}, fmt.Errorf("%w: %v", domain.ErrTokenExpired, err)
		}
		return ports.VerifiedToken{}, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}
	if !parsed.Valid || claims.Data == "" {
		return ports.VerifiedToken{}, fmt.Errorf("%w: empty payload", domain.ErrTokenInvalid)
	}

	return ports.VerifiedToken{
		Payload:   claims.Data,
		ID:        claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
