package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
	"github.com/99minutos/auth-service/internal/pkg/metrics"
	"github.com/99minutos/auth-service/pkg/logger"
)

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// AuthConfig carries the token secrets and lifetimes. Access and refresh
// tokens are signed and encrypted under different secrets.
type AuthConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// AuthDeps groups the collaborators of AuthService. Denylist and Events are
// optional.
type AuthDeps struct {
	Repo     ports.AuthRepository
	Hasher   ports.PasswordHasher
	Cipher   ports.PayloadCipher
	Codec    ports.TokenCodec
	Denylist ports.TokenDenylist
	Events   ports.EventRecorder
	Logger   zerolog.Logger
}

// AuthService implements registration, login and the token lifecycle.
type AuthService struct {
	repo     ports.AuthRepository
	hasher   ports.PasswordHasher
	cipher   ports.PayloadCipher
	codec    ports.TokenCodec
	denylist ports.TokenDenylist
	events   ports.EventRecorder
	log      zerolog.Logger
	cfg      AuthConfig

	// dummyHash is compared against on unknown emails so both login
	// failure paths cost one bcrypt comparison.
	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(deps AuthDeps, cfg AuthConfig) *AuthService {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	events := deps.Events
	if events == nil {
		events = discardRecorder{}
	}
	return &AuthService{
		repo:     deps.Repo,
		hasher:   deps.Hasher,
		cipher:   deps.Cipher,
		codec:    deps.Codec,
		denylist: deps.Denylist,
		events:   events,
		log:      deps.Logger,
		cfg:      cfg,
	}
}

func (s *AuthService) Register(ctx context.Context, username, email, password string) error {
	username, email = strings.TrimSpace(username), strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		return domain.ErrValidation
	}
	if len(password) > domain.MaxPasswordBytes {
		metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		return domain.ErrPasswordTooLong
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}

	now := time.Now().UTC()
	created, err := s.repo.Create(ctx, &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			metrics.RegistrationsTotal.WithLabelValues("conflict").Inc()
			s.record(domain.EventRegister, domain.OutcomeFailure, 0, email, "conflict")
			return domain.ErrUserExists
		}
		metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("register: %w", err)
	}

	metrics.RegistrationsTotal.WithLabelValues("created").Inc()
	s.record(domain.EventRegister, domain.OutcomeSuccess, created.ID, email, "")
	s.logger(ctx).Info().Int64("user_id", created.ID).Str("username", created.Username).Msg("user registered")
	return nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.TokenPair, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		metrics.LoginsTotal.WithLabelValues("invalid").Inc()
		return nil, domain.ErrValidation
	}
	if len(password) > domain.MaxPasswordBytes {
		metrics.LoginsTotal.WithLabelValues("invalid").Inc()
		return nil, domain.ErrPasswordTooLong
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			_ = s.hasher.Compare(s.placeholderHash(), password)
			return nil, s.loginRejected(ctx, email, 0, "unknown_email")
		}
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("login: %w", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return nil, s.loginRejected(ctx, email, user.ID, "wrong_password")
	}

	identity := user.Identity()
	access, err := s.issue(identity, s.cfg.AccessSecret, s.cfg.AccessTTL, "access")
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	refresh, err := s.issue(identity, s.cfg.RefreshSecret, s.cfg.RefreshTTL, "refresh")
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	s.record(domain.EventLogin, domain.OutcomeSuccess, user.ID, email, "")
	s.logger(ctx).Info().Int64("user_id", user.ID).Msg("login succeeded")

	return &domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Authenticate expects "<scheme> <token>"; the scheme is not checked. Every
// failure is one of the token sentinel errors in domain.
func (s *AuthService) Authenticate(ctx context.Context, header string) (*domain.UserIdentity, error) {
	token, err := bearerToken(header)
	if err != nil {
		s.rejected(ctx, "authenticate", err)
		return nil, err
	}

	identity, _, err := s.read(ctx, token, s.cfg.AccessSecret)
	if err != nil {
		s.rejected(ctx, "authenticate", err)
		return nil, err
	}
	return identity, nil
}

// Refresh mints a new access token from a valid refresh token. The refresh
// token itself is not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		s.rejected(ctx, "refresh", domain.ErrTokenMissing)
		return "", domain.ErrTokenMissing
	}

	identity, _, err := s.read(ctx, refreshToken, s.cfg.RefreshSecret)
	if err != nil {
		s.rejected(ctx, "refresh", err)
		s.record(domain.EventRefresh, domain.OutcomeFailure, 0, "", failureReason(err))
		return "", err
	}

	access, err := s.issue(*identity, s.cfg.AccessSecret, s.cfg.AccessTTL, "access")
	if err != nil {
		return "", fmt.Errorf("refresh: %w", err)
	}

	s.record(domain.EventRefresh, domain.OutcomeSuccess, identity.ID, identity.Username, "")
	return access, nil
}

// Logout revokes the access token and, when given, the refresh token of the
// same user. Both are validated before anything is revoked.
func (s *AuthService) Logout(ctx context.Context, accessToken, refreshToken string) error {
	if s.denylist == nil {
		return domain.ErrRevocationUnavailable
	}

	identity, access, err := s.read(ctx, accessToken, s.cfg.AccessSecret)
	if err != nil {
		s.rejected(ctx, "logout", err)
		return err
	}

	revoke := []ports.VerifiedToken{access}
	if refreshToken = strings.TrimSpace(refreshToken); refreshToken != "" {
		owner, refresh, err := s.read(ctx, refreshToken, s.cfg.RefreshSecret)
		if err != nil {
			s.rejected(ctx, "logout", err)
			return err
		}
		if owner.ID != identity.ID {
			s.rejected(ctx, "logout", domain.ErrTokenInvalid)
			return fmt.Errorf("%w: refresh token belongs to another user", domain.ErrTokenInvalid)
		}
		revoke = append(revoke, refresh)
	}

	for _, vt := range revoke {
		ttl := time.Until(vt.ExpiresAt)
		if ttl <= 0 {
			continue
		}
		if err := s.denylist.Revoke(ctx, vt.ID, ttl); err != nil {
			return fmt.Errorf("logout: %w", err)
		}
	}

	s.record(domain.EventLogout, domain.OutcomeSuccess, identity.ID, identity.Username, "")
	s.logger(ctx).Info().Int64("user_id", identity.ID).Int("revoked", len(revoke)).Msg("logout")
	return nil
}

// issue encrypts the identity under secret and signs the blob under the same
// secret.
func (s *AuthService) issue(identity domain.UserIdentity, secret string, ttl time.Duration, kind string) (string, error) {
	payload, err := json.Marshal(identity)
	if err != nil {
		return "", fmt.Errorf("encode identity: %w", err)
	}
	blob, err := s.cipher.Encrypt(payload, secret)
	if err != nil {
		return "", fmt.Errorf("encrypt identity: %w", err)
	}
	token, err := s.codec.Sign(blob, secret, ttl)
	if err != nil {
		return "", err
	}
	metrics.TokensIssuedTotal.WithLabelValues(kind).Inc()
	return token, nil
}

// read verifies, checks revocation, decrypts and parses a token.
func (s *AuthService) read(ctx context.Context, token, secret string) (*domain.UserIdentity, ports.VerifiedToken, error) {
	vt, err := s.codec.Verify(token, secret)
	if err != nil {
		if !errors.Is(err, domain.ErrTokenExpired) && !errors.Is(err, domain.ErrTokenInvalid) {
			err = fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
		}
		return nil, vt, err
	}

	if s.denylist != nil && vt.ID != "" {
		revoked, err := s.denylist.IsRevoked(ctx, vt.ID)
		if err != nil {
			s.logger(ctx).Warn().Err(err).Str("jti", vt.ID).Msg("denylist check failed, accepting token")
		} else if revoked {
			return nil, vt, domain.ErrTokenRevoked
		}
	}

	plaintext, err := s.cipher.Decrypt(vt.Payload, secret)
	if err != nil {
		return nil, vt, fmt.Errorf("%w: %v", domain.ErrPayloadDecrypt, err)
	}

	var identity domain.UserIdentity
	if err := json.Unmarshal(plaintext, &identity); err != nil {
		return nil, vt, fmt.Errorf("%w: %v", domain.ErrPayloadDecrypt, err)
	}
	if !identity.Valid() {
		return nil, vt, fmt.Errorf("%w: malformed identity", domain.ErrPayloadDecrypt)
	}
	return &identity, vt, nil
}

func (s *AuthService) loginRejected(ctx context.Context, email string, userID int64, reason string) error {
	metrics.LoginsTotal.WithLabelValues("unauthorized").Inc()
	s.record(domain.EventLogin, domain.OutcomeFailure, userID, email, reason)
	s.logger(ctx).Warn().Str("email", email).Str("reason", reason).Msg("login rejected")
	return domain.ErrInvalidCredentials
}

func (s *AuthService) rejected(ctx context.Context, op string, err error) {
	reason := failureReason(err)
	metrics.AuthFailuresTotal.WithLabelValues(op, reason).Inc()
	s.logger(ctx).Warn().Err(err).Str("op", op).Str("reason", reason).Msg("token rejected")
}

// logger prefers the request-scoped logger carried by ctx.
func (s *AuthService) logger(ctx context.Context) *zerolog.Logger {
	l := logger.FromContext(ctx, s.log)
	return &l
}

func (s *AuthService) record(kind domain.AuthEventKind, outcome string, userID int64, subject, reason string) {
	s.events.Record(domain.AuthEvent{
		Kind:       kind,
		Outcome:    outcome,
		UserID:     userID,
		Subject:    subject,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	})
}

func (s *AuthService) placeholderHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("placeholder-password")
		if err == nil {
			s.dummyHash = hash
		}
	})
	return s.dummyHash
}

// bearerToken extracts the second whitespace-delimited segment of
// "<scheme> <token>". Any scheme is accepted and extra segments are ignored.
func bearerToken(header string) (string, error) {
	parts := strings.Fields(header)
	if len(parts) == 0 {
		return "", domain.ErrTokenMissing
	}
	if len(parts) < 2 {
		return "", fmt.Errorf("%w: malformed authorization header", domain.ErrTokenInvalid)
	}
	return parts[1], nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrTokenMissing):
		return "missing"
	case errors.Is(err, domain.ErrTokenExpired):
		return "expired"
	case errors.Is(err, domain.ErrTokenRevoked):
		return "revoked"
	case errors.Is(err, domain.ErrPayloadDecrypt):
		return "decrypt"
	case errors.Is(err, domain.ErrTokenInvalid):
		return "invalid"
	default:
		return "error"
	}
}

type discardRecorder struct{}

func (discardRecorder) Record(domain.AuthEvent) {}
