package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-service/internal/core/domain"
)

type stubAuthenticator struct {
	authenticateFn func(ctx context.Context, header string) (*domain.UserIdentity, error)
}

func (s *stubAuthenticator) Register(context.Context, string, string, string) error { return nil }

func (s *stubAuthenticator) Login(context.Context, string, string) (*domain.TokenPair, error) {
	return nil, nil
}

func (s *stubAuthenticator) Authenticate(ctx context.Context, header string) (*domain.UserIdentity, error) {
	return s.authenticateFn(ctx, header)
}

func (s *stubAuthenticator) Refresh(context.Context, string) (string, error) { return "", nil }

func (s *stubAuthenticator) Logout(context.Context, string, string) error { return nil }

func TestAuthMiddleware_ValidToken(t *testing.T) {
	e := echo.New()
	stub := &stubAuthenticator{
		authenticateFn: func(_ context.Context, header string) (*domain.UserIdentity, error) {
			if header != "Bearer tok" {
				t.Fatalf("unexpected header %q", header)
			}
			return &domain.UserIdentity{ID: 7, Username: "alice"}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer tok")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	handler := Auth(stub)(func(c echo.Context) error {
		called = true
		identity, ok := IdentityFromContext(c.Request().Context())
		if !ok || identity.ID != 7 || identity.Username != "alice" {
			t.Fatalf("identity not in request context: %+v", identity)
		}
		if tok, ok := AccessTokenFromContext(c.Request().Context()); !ok || tok != "tok" {
			t.Fatalf("access token not in request context: %q", tok)
		}
		if c.Get(UserIDKey) != int64(7) || c.Get(UsernameKey) != "alice" {
			t.Fatalf("echo context values not set")
		}
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next not called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthMiddleware_RejectedToken(t *testing.T) {
	e := echo.New()
	stub := &stubAuthenticator{
		authenticateFn: func(context.Context, string) (*domain.UserIdentity, error) {
			return nil, domain.ErrTokenExpired
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer old")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := Auth(stub)(func(c echo.Context) error {
		t.Fatalf("next must not be called")
		return nil
	})

	err := handler(c)
	if !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestAuthMiddleware_TokenFromAnyScheme(t *testing.T) {
	stub := &stubAuthenticator{
		authenticateFn: func(context.Context, string) (*domain.UserIdentity, error) {
			return &domain.UserIdentity{ID: 1, Username: "u"}, nil
		},
	}

	for _, header := range []string{"JWT tok", "Token tok", "Bearer tok extra"} {
		e := echo.New()
		req := httptest.NewRequest(http.MethodPost, "/logout", nil)
		req.Header.Set(echo.HeaderAuthorization, header)
		c := e.NewContext(req, httptest.NewRecorder())

		handler := Auth(stub)(func(c echo.Context) error {
			if tok, ok := AccessTokenFromContext(c.Request().Context()); !ok || tok != "tok" {
				t.Fatalf("%q: expected access token %q, got %q", header, "tok", tok)
			}
			return nil
		})
		if err := handler(c); err != nil {
			t.Fatalf("%q: handler error: %v", header, err)
		}
	}
}

func TestIdentityFromContext_Empty(t *testing.T) {
	if _, ok := IdentityFromContext(context.Background()); ok {
		t.Fatalf("expected no identity")
	}
	if _, ok := AccessTokenFromContext(context.Background()); ok {
		t.Fatalf("expected no token")
	}

	ctx := WithIdentity(context.Background(), &domain.UserIdentity{ID: 1, Username: "u"})
	if identity, ok := IdentityFromContext(ctx); !ok || identity.Username != "u" {
		t.Fatalf("identity round trip failed")
	}
}
