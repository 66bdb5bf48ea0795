package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-service/internal/api/middleware"
	"github.com/99minutos/auth-service/internal/core/domain"
)

type stubAuthService struct {
	registerFn func(ctx context.Context, username, email, password string) error
	loginFn    func(ctx context.Context, email, password string) (*domain.TokenPair, error)
	refreshFn  func(ctx context.Context, token string) (string, error)
	logoutFn   func(ctx context.Context, access, refresh string) error
}

func (s *stubAuthService) Register(ctx context.Context, username, email, password string) error {
	return s.registerFn(ctx, username, email, password)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (*domain.TokenPair, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubAuthService) Authenticate(context.Context, string) (*domain.UserIdentity, error) {
	return nil, domain.ErrTokenInvalid
}

func (s *stubAuthService) Refresh(ctx context.Context, token string) (string, error) {
	return s.refreshFn(ctx, token)
}

func (s *stubAuthService) Logout(ctx context.Context, access, refresh string) error {
	return s.logoutFn(ctx, access, refresh)
}

func newTestContext(method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return resp
}

func httpError(t *testing.T, err error) *echo.HTTPError {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got %T (%v)", err, err)
	}
	return he
}

func TestAuthHandler_Register_Success(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(_ context.Context, username, email, password string) error {
			if username != "alice" || email != "a@x.com" || password != "p1" {
				t.Fatalf("unexpected args: %s %s %s", username, email, password)
			}
			return nil
		},
	}
	c, rec := newTestContext(http.MethodPost, "/register", `{"username":"alice","email":"a@x.com","password":"p1"}`)

	if err := NewAuthHandler(stub).Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if msg := decode(t, rec)["message"]; msg != "User registered successfully." {
		t.Fatalf("unexpected message: %v", msg)
	}
}

func TestAuthHandler_Register_PropagatesDomainErrors(t *testing.T) {
	for _, want := range []error{domain.ErrValidation, domain.ErrUserExists} {
		stub := &stubAuthService{
			registerFn: func(context.Context, string, string, string) error { return want },
		}
		c, _ := newTestContext(http.MethodPost, "/register", `{"username":"bob"}`)

		if err := NewAuthHandler(stub).Register(c); !errors.Is(err, want) {
			t.Fatalf("expected %v, got %v", want, err)
		}
	}
}

func TestAuthHandler_Register_BadBody(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(context.Context, string, string, string) error {
			t.Fatalf("service must not be called")
			return nil
		},
	}

	c, _ := newTestContext(http.MethodPost, "/register", `{"username":`)
	if he := httpError(t, NewAuthHandler(stub).Register(c)); he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", he.Code)
	}

	long := strings.Repeat("a", 256)
	c, _ = newTestContext(http.MethodPost, "/register", `{"username":"`+long+`","email":"a@x.com","password":"p"}`)
	he := httpError(t, NewAuthHandler(stub).Register(c))
	if he.Code != http.StatusBadRequest || !strings.Contains(he.Message.(string), "username") {
		t.Fatalf("unexpected error: %d %v", he.Code, he.Message)
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(_ context.Context, email, password string) (*domain.TokenPair, error) {
			return &domain.TokenPair{AccessToken: "acc", RefreshToken: "ref"}, nil
		},
	}
	c, rec := newTestContext(http.MethodPost, "/login", `{"email":"a@x.com","password":"p1"}`)

	if err := NewAuthHandler(stub).Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decode(t, rec)
	if resp["message"] != "Login successful." || resp["token"] != "acc" || resp["refreshToken"] != "ref" {
		t.Fatalf("unexpected body: %+v", resp)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(context.Context, string, string) (*domain.TokenPair, error) {
			return nil, domain.ErrInvalidCredentials
		},
	}
	c, _ := newTestContext(http.MethodPost, "/login", `{"email":"a@x.com","password":"bad"}`)

	if err := NewAuthHandler(stub).Login(c); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthHandler_Refresh(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{domain.ErrTokenMissing, "Refresh token required"},
		{domain.ErrTokenInvalid, "Invalid or expired refresh token"},
		{domain.ErrTokenExpired, "Invalid or expired refresh token"},
		{domain.ErrTokenRevoked, "Invalid or expired refresh token"},
		{domain.ErrPayloadDecrypt, "Failed to decrypt the refresh token payload"},
	}
	for _, tc := range cases {
		stub := &stubAuthService{
			refreshFn: func(context.Context, string) (string, error) { return "", tc.err },
		}
		c, _ := newTestContext(http.MethodPost, "/refresh", `{"token":"r"}`)

		he := httpError(t, NewAuthHandler(stub).Refresh(c))
		if he.Code != http.StatusForbidden || he.Message != tc.want {
			t.Fatalf("%v: got %d %v", tc.err, he.Code, he.Message)
		}
	}
}

func TestAuthHandler_Refresh_Success(t *testing.T) {
	stub := &stubAuthService{
		refreshFn: func(_ context.Context, token string) (string, error) {
			if token != "r" {
				t.Fatalf("unexpected token %q", token)
			}
			return "new-access", nil
		},
	}
	c, rec := newTestContext(http.MethodPost, "/refresh", `{"token":"r"}`)

	if err := NewAuthHandler(stub).Refresh(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK || decode(t, rec)["accessToken"] != "new-access" {
		t.Fatalf("unexpected response: %d %s", rec.Code, rec.Body.String())
	}
}

func TestAuthHandler_Refresh_UnexpectedError(t *testing.T) {
	boom := errors.New("boom")
	stub := &stubAuthService{
		refreshFn: func(context.Context, string) (string, error) { return "", boom },
	}
	c, _ := newTestContext(http.MethodPost, "/refresh", `{"token":"r"}`)

	if err := NewAuthHandler(stub).Refresh(c); !errors.Is(err, boom) {
		t.Fatalf("expected raw error, got %v", err)
	}
}

func TestAuthHandler_Me(t *testing.T) {
	c, rec := newTestContext(http.MethodGet, "/me", "")
	ctx := middleware.WithIdentity(c.Request().Context(), &domain.UserIdentity{ID: 3, Username: "carol"})
	c.SetRequest(c.Request().WithContext(ctx))

	if err := NewAuthHandler(&stubAuthService{}).Me(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	resp := decode(t, rec)
	if resp["id"] != float64(3) || resp["username"] != "carol" {
		t.Fatalf("unexpected body: %+v", resp)
	}
}

func TestAuthHandler_Me_WithoutMiddleware(t *testing.T) {
	c, _ := newTestContext(http.MethodGet, "/me", "")
	if err := NewAuthHandler(&stubAuthService{}).Me(c); !errors.Is(err, domain.ErrTokenMissing) {
		t.Fatalf("expected ErrTokenMissing, got %v", err)
	}
}
