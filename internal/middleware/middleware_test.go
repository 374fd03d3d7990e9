package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"school-api/internal/core/security"
	"school-api/internal/database/model"
	"school-api/internal/services/auth"
	"school-api/pkg/apperror"
	"school-api/pkg/logger"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.SetOutput(io.Discard)
}

type stubAuthenticator struct {
	users map[string]*model.User
	err   error
}

func (s stubAuthenticator) Authenticate(_ context.Context, token string) (*model.User, *security.Claims, error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	u, ok := s.users[token]
	if !ok {
		return nil, nil, auth.ErrUnauthorized
	}
	return u, &security.Claims{Role: u.Role}, nil
}

func decodeError(t *testing.T, resp *http.Response) apperror.ErrorResponse {
	t.Helper()
	var body apperror.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func newAuthApp(authn Authenticator) *fiber.App {
	app := fiber.New()
	app.Get("/me", RequireAuth(authn), func(c fiber.Ctx) error {
		return c.SendString(CurrentUser(c).Email)
	})
	app.Get("/admin", RequireAuth(authn), RequireAdmin(), func(c fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc", "abc"},
		{"bearer   abc ", "abc"},
		{"Basic abc", ""},
		{"Bearer", ""},
		{"", ""},
	}
	for _, tt := range tests {
		app := fiber.New()
		app.Get("/", func(c fiber.Ctx) error { return c.SendString(BearerToken(c)) })

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			req.Header.Set(fiber.HeaderAuthorization, tt.header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, tt.want, string(body), "header %q", tt.header)
	}
}

func TestRequireAuth(t *testing.T) {
	authn := stubAuthenticator{users: map[string]*model.User{
		"teacher-token": {ID: 2, Email: "lan@example.com", Role: model.RoleTeacher},
		"admin-token":   {ID: 1, Email: "root@example.com", Role: model.RoleAdmin},
	}}
	app := newAuthApp(authn)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer teacher-token")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "lan@example.com", string(body))

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Bearer", resp.Header.Get(fiber.HeaderWWWAuthenticate))
	assert.Equal(t, "SCH-1004", decodeError(t, resp).ErrorCode)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer teacher-token")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer admin-token")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRequireAuth_Expired(t *testing.T) {
	app := newAuthApp(stubAuthenticator{err: auth.ErrTokenExpired})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer stale")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decodeError(t, resp)
	assert.Equal(t, "SCH-1005", body.ErrorCode)
	assert.Equal(t, "token has expired", body.Error)
}

func TestPanicRecovery(t *testing.T) {
	app := fiber.New()
	app.Use(PanicRecovery())
	app.Get("/", func(c fiber.Ctx) error { panic("boom") })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "SCH-9000", decodeError(t, resp).ErrorCode)
}

func TestConnectionLimiter(t *testing.T) {
	cl := NewConnectionLimiter(1)
	assert.True(t, cl.Acquire())
	assert.False(t, cl.Acquire())
	cl.Release()
	assert.True(t, cl.Acquire())
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"))

	now = now.Add(time.Minute)
	assert.True(t, rl.Allow("10.0.0.1"))

	now = now.Add(time.Hour)
	rl.Cleanup(time.Minute)
	assert.Empty(t, rl.visitors)
}

func TestRateLimiter_Handler(t *testing.T) {
	app := fiber.New()
	app.Post("/login", NewRateLimiter(1, 1).Handler(), func(c fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/login", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/login", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "SCH-1007", decodeError(t, resp).ErrorCode)

	open := fiber.New()
	open.Post("/login", NewRateLimiter(0, 0).Handler(), func(c fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})
	for i := 0; i < 5; i++ {
		resp, err := open.Test(httptest.NewRequest(http.MethodPost, "/login", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
}
