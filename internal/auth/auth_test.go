package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository/repotest"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	token, expires, err := tm.GenerateToken(&domain.User{ID: 7, Role: domain.UserRoleAgent})
	require.NoError(t, err)
	assert.False(t, expires.IsZero())

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, domain.UserRoleAgent, claims.Role)

	_, err = NewTokenManager("other", 5).ParseToken(token)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "hunter2"))
	assert.Error(t, ComparePassword(hash, "hunter3"))
}

func newTestApp(store *repotest.Store, tm *TokenManager) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(apperrors.ToDomainError(err).HTTPStatus).SendString(err.Error())
		},
	})
	mw := NewAuthMiddleware(tm, store.Users())
	app.Get("/me", mw.Handle, func(c *fiber.Ctx) error {
		p, _ := PrincipalFromContext(c)
		return c.SendString(p.User.Name)
	})
	app.Get("/admin", mw.Handle, RequireRole(domain.UserRoleAdmin), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})
	return app
}

func TestMiddleware(t *testing.T) {
	store := repotest.New()
	store.PutUser(domain.User{ID: 7, Name: "Agent Seven", Role: domain.UserRoleAgent, Active: true})
	store.PutUser(domain.User{ID: 8, Name: "Gone", Role: domain.UserRoleAdmin, Active: false})
	tm := NewTokenManager("secret", 5)
	app := newTestApp(store, tm)

	agentToken, _, err := tm.GenerateToken(&domain.User{ID: 7, Role: domain.UserRoleAgent})
	require.NoError(t, err)
	inactiveToken, _, err := tm.GenerateToken(&domain.User{ID: 8, Role: domain.UserRoleAdmin})
	require.NoError(t, err)

	cases := []struct {
		name   string
		path   string
		header string
		status int
	}{
		{"missing header", "/me", "", http.StatusUnauthorized},
		{"wrong scheme", "/me", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "/me", "Bearer nope", http.StatusUnauthorized},
		{"valid", "/me", "Bearer " + agentToken, http.StatusOK},
		{"inactive user", "/me", "Bearer " + inactiveToken, http.StatusUnauthorized},
		{"role denied", "/admin", "Bearer " + agentToken, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}
