package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ManuelReschke/DonationDesk/internal/pkg/usercontext"
)

func newTestApp(handlers ...fiber.Handler) (*fiber.App, *usercontext.UserContext) {
	seen := &usercontext.UserContext{}
	app := fiber.New()
	chain := append([]fiber.Handler{}, handlers...)
	chain = append(chain, func(c *fiber.Ctx) error {
		*seen = usercontext.GetUserContext(c)
		return c.SendStatus(fiber.StatusNoContent)
	})
	app.Get("/", chain...)
	return app, seen
}

func TestUserContextMiddleware(t *testing.T) {
	app, seen := newTestApp(UserContextMiddleware)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(usercontext.HeaderUserEmail, "jane@example.org")
	req.Header.Set(usercontext.HeaderUserName, "Jane Doe")
	req.Header.Set(usercontext.HeaderUserType, "Website User")
	req.Header.Set(usercontext.HeaderUserRoles, "Guest, administrator")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	assert.Equal(t, usercontext.UserContext{
		Email:      "jane@example.org",
		FullName:   "Jane Doe",
		UserType:   "Website User",
		IsLoggedIn: true,
		IsAdmin:    true,
	}, *seen)
}

func TestUserContextMiddlewareAnonymous(t *testing.T) {
	app, seen := newTestApp(UserContextMiddleware)

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.False(t, seen.IsLoggedIn)
}

func TestOperatorAPIKeyMiddleware(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("op-key"), bcrypt.MinCost)
	require.NoError(t, err)

	app, seen := newTestApp(OperatorAPIKeyMiddleware([]string{"not-a-hash", string(hash)}), RequireOperator)

	tests := []struct {
		name   string
		header string
		value  string
		status int
	}{
		{"missing key", "", "", fiber.StatusUnauthorized},
		{"wrong key", "X-API-Key", "nope", fiber.StatusUnauthorized},
		{"x-api-key", "X-API-Key", "op-key", fiber.StatusNoContent},
		{"bearer", "Authorization", "Bearer op-key", fiber.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
	assert.True(t, seen.IsOperator)
	assert.Equal(t, "System User", seen.UserType)
}

func TestOperatorAPIKeyMiddlewareWithoutHashes(t *testing.T) {
	app, _ := newTestApp(OperatorAPIKeyMiddleware(nil))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-API-Key", "anything")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRequireOperatorRejectsAnonymous(t *testing.T) {
	app, _ := newTestApp(RequireOperator)

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestHashAPIKey(t *testing.T) {
	hash, err := HashAPIKey("secret")
	require.NoError(t, err)
	assert.True(t, matchesAnyHash("secret", []string{hash}))
	assert.False(t, matchesAnyHash("other", []string{hash}))
}
