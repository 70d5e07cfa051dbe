package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"buchungsportal-backend/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret-not-for-production")

func newAuthApp() *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Use(IsAuthenticatedHeader(testSecret))
	app.Get("/api/whoami", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"user_id":   c.Locals("userID"),
			"tenant_id": c.Locals("tenantID"),
			"role":      c.Locals("role"),
		})
	})
	return app
}

func TestAuthRoundTrip(t *testing.T) {
	token, err := GenerateJWT(testSecret, "u-1", "agency-1", models.RoleAgent)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := newAuthApp().Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthMissingHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/whoami", nil)
	resp, err := newAuthApp().Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthRejectsTamperedToken(t *testing.T) {
	token, err := GenerateJWT([]byte("some-other-secret"), "u-1", "agency-1", models.RoleAgent)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := newAuthApp().Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
