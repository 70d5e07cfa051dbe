package middlewares

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"buchungsportal-backend/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTenantStore struct {
	memberships map[string]*models.TenantMembership // userID|tenantID
	tenants     map[string]*models.Tenant
	bookings    map[string]string // bookingID -> tenantID
	failLookup  bool
}

func newFakeTenantStore() *fakeTenantStore {
	return &fakeTenantStore{
		memberships: map[string]*models.TenantMembership{},
		tenants:     map[string]*models.Tenant{},
		bookings:    map[string]string{},
	}
}

func (s *fakeTenantStore) GetMembership(userID, tenantID string) (*models.TenantMembership, error) {
	if s.failLookup {
		return nil, errors.New("store down")
	}
	return s.memberships[userID+"|"+tenantID], nil
}

func (s *fakeTenantStore) GetTenant(id string) (*models.Tenant, error) {
	if s.failLookup {
		return nil, errors.New("store down")
	}
	return s.tenants[id], nil
}

func (s *fakeTenantStore) BookingTenant(bookingID string) (string, error) {
	if s.failLookup {
		return "", errors.New("store down")
	}
	return s.bookings[bookingID], nil
}

func (s *fakeTenantStore) activeSetup() {
	s.memberships["u-1|agency-1"] = &models.TenantMembership{UserID: "u-1", TenantID: "agency-1", Status: models.MembershipActive}
	s.tenants["agency-1"] = &models.Tenant{Id: "agency-1", Status: models.TenantActive}
}

func newGuardApp(t *testing.T, store *fakeTenantStore, userID, tenantID, role string) (*fiber.App, *int32) {
	t.Helper()

	var handlerCalls int32
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Use(func(c *fiber.Ctx) error {
		if userID != "" {
			c.Locals("userID", userID)
			c.Locals("tenantID", tenantID)
			c.Locals("role", role)
		}
		return c.Next()
	})
	app.Use(TenantGuard(store))
	ok := func(c *fiber.Ctx) error {
		atomic.AddInt32(&handlerCalls, 1)
		return c.JSON(fiber.Map{"ok": true})
	}
	app.Post("/api/orders", ok)
	app.Get("/healthz", ok)
	app.Post("/api/orders/:id/issue", RequireBookingOwnership(store), ok)
	return app, &handlerCalls
}

func postJSON(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestTenantGuardAllowsActiveMember(t *testing.T) {
	store := newFakeTenantStore()
	store.activeSetup()
	app, calls := newGuardApp(t, store, "u-1", "agency-1", models.RoleAgent)

	resp, err := app.Test(postJSON("/api/orders", `{"offer_id":"o-1"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))
}

func TestTenantGuardDeniesMissingMembership(t *testing.T) {
	store := newFakeTenantStore()
	store.tenants["agency-1"] = &models.Tenant{Id: "agency-1", Status: models.TenantActive}
	app, calls := newGuardApp(t, store, "u-1", "agency-1", models.RoleAgent)

	resp, err := app.Test(postJSON("/api/orders", `{}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", errorCode(t, resp))
	assert.EqualValues(t, 0, atomic.LoadInt32(calls))
}

func TestTenantGuardDeniesInactiveMembership(t *testing.T) {
	store := newFakeTenantStore()
	store.activeSetup()
	store.memberships["u-1|agency-1"].Status = models.MembershipInactive
	app, calls := newGuardApp(t, store, "u-1", "agency-1", models.RoleAgent)

	resp, err := app.Test(postJSON("/api/orders", `{}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.EqualValues(t, 0, atomic.LoadInt32(calls))
}

func TestTenantGuardDeniesSuspendedTenant(t *testing.T) {
	store := newFakeTenantStore()
	store.activeSetup()
	store.tenants["agency-1"].Status = models.TenantSuspended
	app, calls := newGuardApp(t, store, "u-1", "agency-1", models.RoleAgent)

	resp, err := app.Test(postJSON("/api/orders", `{}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.EqualValues(t, 0, atomic.LoadInt32(calls))
}

func TestTenantGuardDeniesBodyTenantMismatch(t *testing.T) {
	store := newFakeTenantStore()
	store.activeSetup()
	app, calls := newGuardApp(t, store, "u-1", "agency-1", models.RoleAgent)

	resp, err := app.Test(postJSON("/api/orders", `{"agency_id":"agency-2","offer_id":"o-1"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", errorCode(t, resp))
	assert.EqualValues(t, 0, atomic.LoadInt32(calls))
}

func TestTenantGuardAllowsMatchingBodyTenant(t *testing.T) {
	store := newFakeTenantStore()
	store.activeSetup()
	app, calls := newGuardApp(t, store, "u-1", "agency-1", models.RoleAgent)

	resp, err := app.Test(postJSON("/api/orders", `{"agency_id":"agency-1"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))
}

func TestTenantGuardFailsClosedOnStoreError(t *testing.T) {
	store := newFakeTenantStore()
	store.activeSetup()
	store.failLookup = true
	app, calls := newGuardApp(t, store, "u-1", "agency-1", models.RoleAgent)

	resp, err := app.Test(postJSON("/api/orders", `{}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.EqualValues(t, 0, atomic.LoadInt32(calls))
}

func TestTenantGuardBypassesSuperAdmin(t *testing.T) {
	store := newFakeTenantStore() // no memberships at all
	app, calls := newGuardApp(t, store, "root-1", "", models.RoleSuperAdmin)

	resp, err := app.Test(postJSON("/api/orders", `{}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))
}

func TestTenantGuardBypassesNonAPIRoutes(t *testing.T) {
	store := newFakeTenantStore()
	app, calls := newGuardApp(t, store, "u-1", "agency-1", models.RoleAgent)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))
}

func TestBookingOwnershipDeniesForeignBooking(t *testing.T) {
	store := newFakeTenantStore()
	store.activeSetup()
	store.bookings["b-2"] = "agency-2"
	app, calls := newGuardApp(t, store, "u-1", "agency-1", models.RoleAgent)

	resp, err := app.Test(postJSON("/api/orders/b-2/issue", `{}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", errorCode(t, resp))
	assert.EqualValues(t, 0, atomic.LoadInt32(calls))
}

func TestBookingOwnershipAllowsOwnBooking(t *testing.T) {
	store := newFakeTenantStore()
	store.activeSetup()
	store.bookings["b-1"] = "agency-1"
	app, calls := newGuardApp(t, store, "u-1", "agency-1", models.RoleAgent)

	resp, err := app.Test(postJSON("/api/orders/b-1/issue", `{}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))
}

func TestBookingOwnershipUnknownBookingIs404(t *testing.T) {
	store := newFakeTenantStore()
	store.activeSetup()
	app, _ := newGuardApp(t, store, "u-1", "agency-1", models.RoleAgent)

	resp, err := app.Test(postJSON("/api/orders/nope/issue", `{}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
