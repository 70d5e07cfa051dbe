package middlewares

import (
	"encoding/json"
	"strings"

	"buchungsportal-backend/logging"
	"buchungsportal-backend/models"

	"github.com/gofiber/fiber/v2"
)

// TenantGuardStore is the read-only lookup contract for isolation checks.
type TenantGuardStore interface {
	GetMembership(userID, tenantID string) (*models.TenantMembership, error)
	GetTenant(id string) (*models.Tenant, error)
	BookingTenant(bookingID string) (string, error)
}

// TenantGuard denies any request whose principal is not an active member of
// an active tenant, and any request whose body references a foreign tenant.
// Lookups that fail deny the request (fail closed). Run AFTER
// IsAuthenticatedHeader() so userID/tenantID/role are present.
func TenantGuard(store TenantGuardStore) fiber.Handler {
	log := logging.With().Str("component", "tenant_guard").Logger()

	return func(c *fiber.Ctx) error {
		// Only the API namespace is tenant-scoped.
		if !strings.HasPrefix(c.Path(), "/api") {
			return c.Next()
		}

		role, _ := c.Locals("role").(string)
		if role == models.RoleSuperAdmin {
			return c.Next()
		}

		userID, _ := c.Locals("userID").(string)
		tenantID, _ := c.Locals("tenantID").(string)
		if userID == "" || tenantID == "" {
			return respondError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "auth context missing")
		}

		membership, err := store.GetMembership(userID, tenantID)
		if err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("membership lookup failed")
			return respondError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "could not verify agency access")
		}
		if membership == nil {
			return respondError(c, fiber.StatusForbidden, "FORBIDDEN", "no agency")
		}
		if membership.Status != models.MembershipActive {
			return respondError(c, fiber.StatusForbidden, "FORBIDDEN", "inactive")
		}

		tenant, err := store.GetTenant(tenantID)
		if err != nil {
			log.Error().Err(err).Str("tenant_id", tenantID).Msg("tenant lookup failed")
			return respondError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "could not verify agency access")
		}
		if tenant == nil || tenant.Status != models.TenantActive {
			return respondError(c, fiber.StatusForbidden, "FORBIDDEN", "inactive")
		}

		// An explicit tenant reference in the body must match the caller.
		if ref := bodyTenantRef(c); ref != "" && ref != tenantID {
			return respondError(c, fiber.StatusForbidden, "FORBIDDEN", "tenant mismatch")
		}

		return c.Next()
	}
}

// RequireBookingOwnership compares the owning tenant of the booking in the
// :id route param with the caller's tenant. A mismatch is denied even when
// the caller's own tenant is valid. Super-admins bypass the check.
func RequireBookingOwnership(store TenantGuardStore) fiber.Handler {
	log := logging.With().Str("component", "tenant_guard").Logger()

	return func(c *fiber.Ctx) error {
		role, _ := c.Locals("role").(string)
		if role == models.RoleSuperAdmin {
			return c.Next()
		}

		tenantID, _ := c.Locals("tenantID").(string)
		bookingID := c.Params("id")
		if bookingID == "" {
			return respondError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "missing booking id")
		}

		owner, err := store.BookingTenant(bookingID)
		if err != nil {
			log.Error().Err(err).Str("booking_id", bookingID).Msg("booking owner lookup failed")
			return respondError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "could not verify booking access")
		}
		if owner == "" {
			return respondError(c, fiber.StatusNotFound, "NOT_FOUND", "booking not found")
		}
		if owner != tenantID {
			return respondError(c, fiber.StatusForbidden, "FORBIDDEN", "tenant mismatch")
		}

		return c.Next()
	}
}

// bodyTenantRef extracts an explicit agency_id/tenant_id field from a JSON
// request body, if any.
func bodyTenantRef(c *fiber.Ctx) string {
	body := c.Body()
	if len(body) == 0 {
		return ""
	}
	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		return ""
	}
	if v, ok := data["agency_id"].(string); ok {
		return v
	}
	if v, ok := data["tenant_id"].(string); ok {
		return v
	}
	return ""
}
