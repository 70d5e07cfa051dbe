package controllers

import (
	"buchungsportal-backend/database"
	"buchungsportal-backend/models"

	"github.com/gofiber/fiber/v2"
)

// AdminController exposes the super-admin tenant operations. The tenant
// guard lets super-admins through, so the role check happens here.
type AdminController struct{}

func NewAdminController() *AdminController {
	return &AdminController{}
}

func requireSuperAdmin(c *fiber.Ctx) error {
	role, _ := c.Locals("role").(string)
	if role != models.RoleSuperAdmin {
		return fiber.NewError(fiber.StatusForbidden, "super admin only")
	}
	return nil
}

func (a *AdminController) ListTenants(c *fiber.Ctx) error {
	if err := requireSuperAdmin(c); err != nil {
		return err
	}

	var tenants []models.Tenant
	if err := database.DB.Order("created_at").Find(&tenants).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not list agencies")
	}
	return c.JSON(tenants)
}

func (a *AdminController) SuspendTenant(c *fiber.Ctx) error {
	return a.setStatus(c, models.TenantSuspended)
}

func (a *AdminController) ActivateTenant(c *fiber.Ctx) error {
	return a.setStatus(c, models.TenantActive)
}

func (a *AdminController) setStatus(c *fiber.Ctx, status string) error {
	if err := requireSuperAdmin(c); err != nil {
		return err
	}

	res := database.DB.Model(&models.Tenant{}).
		Where("id = ?", c.Params("id")).
		Update("status", status)
	if res.Error != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not update agency")
	}
	if res.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusNotFound, "agency not found")
	}
	return c.JSON(fiber.Map{"id": c.Params("id"), "status": status})
}
