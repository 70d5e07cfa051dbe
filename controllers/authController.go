package controllers

import (
	"net/mail"

	"buchungsportal-backend/config"
	"buchungsportal-backend/database"
	"buchungsportal-backend/middlewares"
	"buchungsportal-backend/models"

	"github.com/gofiber/fiber/v2"
)

// AuthController handles registration and login for agency users. Session
// issuance sits outside the gateway proper; the guards only consume the
// principal these endpoints mint.
type AuthController struct {
	cfg *config.Config
}

func NewAuthController(cfg *config.Config) *AuthController {
	return &AuthController{cfg: cfg}
}

// Register creates a new agency (tenant), its first user and an active
// membership in one transaction.
func (a *AuthController) Register(c *fiber.Ctx) error {
	var data map[string]string
	if err := c.BodyParser(&data); err != nil {
		return err
	}

	if _, err := mail.ParseAddress(data["email"]); err != nil {
		c.Status(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{"message": "invalid email format"})
	}

	var mailExist models.User
	database.DB.Where("email = ?", data["email"]).First(&mailExist)
	if mailExist.Email != "" {
		c.Status(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{"message": "email already exists"})
	}

	if data["password"] != data["password_confirm"] {
		c.Status(400)
		return c.JSON(fiber.Map{"message": "passwords do not match"})
	}

	if data["agency_name"] == "" {
		c.Status(400)
		return c.JSON(fiber.Map{"message": "agency name is required"})
	}

	tx := database.DB.Begin()

	user := models.User{
		FirstName: data["first_name"],
		LastName:  data["last_name"],
		Email:     data["email"],
		Role:      models.RoleAgent,
	}
	user.SetPassword(data["password"])
	if err := tx.Create(&user).Error; err != nil {
		tx.Rollback()
		c.Status(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"message": "Could not create user",
			"error":   err.Error(),
		})
	}

	tenant := models.Tenant{
		Name:   data["agency_name"],
		Status: models.TenantActive,
	}
	if err := tx.Create(&tenant).Error; err != nil {
		tx.Rollback()
		c.Status(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"message": "Could not create agency",
			"error":   err.Error(),
		})
	}

	membership := models.TenantMembership{
		UserID:   user.Id,
		TenantID: tenant.Id,
		Status:   models.MembershipActive,
	}
	if err := tx.Create(&membership).Error; err != nil {
		tx.Rollback()
		c.Status(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"message": "Could not create membership",
			"error":   err.Error(),
		})
	}

	tx.Commit()

	return c.JSON(fiber.Map{
		"user":   user,
		"agency": tenant,
	})
}

func (a *AuthController) Login(c *fiber.Ctx) error {
	var data map[string]string
	if err := c.BodyParser(&data); err != nil {
		return err
	}

	if _, err := mail.ParseAddress(data["email"]); err != nil {
		c.Status(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{"message": "invalid email format"})
	}

	var user models.User
	database.DB.Where("email = ?", data["email"]).First(&user)
	if user.Id == "" {
		c.Status(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{"message": "invalid credentials"})
	}

	if err := user.ComparePassword(data["password"]); err != nil {
		c.Status(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{"message": "invalid credentials"})
	}

	// Users belong to exactly one agency; super-admins have none.
	tenantID := ""
	if user.Role != models.RoleSuperAdmin {
		var membership models.TenantMembership
		database.DB.Where("user_id = ?", user.Id).First(&membership)
		if membership.TenantID == "" {
			c.Status(fiber.StatusForbidden)
			return c.JSON(fiber.Map{"message": "no agency"})
		}
		tenantID = membership.TenantID
	}

	token, err := middlewares.GenerateJWT([]byte(a.cfg.JWTSecret), user.Id, tenantID, user.Role)
	if err != nil {
		c.Status(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{"message": "could not issue token"})
	}

	return c.JSON(fiber.Map{
		"token":     token,
		"tenant_id": tenantID,
	})
}

func (a *AuthController) Logout(c *fiber.Ctx) error {
	// Stateless JWT: nothing to revoke server-side.
	return c.JSON(fiber.Map{"message": "logged out"})
}
