package controllers

import (
	"encoding/json"

	"buchungsportal-backend/database"
	"buchungsportal-backend/middlewares"
	"buchungsportal-backend/models"
	"buchungsportal-backend/upstream"
	"buchungsportal-backend/utils"

	"github.com/gofiber/fiber/v2"
)

// BookingController forwards booking operations to the workflow engine
// through the resilient client and keeps the local booking records the
// isolation guard checks ownership against.
type BookingController struct {
	client *upstream.Client
}

func NewBookingController(client *upstream.Client) *BookingController {
	return &BookingController{client: client}
}

// SearchRequest is the flight search form forwarded to the engine.
type SearchRequest struct {
	Origin        string `json:"origin" validate:"required,len=3"`
	Destination   string `json:"destination" validate:"required,len=3"`
	DepartureDate string `json:"departure_date" validate:"required"`
	ReturnDate    string `json:"return_date"`
	Adults        int    `json:"adults" validate:"min=1,max=9"`
	CabinClass    string `json:"cabin_class"`
}

type PriceRequest struct {
	OfferID string `json:"offer_id" validate:"required"`
}

type CreateOrderRequest struct {
	OfferID    string           `json:"offer_id" validate:"required"`
	AgencyID   string           `json:"agency_id"` // checked against the caller's tenant by the guard
	Passengers []map[string]any `json:"passengers" validate:"required,min=1"`
}

func (b *BookingController) Search(c *fiber.Ctx) error {
	var req SearchRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}
	utils.NormalizeDTO(&req)
	if req.Adults == 0 {
		req.Adults = 1
	}

	tenantID, _ := c.Locals("tenantID").(string)
	result := b.client.Search(c.UserContext(), toPayload(req), tenantID)
	return respondUpstream(c, result)
}

func (b *BookingController) PriceQuote(c *fiber.Ctx) error {
	var req PriceRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}

	tenantID, _ := c.Locals("tenantID").(string)
	result := b.client.PriceQuote(c.UserContext(), toPayload(req), tenantID)
	return respondUpstream(c, result)
}

// CreateOrder places the order with the engine and records a local booking
// row so later issue/cancel calls can be ownership-checked.
func (b *BookingController) CreateOrder(c *fiber.Ctx) error {
	var req CreateOrderRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}

	tenantID, _ := c.Locals("tenantID").(string)
	result := b.client.CreateOrder(c.UserContext(), toPayload(req), tenantID)
	if !result.Success {
		return respondUpstream(c, result)
	}

	orderID, _ := result.Data["order_id"].(string)
	passengers, _ := json.Marshal(req.Passengers)
	booking := models.Booking{
		TenantID:   tenantID,
		OrderID:    orderID,
		Status:     models.BookingCreated,
		Passengers: passengers,
	}
	if err := database.DB.Create(&booking).Error; err != nil {
		// The order exists upstream; surface it anyway with the local id missing.
		return c.JSON(fiber.Map{
			"booking_id":     "",
			"correlation_id": result.CorrelationID,
			"order":          result.Data,
		})
	}

	return c.JSON(fiber.Map{
		"booking_id":     booking.Id,
		"correlation_id": result.CorrelationID,
		"order":          result.Data,
	})
}

// IssueTicket is a critical mutation: routes wrap it with the idempotency
// guard and the ownership check.
func (b *BookingController) IssueTicket(c *fiber.Ctx) error {
	booking, err := loadBooking(c)
	if err != nil {
		return err
	}

	tenantID, _ := c.Locals("tenantID").(string)
	payload := map[string]any{"order_id": booking.OrderID}
	result := b.client.IssueTicket(c.UserContext(), payload, tenantID)
	if !result.Success {
		return respondUpstream(c, result)
	}

	database.DB.Model(booking).Update("status", models.BookingTicketed)
	return c.JSON(fiber.Map{
		"booking_id":     booking.Id,
		"status":         models.BookingTicketed,
		"correlation_id": result.CorrelationID,
		"ticket":         result.Data,
	})
}

// CancelOrder is the second critical mutation behind the idempotency guard.
func (b *BookingController) CancelOrder(c *fiber.Ctx) error {
	booking, err := loadBooking(c)
	if err != nil {
		return err
	}

	tenantID, _ := c.Locals("tenantID").(string)
	payload := map[string]any{"order_id": booking.OrderID}
	result := b.client.CancelOrder(c.UserContext(), payload, tenantID)
	if !result.Success {
		return respondUpstream(c, result)
	}

	database.DB.Model(booking).Update("status", models.BookingCancelled)
	return c.JSON(fiber.Map{
		"booking_id":     booking.Id,
		"status":         models.BookingCancelled,
		"correlation_id": result.CorrelationID,
		"cancellation":   result.Data,
	})
}

func (b *BookingController) ListBookings(c *fiber.Ctx) error {
	tenantID, _ := c.Locals("tenantID").(string)

	limit := utils.ParseIntDefault(c.Query("limit"), 50)
	var bookings []models.Booking
	if err := database.DB.Where("tenant_id = ?", tenantID).
		Order("created_at DESC").Limit(limit).Find(&bookings).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not list bookings")
	}
	return c.JSON(bookings)
}

func (b *BookingController) GetBooking(c *fiber.Ctx) error {
	booking, err := loadBooking(c)
	if err != nil {
		return err
	}
	return c.JSON(booking)
}

// Health probes the engine with a single short-timeout attempt.
func (b *BookingController) Health(c *fiber.Ctx) error {
	tenantID, _ := c.Locals("tenantID").(string)
	result := b.client.Health(c.UserContext(), tenantID)
	if !result.Success {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":         "unreachable",
			"correlation_id": result.CorrelationID,
		})
	}
	return c.JSON(fiber.Map{
		"status":         "ok",
		"latency_ms":     result.LatencyMs,
		"correlation_id": result.CorrelationID,
	})
}

// loadBooking fetches the booking from the :id param. The ownership
// middleware has already verified the tenant, so lookup failure here is 404.
func loadBooking(c *fiber.Ctx) (*models.Booking, error) {
	var booking models.Booking
	if err := database.DB.Where("id = ?", c.Params("id")).First(&booking).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "booking not found")
	}
	return &booking, nil
}

// respondUpstream maps a tagged client result onto the HTTP response.
func respondUpstream(c *fiber.Ctx, result upstream.Result) error {
	if result.Success {
		return c.JSON(fiber.Map{
			"data":           result.Data,
			"correlation_id": result.CorrelationID,
			"latency_ms":     result.LatencyMs,
		})
	}
	return c.Status(result.Error.StatusCode).JSON(fiber.Map{
		"error": fiber.Map{
			"code":           result.Error.Code,
			"message":        result.Error.Message,
			"correlation_id": result.Error.CorrelationID,
		},
	})
}

// toPayload converts a DTO into the map shape the client sends.
func toPayload(v any) map[string]any {
	raw, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{}
	}
	return out
}
