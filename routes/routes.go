package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"buchungsportal-backend/background"
	"buchungsportal-backend/config"
	"buchungsportal-backend/controllers"
	"buchungsportal-backend/metrics"
	"buchungsportal-backend/middlewares"
	"buchungsportal-backend/upstream"
)

// Deps carries the constructed gateway components into route wiring.
type Deps struct {
	Cfg         *config.Config
	TenantStore middlewares.TenantGuardStore
	IdemStore   middlewares.IdempotencyGuardStore
	Queue       *background.Queue
	Client      *upstream.Client
}

// Register wires all HTTP routes.
func Register(app *fiber.App, deps Deps) {
	auth := controllers.NewAuthController(deps.Cfg)
	booking := controllers.NewBookingController(deps.Client)
	admin := controllers.NewAdminController()

	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	api := app.Group("/api")

	// Public auth endpoints
	api.Post("/registration", auth.Register)
	api.Post("/login", auth.Login)
	api.Post("/logout", auth.Logout)

	// Protected endpoints (JWT auth, then tenant isolation)
	protected := api.Group("")
	protected.Use(middlewares.IsAuthenticatedHeader([]byte(deps.Cfg.JWTSecret)))
	protected.Use(middlewares.TenantGuard(deps.TenantStore))

	// Engine passthroughs
	protected.Post("/flights/search", booking.Search)
	protected.Post("/flights/price", booking.PriceQuote)
	protected.Get("/upstream/health", booking.Health)

	// Orders
	protected.Post("/orders", booking.CreateOrder)
	protected.Get("/orders", booking.ListBookings)
	protected.Get("/orders/:id", middlewares.RequireBookingOwnership(deps.TenantStore), booking.GetBooking)

	// Critical mutations: ownership check, then the idempotency guard
	idem := middlewares.Idempotency(deps.IdemStore, deps.Queue)
	protected.Post("/orders/:id/issue",
		middlewares.RequireBookingOwnership(deps.TenantStore), idem, booking.IssueTicket)
	protected.Post("/orders/:id/cancel",
		middlewares.RequireBookingOwnership(deps.TenantStore), idem, booking.CancelOrder)

	// Super-admin tenant management
	protected.Get("/admin/tenants", admin.ListTenants)
	protected.Put("/admin/tenants/:id/suspend", admin.SuspendTenant)
	protected.Put("/admin/tenants/:id/activate", admin.ActivateTenant)
}
