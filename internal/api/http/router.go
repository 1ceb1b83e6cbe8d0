package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-workflow/internal/api/http/handlers"
	"github.com/spec-kit/complaint-workflow/internal/auth"
	"github.com/spec-kit/complaint-workflow/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Complaints     *handlers.ComplaintsHandler
	Quotes         *handlers.QuotesHandler
	Notifications  *handlers.NotificationsHandler
	Session        *handlers.SessionHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("", cfg.AuthMiddleware.Handle)

	complaints := api.Group("/complaints")
	complaints.Get("/", cfg.Complaints.ListComplaints)
	complaints.Post("/", auth.RequireRole(domain.RoleEmployee), cfg.Complaints.CreateComplaint)
	complaints.Get("/:id", cfg.Complaints.GetComplaint)
	complaints.Get("/:id/conversation", cfg.Complaints.Conversation)
	complaints.Get("/:id/actions", cfg.Complaints.AvailableActions)
	complaints.Post("/:id/actions/:action", cfg.Complaints.Transition)
	complaints.Get("/:id/quote-requests", auth.RequireStaff(), cfg.Complaints.ListQuoteRequests)

	quotes := api.Group("/quote-requests")
	quotes.Get("/:id", cfg.Quotes.GetQuoteRequest)
	quotes.Get("/:id/compare", auth.RequireStaff(), cfg.Quotes.Compare)
	quotes.Post("/:id/vendors", auth.RequireRole(domain.RoleManager, domain.RoleAdmin), cfg.Quotes.AddVendor)
	quotes.Post("/:id/cancel", auth.RequireRole(domain.RoleManager, domain.RoleAssistantManager, domain.RoleAdmin), cfg.Quotes.CancelQuoteRequest)
	quotes.Post("/:id/responses", auth.RequireRole(domain.RoleVendor), cfg.Quotes.SubmitResponse)

	api.Put("/quote-responses/:id/review", auth.RequireRole(domain.RoleManager, domain.RoleAdmin), cfg.Quotes.ReviewResponse)

	notifications := api.Group("/notifications")
	notifications.Get("/", cfg.Notifications.List)
	notifications.Get("/unread-count", cfg.Notifications.UnreadCount)
	notifications.Put("/read-all", cfg.Notifications.MarkAllRead)
	notifications.Put("/:id/read", cfg.Notifications.MarkRead)
	notifications.Delete("/:id", cfg.Notifications.Delete)

	session := api.Group("/session")
	session.Get("/inbox", cfg.Session.Inbox)
	session.Delete("/", cfg.Session.End)
}
