package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/opsdesk/ticketing/internal/api/http/handlers"
	"github.com/opsdesk/ticketing/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Recurring      *handlers.RecurringHandler
	Notifications  *handlers.NotificationsHandler
	FieldDefs      *handlers.FieldDefsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	app.Post("/auth/login", cfg.Auth.Login)

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle)

	tickets := api.Group("/tickets")
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Post("/bulk-update", cfg.Tickets.BulkUpdateTickets)
	tickets.Post("/bulk-delete", auth.RequireAdmin(), cfg.Tickets.BulkDeleteTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", cfg.Tickets.UpdateTicket)
	tickets.Get("/:id/history", cfg.Tickets.GetTicketHistory)
	tickets.Get("/:id/recurring", cfg.Recurring.GetRecurringByTicket)

	recurring := api.Group("/recurring-tickets")
	recurring.Post("", cfg.Recurring.CreateRecurring)
	recurring.Get("", cfg.Recurring.ListRecurring)
	recurring.Get("/:id", cfg.Recurring.GetRecurring)
	recurring.Patch("/:id", cfg.Recurring.UpdateRecurring)
	recurring.Delete("/:id", cfg.Recurring.DeleteRecurring)

	notifications := api.Group("/notifications")
	notifications.Get("", cfg.Notifications.ListNotifications)
	notifications.Get("/unread-count", cfg.Notifications.UnreadCount)
	notifications.Post("/read-all", cfg.Notifications.MarkAllRead)
	notifications.Post("/:id/read", cfg.Notifications.MarkRead)
	notifications.Delete("/:id", cfg.Notifications.DeleteNotification)

	fieldDefs := api.Group("/field-defs")
	fieldDefs.Get("", cfg.FieldDefs.ListFieldDefs)
	fieldDefs.Post("", auth.RequireAdmin(), cfg.FieldDefs.CreateFieldDef)
}
