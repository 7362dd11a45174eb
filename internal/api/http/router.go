package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/careflow-service/internal/api/http/handlers"
	"github.com/spec-kit/careflow-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Approvals      *handlers.ApprovalsHandler
	Notifications  *handlers.NotificationsHandler
	Escalations    *handlers.EscalationsHandler
	Webhook        *handlers.WebhookHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/patients/register", cfg.Auth.RegisterPatient)
	authGroup.Post("/staff/register", cfg.Auth.RegisterStaff)
	authGroup.Post("/login", cfg.Auth.Login)

	staff := app.Group("/staff", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	staff.Get("/approvals/status", cfg.Approvals.Status)
	staff.Get("/approvals/stream", cfg.Approvals.Stream)
	staff.Get("/approvals", auth.RequireAdmin(), cfg.Approvals.ListPending)
	staff.Post("/approvals/:id/decision", auth.RequireAdmin(), cfg.Approvals.Decide)

	protected := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	protected.Post("/escalations", cfg.Escalations.Create)
	protected.Get("/notifications", cfg.Notifications.List)
	protected.Post("/notifications/:id/read", cfg.Notifications.MarkRead)

	app.Post("/webhooks/voice", cfg.Webhook.HandleVoice)
}
