package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Comments       *handlers.CommentsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated(), cfg.Users.Me)
	authGroup.Get("/users", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleAdmin), cfg.Users.ListUsers)

	adminOnly := auth.RequireRole(domain.RoleAdmin)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	// fixed paths before the :id wildcard
	tickets.Get("/stats", adminOnly, cfg.Tickets.Stats)
	tickets.Get("/assigned", cfg.Tickets.ListAssigned)
	tickets.Get("/department/:department", adminOnly, cfg.Tickets.ListByDepartment)
	tickets.Get("/status/:status", adminOnly, cfg.Tickets.ListByStatus)

	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Put("/:id", adminOnly, cfg.Tickets.UpdateTicket)
	tickets.Delete("/:id", adminOnly, cfg.Tickets.DeleteTicket)
	tickets.Put("/:id/assign", adminOnly, cfg.Tickets.AssignTicket)
	tickets.Put("/:id/status", adminOnly, cfg.Tickets.UpdateStatus)

	tickets.Get("/:id/comments", cfg.Comments.ListComments)
	tickets.Post("/:id/comments", cfg.Comments.AddComment)
	tickets.Delete("/:id/comments/:commentId", cfg.Comments.DeleteComment)
}
