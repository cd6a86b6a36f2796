package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	tickets  *service.TicketService
	comments *service.CommentService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService, comments *service.CommentService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, comments: comments}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	ident, err := identityFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := validateCreateTicket(&req); err != nil {
		return err
	}

	ticket, err := h.tickets.CreateTicket(c.Context(), ident, service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Status:      req.Status,
		Department:  req.Department,
		Attachment:  req.Attachment,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// ListTickets GET /tickets. Admins see everything; employees see only
// tickets they created.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	ident, err := identityFrom(c)
	if err != nil {
		return err
	}
	tickets, err := h.tickets.ListTickets(c.Context(), ident)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTickets(tickets)})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ident, err := identityFrom(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.GetTicket(c.Context(), ident, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// UpdateTicket PUT /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	ident, err := identityFrom(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := validateUpdateTicket(&req); err != nil {
		return err
	}

	ticket, err := h.tickets.UpdateTicket(c.Context(), ident, c.Params("id"), service.TicketUpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Status:      req.Status,
		Department:  req.Department,
		Attachment:  req.Attachment,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// DeleteTicket DELETE /tickets/:id. Orchestrates the comment cascade
// after the engine's delete so no comment outlives its ticket.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	ident, err := identityFrom(c)
	if err != nil {
		return err
	}
	ticketID := c.Params("id")
	if err := h.tickets.DeleteTicket(c.Context(), ident, ticketID); err != nil {
		return err
	}
	if err := h.comments.RemoveTicketThread(c.Context(), ticketID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"deleted": true}})
}

// AssignTicket PUT /tickets/:id/assign.
func (h *TicketsHandler) AssignTicket(c *fiber.Ctx) error {
	ident, err := identityFrom(c)
	if err != nil {
		return err
	}
	var req dto.AssignTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.AssignedTo) == "" {
		return apperrors.NewValidationError("assignedTo is required", nil)
	}
	ticket, err := h.tickets.AssignTicket(c.Context(), ident, c.Params("id"), req.AssignedTo)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// UpdateStatus PUT /tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	ident, err := identityFrom(c)
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if !req.Status.Valid() {
		return apperrors.NewValidationError("status must be one of Open, In Progress, Resolved, or Closed", nil)
	}
	ticket, err := h.tickets.UpdateStatus(c.Context(), ident, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// ListAssigned GET /tickets/assigned.
func (h *TicketsHandler) ListAssigned(c *fiber.Ctx) error {
	ident, err := identityFrom(c)
	if err != nil {
		return err
	}
	tickets, err := h.tickets.ListAssignedTickets(c.Context(), ident)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTickets(tickets)})
}

// Stats GET /tickets/stats. The route is admin-gated; the engine itself
// performs no role check.
func (h *TicketsHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.tickets.TicketStatistics(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}

// ListByDepartment GET /tickets/department/:department. Admin route.
func (h *TicketsHandler) ListByDepartment(c *fiber.Ctx) error {
	department := domain.Department(c.Params("department"))
	if !department.Valid() {
		return apperrors.NewValidationError("unknown department", nil)
	}
	tickets, err := h.tickets.ListTicketsByDepartment(c.Context(), department)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTickets(tickets)})
}

// ListByStatus GET /tickets/status/:status. Admin route.
func (h *TicketsHandler) ListByStatus(c *fiber.Ctx) error {
	status := domain.TicketStatus(c.Params("status"))
	if !status.Valid() {
		return apperrors.NewValidationError("unknown status", nil)
	}
	tickets, err := h.tickets.ListTicketsByStatus(c.Context(), status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTickets(tickets)})
}

func identityFrom(c *fiber.Ctx) (domain.Identity, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return domain.Identity{}, apperrors.NewUnauthorized("authentication required")
	}
	return principal.Identity(), nil
}

func validateCreateTicket(req *dto.CreateTicketRequest) error {
	title := strings.TrimSpace(req.Title)
	if len(title) < 3 || len(title) > 100 {
		return apperrors.NewValidationError("title must be between 3 and 100 characters", nil)
	}
	if len(strings.TrimSpace(req.Description)) < 5 {
		return apperrors.NewValidationError("description must be at least 5 characters", nil)
	}
	if req.Priority != "" && !req.Priority.Valid() {
		return apperrors.NewValidationError("priority must be Low, Medium, or High", nil)
	}
	if req.Status != "" && !req.Status.Valid() {
		return apperrors.NewValidationError("status must be one of Open, In Progress, Resolved, or Closed", nil)
	}
	if !req.Department.Valid() {
		return apperrors.NewValidationError("department must be one of IT, HR, Finance, Operations, Marketing, or Other", nil)
	}
	return nil
}

func validateUpdateTicket(req *dto.UpdateTicketRequest) error {
	if req.Title != nil && len(strings.TrimSpace(*req.Title)) < 3 {
		return apperrors.NewValidationError("title must be at least 3 characters", nil)
	}
	if req.Description != nil && len(strings.TrimSpace(*req.Description)) < 5 {
		return apperrors.NewValidationError("description must be at least 5 characters", nil)
	}
	if req.Priority != nil && !req.Priority.Valid() {
		return apperrors.NewValidationError("priority must be Low, Medium, or High", nil)
	}
	if req.Status != nil && !req.Status.Valid() {
		return apperrors.NewValidationError("status must be one of Open, In Progress, Resolved, or Closed", nil)
	}
	if req.Department != nil && !req.Department.Valid() {
		return apperrors.NewValidationError("unknown department", nil)
	}
	return nil
}
