package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Priority    domain.TicketPriority `json:"priority"`
	Status      domain.TicketStatus   `json:"status"`
	Department  domain.Department     `json:"department"`
	Attachment  *string               `json:"attachment"`
}

// UpdateTicketRequest is the partial payload for admin edits. Absent
// fields are left untouched.
type UpdateTicketRequest struct {
	Title       *string                `json:"title"`
	Description *string                `json:"description"`
	Priority    *domain.TicketPriority `json:"priority"`
	Status      *domain.TicketStatus   `json:"status"`
	Department  *domain.Department     `json:"department"`
	Attachment  *string                `json:"attachment"`
}

// AssignTicketRequest payload.
type AssignTicketRequest struct {
	AssignedTo string `json:"assignedTo"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// TicketResponse is the full ticket representation with user references
// resolved to summaries.
type TicketResponse struct {
	ID          string                `json:"id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Priority    domain.TicketPriority `json:"priority"`
	Status      domain.TicketStatus   `json:"status"`
	Department  domain.Department     `json:"department"`
	CreatedBy   *domain.UserSummary   `json:"createdBy"`
	AssignedTo  *domain.UserSummary   `json:"assignedTo"`
	Attachment  *string               `json:"attachment"`
	CreatedAt   time.Time             `json:"createdAt"`
	UpdatedAt   time.Time             `json:"updatedAt"`
}

// FromTicket maps a domain ticket to its response shape.
func FromTicket(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:          ticket.ID,
		Title:       ticket.Title,
		Description: ticket.Description,
		Priority:    ticket.Priority,
		Status:      ticket.Status,
		Department:  ticket.Department,
		CreatedBy:   ticket.Creator,
		AssignedTo:  ticket.Assignee,
		Attachment:  ticket.Attachment,
		CreatedAt:   ticket.CreatedAt,
		UpdatedAt:   ticket.UpdatedAt,
	}
}

// FromTickets maps a ticket slice preserving order.
func FromTickets(tickets []domain.Ticket) []TicketResponse {
	items := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, FromTicket(&tickets[i]))
	}
	return items
}
