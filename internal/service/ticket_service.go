package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// StatsCache caches the statistics aggregate between reads. A nil-safe
// implementation backed by Redis lives in the persistence package.
type StatsCache interface {
	Get(ctx context.Context) (*domain.TicketStats, error)
	Set(ctx context.Context, stats *domain.TicketStats) error
	Invalidate(ctx context.Context) error
}

// TicketService drives ticket authorization and lifecycle transitions.
// It is stateless between calls; all state lives in the repository.
type TicketService struct {
	tickets    repository.TicketRepository
	stats      StatsCache
	dispatcher events.Dispatcher
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	StatsCache StatsCache
	Dispatcher events.Dispatcher
}

// TicketCreateInput describes the ticket creation payload. Status and
// Priority are optional overrides; zero values take the defaults.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    domain.TicketPriority
	Status      domain.TicketStatus
	Department  domain.Department
	Attachment  *string
}

// TicketUpdateInput is the partial payload for the admin merge-update.
// Enum re-validation is the boundary's responsibility, not this engine's.
type TicketUpdateInput struct {
	Title       *string
	Description *string
	Priority    *domain.TicketPriority
	Status      *domain.TicketStatus
	Department  *domain.Department
	Attachment  *string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		stats:      deps.StatsCache,
		dispatcher: deps.Dispatcher,
	}
}

// CreateTicket creates a ticket owned by the caller. Any authenticated
// role may create.
func (s *TicketService) CreateTicket(ctx context.Context, ident domain.Identity, input TicketCreateInput) (*domain.Ticket, error) {
	ticket := &domain.Ticket{
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Priority:    input.Priority,
		Status:      input.Status,
		Department:  input.Department,
		CreatedBy:   ident.UserID,
		Attachment:  input.Attachment,
	}
	if ticket.Priority == "" {
		ticket.Priority = domain.TicketPriorityMedium
	}
	if ticket.Status == "" {
		ticket.Status = domain.TicketStatusOpen
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	created, err := s.tickets.GetByID(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.invalidateStats(ctx)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: created.ID,
		Actor:    actorFor(ident),
		Payload: events.TicketCreatedPayload{
			Department: created.Department,
			Priority:   created.Priority,
			Title:      created.Title,
		},
	})
	return created, nil
}

// ListTickets returns every ticket for admins and only the caller's own
// tickets otherwise, newest first. The partition is not overridable.
func (s *TicketService) ListTickets(ctx context.Context, ident domain.Identity) ([]domain.Ticket, error) {
	if ident.IsAdmin() {
		tickets, err := s.tickets.ListAll(ctx)
		return tickets, apperrors.MapError(err)
	}
	tickets, err := s.tickets.ListByCreator(ctx, ident.UserID)
	return tickets, apperrors.MapError(err)
}

// GetTicket fetches a single ticket enforcing creator-scoped visibility.
func (s *TicketService) GetTicket(ctx context.Context, ident domain.Identity, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.fetchTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !ident.IsAdmin() && ticket.CreatedBy != ident.UserID {
		return nil, apperrors.NewForbidden("not authorized to access this ticket")
	}
	return ticket, nil
}

// UpdateTicket applies a merge-update to arbitrary fields. Admin only.
func (s *TicketService) UpdateTicket(ctx context.Context, ident domain.Identity, ticketID string, input TicketUpdateInput) (*domain.Ticket, error) {
	if !ident.IsAdmin() {
		return nil, apperrors.NewForbidden("only admins can update tickets")
	}
	if _, err := s.fetchTicket(ctx, ticketID); err != nil {
		return nil, err
	}

	updated, err := s.tickets.Update(ctx, ticketID, repository.TicketPatch{
		Title:       input.Title,
		Description: input.Description,
		Priority:    input.Priority,
		Status:      input.Status,
		Department:  input.Department,
		Attachment:  input.Attachment,
	})
	if err != nil {
		return nil, mapRepoErr(err, ticketID)
	}
	s.invalidateStats(ctx)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketUpdated,
		TicketID: updated.ID,
		Actor:    actorFor(ident),
	})
	return updated, nil
}

// DeleteTicket removes a ticket. Admin only. Comment cascade is owned by
// the repository layer and the boundary orchestration, not this engine.
func (s *TicketService) DeleteTicket(ctx context.Context, ident domain.Identity, ticketID string) error {
	if !ident.IsAdmin() {
		return apperrors.NewForbidden("only admins can delete tickets")
	}
	if _, err := s.fetchTicket(ctx, ticketID); err != nil {
		return err
	}
	if err := s.tickets.Delete(ctx, ticketID); err != nil {
		return mapRepoErr(err, ticketID)
	}
	s.invalidateStats(ctx)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: ticketID,
		Actor:    actorFor(ident),
	})
	return nil
}

// AssignTicket sets the assignee and forces the ticket into In Progress
// in the same write: assignment always implies work has started. Admin
// only. The target user's existence is not validated here.
func (s *TicketService) AssignTicket(ctx context.Context, ident domain.Identity, ticketID, assigneeID string) (*domain.Ticket, error) {
	if !ident.IsAdmin() {
		return nil, apperrors.NewForbidden("only admins can assign tickets")
	}
	inProgress := domain.TicketStatusInProgress
	updated, err := s.tickets.Update(ctx, ticketID, repository.TicketPatch{
		AssignedTo: &assigneeID,
		Status:     &inProgress,
	})
	if err != nil {
		return nil, mapRepoErr(err, ticketID)
	}
	s.invalidateStats(ctx)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: updated.ID,
		Actor:    actorFor(ident),
		Payload:  events.TicketAssignedPayload{AssigneeID: assigneeID},
	})
	return updated, nil
}

// UpdateStatus sets the status only, leaving the assignee untouched.
// Admin only. Repeated writes of the same status are not an error.
func (s *TicketService) UpdateStatus(ctx context.Context, ident domain.Identity, ticketID string, status domain.TicketStatus) (*domain.Ticket, error) {
	if !ident.IsAdmin() {
		return nil, apperrors.NewForbidden("only admins can update ticket status")
	}
	ticket, err := s.fetchTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	oldStatus := ticket.Status

	updated, err := s.tickets.Update(ctx, ticketID, repository.TicketPatch{Status: &status})
	if err != nil {
		return nil, mapRepoErr(err, ticketID)
	}
	s.invalidateStats(ctx)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: updated.ID,
		Actor:    actorFor(ident),
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: status,
		},
	})
	return updated, nil
}

// ListAssignedTickets returns tickets assigned to the caller, any role.
// This is the one visibility exception to the creator-only rule.
func (s *TicketService) ListAssignedTickets(ctx context.Context, ident domain.Identity) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListByAssignee(ctx, ident.UserID)
	return tickets, apperrors.MapError(err)
}

// ListTicketsByDepartment returns tickets for one department. Role gating
// happens at the boundary route.
func (s *TicketService) ListTicketsByDepartment(ctx context.Context, department domain.Department) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListByDepartment(ctx, department)
	return tickets, apperrors.MapError(err)
}

// ListTicketsByStatus returns tickets in one status. Role gating happens
// at the boundary route.
func (s *TicketService) ListTicketsByStatus(ctx context.Context, status domain.TicketStatus) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListByStatus(ctx, status)
	return tickets, apperrors.MapError(err)
}

// TicketStatistics computes the aggregate counts. The admin gate lives at
// the boundary; this engine assumes the caller already authorized.
func (s *TicketService) TicketStatistics(ctx context.Context) (*domain.TicketStats, error) {
	if s.stats != nil {
		if cached, err := s.stats.Get(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}

	total, err := s.tickets.CountAll(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	stats := &domain.TicketStats{Total: total}

	statusCounts := []struct {
		status domain.TicketStatus
		dest   *int
	}{
		{domain.TicketStatusOpen, &stats.ByStatus.Open},
		{domain.TicketStatusInProgress, &stats.ByStatus.InProgress},
		{domain.TicketStatusResolved, &stats.ByStatus.Resolved},
		{domain.TicketStatusClosed, &stats.ByStatus.Closed},
	}
	for _, entry := range statusCounts {
		count, err := s.tickets.CountByStatus(ctx, entry.status)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		*entry.dest = count
	}

	priorityCounts := []struct {
		priority domain.TicketPriority
		dest     *int
	}{
		{domain.TicketPriorityHigh, &stats.ByPriority.High},
		{domain.TicketPriorityMedium, &stats.ByPriority.Medium},
		{domain.TicketPriorityLow, &stats.ByPriority.Low},
	}
	for _, entry := range priorityCounts {
		count, err := s.tickets.CountByPriority(ctx, entry.priority)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		*entry.dest = count
	}

	if s.stats != nil {
		_ = s.stats.Set(ctx, stats)
	}
	return stats, nil
}

func (s *TicketService) fetchTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, mapRepoErr(err, ticketID)
	}
	return ticket, nil
}

func (s *TicketService) invalidateStats(ctx context.Context) {
	if s.stats != nil {
		_ = s.stats.Invalidate(ctx)
	}
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	publishWithDefaults(ctx, s.dispatcher, event)
}

func publishWithDefaults(ctx context.Context, dispatcher events.Dispatcher, event events.Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = dispatcher.Publish(ctx, event)
}

func mapRepoErr(err error, ticketID string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	return apperrors.MapError(err)
}

func actorFor(ident domain.Identity) events.Actor {
	return events.Actor{UserID: ident.UserID, Role: ident.Role}
}
