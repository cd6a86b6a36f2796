package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// CommentService enforces who may post, read, and delete ticket comments.
//
// Add and list rights are scoped to the ticket's stakeholders (creator or
// admin); delete rights are scoped to the comment's author or admin. The
// asymmetry is intentional: a ticket creator cannot delete an admin's
// comment on their own ticket.
type CommentService struct {
	comments   repository.CommentRepository
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
}

// CommentDependencies bundles collaborators for the comment service.
type CommentDependencies struct {
	CommentRepo repository.CommentRepository
	TicketRepo  repository.TicketRepository
	Dispatcher  events.Dispatcher
}

// NewCommentService constructs the service.
func NewCommentService(deps CommentDependencies) *CommentService {
	return &CommentService{
		comments:   deps.CommentRepo,
		tickets:    deps.TicketRepo,
		dispatcher: deps.Dispatcher,
	}
}

// AddComment posts a comment on a ticket. The ticket must exist and the
// caller must be its creator or an admin.
func (s *CommentService) AddComment(ctx context.Context, ident domain.Identity, ticketID, message string) (*domain.Comment, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperrors.NewValidationError("comment message is required", nil)
	}

	if err := s.checkTicketAccess(ctx, ident, ticketID, "not authorized to comment on this ticket"); err != nil {
		return nil, err
	}

	comment := &domain.Comment{
		TicketID: ticketID,
		UserID:   ident.UserID,
		Message:  message,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publish(ctx, events.Event{
		Type:     events.EventCommentAdded,
		TicketID: ticketID,
		Actor:    actorFor(ident),
		Payload: events.CommentAddedPayload{
			CommentID:      comment.ID,
			AuthorID:       comment.UserID,
			MessagePreview: preview(comment.Message, 120),
		},
	})
	return comment, nil
}

// ListComments returns a ticket's comments oldest first, authors resolved.
// Same authorization predicate as AddComment.
func (s *CommentService) ListComments(ctx context.Context, ident domain.Identity, ticketID string) ([]domain.Comment, error) {
	if err := s.checkTicketAccess(ctx, ident, ticketID, "not authorized to view comments for this ticket"); err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByTicket(ctx, ticketID)
	return comments, apperrors.MapError(err)
}

// DeleteComment removes a single comment. Allowed for the comment's own
// author or an admin, regardless of who created the ticket.
func (s *CommentService) DeleteComment(ctx context.Context, ident domain.Identity, commentID string) error {
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("comment", map[string]any{"comment_id": commentID})
		}
		return apperrors.MapError(err)
	}
	if !ident.IsAdmin() && comment.UserID != ident.UserID {
		return apperrors.NewForbidden("not authorized to delete this comment")
	}
	if err := s.comments.Delete(ctx, commentID); err != nil {
		return apperrors.MapError(err)
	}
	s.publish(ctx, events.Event{
		Type:     events.EventCommentDeleted,
		TicketID: comment.TicketID,
		Actor:    actorFor(ident),
		Payload:  events.CommentDeletedPayload{CommentID: commentID},
	})
	return nil
}

// RemoveTicketThread deletes every comment on a ticket. Invoked by the
// boundary after a ticket deletion so no comment outlives its ticket.
func (s *CommentService) RemoveTicketThread(ctx context.Context, ticketID string) error {
	return apperrors.MapError(s.comments.DeleteByTicket(ctx, ticketID))
}

func (s *CommentService) checkTicketAccess(ctx context.Context, ident domain.Identity, ticketID, denied string) error {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return apperrors.MapError(err)
	}
	if !ident.IsAdmin() && ticket.CreatedBy != ident.UserID {
		return apperrors.NewForbidden(denied)
	}
	return nil
}

func (s *CommentService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	publishWithDefaults(ctx, s.dispatcher, event)
}

func preview(message string, max int) string {
	message = strings.TrimSpace(message)
	if len(message) <= max {
		return message
	}
	if max <= 3 {
		return message[:max]
	}
	return message[:max-3] + "..."
}
