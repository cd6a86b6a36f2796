package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Message string `json:"message"`
}

// CommentResponse represents one thread entry, author resolved.
type CommentResponse struct {
	ID        string              `json:"id"`
	TicketID  string              `json:"ticket"`
	User      *domain.UserSummary `json:"user"`
	Message   string              `json:"message"`
	CreatedAt time.Time           `json:"createdAt"`
}

// FromComment maps a domain comment to its response shape.
func FromComment(comment *domain.Comment) CommentResponse {
	return CommentResponse{
		ID:        comment.ID,
		TicketID:  comment.TicketID,
		User:      comment.Author,
		Message:   comment.Message,
		CreatedAt: comment.CreatedAt,
	}
}

// FromComments maps a comment slice preserving order.
func FromComments(comments []domain.Comment) []CommentResponse {
	items := make([]CommentResponse, 0, len(comments))
	for i := range comments {
		items = append(items, FromComment(&comments[i]))
	}
	return items
}
