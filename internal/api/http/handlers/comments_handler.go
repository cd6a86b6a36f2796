package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// CommentsHandler manages the comment thread endpoints nested under
// tickets.
type CommentsHandler struct {
	comments *service.CommentService
}

// NewCommentsHandler constructs handler.
func NewCommentsHandler(comments *service.CommentService) *CommentsHandler {
	return &CommentsHandler{comments: comments}
}

// AddComment POST /tickets/:id/comments.
func (h *CommentsHandler) AddComment(c *fiber.Ctx) error {
	ident, err := identityFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Message) == "" {
		return apperrors.NewValidationError("comment message is required", nil)
	}

	comment, err := h.comments.AddComment(c.Context(), ident, c.Params("id"), req.Message)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FromComment(comment)})
}

// ListComments GET /tickets/:id/comments.
func (h *CommentsHandler) ListComments(c *fiber.Ctx) error {
	ident, err := identityFrom(c)
	if err != nil {
		return err
	}
	comments, err := h.comments.ListComments(c.Context(), ident, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromComments(comments)})
}

// DeleteComment DELETE /tickets/:id/comments/:commentId.
func (h *CommentsHandler) DeleteComment(c *fiber.Ctx) error {
	ident, err := identityFrom(c)
	if err != nil {
		return err
	}
	if err := h.comments.DeleteComment(c.Context(), ident, c.Params("commentId")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"deleted": true}})
}
