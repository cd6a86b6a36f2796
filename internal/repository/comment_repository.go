package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// CommentRepository manages ticket comment persistence. Read operations
// resolve the author to a user summary.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	GetByID(ctx context.Context, id string) (*domain.Comment, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Comment, error)
	Delete(ctx context.Context, id string) error
	DeleteByTicket(ctx context.Context, ticketID string) error
	CountByTicket(ctx context.Context, ticketID string) (int, error)
}

type commentRepository struct {
	pool *pgxpool.Pool
}

// NewCommentRepository builds a Postgres-backed repository.
func NewCommentRepository(pool *pgxpool.Pool) CommentRepository {
	return &commentRepository{pool: pool}
}

const commentColumns = `
        cm.id, cm.ticket_id, cm.user_id, cm.message, cm.created_at,
        u.id, u.name, u.email, u.role, u.department`

const commentJoins = `
        FROM comments cm
        JOIN users u ON u.id = cm.user_id`

func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	const query = `
        INSERT INTO comments (ticket_id, user_id, message)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	if err := r.pool.QueryRow(ctx, query,
		comment.TicketID,
		comment.UserID,
		comment.Message,
	).Scan(&comment.ID, &comment.CreatedAt); err != nil {
		return err
	}

	var author domain.UserSummary
	const authorQuery = `SELECT id, name, email, role, department FROM users WHERE id=$1`
	if err := r.pool.QueryRow(ctx, authorQuery, comment.UserID).Scan(
		&author.ID,
		&author.Name,
		&author.Email,
		&author.Role,
		&author.Department,
	); err != nil {
		return err
	}
	comment.Author = &author
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id string) (*domain.Comment, error) {
	query := `SELECT` + commentColumns + commentJoins + ` WHERE cm.id=$1`
	row := r.pool.QueryRow(ctx, query, id)
	return scanComment(row)
}

func (r *commentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Comment, error) {
	query := `SELECT` + commentColumns + commentJoins + ` WHERE cm.ticket_id=$1 ORDER BY cm.created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Comment
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *comment)
	}
	return result, rows.Err()
}

func (r *commentRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM comments WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *commentRepository) DeleteByTicket(ctx context.Context, ticketID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM comments WHERE ticket_id=$1`, ticketID)
	return err
}

func (r *commentRepository) CountByTicket(ctx context.Context, ticketID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM comments WHERE ticket_id=$1`, ticketID).Scan(&count)
	return count, err
}

func scanComment(row rowScanner) (*domain.Comment, error) {
	var (
		comment domain.Comment
		author  domain.UserSummary
	)
	if err := row.Scan(
		&comment.ID,
		&comment.TicketID,
		&comment.UserID,
		&comment.Message,
		&comment.CreatedAt,
		&author.ID,
		&author.Name,
		&author.Email,
		&author.Role,
		&author.Department,
	); err != nil {
		return nil, err
	}
	comment.Author = &author
	return &comment, nil
}
