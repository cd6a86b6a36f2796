package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// TicketPatch describes a merge-update: only non-nil fields are written.
type TicketPatch struct {
	Title       *string
	Description *string
	Priority    *domain.TicketPriority
	Status      *domain.TicketStatus
	Department  *domain.Department
	AssignedTo  *string
	Attachment  *string
}

// TicketRepository encapsulates ticket persistence. Entities returned by
// read operations carry creator/assignee resolved to user summaries.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListAll(ctx context.Context) ([]domain.Ticket, error)
	ListByCreator(ctx context.Context, userID string) ([]domain.Ticket, error)
	ListByAssignee(ctx context.Context, userID string) ([]domain.Ticket, error)
	ListByDepartment(ctx context.Context, department domain.Department) ([]domain.Ticket, error)
	ListByStatus(ctx context.Context, status domain.TicketStatus) ([]domain.Ticket, error)
	Update(ctx context.Context, id string, patch TicketPatch) (*domain.Ticket, error)
	Delete(ctx context.Context, id string) error
	CountAll(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context, status domain.TicketStatus) (int, error)
	CountByPriority(ctx context.Context, priority domain.TicketPriority) (int, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates a Postgres-backed repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `
        t.id, t.title, t.description, t.priority, t.status, t.department,
        t.created_by, t.assigned_to, t.attachment, t.created_at, t.updated_at,
        c.id, c.name, c.email, c.role, c.department,
        a.id, a.name, a.email, a.role, a.department`

const ticketJoins = `
        FROM tickets t
        JOIN users c ON c.id = t.created_by
        LEFT JOIN users a ON a.id = t.assigned_to`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (title, description, priority, status, department, created_by, assigned_to, attachment)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Priority,
		ticket.Status,
		ticket.Department,
		ticket.CreatedBy,
		ticket.AssignedTo,
		ticket.Attachment,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT` + ticketColumns + ticketJoins + ` WHERE t.id=$1`
	row := r.pool.QueryRow(ctx, query, id)
	return scanTicket(row)
}

func (r *ticketRepository) ListAll(ctx context.Context) ([]domain.Ticket, error) {
	return r.list(ctx, "", nil)
}

func (r *ticketRepository) ListByCreator(ctx context.Context, userID string) ([]domain.Ticket, error) {
	return r.list(ctx, "t.created_by=$1", []any{userID})
}

func (r *ticketRepository) ListByAssignee(ctx context.Context, userID string) ([]domain.Ticket, error) {
	return r.list(ctx, "t.assigned_to=$1", []any{userID})
}

func (r *ticketRepository) ListByDepartment(ctx context.Context, department domain.Department) ([]domain.Ticket, error) {
	return r.list(ctx, "t.department=$1", []any{department})
}

func (r *ticketRepository) ListByStatus(ctx context.Context, status domain.TicketStatus) ([]domain.Ticket, error) {
	return r.list(ctx, "t.status=$1", []any{status})
}

func (r *ticketRepository) list(ctx context.Context, where string, args []any) ([]domain.Ticket, error) {
	query := `SELECT` + ticketColumns + ticketJoins
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY t.created_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) Update(ctx context.Context, id string, patch TicketPatch) (*domain.Ticket, error) {
	sets := []string{}
	args := []any{}

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s=$%d", column, len(args)))
	}

	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.Priority != nil {
		add("priority", *patch.Priority)
	}
	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.Department != nil {
		add("department", *patch.Department)
	}
	if patch.AssignedTo != nil {
		add("assigned_to", *patch.AssignedTo)
	}
	if patch.Attachment != nil {
		add("attachment", *patch.Attachment)
	}
	sets = append(sets, "updated_at=NOW()")

	args = append(args, id)
	query := fmt.Sprintf("UPDATE tickets SET %s WHERE id=$%d", strings.Join(sets, ", "), len(args))

	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if cmd.RowsAffected() == 0 {
		return nil, pgx.ErrNoRows
	}
	return r.GetByID(ctx, id)
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) CountAll(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tickets`).Scan(&count)
	return count, err
}

func (r *ticketRepository) CountByStatus(ctx context.Context, status domain.TicketStatus) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tickets WHERE status=$1`, status).Scan(&count)
	return count, err
}

func (r *ticketRepository) CountByPriority(ctx context.Context, priority domain.TicketPriority) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tickets WHERE priority=$1`, priority).Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner) (*domain.Ticket, error) {
	var (
		ticket  domain.Ticket
		creator domain.UserSummary

		assigneeID    *string
		assigneeName  *string
		assigneeEmail *string
		assigneeRole  *domain.Role
		assigneeDept  *domain.Department
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Priority,
		&ticket.Status,
		&ticket.Department,
		&ticket.CreatedBy,
		&ticket.AssignedTo,
		&ticket.Attachment,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&creator.ID,
		&creator.Name,
		&creator.Email,
		&creator.Role,
		&creator.Department,
		&assigneeID,
		&assigneeName,
		&assigneeEmail,
		&assigneeRole,
		&assigneeDept,
	); err != nil {
		return nil, err
	}
	ticket.Creator = &creator
	if assigneeID != nil {
		ticket.Assignee = &domain.UserSummary{
			ID:         *assigneeID,
			Name:       *assigneeName,
			Email:      *assigneeEmail,
			Role:       *assigneeRole,
			Department: *assigneeDept,
		}
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}
