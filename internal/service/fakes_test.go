package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// In-memory repository fakes. They mirror the Postgres implementations'
// contract: pgx.ErrNoRows for missing rows, newest-first ticket listings,
// oldest-first comment listings, and user references resolved to
// summaries on every read.

type fakeStore struct {
	mu       sync.Mutex
	seq      int
	now      time.Time
	users    map[string]*domain.User
	tickets  map[string]*domain.Ticket
	comments map[string]*domain.Comment
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		now:      time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		users:    make(map[string]*domain.User),
		tickets:  make(map[string]*domain.Ticket),
		comments: make(map[string]*domain.Comment),
	}
}

func (s *fakeStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

// tick returns strictly increasing timestamps so ordering is observable.
func (s *fakeStore) tick() time.Time {
	s.now = s.now.Add(time.Second)
	return s.now
}

func (s *fakeStore) addUser(id, name string, role domain.Role, dept domain.Department) *domain.User {
	user := &domain.User{
		ID:         id,
		Name:       name,
		Email:      name + "@example.com",
		Role:       role,
		Department: dept,
	}
	s.users[id] = user
	return user
}

func (s *fakeStore) summary(userID string) *domain.UserSummary {
	if user, ok := s.users[userID]; ok {
		return user.Summary()
	}
	return nil
}

func (s *fakeStore) resolveTicket(t *domain.Ticket) *domain.Ticket {
	clone := *t
	clone.Creator = s.summary(t.CreatedBy)
	if t.AssignedTo != nil {
		clone.Assignee = s.summary(*t.AssignedTo)
	} else {
		clone.Assignee = nil
	}
	return &clone
}

type fakeTicketRepo struct {
	store *fakeStore
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket.ID = s.nextID("tkt")
	ticket.CreatedAt = s.tick()
	ticket.UpdatedAt = ticket.CreatedAt
	stored := *ticket
	s.tickets[ticket.ID] = &stored
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket, ok := s.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return s.resolveTicket(ticket), nil
}

func (r *fakeTicketRepo) ListAll(_ context.Context) ([]domain.Ticket, error) {
	return r.listWhere(func(*domain.Ticket) bool { return true })
}

func (r *fakeTicketRepo) ListByCreator(_ context.Context, userID string) ([]domain.Ticket, error) {
	return r.listWhere(func(t *domain.Ticket) bool { return t.CreatedBy == userID })
}

func (r *fakeTicketRepo) ListByAssignee(_ context.Context, userID string) ([]domain.Ticket, error) {
	return r.listWhere(func(t *domain.Ticket) bool {
		return t.AssignedTo != nil && *t.AssignedTo == userID
	})
}

func (r *fakeTicketRepo) ListByDepartment(_ context.Context, department domain.Department) ([]domain.Ticket, error) {
	return r.listWhere(func(t *domain.Ticket) bool { return t.Department == department })
}

func (r *fakeTicketRepo) ListByStatus(_ context.Context, status domain.TicketStatus) ([]domain.Ticket, error) {
	return r.listWhere(func(t *domain.Ticket) bool { return t.Status == status })
}

func (r *fakeTicketRepo) listWhere(keep func(*domain.Ticket) bool) ([]domain.Ticket, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range s.tickets {
		if keep(ticket) {
			result = append(result, *s.resolveTicket(ticket))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *fakeTicketRepo) Update(_ context.Context, id string, patch repository.TicketPatch) (*domain.Ticket, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket, ok := s.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if patch.Title != nil {
		ticket.Title = *patch.Title
	}
	if patch.Description != nil {
		ticket.Description = *patch.Description
	}
	if patch.Priority != nil {
		ticket.Priority = *patch.Priority
	}
	if patch.Status != nil {
		ticket.Status = *patch.Status
	}
	if patch.Department != nil {
		ticket.Department = *patch.Department
	}
	if patch.AssignedTo != nil {
		assignee := *patch.AssignedTo
		ticket.AssignedTo = &assignee
	}
	if patch.Attachment != nil {
		attachment := *patch.Attachment
		ticket.Attachment = &attachment
	}
	ticket.UpdatedAt = s.tick()
	return s.resolveTicket(ticket), nil
}

func (r *fakeTicketRepo) Delete(_ context.Context, id string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(s.tickets, id)
	return nil
}

func (r *fakeTicketRepo) CountAll(_ context.Context) (int, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tickets), nil
}

func (r *fakeTicketRepo) CountByStatus(_ context.Context, status domain.TicketStatus) (int, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, ticket := range s.tickets {
		if ticket.Status == status {
			count++
		}
	}
	return count, nil
}

func (r *fakeTicketRepo) CountByPriority(_ context.Context, priority domain.TicketPriority) (int, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, ticket := range s.tickets {
		if ticket.Priority == priority {
			count++
		}
	}
	return count, nil
}

type fakeCommentRepo struct {
	store *fakeStore
}

func (r *fakeCommentRepo) Create(_ context.Context, comment *domain.Comment) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	comment.ID = s.nextID("cmt")
	comment.CreatedAt = s.tick()
	comment.Author = s.summary(comment.UserID)
	stored := *comment
	s.comments[comment.ID] = &stored
	return nil
}

func (r *fakeCommentRepo) GetByID(_ context.Context, id string) (*domain.Comment, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	comment, ok := s.comments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *comment
	clone.Author = s.summary(comment.UserID)
	return &clone, nil
}

func (r *fakeCommentRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Comment, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []domain.Comment
	for _, comment := range s.comments {
		if comment.TicketID == ticketID {
			clone := *comment
			clone.Author = s.summary(comment.UserID)
			result = append(result, clone)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *fakeCommentRepo) Delete(_ context.Context, id string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.comments[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(s.comments, id)
	return nil
}

func (r *fakeCommentRepo) DeleteByTicket(_ context.Context, ticketID string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, comment := range s.comments {
		if comment.TicketID == ticketID {
			delete(s.comments, id)
		}
	}
	return nil
}

func (r *fakeCommentRepo) CountByTicket(_ context.Context, ticketID string) (int, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, comment := range s.comments {
		if comment.TicketID == ticketID {
			count++
		}
	}
	return count, nil
}

type fakeUserRepo struct {
	store *fakeStore
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	user.ID = s.nextID("usr")
	user.CreatedAt = s.tick()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	s.users[user.ID] = &stored
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	user.UpdatedAt = s.tick()
	stored := *user
	s.users[user.ID] = &stored
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *user
	return &clone, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) ListAll(_ context.Context) ([]domain.User, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []domain.User
	for _, user := range s.users {
		result = append(result, *user)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

type fakeStatsCache struct {
	mu          sync.Mutex
	stats       *domain.TicketStats
	sets        int
	hits        int
	invalidates int
}

func (c *fakeStatsCache) Get(_ context.Context) (*domain.TicketStats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stats != nil {
		c.hits++
	}
	return c.stats, nil
}

func (c *fakeStatsCache) Set(_ context.Context, stats *domain.TicketStats) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.stats = stats
	return nil
}

func (c *fakeStatsCache) Invalidate(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidates++
	c.stats = nil
	return nil
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) byType(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var matched []events.Event
	for _, event := range d.events {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}
