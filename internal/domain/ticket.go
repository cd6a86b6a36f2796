package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "Open"
	TicketStatusInProgress TicketStatus = "In Progress"
	TicketStatusResolved   TicketStatus = "Resolved"
	TicketStatusClosed     TicketStatus = "Closed"
)

// Valid reports whether the status is a known value.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "Low"
	TicketPriorityMedium TicketPriority = "Medium"
	TicketPriorityHigh   TicketPriority = "High"
)

// Valid reports whether the priority is a known value.
func (p TicketPriority) Valid() bool {
	return p == TicketPriorityLow || p == TicketPriorityMedium || p == TicketPriorityHigh
}

// Ticket is the aggregate for support requests.
//
// CreatedBy is set once at creation and never changes. Status and
// AssignedTo are mutated only through the ticket service's operations.
type Ticket struct {
	ID          string
	Title       string
	Description string
	Priority    TicketPriority
	Status      TicketStatus
	Department  Department
	CreatedBy   string
	AssignedTo  *string
	Attachment  *string
	Creator     *UserSummary
	Assignee    *UserSummary
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TicketStats is the fixed-shape aggregate returned by the statistics
// operation.
type TicketStats struct {
	Total      int            `json:"total"`
	ByStatus   StatusCounts   `json:"byStatus"`
	ByPriority PriorityCounts `json:"byPriority"`
}

// StatusCounts breaks ticket totals down per status.
type StatusCounts struct {
	Open       int `json:"open"`
	InProgress int `json:"inProgress"`
	Resolved   int `json:"resolved"`
	Closed     int `json:"closed"`
}

// PriorityCounts breaks ticket totals down per priority.
type PriorityCounts struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}
