package domain

import "time"

// Comment is a timestamped note attached to exactly one ticket.
//
// TicketID and UserID are immutable once created. A comment never
// outlives its ticket.
type Comment struct {
	ID        string
	TicketID  string
	UserID    string
	Message   string
	Author    *UserSummary
	CreatedAt time.Time
}
