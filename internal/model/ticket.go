package model

import "time"

// Ticket is a single admission to an event held by one user.  A user
// holds at most one ticket per event.
type Ticket struct {
	ID        uint64    `json:"id"`         // tickets.id
	UserID    uint64    `json:"user_id"`    // tickets.user_id
	EventID   uint64    `json:"event_id"`   // tickets.event_id
	CreatedAt time.Time `json:"created_at"` // tickets.created_at
}

// UserTicket is a ticket as shown to its holder: the ticket plus the
// title, date and state of the event it admits to.
type UserTicket struct {
	Ticket
	EventTitle  string    `json:"event_title"`
	EventDate   time.Time `json:"event_date"`
	EventClosed bool      `json:"event_closed"`
}

// Participant is one row of an event roster.
type Participant struct {
	UserID    uint64    `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	TicketID  uint64    `json:"ticket_id"`
	CreatedAt time.Time `json:"created_at"`
}
