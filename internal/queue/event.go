// Package queue defines message payloads exchanged over the message broker
// and the background consumer that records them.
package queue

import (
	"time"

	"github.com/google/uuid"
)

// ActivityQueue is the durable queue ticket activity is published to.
const ActivityQueue = "ticket.activity"

// Activity types.
const (
	TicketPurchased = "ticket.purchased"
	TicketCancelled = "ticket.cancelled"
)

// TicketActivity is published after a ticket is issued or cancelled.  It
// carries enough for an audit trail without querying the database.
type TicketActivity struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	TicketID   uint64 `json:"ticket_id"`
	UserID     uint64 `json:"user_id"`
	EventID    uint64 `json:"event_id,omitempty"`
	OccurredAt string `json:"occurred_at"`
}

// NewTicketActivity stamps an activity with a fresh id and the current time.
func NewTicketActivity(kind string, ticketID, userID, eventID uint64) TicketActivity {
	return TicketActivity{
		ID:         uuid.NewString(),
		Type:       kind,
		TicketID:   ticketID,
		UserID:     userID,
		EventID:    eventID,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
}
