package model

import "time"

// Event is a scheduled happening with a fixed number of tickets.
// Closing is one-way: once IsClosed is set no further tickets can be
// bought, but tickets already issued stay valid.
//
// Fields:
//  ID          – primary key identifier.
//  Title       – short title, not unique.
//  Description – free text, may be empty.
//  Date        – scheduled date and time (UTC).
//  Capacity    – maximum number of tickets, at least 1.
//  CreatedBy   – organizer who created the event.
//  IsClosed    – whether ticket sales are closed.
//  CreatedAt   – creation timestamp.
type Event struct {
	ID          uint64    `json:"id"`          // events.id
	Title       string    `json:"title"`       // events.title
	Description string    `json:"description"` // events.description
	Date        time.Time `json:"date"`        // events.date
	Capacity    uint32    `json:"capacity"`    // events.capacity
	CreatedBy   uint64    `json:"created_by"`  // events.created_by
	IsClosed    bool      `json:"is_closed"`   // events.is_closed
	CreatedAt   time.Time `json:"created_at"`  // events.created_at
}

// EventListing is an event joined with its organizer's name and the
// number of tickets sold so far.  It backs the event lists.
type EventListing struct {
	Event
	OrganizerName string `json:"organizer_name"`
	Booked        int    `json:"booked"`
}
