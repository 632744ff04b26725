package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/university-events/internal/model"
)

// EventRepo provides persistence for events.  Listing queries join the
// organizer's name and a live ticket count so callers get everything a
// dashboard row needs in one round trip.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// Create inserts the event and fills in its generated ID and created_at.
// IsClosed is always stored as false.
func (r *EventRepo) Create(ctx context.Context, ev *model.Event) error {
	const q = `INSERT INTO events (title, description, date, capacity, created_by, is_closed) VALUES (?, ?, ?, ?, ?, 0)`
	res, err := r.db.ExecContext(ctx, q, ev.Title, ev.Description, ev.Date.UTC(), ev.Capacity, ev.CreatedBy)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert event id: %w", err)
	}
	ev.ID = uint64(id)
	ev.IsClosed = false
	// Query back created_at so the caller sees the stored default
	if err := r.db.QueryRowContext(ctx, `SELECT created_at FROM events WHERE id = ?`, ev.ID).Scan(&ev.CreatedAt); err != nil {
		return fmt.Errorf("reload event: %w", err)
	}
	return nil
}

// GetByID returns a single event or ErrNotFound.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (model.Event, error) {
	const q = `SELECT id, title, description, date, capacity, created_by, is_closed, created_at
               FROM events WHERE id = ? LIMIT 1`
	var ev model.Event
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&ev.ID, &ev.Title, &ev.Description, &ev.Date, &ev.Capacity, &ev.CreatedBy, &ev.IsClosed, &ev.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Event{}, ErrNotFound
	}
	if err != nil {
		return model.Event{}, fmt.Errorf("get event: %w", err)
	}
	return ev, nil
}

// List returns events ordered by date ascending with organizer name and
// booked count.  Closed events are skipped unless includeClosed is set.
// An empty result is an empty, non-nil slice.
func (r *EventRepo) List(ctx context.Context, includeClosed bool) ([]model.EventListing, error) {
	q := `SELECT e.id, e.title, e.description, e.date, e.capacity, e.created_by, e.is_closed, e.created_at,
                 u.name,
                 (SELECT COUNT(*) FROM tickets t WHERE t.event_id = e.id)
          FROM events e
          JOIN users u ON u.id = e.created_by`
	if !includeClosed {
		q += ` WHERE e.is_closed = 0`
	}
	q += ` ORDER BY e.date ASC, e.id ASC`

	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()
	out := make([]model.EventListing, 0)
	for rows.Next() {
		var l model.EventListing
		if err := rows.Scan(
			&l.ID, &l.Title, &l.Description, &l.Date, &l.Capacity, &l.CreatedBy, &l.IsClosed, &l.CreatedAt,
			&l.OrganizerName, &l.Booked,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return out, nil
}

// Close marks the event closed.  It reports whether a row changed, so an
// already closed or missing event yields false.
func (r *EventRepo) Close(ctx context.Context, id uint64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE events SET is_closed = 1 WHERE id = ? AND is_closed = 0`, id)
	if err != nil {
		return false, fmt.Errorf("close event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("close event rows: %w", err)
	}
	return n > 0, nil
}
