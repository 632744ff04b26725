package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/university-events/internal/model"
)

// TicketRepo provides persistence for tickets.  Purchase is the only
// write that has to respect capacity, so it runs as a single transaction
// holding the event row lock.  Cancel locks the ticket row it deletes;
// reads are plain statements.
type TicketRepo struct {
	db *sql.DB
}

// NewTicketRepo returns a new TicketRepo bound to the given database.
func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

// Purchase issues a ticket for (userID, eventID) inside one transaction.
//
// SELECT ... FOR UPDATE takes an exclusive lock on the event row, so a
// concurrent purchase for the same event blocks until this transaction
// commits or rolls back.  The capacity count and the duplicate check
// therefore see every ticket committed before us and nothing can slip in
// between the check and the insert.  The (user_id, event_id) unique key
// is the last line: if it fires the purchase reports ErrDuplicateTicket.
//
// Failures are reported in this order: ErrEventUnavailable (missing or
// closed), ErrSoldOut, ErrDuplicateTicket.
func (r *TicketRepo) Purchase(ctx context.Context, userID, eventID uint64) (model.Ticket, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Ticket{}, fmt.Errorf("begin purchase: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var (
		capacity uint32
		closed   bool
	)
	err = tx.QueryRowContext(ctx,
		`SELECT capacity, is_closed FROM events WHERE id = ? FOR UPDATE`, eventID,
	).Scan(&capacity, &closed)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Ticket{}, ErrEventUnavailable
	}
	if err != nil {
		return model.Ticket{}, fmt.Errorf("lock event: %w", err)
	}
	if closed {
		return model.Ticket{}, ErrEventUnavailable
	}

	var sold uint32
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tickets WHERE event_id = ?`, eventID,
	).Scan(&sold); err != nil {
		return model.Ticket{}, fmt.Errorf("count tickets: %w", err)
	}
	if sold >= capacity {
		return model.Ticket{}, ErrSoldOut
	}

	var existing uint64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM tickets WHERE user_id = ? AND event_id = ? LIMIT 1`, userID, eventID,
	).Scan(&existing)
	switch {
	case err == nil:
		return model.Ticket{}, ErrDuplicateTicket
	case !errors.Is(err, sql.ErrNoRows):
		return model.Ticket{}, fmt.Errorf("check duplicate: %w", err)
	}

	res, err := tx.ExecContext(ctx, `INSERT INTO tickets (user_id, event_id) VALUES (?, ?)`, userID, eventID)
	if err != nil {
		if isDuplicateKey(err) {
			return model.Ticket{}, ErrDuplicateTicket
		}
		return model.Ticket{}, fmt.Errorf("insert ticket: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Ticket{}, fmt.Errorf("insert ticket id: %w", err)
	}
	t := model.Ticket{ID: uint64(id), UserID: userID, EventID: eventID}
	if err := tx.QueryRowContext(ctx, `SELECT created_at FROM tickets WHERE id = ?`, t.ID).Scan(&t.CreatedAt); err != nil {
		return model.Ticket{}, fmt.Errorf("reload ticket: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return model.Ticket{}, fmt.Errorf("commit purchase: %w", err)
	}
	committed = true
	return t, nil
}

// Cancel deletes the ticket if it belongs to userID and returns the event
// it was issued for.  A missing ticket and a ticket owned by someone else
// both return false.
func (r *TicketRepo) Cancel(ctx context.Context, userID, ticketID uint64) (uint64, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("begin cancel: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var eventID uint64
	err = tx.QueryRowContext(ctx,
		`SELECT event_id FROM tickets WHERE id = ? AND user_id = ? FOR UPDATE`, ticketID, userID,
	).Scan(&eventID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("lock ticket: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tickets WHERE id = ?`, ticketID); err != nil {
		return 0, false, fmt.Errorf("delete ticket: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("commit cancel: %w", err)
	}
	committed = true
	return eventID, true, nil
}

// CountByEvent returns the number of tickets issued for the event.
func (r *TicketRepo) CountByEvent(ctx context.Context, eventID uint64) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tickets WHERE event_id = ?`, eventID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count tickets: %w", err)
	}
	return n, nil
}

// ListByUser returns the user's tickets with event title and date,
// soonest event first.
func (r *TicketRepo) ListByUser(ctx context.Context, userID uint64) ([]model.UserTicket, error) {
	const q = `SELECT t.id, t.user_id, t.event_id, t.created_at, e.title, e.date, e.is_closed
               FROM tickets t
               JOIN events e ON e.id = t.event_id
               WHERE t.user_id = ?
               ORDER BY e.date ASC, t.id ASC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list user tickets: %w", err)
	}
	defer rows.Close()
	out := make([]model.UserTicket, 0)
	for rows.Next() {
		var ut model.UserTicket
		if err := rows.Scan(&ut.ID, &ut.UserID, &ut.EventID, &ut.CreatedAt, &ut.EventTitle, &ut.EventDate, &ut.EventClosed); err != nil {
			return nil, fmt.Errorf("scan user ticket: %w", err)
		}
		out = append(out, ut)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list user tickets: %w", err)
	}
	return out, nil
}

// ListByEvent returns the roster of ticket holders for an event.
func (r *TicketRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.Participant, error) {
	const q = `SELECT u.id, u.name, u.email, t.id, t.created_at
               FROM tickets t
               JOIN users u ON u.id = t.user_id
               WHERE t.event_id = ?`
	rows, err := r.db.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()
	out := make([]model.Participant, 0)
	for rows.Next() {
		var p model.Participant
		if err := rows.Scan(&p.UserID, &p.Name, &p.Email, &p.TicketID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	return out, nil
}
