package handler_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/university-events/internal/model"
	"github.com/iliyamo/university-events/internal/repository"
)

// memDB is a tiny in-memory stand-in for the MySQL repositories.
type memDB struct {
	mu         sync.Mutex
	users      []model.User
	events     []model.Event
	tickets    []model.Ticket
	lastTicket uint64
}

type memUsers struct{ db *memDB }
type memEvents struct{ db *memDB }
type memTickets struct{ db *memDB }

func (r memUsers) Create(_ context.Context, name, email, hash string, role model.Role) (uint64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.users {
		if u.Email == email {
			return 0, repository.ErrEmailExists
		}
	}
	u := model.User{ID: uint64(len(r.db.users) + 1), Name: name, Email: email, PasswordHash: hash, Role: role, CreatedAt: time.Now()}
	r.db.users = append(r.db.users, u)
	return u.ID, nil
}

func (r memUsers) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	return err == nil, nil
}

func (r memUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (r memEvents) Create(_ context.Context, ev *model.Event) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	ev.ID = uint64(len(r.db.events) + 1)
	ev.CreatedAt = time.Now()
	r.db.events = append(r.db.events, *ev)
	return nil
}

func (r memEvents) GetByID(_ context.Context, id uint64) (model.Event, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.db.event(id)
}

func (db *memDB) event(id uint64) (model.Event, error) {
	for _, ev := range db.events {
		if ev.ID == id {
			return ev, nil
		}
	}
	return model.Event{}, repository.ErrNotFound
}

func (r memEvents) List(_ context.Context, includeClosed bool) ([]model.EventListing, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.EventListing
	for _, ev := range r.db.events {
		if ev.IsClosed && !includeClosed {
			continue
		}
		l := model.EventListing{Event: ev}
		for _, t := range r.db.tickets {
			if t.EventID == ev.ID {
				l.Booked++
			}
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (r memEvents) Close(_ context.Context, id uint64) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for i := range r.db.events {
		if r.db.events[i].ID == id && !r.db.events[i].IsClosed {
			r.db.events[i].IsClosed = true
			return true, nil
		}
	}
	return false, nil
}

func (r memTickets) Purchase(_ context.Context, userID, eventID uint64) (model.Ticket, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	ev, err := r.db.event(eventID)
	if err != nil || ev.IsClosed {
		return model.Ticket{}, repository.ErrEventUnavailable
	}
	sold, dup := 0, false
	for _, t := range r.db.tickets {
		if t.EventID == eventID {
			sold++
			dup = dup || t.UserID == userID
		}
	}
	if sold >= int(ev.Capacity) {
		return model.Ticket{}, repository.ErrSoldOut
	}
	if dup {
		return model.Ticket{}, repository.ErrDuplicateTicket
	}
	r.db.lastTicket++
	t := model.Ticket{ID: r.db.lastTicket, UserID: userID, EventID: eventID, CreatedAt: time.Now()}
	r.db.tickets = append(r.db.tickets, t)
	return t, nil
}

func (r memTickets) Cancel(_ context.Context, userID, ticketID uint64) (uint64, bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for i, t := range r.db.tickets {
		if t.ID == ticketID && t.UserID == userID {
			r.db.tickets = append(r.db.tickets[:i], r.db.tickets[i+1:]...)
			return t.EventID, true, nil
		}
	}
	return 0, false, nil
}

func (r memTickets) CountByEvent(_ context.Context, eventID uint64) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n := 0
	for _, t := range r.db.tickets {
		if t.EventID == eventID {
			n++
		}
	}
	return n, nil
}

func (r memTickets) ListByUser(_ context.Context, userID uint64) ([]model.UserTicket, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.UserTicket
	for _, t := range r.db.tickets {
		if t.UserID == userID {
			ev, _ := r.db.event(t.EventID)
			out = append(out, model.UserTicket{Ticket: t, EventTitle: ev.Title, EventDate: ev.Date, EventClosed: ev.IsClosed})
		}
	}
	return out, nil
}

func (r memTickets) ListByEvent(_ context.Context, eventID uint64) ([]model.Participant, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.Participant
	for _, t := range r.db.tickets {
		if t.EventID != eventID {
			continue
		}
		for _, u := range r.db.users {
			if u.ID == t.UserID {
				out = append(out, model.Participant{UserID: u.ID, Name: u.Name, Email: u.Email, TicketID: t.ID, CreatedAt: t.CreatedAt})
			}
		}
	}
	return out, nil
}
