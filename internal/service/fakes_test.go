package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/university-events/internal/model"
	"github.com/iliyamo/university-events/internal/queue"
	"github.com/iliyamo/university-events/internal/repository"
)

type fakeUsers struct {
	mu      sync.Mutex
	byEmail map[string]model.User
	nextID  uint64
	// createErr, when set, is returned by Create after EmailExists passed.
	createErr error
}

func newFakeUsers() *fakeUsers { return &fakeUsers{byEmail: map[string]model.User{}} }

func (f *fakeUsers) Create(_ context.Context, name, email, hash string, role model.Role) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return 0, f.createErr
	}
	if _, ok := f.byEmail[email]; ok {
		return 0, repository.ErrEmailExists
	}
	f.nextID++
	f.byEmail[email] = model.User{ID: f.nextID, Name: name, Email: email, PasswordHash: hash, Role: role, CreatedAt: time.Now()}
	return f.nextID, nil
}

func (f *fakeUsers) EmailExists(_ context.Context, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.byEmail[email]
	return ok, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byEmail[email]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byEmail)
}

type fakeEvents struct {
	mu     sync.Mutex
	byID   map[uint64]model.Event
	nextID uint64
}

func newFakeEvents() *fakeEvents { return &fakeEvents{byID: map[uint64]model.Event{}} }

func (f *fakeEvents) Create(_ context.Context, ev *model.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	ev.ID = f.nextID
	ev.IsClosed = false
	ev.CreatedAt = time.Now()
	f.byID[ev.ID] = *ev
	return nil
}

func (f *fakeEvents) GetByID(_ context.Context, id uint64) (model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev, ok := f.byID[id]
	if !ok {
		return model.Event{}, repository.ErrNotFound
	}
	return ev, nil
}

func (f *fakeEvents) List(_ context.Context, includeClosed bool) ([]model.EventListing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.EventListing
	for _, ev := range f.byID {
		if ev.IsClosed && !includeClosed {
			continue
		}
		out = append(out, model.EventListing{Event: ev})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (f *fakeEvents) Close(_ context.Context, id uint64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev, ok := f.byID[id]
	if !ok || ev.IsClosed {
		return false, nil
	}
	ev.IsClosed = true
	f.byID[id] = ev
	return true, nil
}

// racyTickets checks and inserts in two separate critical sections with
// a pause in between, like a naive read-then-write store.  Only callers
// that serialize purchases per event keep it within capacity.
type racyTickets struct {
	mu      sync.Mutex
	events  *fakeEvents
	tickets []model.Ticket
	nextID  uint64
}

func newRacyTickets(events *fakeEvents) *racyTickets { return &racyTickets{events: events} }

func (f *racyTickets) Purchase(ctx context.Context, userID, eventID uint64) (model.Ticket, error) {
	ev, err := f.events.GetByID(ctx, eventID)
	if err != nil || ev.IsClosed {
		return model.Ticket{}, repository.ErrEventUnavailable
	}
	f.mu.Lock()
	sold, dup := 0, false
	for _, t := range f.tickets {
		if t.EventID == eventID {
			sold++
			if t.UserID == userID {
				dup = true
			}
		}
	}
	f.mu.Unlock()
	if sold >= int(ev.Capacity) {
		return model.Ticket{}, repository.ErrSoldOut
	}
	if dup {
		return model.Ticket{}, repository.ErrDuplicateTicket
	}

	time.Sleep(time.Millisecond)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	t := model.Ticket{ID: f.nextID, UserID: userID, EventID: eventID, CreatedAt: time.Now()}
	f.tickets = append(f.tickets, t)
	return t, nil
}

func (f *racyTickets) Cancel(_ context.Context, userID, ticketID uint64) (uint64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, t := range f.tickets {
		if t.ID == ticketID && t.UserID == userID {
			f.tickets = append(f.tickets[:i], f.tickets[i+1:]...)
			return t.EventID, true, nil
		}
	}
	return 0, false, nil
}

func (f *racyTickets) CountByEvent(_ context.Context, eventID uint64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.tickets {
		if t.EventID == eventID {
			n++
		}
	}
	return n, nil
}

func (f *racyTickets) ListByUser(_ context.Context, userID uint64) ([]model.UserTicket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.UserTicket
	for _, t := range f.tickets {
		if t.UserID == userID {
			out = append(out, model.UserTicket{Ticket: t})
		}
	}
	return out, nil
}

func (f *racyTickets) ListByEvent(_ context.Context, eventID uint64) ([]model.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Participant
	for _, t := range f.tickets {
		if t.EventID == eventID {
			out = append(out, model.Participant{UserID: t.UserID, TicketID: t.ID})
		}
	}
	return out, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.TicketActivity
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.TicketActivity) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}
