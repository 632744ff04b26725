package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/university-events/internal/model"
	"github.com/iliyamo/university-events/internal/queue"
	"github.com/iliyamo/university-events/internal/repository"
)

const publishTimeout = 3 * time.Second

// TicketStore is the slice of the ticket repository ticketing needs.
// Purchase must check closure, capacity and duplicates and insert
// atomically with respect to other purchases for the same event.
type TicketStore interface {
	Purchase(ctx context.Context, userID, eventID uint64) (model.Ticket, error)
	Cancel(ctx context.Context, userID, ticketID uint64) (eventID uint64, ok bool, err error)
	CountByEvent(ctx context.Context, eventID uint64) (int, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.UserTicket, error)
	ListByEvent(ctx context.Context, eventID uint64) ([]model.Participant, error)
}

// TicketingService issues and cancels tickets.
type TicketingService struct {
	tickets   TicketStore
	publisher ActivityPublisher
	locks     *eventLocks
}

// NewTicketingService wires the service.  publisher may be nil.
func NewTicketingService(tickets TicketStore, publisher ActivityPublisher) *TicketingService {
	return &TicketingService{tickets: tickets, publisher: publisher, locks: newEventLocks()}
}

// Purchase issues one ticket for userID on eventID.  Purchases for the
// same event are serialized inside this process by a per-event lock and
// across processes by the storage transaction.  Waiting for the lock is
// bounded by ctx.
func (s *TicketingService) Purchase(ctx context.Context, userID, eventID uint64) (model.Ticket, error) {
	unlock, err := s.locks.lock(ctx, eventID)
	if err != nil {
		return model.Ticket{}, storageError("wait for event", err)
	}
	t, err := s.tickets.Purchase(ctx, userID, eventID)
	unlock()

	switch {
	case err == nil:
	case errors.Is(err, repository.ErrEventUnavailable):
		return model.Ticket{}, ErrNotFoundOrClosed
	case errors.Is(err, repository.ErrSoldOut):
		return model.Ticket{}, ErrSoldOut
	case errors.Is(err, repository.ErrDuplicateTicket):
		return model.Ticket{}, ErrDuplicateTicket
	default:
		return model.Ticket{}, storageError("purchase ticket", err)
	}

	s.publish(ctx, queue.NewTicketActivity(queue.TicketPurchased, t.ID, userID, eventID))
	return t, nil
}

// Cancel deletes the ticket when userID owns it.  It reports false both
// for a missing ticket and for someone else's.
func (s *TicketingService) Cancel(ctx context.Context, userID, ticketID uint64) (bool, error) {
	eventID, ok, err := s.tickets.Cancel(ctx, userID, ticketID)
	if err != nil {
		return false, storageError("cancel ticket", err)
	}
	if ok {
		s.publish(ctx, queue.NewTicketActivity(queue.TicketCancelled, ticketID, userID, eventID))
	}
	return ok, nil
}

// CountTickets returns how many tickets the event has sold.
func (s *TicketingService) CountTickets(ctx context.Context, eventID uint64) (int, error) {
	n, err := s.tickets.CountByEvent(ctx, eventID)
	if err != nil {
		return 0, storageError("count tickets", err)
	}
	return n, nil
}

// ListByUser returns the user's tickets ordered by event date.
func (s *TicketingService) ListByUser(ctx context.Context, userID uint64) ([]model.UserTicket, error) {
	list, err := s.tickets.ListByUser(ctx, userID)
	if err != nil {
		return nil, storageError("list tickets", err)
	}
	return list, nil
}

// ListByEvent returns the roster of ticket holders for the event.
func (s *TicketingService) ListByEvent(ctx context.Context, eventID uint64) ([]model.Participant, error) {
	list, err := s.tickets.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, storageError("list participants", err)
	}
	return list, nil
}

// publish is best effort: the ticket is already committed, so a broker
// outage only costs an audit line.
func (s *TicketingService) publish(ctx context.Context, ev queue.TicketActivity) {
	if s.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(ctx, ev); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"type":      ev.Type,
			"ticket_id": ev.TicketID,
		}).Warn("ticket activity not published")
	}
}
