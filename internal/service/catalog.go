package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/iliyamo/university-events/internal/model"
	"github.com/iliyamo/university-events/internal/repository"
)

// Accepted layouts for an event date, tried in order.  The first two are
// what HTML datetime inputs and the database produce.
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	time.RFC3339,
}

// EventStore is the slice of the event repository the catalog needs.
type EventStore interface {
	Create(ctx context.Context, ev *model.Event) error
	GetByID(ctx context.Context, id uint64) (model.Event, error)
	List(ctx context.Context, includeClosed bool) ([]model.EventListing, error)
	Close(ctx context.Context, id uint64) (bool, error)
}

// CatalogService creates, lists and closes events.
type CatalogService struct {
	events EventStore
}

func NewCatalogService(events EventStore) *CatalogService {
	return &CatalogService{events: events}
}

// CreateEvent validates and stores a new open event.
func (s *CatalogService) CreateEvent(ctx context.Context, title, description, date string, capacity int, organizerID uint64) (model.Event, error) {
	title = strings.TrimSpace(title)
	var msgs []string
	if title == "" {
		msgs = append(msgs, "Title is required.")
	}
	when, ok := parseEventDate(date)
	if !ok {
		msgs = append(msgs, "A valid date is required.")
	}
	if capacity < 1 || int64(capacity) > math.MaxUint32 {
		msgs = append(msgs, "Capacity must be at least 1.")
	}
	if len(msgs) > 0 {
		return model.Event{}, ValidationError(msgs...)
	}

	ev := model.Event{
		Title:       title,
		Description: strings.TrimSpace(description),
		Date:        when,
		Capacity:    uint32(capacity),
		CreatedBy:   organizerID,
	}
	if err := s.events.Create(ctx, &ev); err != nil {
		return model.Event{}, storageError("create event", err)
	}
	return ev, nil
}

func parseEventDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// ListEvents returns events ordered by date with organizer name and
// booked count.  Closed events are left out unless includeClosed is set.
func (s *CatalogService) ListEvents(ctx context.Context, includeClosed bool) ([]model.EventListing, error) {
	list, err := s.events.List(ctx, includeClosed)
	if err != nil {
		return nil, storageError("list events", err)
	}
	return list, nil
}

// GetEvent returns one event whether open or closed.
func (s *CatalogService) GetEvent(ctx context.Context, id uint64) (model.Event, error) {
	ev, err := s.events.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Event{}, ErrEventNotFound
	}
	if err != nil {
		return model.Event{}, storageError("load event", err)
	}
	return ev, nil
}

// CloseEvent stops further sales for the event and reports whether a row
// changed.  An event that is already closed or does not exist yields
// false without error.  Issued tickets stay valid.
func (s *CatalogService) CloseEvent(ctx context.Context, id uint64) (bool, error) {
	changed, err := s.events.Close(ctx, id)
	if err != nil {
		return false, storageError("close event", err)
	}
	return changed, nil
}
