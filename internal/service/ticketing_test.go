package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/university-events/internal/queue"
)

type ticketingFixture struct {
	catalog   *CatalogService
	ticketing *TicketingService
	tickets   *racyTickets
	published *recordingPublisher
}

func newTicketingFixture() ticketingFixture {
	events := newFakeEvents()
	tickets := newRacyTickets(events)
	pub := &recordingPublisher{}
	return ticketingFixture{
		catalog:   NewCatalogService(events),
		ticketing: NewTicketingService(tickets, pub),
		tickets:   tickets,
		published: pub,
	}
}

func (f ticketingFixture) event(t *testing.T, capacity int) uint64 {
	t.Helper()
	ev, err := f.catalog.CreateEvent(context.Background(), "Talk", "", "2030-01-01 10:00:00", capacity, 1)
	require.NoError(t, err)
	return ev.ID
}

func TestConcurrentPurchasesNeverOversell(t *testing.T) {
	const (
		buyers   = 25
		capacity = 5
	)
	f := newTicketingFixture()
	eventID := f.event(t, capacity)

	var (
		wg            sync.WaitGroup
		mu            sync.Mutex
		sold, soldOut int
		unexpected    []error
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(userID uint64) {
			defer wg.Done()
			_, err := f.ticketing.Purchase(context.Background(), userID, eventID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				sold++
			case errors.Is(err, ErrSoldOut):
				soldOut++
			default:
				unexpected = append(unexpected, err)
			}
		}(uint64(100 + i))
	}
	wg.Wait()

	assert.Empty(t, unexpected)
	assert.Equal(t, capacity, sold)
	assert.Equal(t, buyers-capacity, soldOut)
	n, err := f.ticketing.CountTickets(context.Background(), eventID)
	require.NoError(t, err)
	assert.Equal(t, capacity, n)
	assert.Zero(t, f.ticketing.locks.size(), "lock entries are released")
}

func TestConcurrentDuplicatePurchases(t *testing.T) {
	f := newTicketingFixture()
	eventID := f.event(t, 10)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.ticketing.Purchase(context.Background(), 7, eventID)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, ErrDuplicateTicket)
	}
	assert.Equal(t, 1, ok)
}

func TestPurchaseClosedOrMissingEvent(t *testing.T) {
	f := newTicketingFixture()
	ctx := context.Background()
	eventID := f.event(t, 3)
	_, err := f.catalog.CloseEvent(ctx, eventID)
	require.NoError(t, err)

	_, err = f.ticketing.Purchase(ctx, 1, eventID)
	assert.ErrorIs(t, err, ErrNotFoundOrClosed)
	_, err = f.ticketing.Purchase(ctx, 1, 999)
	assert.ErrorIs(t, err, ErrNotFoundOrClosed)

	n, _ := f.ticketing.CountTickets(ctx, eventID)
	assert.Zero(t, n)
}

func TestClosingKeepsExistingTickets(t *testing.T) {
	f := newTicketingFixture()
	ctx := context.Background()
	eventID := f.event(t, 3)
	_, err := f.ticketing.Purchase(ctx, 1, eventID)
	require.NoError(t, err)
	_, err = f.catalog.CloseEvent(ctx, eventID)
	require.NoError(t, err)

	mine, err := f.ticketing.ListByUser(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestCancelOnlyOwnTicket(t *testing.T) {
	f := newTicketingFixture()
	ctx := context.Background()
	eventID := f.event(t, 3)
	tk, err := f.ticketing.Purchase(ctx, 1, eventID)
	require.NoError(t, err)

	ok, err := f.ticketing.Cancel(ctx, 2, tk.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	n, _ := f.ticketing.CountTickets(ctx, eventID)
	assert.Equal(t, 1, n)

	ok, err = f.ticketing.Cancel(ctx, 1, 999)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.ticketing.Cancel(ctx, 1, tk.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	n, _ = f.ticketing.CountTickets(ctx, eventID)
	assert.Zero(t, n)

	// a cancelled seat can be bought again
	_, err = f.ticketing.Purchase(ctx, 1, eventID)
	assert.NoError(t, err)
}

func TestActivityPublishedBestEffort(t *testing.T) {
	f := newTicketingFixture()
	ctx := context.Background()
	eventID := f.event(t, 3)
	f.published.err = errors.New("broker down")

	tk, err := f.ticketing.Purchase(ctx, 1, eventID)
	require.NoError(t, err, "a broker failure does not fail the purchase")
	_, err = f.ticketing.Cancel(ctx, 1, tk.ID)
	require.NoError(t, err)

	require.Len(t, f.published.events, 2)
	assert.Equal(t, queue.TicketPurchased, f.published.events[0].Type)
	assert.Equal(t, eventID, f.published.events[0].EventID)
	assert.Equal(t, queue.TicketCancelled, f.published.events[1].Type)
	assert.Equal(t, tk.ID, f.published.events[1].TicketID)
	assert.Equal(t, eventID, f.published.events[1].EventID)
}

func TestPurchaseGivesUpWhenContextExpires(t *testing.T) {
	f := newTicketingFixture()
	eventID := f.event(t, 3)
	unlock, err := f.ticketing.locks.lock(context.Background(), eventID)
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err = f.ticketing.Purchase(ctx, 1, eventID)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, KindStorage, KindOf(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	n, _ := f.ticketing.CountTickets(context.Background(), eventID)
	assert.Zero(t, n)
}

func TestNilPublisher(t *testing.T) {
	events := newFakeEvents()
	svc := NewTicketingService(newRacyTickets(events), nil)
	ev := NewCatalogService(events)
	e, err := ev.CreateEvent(context.Background(), "Talk", "", "2030-01-01 10:00:00", 1, 1)
	require.NoError(t, err)
	_, err = svc.Purchase(context.Background(), 1, e.ID)
	assert.NoError(t, err)
}

func TestRosterListsHolders(t *testing.T) {
	f := newTicketingFixture()
	ctx := context.Background()
	eventID := f.event(t, 3)
	for _, uid := range []uint64{4, 5} {
		_, err := f.ticketing.Purchase(ctx, uid, eventID)
		require.NoError(t, err)
	}
	roster, err := f.ticketing.ListByEvent(ctx, eventID)
	require.NoError(t, err)
	assert.Len(t, roster, 2)
}

func TestEndToEndSoldOut(t *testing.T) {
	ctx := context.Background()
	identity, _, _ := newIdentity(t)
	f := newTicketingFixture()

	aliceID, err := identity.Register(ctx, reg("Alice", "alice@x.com", "secret1", "secret1", "organizer"))
	require.NoError(t, err)
	alice, err := identity.Authenticate(ctx, "alice@x.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, aliceID, alice.ID)
	bobID, err := identity.Register(ctx, reg("Bob", "bob@x.com", "secret1", "secret1", "participant"))
	require.NoError(t, err)
	carolID, err := identity.Register(ctx, reg("Carol", "carol@x.com", "secret1", "secret1", "participant"))
	require.NoError(t, err)

	ev, err := f.catalog.CreateEvent(ctx, "Talk", "desc", "2030-01-01 10:00:00", 1, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), ev.Capacity)

	_, err = f.ticketing.Purchase(ctx, bobID, ev.ID)
	require.NoError(t, err)
	_, err = f.ticketing.Purchase(ctx, carolID, ev.ID)
	assert.ErrorIs(t, err, ErrSoldOut)
}
