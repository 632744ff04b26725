package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/university-events/internal/middleware"
	"github.com/iliyamo/university-events/internal/model"
	"github.com/iliyamo/university-events/internal/service"
)

// TicketHandler serves ticket purchase, cancellation and listing.
type TicketHandler struct {
	Tickets *service.TicketingService
	Cache   *middleware.CachePurger // may be nil
}

func NewTicketHandler(tickets *service.TicketingService, cache *middleware.CachePurger) *TicketHandler {
	return &TicketHandler{Tickets: tickets, Cache: cache}
}

// Buy issues a ticket for the event in the path to the logged-in user.
func (h *TicketHandler) Buy(c echo.Context) error {
	eventID, ok := pathID(c, "id")
	if !ok {
		return badID(c)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	t, err := h.Tickets.Purchase(ctx, middleware.CurrentUserID(c), eventID)
	if err != nil {
		return fail(c, err)
	}
	h.Cache.Purge(ctx)
	return c.JSON(http.StatusCreated, echo.Map{"ticket": t, "message": "Ticket purchased."})
}

// Cancel deletes one of the logged-in user's tickets.  Someone else's
// ticket looks exactly like a missing one.
func (h *TicketHandler) Cancel(c echo.Context) error {
	ticketID, ok := pathID(c, "id")
	if !ok {
		return badID(c)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	done, err := h.Tickets.Cancel(ctx, middleware.CurrentUserID(c), ticketID)
	if err != nil {
		return fail(c, err)
	}
	if !done {
		return fail(c, service.ErrTicketNotFound)
	}
	h.Cache.Purge(ctx)
	return c.JSON(http.StatusOK, echo.Map{"message": "Ticket cancelled."})
}

// Mine lists the logged-in user's tickets ordered by event date.
func (h *TicketHandler) Mine(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()

	list, err := h.Tickets.ListByUser(ctx, middleware.CurrentUserID(c))
	if err != nil {
		return fail(c, err)
	}
	if list == nil {
		list = []model.UserTicket{}
	}
	return c.JSON(http.StatusOK, echo.Map{"tickets": list})
}
