package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/university-events/internal/middleware"
	"github.com/iliyamo/university-events/internal/model"
	"github.com/iliyamo/university-events/internal/service"
)

// EventHandler serves the catalog endpoints.
type EventHandler struct {
	Catalog *service.CatalogService
	Tickets *service.TicketingService
	Cache   *middleware.CachePurger // may be nil
}

func NewEventHandler(catalog *service.CatalogService, tickets *service.TicketingService, cache *middleware.CachePurger) *EventHandler {
	return &EventHandler{Catalog: catalog, Tickets: tickets, Cache: cache}
}

type createEventReq struct {
	Title       string `json:"title" form:"title"`
	Description string `json:"description" form:"description"`
	Date        string `json:"date" form:"date"`
	Capacity    int    `json:"capacity" form:"capacity"`
}

// PublicList lists open events for anyone.
func (h *EventHandler) PublicList(c echo.Context) error {
	return h.list(c, false)
}

// List lists events for a logged-in user; admins also see closed ones.
func (h *EventHandler) List(c echo.Context) error {
	return h.list(c, middleware.CurrentRole(c) == model.RoleAdmin)
}

func (h *EventHandler) list(c echo.Context, includeClosed bool) error {
	ctx, cancel := requestCtx(c)
	defer cancel()

	events, err := h.Catalog.ListEvents(ctx, includeClosed)
	if err != nil {
		return fail(c, err)
	}
	if events == nil {
		events = []model.EventListing{}
	}
	return c.JSON(http.StatusOK, echo.Map{"events": events})
}

// Get returns one event with its booked and remaining counts.
func (h *EventHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badID(c)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	ev, err := h.Catalog.GetEvent(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	booked, err := h.Tickets.CountTickets(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	available := int(ev.Capacity) - booked
	if available < 0 {
		available = 0
	}
	return c.JSON(http.StatusOK, echo.Map{"event": ev, "booked": booked, "available": available})
}

// Create stores a new event owned by the logged-in organizer.
func (h *EventHandler) Create(c echo.Context) error {
	var req createEventReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	ev, err := h.Catalog.CreateEvent(ctx, req.Title, req.Description, req.Date, req.Capacity, middleware.CurrentUserID(c))
	if err != nil {
		return fail(c, err)
	}
	h.Cache.Purge(ctx)
	return c.JSON(http.StatusCreated, echo.Map{"event": ev})
}

// Close stops sales for the event.  Closing twice is not an error; an
// unknown id is a 404.
func (h *EventHandler) Close(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badID(c)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	if _, err := h.Catalog.GetEvent(ctx, id); err != nil {
		return fail(c, err)
	}
	changed, err := h.Catalog.CloseEvent(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	h.Cache.Purge(ctx)
	return c.JSON(http.StatusOK, echo.Map{"closed": true, "changed": changed})
}

// Participants returns the ticket holders of the event.
func (h *EventHandler) Participants(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badID(c)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	if _, err := h.Catalog.GetEvent(ctx, id); err != nil {
		return fail(c, err)
	}
	list, err := h.Tickets.ListByEvent(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	if list == nil {
		list = []model.Participant{}
	}
	return c.JSON(http.StatusOK, echo.Map{"participants": list})
}
