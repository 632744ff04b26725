package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/university-events/internal/config"
	"github.com/iliyamo/university-events/internal/handler"
	"github.com/iliyamo/university-events/internal/middleware"
	"github.com/iliyamo/university-events/internal/policy"
	"github.com/iliyamo/university-events/internal/service"
)

// Deps is everything the routes need.  Redis may be nil, in which case
// rate limiting and the listing cache are switched off.
type Deps struct {
	Identity     *service.IdentityService
	Catalog      *service.CatalogService
	Tickets      *service.TicketingService
	Redis        *redis.Client
	RateLimit    config.RateLimitConfig
	Cache        config.CacheConfig
	CookieSecure bool
}

// Register installs the global middleware and every route of the API.
func Register(e *echo.Echo, d Deps) {
	e.Use(middleware.Logger())
	e.Use(middleware.LoadSession(d.Identity))

	purger := middleware.NewCachePurger(d.Cache, d.Redis)

	RegisterRoutes(e)
	RegisterPublic(e, handler.NewEventHandler(d.Catalog, d.Tickets, purger), middleware.NewRedisCache(d.Cache, d.Redis))
	RegisterAuth(e, handler.NewAuthHandler(d.Identity, d.CookieSecure), d.Identity, middleware.NewTokenBucket(d.RateLimit, d.Redis))
	RegisterEvents(e, handler.NewEventHandler(d.Catalog, d.Tickets, purger), d.Identity)
	RegisterTickets(e, handler.NewTicketHandler(d.Tickets, purger), d.Identity)
	RegisterAdmin(e, handler.NewAdminHandler(d.Identity), d.Identity)
}

// RegisterRoutes registers routes that need no session at all.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterPublic registers the cached, anonymous event listing.
func RegisterPublic(e *echo.Echo, h *handler.EventHandler, cache echo.MiddlewareFunc) {
	e.GET("/v1/public/events", h.PublicList, cache)
}

// RegisterAuth registers the session endpoints.  Everything under
// /v1/auth is throttled; state changes also need a CSRF token, which the
// client obtains from GET /v1/auth/csrf before logging in.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, csrf middleware.CSRFVerifier, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1/auth", limiter)
	g.GET("/csrf", a.CSRF)
	g.POST("/register", a.Register, middleware.RequireCSRF(csrf))
	g.POST("/login", a.Login, middleware.RequireCSRF(csrf))
	g.POST("/logout", a.Logout, middleware.RequireLogin(), middleware.RequireCSRF(csrf))

	e.GET("/v1/me", a.Me, middleware.RequireLogin())
}

// RegisterEvents registers the catalog routes for logged-in users.
func RegisterEvents(e *echo.Echo, h *handler.EventHandler, csrf middleware.CSRFVerifier) {
	g := e.Group("/v1/events", middleware.RequireLogin())
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.POST("", h.Create, middleware.RequireCSRF(csrf), middleware.Authorize(policy.CreateEvent))
	g.POST("/:id/close", h.Close, middleware.RequireCSRF(csrf), middleware.Authorize(policy.CloseEvent))
	g.GET("/:id/participants", h.Participants, middleware.Authorize(policy.ViewParticipants))
}

// RegisterTickets registers purchase, cancellation and "my tickets".
func RegisterTickets(e *echo.Echo, h *handler.TicketHandler, csrf middleware.CSRFVerifier) {
	e.POST("/v1/events/:id/tickets", h.Buy,
		middleware.RequireLogin(), middleware.RequireCSRF(csrf), middleware.Authorize(policy.BuyTicket))
	e.DELETE("/v1/tickets/:id", h.Cancel,
		middleware.RequireLogin(), middleware.RequireCSRF(csrf), middleware.Authorize(policy.CancelTicket))
	e.GET("/v1/my-tickets", h.Mine, middleware.RequireLogin())
}

// RegisterAdmin registers administrator-only routes.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, csrf middleware.CSRFVerifier) {
	g := e.Group("/v1/admin", middleware.RequireLogin())
	g.POST("/organizers", h.CreateOrganizer, middleware.RequireCSRF(csrf), middleware.Authorize(policy.AddOrganizer))
}
