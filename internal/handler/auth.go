package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/university-events/internal/middleware"
	"github.com/iliyamo/university-events/internal/service"
	"github.com/iliyamo/university-events/internal/utils"
)

// AuthHandler bundles dependencies for session and account endpoints.
type AuthHandler struct {
	Identity     *service.IdentityService
	CookieSecure bool
}

func NewAuthHandler(identity *service.IdentityService, cookieSecure bool) *AuthHandler {
	return &AuthHandler{Identity: identity, CookieSecure: cookieSecure}
}

// ----- DTOs -----

type registerReq struct {
	Name            string `json:"name" form:"name"`
	Email           string `json:"email" form:"email"`
	Password        string `json:"password" form:"password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
	Role            string `json:"role" form:"role"` // participant | organizer
}

type loginReq struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (h *AuthHandler) setCookie(c echo.Context, tok utils.SessionToken) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    tok.Token,
		Path:     "/",
		Expires:  tok.Exp,
		MaxAge:   int(h.Identity.SessionTTL().Seconds()),
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// CSRF returns the session's CSRF token, starting an anonymous session
// first when the client has none.
func (h *AuthHandler) CSRF(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()

	sess, ok := middleware.CurrentSession(c)
	if !ok {
		started, tok, err := h.Identity.StartAnonymous(ctx)
		if err != nil {
			return fail(c, err)
		}
		h.setCookie(c, tok)
		middleware.SetSession(c, started)
		sess = started
	}
	token, err := h.Identity.CSRFToken(ctx, &sess)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"csrf_token": token})
}

// Register creates a participant or organizer account.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	id, err := h.Identity.Register(ctx, service.Registration{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Role:            req.Role,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id, "message": "Registration successful. Please log in."})
}

// Login authenticates the credentials and moves the client onto a fresh
// logged-in session.  The response carries the new session's CSRF token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	u, err := h.Identity.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return fail(c, err)
	}
	var previous string
	if old, ok := middleware.CurrentSession(c); ok {
		previous = old.ID
	}
	sess, tok, err := h.Identity.CreateSession(ctx, u, previous)
	if err != nil {
		return fail(c, err)
	}
	h.setCookie(c, tok)
	return c.JSON(http.StatusOK, echo.Map{"user": u, "csrf_token": sess.CSRFToken})
}

// Logout destroys the server-side session and clears the cookie.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()

	if ck, err := c.Cookie(middleware.SessionCookie); err == nil {
		if err := h.Identity.DestroySession(ctx, ck.Value); err != nil {
			return fail(c, err)
		}
	}
	h.clearCookie(c)
	return c.JSON(http.StatusOK, echo.Map{"message": "Logged out."})
}

// Me returns the logged-in user.
func (h *AuthHandler) Me(c echo.Context) error {
	ck, err := c.Cookie(middleware.SessionCookie)
	if err != nil {
		return fail(c, service.ErrLoginRequired)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	u, err := h.Identity.CurrentUser(ctx, ck.Value)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": u})
}
