package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/university-events/internal/service"
)

// AdminHandler serves the administrator-only endpoints.
type AdminHandler struct {
	Identity *service.IdentityService
}

func NewAdminHandler(identity *service.IdentityService) *AdminHandler {
	return &AdminHandler{Identity: identity}
}

type organizerReq struct {
	Name     string `json:"name" form:"name"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// CreateOrganizer provisions an organizer account.
func (h *AdminHandler) CreateOrganizer(c echo.Context) error {
	var req organizerReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	id, err := h.Identity.ProvisionOrganizer(ctx, req.Name, req.Email, req.Password)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id, "message": "Organizer created."})
}
