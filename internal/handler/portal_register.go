package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/distributor-portal/internal/service"
)

// registerAppUserRequest is the public register_app_user payload.
type registerAppUserRequest struct {
	Token       string `json:"token"`
	AppID       uint64 `json:"app_id"`
	Email       string `json:"email"`
	OrderNumber string `json:"order_number"`
	PurchaseID  string `json:"purchase_id"`
}

// RegisterAppUser validates the presented purchase proof and creates the
// end-user account.  The resulting status tells the caller whether the
// account is immediately active or awaits order reconciliation.
func (h *PortalHandler) RegisterAppUser(c echo.Context) error {
	var req registerAppUserRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Token == "" || req.AppID == 0 {
		return badRequest(c, "token and app_id are required")
	}
	if !validEmail(req.Email) {
		return badRequest(c, "a valid email is required")
	}

	created, err := h.Registrar.RegisterAppUser(c.Request().Context(), service.RegisterAppUserParams{
		Token:       req.Token,
		AppID:       req.AppID,
		Email:       req.Email,
		OrderNumber: req.OrderNumber,
		PurchaseID:  req.PurchaseID,
	})
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"id":              created.ID,
		"email":           created.Email,
		"app_id":          created.AppID,
		"status":          created.Status,
		"purchase_source": created.Source,
	})
}

// registerDistributorRequest is the public register_distributor payload.
type registerDistributorRequest struct {
	Token       string `json:"token"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	OrderNumber string `json:"order_number"`
}

// RegisterDistributor creates a portal account for a new distributor from
// a registration token, authorized for the token's app.
func (h *PortalHandler) RegisterDistributor(c echo.Context) error {
	var req registerDistributorRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Token == "" {
		return badRequest(c, "token is required")
	}
	if !validEmail(req.Email) {
		return badRequest(c, "a valid email is required")
	}
	if len(req.Password) < 8 {
		return badRequest(c, "password must be at least 8 characters")
	}

	created, err := h.Registrar.RegisterDistributor(c.Request().Context(), service.RegisterDistributorParams{
		Token:       req.Token,
		Email:       req.Email,
		Password:    req.Password,
		OrderNumber: req.OrderNumber,
	})
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"id":     created.ID,
		"email":  created.Email,
		"status": created.Status,
	})
}

// validEmail performs the same minimal shape check used at login: a
// non-empty address with an @ and a dot after it.
func validEmail(email string) bool {
	email = strings.TrimSpace(email)
	at := strings.Index(email, "@")
	if at < 1 {
		return false
	}
	return strings.Contains(email[at+1:], ".")
}
