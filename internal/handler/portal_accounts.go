package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/distributor-portal/internal/model"
)

// listAppUsersRequest selects the listing scope for admins.
type listAppUsersRequest struct {
	DistributorID uint64 `json:"distributor_id"`
}

// ListAppUsers returns end-user accounts: a distributor sees their own
// registrants, an admin sees everything or one distributor's slice.
func (h *PortalHandler) ListAppUsers(c echo.Context) error {
	var req listAppUsersRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	userID, err := getUserID(c)
	if err != nil {
		return respondErr(c, err)
	}
	var requested *uint64
	if req.DistributorID != 0 {
		requested = &req.DistributorID
	}
	users, err := h.AppUsers.ListByDistributor(c.Request().Context(), scope(getRole(c), userID, requested))
	if err != nil {
		return respondErr(c, err)
	}
	out := make([]echo.Map, 0, len(users))
	for _, u := range users {
		out = append(out, echo.Map{
			"id":              u.ID,
			"app_id":          u.AppID,
			"sub_app_id":      u.SubAppID,
			"email":           u.Email,
			"distributor_id":  u.DistributorID,
			"status":          u.Status,
			"link_type":       u.LinkType,
			"order_number":    u.OrderNumber,
			"purchase_source": u.Source,
			"created_at":      u.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"app_users": out})
}

// ListDistributors returns every distributor account.  Admin only; the
// password hash never leaves the repository layer's model, so it is
// omitted here explicitly.
func (h *PortalHandler) ListDistributors(c echo.Context) error {
	users, err := h.Users.ListDistributors(c.Request().Context())
	if err != nil {
		return respondErr(c, err)
	}
	out := make([]echo.Map, 0, len(users))
	for _, u := range users {
		out = append(out, echo.Map{
			"id":           u.ID,
			"email":        u.Email,
			"status":       u.Status,
			"link_type":    u.LinkType,
			"order_number": u.OrderNumber,
			"created_at":   u.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"distributors": out})
}

// setAccountStatusRequest is the set_account_status payload.
// AccountType defaults to "app_user"; "distributor" is admin-only.
type setAccountStatusRequest struct {
	AccountType string `json:"account_type"`
	AccountID   uint64 `json:"account_id"`
	Status      string `json:"status"`
}

// SetAccountStatus activates or deactivates an account.  Distributors
// may only touch their own registrants; admins may additionally switch
// distributor accounts on or off.  Pending is not settable by hand,
// reconciliation owns that transition.
func (h *PortalHandler) SetAccountStatus(c echo.Context) error {
	var req setAccountStatusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.AccountID == 0 {
		return badRequest(c, "account_id is required")
	}
	status := model.AccountStatus(req.Status)
	if status != model.AccountActive && status != model.AccountInactive {
		return badRequest(c, "status must be active or inactive")
	}
	userID, err := getUserID(c)
	if err != nil {
		return respondErr(c, err)
	}
	role := getRole(c)

	switch req.AccountType {
	case "", "app_user":
		var owner *uint64
		if role != model.RoleAdmin {
			owner = &userID
		}
		if err := h.AppUsers.SetStatus(c.Request().Context(), req.AccountID, owner, status); err != nil {
			return respondErr(c, err)
		}
	case "distributor":
		if role != model.RoleAdmin {
			return c.JSON(http.StatusForbidden, errorResponse{Code: CodeForbidden, Message: "admin role required"})
		}
		if err := h.Users.SetStatus(c.Request().Context(), req.AccountID, status); err != nil {
			return respondErr(c, err)
		}
	default:
		return badRequest(c, "account_type must be app_user or distributor")
	}
	return c.JSON(http.StatusOK, echo.Map{"id": req.AccountID, "status": status})
}
