package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/distributor-portal/internal/model"
	"github.com/iliyamo/distributor-portal/internal/validation"
)

// uploadOrdersRequest is the upload_orders payload.  Global is only
// honoured for admins: a global order (no owner) may be consumed by any
// distributor's registrants.
type uploadOrdersRequest struct {
	OrderNumbers  []string `json:"order_numbers"`
	DistributorID uint64   `json:"distributor_id"`
	Global        bool     `json:"global"`
}

// UploadOrders bulk-inserts order numbers.  Each number is sanitized
// first; malformed entries are reported back instead of aborting the
// whole upload.  Numbers already present are silently skipped, so the
// upload is safe to repeat.
func (h *PortalHandler) UploadOrders(c echo.Context) error {
	var req uploadOrdersRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if len(req.OrderNumbers) == 0 {
		return badRequest(c, "order_numbers is required")
	}

	userID, err := getUserID(c)
	if err != nil {
		return respondErr(c, err)
	}
	role := getRole(c)

	var owner *uint64
	switch {
	case role == model.RoleAdmin && req.Global:
		owner = nil
	case role == model.RoleAdmin && req.DistributorID != 0:
		owner = &req.DistributorID
	case role == model.RoleAdmin:
		return badRequest(c, "admin uploads must set global or distributor_id")
	default:
		owner = &userID
	}

	valid := make([]string, 0, len(req.OrderNumbers))
	rejected := make([]string, 0)
	for _, raw := range req.OrderNumbers {
		num, err := validation.SanitizeOrderNumber(raw)
		if err != nil {
			rejected = append(rejected, raw)
			continue
		}
		valid = append(valid, num)
	}

	var inserted int64
	if len(valid) > 0 {
		inserted, err = h.Orders.BulkInsert(c.Request().Context(), valid, owner)
		if err != nil {
			return respondErr(c, err)
		}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"inserted":   inserted,
		"duplicates": int64(len(valid)) - inserted,
		"rejected":   rejected,
	})
}

// listOrdersRequest selects the listing scope for admins.
type listOrdersRequest struct {
	DistributorID uint64 `json:"distributor_id"`
}

// ListOrders returns the orders visible in the caller's scope: a
// distributor sees their own orders plus global ones, an admin sees
// everything or one distributor's slice.
func (h *PortalHandler) ListOrders(c echo.Context) error {
	var req listOrdersRequest
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
	orders, err := h.Orders.ListByScope(c.Request().Context(), scope(getRole(c), userID, requested))
	if err != nil {
		return respondErr(c, err)
	}
	out := make([]echo.Map, 0, len(orders))
	for _, o := range orders {
		out = append(out, echo.Map{
			"order_number":   o.OrderNumber,
			"status":         o.Status,
			"distributor_id": o.DistributorID,
			"created_at":     o.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": out})
}

// sweepOrdersRequest selects the sweep scope for admins.
type sweepOrdersRequest struct {
	DistributorID uint64 `json:"distributor_id"`
}

// SweepOrders runs the order reconciliation synchronously and returns its
// counters.  Distributors sweep their own scope; admins sweep globally or
// one distributor.
func (h *PortalHandler) SweepOrders(c echo.Context) error {
	var req sweepOrdersRequest
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
	res, err := h.Sweeper.Sweep(c.Request().Context(), scope(getRole(c), userID, requested))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
