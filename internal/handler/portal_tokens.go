package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/distributor-portal/internal/model"
)

// issueTokenRequest is the issue_token payload.  DistributorID is only
// honoured for admins; distributors always issue for themselves.
type issueTokenRequest struct {
	AppID         uint64  `json:"app_id"`
	SubAppID      *uint64 `json:"sub_app_id"`
	IssuanceType  string  `json:"issuance_type"`
	DistributorID uint64  `json:"distributor_id"`
}

// IssueToken creates a purchase token for a distributor and app.
func (h *PortalHandler) IssueToken(c echo.Context) error {
	var req issueTokenRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.AppID == 0 {
		return badRequest(c, "app_id is required")
	}
	issuance := model.IssuanceType(req.IssuanceType)
	if issuance != model.IssuanceUnique && issuance != model.IssuanceGeneric {
		return badRequest(c, "issuance_type must be unique or generic")
	}

	userID, err := getUserID(c)
	if err != nil {
		return respondErr(c, err)
	}
	distributorID := userID
	if getRole(c) == model.RoleAdmin {
		if req.DistributorID == 0 {
			return badRequest(c, "distributor_id is required for admin issuance")
		}
		distributorID = req.DistributorID
	}

	issued, err := h.Issuer.Issue(c.Request().Context(), distributorID, req.AppID, req.SubAppID, issuance)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusCreated, issued)
}

// listTokensRequest selects whose tokens to list.  Only admins may name a
// distributor.
type listTokensRequest struct {
	DistributorID uint64 `json:"distributor_id"`
}

// ListTokens returns the tokens issued to a distributor, newest first.
func (h *PortalHandler) ListTokens(c echo.Context) error {
	var req listTokensRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	userID, err := getUserID(c)
	if err != nil {
		return respondErr(c, err)
	}
	distributorID := userID
	if getRole(c) == model.RoleAdmin {
		if req.DistributorID == 0 {
			return badRequest(c, "distributor_id is required for admin listing")
		}
		distributorID = req.DistributorID
	}

	tokens, err := h.Tokens.ListByDistributor(c.Request().Context(), distributorID)
	if err != nil {
		return respondErr(c, err)
	}
	out := make([]echo.Map, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, echo.Map{
			"token":         t.ID,
			"issuance_type": t.IssuanceType,
			"status":        t.Status,
			"app_id":        t.AppID,
			"sub_app_id":    t.SubAppID,
			"created_at":    t.CreatedAt,
			"expires_at":    t.ExpiresAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"tokens": out})
}
