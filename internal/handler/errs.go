package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/distributor-portal/internal/repository"
	"github.com/iliyamo/distributor-portal/internal/service"
	"github.com/iliyamo/distributor-portal/internal/validation"
)

// Stable machine-readable error codes carried in every failure response.
// Clients branch on Code; Message is for humans.
const (
	CodeInvalidRequest     = "InvalidRequest"
	CodeInvalidOrderNumber = "InvalidOrderNumber"
	CodeInvalidToken       = "InvalidToken"
	CodeTokenExpired       = "TokenExpired"
	CodeInvalidTokenStatus = "InvalidTokenStatus"
	CodeAppNotAvailable    = "AppNotAvailable"
	CodeInvalidSubApp      = "InvalidSubApp"
	CodeAppNotAuthorized   = "AppNotAuthorized"
	CodeOrderAlreadyUsed   = "OrderAlreadyUsed"
	CodeInvalidPurchase    = "InvalidPurchase"
	CodeDuplicateAccount   = "DuplicateAccount"
	CodeNotFound           = "NotFound"
	CodeUnauthorized       = "Unauthorized"
	CodeForbidden          = "Forbidden"
	CodeConflict           = "Conflict"
	CodeInternal           = "Internal"
)

// errorResponse is the stable {code, message} failure shape shared by
// every endpoint.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// respondErr maps a service/repository error onto the failure taxonomy.
// Every known sentinel gets its own code and status; anything else falls
// through to a generic Internal carrying the original message for
// diagnostics.  Nothing is swallowed silently and nothing is retried.
func respondErr(c echo.Context, err error) error {
	type entry struct {
		status int
		code   string
	}
	known := []struct {
		err error
		entry
	}{
		{validation.ErrInvalidOrderNumber, entry{http.StatusBadRequest, CodeInvalidOrderNumber}},
		{service.ErrInvalidToken, entry{http.StatusBadRequest, CodeInvalidToken}},
		{service.ErrTokenExpired, entry{http.StatusBadRequest, CodeTokenExpired}},
		{service.ErrInvalidTokenStatus, entry{http.StatusBadRequest, CodeInvalidTokenStatus}},
		{service.ErrAppNotAvailable, entry{http.StatusBadRequest, CodeAppNotAvailable}},
		{service.ErrInvalidSubApp, entry{http.StatusBadRequest, CodeInvalidSubApp}},
		{service.ErrAppNotAuthorized, entry{http.StatusForbidden, CodeAppNotAuthorized}},
		{service.ErrOrderAlreadyUsed, entry{http.StatusConflict, CodeOrderAlreadyUsed}},
		{service.ErrInvalidPurchase, entry{http.StatusBadRequest, CodeInvalidPurchase}},
		{repository.ErrDuplicateAccount, entry{http.StatusConflict, CodeDuplicateAccount}},
		{repository.ErrEmailExists, entry{http.StatusConflict, CodeDuplicateAccount}},
		{repository.ErrDuplicateOrder, entry{http.StatusConflict, CodeOrderAlreadyUsed}},
		{repository.ErrForbidden, entry{http.StatusForbidden, CodeForbidden}},
		{repository.ErrNotFound, entry{http.StatusNotFound, CodeNotFound}},
		{repository.ErrConflict, entry{http.StatusConflict, CodeConflict}},
	}
	for _, k := range known {
		if errors.Is(err, k.err) {
			return c.JSON(k.status, errorResponse{Code: k.code, Message: k.err.Error()})
		}
	}
	return c.JSON(http.StatusInternalServerError, errorResponse{Code: CodeInternal, Message: err.Error()})
}

// badRequest is a shortcut for request-shape failures detected in the
// handler itself (missing fields, malformed JSON, bad enum values).
func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, errorResponse{Code: CodeInvalidRequest, Message: msg})
}
