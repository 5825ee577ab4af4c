package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/distributor-portal/internal/model"
)

// Portal action names.  Every operation exposed through the single
// dispatch endpoint POST /v1/portal?action=<name> appears here.
const (
	ActionIssueToken          = "issue_token"
	ActionRegisterDistributor = "register_distributor"
	ActionRegisterAppUser     = "register_app_user"
	ActionUploadOrders        = "upload_orders"
	ActionListOrders          = "list_orders"
	ActionListTokens          = "list_tokens"
	ActionListAppUsers        = "list_app_users"
	ActionListDistributors    = "list_distributors"
	ActionSetAccountStatus    = "set_account_status"
	ActionSweepOrders         = "sweep_orders"
)

// AllActions enumerates every supported action.  The registry is
// validated against this list at startup so a missing handler is a boot
// failure, not a runtime 400.
var AllActions = []string{
	ActionIssueToken,
	ActionRegisterDistributor,
	ActionRegisterAppUser,
	ActionUploadOrders,
	ActionListOrders,
	ActionListTokens,
	ActionListAppUsers,
	ActionListDistributors,
	ActionSetAccountStatus,
	ActionSweepOrders,
}

// actionAuth describes who may invoke an action.
type actionAuth int

const (
	// authPublic actions run without any identity (registration flows).
	authPublic actionAuth = iota
	// authAny actions require a valid bearer token of either role.
	authAny
	// authAdmin actions require the ADMIN role.
	authAdmin
)

type actionEntry struct {
	auth actionAuth
	fn   echo.HandlerFunc
}

// ActionRegistry maps action names to their auth requirement and
// handler.  Handlers are registered once during wiring; Dispatch routes
// each portal request after enforcing the per-action auth rule.
type ActionRegistry struct {
	actions map[string]actionEntry
}

// NewActionRegistry returns an empty registry.
func NewActionRegistry() *ActionRegistry {
	return &ActionRegistry{actions: make(map[string]actionEntry)}
}

// Register binds a handler to an action name.  Registering the same
// name twice is a wiring bug and panics immediately.
func (r *ActionRegistry) Register(name string, auth actionAuth, fn echo.HandlerFunc) {
	if _, dup := r.actions[name]; dup {
		panic("handler: duplicate action registration: " + name)
	}
	r.actions[name] = actionEntry{auth: auth, fn: fn}
}

// Validate checks the registry for completeness against AllActions and
// rejects registrations outside that list.  Called once at startup.
func (r *ActionRegistry) Validate() error {
	known := make(map[string]bool, len(AllActions))
	for _, name := range AllActions {
		known[name] = true
		if _, ok := r.actions[name]; !ok {
			return fmt.Errorf("action %q has no registered handler", name)
		}
	}
	for name := range r.actions {
		if !known[name] {
			return fmt.Errorf("handler registered for unknown action %q", name)
		}
	}
	return nil
}

// Dispatch is the single portal entry point.  It resolves the action
// from the query string, enforces its auth requirement against the
// claims set by the optional JWT middleware, and invokes the handler.
func (r *ActionRegistry) Dispatch(c echo.Context) error {
	name := c.QueryParam("action")
	entry, ok := r.actions[name]
	if !ok {
		return badRequest(c, "unknown or missing action")
	}
	if entry.auth != authPublic {
		role := getRole(c)
		if role == "" {
			return c.JSON(http.StatusUnauthorized, errorResponse{
				Code:    CodeUnauthorized,
				Message: "authentication required",
			})
		}
		if entry.auth == authAdmin && role != model.RoleAdmin {
			return c.JSON(http.StatusForbidden, errorResponse{
				Code:    CodeForbidden,
				Message: "admin role required",
			})
		}
	}
	return entry.fn(c)
}
