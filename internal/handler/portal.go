package handler

import (
	"github.com/iliyamo/distributor-portal/internal/model"
	"github.com/iliyamo/distributor-portal/internal/repository"
	"github.com/iliyamo/distributor-portal/internal/service"
)

// PortalHandler bundles everything the portal actions need: issuance and
// registration services plus the repositories backing the listing and
// administration actions.
type PortalHandler struct {
	Issuer    *service.TokenIssuer
	Registrar *service.Registrar
	Sweeper   *service.Sweeper
	Tokens    *repository.TokenRepo
	Orders    *repository.OrderRepo
	AppUsers  *repository.AppUserRepo
	Users     *repository.UserRepo
}

// NewPortalHandler constructs the portal handler and panics on missing
// dependencies so wiring mistakes surface at boot.
func NewPortalHandler(
	issuer *service.TokenIssuer,
	registrar *service.Registrar,
	sweeper *service.Sweeper,
	tokens *repository.TokenRepo,
	orders *repository.OrderRepo,
	appUsers *repository.AppUserRepo,
	users *repository.UserRepo,
) *PortalHandler {
	if issuer == nil || registrar == nil || sweeper == nil ||
		tokens == nil || orders == nil || appUsers == nil || users == nil {
		panic("nil dependency passed to NewPortalHandler")
	}
	return &PortalHandler{
		Issuer:    issuer,
		Registrar: registrar,
		Sweeper:   sweeper,
		Tokens:    tokens,
		Orders:    orders,
		AppUsers:  appUsers,
		Users:     users,
	}
}

// RegisterActions binds every portal action to the registry.  The
// registry's Validate call at startup guarantees this list stays in sync
// with AllActions.
func (h *PortalHandler) RegisterActions(reg *ActionRegistry) {
	reg.Register(ActionIssueToken, authAny, h.IssueToken)
	reg.Register(ActionRegisterDistributor, authPublic, h.RegisterDistributor)
	reg.Register(ActionRegisterAppUser, authPublic, h.RegisterAppUser)
	reg.Register(ActionUploadOrders, authAny, h.UploadOrders)
	reg.Register(ActionListOrders, authAny, h.ListOrders)
	reg.Register(ActionListTokens, authAny, h.ListTokens)
	reg.Register(ActionListAppUsers, authAny, h.ListAppUsers)
	reg.Register(ActionListDistributors, authAdmin, h.ListDistributors)
	reg.Register(ActionSetAccountStatus, authAny, h.SetAccountStatus)
	reg.Register(ActionSweepOrders, authAny, h.SweepOrders)
}

// scope resolves the distributor scope of an authenticated portal
// request: admins operate globally (nil) unless they name a distributor,
// distributors always operate on themselves.
func scope(role string, userID uint64, requested *uint64) *uint64 {
	if role == model.RoleAdmin {
		return requested
	}
	id := userID
	return &id
}
