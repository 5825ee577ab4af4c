package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/iliyamo/distributor-portal/internal/model"
	"github.com/iliyamo/distributor-portal/internal/queue"
	"github.com/iliyamo/distributor-portal/internal/repository"
	"github.com/iliyamo/distributor-portal/internal/validation"
)

// TokenGetter loads tokens for validation.  *repository.TokenRepo
// satisfies it.
type TokenGetter interface {
	GetByID(ctx context.Context, id string) (model.PurchaseToken, error)
}

// PurchaseFinder looks up pre-validated marketplace purchases.
// *repository.PurchaseRepo satisfies it.
type PurchaseFinder interface {
	Find(ctx context.Context, purchaseID, customerEmail string, appID uint64) (model.MarketplacePurchase, error)
}

// AppUserWriter performs the atomic app-user creation together with its
// token/order side effects.  *repository.AppUserRepo satisfies it.
type AppUserWriter interface {
	OrderNumberTaken(ctx context.Context, distributorID uint64, orderNumber string) (bool, error)
	CreateAppUser(ctx context.Context, u model.AppUser, consumeToken bool, tokenID string, tryOrder string) (model.AppUser, error)
}

// DistributorWriter performs the atomic distributor creation.
// *repository.UserRepo satisfies it.
type DistributorWriter interface {
	OrderNumberTaken(ctx context.Context, orderNumber string) (bool, error)
	RegisterDistributor(ctx context.Context, u model.User, password string, cost int, appID uint64, consumeToken bool, tokenID string, tryOrder string) (model.User, error)
}

// Registrar implements the purchase validator and the account writer: it
// decides whether a registration may proceed and at what status, then
// commits the account together with its token/order updates.  Commission
// recording after a successful commit is fire-and-forget: at most one
// attempt, never retried, failures logged and ignored.
type Registrar struct {
	tokens       TokenGetter
	purchases    PurchaseFinder
	appUsers     AppUserWriter
	distributors DistributorWriter
	bcryptCost   int
	// publish may be nil when commission recording is disabled.
	publish func(ctx context.Context, ev queue.CommissionEvent) error
	now     func() time.Time
}

// NewRegistrar constructs a Registrar.  publish may be nil.
func NewRegistrar(tokens TokenGetter, purchases PurchaseFinder, appUsers AppUserWriter, distributors DistributorWriter, bcryptCost int, publish func(ctx context.Context, ev queue.CommissionEvent) error) *Registrar {
	if tokens == nil || purchases == nil || appUsers == nil || distributors == nil {
		panic("nil dependency passed to NewRegistrar")
	}
	return &Registrar{
		tokens:       tokens,
		purchases:    purchases,
		appUsers:     appUsers,
		distributors: distributors,
		bcryptCost:   bcryptCost,
		publish:      publish,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// decision is the outcome of purchase validation: the status the new
// account starts with, the purchase-source tag, and which side effects
// the account writer must commit alongside the insert.
type decision struct {
	status       model.AccountStatus
	source       model.PurchaseSource
	consumeToken bool   // unique token -> used in the same transaction
	tryOrder     string // sanitized order number to match against pending orders
	orderNumber  *string
}

// validate runs the priority-ordered purchase validation against a loaded
// token.  Marketplace purchases take precedence over order numbers; a
// unique token is proof of purchase by itself; a generic registration
// without proof proceeds pending and is reconciled later by the sweeper.
func (s *Registrar) validate(ctx context.Context, tok model.PurchaseToken, email, orderNumber, purchaseID string) (decision, error) {
	switch tok.IssuanceType {
	case model.IssuanceUnique:
		if tok.Status != model.TokenPending {
			return decision{}, ErrInvalidTokenStatus
		}
	case model.IssuanceGeneric:
		if tok.Status != model.TokenActive {
			return decision{}, ErrInvalidTokenStatus
		}
	default:
		return decision{}, ErrInvalidToken
	}

	if purchaseID != "" {
		p, err := s.purchases.Find(ctx, purchaseID, email, tok.AppID)
		if errors.Is(err, repository.ErrNotFound) {
			return decision{}, ErrInvalidPurchase
		}
		if err != nil {
			return decision{}, err
		}
		if p.Expired(s.now()) {
			return decision{}, ErrInvalidPurchase
		}
		return decision{
			status:       model.AccountActive,
			source:       model.SourceMarketplace,
			consumeToken: tok.IssuanceType == model.IssuanceUnique,
		}, nil
	}

	if tok.IssuanceType == model.IssuanceGeneric && orderNumber != "" {
		num, err := validation.SanitizeOrderNumber(orderNumber)
		if err != nil {
			return decision{}, err
		}
		// A number is spent once it is bound to any account, app user or
		// distributor, so both tables take part in the check.
		taken, err := s.appUsers.OrderNumberTaken(ctx, tok.DistributorID, num)
		if err != nil {
			return decision{}, err
		}
		if !taken {
			taken, err = s.distributors.OrderNumberTaken(ctx, num)
			if err != nil {
				return decision{}, err
			}
		}
		if taken {
			return decision{}, ErrOrderAlreadyUsed
		}
		// The account writer upgrades the status to active when a pending
		// order with this number exists in scope; until an order shows up
		// the registration stays pending for the sweeper.
		return decision{
			status:      model.AccountPending,
			source:      model.SourceOrderNumber,
			tryOrder:    num,
			orderNumber: &num,
		}, nil
	}

	if tok.IssuanceType == model.IssuanceUnique {
		// The token itself is the proof of purchase.
		return decision{
			status:       model.AccountActive,
			source:       model.SourceDirect,
			consumeToken: true,
		}, nil
	}

	// Generic token with neither purchase id nor order number: unverified
	// registration, reconciled later.
	return decision{status: model.AccountPending, source: model.SourceDirect}, nil
}

// loadToken fetches and gate-checks a token: existence, app binding and
// expiry.  appID zero skips the binding check (distributor registration).
func (s *Registrar) loadToken(ctx context.Context, tokenID string, appID uint64) (model.PurchaseToken, error) {
	tok, err := s.tokens.GetByID(ctx, tokenID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.PurchaseToken{}, ErrInvalidToken
	}
	if err != nil {
		return model.PurchaseToken{}, err
	}
	if appID != 0 && tok.AppID != appID {
		return model.PurchaseToken{}, ErrInvalidToken
	}
	if tok.Expired(s.now()) {
		return model.PurchaseToken{}, ErrTokenExpired
	}
	return tok, nil
}

// RegisterAppUserParams carries a register_app_user request.
type RegisterAppUserParams struct {
	Token       string
	AppID       uint64
	Email       string
	OrderNumber string
	PurchaseID  string
}

// RegisterAppUser validates the purchase and atomically creates the
// app-user account.  On success a commission event is published
// best-effort; a publish failure does not roll back the registration.
func (s *Registrar) RegisterAppUser(ctx context.Context, p RegisterAppUserParams) (model.AppUser, error) {
	email := strings.ToLower(strings.TrimSpace(p.Email))
	tok, err := s.loadToken(ctx, p.Token, p.AppID)
	if err != nil {
		return model.AppUser{}, err
	}
	dec, err := s.validate(ctx, tok, email, p.OrderNumber, p.PurchaseID)
	if err != nil {
		return model.AppUser{}, err
	}
	u := model.AppUser{
		AppID:         tok.AppID,
		SubAppID:      tok.SubAppID,
		Email:         email,
		DistributorID: tok.DistributorID,
		Status:        dec.status,
		LinkType:      tok.IssuanceType,
		OrderNumber:   dec.orderNumber,
		Source:        dec.source,
	}
	created, err := s.appUsers.CreateAppUser(ctx, u, dec.consumeToken, tok.ID, dec.tryOrder)
	if err != nil {
		return model.AppUser{}, err
	}
	s.recordCommission(ctx, created.DistributorID, created.AppID, created.Email, created.Source)
	return created, nil
}

// RegisterDistributorParams carries a register_distributor request.
type RegisterDistributorParams struct {
	Token       string
	Email       string
	Password    string
	OrderNumber string
}

// RegisterDistributor validates the registration token and atomically
// creates the distributor account, authorized for the token's app.
// Marketplace purchases do not apply to distributor registration.
func (s *Registrar) RegisterDistributor(ctx context.Context, p RegisterDistributorParams) (model.User, error) {
	email := strings.ToLower(strings.TrimSpace(p.Email))
	tok, err := s.loadToken(ctx, p.Token, 0)
	if err != nil {
		return model.User{}, err
	}
	dec, err := s.validate(ctx, tok, email, p.OrderNumber, "")
	if err != nil {
		return model.User{}, err
	}
	u := model.User{
		Email:       email,
		Status:      dec.status,
		LinkType:    tok.IssuanceType,
		OrderNumber: dec.orderNumber,
	}
	created, err := s.distributors.RegisterDistributor(ctx, u, p.Password, s.bcryptCost, tok.AppID, dec.consumeToken, tok.ID, dec.tryOrder)
	if err != nil {
		return model.User{}, err
	}
	s.recordCommission(ctx, created.ID, tok.AppID, created.Email, dec.source)
	return created, nil
}

// recordCommission publishes the post-commit commission event.  Errors
// are logged and dropped: commission recording is bookkeeping, not part
// of the registration transaction.
func (s *Registrar) recordCommission(ctx context.Context, distributorID, appID uint64, email string, source model.PurchaseSource) {
	if s.publish == nil {
		return
	}
	ev := queue.CommissionEvent{
		DistributorID: distributorID,
		AppID:         appID,
		Email:         email,
		Source:        string(source),
		RegisteredAt:  s.now().Format(time.RFC3339),
	}
	if err := s.publish(ctx, ev); err != nil {
		log.Printf("registrar: commission publish failed: %v", err)
	}
}
