package service

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/distributor-portal/internal/model"
	"github.com/iliyamo/distributor-portal/internal/repository"
	"github.com/iliyamo/distributor-portal/internal/utils"
)

// AppDirectory exposes the reference-table checks consulted before a
// token may be issued.  *repository.AppRepo satisfies it.
type AppDirectory interface {
	GetByID(ctx context.Context, appID uint64) (model.App, error)
	SubAppExists(ctx context.Context, appID, subAppID uint64) (bool, error)
	DistributorAuthorized(ctx context.Context, distributorID, appID uint64) (bool, error)
}

// TokenCreator persists freshly issued tokens.  *repository.TokenRepo
// satisfies it.
type TokenCreator interface {
	Create(ctx context.Context, t model.PurchaseToken) error
}

// TokenIssuer creates purchase/registration tokens bound to a
// distributor, app and sub-app.
type TokenIssuer struct {
	apps    AppDirectory
	tokens  TokenCreator
	ttlDays int
}

// NewTokenIssuer constructs a TokenIssuer.  ttlDays is the token validity
// window (30 days in the default configuration).
func NewTokenIssuer(apps AppDirectory, tokens TokenCreator, ttlDays int) *TokenIssuer {
	if apps == nil || tokens == nil {
		panic("nil dependency passed to NewTokenIssuer")
	}
	if ttlDays <= 0 {
		ttlDays = 30
	}
	return &TokenIssuer{apps: apps, tokens: tokens, ttlDays: ttlDays}
}

// IssuedToken is returned to the distributor after a successful issuance.
type IssuedToken struct {
	Token     string            `json:"token"`
	Status    model.TokenStatus `json:"status"`
	ExpiresAt time.Time         `json:"expires_at"`
	AppDomain string            `json:"app_domain"`
}

// Issue validates the issuance preconditions in order (app active, sub-app
// mapped, distributor authorized), generates a 128-bit opaque token id and
// persists the token.  Unique tokens start pending, generic tokens start
// active.  Each failed precondition is a terminal, user-visible error.
func (s *TokenIssuer) Issue(ctx context.Context, distributorID, appID uint64, subAppID *uint64, issuance model.IssuanceType) (IssuedToken, error) {
	app, err := s.apps.GetByID(ctx, appID)
	if errors.Is(err, repository.ErrNotFound) {
		return IssuedToken{}, ErrAppNotAvailable
	}
	if err != nil {
		return IssuedToken{}, err
	}
	if !app.IsActive {
		return IssuedToken{}, ErrAppNotAvailable
	}
	if subAppID != nil {
		ok, err := s.apps.SubAppExists(ctx, appID, *subAppID)
		if err != nil {
			return IssuedToken{}, err
		}
		if !ok {
			return IssuedToken{}, ErrInvalidSubApp
		}
	}
	ok, err := s.apps.DistributorAuthorized(ctx, distributorID, appID)
	if err != nil {
		return IssuedToken{}, err
	}
	if !ok {
		return IssuedToken{}, ErrAppNotAuthorized
	}

	id, err := utils.NewPurchaseTokenID()
	if err != nil {
		return IssuedToken{}, err
	}
	status := model.TokenPending
	if issuance == model.IssuanceGeneric {
		status = model.TokenActive
	}
	tok := model.PurchaseToken{
		ID:            id,
		IssuanceType:  issuance,
		Status:        status,
		DistributorID: distributorID,
		AppID:         appID,
		SubAppID:      subAppID,
		ExpiresAt:     time.Now().UTC().Add(time.Duration(s.ttlDays) * 24 * time.Hour),
	}
	if err := s.tokens.Create(ctx, tok); err != nil {
		return IssuedToken{}, err
	}
	return IssuedToken{
		Token:     tok.ID,
		Status:    tok.Status,
		ExpiresAt: tok.ExpiresAt,
		AppDomain: app.Domain,
	}, nil
}
