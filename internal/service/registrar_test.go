package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/distributor-portal/internal/model"
	"github.com/iliyamo/distributor-portal/internal/queue"
	"github.com/iliyamo/distributor-portal/internal/repository"
	"github.com/iliyamo/distributor-portal/internal/validation"
)

type stubTokens struct {
	tokens map[string]model.PurchaseToken
}

func (s *stubTokens) GetByID(ctx context.Context, id string) (model.PurchaseToken, error) {
	tok, ok := s.tokens[id]
	if !ok {
		return model.PurchaseToken{}, repository.ErrNotFound
	}
	return tok, nil
}

type stubPurchases struct {
	purchase model.MarketplacePurchase
	err      error
}

func (s *stubPurchases) Find(ctx context.Context, purchaseID, customerEmail string, appID uint64) (model.MarketplacePurchase, error) {
	if s.err != nil {
		return model.MarketplacePurchase{}, s.err
	}
	return s.purchase, nil
}

type appUserCall struct {
	user         model.AppUser
	consumeToken bool
	tokenID      string
	tryOrder     string
}

type stubAppUsers struct {
	taken bool
	calls []appUserCall
	err   error
}

func (s *stubAppUsers) OrderNumberTaken(ctx context.Context, distributorID uint64, orderNumber string) (bool, error) {
	return s.taken, nil
}

func (s *stubAppUsers) CreateAppUser(ctx context.Context, u model.AppUser, consumeToken bool, tokenID string, tryOrder string) (model.AppUser, error) {
	if s.err != nil {
		return model.AppUser{}, s.err
	}
	s.calls = append(s.calls, appUserCall{user: u, consumeToken: consumeToken, tokenID: tokenID, tryOrder: tryOrder})
	u.ID = uint64(len(s.calls))
	return u, nil
}

type stubDistributors struct {
	taken   bool
	created []model.User
	err     error
}

func (s *stubDistributors) OrderNumberTaken(ctx context.Context, orderNumber string) (bool, error) {
	return s.taken, nil
}

func (s *stubDistributors) RegisterDistributor(ctx context.Context, u model.User, password string, cost int, appID uint64, consumeToken bool, tokenID string, tryOrder string) (model.User, error) {
	if s.err != nil {
		return model.User{}, s.err
	}
	u.ID = uint64(len(s.created) + 1)
	u.Role = model.RoleDistributor
	s.created = append(s.created, u)
	return u, nil
}

func futureToken(id string, issuance model.IssuanceType, status model.TokenStatus) model.PurchaseToken {
	return model.PurchaseToken{
		ID:            id,
		IssuanceType:  issuance,
		Status:        status,
		DistributorID: 42,
		AppID:         7,
		ExpiresAt:     time.Now().UTC().Add(24 * time.Hour),
	}
}

func newTestRegistrar(tokens *stubTokens, purchases *stubPurchases, appUsers *stubAppUsers, publish func(context.Context, queue.CommissionEvent) error) (*Registrar, *stubDistributors) {
	dists := &stubDistributors{}
	return NewRegistrar(tokens, purchases, appUsers, dists, 10, publish), dists
}

func TestRegisterAppUserUniqueToken(t *testing.T) {
	tokens := &stubTokens{tokens: map[string]model.PurchaseToken{
		"tok1": futureToken("tok1", model.IssuanceUnique, model.TokenPending),
	}}
	appUsers := &stubAppUsers{}
	var published []queue.CommissionEvent
	reg, _ := newTestRegistrar(tokens, &stubPurchases{err: repository.ErrNotFound}, appUsers,
		func(ctx context.Context, ev queue.CommissionEvent) error {
			published = append(published, ev)
			return nil
		})

	created, err := reg.RegisterAppUser(context.Background(), RegisterAppUserParams{
		Token: "tok1", AppID: 7, Email: "Buyer@Example.COM",
	})
	require.NoError(t, err)

	assert.Equal(t, model.AccountActive, created.Status)
	assert.Equal(t, model.SourceDirect, created.Source)
	assert.Equal(t, "buyer@example.com", created.Email)

	require.Len(t, appUsers.calls, 1)
	call := appUsers.calls[0]
	assert.True(t, call.consumeToken, "unique token must be consumed")
	assert.Equal(t, "tok1", call.tokenID)
	assert.Empty(t, call.tryOrder)

	require.Len(t, published, 1)
	assert.Equal(t, uint64(42), published[0].DistributorID)
	assert.Equal(t, "direct", published[0].Source)
}

func TestRegisterAppUserUniqueTokenAlreadyUsed(t *testing.T) {
	tokens := &stubTokens{tokens: map[string]model.PurchaseToken{
		"tok1": futureToken("tok1", model.IssuanceUnique, model.TokenUsed),
	}}
	reg, _ := newTestRegistrar(tokens, &stubPurchases{err: repository.ErrNotFound}, &stubAppUsers{}, nil)

	_, err := reg.RegisterAppUser(context.Background(), RegisterAppUserParams{Token: "tok1", AppID: 7, Email: "a@b.c"})
	assert.ErrorIs(t, err, ErrInvalidTokenStatus)
}

func TestRegisterAppUserGenericWithOrderNumber(t *testing.T) {
	tokens := &stubTokens{tokens: map[string]model.PurchaseToken{
		"gen": futureToken("gen", model.IssuanceGeneric, model.TokenActive),
	}}
	appUsers := &stubAppUsers{}
	reg, _ := newTestRegistrar(tokens, &stubPurchases{err: repository.ErrNotFound}, appUsers, nil)

	created, err := reg.RegisterAppUser(context.Background(), RegisterAppUserParams{
		Token: "gen", AppID: 7, Email: "a@b.c", OrderNumber: " ORD100 ",
	})
	require.NoError(t, err)

	// No uploaded order yet: the account waits for reconciliation.
	assert.Equal(t, model.AccountPending, created.Status)
	assert.Equal(t, model.SourceOrderNumber, created.Source)
	require.NotNil(t, created.OrderNumber)
	assert.Equal(t, "ORD100", *created.OrderNumber)

	require.Len(t, appUsers.calls, 1)
	call := appUsers.calls[0]
	assert.False(t, call.consumeToken, "generic tokens are reusable")
	assert.Equal(t, "ORD100", call.tryOrder)
}

func TestRegisterAppUserDuplicateOrderNumber(t *testing.T) {
	tokens := &stubTokens{tokens: map[string]model.PurchaseToken{
		"gen": futureToken("gen", model.IssuanceGeneric, model.TokenActive),
	}}
	reg, _ := newTestRegistrar(tokens, &stubPurchases{err: repository.ErrNotFound}, &stubAppUsers{taken: true}, nil)

	_, err := reg.RegisterAppUser(context.Background(), RegisterAppUserParams{
		Token: "gen", AppID: 7, Email: "a@b.c", OrderNumber: "ORD100",
	})
	assert.ErrorIs(t, err, ErrOrderAlreadyUsed)
}

func TestRegisterAppUserOrderNumberBoundToDistributor(t *testing.T) {
	tokens := &stubTokens{tokens: map[string]model.PurchaseToken{
		"gen": futureToken("gen", model.IssuanceGeneric, model.TokenActive),
	}}
	reg, dists := newTestRegistrar(tokens, &stubPurchases{err: repository.ErrNotFound}, &stubAppUsers{}, nil)
	dists.taken = true

	// A number already bound to a distributor account is just as spent
	// as one bound to an app user.
	_, err := reg.RegisterAppUser(context.Background(), RegisterAppUserParams{
		Token: "gen", AppID: 7, Email: "a@b.c", OrderNumber: "ORD100",
	})
	assert.ErrorIs(t, err, ErrOrderAlreadyUsed)
}

func TestRegisterAppUserConcurrentDuplicateOrderSurfaces(t *testing.T) {
	tokens := &stubTokens{tokens: map[string]model.PurchaseToken{
		"gen": futureToken("gen", model.IssuanceGeneric, model.TokenActive),
	}}
	// The writer re-checks the binding inside its transaction; when a
	// concurrent registration won the race the insert is rejected even
	// though the pre-check passed.
	appUsers := &stubAppUsers{err: repository.ErrDuplicateOrder}
	reg, _ := newTestRegistrar(tokens, &stubPurchases{err: repository.ErrNotFound}, appUsers, nil)

	_, err := reg.RegisterAppUser(context.Background(), RegisterAppUserParams{
		Token: "gen", AppID: 7, Email: "a@b.c", OrderNumber: "ORD100",
	})
	assert.ErrorIs(t, err, repository.ErrDuplicateOrder)
}

func TestRegisterAppUserRejectsMalformedOrderNumber(t *testing.T) {
	tokens := &stubTokens{tokens: map[string]model.PurchaseToken{
		"gen": futureToken("gen", model.IssuanceGeneric, model.TokenActive),
	}}
	reg, _ := newTestRegistrar(tokens, &stubPurchases{err: repository.ErrNotFound}, &stubAppUsers{}, nil)

	_, err := reg.RegisterAppUser(context.Background(), RegisterAppUserParams{
		Token: "gen", AppID: 7, Email: "a@b.c", OrderNumber: "ORD%100",
	})
	assert.ErrorIs(t, err, validation.ErrInvalidOrderNumber)
}

func TestRegisterAppUserMarketplacePrecedence(t *testing.T) {
	tokens := &stubTokens{tokens: map[string]model.PurchaseToken{
		"gen": futureToken("gen", model.IssuanceGeneric, model.TokenActive),
	}}
	purchases := &stubPurchases{purchase: model.MarketplacePurchase{
		PurchaseID: "TXN1", AppID: 7, ExpiresAt: time.Now().UTC().Add(time.Hour),
	}}
	appUsers := &stubAppUsers{}
	reg, _ := newTestRegistrar(tokens, purchases, appUsers, nil)

	// With both a purchase id and an order number, the marketplace
	// purchase wins and the account activates immediately.
	created, err := reg.RegisterAppUser(context.Background(), RegisterAppUserParams{
		Token: "gen", AppID: 7, Email: "a@b.c", OrderNumber: "ORD100", PurchaseID: "TXN1",
	})
	require.NoError(t, err)
	assert.Equal(t, model.AccountActive, created.Status)
	assert.Equal(t, model.SourceMarketplace, created.Source)
	assert.Nil(t, created.OrderNumber)
}

func TestRegisterAppUserExpiredPurchase(t *testing.T) {
	tokens := &stubTokens{tokens: map[string]model.PurchaseToken{
		"gen": futureToken("gen", model.IssuanceGeneric, model.TokenActive),
	}}
	purchases := &stubPurchases{purchase: model.MarketplacePurchase{
		PurchaseID: "TXN1", AppID: 7, ExpiresAt: time.Now().UTC().Add(-time.Hour),
	}}
	reg, _ := newTestRegistrar(tokens, purchases, &stubAppUsers{}, nil)

	_, err := reg.RegisterAppUser(context.Background(), RegisterAppUserParams{
		Token: "gen", AppID: 7, Email: "a@b.c", PurchaseID: "TXN1",
	})
	assert.ErrorIs(t, err, ErrInvalidPurchase)
}

func TestRegisterAppUserTokenGateChecks(t *testing.T) {
	expired := futureToken("old", model.IssuanceUnique, model.TokenPending)
	expired.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	tokens := &stubTokens{tokens: map[string]model.PurchaseToken{
		"old": expired,
		"tok": futureToken("tok", model.IssuanceUnique, model.TokenPending),
	}}
	reg, _ := newTestRegistrar(tokens, &stubPurchases{err: repository.ErrNotFound}, &stubAppUsers{}, nil)

	t.Run("unknown token", func(t *testing.T) {
		_, err := reg.RegisterAppUser(context.Background(), RegisterAppUserParams{Token: "nope", AppID: 7, Email: "a@b.c"})
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
	t.Run("expired token", func(t *testing.T) {
		_, err := reg.RegisterAppUser(context.Background(), RegisterAppUserParams{Token: "old", AppID: 7, Email: "a@b.c"})
		assert.ErrorIs(t, err, ErrTokenExpired)
	})
	t.Run("wrong app", func(t *testing.T) {
		_, err := reg.RegisterAppUser(context.Background(), RegisterAppUserParams{Token: "tok", AppID: 99, Email: "a@b.c"})
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestRegisterAppUserPublishFailureDoesNotFail(t *testing.T) {
	tokens := &stubTokens{tokens: map[string]model.PurchaseToken{
		"tok1": futureToken("tok1", model.IssuanceUnique, model.TokenPending),
	}}
	reg, _ := newTestRegistrar(tokens, &stubPurchases{err: repository.ErrNotFound}, &stubAppUsers{},
		func(ctx context.Context, ev queue.CommissionEvent) error {
			return errors.New("broker down")
		})

	_, err := reg.RegisterAppUser(context.Background(), RegisterAppUserParams{Token: "tok1", AppID: 7, Email: "a@b.c"})
	assert.NoError(t, err, "commission recording is fire-and-forget")
}

func TestRegisterDistributor(t *testing.T) {
	tokens := &stubTokens{tokens: map[string]model.PurchaseToken{
		"reg": futureToken("reg", model.IssuanceUnique, model.TokenPending),
	}}
	reg, dists := newTestRegistrar(tokens, &stubPurchases{err: repository.ErrNotFound}, &stubAppUsers{}, nil)

	created, err := reg.RegisterDistributor(context.Background(), RegisterDistributorParams{
		Token: "reg", Email: "Dist@Example.com", Password: "s3cretpass",
	})
	require.NoError(t, err)
	assert.Equal(t, model.AccountActive, created.Status)
	assert.Equal(t, "dist@example.com", created.Email)
	require.Len(t, dists.created, 1)
}

func TestRegisterDistributorDuplicateOrderNumber(t *testing.T) {
	tokens := &stubTokens{tokens: map[string]model.PurchaseToken{
		"gen": futureToken("gen", model.IssuanceGeneric, model.TokenActive),
	}}
	reg, dists := newTestRegistrar(tokens, &stubPurchases{err: repository.ErrNotFound}, &stubAppUsers{}, nil)
	dists.taken = true

	_, err := reg.RegisterDistributor(context.Background(), RegisterDistributorParams{
		Token: "gen", Email: "dist@example.com", Password: "s3cretpass", OrderNumber: "ORD300",
	})
	assert.ErrorIs(t, err, ErrOrderAlreadyUsed)
	assert.Empty(t, dists.created)
}
