package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/distributor-portal/internal/model"
)

type stubOrderScan struct {
	orders []model.Order
}

func (s *stubOrderScan) PendingByScope(ctx context.Context, distributorID *uint64) ([]model.Order, error) {
	return s.orders, nil
}

type stubAccountScan struct {
	accounts []model.AppUser
	batches  [][]model.SweepMatch
	applyErr error
}

func (s *stubAccountScan) PendingByScope(ctx context.Context, distributorID *uint64) ([]model.AppUser, error) {
	return s.accounts, nil
}

func (s *stubAccountScan) ApplyMatches(ctx context.Context, matches []model.SweepMatch) error {
	if s.applyErr != nil {
		return s.applyErr
	}
	batch := make([]model.SweepMatch, len(matches))
	copy(batch, matches)
	s.batches = append(s.batches, batch)
	return nil
}

func strp(s string) *string { return &s }
func u64p(v uint64) *uint64 { return &v }

func TestSweepMatchesPendingPair(t *testing.T) {
	orders := &stubOrderScan{orders: []model.Order{
		{OrderNumber: "ORD200", Status: model.OrderPending, DistributorID: u64p(42)},
	}}
	accounts := &stubAccountScan{accounts: []model.AppUser{
		{ID: 1, DistributorID: 42, Status: model.AccountPending, OrderNumber: strp("ORD200")},
	}}
	sw := NewSweeper(orders, accounts, nil, 25)

	res, err := sw.Sweep(context.Background(), u64p(42))
	require.NoError(t, err)

	assert.Equal(t, 1, res.OrdersScanned)
	assert.Equal(t, 1, res.AccountsScanned)
	assert.Equal(t, 1, res.Matched)
	require.Len(t, accounts.batches, 1)
	assert.Equal(t, model.SweepMatch{OrderNumber: "ORD200", AccountID: 1}, accounts.batches[0][0])
}

func TestSweepOwnedOrderSkipsForeignAccount(t *testing.T) {
	orders := &stubOrderScan{orders: []model.Order{
		{OrderNumber: "ORD200", Status: model.OrderPending, DistributorID: u64p(42)},
	}}
	accounts := &stubAccountScan{accounts: []model.AppUser{
		{ID: 1, DistributorID: 99, Status: model.AccountPending, OrderNumber: strp("ORD200")},
	}}
	sw := NewSweeper(orders, accounts, nil, 25)

	res, err := sw.Sweep(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, res.Matched)
	assert.Empty(t, accounts.batches)
}

func TestSweepGlobalOrderMatchesAnyone(t *testing.T) {
	orders := &stubOrderScan{orders: []model.Order{
		{OrderNumber: "ORD300", Status: model.OrderPending, DistributorID: nil},
	}}
	accounts := &stubAccountScan{accounts: []model.AppUser{
		{ID: 5, DistributorID: 99, Status: model.AccountPending, OrderNumber: strp("ORD300")},
	}}
	sw := NewSweeper(orders, accounts, nil, 25)

	res, err := sw.Sweep(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Matched)
}

func TestSweepAccountConsumedOnce(t *testing.T) {
	// Two orders with the same number; only one account exists, so only
	// one pair may be emitted.
	orders := &stubOrderScan{orders: []model.Order{
		{OrderNumber: "ORD400", Status: model.OrderPending},
		{OrderNumber: "ORD400", Status: model.OrderPending},
	}}
	accounts := &stubAccountScan{accounts: []model.AppUser{
		{ID: 1, DistributorID: 1, Status: model.AccountPending, OrderNumber: strp("ORD400")},
	}}
	sw := NewSweeper(orders, accounts, nil, 25)

	res, err := sw.Sweep(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Matched)
}

func TestSweepFlushesInBatches(t *testing.T) {
	var orders []model.Order
	var accs []model.AppUser
	for i := 1; i <= 5; i++ {
		num := "ORD" + string(rune('0'+i))
		orders = append(orders, model.Order{OrderNumber: num, Status: model.OrderPending})
		accs = append(accs, model.AppUser{ID: uint64(i), DistributorID: 1, Status: model.AccountPending, OrderNumber: strp(num)})
	}
	accounts := &stubAccountScan{accounts: accs}
	sw := NewSweeper(&stubOrderScan{orders: orders}, accounts, nil, 2)

	res, err := sw.Sweep(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 5, res.Matched)
	require.Len(t, accounts.batches, 3)
	assert.Len(t, accounts.batches[0], 2)
	assert.Len(t, accounts.batches[1], 2)
	assert.Len(t, accounts.batches[2], 1)
}

type stubDistScan struct {
	pending []model.User
	batches [][]model.SweepMatch
}

func (s *stubDistScan) PendingDistributors(ctx context.Context) ([]model.User, error) {
	return s.pending, nil
}

func (s *stubDistScan) ApplyDistributorMatches(ctx context.Context, matches []model.SweepMatch) error {
	batch := make([]model.SweepMatch, len(matches))
	copy(batch, matches)
	s.batches = append(s.batches, batch)
	return nil
}

func TestSweepReconcilesPendingDistributors(t *testing.T) {
	orders := &stubOrderScan{orders: []model.Order{
		{OrderNumber: "GLOB1", Status: model.OrderPending}, // global
	}}
	accounts := &stubAccountScan{}
	dists := &stubDistScan{pending: []model.User{
		{ID: 9, Role: model.RoleDistributor, Status: model.AccountPending, OrderNumber: strp("GLOB1")},
	}}
	sw := NewSweeper(orders, accounts, dists, 25)

	res, err := sw.Sweep(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, res.DistributorsScanned)
	assert.Equal(t, 1, res.Matched)
	require.Len(t, dists.batches, 1)
	assert.Equal(t, model.SweepMatch{OrderNumber: "GLOB1", AccountID: 9}, dists.batches[0][0])
}

func TestSweepSkipsDistributorsInScopedRun(t *testing.T) {
	orders := &stubOrderScan{orders: []model.Order{
		{OrderNumber: "GLOB1", Status: model.OrderPending},
	}}
	dists := &stubDistScan{pending: []model.User{
		{ID: 9, Status: model.AccountPending, OrderNumber: strp("GLOB1")},
	}}
	sw := NewSweeper(orders, &stubAccountScan{}, dists, 25)

	// A distributor-scoped sweep never touches portal accounts.
	res, err := sw.Sweep(context.Background(), u64p(42))
	require.NoError(t, err)
	assert.Zero(t, res.DistributorsScanned)
	assert.Zero(t, res.Matched)
	assert.Empty(t, dists.batches)
}

func TestSweepOrderConsumedByAppUserNotReusedForDistributor(t *testing.T) {
	orders := &stubOrderScan{orders: []model.Order{
		{OrderNumber: "GLOB1", Status: model.OrderPending},
	}}
	accounts := &stubAccountScan{accounts: []model.AppUser{
		{ID: 1, DistributorID: 1, Status: model.AccountPending, OrderNumber: strp("GLOB1")},
	}}
	dists := &stubDistScan{pending: []model.User{
		{ID: 9, Status: model.AccountPending, OrderNumber: strp("GLOB1")},
	}}
	sw := NewSweeper(orders, accounts, dists, 25)

	res, err := sw.Sweep(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Matched)
	assert.Empty(t, dists.batches, "the order was already paired with an app user")
}

// sweepStore is a stateful pending set shared by statefulOrders and
// statefulAccounts: applying a batch removes the matched rows, the way
// the real store flips them to used/active.
type sweepStore struct {
	orders   []model.Order
	accounts []model.AppUser
}

func (st *sweepStore) apply(matches []model.SweepMatch) {
	for _, m := range matches {
		for i, o := range st.orders {
			if o.OrderNumber == m.OrderNumber {
				st.orders = append(st.orders[:i], st.orders[i+1:]...)
				break
			}
		}
		for i, a := range st.accounts {
			if a.ID == m.AccountID {
				st.accounts = append(st.accounts[:i], st.accounts[i+1:]...)
				break
			}
		}
	}
}

type statefulOrders struct{ st *sweepStore }

func (s *statefulOrders) PendingByScope(ctx context.Context, distributorID *uint64) ([]model.Order, error) {
	return append([]model.Order(nil), s.st.orders...), nil
}

type statefulAccounts struct{ st *sweepStore }

func (s *statefulAccounts) PendingByScope(ctx context.Context, distributorID *uint64) ([]model.AppUser, error) {
	return append([]model.AppUser(nil), s.st.accounts...), nil
}

func (s *statefulAccounts) ApplyMatches(ctx context.Context, matches []model.SweepMatch) error {
	s.st.apply(matches)
	return nil
}

func TestSweepRerunIsIdempotent(t *testing.T) {
	st := &sweepStore{
		orders: []model.Order{
			{OrderNumber: "ORD1", Status: model.OrderPending},
			{OrderNumber: "ORD2", Status: model.OrderPending},
		},
		accounts: []model.AppUser{
			{ID: 1, DistributorID: 1, Status: model.AccountPending, OrderNumber: strp("ORD1")},
			{ID: 2, DistributorID: 1, Status: model.AccountPending, OrderNumber: strp("ORD2")},
		},
	}
	sw := NewSweeper(&statefulOrders{st: st}, &statefulAccounts{st: st}, nil, 25)

	res, err := sw.Sweep(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Matched)

	// Everything was consumed the first time round; a re-run finds
	// nothing pending and commits nothing.
	res, err = sw.Sweep(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, res.Matched)
	assert.Zero(t, res.OrdersScanned)
	assert.Zero(t, res.AccountsScanned)
}

func TestSweepReportsPartialResultOnFlushError(t *testing.T) {
	orders := &stubOrderScan{orders: []model.Order{
		{OrderNumber: "ORD1", Status: model.OrderPending},
	}}
	accounts := &stubAccountScan{
		accounts: []model.AppUser{{ID: 1, DistributorID: 1, Status: model.AccountPending, OrderNumber: strp("ORD1")}},
		applyErr: errors.New("store unavailable"),
	}
	sw := NewSweeper(orders, accounts, nil, 25)

	res, err := sw.Sweep(context.Background(), nil)
	require.Error(t, err)
	assert.Zero(t, res.Matched, "failed batches are not counted")
	assert.Equal(t, 1, res.OrdersScanned)
}
