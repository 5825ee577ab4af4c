package service

import (
	"context"

	"github.com/iliyamo/distributor-portal/internal/model"
)

// OrderScanner exposes the pending-order scan for reconciliation.
// *repository.OrderRepo satisfies it.
type OrderScanner interface {
	PendingByScope(ctx context.Context, distributorID *uint64) ([]model.Order, error)
}

// AccountScanner exposes the pending app-user scan and the batched
// activation write.  *repository.AppUserRepo satisfies it.
type AccountScanner interface {
	PendingByScope(ctx context.Context, distributorID *uint64) ([]model.AppUser, error)
	ApplyMatches(ctx context.Context, matches []model.SweepMatch) error
}

// DistributorScanner exposes the same pair for pending distributor
// accounts.  *repository.UserRepo satisfies it.  Distributor
// registrations can only consume global orders (a new distributor owns
// nothing yet), so this half of the sweep runs in the global scope only.
type DistributorScanner interface {
	PendingDistributors(ctx context.Context) ([]model.User, error)
	ApplyDistributorMatches(ctx context.Context, matches []model.SweepMatch) error
}

// Sweeper batch-matches pending orders against pending accounts (app
// users and distributors) and activates both sides.  A sweep is atomic
// per flushed batch, not across the whole run: re-running after a
// mid-sweep failure is safe because already-matched rows no longer scan
// as pending.
type Sweeper struct {
	orders       OrderScanner
	accounts     AccountScanner
	distributors DistributorScanner
	batchSize    int
}

// DefaultSweepBatchSize matches the underlying store's transactional item
// cap.  It is configurable, not architectural.
const DefaultSweepBatchSize = 25

// NewSweeper constructs a Sweeper with the given per-transaction batch
// cap.  distributors may be nil to skip distributor reconciliation.
func NewSweeper(orders OrderScanner, accounts AccountScanner, distributors DistributorScanner, batchSize int) *Sweeper {
	if orders == nil || accounts == nil {
		panic("nil dependency passed to NewSweeper")
	}
	if batchSize <= 0 {
		batchSize = DefaultSweepBatchSize
	}
	return &Sweeper{orders: orders, accounts: accounts, distributors: distributors, batchSize: batchSize}
}

// SweepResult reports what a sweep run saw and did.
type SweepResult struct {
	OrdersScanned       int `json:"orders_scanned"`
	AccountsScanned     int `json:"accounts_scanned"`
	DistributorsScanned int `json:"distributors_scanned"`
	Matched             int `json:"matched"`
}

// batcher accumulates matches and flushes them through apply in chunks
// of at most size, counting only committed pairs into *matched.
type batcher struct {
	apply   func(context.Context, []model.SweepMatch) error
	size    int
	matched *int
	batch   []model.SweepMatch
}

func (b *batcher) add(ctx context.Context, m model.SweepMatch) error {
	b.batch = append(b.batch, m)
	if len(b.batch) >= b.size {
		return b.flush(ctx)
	}
	return nil
}

func (b *batcher) flush(ctx context.Context) error {
	if len(b.batch) == 0 {
		return nil
	}
	if err := b.apply(ctx, b.batch); err != nil {
		return err
	}
	*b.matched += len(b.batch)
	b.batch = b.batch[:0]
	return nil
}

// Sweep reconciles pending orders with pending accounts inside the given
// scope (nil for the global admin sweep, otherwise one distributor).  For
// every pending order the first pending account with the same number and
// a matching owner is paired; pairs are flushed in batches of at most
// batchSize, each batch one atomic write.  In the global scope, orders
// left unmatched by app users are then tried against pending distributor
// accounts.  Matched counts only pairs that were actually committed, so
// a mid-run error reports the partial result alongside the error.
func (s *Sweeper) Sweep(ctx context.Context, distributorID *uint64) (SweepResult, error) {
	var res SweepResult

	orders, err := s.orders.PendingByScope(ctx, distributorID)
	if err != nil {
		return res, err
	}
	accounts, err := s.accounts.PendingByScope(ctx, distributorID)
	if err != nil {
		return res, err
	}
	res.OrdersScanned = len(orders)
	res.AccountsScanned = len(accounts)

	// Index pending app users by order number; each account is consumed
	// at most once per run.
	byNumber := make(map[string][]*model.AppUser, len(accounts))
	for i := range accounts {
		a := &accounts[i]
		if a.OrderNumber == nil || *a.OrderNumber == "" {
			continue
		}
		byNumber[*a.OrderNumber] = append(byNumber[*a.OrderNumber], a)
	}
	consumed := make(map[uint64]bool)
	usedOrders := make(map[int]bool, len(orders))

	users := &batcher{apply: s.accounts.ApplyMatches, size: s.batchSize, matched: &res.Matched}
	for i, o := range orders {
		for _, a := range byNumber[o.OrderNumber] {
			if consumed[a.ID] {
				continue
			}
			// An owned order only reconciles accounts of the same
			// distributor; a global order matches any account in scope.
			if o.DistributorID != nil && a.DistributorID != *o.DistributorID {
				continue
			}
			consumed[a.ID] = true
			usedOrders[i] = true
			if err := users.add(ctx, model.SweepMatch{OrderNumber: o.OrderNumber, AccountID: a.ID}); err != nil {
				return res, err
			}
			break
		}
	}
	if err := users.flush(ctx); err != nil {
		return res, err
	}

	// Distributor accounts only ever bind global orders, so they are
	// reconciled by the global sweep alone.
	if s.distributors != nil && distributorID == nil {
		pending, err := s.distributors.PendingDistributors(ctx)
		if err != nil {
			return res, err
		}
		res.DistributorsScanned = len(pending)

		distByNumber := make(map[string][]*model.User, len(pending))
		for i := range pending {
			d := &pending[i]
			if d.OrderNumber == nil || *d.OrderNumber == "" {
				continue
			}
			distByNumber[*d.OrderNumber] = append(distByNumber[*d.OrderNumber], d)
		}
		consumedDist := make(map[uint64]bool)

		dists := &batcher{apply: s.distributors.ApplyDistributorMatches, size: s.batchSize, matched: &res.Matched}
		for i, o := range orders {
			if usedOrders[i] || o.DistributorID != nil {
				continue
			}
			for _, d := range distByNumber[o.OrderNumber] {
				if consumedDist[d.ID] {
					continue
				}
				consumedDist[d.ID] = true
				usedOrders[i] = true
				if err := dists.add(ctx, model.SweepMatch{OrderNumber: o.OrderNumber, AccountID: d.ID}); err != nil {
					return res, err
				}
				break
			}
		}
		if err := dists.flush(ctx); err != nil {
			return res, err
		}
	}
	return res, nil
}
