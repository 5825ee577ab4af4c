package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/distributor-portal/internal/model"
)

// OrderRepo persists uploaded order numbers.  Orders are append-only:
// rows are inserted pending and flipped to used exactly once, either by a
// registration transaction or by the reconciliation sweeper.
type OrderRepo struct{ DB *sql.DB }

func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{DB: db} }

// Insert adds a single pending order.  Order numbers are globally unique;
// a duplicate insert returns ErrDuplicateOrder.  The caller must pass an
// already sanitized number.
func (r *OrderRepo) Insert(ctx context.Context, orderNumber string, distributorID *uint64) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO orders (order_number, status, distributor_id) VALUES (?,?,?)`,
		orderNumber, model.OrderPending, distributorID)
	if isDuplicateKey(err) {
		return ErrDuplicateOrder
	}
	return err
}

// bulkOrderChunk caps the rows per multi-row INSERT so an arbitrarily
// large upload never builds a statement past the server's packet and
// placeholder limits.
const bulkOrderChunk = 500

// BulkInsert inserts many pending orders for one owner and returns how
// many rows were actually added.  Numbers already present are skipped via
// INSERT IGNORE so a partially overlapping upload is not an error.  The
// upload is written in chunks of bulkOrderChunk rows.
func (r *OrderRepo) BulkInsert(ctx context.Context, orderNumbers []string, distributorID *uint64) (int64, error) {
	var total int64
	for _, chunk := range chunkStrings(orderNumbers, bulkOrderChunk) {
		query := `INSERT IGNORE INTO orders (order_number, status, distributor_id) VALUES `
		args := make([]interface{}, 0, len(chunk)*3)
		for i, num := range chunk {
			if i > 0 {
				query += ","
			}
			query += "(?, ?, ?)"
			args = append(args, num, model.OrderPending, distributorID)
		}
		res, err := r.DB.ExecContext(ctx, query, args...)
		if err != nil {
			return total, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// chunkStrings splits items into consecutive slices of at most size
// elements, preserving order.
func chunkStrings(items []string, size int) [][]string {
	if len(items) == 0 {
		return nil
	}
	chunks := make([][]string, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}

// findPendingOrderTx looks up a pending order by number inside an existing
// transaction, restricted to orders the distributor may consume: their own
// plus global (ownerless) ones.  FOR UPDATE keeps a concurrent
// registration or sweep from consuming the same order before this
// transaction commits.  The boolean is false when no matching pending
// order exists.
func findPendingOrderTx(ctx context.Context, tx *sql.Tx, orderNumber string, distributorID uint64) (bool, error) {
	var num string
	err := tx.QueryRowContext(ctx,
		`SELECT order_number FROM orders
		 WHERE order_number=? AND status=? AND (distributor_id IS NULL OR distributor_id=?)
		 LIMIT 1 FOR UPDATE`,
		orderNumber, model.OrderPending, distributorID).Scan(&num)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// markOrderUsedTx flips a pending order to used inside an existing
// transaction.  Zero affected rows mean another writer got there first;
// ErrConflict is returned so the caller rolls back.
func markOrderUsedTx(ctx context.Context, tx *sql.Tx, orderNumber string) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE orders SET status=? WHERE order_number=? AND status=?`,
		model.OrderUsed, orderNumber, model.OrderPending)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// PendingByScope returns all pending orders visible to the sweep scope.
// A nil distributorID means the global (admin) sweep over every pending
// order; otherwise the distributor's own orders plus global ones.
func (r *OrderRepo) PendingByScope(ctx context.Context, distributorID *uint64) ([]model.Order, error) {
	const base = `SELECT order_number, status, distributor_id, created_at FROM orders WHERE status=?`
	var (
		rows *sql.Rows
		err  error
	)
	if distributorID == nil {
		rows, err = r.DB.QueryContext(ctx, base+` ORDER BY created_at`, model.OrderPending)
	} else {
		rows, err = r.DB.QueryContext(ctx,
			base+` AND (distributor_id IS NULL OR distributor_id=?) ORDER BY created_at`,
			model.OrderPending, *distributorID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrders(rows)
}

// ListByScope returns every order visible to the caller regardless of
// status, newest first.  Admins (nil distributorID) see all orders.
func (r *OrderRepo) ListByScope(ctx context.Context, distributorID *uint64) ([]model.Order, error) {
	const base = `SELECT order_number, status, distributor_id, created_at FROM orders`
	var (
		rows *sql.Rows
		err  error
	)
	if distributorID == nil {
		rows, err = r.DB.QueryContext(ctx, base+` ORDER BY created_at DESC`)
	} else {
		rows, err = r.DB.QueryContext(ctx,
			base+` WHERE distributor_id IS NULL OR distributor_id=? ORDER BY created_at DESC`,
			*distributorID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrders(rows)
}

func scanOrders(rows *sql.Rows) ([]model.Order, error) {
	orders := make([]model.Order, 0)
	for rows.Next() {
		var (
			o     model.Order
			owner sql.NullInt64
		)
		if err := rows.Scan(&o.OrderNumber, &o.Status, &owner, &o.CreatedAt); err != nil {
			return nil, err
		}
		if owner.Valid {
			v := uint64(owner.Int64)
			o.DistributorID = &v
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}
