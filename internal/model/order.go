package model

import "time"

// OrderStatus is the lifecycle state of an uploaded order number.  Orders
// move from pending to used exactly once, either by the reconciliation
// sweeper or inside a registration transaction.  Orders are never deleted.
type OrderStatus string

const (
	OrderPending OrderStatus = "pending"
	OrderUsed    OrderStatus = "used"
)

// Order models a row in the `orders` table.  The order number is the
// primary key and is stored in sanitized form (alphanumeric plus
// hyphen/underscore/period, at most 50 characters).  DistributorID is nil
// for global orders that any distributor's registrants may consume.
type Order struct {
	OrderNumber   string      // orders.order_number
	Status        OrderStatus // orders.status
	DistributorID *uint64     // orders.distributor_id (nullable, nil = global)
	CreatedAt     time.Time   // orders.created_at
}

// SweepMatch pairs a pending order with the pending account (app user or
// distributor) that presented its number.  The reconciliation sweeper
// emits matches and the repositories apply each batch atomically (order
// to used, account to active).
type SweepMatch struct {
	OrderNumber string
	AccountID   uint64
}
