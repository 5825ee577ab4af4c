package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/distributor-portal/internal/model"
)

// PurchaseRepo persists marketplace purchase records ingested by the
// webhook adapters.  Rows are written once per purchase id and only ever
// read afterwards; the purchase validator treats expiry as the sole
// invalidation mechanism.
type PurchaseRepo struct{ DB *sql.DB }

func NewPurchaseRepo(db *sql.DB) *PurchaseRepo { return &PurchaseRepo{DB: db} }

// Upsert records a purchase notification.  Webhook deliveries are
// at-least-once, so a redelivery simply overwrites the row with the same
// payload instead of failing.
func (r *PurchaseRepo) Upsert(ctx context.Context, p model.MarketplacePurchase) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO marketplace_purchases
		 (purchase_id, platform, customer_email, app_id, amount_cents, currency, expires_at)
		 VALUES (?,?,?,?,?,?,?)
		 ON DUPLICATE KEY UPDATE
		 platform=VALUES(platform), customer_email=VALUES(customer_email),
		 app_id=VALUES(app_id), amount_cents=VALUES(amount_cents),
		 currency=VALUES(currency), expires_at=VALUES(expires_at)`,
		p.PurchaseID, p.Platform, p.CustomerEmail, p.AppID, p.AmountCents, p.Currency, p.ExpiresAt)
	return err
}

// Find fetches a purchase by the (purchase id, customer email, app) triple
// the validator matches on.  ErrNotFound is returned when no row matches;
// the caller checks expiry itself.
func (r *PurchaseRepo) Find(ctx context.Context, purchaseID, customerEmail string, appID uint64) (model.MarketplacePurchase, error) {
	var p model.MarketplacePurchase
	err := r.DB.QueryRowContext(ctx,
		`SELECT purchase_id, platform, customer_email, app_id, amount_cents, currency, created_at, expires_at
		 FROM marketplace_purchases
		 WHERE purchase_id=? AND customer_email=? AND app_id=? LIMIT 1`,
		purchaseID, customerEmail, appID).
		Scan(&p.PurchaseID, &p.Platform, &p.CustomerEmail, &p.AppID,
			&p.AmountCents, &p.Currency, &p.CreatedAt, &p.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.MarketplacePurchase{}, ErrNotFound
	}
	return p, err
}
