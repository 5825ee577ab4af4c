package model

import "time"

// MarketplacePurchase is a pre-validated external payment ingested via a
// platform webhook into `marketplace_purchases`.  The purchase validator
// only ever reads these rows; a purchase is never mutated and expiry alone
// invalidates it.
type MarketplacePurchase struct {
	PurchaseID    string    // marketplace_purchases.purchase_id
	Platform      string    // marketplace_purchases.platform (e.g. "paypal")
	CustomerEmail string    // marketplace_purchases.customer_email
	AppID         uint64    // marketplace_purchases.app_id
	AmountCents   uint64    // marketplace_purchases.amount_cents
	Currency      string    // marketplace_purchases.currency
	CreatedAt     time.Time // marketplace_purchases.created_at
	ExpiresAt     time.Time // marketplace_purchases.expires_at
}

// Expired reports whether the purchase can no longer back a registration.
func (p MarketplacePurchase) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}
