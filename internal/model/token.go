package model

import "time"

// IssuanceType describes how a purchase token may be redeemed.  A unique
// token is single-use proof of purchase; a generic token is reusable and
// each registrant must present a distinct order number.
type IssuanceType string

const (
	IssuanceUnique  IssuanceType = "unique"
	IssuanceGeneric IssuanceType = "generic"
)

// TokenStatus describes the lifecycle state of a purchase token.
// Unique tokens start as pending and become used on successful
// registration.  Generic tokens are active from issuance and stay
// active until they expire; they are never marked used.
type TokenStatus string

const (
	TokenPending TokenStatus = "pending"
	TokenActive  TokenStatus = "active"
	TokenUsed    TokenStatus = "used"
)

// PurchaseToken models a row in the `purchase_tokens` table.  The ID is an
// opaque 128-bit random hex string handed to the buyer.  Tokens are never
// deleted; expiry is checked at validation time rather than enforced by a
// background cleanup.
//
// Fields:
//  ID            – random hex token id (primary key).
//  IssuanceType  – unique or generic.
//  Status        – pending, active or used.
//  DistributorID – distributor the token was issued to.
//  AppID         – application the token grants access to.
//  SubAppID      – optional sub-application (nil when not scoped).
//  CreatedAt     – issuance timestamp.
//  ExpiresAt     – validation cut-off.
type PurchaseToken struct {
	ID            string       // purchase_tokens.id
	IssuanceType  IssuanceType // purchase_tokens.issuance_type
	Status        TokenStatus  // purchase_tokens.status
	DistributorID uint64       // purchase_tokens.distributor_id
	AppID         uint64       // purchase_tokens.app_id
	SubAppID      *uint64      // purchase_tokens.sub_app_id (nullable)
	CreatedAt     time.Time    // purchase_tokens.created_at
	ExpiresAt     time.Time    // purchase_tokens.expires_at
}

// Expired reports whether the token is past its expiry at the given instant.
func (t PurchaseToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
