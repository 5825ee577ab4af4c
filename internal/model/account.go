package model

import "time"

// AccountStatus is shared by portal accounts (distributors) and app users.
// Pending accounts await order reconciliation, active accounts are fully
// registered, inactive accounts have been switched off by an operator.
type AccountStatus string

const (
	AccountPending  AccountStatus = "pending"
	AccountActive   AccountStatus = "active"
	AccountInactive AccountStatus = "inactive"
)

// PurchaseSource tags how a registration proved its purchase.  It is
// carried into commission recording.
type PurchaseSource string

const (
	SourceMarketplace PurchaseSource = "marketplace"
	SourceOrderNumber PurchaseSource = "order_number"
	SourceDirect      PurchaseSource = "direct"
)

// Portal roles stored in users.role and carried in the JWT "role" claim.
const (
	RoleAdmin       = "ADMIN"
	RoleDistributor = "DISTRIBUTOR"
)

// User represents a portal login account as stored in the `users` table:
// administrators and distributors.  Distributor rows additionally carry the
// registration metadata (link type and the order number presented when the
// distributor registered, if any).
//
// Fields:
//  ID           – primary key identifier.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – ADMIN or DISTRIBUTOR.
//  Status       – pending, active or inactive.
//  LinkType     – issuance type copied from the registration token.
//  OrderNumber  – order number bound at registration (nil when none).
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64        // users.id
	Email        string        // users.email
	PasswordHash string        // users.password_hash
	Role         string        // users.role
	Status       AccountStatus // users.status
	LinkType     IssuanceType  // users.link_type
	OrderNumber  *string       // users.order_number (nullable)
	CreatedAt    time.Time     // users.created_at
	UpdatedAt    time.Time     // users.updated_at
}

// AppUser represents an activated (or pending) end-user account in the
// `app_users` table.  The (AppID, Email) pair is unique: at most one
// registration ever succeeds for a given app and email.
type AppUser struct {
	ID            uint64         // app_users.id
	AppID         uint64         // app_users.app_id
	SubAppID      *uint64        // app_users.sub_app_id (nullable)
	Email         string         // app_users.email
	DistributorID uint64         // app_users.distributor_id
	Status        AccountStatus  // app_users.status
	LinkType      IssuanceType   // app_users.link_type (copied from the token)
	OrderNumber   *string        // app_users.order_number (nullable)
	Source        PurchaseSource // app_users.purchase_source
	CreatedAt     time.Time      // app_users.created_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a portal user; only the SHA-256 hash of the
// raw value is stored.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
