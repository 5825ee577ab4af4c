// Package queue defines message payloads exchanged over the message
// broker and the commission publisher/consumer built on them.
package queue

// CommissionEvent is published after a registration commits so that
// commission bookkeeping can run without touching the primary database.
// Publishing is best-effort: at most one attempt per registration, never
// retried, and a failure does not affect the registration itself.
type CommissionEvent struct {
	DistributorID uint64 `json:"distributor_id"`
	AppID         uint64 `json:"app_id"`
	Email         string `json:"email"`
	Source        string `json:"source"` // marketplace | order_number | direct
	RegisteredAt  string `json:"registered_at"`
}
