// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow higher layers such as
// services and handlers to distinguish between failure scenarios without
// inspecting driver error strings.  MySQL duplicate-key violations are
// translated into the Err*Exists/ErrDuplicate* values at the repository
// boundary.
package repository

import (
	"errors"
	"strings"
)

// ErrForbidden is returned when the caller attempts an operation on a
// resource scoped to another distributor.  Handlers translate this into
// an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrNotFound is returned when a referenced row (token, app, sub-app,
// order, account) does not exist.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when creating a portal account whose email
// is already registered.
var ErrEmailExists = errors.New("email already exists")

// ErrDuplicateAccount is returned when an app-user registration collides
// with an existing (app_id, email) pair.  The conditional insert
// guarantees at most one registration per key even under concurrency.
var ErrDuplicateAccount = errors.New("account already exists")

// ErrDuplicateOrder is returned when inserting an order number that is
// already present in the orders table.
var ErrDuplicateOrder = errors.New("order number already exists")

// ErrConflict is returned when a status transition loses a race, for
// example marking a purchase token used when a concurrent registration
// already consumed it.  The enclosing transaction is rolled back.
var ErrConflict = errors.New("conflict")

// isDuplicateKey reports whether the driver error is a MySQL duplicate-key
// violation (error 1062).
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}
