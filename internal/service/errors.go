// Package service implements the token issuance, purchase validation,
// account writing and order reconciliation logic on top of the repository
// layer.  Services hold small consumer-side interfaces so the decision
// logic can be exercised against stubs.
package service

import "errors"

// Sentinel errors for the user-visible failure taxonomy.  Handlers map
// each of these to a stable {code, message} response; none of them is
// retried by the core.
var (
	// ErrInvalidToken is returned when the presented token does not exist
	// or does not match the requested app.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired is returned when the token is past its expiry.
	ErrTokenExpired = errors.New("token expired")

	// ErrInvalidTokenStatus is returned when the token's status does not
	// match its issuance type: unique tokens must be pending, generic
	// tokens must be active.
	ErrInvalidTokenStatus = errors.New("invalid token status")

	// ErrAppNotAvailable is returned when issuing against a missing or
	// inactive app.
	ErrAppNotAvailable = errors.New("app not available")

	// ErrInvalidSubApp is returned when the sub-app does not map to the app.
	ErrInvalidSubApp = errors.New("invalid sub app")

	// ErrAppNotAuthorized is returned when the distributor is not
	// authorized to sell the app.
	ErrAppNotAuthorized = errors.New("app not authorized")

	// ErrOrderAlreadyUsed is returned when the order number is already
	// bound to another account under the same distributor.
	ErrOrderAlreadyUsed = errors.New("order number already used")

	// ErrInvalidPurchase is returned when a supplied marketplace purchase
	// id cannot be matched to an unexpired purchase for the app and email.
	ErrInvalidPurchase = errors.New("invalid marketplace purchase")
)
