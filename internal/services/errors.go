package services

import "errors"

// Lifecycle errors. All are terminal and surfaced to the caller as a
// rejected operation; nothing here is retried server-side.
var (
	// ErrUnauthenticated: no resolvable actor for a call that needs one.
	ErrUnauthenticated = errors.New("must be logged in")
	// ErrActorNotFound: the authenticated id has no backing user record.
	ErrActorNotFound = errors.New("user not found")

	ErrDonationNotFound = errors.New("donation not found")
	ErrRequestNotFound  = errors.New("request not found")
	ErrProfileNotFound  = errors.New("profile not found")

	// ErrInvalidState: the status precondition for a transition failed
	// (e.g. reserving a donation that is no longer available).
	ErrInvalidState = errors.New("listing is not in a valid state for this action")
	// ErrSelfAction: the owner attempted a counterparty-only action.
	ErrSelfAction = errors.New("cannot act on your own listing")
	// ErrForbidden: a non-owner attempted an owner-only action.
	ErrForbidden = errors.New("not authorized to modify this listing")
)

// User registry errors.
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrEmailExists     = errors.New("email already registered")
	ErrInvalidPassword = errors.New("invalid password")
)

// Image errors.
var (
	ErrImageNotFound = errors.New("image not found")
)
