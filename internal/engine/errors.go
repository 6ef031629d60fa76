package engine

import "errors"

var (
	// ErrForbidden is returned when the actor is not allowed to perform the
	// operation (non-author template edits, non-owner project deletes).
	ErrForbidden = errors.New("forbidden")

	// ErrAlreadyOwned rejects a purchase initiation for a template the buyer
	// has already completed a purchase for.
	ErrAlreadyOwned = errors.New("template already owned")

	// ErrEmailTaken rejects registration with an email already on file.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials covers both unknown emails and wrong passwords,
	// deliberately indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidOTP covers wrong, expired and already-consumed codes.
	ErrInvalidOTP = errors.New("invalid or expired code")

	// ErrPaymentPending is returned when the provider has not (yet) reported
	// the payment completed. The purchase stays PENDING and verification can
	// be retried.
	ErrPaymentPending = errors.New("payment not completed")

	// ErrPaymentFailed is returned when the provider definitively reports
	// the payment failed or expired; the purchase is marked FAILED.
	ErrPaymentFailed = errors.New("payment failed")

	// ErrPurchaseClosed is returned when verification reaches a purchase
	// already in a terminal FAILED or REFUNDED state.
	ErrPurchaseClosed = errors.New("purchase already closed")
)
