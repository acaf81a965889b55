package referral

import "errors"

var (
	// ErrNotFound means the referral id does not exist.
	ErrNotFound = errors.New("referral not found")

	// ErrDuplicateReferral means a non-expired referral already exists for
	// the (referrer, email) pair.
	ErrDuplicateReferral = errors.New("referral already exists for this email")

	// ErrAlreadyCompleted rejects repeated completion attempts; completion
	// is not an idempotent no-op, or duplicate webhook deliveries would
	// double-award the referrer.
	ErrAlreadyCompleted = errors.New("referral already completed")

	// ErrExpired means the referral window passed before completion.
	ErrExpired = errors.New("referral expired")

	// ErrInvalidEmail rejects malformed invitee addresses.
	ErrInvalidEmail = errors.New("invalid invitee email")

	// ErrSelfReferral rejects inviting your own address.
	ErrSelfReferral = errors.New("cannot refer your own email")
)
