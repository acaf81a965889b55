package ledger

import "errors"

var (
	// ErrUnauthorized means the acting account does not exist.
	ErrUnauthorized = errors.New("account not found")

	// ErrPrerequisiteNotMet means a required account flag is false.
	ErrPrerequisiteNotMet = errors.New("prerequisite not met")

	// ErrInsufficientCredits is returned both by the read-only eligibility
	// gate and by the conditional debit when the balance changed in between.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrInvalidAmount rejects non-positive debit/credit amounts.
	ErrInvalidAmount = errors.New("amount must be greater than zero")
)
