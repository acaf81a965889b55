package ledger

import "context"

// Store is the persistence contract for accounts and their transaction log.
// Implementations must make DebitIfSufficient and Credit single atomic
// conditional operations at the storage layer; correctness has to hold
// across independent server processes, so no in-memory locking counts.
type Store interface {
	// Account returns the account or ErrUnauthorized if it does not exist.
	Account(ctx context.Context, id string) (*Account, error)

	// DebitIfSufficient subtracts amount from the balance only if the stored
	// balance covers it, and appends the matching negative transaction in
	// the same storage transaction. Returns the new balance,
	// ErrInsufficientCredits when the conditional update matches no row, or
	// ErrUnauthorized when the account is missing.
	DebitIfSufficient(ctx context.Context, id string, amount int64, reason Reason, note *string) (int64, error)

	// Credit atomically increments the balance and appends the matching
	// positive transaction. Returns the new balance.
	Credit(ctx context.Context, id string, amount int64, reason Reason, note *string) (int64, error)

	// Transactions lists the newest entries for the account.
	Transactions(ctx context.Context, id string, limit int) ([]Transaction, error)

	// TransactionSum returns the sum of all transaction amounts for the
	// account, used to verify the reconciliation invariant.
	TransactionSum(ctx context.Context, id string) (int64, error)

	// SetFlag marks a prerequisite flag true. Flags are flipped by the
	// external training/connection workflows, never by ledger operations.
	SetFlag(ctx context.Context, id string, flag Flag) error
}
