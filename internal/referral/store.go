package referral

import (
	"context"
	"time"
)

// Store is the persistence contract for referral records. The state
// transitions are conditional updates guarded by status = 'pending' so
// concurrent completion attempts resolve to exactly one winner, and the
// completion flip commits in the same storage transaction as the credit
// award to the referrer.
type Store interface {
	// Insert persists a new pending referral after lazily expiring any
	// stale pending row for the same pair. Returns ErrDuplicateReferral if
	// a non-expired referral for (referrer, email) remains.
	Insert(ctx context.Context, r *Referral) error

	// Get returns the referral or ErrNotFound.
	Get(ctx context.Context, id string) (*Referral, error)

	// CompletePending atomically flips a pending, unexpired referral to
	// completed, binds the referred user, stamps the award, and credits the
	// referrer — one storage transaction for flip plus award. Returns
	// ErrAlreadyCompleted when the referral is already completed,
	// ErrExpired when the window passed (flipping status to expired as an
	// observable side effect), and ErrNotFound when the id is unknown.
	CompletePending(ctx context.Context, id, referredUserID string, reward int64, now time.Time) (*Referral, error)

	// ExpireIfDue flips a pending referral past its window to expired.
	// Reports whether the flip happened; a concurrent completion or an
	// earlier expiry leaves the row alone.
	ExpireIfDue(ctx context.Context, id string, now time.Time) (bool, error)

	// PendingIDsByEmail lists pending referrals whose invitee email matches,
	// including ones past expiry; CompletePending settles those to expired.
	PendingIDsByEmail(ctx context.Context, email string) ([]string, error)

	// ByReferrer lists the referrer's referrals newest first, lazily
	// flipping any past-expiry pending rows to expired before the read.
	ByReferrer(ctx context.Context, referrerID string, now time.Time) ([]Referral, error)
}
