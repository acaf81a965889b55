package referral

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scriptaiapp/scriptai-backend/internal/ledger"
	"github.com/scriptaiapp/scriptai-backend/internal/store"
)

const uniqueViolation = "23505"

type PGStore struct {
	Pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{Pool: pool}
}

const referralColumns = `id::text, referrer_id::text, referred_email, referred_user_id::text,
status, credits_awarded, referral_code, created_at, expires_at, completed_at`

func scanReferral(row pgx.Row) (*Referral, error) {
	var r Referral
	err := row.Scan(&r.ID, &r.ReferrerID, &r.ReferredEmail, &r.ReferredUserID,
		&r.Status, &r.CreditsAwarded, &r.ReferralCode, &r.CreatedAt, &r.ExpiresAt, &r.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *PGStore) Insert(ctx context.Context, r *Referral) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return store.Classify(err)
	}
	defer tx.Rollback(ctx)

	// Lazy expiry: a stale pending row for the pair must not block a fresh
	// invitation. The partial unique index then rejects true duplicates.
	_, err = tx.Exec(ctx, `
UPDATE referrals
SET status = 'expired'
WHERE referrer_id = $1::uuid
  AND lower(referred_email) = lower($2)
  AND status = 'pending'
  AND expires_at < $3
`, r.ReferrerID, r.ReferredEmail, r.CreatedAt)
	if err != nil {
		return store.Classify(err)
	}

	err = tx.QueryRow(ctx, `
INSERT INTO referrals (referrer_id, referred_email, status, referral_code, created_at, expires_at)
VALUES ($1::uuid, $2, 'pending', $3, $4, $5)
RETURNING id::text
`, r.ReferrerID, r.ReferredEmail, r.ReferralCode, r.CreatedAt, r.ExpiresAt).Scan(&r.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateReferral
		}
		return store.Classify(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return store.Classify(err)
	}
	return nil
}

func (s *PGStore) Get(ctx context.Context, id string) (*Referral, error) {
	r, err := scanReferral(s.Pool.QueryRow(ctx,
		`SELECT `+referralColumns+` FROM referrals WHERE id = $1::uuid`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, store.Classify(err)
	}
	return r, nil
}

func (s *PGStore) CompletePending(ctx context.Context, id, referredUserID string, reward int64, now time.Time) (*Referral, error) {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, store.Classify(err)
	}
	defer tx.Rollback(ctx)

	// Row lock first so the status read and the conditional flip below see
	// a stable state; the status guard on the UPDATE still makes concurrent
	// completion attempts (duplicate webhook deliveries included) resolve
	// to exactly one winner.
	r, err := scanReferral(tx.QueryRow(ctx, `
SELECT `+referralColumns+` FROM referrals WHERE id = $1::uuid FOR UPDATE
`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, store.Classify(err)
	}

	switch {
	case r.Status == StatusCompleted:
		return nil, ErrAlreadyCompleted
	case r.Status == StatusExpired:
		return nil, ErrExpired
	case r.ExpiryDue(now):
		// Observable side effect of reading past the window: the row flips
		// to expired and can never complete afterwards.
		if _, err := tx.Exec(ctx,
			`UPDATE referrals SET status = 'expired' WHERE id = $1::uuid AND status = 'pending'`, id); err != nil {
			return nil, store.Classify(err)
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, store.Classify(err)
		}
		return nil, ErrExpired
	}

	r, err = scanReferral(tx.QueryRow(ctx, `
UPDATE referrals
SET status = 'completed',
    referred_user_id = $2::uuid,
    credits_awarded = $3,
    completed_at = $4
WHERE id = $1::uuid AND status = 'pending'
RETURNING `+referralColumns, id, referredUserID, reward, now))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAlreadyCompleted
	}
	if err != nil {
		return nil, store.Classify(err)
	}

	// Flip and award commit or roll back together.
	note := fmt.Sprintf("referral %s", r.ID)
	if _, err := ledger.CreditTx(ctx, tx, r.ReferrerID, reward, ledger.ReasonReferralAward, &note); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, store.Classify(err)
	}
	return r, nil
}

func (s *PGStore) ExpireIfDue(ctx context.Context, id string, now time.Time) (bool, error) {
	tag, err := s.Pool.Exec(ctx, `
UPDATE referrals
SET status = 'expired'
WHERE id = $1::uuid AND status = 'pending' AND expires_at < $2
`, id, now)
	if err != nil {
		return false, store.Classify(err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PGStore) PendingIDsByEmail(ctx context.Context, email string) ([]string, error) {
	rows, err := s.Pool.Query(ctx, `
SELECT id::text
FROM referrals
WHERE lower(referred_email) = lower($1) AND status = 'pending'
ORDER BY created_at
`, email)
	if err != nil {
		return nil, store.Classify(err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, store.Classify(err)
		}
		ids = append(ids, id)
	}
	return ids, store.Classify(rows.Err())
}

func (s *PGStore) ByReferrer(ctx context.Context, referrerID string, now time.Time) ([]Referral, error) {
	// Expiry is evaluated lazily on read, not by a background sweep.
	_, err := s.Pool.Exec(ctx, `
UPDATE referrals
SET status = 'expired'
WHERE referrer_id = $1::uuid AND status = 'pending' AND expires_at < $2
`, referrerID, now)
	if err != nil {
		return nil, store.Classify(err)
	}

	rows, err := s.Pool.Query(ctx, `
SELECT `+referralColumns+`
FROM referrals
WHERE referrer_id = $1::uuid
ORDER BY created_at DESC
`, referrerID)
	if err != nil {
		return nil, store.Classify(err)
	}
	defer rows.Close()

	var out []Referral
	for rows.Next() {
		var r Referral
		if err := rows.Scan(&r.ID, &r.ReferrerID, &r.ReferredEmail, &r.ReferredUserID,
			&r.Status, &r.CreditsAwarded, &r.ReferralCode, &r.CreatedAt, &r.ExpiresAt, &r.CompletedAt); err != nil {
			return nil, store.Classify(err)
		}
		out = append(out, r)
	}
	return out, store.Classify(rows.Err())
}
