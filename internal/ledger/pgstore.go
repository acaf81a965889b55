package ledger

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scriptaiapp/scriptai-backend/internal/store"
)

// PGStore is the Postgres-backed Store. All mutations go through single
// conditional statements so two concurrent requests against the same
// account can never both pass on a balance only one of them fits.
type PGStore struct {
	Pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{Pool: pool}
}

func (s *PGStore) Account(ctx context.Context, id string) (*Account, error) {
	var a Account
	err := s.Pool.QueryRow(ctx, `
SELECT id::text, email, display_name, credits, ai_trained, platform_connected, created_at
FROM accounts
WHERE id = $1::uuid
`, id).Scan(&a.ID, &a.Email, &a.DisplayName, &a.Credits, &a.AITrained, &a.PlatformConnected, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, store.Classify(err)
	}
	return &a, nil
}

func (s *PGStore) DebitIfSufficient(ctx context.Context, id string, amount int64, reason Reason, note *string) (int64, error) {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, store.Classify(err)
	}
	defer tx.Rollback(ctx)

	var balance int64
	err = tx.QueryRow(ctx, `
UPDATE accounts
SET credits = credits - $2
WHERE id = $1::uuid AND credits >= $2
RETURNING credits
`, id, amount).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		// Zero rows means either no such account or not enough credits.
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1::uuid)`, id).Scan(&exists); err != nil {
			return 0, store.Classify(err)
		}
		if !exists {
			return 0, ErrUnauthorized
		}
		return 0, ErrInsufficientCredits
	}
	if err != nil {
		return 0, store.Classify(err)
	}

	if err := appendTransaction(ctx, tx, id, -amount, reason, note); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, store.Classify(err)
	}
	return balance, nil
}

func (s *PGStore) Credit(ctx context.Context, id string, amount int64, reason Reason, note *string) (int64, error) {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, store.Classify(err)
	}
	defer tx.Rollback(ctx)

	balance, err := CreditTx(ctx, tx, id, amount, reason, note)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, store.Classify(err)
	}
	return balance, nil
}

// CreditTx applies an atomic credit inside a caller-owned transaction. The
// referral store uses it so a status flip and its award commit together.
func CreditTx(ctx context.Context, tx pgx.Tx, id string, amount int64, reason Reason, note *string) (int64, error) {
	var balance int64
	err := tx.QueryRow(ctx, `
UPDATE accounts
SET credits = credits + $2
WHERE id = $1::uuid
RETURNING credits
`, id, amount).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrUnauthorized
	}
	if err != nil {
		return 0, store.Classify(err)
	}

	if err := appendTransaction(ctx, tx, id, amount, reason, note); err != nil {
		return 0, err
	}
	return balance, nil
}

func appendTransaction(ctx context.Context, tx pgx.Tx, id string, amount int64, reason Reason, note *string) error {
	_, err := tx.Exec(ctx, `
INSERT INTO credit_transactions (account_id, amount, reason, note)
VALUES ($1::uuid, $2, $3, $4)
`, id, amount, string(reason), note)
	return store.Classify(err)
}

func (s *PGStore) Transactions(ctx context.Context, id string, limit int) ([]Transaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := s.Pool.Query(ctx, `
SELECT id, account_id::text, amount, reason, note, created_at
FROM credit_transactions
WHERE account_id = $1::uuid
ORDER BY created_at DESC, id DESC
LIMIT $2
`, id, limit)
	if err != nil {
		return nil, store.Classify(err)
	}
	defer rows.Close()

	out := make([]Transaction, 0, limit)
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Amount, &t.Reason, &t.Note, &t.CreatedAt); err != nil {
			return nil, store.Classify(err)
		}
		out = append(out, t)
	}
	return out, store.Classify(rows.Err())
}

func (s *PGStore) TransactionSum(ctx context.Context, id string) (int64, error) {
	var sum int64
	err := s.Pool.QueryRow(ctx, `
SELECT COALESCE(SUM(amount), 0)::bigint
FROM credit_transactions
WHERE account_id = $1::uuid
`, id).Scan(&sum)
	if err != nil {
		return 0, store.Classify(err)
	}
	return sum, nil
}

func (s *PGStore) SetFlag(ctx context.Context, id string, flag Flag) error {
	var q string
	switch flag {
	case FlagAITrained:
		q = `UPDATE accounts SET ai_trained = true WHERE id = $1::uuid`
	case FlagPlatformConnected:
		q = `UPDATE accounts SET platform_connected = true WHERE id = $1::uuid`
	default:
		return errors.New("unknown account flag")
	}

	tag, err := s.Pool.Exec(ctx, q, id)
	if err != nil {
		return store.Classify(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUnauthorized
	}
	return nil
}
