package ledger

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/scriptaiapp/scriptai-backend/internal/monitoring"
)

// Ledger enforces that no paid feature runs without sufficient funds and
// that funds move exactly once per successful use. It holds no mutable
// state of its own; every mutation is a conditional update at the store.
type Ledger struct {
	store Store
	log   *zap.Logger
}

func New(store Store, log *zap.Logger) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{store: store, log: log}
}

// Account returns the current account state.
func (l *Ledger) Account(ctx context.Context, accountID string) (*Account, error) {
	return l.store.Account(ctx, accountID)
}

// CheckEligibility is the read-only gate evaluated immediately before a paid
// action. It never mutates state; the later debit re-checks the balance
// atomically, so a pass here is advisory, not a reservation.
func (l *Ledger) CheckEligibility(ctx context.Context, accountID string, requiredCredits int64, flags ...Flag) (*Account, error) {
	acct, err := l.store.Account(ctx, accountID)
	if err != nil {
		return nil, err
	}

	for _, f := range flags {
		if !acct.HasFlag(f) {
			monitoring.DebitsRejected.WithLabelValues("prerequisite").Inc()
			return nil, fmt.Errorf("%w: %s required", ErrPrerequisiteNotMet, f)
		}
	}

	if acct.Credits < requiredCredits {
		monitoring.DebitsRejected.WithLabelValues("insufficient").Inc()
		return nil, ErrInsufficientCredits
	}

	return acct, nil
}

// Debit removes amount credits from the account. The store performs a
// single conditional update, so a balance that shrank between the
// eligibility check and here fails cleanly instead of going negative.
func (l *Ledger) Debit(ctx context.Context, accountID string, amount int64, reason Reason, note *string) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	if !reason.Valid() {
		return 0, fmt.Errorf("invalid transaction reason %q", reason)
	}

	balance, err := l.store.DebitIfSufficient(ctx, accountID, amount, reason, note)
	if err != nil {
		if errors.Is(err, ErrInsufficientCredits) {
			monitoring.DebitsRejected.WithLabelValues("insufficient").Inc()
		}
		return 0, err
	}

	monitoring.CreditsDebited.WithLabelValues(string(reason)).Add(float64(amount))
	l.log.Info("credits debited",
		zap.String("account_id", accountID),
		zap.Int64("amount", amount),
		zap.String("reason", string(reason)),
		zap.Int64("balance", balance))
	return balance, nil
}

// Credit adds amount credits to the account. Used by the referral machinery
// and manual adjustments only.
func (l *Ledger) Credit(ctx context.Context, accountID string, amount int64, reason Reason, note *string) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	if !reason.Valid() {
		return 0, fmt.Errorf("invalid transaction reason %q", reason)
	}

	balance, err := l.store.Credit(ctx, accountID, amount, reason, note)
	if err != nil {
		return 0, err
	}

	monitoring.CreditsCredited.WithLabelValues(string(reason)).Add(float64(amount))
	l.log.Info("credits credited",
		zap.String("account_id", accountID),
		zap.Int64("amount", amount),
		zap.String("reason", string(reason)),
		zap.Int64("balance", balance))
	return balance, nil
}

// History lists the newest transactions for the account.
func (l *Ledger) History(ctx context.Context, accountID string, limit int) ([]Transaction, error) {
	if _, err := l.store.Account(ctx, accountID); err != nil {
		return nil, err
	}
	return l.store.Transactions(ctx, accountID, limit)
}

// ReconcileResult reports whether the cached balance equals the transaction sum.
type ReconcileResult struct {
	AccountID      string `json:"account_id"`
	Balance        int64  `json:"balance"`
	TransactionSum int64  `json:"transaction_sum"`
	Consistent     bool   `json:"consistent"`
}

// Reconcile verifies the invariant that the cached balance equals the sum
// of the account's transaction amounts.
func (l *Ledger) Reconcile(ctx context.Context, accountID string) (ReconcileResult, error) {
	acct, err := l.store.Account(ctx, accountID)
	if err != nil {
		return ReconcileResult{}, err
	}
	sum, err := l.store.TransactionSum(ctx, accountID)
	if err != nil {
		return ReconcileResult{}, err
	}

	res := ReconcileResult{
		AccountID:      accountID,
		Balance:        acct.Credits,
		TransactionSum: sum,
		Consistent:     acct.Credits == sum,
	}
	if !res.Consistent {
		l.log.Error("ledger reconciliation mismatch",
			zap.String("account_id", accountID),
			zap.Int64("balance", res.Balance),
			zap.Int64("transaction_sum", res.TransactionSum))
	}
	return res, nil
}

// SetFlag marks a prerequisite flag true on behalf of the external
// training/connection workflows.
func (l *Ledger) SetFlag(ctx context.Context, accountID string, flag Flag) error {
	return l.store.SetFlag(ctx, accountID, flag)
}
