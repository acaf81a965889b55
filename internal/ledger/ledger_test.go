package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(accounts ...*Account) (*Ledger, *memStore) {
	st := newMemStore()
	for _, a := range accounts {
		st.addAccount(a)
	}
	return New(st, nil), st
}

func TestCheckEligibility(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(
		&Account{ID: "trained", Email: "trained@example.com", Credits: 3, AITrained: true},
		&Account{ID: "untrained", Email: "untrained@example.com", Credits: 3},
		&Account{ID: "broke", Email: "broke@example.com", Credits: 0, AITrained: true},
	)

	t.Run("passes with credits and flag", func(t *testing.T) {
		acct, err := l.CheckEligibility(ctx, "trained", 1, FlagAITrained)
		require.NoError(t, err)
		assert.Equal(t, int64(3), acct.Credits)
	})

	t.Run("missing flag beats missing credits", func(t *testing.T) {
		_, err := l.CheckEligibility(ctx, "untrained", 1, FlagAITrained)
		require.ErrorIs(t, err, ErrPrerequisiteNotMet)
	})

	t.Run("flag set but zero balance", func(t *testing.T) {
		_, err := l.CheckEligibility(ctx, "broke", 1, FlagAITrained)
		require.ErrorIs(t, err, ErrInsufficientCredits)
	})

	t.Run("unknown account", func(t *testing.T) {
		_, err := l.CheckEligibility(ctx, "nobody", 1)
		require.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("no flags required", func(t *testing.T) {
		_, err := l.CheckEligibility(ctx, "untrained", 1)
		require.NoError(t, err)
	})
}

func TestDebitValidation(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(&Account{ID: "a1", Email: "a1@example.com", Credits: 10})

	_, err := l.Debit(ctx, "a1", 0, ReasonFeatureUse, nil)
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = l.Debit(ctx, "a1", -5, ReasonFeatureUse, nil)
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = l.Debit(ctx, "a1", 1, Reason("bogus"), nil)
	require.Error(t, err)

	acct, err := l.Account(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), acct.Credits, "rejected debits must not move funds")
}

func TestCreditValidation(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(&Account{ID: "a1", Email: "a1@example.com", Credits: 0})

	_, err := l.Credit(ctx, "a1", 0, ReasonReferralAward, nil)
	require.ErrorIs(t, err, ErrInvalidAmount)

	balance, err := l.Credit(ctx, "a1", 5, ReasonReferralAward, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(5), balance)
}

func TestDebitInsufficient(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(&Account{ID: "a1", Email: "a1@example.com", Credits: 1})

	_, err := l.Debit(ctx, "a1", 2, ReasonFeatureUse, nil)
	require.ErrorIs(t, err, ErrInsufficientCredits)

	balance, err := l.Debit(ctx, "a1", 1, ReasonFeatureUse, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

// Concurrent debits against one balance must never overdraw: with balance B
// and per-debit cost a, at most floor(B/a) attempts may win.
func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	const balance = 7
	const cost = 2
	const attempts = 50

	l, _ := newTestLedger(&Account{ID: "a1", Email: "a1@example.com", Credits: balance})

	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Debit(ctx, "a1", cost, ReasonFeatureUse, nil)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins int
	for err := range results {
		if err == nil {
			wins++
		} else {
			require.ErrorIs(t, err, ErrInsufficientCredits)
		}
	}
	assert.Equal(t, balance/cost, wins)

	acct, err := l.Account(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, int64(balance%cost), acct.Credits)
}

func TestReconcileHoldsAcrossMixedTraffic(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(&Account{ID: "a1", Email: "a1@example.com", Credits: 3})

	note := "script"
	_, err := l.Debit(ctx, "a1", 1, ReasonFeatureUse, &note)
	require.NoError(t, err)
	_, err = l.Credit(ctx, "a1", 5, ReasonReferralAward, nil)
	require.NoError(t, err)
	_, err = l.Debit(ctx, "a1", 2, ReasonFeatureUse, nil)
	require.NoError(t, err)

	res, err := l.Reconcile(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, res.Consistent)
	assert.Equal(t, int64(5), res.Balance)
	assert.Equal(t, res.Balance, res.TransactionSum)
}

func TestReconcileUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(&Account{ID: "a1", Email: "a1@example.com", Credits: 100})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				l.Debit(ctx, "a1", 3, ReasonFeatureUse, nil)
			} else {
				l.Credit(ctx, "a1", 2, ReasonManualAdjustment, nil)
			}
		}(i)
	}
	wg.Wait()

	res, err := l.Reconcile(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, res.Consistent, "balance %d, sum %d", res.Balance, res.TransactionSum)
}

func TestHistoryNewestFirst(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(&Account{ID: "a1", Email: "a1@example.com", Credits: 10})

	for i := 0; i < 3; i++ {
		note := fmt.Sprintf("use-%d", i)
		_, err := l.Debit(ctx, "a1", 1, ReasonFeatureUse, &note)
		require.NoError(t, err)
	}

	txs, err := l.History(ctx, "a1", 2)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "use-2", *txs[0].Note)
	assert.Equal(t, "use-1", *txs[1].Note)

	_, err = l.History(ctx, "nobody", 10)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestSetFlag(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(&Account{ID: "a1", Email: "a1@example.com", Credits: 1})

	_, err := l.CheckEligibility(ctx, "a1", 1, FlagPlatformConnected)
	require.ErrorIs(t, err, ErrPrerequisiteNotMet)

	require.NoError(t, l.SetFlag(ctx, "a1", FlagPlatformConnected))

	_, err = l.CheckEligibility(ctx, "a1", 1, FlagPlatformConnected)
	require.NoError(t, err)
}
