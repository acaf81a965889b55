package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	assert.NoError(t, Classify(nil))

	plain := errors.New("syntax error")
	assert.Equal(t, plain, Classify(plain))
	assert.False(t, errors.Is(Classify(plain), ErrUnavailable))

	connErr := &pgconn.PgError{Code: "08006"}
	assert.ErrorIs(t, Classify(connErr), ErrUnavailable)

	shutdownErr := &pgconn.PgError{Code: "57P01"}
	assert.ErrorIs(t, Classify(shutdownErr), ErrUnavailable)

	resourceErr := &pgconn.PgError{Code: "53300"}
	assert.ErrorIs(t, Classify(resourceErr), ErrUnavailable)

	constraintErr := &pgconn.PgError{Code: "23505"}
	assert.False(t, errors.Is(Classify(constraintErr), ErrUnavailable))

	// Classified errors pass through unchanged on a second pass.
	once := Classify(connErr)
	assert.Equal(t, once, Classify(once))
}

func TestRetryStopsOnSuccess(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 5, time.Millisecond, func(context.Context) error {
		calls++
		if calls < 3 {
			return ErrUnavailable
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryDoesNotRetryOtherErrors(t *testing.T) {
	fatal := errors.New("bad query")
	calls := 0
	err := Retry(context.Background(), 5, time.Millisecond, func(context.Context) error {
		calls++
		return fatal
	})
	require.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func(context.Context) error {
		calls++
		return Classify(&pgconn.PgError{Code: "08001"})
	})
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 3, calls)
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Retry(ctx, 5, 50*time.Millisecond, func(context.Context) error {
		return ErrUnavailable
	})
	require.ErrorIs(t, err, context.Canceled)
}
