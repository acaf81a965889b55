package feature

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/scriptaiapp/scriptai-backend/internal/ledger"
	"github.com/scriptaiapp/scriptai-backend/internal/monitoring"
)

// ErrUnknownFeature rejects keys outside the catalog.
var ErrUnknownFeature = errors.New("unknown feature")

// ErrGenerationFailed wraps collaborator failures and timeouts. By the time
// this is returned no credits have moved.
var ErrGenerationFailed = errors.New("generation failed")

// CreditGate is the slice of the ledger the feature flow needs.
type CreditGate interface {
	CheckEligibility(ctx context.Context, accountID string, requiredCredits int64, flags ...ledger.Flag) (*ledger.Account, error)
	Debit(ctx context.Context, accountID string, amount int64, reason ledger.Reason, note *string) (int64, error)
}

// Result is a produced artifact plus the balance after the debit.
type Result struct {
	Feature string `json:"feature"`
	Output  string `json:"output"`
	Cost    int64  `json:"cost"`
	Balance int64  `json:"balance"`
}

// Gate runs the paid-feature flow: eligibility check, generation under a
// timeout, then the debit. The debit happens strictly after collaborator
// success, so a timed-out or failed generation costs the user nothing.
type Gate struct {
	Credits CreditGate
	Gen     Generator
	Timeout time.Duration
	Log     *zap.Logger
}

func NewGate(credits CreditGate, gen Generator, timeout time.Duration, log *zap.Logger) *Gate {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gate{Credits: credits, Gen: gen, Timeout: timeout, Log: log}
}

func (g *Gate) Run(ctx context.Context, accountID, key, prompt string) (Result, error) {
	feat, ok := Lookup(key)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownFeature, key)
	}

	if _, err := g.Credits.CheckEligibility(ctx, accountID, feat.Cost, feat.Requires...); err != nil {
		monitoring.Generations.WithLabelValues(feat.Key, "rejected").Inc()
		return Result{}, err
	}

	gctx := ctx
	if g.Timeout > 0 {
		var cancel context.CancelFunc
		gctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}

	output, err := g.Gen.Generate(gctx, feat, prompt)
	if err != nil {
		monitoring.Generations.WithLabelValues(feat.Key, "failed").Inc()
		g.Log.Warn("generation failed",
			zap.String("feature", feat.Key),
			zap.String("account_id", accountID),
			zap.Error(err))
		return Result{}, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	note := feat.Key
	balance, err := g.Credits.Debit(ctx, accountID, feat.Cost, ledger.ReasonFeatureUse, &note)
	if err != nil {
		// The artifact exists but the balance shrank underneath us; the
		// caller gets the credit failure, not the artifact.
		monitoring.Generations.WithLabelValues(feat.Key, "debit_failed").Inc()
		return Result{}, err
	}

	monitoring.Generations.WithLabelValues(feat.Key, "ok").Inc()
	return Result{Feature: feat.Key, Output: output, Cost: feat.Cost, Balance: balance}, nil
}
