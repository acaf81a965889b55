package feature

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scriptaiapp/scriptai-backend/internal/ledger"
)

type fakeCredits struct {
	balance     int64
	flags       map[ledger.Flag]bool
	checkCalls  int
	debitCalls  int
	debitAmount int64
	debitReason ledger.Reason
	debitErr    error
}

func (f *fakeCredits) CheckEligibility(_ context.Context, _ string, required int64, flags ...ledger.Flag) (*ledger.Account, error) {
	f.checkCalls++
	for _, fl := range flags {
		if !f.flags[fl] {
			return nil, ledger.ErrPrerequisiteNotMet
		}
	}
	if f.balance < required {
		return nil, ledger.ErrInsufficientCredits
	}
	return &ledger.Account{ID: "a1", Credits: f.balance}, nil
}

func (f *fakeCredits) Debit(_ context.Context, _ string, amount int64, reason ledger.Reason, _ *string) (int64, error) {
	f.debitCalls++
	f.debitAmount = amount
	f.debitReason = reason
	if f.debitErr != nil {
		return 0, f.debitErr
	}
	f.balance -= amount
	return f.balance, nil
}

type fakeGen struct {
	calls  int
	output string
	err    error
	block  bool
}

func (g *fakeGen) Generate(ctx context.Context, _ Feature, _ string) (string, error) {
	g.calls++
	if g.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return g.output, g.err
}

func TestGateRunHappyPath(t *testing.T) {
	credits := &fakeCredits{balance: 3, flags: map[ledger.Flag]bool{ledger.FlagAITrained: true}}
	gen := &fakeGen{output: "INTRO: ..."}
	g := NewGate(credits, gen, time.Second, nil)

	res, err := g.Run(context.Background(), "a1", "script", "space documentaries")
	require.NoError(t, err)
	assert.Equal(t, "script", res.Feature)
	assert.Equal(t, "INTRO: ...", res.Output)
	assert.Equal(t, int64(1), res.Cost)
	assert.Equal(t, int64(2), res.Balance)
	assert.Equal(t, 1, credits.debitCalls)
	assert.Equal(t, ledger.ReasonFeatureUse, credits.debitReason)
}

func TestGateRunUnknownFeature(t *testing.T) {
	credits := &fakeCredits{balance: 10}
	gen := &fakeGen{}
	g := NewGate(credits, gen, time.Second, nil)

	_, err := g.Run(context.Background(), "a1", "hologram", "x")
	require.ErrorIs(t, err, ErrUnknownFeature)
	assert.Zero(t, credits.checkCalls)
	assert.Zero(t, gen.calls)
}

func TestGateRunInsufficientSkipsGeneration(t *testing.T) {
	credits := &fakeCredits{balance: 1, flags: map[ledger.Flag]bool{ledger.FlagPlatformConnected: true}}
	gen := &fakeGen{output: "dub"}
	g := NewGate(credits, gen, time.Second, nil)

	// dubbing costs 2.
	_, err := g.Run(context.Background(), "a1", "dubbing", "x")
	require.ErrorIs(t, err, ledger.ErrInsufficientCredits)
	assert.Zero(t, gen.calls, "generator must not run for an ineligible account")
	assert.Zero(t, credits.debitCalls)
}

func TestGateRunPrerequisiteSkipsGeneration(t *testing.T) {
	credits := &fakeCredits{balance: 10}
	gen := &fakeGen{output: "script"}
	g := NewGate(credits, gen, time.Second, nil)

	_, err := g.Run(context.Background(), "a1", "script", "x")
	require.ErrorIs(t, err, ledger.ErrPrerequisiteNotMet)
	assert.Zero(t, gen.calls)
	assert.Zero(t, credits.debitCalls)
}

func TestGateRunGeneratorFailureDoesNotDebit(t *testing.T) {
	credits := &fakeCredits{balance: 5}
	gen := &fakeGen{err: errors.New("model unavailable")}
	g := NewGate(credits, gen, time.Second, nil)

	_, err := g.Run(context.Background(), "a1", "thumbnail", "x")
	require.ErrorIs(t, err, ErrGenerationFailed)
	assert.Zero(t, credits.debitCalls, "failed generation must not charge")
	assert.Equal(t, int64(5), credits.balance)
}

func TestGateRunTimeoutDoesNotDebit(t *testing.T) {
	credits := &fakeCredits{balance: 5}
	gen := &fakeGen{block: true}
	g := NewGate(credits, gen, 10*time.Millisecond, nil)

	_, err := g.Run(context.Background(), "a1", "thumbnail", "x")
	require.ErrorIs(t, err, ErrGenerationFailed)
	assert.Zero(t, credits.debitCalls)
}

func TestGateRunDebitRaceSurfacesLedgerError(t *testing.T) {
	credits := &fakeCredits{balance: 5, debitErr: ledger.ErrInsufficientCredits}
	gen := &fakeGen{output: "thumb"}
	g := NewGate(credits, gen, time.Second, nil)

	_, err := g.Run(context.Background(), "a1", "thumbnail", "x")
	require.ErrorIs(t, err, ledger.ErrInsufficientCredits)
	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, 1, credits.debitCalls)
}

func TestCatalog(t *testing.T) {
	all := All()
	require.NotEmpty(t, all)
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].Key, all[i].Key)
	}

	script, ok := Lookup("script")
	require.True(t, ok)
	assert.Contains(t, script.Requires, ledger.FlagAITrained)
	assert.Equal(t, int64(1), script.Cost)

	dub, ok := Lookup("dubbing")
	require.True(t, ok)
	assert.Equal(t, int64(2), dub.Cost)

	_, ok = Lookup("")
	assert.False(t, ok)
}
