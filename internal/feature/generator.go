package feature

import (
	"context"
	"fmt"
	"time"
)

// Generator produces the artifact for a paid feature. Implementations wrap
// the external model and media providers; the ledger only cares that a call
// either succeeds, fails, or times out before any credits move.
type Generator interface {
	Generate(ctx context.Context, feat Feature, prompt string) (string, error)
}

// StubGenerator stands in when no provider is configured (dev and tests).
// It honors context cancellation like a real provider call would.
type StubGenerator struct {
	Delay time.Duration
}

func (g StubGenerator) Generate(ctx context.Context, feat Feature, prompt string) (string, error) {
	if g.Delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(g.Delay):
		}
	}
	return fmt.Sprintf("[%s draft] %s", feat.Key, prompt), nil
}
