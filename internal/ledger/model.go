package ledger

import "time"

// Reason classifies a credit transaction.
type Reason string

const (
	ReasonFeatureUse       Reason = "feature-use"
	ReasonReferralAward    Reason = "referral-award"
	ReasonReferralReversal Reason = "referral-reversal"
	ReasonManualAdjustment Reason = "manual-adjustment"
)

func (r Reason) Valid() bool {
	switch r {
	case ReasonFeatureUse, ReasonReferralAward, ReasonReferralReversal, ReasonManualAdjustment:
		return true
	}
	return false
}

// Flag names a boolean prerequisite on the account that a feature can require.
type Flag string

const (
	FlagAITrained         Flag = "ai_trained"
	FlagPlatformConnected Flag = "platform_connected"
)

// Account is the billable entity. Credits never go negative; the balance is
// a cached aggregate that must always equal the sum of the account's
// credit transactions.
type Account struct {
	ID                string    `json:"id"`
	Email             string    `json:"email"`
	DisplayName       *string   `json:"display_name,omitempty"`
	Credits           int64     `json:"credits"`
	AITrained         bool      `json:"ai_trained"`
	PlatformConnected bool      `json:"platform_connected"`
	CreatedAt         time.Time `json:"created_at"`
}

// HasFlag reports whether the prerequisite named by f is satisfied.
func (a *Account) HasFlag(f Flag) bool {
	switch f {
	case FlagAITrained:
		return a.AITrained
	case FlagPlatformConnected:
		return a.PlatformConnected
	}
	return false
}

// Transaction is one append-only ledger entry. Amount is signed: debits are
// negative, credits positive.
type Transaction struct {
	ID        int64     `json:"id"`
	AccountID string    `json:"account_id"`
	Amount    int64     `json:"amount"`
	Reason    Reason    `json:"reason"`
	Note      *string   `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
