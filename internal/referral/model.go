package referral

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusExpired   Status = "expired"
)

// RewardCredits is the fixed one-time award for a completed referral.
const RewardCredits = 5

// Window is how long a referral stays claimable after creation.
const Window = 30 * 24 * time.Hour

// Referral tracks an invitation from pending through completed or expired.
// Both terminal states are final: a completed referral never re-awards and
// an expired one can never complete.
type Referral struct {
	ID             string     `json:"id"`
	ReferrerID     string     `json:"referrer_id"`
	ReferredEmail  string     `json:"referred_email"`
	ReferredUserID *string    `json:"referred_user_id,omitempty"`
	Status         Status     `json:"status"`
	CreditsAwarded int64      `json:"credits_awarded"`
	ReferralCode   string     `json:"referral_code"`
	CreatedAt      time.Time  `json:"created_at"`
	ExpiresAt      time.Time  `json:"expires_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// ExpiryDue reports whether a still-pending referral has passed its window.
func (r *Referral) ExpiryDue(now time.Time) bool {
	return r.Status == StatusPending && now.After(r.ExpiresAt)
}

// Stats summarizes a referrer's program for the dashboard.
type Stats struct {
	TotalInvited  int   `json:"total_invited"`
	Pending       int   `json:"pending"`
	Completed     int   `json:"completed"`
	Expired       int   `json:"expired"`
	CreditsEarned int64 `json:"credits_earned"`
}
