package referral

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scriptaiapp/scriptai-backend/internal/ledger"
	"github.com/scriptaiapp/scriptai-backend/internal/monitoring"
	"github.com/scriptaiapp/scriptai-backend/internal/store"
)

// AccountSource looks up the acting account; the ledger service satisfies it.
type AccountSource interface {
	Account(ctx context.Context, accountID string) (*ledger.Account, error)
}

// Service drives the referral lifecycle: pending -> completed (awards the
// referrer exactly once) or pending -> expired (no award, ever).
type Service struct {
	store    Store
	accounts AccountSource
	log      *zap.Logger
	now      func() time.Time
}

func NewService(st Store, accounts AccountSource, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: st, accounts: accounts, log: log, now: time.Now}
}

// Create records a pending referral for the invitee email. At most one
// non-expired referral may exist per (referrer, email) pair; a second
// attempt while one is live fails with ErrDuplicateReferral.
func (s *Service) Create(ctx context.Context, referrerID, referredEmail string) (*Referral, error) {
	email := strings.ToLower(strings.TrimSpace(referredEmail))
	if email == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidEmail
	}

	if s.accounts != nil {
		acct, err := s.accounts.Account(ctx, referrerID)
		if err != nil {
			return nil, err
		}
		if strings.EqualFold(acct.Email, email) {
			return nil, ErrSelfReferral
		}
	}

	now := s.now()
	r := &Referral{
		ReferrerID:    referrerID,
		ReferredEmail: email,
		Status:        StatusPending,
		ReferralCode:  newCode(),
		CreatedAt:     now,
		ExpiresAt:     now.Add(Window),
	}

	if err := s.store.Insert(ctx, r); err != nil {
		return nil, err
	}

	s.log.Info("referral created",
		zap.String("referral_id", r.ID),
		zap.String("referrer_id", referrerID))
	return r, nil
}

// Complete transitions a pending referral to completed, binds the referred
// user, and awards the referrer RewardCredits. The flip and the award are
// one storage transaction; a failed award rolls the flip back. Repeated
// attempts fail with ErrAlreadyCompleted rather than silently succeeding.
func (s *Service) Complete(ctx context.Context, referralID, referredUserID string) (*Referral, error) {
	r, err := s.store.CompletePending(ctx, referralID, referredUserID, RewardCredits, s.now())
	if err != nil {
		return nil, err
	}

	monitoring.ReferralCompletions.Inc()
	s.log.Info("referral completed",
		zap.String("referral_id", r.ID),
		zap.String("referrer_id", r.ReferrerID),
		zap.Int64("credits_awarded", r.CreditsAwarded))
	return r, nil
}

// ResolvePendingForEmail completes every pending, unexpired referral whose
// invitee email matches a freshly created account. Multiple referrers may
// have invited the same address; awarding each of them is intended fan-in,
// not a bug. Referrals already settled or past their window are skipped.
func (s *Service) ResolvePendingForEmail(ctx context.Context, email, accountID string) ([]*Referral, error) {
	var ids []string
	err := store.Retry(ctx, 3, 100*time.Millisecond, func(ctx context.Context) error {
		var err error
		ids, err = s.store.PendingIDsByEmail(ctx, email)
		return err
	})
	if err != nil {
		return nil, err
	}

	var completed []*Referral
	for _, id := range ids {
		r, err := s.Complete(ctx, id, accountID)
		if err != nil {
			// Terminal states reached by a concurrent resolver are fine;
			// anything else aborts so the caller can retry the event.
			if errors.Is(err, ErrAlreadyCompleted) || errors.Is(err, ErrExpired) {
				continue
			}
			return completed, err
		}
		completed = append(completed, r)
	}
	return completed, nil
}

// Get returns one referral, settling lazy expiry as a side effect of the read.
func (s *Service) Get(ctx context.Context, referralID string) (*Referral, error) {
	r, err := s.store.Get(ctx, referralID)
	if err != nil {
		return nil, err
	}
	if r.ExpiryDue(s.now()) {
		flipped, err := s.store.ExpireIfDue(ctx, r.ID, s.now())
		if err != nil {
			return nil, err
		}
		if flipped {
			r.Status = StatusExpired
		} else {
			// Lost the race to a concurrent settle; re-read the truth.
			return s.store.Get(ctx, r.ID)
		}
	}
	return r, nil
}

// List returns the referrer's referrals with lazy expiry applied.
func (s *Service) List(ctx context.Context, referrerID string) ([]Referral, error) {
	return s.store.ByReferrer(ctx, referrerID, s.now())
}

// StatsFor aggregates the referrer's program counters.
func (s *Service) StatsFor(ctx context.Context, referrerID string) (Stats, error) {
	items, err := s.store.ByReferrer(ctx, referrerID, s.now())
	if err != nil {
		return Stats{}, err
	}

	var st Stats
	st.TotalInvited = len(items)
	for _, r := range items {
		switch r.Status {
		case StatusPending:
			st.Pending++
		case StatusCompleted:
			st.Completed++
			st.CreditsEarned += r.CreditsAwarded
		case StatusExpired:
			st.Expired++
		}
	}
	return st, nil
}

// newCode builds the opaque short referral code. Random rather than derived
// from the referrer id, so two referrers can never collide.
func newCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:8])
}
