package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CreditsDebited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credits_debited_total",
			Help: "Credits debited from account balances",
		},
		[]string{"reason"},
	)

	CreditsCredited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credits_credited_total",
			Help: "Credits added to account balances",
		},
		[]string{"reason"},
	)

	DebitsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "debits_rejected_total",
			Help: "Debits rejected at the eligibility gate or the conditional update",
		},
		[]string{"cause"},
	)

	ReferralCompletions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "referral_completions_total",
			Help: "Referrals transitioned to completed",
		},
	)

	Generations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feature_generations_total",
			Help: "Paid feature generation attempts",
		},
		[]string{"feature", "outcome"},
	)
)

// Serve exposes /metrics on its own listener so the API port stays clean.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}
