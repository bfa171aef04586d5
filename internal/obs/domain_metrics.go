package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// OrdersPlacedTotal counts order placement outcomes.
	OrdersPlacedTotal *prometheus.CounterVec
	// ReferralCascadeTotal counts cascade registrations by outcome.
	ReferralCascadeTotal *prometheus.CounterVec
	// ReferralBonusCredited tracks bonus credits by referral level.
	ReferralBonusCredited *prometheus.CounterVec
	// WithdrawalTotal counts withdrawal lifecycle transitions.
	WithdrawalTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers the domain counters.
// Safe to call more than once; only the first call registers.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		counter := func(name, help string, labels ...string) *prometheus.CounterVec {
			return register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      name,
				Help:      help,
			}, labels))
		}
		OrdersPlacedTotal = counter("orders_placed_total", "Count of order placement outcomes.", "result")
		ReferralCascadeTotal = counter("referral_cascade_total", "Count of referral registrations by outcome.", "result")
		ReferralBonusCredited = counter("referral_bonus_credited_total", "Count of referral bonuses credited per level.", "level")
		WithdrawalTotal = counter("withdrawal_total", "Count of withdrawal lifecycle transitions.", "transition")
	})
}
