package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// Metrics are the service counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Payouts             *prometheus.CounterVec
	PaidAmount          prometheus.Counter
	Reviews             *prometheus.CounterVec
	BookkeepingFailures prometheus.Counter
	Submissions         prometheus.Counter
	ExpiredBounties     prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Payouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bounty",
			Name:      "payouts_total",
			Help:      "Payout attempts by result.",
		}, []string{"result"}),
		PaidAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bounty",
			Name:      "paid_amount_total",
			Help:      "Sum of approved rewards paid out.",
		}),
		Reviews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bounty",
			Name:      "reviews_total",
			Help:      "Submission reviews by decision.",
		}, []string{"decision"}),
		BookkeepingFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bounty",
			Name:      "bookkeeping_failures_total",
			Help:      "Approvals whose payout succeeded but whose records did not commit.",
		}),
		Submissions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bounty",
			Name:      "submissions_total",
			Help:      "Proof submissions accepted.",
		}),
		ExpiredBounties: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bounty",
			Name:      "expired_total",
			Help:      "Bounties closed by the expiry sweep.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Payouts, m.PaidAmount, m.Reviews, m.BookkeepingFailures, m.Submissions, m.ExpiredBounties)
	}
	return m
}

func (m *Metrics) PayoutSent() {
	if m == nil {
		return
	}
	m.Payouts.WithLabelValues("sent").Inc()
}

// Paid records an approval that committed, so replayed payouts are not summed twice.
func (m *Metrics) Paid(amount decimal.Decimal) {
	if m == nil {
		return
	}
	m.PaidAmount.Add(amount.InexactFloat64())
}

func (m *Metrics) PayoutFailed() {
	if m == nil {
		return
	}
	m.Payouts.WithLabelValues("failed").Inc()
}

func (m *Metrics) Reviewed(decision string) {
	if m == nil {
		return
	}
	m.Reviews.WithLabelValues(decision).Inc()
}

func (m *Metrics) BookkeepingFailed() {
	if m == nil {
		return
	}
	m.BookkeepingFailures.Inc()
}

func (m *Metrics) Submitted() {
	if m == nil {
		return
	}
	m.Submissions.Inc()
}

func (m *Metrics) Expired(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.ExpiredBounties.Add(float64(n))
}
