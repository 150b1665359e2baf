package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Lokeshwarrior12/FineDine/internal/common/domain"
)

// Metrics holds the coupon engine collectors. A nil *Metrics records nothing.
type Metrics struct {
	claims        *prometheus.CounterVec
	claimDuration prometheus.Histogram
	redemptions   *prometheus.CounterVec
	cancellations *prometheus.CounterVec
	expired       prometheus.Counter
	catalogEvents *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		claims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "finedine",
			Name:      "coupon_claims_total",
			Help:      "Coupon claim attempts by outcome.",
		}, []string{"outcome"}),
		claimDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "finedine",
			Name:      "coupon_claim_duration_seconds",
			Help:      "Time spent issuing a coupon, including retries.",
			Buckets:   prometheus.DefBuckets,
		}),
		redemptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "finedine",
			Name:      "coupon_redemptions_total",
			Help:      "Coupon redemption attempts by outcome.",
		}, []string{"outcome"}),
		cancellations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "finedine",
			Name:      "coupon_cancellations_total",
			Help:      "Coupon cancellation attempts by outcome.",
		}, []string{"outcome"}),
		expired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "finedine",
			Name:      "coupons_expired_total",
			Help:      "Coupons moved to expired by the sweep.",
		}),
		catalogEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "finedine",
			Name:      "catalog_events_total",
			Help:      "Offer catalog events consumed by type and outcome.",
		}, []string{"type", "outcome"}),
	}
	reg.MustRegister(m.claims, m.claimDuration, m.redemptions, m.cancellations, m.expired, m.catalogEvents)
	return m
}

// Outcome buckets err into a low-cardinality label.
func Outcome(err error) string {
	var de *domain.DomainError
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &de) && de.Code != "":
		return de.Code
	case errors.Is(err, domain.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	case errors.Is(err, domain.ErrUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}

func (m *Metrics) ObserveClaim(err error, seconds float64) {
	if m == nil {
		return
	}
	m.claims.WithLabelValues(Outcome(err)).Inc()
	m.claimDuration.Observe(seconds)
}

func (m *Metrics) ObserveRedemption(err error) {
	if m == nil {
		return
	}
	m.redemptions.WithLabelValues(Outcome(err)).Inc()
}

func (m *Metrics) ObserveCancellation(err error) {
	if m == nil {
		return
	}
	m.cancellations.WithLabelValues(Outcome(err)).Inc()
}

func (m *Metrics) AddExpired(n int) {
	if m == nil {
		return
	}
	m.expired.Add(float64(n))
}

func (m *Metrics) ObserveCatalogEvent(eventType string, err error) {
	if m == nil {
		return
	}
	m.catalogEvents.WithLabelValues(eventType, Outcome(err)).Inc()
}
