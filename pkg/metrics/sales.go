package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SalesMetrics records checkout and loyalty activity.
type SalesMetrics struct {
	checkoutDuration *prometheus.HistogramVec
	checkoutSuccess  *prometheus.CounterVec
	checkoutFailure  *prometheus.CounterVec
	pointsGranted    prometheus.Counter
	pointsRedeemed   prometheus.Counter
}

// NewSalesMetrics registers the sale pipeline metrics on the provided registerer.
func NewSalesMetrics(reg prometheus.Registerer) *SalesMetrics {
	if reg == nil {
		return &SalesMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Duration of checkout transactions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"payment_method"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_success",
		Help: "Checkouts committed.",
	}, []string{"payment_method"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_failure",
		Help: "Checkouts rolled back.",
	}, []string{"reason"})
	granted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "points_granted_total",
		Help: "Loyalty points granted.",
	})
	redeemed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "points_redeemed_total",
		Help: "Loyalty points redeemed.",
	})
	reg.MustRegister(duration, success, failure, granted, redeemed)
	return &SalesMetrics{
		checkoutDuration: duration,
		checkoutSuccess:  success,
		checkoutFailure:  failure,
		pointsGranted:    granted,
		pointsRedeemed:   redeemed,
	}
}

// ObserveCheckout records the duration of a committed checkout.
func (m *SalesMetrics) ObserveCheckout(paymentMethod string, duration time.Duration) {
	if m == nil || m.checkoutDuration == nil {
		return
	}
	m.checkoutDuration.WithLabelValues(normalizeLabel(paymentMethod)).Observe(duration.Seconds())
}

// IncCheckoutSuccess increments the committed checkout counter.
func (m *SalesMetrics) IncCheckoutSuccess(paymentMethod string) {
	if m == nil || m.checkoutSuccess == nil {
		return
	}
	m.checkoutSuccess.WithLabelValues(normalizeLabel(paymentMethod)).Inc()
}

// IncCheckoutFailure increments the rolled-back checkout counter by reason.
func (m *SalesMetrics) IncCheckoutFailure(reason string) {
	if m == nil || m.checkoutFailure == nil {
		return
	}
	m.checkoutFailure.WithLabelValues(normalizeLabel(reason)).Inc()
}

// AddPointsGranted tracks granted loyalty points.
func (m *SalesMetrics) AddPointsGranted(points int) {
	if m == nil || m.pointsGranted == nil || points <= 0 {
		return
	}
	m.pointsGranted.Add(float64(points))
}

// AddPointsRedeemed tracks redeemed loyalty points.
func (m *SalesMetrics) AddPointsRedeemed(points int) {
	if m == nil || m.pointsRedeemed == nil || points <= 0 {
		return
	}
	m.pointsRedeemed.Add(float64(points))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
