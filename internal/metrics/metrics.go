package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the back-office collectors. A nil *Metrics records nothing,
// so callers never need to check whether metrics are enabled.
type Metrics struct {
	salesRecorded   *prometheus.CounterVec
	salesAmount     *prometheus.CounterVec
	cuts            *prometheus.CounterVec
	cutDuration     prometheus.Histogram
	orderTransition *prometheus.CounterVec
	receipts        *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		salesRecorded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cheikys_sales_recorded_total",
				Help: "Sales recorded by payment method and channel",
			},
			[]string{"payment_method", "channel"},
		),
		salesAmount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cheikys_sales_amount_cents_total",
				Help: "Recorded sale totals in cents by payment method",
			},
			[]string{"payment_method"},
		),
		cuts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cheikys_daily_cuts_total",
				Help: "Daily cut runs by outcome",
			},
			[]string{"outcome"},
		),
		cutDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cheikys_daily_cut_duration_seconds",
				Help:    "Time spent closing the day",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
			},
		),
		orderTransition: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cheikys_order_transitions_total",
				Help: "Phone order status transitions",
			},
			[]string{"status"},
		),
		receipts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cheikys_receipts_rendered_total",
				Help: "Receipt renders by outcome",
			},
			[]string{"outcome"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cheikys_http_requests_total",
				Help: "HTTP requests by method, route and status code",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cheikys_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.salesRecorded,
			m.salesAmount,
			m.cuts,
			m.cutDuration,
			m.orderTransition,
			m.receipts,
			m.httpRequests,
			m.httpDuration,
		)
	}
	return m
}

func (m *Metrics) SaleRecorded(paymentMethod string, channel string, totalCents int64) {
	if m == nil {
		return
	}
	m.salesRecorded.WithLabelValues(paymentMethod, channel).Inc()
	m.salesAmount.WithLabelValues(paymentMethod).Add(float64(totalCents))
}

// CutFinished records one cut run. outcome is "created", "noop" or "error".
func (m *Metrics) CutFinished(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.cuts.WithLabelValues(outcome).Inc()
	m.cutDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) OrderTransitioned(status string) {
	if m == nil {
		return
	}
	m.orderTransition.WithLabelValues(status).Inc()
}

func (m *Metrics) ReceiptRendered(ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	m.receipts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) HTTPRequest(method string, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, statusLabel(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
