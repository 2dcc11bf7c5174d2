// Package metrics exposes dashboard counters on a caller-owned Prometheus registry.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mjpery-beep/mj-member-sub014/internal/domain"
)

// Metrics groups the collectors used by the dashboard engine. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	mutations       *prometheus.CounterVec
	pending         *prometheus.GaugeVec
	joined          *prometheus.CounterVec
	gatewayDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roster",
			Name:      "actions_total",
			Help:      "Dashboard actions by kind and outcome.",
		}, []string{"action", "outcome"}),
		pending: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "roster",
			Name:      "pending_requests",
			Help:      "Requests currently in flight in the pending-request registry.",
		}, []string{"action"}),
		joined: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roster",
			Name:      "joined_requests_total",
			Help:      "Callers that joined an already in-flight request instead of issuing a new one.",
		}, []string{"action"}),
		gatewayDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "roster",
			Name:      "gateway_request_duration_seconds",
			Help:      "Latency of calls to the roster service.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.mutations, m.pending, m.joined, m.gatewayDuration)
	}
	return m
}

// Outcome maps an action error onto a low-cardinality label value.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrLocked):
		return "locked"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrAlreadyLoading):
		return "already_loading"
	case errors.Is(err, domain.ErrPartialFailure):
		return "partial"
	}
	return "transport"
}

// ObserveAction counts one finished dashboard action.
func (m *Metrics) ObserveAction(action string, err error) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(action, Outcome(err)).Inc()
}

// PendingStarted and PendingFinished track the registry's in-flight gauge.
func (m *Metrics) PendingStarted(action string) {
	if m == nil {
		return
	}
	m.pending.WithLabelValues(action).Inc()
}

func (m *Metrics) PendingFinished(action string) {
	if m == nil {
		return
	}
	m.pending.WithLabelValues(action).Dec()
}

// Joined counts a caller that reused an in-flight request.
func (m *Metrics) Joined(action string) {
	if m == nil {
		return
	}
	m.joined.WithLabelValues(action).Inc()
}

// ObserveGateway records the latency of one roster service call.
func (m *Metrics) ObserveGateway(operation string, started time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = Outcome(err)
	}
	m.gatewayDuration.WithLabelValues(operation, outcome).Observe(time.Since(started).Seconds())
}
