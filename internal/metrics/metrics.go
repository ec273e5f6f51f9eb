// Package metrics holds the prometheus collectors of the wallet engine.
//
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "solwallet"

// Metrics groups the wallet collectors.
type Metrics struct {
	TxSubmitted       *prometheus.CounterVec
	ConfirmPolls      *prometheus.CounterVec
	ConfirmOutcomes   *prometheus.CounterVec
	RefreshFailures   *prometheus.CounterVec
	PersistFailures   *prometheus.CounterVec
	PriceFailures     *prometheus.CounterVec
	SubscriptionDrops *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TxSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tx_submitted_total",
			Help:      "Transactions submitted to the network.",
		}, []string{"network", "kind"}),
		ConfirmPolls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "confirm_polls_total",
			Help:      "Signature status polls issued while waiting for confirmation.",
		}, []string{"network"}),
		ConfirmOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "confirm_outcomes_total",
			Help:      "Final outcome of confirmation waits.",
		}, []string{"network", "outcome"}),
		RefreshFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_failures_total",
			Help:      "Failed balance or history refreshes.",
		}, []string{"network", "what"}),
		PersistFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_failures_total",
			Help:      "Background table writes that failed.",
		}, []string{"table"}),
		PriceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_failures_total",
			Help:      "Failed price, fee or metadata lookups.",
		}, []string{"source"}),
		SubscriptionDrops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscription_drops_total",
			Help:      "Account subscriptions that ended with an error.",
		}, []string{"network"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.TxSubmitted,
			m.ConfirmPolls,
			m.ConfirmOutcomes,
			m.RefreshFailures,
			m.PersistFailures,
			m.PriceFailures,
			m.SubscriptionDrops,
		)
	}
	return m
}

// Submitted counts a submitted transaction of kind ("native" or "token").
func (m *Metrics) Submitted(network, kind string) {
	if m == nil {
		return
	}
	m.TxSubmitted.WithLabelValues(network, kind).Inc()
}

// Polled counts one confirmation poll.
func (m *Metrics) Polled(network string) {
	if m == nil {
		return
	}
	m.ConfirmPolls.WithLabelValues(network).Inc()
}

// Outcome counts the end of a confirmation wait.
func (m *Metrics) Outcome(network, outcome string) {
	if m == nil {
		return
	}
	m.ConfirmOutcomes.WithLabelValues(network, outcome).Inc()
}

// RefreshFailed counts a failed refresh of what ("balance" or "history").
func (m *Metrics) RefreshFailed(network, what string) {
	if m == nil {
		return
	}
	m.RefreshFailures.WithLabelValues(network, what).Inc()
}

// PersistFailed counts a swallowed background write failure.
func (m *Metrics) PersistFailed(table string) {
	if m == nil {
		return
	}
	m.PersistFailures.WithLabelValues(table).Inc()
}

// PriceFailed counts a failed lookup against source.
func (m *Metrics) PriceFailed(source string) {
	if m == nil {
		return
	}
	m.PriceFailures.WithLabelValues(source).Inc()
}

// SubscriptionDropped counts a subscription that ended with an error.
func (m *Metrics) SubscriptionDropped(network string) {
	if m == nil {
		return
	}
	m.SubscriptionDrops.WithLabelValues(network).Inc()
}
