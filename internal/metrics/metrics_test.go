package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Submitted("dev", "native")
	m.Submitted("dev", "native")
	m.Polled("dev")
	m.Outcome("dev", "confirmed")
	m.PersistFailed("tokens")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.TxSubmitted.WithLabelValues("dev", "native")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConfirmPolls.WithLabelValues("dev")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PersistFailures.WithLabelValues("tokens")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.Submitted("main", "token")
	m.Polled("main")
	m.Outcome("main", "failed")
	m.RefreshFailed("main", "balance")
	m.PersistFailed("history")
	m.PriceFailed("hermes")
	m.SubscriptionDropped("main")
}
