package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New("test", prometheus.NewRegistry())

	m.TransitionCommitted("Booked", "Confirmed")
	m.TransitionCommitted("Booked", "Confirmed")
	m.NotificationsPersisted("report_attached", 2)
	m.NotificationsPersisted("booked", 0)
	m.DispatchFailed("cancelled")
	m.DatabaseOperation("get_pending_events", errors.New("down"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Transitions.WithLabelValues("Booked", "Confirmed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.NotificationsCreated.WithLabelValues("report_attached")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.NotificationsCreated.WithLabelValues("booked")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DispatchFailures.WithLabelValues("cancelled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DatabaseOperations.WithLabelValues("get_pending_events", "error")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.TransitionCommitted("Booked", "Cancelled")
		m.TransitionRejected("cancel", "already_terminal")
		m.NotificationsPersisted("cancelled", 1)
		m.DispatchFailed("cancelled")
		m.DatabaseOperation("x", nil)
	})
}
