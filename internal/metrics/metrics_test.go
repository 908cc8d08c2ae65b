package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestLiveTicksTotal_ByOutcome(t *testing.T) {
	before := testutil.ToFloat64(LiveTicksTotal.WithLabelValues(OutcomeSkippedBusy))

	LiveTicksTotal.WithLabelValues(OutcomeSkippedBusy).Inc()
	LiveTicksTotal.WithLabelValues(OutcomeSkippedBusy).Inc()

	assert.Equal(t, before+2, testutil.ToFloat64(LiveTicksTotal.WithLabelValues(OutcomeSkippedBusy)))
}

func TestModelState_Gauge(t *testing.T) {
	ModelState.Set(2)
	assert.Equal(t, 2.0, testutil.ToFloat64(ModelState))

	ModelState.Set(-1)
	assert.Equal(t, -1.0, testutil.ToFloat64(ModelState))
}

func TestCollectorNames(t *testing.T) {
	assert.Equal(t, 1, testutil.CollectAndCount(ActiveSessions, "facewatch_active_sessions"))
	assert.Equal(t, 1, testutil.CollectAndCount(SessionsStartedTotal, "facewatch_sessions_started_total"))
}
