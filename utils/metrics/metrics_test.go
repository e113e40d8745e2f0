package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/utils/metrics"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(metrics.BuyResults.WithLabelValues("Successful"))
	metrics.BuyResults.WithLabelValues("Successful").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.BuyResults.WithLabelValues("Successful")))

	days := testutil.ToFloat64(metrics.DaysCompleted)
	metrics.DaysCompleted.Inc()
	assert.Equal(t, days+1, testutil.ToFloat64(metrics.DaysCompleted))
}
