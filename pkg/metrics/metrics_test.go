package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveRemoteCall(t *testing.T) {
	before := testutil.ToFloat64(RemoteCallsTotal.WithLabelValues("metrics_test_op", OutcomeSuccess))

	ObserveRemoteCall("metrics_test_op", OutcomeSuccess, 25*time.Millisecond)
	ObserveRemoteCall("metrics_test_op", OutcomeError, time.Second)

	assert.Equal(t, before+1, testutil.ToFloat64(RemoteCallsTotal.WithLabelValues("metrics_test_op", OutcomeSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(RemoteCallsTotal.WithLabelValues("metrics_test_op", OutcomeError)))
}
