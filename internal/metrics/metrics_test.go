package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	// Register should be safe to call multiple times
	Register()
	Register()

	assert.NotPanics(t, func() {
		IncHTTP("test_endpoint", "200")
		ObserveHTTP("test_endpoint", 0.01)
		IncCart("add")
		IncSync("completed")
	})

	before := testutil.ToFloat64(bookingsTotal.WithLabelValues("success"))
	IncBooking("success")
	assert.Equal(t, before+1, testutil.ToFloat64(bookingsTotal.WithLabelValues("success")))
}
