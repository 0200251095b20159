package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewMetricsForTesting(t *testing.T) {
	m := NewMetricsForTesting()

	m.RendersTotal.WithLabelValues("mortality").Inc()
	m.RowsLoaded.WithLabelValues("provinces").Set(52)
	m.SnapshotsPublished.Inc()

	assert.InDelta(t, 1, testutil.ToFloat64(m.RendersTotal.WithLabelValues("mortality")), 0)
	assert.InDelta(t, 52, testutil.ToFloat64(m.RowsLoaded.WithLabelValues("provinces")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.SnapshotsPublished), 0)

	// A second set must not collide with the first.
	other := NewMetricsForTesting()
	assert.InDelta(t, 0, testutil.ToFloat64(other.SnapshotsPublished), 0)
}
