package opt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetricsStore(t *testing.T) {
	_, ok := GetMetrics("run-x")
	assert.False(t, ok)

	RecordMetrics("run-x", Metrics{Iterations: 7, BestDistance: 12.5})
	m, ok := GetMetrics("run-x")
	assert.True(t, ok)
	assert.Equal(t, 7, m.Iterations)

	ForgetMetrics("run-x")
	_, ok = GetMetrics("run-x")
	assert.False(t, ok)
}
