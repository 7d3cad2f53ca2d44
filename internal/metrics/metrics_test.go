package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterDefaultIsIdempotent(t *testing.T) {
	RegisterDefault()
	RegisterDefault()

	Runs.WithLabelValues("succeeded").Inc()

	families, err := Registry.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
		if f.GetName() == "search_runs_total" {
			require.NotEmpty(t, f.GetMetric())
			assert.GreaterOrEqual(t, f.GetMetric()[0].GetCounter().GetValue(), 1.0)
		}
	}
	assert.True(t, names["search_runs_total"])
	assert.True(t, names["go_goroutines"])
}
