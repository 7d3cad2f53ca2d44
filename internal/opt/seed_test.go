package opt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vrpls/internal/vrp"
)

func TestGreedySeederBuildsFeasibleSolution(t *testing.T) {
	in := randomInstance(t, 30, 6, 30, 42)
	s, err := GreedySeeder{Seed: 1}.Initial(context.Background(), in)
	require.NoError(t, err)
	assert.NoError(t, in.Validate(s))
	assert.True(t, s.Feasible)
	assert.InDelta(t, in.TotalDistance(s), s.TotalDistance, 1e-9)
}

func TestGreedySeederRejectsInfeasibleInstances(t *testing.T) {
	cases := []struct {
		name     string
		vehicles int
		capacity int
		demand   []int
		msg      string
	}{
		{"total demand over fleet", 2, 10, []int{0, 8, 8, 8}, "exceeds fleet capacity"},
		{"single customer over vehicle", 3, 10, []int{0, 11, 1, 1}, "exceeds vehicle capacity"},
		{"unpackable", 2, 10, []int{0, 6, 6, 6}, "packing failed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			xs := make([]float64, len(tc.demand))
			ys := make([]float64, len(tc.demand))
			for i := range xs {
				xs[i] = float64(i)
			}
			in, err := vrp.FromCoordinates(tc.vehicles, tc.capacity, tc.demand, xs, ys)
			require.NoError(t, err)

			_, err = GreedySeeder{Attempts: 10}.Initial(context.Background(), in)
			assert.ErrorIs(t, err, ErrInfeasibleInstance)
			assert.ErrorContains(t, err, tc.msg)
		})
	}
}

func TestGreedySeederHonoursCancellation(t *testing.T) {
	in := randomInstance(t, 5, 2, 20, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := GreedySeeder{}.Initial(ctx, in)
	assert.ErrorIs(t, err, context.Canceled)
}
