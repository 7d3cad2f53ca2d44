package vrp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Depot at the origin, two customers on each axis, 2 vehicles of capacity 10.
func lineInstance(t *testing.T) *Instance {
	t.Helper()
	in, err := FromCoordinates(2, 10,
		[]int{0, 5, 5, 5, 5},
		[]float64{0, 1, 2, 0, 0},
		[]float64{0, 0, 0, 1, 2},
	)
	require.NoError(t, err)
	return in
}

func TestRouteFeasible(t *testing.T) {
	in := lineInstance(t)
	cases := []struct {
		name  string
		route Route
		want  bool
	}{
		{"empty route", Route{0, 0}, true},
		{"two customers at capacity", Route{0, 1, 2, 0}, true},
		{"too short", Route{0}, false},
		{"missing leading depot", Route{1, 2, 0}, false},
		{"missing trailing depot", Route{0, 1, 2}, false},
		{"duplicate customer", Route{0, 1, 1, 0}, false},
		{"over capacity", Route{0, 1, 2, 3, 0}, false},
		{"depot in interior", Route{0, 1, 0, 2, 0}, false},
		{"unknown customer", Route{0, 9, 0}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, in.RouteFeasible(tc.route))
		})
	}
}

func TestSolutionFeasible(t *testing.T) {
	in := lineInstance(t)
	ok := NewSolution([]Route{{0, 1, 2, 0}, {0, 3, 4, 0}})
	assert.True(t, in.SolutionFeasible(ok))

	missing := NewSolution([]Route{{0, 1, 2, 0}, {0, 3, 0}})
	assert.False(t, in.SolutionFeasible(missing), "customer 4 is never visited")

	shared := NewSolution([]Route{{0, 1, 2, 0}, {0, 2, 3, 0}})
	assert.False(t, in.SolutionFeasible(shared), "customer 2 is visited twice")

	wrongCount := NewSolution([]Route{{0, 1, 2, 0}, {0, 3, 0}, {0, 4, 0}})
	assert.False(t, in.SolutionFeasible(wrongCount))
}

func TestRouteDistance(t *testing.T) {
	in := lineInstance(t)
	assert.InDelta(t, 4.0, in.RouteDistance(Route{0, 1, 2, 0}), 1e-12)
	assert.InDelta(t, 4.0, in.RouteDistance(Route{0, 3, 4, 0}), 1e-12)
	assert.Zero(t, in.RouteDistance(Route{0, 0}))

	s := NewSolution([]Route{{0, 1, 2, 0}, {0, 3, 4, 0}})
	in.Evaluate(&s)
	assert.True(t, s.Feasible)
	assert.InDelta(t, 8.0, s.TotalDistance, 1e-12)
}

func TestRouteDistanceChangeMatchesFullRecompute(t *testing.T) {
	in := lineInstance(t)
	base := NewSolution([]Route{{0, 1, 2, 0}, {0, 3, 4, 0}})
	in.Evaluate(&base)

	swapped := base.Clone()
	swapped.Routes[0] = Route{0, 3, 2, 0}
	swapped.Routes[1] = Route{0, 1, 4, 0}
	in.Reconcile(base, &swapped, 0, 1)

	want := 6 + 2*math.Sqrt(5)
	assert.InDelta(t, want, swapped.TotalDistance, 1e-9)
	assert.InDelta(t, in.TotalDistance(swapped), swapped.TotalDistance, 1e-9)
	assert.InDelta(t, 2*math.Sqrt(5)-2, swapped.TotalDistance-base.TotalDistance, 1e-9)
	assert.True(t, swapped.Feasible)
}

func TestReconcileCountsRepeatedRouteOnce(t *testing.T) {
	in := lineInstance(t)
	base := NewSolution([]Route{{0, 1, 2, 0}, {0, 3, 4, 0}})
	in.Evaluate(&base)

	out := base.Clone()
	out.Routes[0] = Route{0, 2, 1, 0}
	in.Reconcile(base, &out, 0, 0, 0)

	assert.InDelta(t, in.TotalDistance(out), out.TotalDistance, 1e-9)
}

func TestNewInstanceRejectsBadInput(t *testing.T) {
	_, err := NewInstance(0, 10, []int{0, 1}, [][]float64{{0, 1}, {1, 0}})
	assert.ErrorIs(t, err, ErrInvalidInstance)

	_, err = NewInstance(1, 10, []int{3, 1}, [][]float64{{0, 1}, {1, 0}})
	assert.ErrorIs(t, err, ErrInvalidInstance, "depot demand must be zero")

	_, err = NewInstance(1, 10, []int{0, 1}, [][]float64{{0, 1}, {2, 0}})
	assert.ErrorIs(t, err, ErrInvalidInstance, "asymmetric matrix")

	_, err = NewInstance(1, 10, []int{0, 1}, [][]float64{{0, 1}})
	assert.ErrorIs(t, err, ErrInvalidInstance)

	_, err = NewInstance(1, 10, make([]int, MaxCustomers+1), nil)
	assert.ErrorIs(t, err, ErrInvalidInstance, "too many customers")
}

func TestFromCoordinatesRejectsOversizedInstance(t *testing.T) {
	n := MaxCustomers + 1
	_, err := FromCoordinates(1, 10, make([]int, n), make([]float64, n), make([]float64, n))
	assert.ErrorIs(t, err, ErrInvalidInstance)
}
