package opt

import (
	"context"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"

	"vrpls/internal/vrp"
)

// lineInstance: depot at the origin, customers 1,2 on the x axis and 3,4 on
// the y axis, two vehicles of capacity 10, every demand 5.
func lineInstance(t *testing.T) *vrp.Instance {
	t.Helper()
	in, err := vrp.FromCoordinates(2, 10,
		[]int{0, 5, 5, 5, 5},
		[]float64{0, 1, 2, 0, 0},
		[]float64{0, 0, 0, 1, 2},
	)
	require.NoError(t, err)
	return in
}

// randomInstance places n customers on a 10x10 grid with demands 1..5.
func randomInstance(t *testing.T, n, vehicles, capacity int, seed int64) *vrp.Instance {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	demand := make([]int, n+1)
	xs := make([]float64, n+1)
	ys := make([]float64, n+1)
	xs[0], ys[0] = 5, 5
	for c := 1; c <= n; c++ {
		demand[c] = 1 + rng.Intn(5)
		xs[c] = rng.Float64() * 10
		ys[c] = rng.Float64() * 10
	}
	in, err := vrp.FromCoordinates(vehicles, capacity, demand, xs, ys)
	require.NoError(t, err)
	return in
}

func seeded(t *testing.T, in *vrp.Instance) vrp.Solution {
	t.Helper()
	s, err := GreedySeeder{Seed: 7}.Initial(context.Background(), in)
	require.NoError(t, err)
	require.NoError(t, in.Validate(s))
	return s
}

// visits returns every customer id in s, sorted.
func visits(s vrp.Solution) []int {
	var out []int
	for _, r := range s.Routes {
		out = append(out, r.Interior()...)
	}
	sort.Ints(out)
	return out
}

// steppingClock advances a fake clock on every read so the controller's time
// budget is consumed deterministically.
type steppingClock struct {
	*testingclock.FakeClock
	step time.Duration
}

func newSteppingClock(step time.Duration) *steppingClock {
	return &steppingClock{FakeClock: testingclock.NewFakeClock(time.Unix(0, 0)), step: step}
}

func (c *steppingClock) Now() time.Time {
	c.Step(c.step)
	return c.FakeClock.Now()
}

func (c *steppingClock) Since(t time.Time) time.Duration { return c.Now().Sub(t) }
