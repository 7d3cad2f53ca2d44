package opt

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vrpls/internal/vrp"
)

var quiet = zerolog.Nop()

func TestInitialTolerance(t *testing.T) {
	cases := []struct {
		dist, want float64
	}{
		{0.4, 1},
		{8, 10},
		{95.3, 100},
		{100, 1000},
		{12345.6, 1000},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, initialTolerance(tc.dist, 1000), "distance %v", tc.dist)
	}
}

func TestSearchImprovesAndStaysFeasible(t *testing.T) {
	in := randomInstance(t, 25, 5, 25, 21)
	var events []Event
	s := &Search{
		Instance: in,
		Config:   Config{Timeout: 120 * time.Second, Workers: 4, Seed: 3},
		Clock:    newSteppingClock(50 * time.Millisecond),
		Observer: func(e Event) { events = append(events, e) },
		Logger:   &quiet,
	}
	res, err := s.Run(context.Background())
	require.NoError(t, err)

	require.NoError(t, in.Validate(res.Solution))
	assert.InDelta(t, in.TotalDistance(res.Solution), res.Solution.TotalDistance, 1e-6)
	assert.LessOrEqual(t, res.Metrics.BestDistance, res.Metrics.InitialDistance)
	assert.Equal(t, res.Solution.TotalDistance, res.Metrics.BestDistance)
	assert.Positive(t, res.Metrics.Iterations)
	assert.Positive(t, res.Metrics.Restarts)
	assert.GreaterOrEqual(t, res.Elapsed, 120*time.Second)

	require.NotEmpty(t, events)
	assert.Equal(t, EventStarted, events[0].Kind)
	assert.Equal(t, EventFinished, events[len(events)-1].Kind)
	best := events[0].Distance
	for _, e := range events {
		assert.LessOrEqual(t, e.Distance, best+1e-9, "incumbent must never get worse")
		best = e.Distance
	}
}

func TestSearchPolishesAfterRestartsAtMinimumTolerance(t *testing.T) {
	in := randomInstance(t, 12, 4, 20, 4)
	kinds := map[string]int{}
	s := &Search{
		Instance: in,
		Config: Config{
			Timeout:           300 * time.Second,
			Workers:           2,
			StagnationTimeout: time.Second,
			RestartPeriod:     2 * time.Second,
		},
		Clock:    newSteppingClock(50 * time.Millisecond),
		Observer: func(e Event) { kinds[e.Kind]++ },
		Logger:   &quiet,
	}
	res, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, res.Metrics.FineMode)
	assert.Equal(t, 0.5, res.Metrics.FinalTolerance)
	assert.GreaterOrEqual(t, res.Metrics.Polishes, 1)
	assert.Equal(t, res.Metrics.Polishes, kinds[EventPolished])
	assert.Equal(t, 1, kinds[EventFineMode], "fine mode is entered once")
	assert.NoError(t, in.Validate(res.Solution))
	assert.NotEmpty(t, res.Metrics.Snapshots)
}

func TestSearchCountsPolishGainsAsImprovements(t *testing.T) {
	// one vehicle, so exchange never moves anything and only polish can gain
	in := axisInstance(t, 4, 1)
	start := vrp.NewSolution([]vrp.Route{{0, 3, 1, 2, 4, 0}})
	in.Evaluate(&start)
	require.InDelta(t, 12.0, start.TotalDistance, 1e-12)

	kinds := map[string]int{}
	var lastImproved float64
	s := &Search{
		Instance: in,
		Config: Config{
			Timeout:           300 * time.Second,
			Workers:           2,
			StagnationTimeout: time.Second,
			RestartPeriod:     2 * time.Second,
		},
		Seeder:    fixedSeeder{start},
		Operators: []Operator{Exchange{Retries: 5}},
		Clock:     newSteppingClock(50 * time.Millisecond),
		Observer: func(e Event) {
			kinds[e.Kind]++
			if e.Kind == EventImproved {
				lastImproved = e.Distance
			}
		},
		Logger: &quiet,
	}
	res, err := s.Run(context.Background())
	require.NoError(t, err)

	require.Positive(t, res.Metrics.PolishGains)
	assert.Equal(t, res.Metrics.PolishGains, res.Metrics.Improvements)
	assert.Equal(t, res.Metrics.Improvements, kinds[EventImproved])
	assert.Less(t, res.Solution.TotalDistance, 12.0)
	assert.Equal(t, res.Solution.TotalDistance, lastImproved)
	assert.Empty(t, res.Metrics.OperatorWins)
}

func TestSearchIsReproducible(t *testing.T) {
	in := randomInstance(t, 15, 4, 20, 8)
	run := func(workers int) vrp.Solution {
		s := &Search{
			Instance: in,
			Config:   Config{Timeout: 30 * time.Second, Workers: workers, Seed: 12},
			Clock:    newSteppingClock(20 * time.Millisecond),
			Logger:   &quiet,
		}
		res, err := s.Run(context.Background())
		require.NoError(t, err)
		return res.Solution
	}
	if diff := cmp.Diff(run(1), run(6)); diff != "" {
		t.Fatalf("search is not reproducible (-1 worker +6 workers):\n%s", diff)
	}
}

type fixedSeeder struct{ s vrp.Solution }

func (f fixedSeeder) Initial(context.Context, *vrp.Instance) (vrp.Solution, error) {
	return f.s.Clone(), nil
}

func TestSearchAbortsOnInfeasibleStart(t *testing.T) {
	called := false
	observer := func(Event) { called = true }

	overloaded, err := vrp.FromCoordinates(1, 5, []int{0, 3, 3}, []float64{0, 1, 2}, []float64{0, 0, 0})
	require.NoError(t, err)
	_, err = (&Search{Instance: overloaded, Observer: observer, Logger: &quiet}).Run(context.Background())
	assert.ErrorIs(t, err, ErrInfeasibleInstance)

	in := lineInstance(t)
	missing := vrp.NewSolution([]vrp.Route{{0, 1, 2, 0}, {0, 3, 0}})
	_, err = (&Search{Instance: in, Seeder: fixedSeeder{missing}, Observer: observer, Logger: &quiet}).Run(context.Background())
	assert.ErrorIs(t, err, ErrInfeasibleInstance)
	assert.ErrorContains(t, err, "not visited")

	assert.False(t, called, "no search activity expected")
}

func TestSearchTaskFailure(t *testing.T) {
	in := lineInstance(t)
	s := &Search{
		Instance:  in,
		Config:    Config{Timeout: 10 * time.Second, Workers: 2},
		Clock:     newSteppingClock(100 * time.Millisecond),
		Operators: []Operator{TwoOpt{}, panicOp{}},
		Logger:    &quiet,
	}
	_, err := s.Run(context.Background())
	assert.ErrorIs(t, err, ErrTaskFailed)

	s.Config.DropFailedCandidates = true
	s.Clock = newSteppingClock(100 * time.Millisecond)
	res, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.NoError(t, in.Validate(res.Solution))
}

func TestSearchStopsOnCancel(t *testing.T) {
	in := randomInstance(t, 10, 3, 30, 2)
	ctx, cancel := context.WithCancel(context.Background())
	iterations := 0
	s := &Search{
		Instance: in,
		Config:   Config{Timeout: time.Hour, Workers: 2},
		Clock:    newSteppingClock(time.Millisecond),
		Logger:   &quiet,
		Observer: func(e Event) {
			if e.Kind == EventStarted {
				cancel()
			}
			iterations = e.Iteration
		},
	}
	res, err := s.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, iterations)
	assert.NoError(t, in.Validate(res.Solution))
}
