package opt

import (
	"context"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vrpls/internal/vrp"
)

type panicOp struct{}

func (panicOp) Name() string { return "panic" }
func (panicOp) Propose(*vrp.Instance, vrp.Solution, *rand.Rand) (vrp.Solution, error) {
	panic("boom")
}

type infeasibleOp struct{}

func (infeasibleOp) Name() string { return "infeasible" }
func (infeasibleOp) Propose(_ *vrp.Instance, cur vrp.Solution, _ *rand.Rand) (vrp.Solution, error) {
	out := cur.Clone()
	out.Feasible = false
	out.TotalDistance = 0
	return out, nil
}

// fixedOp proposes cur with a fixed distance so batch selection is observable.
type fixedOp struct {
	name string
	dist float64
}

func (f fixedOp) Name() string { return f.name }
func (f fixedOp) Propose(_ *vrp.Instance, cur vrp.Solution, _ *rand.Rand) (vrp.Solution, error) {
	out := cur.Clone()
	out.TotalDistance = f.dist
	return out, nil
}

func TestSchedulerPicksBestFeasible(t *testing.T) {
	in := lineInstance(t)
	base := vrp.NewSolution([]vrp.Route{{0, 1, 2, 0}, {0, 3, 4, 0}})
	in.Evaluate(&base)

	ops := []Operator{fixedOp{"a", 9}, infeasibleOp{}, fixedOp{"b", 7}, fixedOp{"c", 8}}
	s := NewScheduler(in, ops, Config{Workers: 3})
	defer s.Close()

	best, ok, err := s.Best(context.Background(), base)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "b", best.Operator)
	assert.Equal(t, 7.0, best.TotalDistance)
	assert.Equal(t, 4, s.Candidates)
}

func TestSchedulerNoFeasibleCandidate(t *testing.T) {
	in := lineInstance(t)
	base := vrp.NewSolution([]vrp.Route{{0, 1, 2, 0}, {0, 3, 4, 0}})
	in.Evaluate(&base)

	s := NewScheduler(in, []Operator{infeasibleOp{}, infeasibleOp{}}, Config{Workers: 2})
	defer s.Close()
	_, ok, err := s.Best(context.Background(), base)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSchedulerFineModeSamples(t *testing.T) {
	in := lineInstance(t)
	base := vrp.NewSolution([]vrp.Route{{0, 1, 2, 0}, {0, 3, 4, 0}})
	in.Evaluate(&base)

	s := NewScheduler(in, []Operator{TwoOpt{}, Relocate{}}, Config{Workers: 4, FineSamples: 10})
	defer s.Close()
	_, _, err := s.Best(context.Background(), base)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Candidates)

	s.SetFine(true)
	_, _, err = s.Best(context.Background(), base)
	require.NoError(t, err)
	assert.Equal(t, 2+20, s.Candidates)
}

func TestSchedulerTaskPanicIsFatal(t *testing.T) {
	in := lineInstance(t)
	base := vrp.NewSolution([]vrp.Route{{0, 1, 2, 0}, {0, 3, 4, 0}})
	in.Evaluate(&base)

	s := NewScheduler(in, []Operator{TwoOpt{}, panicOp{}}, Config{Workers: 2})
	defer s.Close()
	_, _, err := s.Best(context.Background(), base)
	require.ErrorIs(t, err, ErrTaskFailed)
	assert.ErrorContains(t, err, "panic: boom")
}

func TestSchedulerDropsFailedCandidatesWhenConfigured(t *testing.T) {
	in := lineInstance(t)
	base := vrp.NewSolution([]vrp.Route{{0, 1, 2, 0}, {0, 3, 4, 0}})
	in.Evaluate(&base)

	s := NewScheduler(in, []Operator{panicOp{}, fixedOp{"ok", 5}}, Config{Workers: 2, DropFailedCandidates: true})
	defer s.Close()
	best, ok, err := s.Best(context.Background(), base)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ok", best.Operator)
}

func TestSchedulerIsIndependentOfWorkerCount(t *testing.T) {
	in := randomInstance(t, 20, 5, 20, 9)
	base := seeded(t, in)

	run := func(workers int) []vrp.Solution {
		s := NewScheduler(in, []Operator{TwoOpt{}, RandomRelocate{}, Exchange{}, NewCyclic(5)}, Config{Workers: workers, Seed: 99})
		defer s.Close()
		s.SetFine(true)
		cur := base
		var trail []vrp.Solution
		for i := 0; i < 20; i++ {
			best, ok, err := s.Best(context.Background(), cur)
			require.NoError(t, err)
			if ok {
				cur = best.Solution
			}
			trail = append(trail, cur)
		}
		return trail
	}
	if diff := cmp.Diff(run(1), run(8)); diff != "" {
		t.Fatalf("results depend on worker count (-1 worker +8 workers):\n%s", diff)
	}
}

func TestSchedulerCancelled(t *testing.T) {
	in := lineInstance(t)
	s := NewScheduler(in, []Operator{TwoOpt{}}, Config{})
	defer s.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := s.Best(ctx, vrp.Solution{})
	assert.ErrorIs(t, err, context.Canceled)
}
