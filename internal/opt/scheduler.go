package opt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"vrpls/internal/metrics"
	"vrpls/internal/vrp"
)

// ErrTaskFailed wraps a panic or error raised inside a candidate task.
var ErrTaskFailed = errors.New("opt: candidate task failed")

// Candidate is a scheduled proposal together with the operator that made it.
type Candidate struct {
	vrp.Solution
	Operator string
}

type task struct {
	op  Operator
	rng int64
}

type outcome struct {
	cand Candidate
	err  error
}

// Scheduler fans candidate generation out to a persistent worker pool and
// returns the best feasible proposal of each batch.
type Scheduler struct {
	in         *vrp.Instance
	ops        []Operator
	seeds      []int64
	pool       *pool
	fine       bool
	samples    int
	dropFailed bool
	calls      uint64

	// Candidates counts every proposal evaluated so far.
	Candidates int
	// Logger defaults to the global zerolog logger.
	Logger *zerolog.Logger
}

// NewScheduler starts the worker pool. Each operator gets its own seed
// derived from the base seed; per-task streams are derived from it and a
// batch counter so results do not depend on worker interleaving.
func NewScheduler(in *vrp.Instance, ops []Operator, cfg Config) *Scheduler {
	cfg = cfg.withDefaults()
	seeds := make([]int64, len(ops))
	for i := range ops {
		seeds[i] = deriveSeed(cfg.Seed, uint64(i)+1)
	}
	return &Scheduler{
		in:         in,
		ops:        ops,
		seeds:      seeds,
		pool:       newPool(cfg.Workers),
		samples:    cfg.FineSamples,
		dropFailed: cfg.DropFailedCandidates,
	}
}

// SetFine switches to fine mode: every operator proposes FineSamples
// candidates per batch instead of one.
func (s *Scheduler) SetFine(fine bool) { s.fine = fine }

// Fine reports whether fine mode is active.
func (s *Scheduler) Fine() bool { return s.fine }

// Close shuts down the worker pool.
func (s *Scheduler) Close() { s.pool.Close() }

func (s *Scheduler) perOperator() int {
	if s.fine {
		return s.samples
	}
	return 1
}

// Best runs one bulk-synchronous batch against cur and returns the feasible
// candidate with the smallest total distance. ok is false when no candidate
// in the batch was feasible. A failed task aborts the batch with an error
// wrapping ErrTaskFailed unless failed candidates are configured to be
// dropped.
func (s *Scheduler) Best(ctx context.Context, cur vrp.Solution) (best Candidate, ok bool, err error) {
	if err := ctx.Err(); err != nil {
		return Candidate{}, false, err
	}
	started := time.Now()
	k := s.perOperator()
	tasks := make([]task, 0, len(s.ops)*k)
	for i, op := range s.ops {
		for j := 0; j < k; j++ {
			concrete := op
			if r, isResolver := op.(resolver); isResolver {
				concrete = r.Next()
			}
			tasks = append(tasks, task{op: concrete, rng: deriveSeed(s.seeds[i], s.calls)})
			s.calls++
		}
	}

	results := make([]outcome, len(tasks))
	var wg sync.WaitGroup
	wg.Add(len(tasks))
	for i := range tasks {
		i := i
		s.pool.submit(func() {
			defer wg.Done()
			results[i] = s.run(tasks[i], cur)
		})
	}
	wg.Wait()
	metrics.BatchDuration.Observe(time.Since(started).Seconds())

	for _, r := range results {
		s.Candidates++
		if r.err != nil {
			metrics.Candidates.WithLabelValues(r.cand.Operator, "failed").Inc()
			if !s.dropFailed {
				return Candidate{}, false, r.err
			}
			lg := &log.Logger
			if s.Logger != nil {
				lg = s.Logger
			}
			lg.Warn().Err(r.err).Str("operator", r.cand.Operator).Msg("dropping failed candidate")
			continue
		}
		if !r.cand.Feasible {
			metrics.Candidates.WithLabelValues(r.cand.Operator, "infeasible").Inc()
			continue
		}
		metrics.Candidates.WithLabelValues(r.cand.Operator, "feasible").Inc()
		if !ok || r.cand.TotalDistance < best.TotalDistance {
			best, ok = r.cand, true
		}
	}
	return best, ok, nil
}

func (s *Scheduler) run(t task, cur vrp.Solution) (res outcome) {
	name := t.op.Name()
	res.cand.Operator = name
	defer func() {
		if p := recover(); p != nil {
			res.err = fmt.Errorf("%w: %s: panic: %v", ErrTaskFailed, name, p)
		}
	}()
	sol, err := t.op.Propose(s.in, cur, rngFromSeed(t.rng))
	if err != nil {
		res.err = fmt.Errorf("%w: %s: %v", ErrTaskFailed, name, err)
		return res
	}
	res.cand.Solution = sol
	return res
}
