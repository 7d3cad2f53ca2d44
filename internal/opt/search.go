package opt

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
	"k8s.io/utils/clock"

	"vrpls/internal/metrics"
	"vrpls/internal/vrp"
)

// State is the controller's position in the search loop.
type State int

const (
	Exploring State = iota
	Stagnant
	Restarting
	ExactPolish
)

func (s State) String() string {
	switch s {
	case Exploring:
		return "exploring"
	case Stagnant:
		return "stagnant"
	case Restarting:
		return "restarting"
	case ExactPolish:
		return "exact-polish"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Metrics summarises one run.
type Metrics struct {
	Iterations      int
	Improvements    int
	AcceptedWorse   int
	Restarts        int
	Polishes        int
	PolishGains     int
	StagnantBatches int
	Candidates      int
	InitialDistance float64
	BestDistance    float64
	FinalTolerance  float64
	FineMode        bool
	OperatorWins    map[string]int
	Snapshots       []ToleranceSnapshot
}

// ToleranceSnapshot is taken every snapshotEvery iterations.
type ToleranceSnapshot struct {
	Iteration int
	Elapsed   time.Duration
	Tolerance float64
	Current   float64
	Best      float64
}

const snapshotEvery = 50

// Event kinds emitted to an Observer.
const (
	EventStarted   = "started"
	EventImproved  = "improved"
	EventRestarted = "restarted"
	EventPolished  = "polished"
	EventFineMode  = "fine-mode"
	EventFinished  = "finished"
)

// Event describes a controller transition.
type Event struct {
	Kind      string
	Iteration int
	Elapsed   time.Duration
	State     State
	Distance  float64
	Tolerance float64
}

// Observer is called synchronously on the controller goroutine.
type Observer func(Event)

// Result is the outcome of a finished run.
type Result struct {
	Solution vrp.Solution
	Metrics  Metrics
	Elapsed  time.Duration
}

// Search is the time-budgeted local-search controller. The zero value of
// every optional field is usable: Clock defaults to the real clock, Seeder
// to GreedySeeder, Operators to the roster named in Config.
type Search struct {
	Instance  *vrp.Instance
	Config    Config
	Clock     clock.PassiveClock
	Seeder    InitialSolver
	Operators []Operator
	Observer  Observer
	Logger    *zerolog.Logger
}

// Run builds the initial solution and improves it until the time budget is
// spent or ctx is cancelled. It returns the best feasible solution found.
// An initial solution that fails validation aborts the run before any
// candidate is generated.
func (s *Search) Run(ctx context.Context) (Result, error) {
	cfg := s.Config.withDefaults()
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	clk := s.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}
	lg := log.Logger
	if s.Logger != nil {
		lg = *s.Logger
	}
	seeder := s.Seeder
	if seeder == nil {
		seeder = GreedySeeder{Seed: cfg.Seed}
	}
	in := s.Instance

	start := clk.Now()
	initial, err := seeder.Initial(ctx, in)
	if err != nil {
		return Result{}, fmt.Errorf("initial solution: %w", err)
	}
	in.Evaluate(&initial)
	if err := in.Validate(initial); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInfeasibleInstance, err)
	}

	ops := s.Operators
	if ops == nil {
		if ops, err = Roster(cfg); err != nil {
			return Result{}, err
		}
	}
	sched := NewScheduler(in, ops, cfg)
	sched.Logger = &lg
	defer sched.Close()

	incumbent, current := initial, initial
	tolerance := initialTolerance(initial.TotalDistance, cfg.MaxInitialTolerance)
	m := Metrics{InitialDistance: initial.TotalDistance, OperatorWins: map[string]int{}}
	state := Exploring

	emit := func(kind string) {
		metrics.SearchEvents.WithLabelValues(kind).Inc()
		if s.Observer != nil {
			s.Observer(Event{
				Kind:      kind,
				Iteration: m.Iterations,
				Elapsed:   clk.Since(start),
				State:     state,
				Distance:  incumbent.TotalDistance,
				Tolerance: tolerance,
			})
		}
	}
	progress := rate.Sometimes{Interval: 2 * time.Second}

	lg.Info().
		Int("customers", in.NumCustomers-1).
		Int("vehicles", in.NumVehicles).
		Float64("initial", initial.TotalDistance).
		Float64("tolerance", tolerance).
		Int("operators", len(ops)).
		Msg("search started")
	emit(EventStarted)

	lastImprovement := clk.Now()
	lastToleranceUpdate := lastImprovement
	restartsAtMin := 0
	polished := false

	for clk.Since(start) < cfg.Timeout && ctx.Err() == nil {
		m.Iterations++

		threshold := cfg.PolishAfterRestarts
		if polished {
			threshold = cfg.PolishAfterRestartsRepeat
		}
		if restartsAtMin >= threshold {
			state = ExactPolish
			before := incumbent.TotalDistance
			var gained bool
			incumbent, gained = Polish(in, incumbent)
			current = incumbent
			lastImprovement = clk.Now()
			restartsAtMin = 0
			polished = true
			m.Polishes++
			lg.Debug().Float64("before", before).Float64("after", incumbent.TotalDistance).Msg("exact polish")
			emit(EventPolished)
			if gained {
				m.Improvements++
				m.PolishGains++
				metrics.IncumbentDistance.Set(incumbent.TotalDistance)
				emit(EventImproved)
			}
			state = Exploring
		}

		if tolerance < cfg.FineToleranceThreshold && !sched.Fine() {
			sched.SetFine(true)
			m.FineMode = true
			lg.Debug().Float64("tolerance", tolerance).Int("samples", cfg.FineSamples).Msg("fine mode")
			emit(EventFineMode)
		}

		now := clk.Now()
		if now.Sub(lastImprovement) >= cfg.StagnationTimeout || now.Sub(lastToleranceUpdate) >= cfg.RestartPeriod {
			state = Restarting
			current = incumbent
			lastImprovement = now
			lastToleranceUpdate = now
			tolerance = math.Max(tolerance/2, cfg.MinTolerance)
			if tolerance <= cfg.MinTolerance {
				restartsAtMin++
			}
			m.Restarts++
			metrics.Tolerance.Set(tolerance)
			lg.Debug().Float64("tolerance", tolerance).Int("restartsAtMin", restartsAtMin).Msg("restart from incumbent")
			emit(EventRestarted)
			state = Exploring
		}

		cand, ok, err := sched.Best(ctx, current)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			return Result{Solution: incumbent, Metrics: m, Elapsed: clk.Since(start)}, err
		}
		if !ok {
			// lastImprovement is left alone, so only the stagnation timer restarts
			state = Stagnant
			m.StagnantBatches++
		} else {
			state = Exploring
			if cand.TotalDistance < current.TotalDistance+tolerance {
				if cand.TotalDistance >= current.TotalDistance {
					m.AcceptedWorse++
				}
				current = cand.Solution
				if current.TotalDistance < incumbent.TotalDistance {
					incumbent = current
					lastImprovement = clk.Now()
					restartsAtMin = 0
					m.Improvements++
					m.OperatorWins[cand.Operator]++
					metrics.IncumbentDistance.Set(incumbent.TotalDistance)
					emit(EventImproved)
				}
			}
		}

		if m.Iterations%snapshotEvery == 0 {
			m.Snapshots = append(m.Snapshots, ToleranceSnapshot{
				Iteration: m.Iterations,
				Elapsed:   clk.Since(start),
				Tolerance: tolerance,
				Current:   current.TotalDistance,
				Best:      incumbent.TotalDistance,
			})
		}
		progress.Do(func() {
			lg.Info().
				Int("iteration", m.Iterations).
				Float64("best", incumbent.TotalDistance).
				Float64("current", current.TotalDistance).
				Float64("tolerance", tolerance).
				Str("state", state.String()).
				Msg("search progress")
		})
	}

	m.Candidates = sched.Candidates
	m.BestDistance = incumbent.TotalDistance
	m.FinalTolerance = tolerance
	elapsed := clk.Since(start)
	lg.Info().
		Int("iterations", m.Iterations).
		Int("restarts", m.Restarts).
		Int("polishes", m.Polishes).
		Float64("best", incumbent.TotalDistance).
		Dur("elapsed", elapsed).
		Msg("search finished")
	emit(EventFinished)
	return Result{Solution: incumbent, Metrics: m, Elapsed: elapsed}, nil
}
