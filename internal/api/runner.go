package api

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"vrpls/internal/metrics"
	"vrpls/internal/model"
	"vrpls/internal/opt"
	"vrpls/internal/store"
	"vrpls/internal/vrp"
	"vrpls/internal/webhooks"
)

// Terminal run events published after the run is persisted.
const (
	EventCompleted = "completed"
	EventFailed    = "failed"
)

// launch runs the search in the background. Runs are cancelled by Shutdown;
// a cancelled run still persists its incumbent.
func (s *Server) launch(run model.Run, in *vrp.Instance, cfg opt.Config) {
	s.runs.Go(func() error {
		s.execute(run, in, cfg)
		return nil
	})
}

func (s *Server) execute(run model.Run, in *vrp.Instance, cfg opt.Config) {
	lg := log.With().Str("run", run.ID).Logger()
	ctx, cancel := storeTimeout()
	if err := s.Store.StartRun(ctx, run.ID, time.Now().UTC()); err != nil {
		lg.Error().Err(err).Msg("mark run started")
	}
	cancel()

	limit := rate.Inf
	if s.EventRate > 0 {
		limit = rate.Limit(s.EventRate)
	}
	limiter := rate.NewLimiter(limit, 1)
	search := &opt.Search{
		Instance: in,
		Config:   cfg,
		Logger:   &lg,
		Observer: func(e opt.Event) {
			if e.Kind == opt.EventFinished {
				return
			}
			if e.Kind == opt.EventImproved && !limiter.Allow() {
				return
			}
			s.Broker.Publish(run.ID, toRunEvent(run.ID, e))
		},
	}
	res, err := search.Run(s.ctx)

	ctx, cancel = storeTimeout()
	defer cancel()
	now := time.Now().UTC()
	if err != nil {
		lg.Error().Err(err).Msg("run failed")
		s.failRun(ctx, lg, run, err.Error(), now)
		return
	}

	opt.RecordMetrics(run.ID, res.Metrics)
	out := store.Outcome{
		Distance:   res.Solution.TotalDistance,
		Encoding:   res.Solution.String(),
		Routes:     routesOf(res.Solution),
		Metrics:    toRunMetrics(res),
		FinishedAt: now,
	}
	if err := s.Store.FinishRun(ctx, run.ID, out); err != nil {
		// an unpersisted result is not a success
		lg.Error().Err(err).Msg("persist run result")
		s.failRun(ctx, lg, run, "persist result: "+err.Error(), now)
		return
	}
	opt.ForgetMetrics(run.ID)
	metrics.Runs.WithLabelValues(model.RunSucceeded).Inc()
	if _, err := s.Pub.Emit(ctx, run, webhooks.RunCompleted, map[string]any{"distance": out.Distance, "encoding": out.Encoding}); err != nil {
		lg.Error().Err(err).Msg("enqueue run.completed webhook")
	}
	s.Broker.Publish(run.ID, model.RunEvent{
		Type:      EventCompleted,
		RunID:     run.ID,
		Iteration: res.Metrics.Iterations,
		ElapsedMs: res.Elapsed.Milliseconds(),
		Distance:  out.Distance,
		Tolerance: res.Metrics.FinalTolerance,
	})
}

func (s *Server) failRun(ctx context.Context, lg zerolog.Logger, run model.Run, reason string, now time.Time) {
	metrics.Runs.WithLabelValues(model.RunFailed).Inc()
	if err := s.Store.FailRun(ctx, run.ID, reason, now); err != nil {
		lg.Error().Err(err).Msg("mark run failed")
	}
	if _, err := s.Pub.Emit(ctx, run, webhooks.RunFailed, map[string]any{"error": reason}); err != nil {
		lg.Error().Err(err).Msg("enqueue run.failed webhook")
	}
	s.Broker.Publish(run.ID, model.RunEvent{Type: EventFailed, RunID: run.ID})
}

func toRunEvent(runID string, e opt.Event) model.RunEvent {
	return model.RunEvent{
		Type:      e.Kind,
		RunID:     runID,
		Iteration: e.Iteration,
		ElapsedMs: e.Elapsed.Milliseconds(),
		State:     e.State.String(),
		Distance:  e.Distance,
		Tolerance: e.Tolerance,
	}
}

func routesOf(s vrp.Solution) [][]int {
	out := make([][]int, len(s.Routes))
	for i, r := range s.Routes {
		out[i] = append([]int(nil), r...)
	}
	return out
}

func toRunMetrics(res opt.Result) *model.RunMetrics {
	m := res.Metrics
	out := &model.RunMetrics{
		Iterations:      m.Iterations,
		Improvements:    m.Improvements,
		AcceptedWorse:   m.AcceptedWorse,
		Restarts:        m.Restarts,
		Polishes:        m.Polishes,
		PolishGains:     m.PolishGains,
		StagnantBatches: m.StagnantBatches,
		Candidates:      m.Candidates,
		InitialDistance: m.InitialDistance,
		BestDistance:    m.BestDistance,
		FinalTolerance:  m.FinalTolerance,
		FineMode:        m.FineMode,
		ElapsedMs:       res.Elapsed.Milliseconds(),
		OperatorWins:    m.OperatorWins,
	}
	for _, sn := range m.Snapshots {
		out.Snapshots = append(out.Snapshots, model.ToleranceSnapshot{
			Iteration: sn.Iteration,
			ElapsedMs: sn.Elapsed.Milliseconds(),
			Tolerance: sn.Tolerance,
			Current:   sn.Current,
			Best:      sn.Best,
		})
	}
	return out
}
