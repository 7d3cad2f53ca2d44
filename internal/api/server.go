package api

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"vrpls/internal/auth"
	"vrpls/internal/config"
	"vrpls/internal/metrics"
	"vrpls/internal/opt"
	"vrpls/internal/store"
	"vrpls/internal/webhooks"
)

type Server struct {
	Store  store.Store
	Pub    *webhooks.Publisher
	Broker EventBroker
	// Auth guards run submission; nil or ModeOff accepts every request.
	Auth *auth.Verifier
	// Search holds the defaults every run starts from.
	Search opt.Config
	// EventRate caps improvement events per second and run on the broker.
	EventRate float64
	// MaxBodyBytes caps run submission bodies; zero means defaultMaxBodyBytes.
	MaxBodyBytes int64

	ctx    context.Context
	cancel context.CancelFunc
	runs   errgroup.Group
}

// NewServer wires the store and broker chosen by cfg. Without DATABASE_URL
// runs are kept in memory; without REDIS_URL events stay in process.
func NewServer(cfg config.Server, search opt.Config) (*Server, error) {
	verifier, err := auth.NewVerifierFromEnv()
	if err != nil {
		return nil, err
	}
	var s store.Store
	if cfg.DatabaseURL == "" {
		s = store.NewMemory()
	} else {
		sp, err := store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if cfg.DBMigrate {
			if err := sp.MigrateDir(cfg.MigrationsDir); err != nil {
				return nil, err
			}
		}
		s = sp
	}
	var broker EventBroker = NewBroker()
	if cfg.RedisURL != "" {
		if rb, err := NewRedisBroker(cfg.RedisURL); err == nil {
			broker = rb
		} else {
			log.Warn().Err(err).Msg("redis broker unavailable, using in-process broker")
		}
	}
	srv := newServer(s, broker, search, cfg.EventRatePerSec)
	srv.Auth = verifier
	return srv, nil
}

func newServer(s store.Store, broker EventBroker, search opt.Config, eventRate float64) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		Store:     s,
		Pub:       webhooks.NewPublisher(s),
		Broker:    broker,
		Search:    search,
		EventRate: eventRate,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Routes returns the HTTP handler with every endpoint mounted.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	// Runs
	mux.HandleFunc("POST /v1/runs", s.CreateRunHandler)
	mux.HandleFunc("GET /v1/runs", s.ListRunsHandler)
	mux.HandleFunc("GET /v1/runs/{id}", s.GetRunHandler)
	mux.HandleFunc("GET /v1/runs/{id}/events/ws", s.RunEventsWSHandler)
	mux.HandleFunc("GET /v1/solver/config", s.SolverConfigHandler)

	// Health
	mux.HandleFunc("GET /healthz", s.HealthHandler)
	mux.HandleFunc("GET /readyz", s.ReadyHandler)

	// Admin
	mux.HandleFunc("GET /debug/info", s.DebugJSON)
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	return logMiddleware(mux)
}

// NewWebhookWorker creates a background worker for webhook deliveries.
func (s *Server) NewWebhookWorker(maxAttempts int) *webhooks.Worker {
	return webhooks.NewWorker(s.Store, maxAttempts)
}

// Shutdown cancels in-flight runs and waits for them to persist their
// incumbent, or until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	done := make(chan error, 1)
	go func() { done <- s.runs.Wait() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until every launched run has finished.
func (s *Server) Wait() error { return s.runs.Wait() }

func storeTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}
