package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"vrpls/internal/auth"
	"vrpls/internal/model"
	"vrpls/internal/opt"
	"vrpls/internal/store"
)

// CreateRunHandler handles POST /v1/runs. The run is queued and solved in
// the background; the response carries its id.
func (s *Server) CreateRunHandler(w http.ResponseWriter, r *http.Request) {
	var principal auth.Principal
	if s.Auth.Enabled() {
		p, err := s.Auth.FromRequest(r)
		if err != nil {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeTypedProblem(w, problemUnauthorized, http.StatusUnauthorized, "Unauthorized", err.Error(), r.URL.Path)
			return
		}
		principal = p
	}
	var req model.RunRequest
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes())
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeTypedProblem(w, problemRequestTooLarge, http.StatusRequestEntityTooLarge, "Request too large",
				fmt.Sprintf("body exceeds %d bytes", tooLarge.Limit), r.URL.Path)
			return
		}
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := validateRunRequest(&req); err != nil {
		writeTypedProblem(w, problemInvalidRequest, http.StatusBadRequest, "Invalid run request", err.Error(), r.URL.Path)
		return
	}
	in, err := buildInstance(&req)
	if err != nil {
		writeTypedProblem(w, problemInvalidInstance, http.StatusBadRequest, "Invalid instance", err.Error(), r.URL.Path)
		return
	}
	if in.TotalDemand() > in.FleetCapacity() {
		detail := fmt.Sprintf("total demand %d exceeds fleet capacity %d", in.TotalDemand(), in.FleetCapacity())
		writeTypedProblem(w, problemInfeasible, http.StatusUnprocessableEntity, "Infeasible instance", detail, r.URL.Path)
		return
	}
	cfg, err := applyOverrides(s.Search, req.Search)
	if err != nil {
		writeTypedProblem(w, problemInvalidRequest, http.StatusBadRequest, "Invalid search settings", err.Error(), r.URL.Path)
		return
	}

	run, err := s.Store.CreateRun(r.Context(), model.Run{
		Name:        req.Name,
		Status:      model.RunQueued,
		Customers:   in.NumCustomers - 1,
		Vehicles:    in.NumVehicles,
		Capacity:    in.VehicleCapacity,
		Callback:    req.Callback,
		SubmittedBy: principal.Subject,
	})
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Create run failed", err.Error(), r.URL.Path)
		return
	}
	s.launch(run, in, cfg)
	w.Header().Set("Location", "/v1/runs/"+run.ID)
	writeJSON(w, http.StatusAccepted, run)
}

// ListRunsHandler handles GET /v1/runs?status=&cursor=&limit=
func (s *Server) ListRunsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := q.Get("status")
	switch status {
	case "", model.RunQueued, model.RunRunning, model.RunSucceeded, model.RunFailed:
	default:
		writeProblem(w, http.StatusBadRequest, "Invalid status", status, r.URL.Path)
		return
	}
	limit := 100
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", v, r.URL.Path)
			return
		}
		limit = n
	}
	items, next, err := s.Store.ListRuns(r.Context(), status, q.Get("cursor"), limit)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List runs failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
}

// GetRunHandler handles GET /v1/runs/{id}
func (s *Server) GetRunHandler(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	if run.Metrics == nil {
		if m, found := opt.GetMetrics(run.ID); found {
			run.Metrics = toRunMetrics(opt.Result{Metrics: m})
		}
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) lookupRun(w http.ResponseWriter, r *http.Request) (model.Run, bool) {
	run, err := s.Store.GetRun(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		sendProblem(w, Problem{
			Type:     problemRunNotFound,
			Title:    "Run not found",
			Status:   http.StatusNotFound,
			Instance: r.URL.Path,
			RunID:    r.PathValue("id"),
		})
		return model.Run{}, false
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Get run failed", err.Error(), r.URL.Path)
		return model.Run{}, false
	}
	return run, true
}

// SolverConfigHandler returns the search defaults new runs start from.
func (s *Server) SolverConfigHandler(w http.ResponseWriter, r *http.Request) {
	c := s.Search
	writeJSON(w, http.StatusOK, model.SolverConfig{
		Timeout:                   c.Timeout.String(),
		Workers:                   c.Workers,
		Seed:                      c.Seed,
		Operators:                 c.Operators,
		AvailableOperators:        opt.OperatorNames(),
		FineSamples:               c.FineSamples,
		FineToleranceThreshold:    c.FineToleranceThreshold,
		StagnationTimeout:         c.StagnationTimeout.String(),
		RestartPeriod:             c.RestartPeriod.String(),
		MinTolerance:              c.MinTolerance,
		MaxInitialTolerance:       c.MaxInitialTolerance,
		PolishAfterRestarts:       c.PolishAfterRestarts,
		PolishAfterRestartsRepeat: c.PolishAfterRestartsRepeat,
		ExchangeRetries:           c.ExchangeRetries,
		CyclicPeriod:              c.CyclicPeriod,
		DropFailedCandidates:      c.DropFailedCandidates,
	})
}

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	// Check backing services when Postgres or Redis are in use
	type pinger interface{ Ping(ctx context.Context) error }
	for _, dep := range []any{s.Store, s.Broker} {
		p, ok := dep.(pinger)
		if !ok {
			continue
		}
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		err := p.Ping(ctx)
		cancel()
		if err != nil {
			writeProblem(w, http.StatusServiceUnavailable, "Not Ready", err.Error(), r.URL.Path)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
