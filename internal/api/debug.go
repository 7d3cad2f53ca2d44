package api

import (
	"net/http"
	"os"
	"time"

	"vrpls/internal/buildinfo"
)

func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
	info := map[string]any{
		"build": buildinfo.Info(),
		"time":  time.Now().UTC().Format(time.RFC3339),
		"config": map[string]any{
			"PORT":                 os.Getenv("PORT"),
			"CVRP_CONFIG":          os.Getenv("CVRP_CONFIG"),
			"EVENT_RATE":           s.EventRate,
			"SEARCH_TIMEOUT":       s.Search.Timeout.String(),
			"SEARCH_WORKERS":       s.Search.Workers,
			"WEBHOOK_MAX_ATTEMPTS": os.Getenv("WEBHOOK_MAX_ATTEMPTS"),
			"HAS_DATABASE_URL":     os.Getenv("DATABASE_URL") != "",
			"HAS_REDIS_URL":        os.Getenv("REDIS_URL") != "",
		},
	}
	writeJSON(w, http.StatusOK, info)
}
