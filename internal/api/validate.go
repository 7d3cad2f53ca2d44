package api

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"vrpls/internal/model"
	"vrpls/internal/opt"
	"vrpls/internal/vrp"
)

// maxRunTimeout bounds per-run timeout overrides.
const maxRunTimeout = time.Hour

// defaultMaxBodyBytes fits a full distance matrix at vrp.MaxCustomers.
const defaultMaxBodyBytes = 64 << 20

func (s *Server) maxBodyBytes() int64 {
	if s.MaxBodyBytes > 0 {
		return s.MaxBodyBytes
	}
	return defaultMaxBodyBytes
}

func validateRunRequest(req *model.RunRequest) error {
	switch {
	case req.Instance == nil && strings.TrimSpace(req.InstanceText) == "":
		return errors.New("one of instance or instanceText is required")
	case req.Instance != nil && req.InstanceText != "":
		return errors.New("instance and instanceText are mutually exclusive")
	}
	if in := req.Instance; in != nil {
		n := len(in.Demand)
		if n < 2 {
			return fmt.Errorf("demand must list the depot and at least one customer, got %d entries", n)
		}
		if n > vrp.MaxCustomers || len(in.Distance) > vrp.MaxCustomers {
			return fmt.Errorf("instances are limited to %d entries including the depot", vrp.MaxCustomers)
		}
		if len(in.Distance) == 0 && (len(in.X) != n || len(in.Y) != n) {
			return fmt.Errorf("x and y must have %d entries each when no distance matrix is given", n)
		}
		if len(in.Distance) > 0 && (len(in.X) > 0 || len(in.Y) > 0) {
			return errors.New("coordinates and distance matrix are mutually exclusive")
		}
	}
	if o := req.Search; o != nil {
		if o.TimeoutMs < 0 || time.Duration(o.TimeoutMs)*time.Millisecond > maxRunTimeout {
			return fmt.Errorf("timeoutMs must be in [0,%d]", maxRunTimeout.Milliseconds())
		}
		if o.Workers < 0 {
			return errors.New("workers must be >= 0")
		}
	}
	if cb := req.Callback; cb != nil {
		if !strings.HasPrefix(cb.URL, "http://") && !strings.HasPrefix(cb.URL, "https://") {
			return fmt.Errorf("callback url must be http(s): %q", cb.URL)
		}
	}
	return nil
}

func buildInstance(req *model.RunRequest) (*vrp.Instance, error) {
	if req.InstanceText != "" {
		return vrp.ParseInstance(strings.NewReader(req.InstanceText))
	}
	in := req.Instance
	if len(in.Distance) > 0 {
		return vrp.NewInstance(in.Vehicles, in.Capacity, in.Demand, in.Distance)
	}
	return vrp.FromCoordinates(in.Vehicles, in.Capacity, in.Demand, in.X, in.Y)
}

// applyOverrides layers per-run settings over the server defaults.
func applyOverrides(base opt.Config, o *model.SearchOverrides) (opt.Config, error) {
	cfg := base
	cfg.Operators = append([]string(nil), base.Operators...)
	if o == nil {
		return cfg, cfg.Validate()
	}
	if o.TimeoutMs > 0 {
		cfg.Timeout = time.Duration(o.TimeoutMs) * time.Millisecond
	}
	if o.Workers > 0 {
		cfg.Workers = o.Workers
	}
	if o.Seed != 0 {
		cfg.Seed = o.Seed
	}
	if len(o.Operators) > 0 {
		cfg.Operators = append([]string(nil), o.Operators...)
	}
	if o.DropFailedCandidates != nil {
		cfg.DropFailedCandidates = *o.DropFailedCandidates
	}
	return cfg, cfg.Validate()
}
