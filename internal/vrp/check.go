package vrp

import (
	"errors"
	"fmt"
	"math"
)

var ErrInfeasibleSolution = errors.New("vrp: infeasible solution")

// Validate explains why s is not feasible for in, or returns nil. It checks
// the same invariants as SolutionFeasible but names the first violation.
func (in *Instance) Validate(s Solution) error {
	if len(s.Routes) != in.NumVehicles {
		return fmt.Errorf("%w: %d routes for %d vehicles", ErrInfeasibleSolution, len(s.Routes), in.NumVehicles)
	}
	visited := make([]int, in.NumCustomers)
	for ri, r := range s.Routes {
		if len(r) < 2 {
			return fmt.Errorf("%w: route %d has %d stops", ErrInfeasibleSolution, ri, len(r))
		}
		if r[0] != Depot || r[len(r)-1] != Depot {
			return fmt.Errorf("%w: route %d does not start and end at the depot", ErrInfeasibleSolution, ri)
		}
		load := 0
		for pos, c := range r {
			if c < 0 || c >= in.NumCustomers {
				return fmt.Errorf("%w: route %d references unknown customer %d", ErrInfeasibleSolution, ri, c)
			}
			if pos > 0 && pos < len(r)-1 {
				if c == Depot {
					return fmt.Errorf("%w: route %d visits the depot at position %d", ErrInfeasibleSolution, ri, pos)
				}
				visited[c]++
				if visited[c] > 1 {
					return fmt.Errorf("%w: customer %d visited more than once", ErrInfeasibleSolution, c)
				}
			}
			load += in.Demand[c]
			if load > in.VehicleCapacity {
				return fmt.Errorf("%w: route %d exceeds capacity %d", ErrInfeasibleSolution, ri, in.VehicleCapacity)
			}
		}
	}
	for c := 1; c < in.NumCustomers; c++ {
		if visited[c] == 0 {
			return fmt.Errorf("%w: customer %d not visited", ErrInfeasibleSolution, c)
		}
	}
	return nil
}

// Check validates s and verifies that reported matches the recomputed
// distance once both are rounded to two decimals.
func (in *Instance) Check(s Solution, reported float64) error {
	if err := in.Validate(s); err != nil {
		return err
	}
	actual := in.TotalDistance(s)
	if round2(actual) != round2(reported) {
		return fmt.Errorf("%w: reported distance %.2f, actual %.2f", ErrInfeasibleSolution, reported, actual)
	}
	return nil
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
