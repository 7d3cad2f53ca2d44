package opt

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"vrpls/internal/vrp"
)

// ErrInfeasibleInstance is returned when no initial solution respecting
// capacity and fleet size can be built.
var ErrInfeasibleInstance = errors.New("opt: no feasible initial solution")

// InitialSolver builds the starting solution for a search.
type InitialSolver interface {
	Initial(ctx context.Context, in *vrp.Instance) (vrp.Solution, error)
}

// GreedySeeder packs customers into vehicles first-fit by decreasing demand
// and orders each vehicle's customers by nearest neighbour from the depot.
// When the deterministic packing fails it retries with shuffled orders.
type GreedySeeder struct {
	Seed     int64
	Attempts int
}

func (g GreedySeeder) Initial(ctx context.Context, in *vrp.Instance) (vrp.Solution, error) {
	if in.TotalDemand() > in.FleetCapacity() {
		return vrp.Solution{}, fmt.Errorf("%w: total demand %d exceeds fleet capacity %d", ErrInfeasibleInstance, in.TotalDemand(), in.FleetCapacity())
	}
	order := make([]int, 0, in.NumCustomers-1)
	for c := 1; c < in.NumCustomers; c++ {
		if in.Demand[c] > in.VehicleCapacity {
			return vrp.Solution{}, fmt.Errorf("%w: customer %d demand %d exceeds vehicle capacity %d", ErrInfeasibleInstance, c, in.Demand[c], in.VehicleCapacity)
		}
		order = append(order, c)
	}
	sort.SliceStable(order, func(a, b int) bool { return in.Demand[order[a]] > in.Demand[order[b]] })

	attempts := g.Attempts
	if attempts <= 0 {
		attempts = 100
	}
	rng := deriveRNG(g.Seed, 0)
	for try := 0; try <= attempts; try++ {
		if err := ctx.Err(); err != nil {
			return vrp.Solution{}, err
		}
		if try > 0 {
			rng.Shuffle(len(order), func(a, b int) { order[a], order[b] = order[b], order[a] })
		}
		bins, ok := firstFit(in, order)
		if !ok {
			continue
		}
		routes := make([]vrp.Route, len(bins))
		for v, bin := range bins {
			routes[v] = nearestNeighbour(in, bin)
		}
		s := vrp.NewSolution(routes)
		in.Evaluate(&s)
		return s, nil
	}
	return vrp.Solution{}, fmt.Errorf("%w: packing failed after %d attempts", ErrInfeasibleInstance, attempts)
}

func firstFit(in *vrp.Instance, order []int) ([][]int, bool) {
	bins := make([][]int, in.NumVehicles)
	load := make([]int, in.NumVehicles)
	for _, c := range order {
		placed := false
		for v := range bins {
			if load[v]+in.Demand[c] <= in.VehicleCapacity {
				bins[v] = append(bins[v], c)
				load[v] += in.Demand[c]
				placed = true
				break
			}
		}
		if !placed {
			return nil, false
		}
	}
	return bins, true
}

func nearestNeighbour(in *vrp.Instance, stops []int) vrp.Route {
	r := make(vrp.Route, 0, len(stops)+2)
	r = append(r, vrp.Depot)
	used := make([]bool, len(stops))
	last := vrp.Depot
	for range stops {
		next, bestD := -1, math.MaxFloat64
		for i, c := range stops {
			if !used[i] && in.Distance[last][c] < bestD {
				next, bestD = i, in.Distance[last][c]
			}
		}
		used[next] = true
		last = stops[next]
		r = append(r, last)
	}
	return append(r, vrp.Depot)
}
