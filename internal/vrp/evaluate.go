package vrp

// RouteFeasible reports whether a single route is well formed and within
// capacity: at least two stops, depot at both ends, no customer repeated,
// and no prefix of the route exceeding the vehicle capacity.
func (in *Instance) RouteFeasible(r Route) bool {
	if len(r) < 2 || r[0] != Depot || r[len(r)-1] != Depot {
		return false
	}
	seen := make(map[int]struct{}, len(r)-2)
	load := 0
	for i, c := range r {
		if c < 0 || c >= in.NumCustomers {
			return false
		}
		if i > 0 && i < len(r)-1 {
			if c == Depot {
				return false
			}
			if _, dup := seen[c]; dup {
				return false
			}
			seen[c] = struct{}{}
		}
		load += in.Demand[c]
		if load > in.VehicleCapacity {
			return false
		}
	}
	return true
}

// SolutionFeasible checks the route count, every route individually, and
// that the interiors partition {1..N-1}.
func (in *Instance) SolutionFeasible(s Solution) bool {
	if len(s.Routes) != in.NumVehicles {
		return false
	}
	visited := make([]bool, in.NumCustomers)
	for _, r := range s.Routes {
		if !in.RouteFeasible(r) {
			return false
		}
		for _, c := range r.Interior() {
			if visited[c] {
				return false
			}
			visited[c] = true
		}
	}
	for c := 1; c < in.NumCustomers; c++ {
		if !visited[c] {
			return false
		}
	}
	return true
}

// RouteDistance sums the edge lengths along r.
func (in *Instance) RouteDistance(r Route) float64 {
	total := 0.0
	for i := 1; i < len(r); i++ {
		total += in.Distance[r[i-1]][r[i]]
	}
	return total
}

// RouteDistanceChange is the distance delta of replacing oldRoute by newRoute.
func (in *Instance) RouteDistanceChange(oldRoute, newRoute Route) float64 {
	return in.RouteDistance(newRoute) - in.RouteDistance(oldRoute)
}

// TotalDistance recomputes the distance of every route from scratch.
func (in *Instance) TotalDistance(s Solution) float64 {
	total := 0.0
	for _, r := range s.Routes {
		total += in.RouteDistance(r)
	}
	return total
}

// Evaluate refreshes the cached distance and feasibility flag of s.
func (in *Instance) Evaluate(s *Solution) {
	s.TotalDistance = in.TotalDistance(*s)
	s.Feasible = in.SolutionFeasible(*s)
}
