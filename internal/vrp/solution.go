package vrp

import (
	"strconv"
	"strings"
)

// Route is one vehicle's visit sequence, bounded by the depot on both ends.
// Interior (customer) positions are 1..len-2.
type Route []int

// Interior returns the customer part of the route without the depot markers.
// The returned slice aliases r.
func (r Route) Interior() []int {
	if len(r) < 2 {
		return nil
	}
	return r[1 : len(r)-1]
}

// Clone returns an independent copy of r.
func (r Route) Clone() Route {
	return append(Route(nil), r...)
}

// Solution is a candidate assignment of customers to vehicles. Solutions are
// values: anything that mutates one must Clone it first.
type Solution struct {
	Routes        []Route
	TotalDistance float64
	Feasible      bool
}

// NewSolution wraps routes without evaluating them.
func NewSolution(routes []Route) Solution {
	return Solution{Routes: routes}
}

// Clone deep-copies the route lists so that no two holders share mutable state.
func (s Solution) Clone() Solution {
	routes := make([]Route, len(s.Routes))
	for i, r := range s.Routes {
		routes[i] = r.Clone()
	}
	return Solution{Routes: routes, TotalDistance: s.TotalDistance, Feasible: s.Feasible}
}

// String is the canonical encoding: a leading 0 followed by every route's
// entries, depot markers included, in vehicle order.
func (s Solution) String() string {
	var b strings.Builder
	b.WriteString("0")
	for _, r := range s.Routes {
		for _, c := range r {
			b.WriteByte(' ')
			b.WriteString(strconv.Itoa(c))
		}
	}
	return b.String()
}
