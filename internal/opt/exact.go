package opt

import "vrpls/internal/vrp"

// Routes whose customer count falls in this range are solved exactly by
// enumerating every permutation.
const (
	MinExactInterior = 3
	MaxExactInterior = 8
)

// Polish searches for the first short route with a visiting order shorter
// than the current one and replaces that route only. The order adopted is
// the first strictly shorter permutation met, not the shortest. It returns the input
// unchanged (as a copy) and false when no short route can be improved.
func Polish(in *vrp.Instance, s vrp.Solution) (vrp.Solution, bool) {
	out := s.Clone()
	for ri, r := range s.Routes {
		interior := r.Interior()
		if len(interior) < MinExactInterior || len(interior) > MaxExactInterior {
			continue
		}
		best, ok := firstImprovingPermutation(in, interior)
		if !ok {
			continue
		}
		nr := make(vrp.Route, 0, len(r))
		nr = append(nr, vrp.Depot)
		nr = append(nr, best...)
		nr = append(nr, vrp.Depot)
		out.Routes[ri] = nr
		in.Reconcile(s, &out, ri)
		return out, true
	}
	return out, false
}

// firstImprovingPermutation walks the orderings of stops in Heap's swap
// order and returns the first one strictly shorter than the input.
func firstImprovingPermutation(in *vrp.Instance, stops []int) ([]int, bool) {
	perm := append([]int(nil), stops...)
	orig := openTourDistance(in, perm)

	c := make([]int, len(perm))
	for i := 1; i < len(perm); {
		if c[i] < i {
			if i%2 == 0 {
				perm[0], perm[i] = perm[i], perm[0]
			} else {
				perm[c[i]], perm[i] = perm[i], perm[c[i]]
			}
			if openTourDistance(in, perm)+1e-9 < orig {
				return perm, true
			}
			c[i]++
			i = 1
		} else {
			c[i] = 0
			i++
		}
	}
	return nil, false
}

// openTourDistance is the depot-to-depot length of visiting stops in order.
func openTourDistance(in *vrp.Instance, stops []int) float64 {
	d := in.Distance[vrp.Depot][stops[0]]
	for i := 1; i < len(stops); i++ {
		d += in.Distance[stops[i-1]][stops[i]]
	}
	return d + in.Distance[stops[len(stops)-1]][vrp.Depot]
}
