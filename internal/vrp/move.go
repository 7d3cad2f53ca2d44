package vrp

import (
	"errors"
	"fmt"
)

var ErrBadMove = errors.New("vrp: move out of range")

// Relocation takes the customer at (FromRoute, FromPos) out of its route and
// inserts it at (ToRoute, ToPos). ToPos is interpreted after the removal.
type Relocation struct {
	FromRoute, FromPos int
	ToRoute, ToPos     int
}

// Move is a list of relocations applied in order as one transformation.
type Move []Relocation

// Touched lists the distinct route indices a move modifies, in first-seen order.
func (m Move) Touched() []int {
	var out []int
	seen := map[int]bool{}
	for _, r := range m {
		for _, idx := range [2]int{r.FromRoute, r.ToRoute} {
			if !seen[idx] {
				seen[idx] = true
				out = append(out, idx)
			}
		}
	}
	return out
}

// ApplyMove returns a copy of base with m applied. Distance and feasibility
// are updated incrementally from the routes the move touched; base is
// assumed to carry correct cached values.
func (in *Instance) ApplyMove(base Solution, m Move) (Solution, error) {
	out := base.Clone()
	for i, rl := range m {
		if rl.FromRoute < 0 || rl.FromRoute >= len(out.Routes) || rl.ToRoute < 0 || rl.ToRoute >= len(out.Routes) {
			return Solution{}, fmt.Errorf("%w: relocation %d references route %d->%d of %d", ErrBadMove, i, rl.FromRoute, rl.ToRoute, len(out.Routes))
		}
		src := out.Routes[rl.FromRoute]
		if rl.FromPos < 1 || rl.FromPos > len(src)-2 {
			return Solution{}, fmt.Errorf("%w: relocation %d source position %d outside interior of route %d", ErrBadMove, i, rl.FromPos, rl.FromRoute)
		}
		c := src[rl.FromPos]
		out.Routes[rl.FromRoute] = append(src[:rl.FromPos:rl.FromPos], src[rl.FromPos+1:]...)

		dst := out.Routes[rl.ToRoute]
		if rl.ToPos < 1 || rl.ToPos > len(dst)-1 {
			return Solution{}, fmt.Errorf("%w: relocation %d destination position %d outside route %d", ErrBadMove, i, rl.ToPos, rl.ToRoute)
		}
		out.Routes[rl.ToRoute] = insertAt(dst, rl.ToPos, c)
	}
	in.Reconcile(base, &out, m.Touched()...)
	return out, nil
}

// Reconcile updates out's cached distance and feasibility after the routes
// listed in touched were replaced relative to base. Each route index is
// counted once even if listed repeatedly.
func (in *Instance) Reconcile(base Solution, out *Solution, touched ...int) {
	feasible := base.Feasible
	done := make(map[int]bool, len(touched))
	for _, idx := range touched {
		if done[idx] {
			continue
		}
		done[idx] = true
		out.TotalDistance += in.RouteDistanceChange(base.Routes[idx], out.Routes[idx])
		if feasible && !in.RouteFeasible(out.Routes[idx]) {
			feasible = false
		}
	}
	out.Feasible = feasible
}

func insertAt(r Route, pos, c int) Route {
	r = append(r, 0)
	copy(r[pos+1:], r[pos:])
	r[pos] = c
	return r
}
