package opt

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"vrpls/internal/vrp"
)

// Operator proposes one neighbouring solution of cur. Implementations must
// not mutate cur; they return a modified deep copy, or an unmodified copy
// when the current solution offers nothing to perturb.
type Operator interface {
	Name() string
	Propose(in *vrp.Instance, cur vrp.Solution, rng *rand.Rand) (vrp.Solution, error)
}

// resolver is implemented by stateful meta-operators that pick a concrete
// operator per invocation. The scheduler resolves them before dispatch so the
// state is only touched from the controller goroutine.
type resolver interface {
	Next() Operator
}

// ProposeN draws k independent candidates from op.
func ProposeN(op Operator, in *vrp.Instance, cur vrp.Solution, rng *rand.Rand, k int) ([]vrp.Solution, error) {
	out := make([]vrp.Solution, 0, k)
	for i := 0; i < k; i++ {
		s, err := op.Propose(in, cur, rng)
		if err != nil {
			return out, err
		}
		out = append(out, s)
	}
	return out, nil
}

// TwoOpt reverses a random interior segment of one route.
type TwoOpt struct{}

func (TwoOpt) Name() string { return "two-opt" }

func (TwoOpt) Propose(in *vrp.Instance, cur vrp.Solution, rng *rand.Rand) (vrp.Solution, error) {
	out := cur.Clone()
	eligible := routesWithStops(cur, 4)
	if len(eligible) == 0 {
		return out, nil
	}
	ri := eligible[rng.Intn(len(eligible))]
	r := out.Routes[ri]
	m := len(r) - 2
	i := 1 + rng.Intn(m)
	k := 1 + pickOther(m, i-1, rng.Intn)
	if i > k {
		i, k = k, i
	}
	reverseSegment(r, i, k)
	in.Reconcile(cur, &out, ri)
	return out, nil
}

// Relocate moves one random customer into another route at a random slot.
type Relocate struct{}

func (Relocate) Name() string { return "relocate" }

func (Relocate) Propose(in *vrp.Instance, cur vrp.Solution, rng *rand.Rand) (vrp.Solution, error) {
	eligible := routesWithStops(cur, 3)
	if len(eligible) == 0 || len(cur.Routes) < 2 {
		return cur.Clone(), nil
	}
	src := eligible[rng.Intn(len(eligible))]
	pos := 1 + rng.Intn(len(cur.Routes[src])-2)
	dst := pickOther(len(cur.Routes), src, rng.Intn)
	to := 1 + rng.Intn(len(cur.Routes[dst])-1)
	return in.ApplyMove(cur, vrp.Move{{FromRoute: src, FromPos: pos, ToRoute: dst, ToPos: to}})
}

// Exchange swaps two customers between two different routes. Route picks
// that land on an empty route are retried up to Retries times each; if no
// valid pair is found the candidate is the unmodified current solution.
type Exchange struct {
	Retries int
}

func (Exchange) Name() string { return "exchange" }

func (e Exchange) Propose(in *vrp.Instance, cur vrp.Solution, rng *rand.Rand) (vrp.Solution, error) {
	out := cur.Clone()
	n := len(cur.Routes)
	if n < 2 {
		return out, nil
	}
	retries := e.Retries
	if retries <= 0 {
		retries = 5
	}
	r1 := rng.Intn(n)
	for try := 0; len(cur.Routes[r1]) <= 2; try++ {
		if try == retries {
			return out, nil
		}
		r1 = rng.Intn(n)
	}
	r2 := pickOther(n, r1, rng.Intn)
	for try := 0; len(cur.Routes[r2]) <= 2; try++ {
		if try == retries {
			return out, nil
		}
		r2 = pickOther(n, r1, rng.Intn)
	}
	p1 := 1 + rng.Intn(len(cur.Routes[r1])-2)
	p2 := 1 + rng.Intn(len(cur.Routes[r2])-2)
	out.Routes[r1][p1], out.Routes[r2][p2] = cur.Routes[r2][p2], cur.Routes[r1][p1]
	in.Reconcile(cur, &out, r1, r2)
	return out, nil
}

// ArcExchange swaps the tails of two routes: the customers from a random cut
// point to the end of each route trade places.
type ArcExchange struct{}

func (ArcExchange) Name() string { return "arc-exchange" }

func (ArcExchange) Propose(in *vrp.Instance, cur vrp.Solution, rng *rand.Rand) (vrp.Solution, error) {
	out := cur.Clone()
	eligible := routesWithStops(cur, 3)
	if len(eligible) < 2 {
		return out, nil
	}
	a := rng.Intn(len(eligible))
	b := pickOther(len(eligible), a, rng.Intn)
	r1, r2 := eligible[a], eligible[b]
	src1, src2 := cur.Routes[r1], cur.Routes[r2]
	s1 := 1 + rng.Intn(len(src1)-2)
	s2 := 1 + rng.Intn(len(src2)-2)

	out.Routes[r1] = spliceTail(src1[:s1], src2[s2:len(src2)-1])
	out.Routes[r2] = spliceTail(src2[:s2], src1[s1:len(src1)-1])
	in.Reconcile(cur, &out, r1, r2)
	return out, nil
}

func spliceTail(head, tail []int) vrp.Route {
	r := make(vrp.Route, 0, len(head)+len(tail)+1)
	r = append(r, head...)
	r = append(r, tail...)
	return append(r, vrp.Depot)
}

// RandomRelocate removes a random customer and reinserts it at a slot drawn
// uniformly over every insertion slot of the solution, including its own
// route.
type RandomRelocate struct{}

func (RandomRelocate) Name() string { return "random-relocate" }

func (RandomRelocate) Propose(in *vrp.Instance, cur vrp.Solution, rng *rand.Rand) (vrp.Solution, error) {
	eligible := routesWithStops(cur, 3)
	if len(eligible) == 0 {
		return cur.Clone(), nil
	}
	src := eligible[rng.Intn(len(eligible))]
	pos := 1 + rng.Intn(len(cur.Routes[src])-2)

	slots := func(i int) int {
		if i == src {
			return len(cur.Routes[i]) - 2
		}
		return len(cur.Routes[i]) - 1
	}
	total := 0
	for i := range cur.Routes {
		total += slots(i)
	}
	k := rng.Intn(total)
	dst := 0
	for ; k >= slots(dst); dst++ {
		k -= slots(dst)
	}
	return in.ApplyMove(cur, vrp.Move{{FromRoute: src, FromPos: pos, ToRoute: dst, ToPos: 1 + k}})
}

// Cyclic alternates between two operators: Period invocations of Primary,
// then one of Secondary. The counter is per instance and not safe for
// concurrent use; the scheduler resolves it on the dispatching goroutine.
type Cyclic struct {
	Primary   Operator
	Secondary Operator
	Period    int

	count int
}

// NewCyclic returns the default cycle of five two-opt moves followed by one
// cross-route relocation.
func NewCyclic(period int) *Cyclic {
	if period <= 0 {
		period = 5
	}
	return &Cyclic{Primary: TwoOpt{}, Secondary: Relocate{}, Period: period}
}

func (c *Cyclic) Name() string { return "cyclic" }

// Next advances the cycle and returns the operator for this invocation.
func (c *Cyclic) Next() Operator {
	if c.count < c.Period {
		c.count++
		return c.Primary
	}
	c.count = 0
	return c.Secondary
}

func (c *Cyclic) Propose(in *vrp.Instance, cur vrp.Solution, rng *rand.Rand) (vrp.Solution, error) {
	return c.Next().Propose(in, cur, rng)
}

// DefaultOperators is the roster used when none is configured.
var DefaultOperators = []string{"two-opt", "relocate", "random-relocate", "exchange"}

// NewOperator builds an operator from its configured name.
func NewOperator(name string, cfg Config) (Operator, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "two-opt":
		return TwoOpt{}, nil
	case "relocate":
		return Relocate{}, nil
	case "exchange":
		return Exchange{Retries: cfg.ExchangeRetries}, nil
	case "arc-exchange":
		return ArcExchange{}, nil
	case "random-relocate":
		return RandomRelocate{}, nil
	case "cyclic":
		return NewCyclic(cfg.CyclicPeriod), nil
	}
	return nil, fmt.Errorf("unknown operator %q (known: %s)", name, strings.Join(OperatorNames(), ", "))
}

// OperatorNames lists every name NewOperator accepts.
func OperatorNames() []string {
	names := []string{"two-opt", "relocate", "exchange", "arc-exchange", "random-relocate", "cyclic"}
	sort.Strings(names)
	return names
}

// Roster builds the configured operators, falling back to DefaultOperators.
func Roster(cfg Config) ([]Operator, error) {
	names := cfg.Operators
	if len(names) == 0 {
		names = DefaultOperators
	}
	ops := make([]Operator, 0, len(names))
	for _, n := range names {
		op, err := NewOperator(n, cfg)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}
