package opt

import (
	"math"
	"strconv"

	"vrpls/internal/vrp"
)

// reverseSegment reverses r[i..k] in place.
func reverseSegment(r vrp.Route, i, k int) {
	for a, b := i, k; a < b; a, b = a+1, b-1 {
		r[a], r[b] = r[b], r[a]
	}
}

// routesWithStops returns the indices of routes with at least minLen entries
// (depot markers included).
func routesWithStops(s vrp.Solution, minLen int) []int {
	var out []int
	for i, r := range s.Routes {
		if len(r) >= minLen {
			out = append(out, i)
		}
	}
	return out
}

// pickOther draws uniformly from [0,n) excluding skip. n must be >= 2.
func pickOther(n, skip int, intn func(int) int) int {
	j := intn(n - 1)
	if j >= skip {
		j++
	}
	return j
}

// initialTolerance is 10^d where d is the number of integer digits of the
// distance, capped at maxTolerance.
func initialTolerance(distance, maxTolerance float64) float64 {
	digits := 0
	if distance >= 1 {
		digits = len(strconv.FormatInt(int64(distance), 10))
	}
	return math.Min(math.Pow10(digits), maxTolerance)
}
