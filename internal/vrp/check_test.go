package vrp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateNamesViolation(t *testing.T) {
	in := lineInstance(t)
	cases := []struct {
		name   string
		routes []Route
		msg    string
	}{
		{"capacity", []Route{{0, 1, 2, 3, 0}, {0, 4, 0}}, "exceeds capacity"},
		{"duplicate", []Route{{0, 1, 2, 0}, {0, 2, 3, 4, 0}}, "visited more than once"},
		{"missing", []Route{{0, 1, 2, 0}, {0, 3, 0}}, "not visited"},
		{"boundary", []Route{{0, 1, 2, 0}, {3, 4, 0}}, "start and end at the depot"},
		{"route count", []Route{{0, 1, 2, 3, 4, 0}}, "routes for 2 vehicles"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := in.Validate(NewSolution(tc.routes))
			assert.ErrorIs(t, err, ErrInfeasibleSolution)
			assert.ErrorContains(t, err, tc.msg)
		})
	}
}

func TestCheckDistanceRounding(t *testing.T) {
	in := lineInstance(t)
	s := NewSolution([]Route{{0, 1, 2, 0}, {0, 3, 4, 0}})
	assert.NoError(t, in.Check(s, 8.001))
	assert.ErrorIs(t, in.Check(s, 8.02), ErrInfeasibleSolution)
}
