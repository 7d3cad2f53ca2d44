package vrp

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lineInstanceText = `5 2 10
0 0 0
5 1 0
5 2 0
5 0 1
5 0 2
`

func TestParseInstance(t *testing.T) {
	in, err := ParseInstance(strings.NewReader(lineInstanceText))
	require.NoError(t, err)
	assert.Equal(t, 5, in.NumCustomers)
	assert.Equal(t, 2, in.NumVehicles)
	assert.Equal(t, 10, in.VehicleCapacity)
	assert.Equal(t, []int{0, 5, 5, 5, 5}, in.Demand)
	assert.InDelta(t, 2.0, in.Distance[0][2], 1e-12)
	assert.InDelta(t, 2.2360679775, in.Distance[2][3], 1e-9)
}

func TestParseInstanceTruncated(t *testing.T) {
	_, err := ParseInstance(strings.NewReader("3 1 10\n0 0 0\n1 1"))
	assert.ErrorIs(t, err, ErrInvalidInstance)
}

func TestParseInstanceRejectsOversizedHeader(t *testing.T) {
	_, err := ParseInstance(strings.NewReader("1099511627776 1 1\n"))
	assert.ErrorIs(t, err, ErrInvalidInstance)

	_, err = ParseInstance(strings.NewReader(fmt.Sprintf("%d 1 1\n0 0 0\n", MaxCustomers+1)))
	assert.ErrorIs(t, err, ErrInvalidInstance)
}

func TestCanonicalEncoding(t *testing.T) {
	s := NewSolution([]Route{{0, 1, 2, 0}, {0, 3, 0}})
	assert.Equal(t, "0 0 1 2 0 0 3 0", s.String())

	got, flag, err := DecodeSolution(s.String())
	require.NoError(t, err)
	assert.Zero(t, flag)
	if diff := cmp.Diff(s.Routes, got.Routes); diff != "" {
		t.Fatalf("decode mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeSolutionRejectsUnterminatedRoute(t *testing.T) {
	_, _, err := DecodeSolution("0 0 1 2")
	assert.ErrorIs(t, err, ErrMalformedSolution)

	_, _, err = DecodeSolution("0 0 1 0 2")
	assert.ErrorIs(t, err, ErrMalformedSolution, "customer outside a route")
}

func TestSolutionFile(t *testing.T) {
	in := lineInstance(t)
	s := NewSolution([]Route{{0, 1, 2, 0}, {0, 3, 4, 0}})
	in.Evaluate(&s)

	var buf bytes.Buffer
	require.NoError(t, WriteSolutionFile(&buf, s, 0))
	assert.Equal(t, "8.00 0\n0 1 2 0\n0 3 4 0", buf.String())

	back, flag, err := ReadSolutionFile(&buf)
	require.NoError(t, err)
	assert.Zero(t, flag)
	require.NoError(t, in.Check(back, back.TotalDistance))
}
