// Package vrp holds the capacitated vehicle routing model: the immutable
// instance, mutable candidate solutions, declarative moves, and the pure
// feasibility and distance evaluators shared by the search.
package vrp

import (
	"errors"
	"fmt"
	"math"
)

// Depot is the customer id every route starts and ends at.
const Depot = 0

// MaxCustomers bounds NumCustomers (depot included); the distance matrix is
// dense, so memory grows with its square.
const MaxCustomers = 2000

var ErrInvalidInstance = errors.New("vrp: invalid instance")

// Instance is the read-only description of one problem. It is safe for
// concurrent use once constructed.
type Instance struct {
	NumCustomers    int // includes the depot at index 0
	NumVehicles     int
	VehicleCapacity int
	Demand          []int
	Distance        [][]float64

	// X and Y are optional; only set when built from coordinates.
	X, Y []float64
}

// NewInstance validates the inputs and returns an Instance over a
// precomputed symmetric distance matrix.
func NewInstance(numVehicles, capacity int, demand []int, dist [][]float64) (*Instance, error) {
	n := len(demand)
	if n < 1 {
		return nil, fmt.Errorf("%w: no depot", ErrInvalidInstance)
	}
	if n > MaxCustomers {
		return nil, fmt.Errorf("%w: %d customers exceeds the limit of %d", ErrInvalidInstance, n, MaxCustomers)
	}
	if numVehicles < 1 {
		return nil, fmt.Errorf("%w: numVehicles must be >= 1, got %d", ErrInvalidInstance, numVehicles)
	}
	if capacity < 0 {
		return nil, fmt.Errorf("%w: negative capacity %d", ErrInvalidInstance, capacity)
	}
	if demand[Depot] != 0 {
		return nil, fmt.Errorf("%w: depot demand must be 0, got %d", ErrInvalidInstance, demand[Depot])
	}
	for i, d := range demand {
		if d < 0 {
			return nil, fmt.Errorf("%w: negative demand %d for customer %d", ErrInvalidInstance, d, i)
		}
	}
	if len(dist) != n {
		return nil, fmt.Errorf("%w: distance matrix has %d rows, want %d", ErrInvalidInstance, len(dist), n)
	}
	for i := range dist {
		if len(dist[i]) != n {
			return nil, fmt.Errorf("%w: distance row %d has %d columns, want %d", ErrInvalidInstance, i, len(dist[i]), n)
		}
		if dist[i][i] != 0 {
			return nil, fmt.Errorf("%w: non-zero diagonal at %d", ErrInvalidInstance, i)
		}
		for j := range dist[i] {
			x := dist[i][j]
			if math.IsNaN(x) || x < 0 {
				return nil, fmt.Errorf("%w: bad distance %v at (%d,%d)", ErrInvalidInstance, x, i, j)
			}
			if dist[j][i] != x {
				return nil, fmt.Errorf("%w: asymmetric distance at (%d,%d)", ErrInvalidInstance, i, j)
			}
		}
	}
	return &Instance{
		NumCustomers:    n,
		NumVehicles:     numVehicles,
		VehicleCapacity: capacity,
		Demand:          append([]int(nil), demand...),
		Distance:        dist,
	}, nil
}

// FromCoordinates builds the Euclidean distance matrix for the given points
// and returns the resulting Instance.
func FromCoordinates(numVehicles, capacity int, demand []int, xs, ys []float64) (*Instance, error) {
	n := len(demand)
	if len(xs) != n || len(ys) != n {
		return nil, fmt.Errorf("%w: %d demands but %d/%d coordinates", ErrInvalidInstance, n, len(xs), len(ys))
	}
	if n > MaxCustomers {
		return nil, fmt.Errorf("%w: %d customers exceeds the limit of %d", ErrInvalidInstance, n, MaxCustomers)
	}
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := math.Hypot(xs[i]-xs[j], ys[i]-ys[j])
			dist[i][j] = d
			dist[j][i] = d
		}
	}
	in, err := NewInstance(numVehicles, capacity, demand, dist)
	if err != nil {
		return nil, err
	}
	in.X = append([]float64(nil), xs...)
	in.Y = append([]float64(nil), ys...)
	return in, nil
}

// TotalDemand sums the demand of every customer.
func (in *Instance) TotalDemand() int {
	total := 0
	for _, d := range in.Demand {
		total += d
	}
	return total
}

// FleetCapacity is NumVehicles * VehicleCapacity.
func (in *Instance) FleetCapacity() int {
	return in.NumVehicles * in.VehicleCapacity
}
