package vrp

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var ErrMalformedSolution = errors.New("vrp: malformed solution")

// ParseInstance reads the whitespace-separated instance format:
//
//	N V C
//	demand_0 x_0 y_0
//	...
//	demand_{N-1} x_{N-1} y_{N-1}
//
// Row 0 is the depot. Distances are Euclidean.
func ParseInstance(r io.Reader) (*Instance, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	sc.Split(bufio.ScanWords)
	next := func(what string) (string, error) {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return "", err
			}
			return "", fmt.Errorf("%w: unexpected end of input reading %s", ErrInvalidInstance, what)
		}
		return sc.Text(), nil
	}
	nextInt := func(what string) (int, error) {
		tok, err := next(what)
		if err != nil {
			return 0, err
		}
		v, err := strconv.Atoi(tok)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %v", ErrInvalidInstance, what, err)
		}
		return v, nil
	}
	nextFloat := func(what string) (float64, error) {
		tok, err := next(what)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %v", ErrInvalidInstance, what, err)
		}
		return v, nil
	}

	n, err := nextInt("numCustomers")
	if err != nil {
		return nil, err
	}
	if n < 1 || n > MaxCustomers {
		return nil, fmt.Errorf("%w: numCustomers must be in [1,%d], got %d", ErrInvalidInstance, MaxCustomers, n)
	}
	v, err := nextInt("numVehicles")
	if err != nil {
		return nil, err
	}
	c, err := nextInt("vehicleCapacity")
	if err != nil {
		return nil, err
	}
	// rows are appended as read so a lying header costs nothing
	var demand []int
	var xs, ys []float64
	for i := 0; i < n; i++ {
		d, err := nextInt(fmt.Sprintf("demand[%d]", i))
		if err != nil {
			return nil, err
		}
		x, err := nextFloat(fmt.Sprintf("x[%d]", i))
		if err != nil {
			return nil, err
		}
		y, err := nextFloat(fmt.Sprintf("y[%d]", i))
		if err != nil {
			return nil, err
		}
		demand = append(demand, d)
		xs = append(xs, x)
		ys = append(ys, y)
	}
	return FromCoordinates(v, c, demand, xs, ys)
}

// DecodeSolution parses the canonical encoding produced by Solution.String.
// The leading flag token is returned separately.
func DecodeSolution(encoded string) (Solution, int, error) {
	fields := strings.Fields(encoded)
	if len(fields) == 0 {
		return Solution{}, 0, fmt.Errorf("%w: empty encoding", ErrMalformedSolution)
	}
	flag, err := strconv.Atoi(fields[0])
	if err != nil {
		return Solution{}, 0, fmt.Errorf("%w: flag: %v", ErrMalformedSolution, err)
	}
	var routes []Route
	var cur Route
	open := false
	for i, f := range fields[1:] {
		c, err := strconv.Atoi(f)
		if err != nil {
			return Solution{}, 0, fmt.Errorf("%w: token %d: %v", ErrMalformedSolution, i+1, err)
		}
		switch {
		case c == Depot && !open:
			cur = Route{Depot}
			open = true
		case c == Depot && open:
			cur = append(cur, Depot)
			routes = append(routes, cur)
			open = false
		case !open:
			return Solution{}, 0, fmt.Errorf("%w: customer %d outside a route", ErrMalformedSolution, c)
		default:
			cur = append(cur, c)
		}
	}
	if open {
		return Solution{}, 0, fmt.Errorf("%w: unterminated route", ErrMalformedSolution)
	}
	return NewSolution(routes), flag, nil
}

// WriteSolutionFile writes "<distance> <flag>" followed by one line per route.
func WriteSolutionFile(w io.Writer, s Solution, flag int) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s %d", strconv.FormatFloat(s.TotalDistance, 'f', 2, 64), flag)
	for _, r := range s.Routes {
		bw.WriteByte('\n')
		for i, c := range r {
			if i > 0 {
				bw.WriteByte(' ')
			}
			bw.WriteString(strconv.Itoa(c))
		}
	}
	return bw.Flush()
}

// ReadSolutionFile is the inverse of WriteSolutionFile. The returned
// solution carries the distance from the header line, unverified.
func ReadSolutionFile(r io.Reader) (Solution, int, error) {
	sc := bufio.NewScanner(r)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return Solution{}, 0, err
		}
		return Solution{}, 0, fmt.Errorf("%w: missing header", ErrMalformedSolution)
	}
	head := strings.Fields(sc.Text())
	if len(head) != 2 {
		return Solution{}, 0, fmt.Errorf("%w: header %q", ErrMalformedSolution, sc.Text())
	}
	dist, err := strconv.ParseFloat(head[0], 64)
	if err != nil {
		return Solution{}, 0, fmt.Errorf("%w: distance: %v", ErrMalformedSolution, err)
	}
	flag, err := strconv.Atoi(head[1])
	if err != nil {
		return Solution{}, 0, fmt.Errorf("%w: flag: %v", ErrMalformedSolution, err)
	}
	var routes []Route
	for sc.Scan() {
		line := strings.Fields(sc.Text())
		if len(line) == 0 {
			continue
		}
		route := make(Route, len(line))
		for i, f := range line {
			if route[i], err = strconv.Atoi(f); err != nil {
				return Solution{}, 0, fmt.Errorf("%w: route %d: %v", ErrMalformedSolution, len(routes), err)
			}
		}
		routes = append(routes, route)
	}
	if err := sc.Err(); err != nil {
		return Solution{}, 0, err
	}
	s := NewSolution(routes)
	s.TotalDistance = dist
	return s, flag, nil
}
