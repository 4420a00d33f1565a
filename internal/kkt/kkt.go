// Package kkt assembles and solves the saddle-point systems produced by a
// Newton correction on a constrained mechanical system:
//
//	[ H   Cqᵀ ] [ dv ]   [  r  ]
//	[ Cq   0  ] [ dl ] = [ -qc ]
//
// H is the n×n combination cM·M + cD·∂f/∂v + cK·∂f/∂x and Cq is the m×n
// constraint Jacobian. The matrix is stored sparse and factored with LU.
package kkt

import (
	"fmt"

	"github.com/edp1096/sparse"
)

// Solver owns one sparse matrix of size n+m. Indices passed to AddH and
// AddCq are zero-based.
//
// Every entry is created before the first factorization and written through
// its element pointer afterwards: once the matrix has been reordered the
// library no longer accepts element lookups.
type Solver struct {
	n, m   int
	matrix *sparse.Matrix
	elems  []*sparse.Element
}

func New(n, m int) (*Solver, error) {
	if n < 0 || m < 0 {
		return nil, fmt.Errorf("kkt: negative size (n=%d, m=%d)", n, m)
	}
	s := &Solver{n: n, m: m}
	if n+m == 0 {
		return s, nil
	}

	config := &sparse.Configuration{
		Real:                    true,
		Complex:                 false,
		SeparatedComplexVectors: false,
		Expandable:              true,
		Translate:               false,
		ModifiedNodal:           true,
		TiesMultiplier:          5,
		PrinterWidth:            140,
		Annotate:                0,
	}

	mat, err := sparse.Create(int64(n+m), config)
	if err != nil {
		return nil, fmt.Errorf("kkt: create %dx%d matrix: %w", n+m, n+m, err)
	}
	s.matrix = mat
	s.setupElements()
	return s, nil
}

func (s *Solver) setupElements() {
	size := s.n + s.m
	s.elems = make([]*sparse.Element, size*size)
	for i := 0; i < size; i++ {
		for j := 0; j < size; j++ {
			s.elems[i*size+j] = s.matrix.GetElement(int64(i+1), int64(j+1))
		}
	}
}

func (s *Solver) at(i, j int) *sparse.Element {
	return s.elems[i*(s.n+s.m)+j]
}

// Size returns the number of velocity unknowns and constraints.
func (s *Solver) Size() (n, m int) { return s.n, s.m }

// Clear zeroes every entry so the solver can be assembled again.
func (s *Solver) Clear() {
	if s.matrix != nil {
		s.matrix.Clear()
	}
}

// AddH accumulates v into H[i][j].
func (s *Solver) AddH(i, j int, v float64) {
	if i < 0 || j < 0 || i >= s.n || j >= s.n {
		panic(fmt.Sprintf("kkt: H index (%d, %d) out of range for n=%d", i, j, s.n))
	}
	s.at(i, j).Real += v
}

// AddCq accumulates v into Cq[row][col] and its mirror Cqᵀ[col][row].
func (s *Solver) AddCq(row, col int, v float64) {
	if row < 0 || col < 0 || row >= s.m || col >= s.n {
		panic(fmt.Sprintf("kkt: Cq index (%d, %d) out of range for m=%d n=%d", row, col, s.m, s.n))
	}
	r := s.n + row
	s.at(r, col).Real += v
	s.at(col, r).Real += v
}

// Solve factors the assembled matrix and writes the solution into dv (length
// n) and dl (length m). The right-hand side is [r; -qc].
func (s *Solver) Solve(dv, dl, r, qc []float64) error {
	if len(dv) != s.n || len(r) != s.n || len(dl) != s.m || len(qc) != s.m {
		return fmt.Errorf("kkt: vector sizes dv=%d r=%d dl=%d qc=%d do not match n=%d m=%d",
			len(dv), len(r), len(dl), len(qc), s.n, s.m)
	}
	if s.matrix == nil {
		return nil
	}

	// 1-based like the matrix
	rhs := make([]float64, s.n+s.m+1)
	copy(rhs[1:], r)
	for i, v := range qc {
		rhs[s.n+1+i] = -v
	}

	if err := s.matrix.Factor(); err != nil {
		return fmt.Errorf("kkt: factor: %w", err)
	}
	sol, err := s.matrix.Solve(rhs)
	if err != nil {
		return fmt.Errorf("kkt: solve: %w", err)
	}

	copy(dv, sol[1:s.n+1])
	copy(dl, sol[s.n+1:s.n+s.m+1])
	return nil
}

func (s *Solver) Destroy() {
	if s.matrix != nil {
		s.matrix.Destroy()
		s.matrix = nil
		s.elems = nil
	}
}
