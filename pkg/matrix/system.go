package matrix

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/edp1096/sparse"
)

// Handle is a stable write handle for one (row, col) entry of the F, Q and Newton
// matrices. It indexes the element arena of the System that issued it.
type Handle int

const NoHandle Handle = -1

// Convention selects how charge contributions reach the Newton system.
type Convention int

const (
	// NewDAE keeps F and Q apart; the integrator applies its own coefficient.
	NewDAE Convention = iota
	// OldDAE folds alpha*Q into F at load time.
	OldDAE
)

func (c Convention) String() string {
	if c == OldDAE {
		return "old"
	}
	return "new"
}

// Registrar hands out write handles during setup.
type Registrar interface {
	Register(row, col int) Handle
}

// System owns the DAE vectors and matrices of one circuit. Rows and columns are
// 1-based; row 0 is ground and never stored.
type System struct {
	Size  int
	Nodes int // rows 1..Nodes are node equations, the rest are branch equations
	Conv  Convention

	fMat, qMat, jMat *sparse.Matrix
	fElems           []*sparse.Element
	qElems           []*sparse.Element
	jElems           []*sparse.Element
	index            map[[2]int]Handle
	diag             []Handle

	F, Q, Fdxp, Qdxp, B []float64 // 1-based

	alpha, gmin float64
}

func newSparse(size int) (*sparse.Matrix, error) {
	config := &sparse.Configuration{
		Real:           true,
		Complex:        false,
		Expandable:     true,
		Translate:      false,
		ModifiedNodal:  true,
		TiesMultiplier: 5,
		PrinterWidth:   140,
		Annotate:       0,
	}
	return sparse.Create(int64(size), config)
}

func NewSystem(size, nodes int, conv Convention) (*System, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid system size %d", size)
	}

	s := &System{
		Size:  size,
		Nodes: nodes,
		Conv:  conv,
		index: make(map[[2]int]Handle),
		diag:  make([]Handle, size+1),
	}

	var err error
	for _, m := range []**sparse.Matrix{&s.fMat, &s.qMat, &s.jMat} {
		*m, err = newSparse(size)
		if err != nil {
			return nil, fmt.Errorf("creating sparse matrix: %w", err)
		}
	}

	vectorSize := size + 1 // 1-based indexing
	s.F = make([]float64, vectorSize)
	s.Q = make([]float64, vectorSize)
	s.Fdxp = make([]float64, vectorSize)
	s.Qdxp = make([]float64, vectorSize)
	s.B = make([]float64, vectorSize)

	s.diag[0] = NoHandle
	for i := 1; i <= size; i++ {
		s.diag[i] = s.Register(i, i)
	}

	return s, nil
}

// Register returns the handle of (row, col), creating the entry on first request.
// Ground rows and columns, and entries outside the matrix, get NoHandle.
func (s *System) Register(row, col int) Handle {
	if row <= 0 || col <= 0 {
		return NoHandle
	}
	if row > s.Size || col > s.Size {
		slog.Warn("matrix index out of bounds", "row", row, "col", col, "size", s.Size)
		return NoHandle
	}

	key := [2]int{row, col}
	if h, ok := s.index[key]; ok {
		return h
	}

	h := Handle(len(s.fElems))
	s.fElems = append(s.fElems, s.fMat.GetElement(int64(row), int64(col)))
	s.qElems = append(s.qElems, s.qMat.GetElement(int64(row), int64(col)))
	s.jElems = append(s.jElems, s.jMat.GetElement(int64(row), int64(col)))
	s.index[key] = h
	return h
}

// Handles is the number of registered entries.
func (s *System) Handles() int { return len(s.fElems) }

// Lookup returns the handle of an already registered entry.
func (s *System) Lookup(row, col int) (Handle, bool) {
	h, ok := s.index[[2]int{row, col}]
	return h, ok
}

func (s *System) AddF(h Handle, value float64) {
	if h >= 0 {
		s.fElems[h].Real += value
	}
}

func (s *System) AddQ(h Handle, value float64) {
	if h >= 0 {
		s.qElems[h].Real += value
	}
}

func (s *System) FValue(h Handle) float64 {
	if h < 0 {
		return 0
	}
	return s.fElems[h].Real
}

func (s *System) QValue(h Handle) float64 {
	if h < 0 {
		return 0
	}
	return s.qElems[h].Real
}

// JValue is the Newton matrix entry as last combined.
func (s *System) JValue(h Handle) float64 {
	if h < 0 {
		return 0
	}
	return s.jElems[h].Real
}

func addRow(v []float64, row int, value float64) {
	if row > 0 && row < len(v) {
		v[row] += value
	}
}

func (s *System) AddFVector(row int, value float64)    { addRow(s.F, row, value) }
func (s *System) AddQVector(row int, value float64)    { addRow(s.Q, row, value) }
func (s *System) AddFdxpVector(row int, value float64) { addRow(s.Fdxp, row, value) }
func (s *System) AddQdxpVector(row int, value float64) { addRow(s.Qdxp, row, value) }
func (s *System) AddBVector(row int, value float64)    { addRow(s.B, row, value) }

func (s *System) Clear() {
	s.fMat.Clear()
	s.qMat.Clear()
	s.jMat.Clear()
	for _, v := range [][]float64{s.F, s.Q, s.Fdxp, s.Qdxp, s.B} {
		clear(v)
	}
}

// Combine writes J = dF/dx + alpha*dQ/dx into the Newton matrix and adds gmin on
// every node diagonal.
func (s *System) Combine(alpha, gmin float64) {
	s.alpha, s.gmin = alpha, gmin
	for h := range s.jElems {
		s.jElems[h].Real = s.fElems[h].Real + alpha*s.qElems[h].Real
	}
	for i := 1; i <= s.Nodes && i <= s.Size; i++ {
		s.jElems[s.diag[i]].Real += gmin
	}
}

// Residual returns f = F + Fdxp - B + history + alpha*(Q + Qdxp) + gmin*x, the last
// two terms only where they are not already folded into F by the convention.
// history may be nil.
func (s *System) Residual(alpha, gmin float64, history, x []float64) []float64 {
	r := make([]float64, s.Size+1)
	for i := 1; i <= s.Size; i++ {
		r[i] = s.F[i] + s.Fdxp[i] - s.B[i]
		if s.Conv == NewDAE {
			r[i] += alpha * (s.Q[i] + s.Qdxp[i])
		}
		if history != nil {
			r[i] += history[i]
		}
		if i <= s.Nodes && x != nil {
			r[i] += gmin * x[i]
		}
	}
	return r
}

// Solve factors the Newton matrix and returns dx with J*dx = -residual.
func (s *System) Solve(residual []float64) ([]float64, error) {
	rhs := make([]float64, s.Size+1)
	for i := 1; i <= s.Size; i++ {
		rhs[i] = -residual[i]
	}

	err := s.jMat.Factor()
	if err != nil {
		// pivot order from an earlier iteration went stale; reorder once
		s.jMat.Clear()
		s.Combine(s.alpha, s.gmin)
		s.jMat.NeedsOrdering = true
		if err = s.jMat.Factor(); err != nil {
			return nil, fmt.Errorf("matrix factorization failed: %w", err)
		}
	}

	dx, err := s.jMat.Solve(rhs)
	if err != nil {
		return nil, fmt.Errorf("matrix solve failed: %w", err)
	}
	for i, v := range dx {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("matrix solve produced non-finite value at row %d", i)
		}
	}
	return dx, nil
}
