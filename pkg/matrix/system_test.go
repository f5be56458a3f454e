package matrix

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterIsStable(t *testing.T) {
	s, err := NewSystem(3, 3, NewDAE)
	require.NoError(t, err)

	// diagonals are registered up front
	assert.Equal(t, 3, s.Handles())

	h := s.Register(1, 2)
	assert.Equal(t, h, s.Register(1, 2))
	assert.NotEqual(t, h, s.Register(2, 1))
	assert.Equal(t, NoHandle, s.Register(0, 2))
	assert.Equal(t, NoHandle, s.Register(2, 0))
	assert.Equal(t, NoHandle, s.Register(4, 1))
	assert.Equal(t, NoHandle, s.Register(1, 4))
	assert.Equal(t, 5, s.Handles())

	d, ok := s.Lookup(2, 2)
	require.True(t, ok)
	assert.Equal(t, d, s.Register(2, 2))
}

func TestNoHandleWritesAreDropped(t *testing.T) {
	s, err := NewSystem(2, 2, NewDAE)
	require.NoError(t, err)

	s.AddF(NoHandle, 5)
	s.AddQ(NoHandle, 5)
	s.AddFVector(0, 5)
	assert.Equal(t, 0.0, s.FValue(NoHandle))
	assert.Equal(t, []float64{0, 0, 0}, s.F)
}

func TestSolveResistorDivider(t *testing.T) {
	// node 1 driven through branch 3 to 1 V, R1 = 1k from 1 to 2, R2 = 1k from 2 to ground
	s, err := NewSystem(3, 2, NewDAE)
	require.NoError(t, err)

	g := 1e-3
	h11, h12 := s.Register(1, 1), s.Register(1, 2)
	h21, h22 := s.Register(2, 1), s.Register(2, 2)
	h13, h31 := s.Register(1, 3), s.Register(3, 1)

	x := make([]float64, 4)
	for range 3 {
		s.Clear()
		s.AddF(h11, g)
		s.AddF(h12, -g)
		s.AddF(h21, -g)
		s.AddF(h22, 2*g)
		s.AddF(h13, 1)
		s.AddF(h31, 1)

		s.AddFVector(1, g*(x[1]-x[2])+x[3])
		s.AddFVector(2, g*(x[2]-x[1])+g*x[2])
		s.AddFVector(3, x[1])
		s.AddBVector(3, 1)

		s.Combine(0, 0)
		dx, err := s.Solve(s.Residual(0, 0, nil, x))
		require.NoError(t, err)
		for i := 1; i <= 3; i++ {
			x[i] += dx[i]
		}
	}

	assert.InDelta(t, 1.0, x[1], 1e-9)
	assert.InDelta(t, 0.5, x[2], 1e-9)
	assert.InDelta(t, -0.5e-3, x[3], 1e-12)
}

func TestCombineAndResidualConventions(t *testing.T) {
	for _, conv := range []Convention{NewDAE, OldDAE} {
		s, err := NewSystem(1, 1, conv)
		require.NoError(t, err)
		h := s.Register(1, 1)

		s.AddF(h, 2)
		s.AddQ(h, 3)
		s.AddFVector(1, 1)
		s.AddQVector(1, 4)
		s.Combine(10, 0.5)

		assert.Equal(t, 2+10*3+0.5, s.JValue(h))

		r := s.Residual(10, 0.5, []float64{0, 7}, []float64{0, 2})
		want := 1 + 7 + 0.5*2.0
		if conv == NewDAE {
			want += 10 * 4
		}
		assert.InDelta(t, want, r[1], 1e-12)
	}
}

func TestPrintSystem(t *testing.T) {
	s, err := NewSystem(2, 2, OldDAE)
	require.NoError(t, err)

	h := s.Register(1, 2)
	s.AddF(h, -1e-3)
	s.AddQ(s.Register(2, 2), 1e-12)
	s.AddFVector(1, 0.5)

	var buf bytes.Buffer
	s.PrintSystem(&buf)
	out := buf.String()
	assert.Contains(t, out, "old convention")
	assert.Contains(t, out, "-0.001*x2")
	assert.Contains(t, out, "(+1e-12*dx2/dt)")
	assert.Contains(t, out, "F=0.5")

	assert.InDelta(t, 75.0, s.Density(), 1e-9)
}
