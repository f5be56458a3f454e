package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edp1096/soi-spice/pkg/matrix"
)

type recorder struct {
	f, q                     map[matrix.Handle]float64
	fv, qv, fdxp, qdxp, bvec map[int]float64
}

func newRecorder() *recorder {
	return &recorder{
		f: map[matrix.Handle]float64{}, q: map[matrix.Handle]float64{},
		fv: map[int]float64{}, qv: map[int]float64{},
		fdxp: map[int]float64{}, qdxp: map[int]float64{}, bvec: map[int]float64{},
	}
}

func (r *recorder) AddF(h matrix.Handle, v float64)  { r.f[h] += v }
func (r *recorder) AddQ(h matrix.Handle, v float64)  { r.q[h] += v }
func (r *recorder) AddFVector(row int, v float64)    { r.fv[row] += v }
func (r *recorder) AddQVector(row int, v float64)    { r.qv[row] += v }
func (r *recorder) AddFdxpVector(row int, v float64) { r.fdxp[row] += v }
func (r *recorder) AddQdxpVector(row int, v float64) { r.qdxp[row] += v }
func (r *recorder) AddBVector(row int, v float64)    { r.bvec[row] += v }

func TestLoaderConventions(t *testing.T) {
	tests := []struct {
		conv     matrix.Convention
		wantF    float64
		wantQ    float64
		wantFdxp float64
		wantQdxp float64
		wantFMat float64
		wantQMat float64
	}{
		{matrix.NewDAE, 0, 3, 0, 5, 0, 4},
		{matrix.OldDAE, 6, 3, 10, 0, 8, 0},
	}

	for _, tt := range tests {
		t.Run(tt.conv.String(), func(t *testing.T) {
			rec := newRecorder()
			l := Loader{M: rec, Conv: tt.conv, Alpha: 2}

			l.Charge(1, 3)
			l.Capacitance(0, 4)
			l.ChargeCorrection(1, 5)

			assert.Equal(t, tt.wantF, rec.fv[1])
			assert.Equal(t, tt.wantQ, rec.qv[1])
			assert.Equal(t, tt.wantFdxp, rec.fdxp[1])
			assert.Equal(t, tt.wantQdxp, rec.qdxp[1])
			assert.Equal(t, tt.wantFMat, rec.f[0])
			assert.Equal(t, tt.wantQMat, rec.q[0])
		})
	}
}

// solveLinear runs one Newton step from zero, exact for linear circuits.
func solveLinear(t *testing.T, size, nodes int, devs ...Device) []float64 {
	t.Helper()
	sys, err := matrix.NewSystem(size, nodes, matrix.NewDAE)
	require.NoError(t, err)
	for _, d := range devs {
		d.RegisterHandles(sys)
	}

	x := make([]float64, size+1)
	status := &CircuitStatus{Temp: 300.15}
	for _, d := range devs {
		require.NoError(t, d.Evaluate(status, x))
		require.NoError(t, d.Load(Loader{M: sys, Conv: matrix.NewDAE}))
	}
	sys.Combine(0, 0)
	dx, err := sys.Solve(sys.Residual(0, 0, nil, x))
	require.NoError(t, err)
	for i := 1; i <= size; i++ {
		x[i] += dx[i]
	}
	for _, d := range devs {
		require.NoError(t, d.Evaluate(status, x))
	}
	return x
}

func TestVoltageSourceAndResistor(t *testing.T) {
	r := NewResistor("r1", []string{"1", "0"}, 1e3)
	r.SetNodes([]int{1, 0})
	v := NewDCVoltageSource("v1", []string{"1", "0"}, 5)
	v.SetNodes([]int{1, 0})
	require.NoError(t, v.SetInternal([]int{2}))
	assert.Equal(t, 2, v.BranchIndex())

	x := solveLinear(t, 2, 1, r, v)

	assert.InDelta(t, 5.0, x[1], 1e-9)
	assert.InDelta(t, 5e-3, r.Current(), 1e-12)
	assert.InDelta(t, -5e-3, v.Current(), 1e-12)
}

func TestCurrentSourceIntoResistor(t *testing.T) {
	r := NewResistor("r1", []string{"1", "0"}, 2e3)
	r.SetNodes([]int{1, 0})
	i := NewDCCurrentSource("i1", []string{"1", "0"}, 1e-3)
	i.SetNodes([]int{1, 0})

	x := solveLinear(t, 1, 1, r, i)
	assert.InDelta(t, 2.0, x[1], 1e-9)
}

func TestResistorTemperature(t *testing.T) {
	r := NewResistor("r1", []string{"1", "0"}, 100)
	r.Tc1 = 1e-3
	r.SetNodes([]int{1, 0})

	require.NoError(t, r.Evaluate(&CircuitStatus{Temp: r.Tnom + 100}, []float64{0, 1.1}))
	assert.InDelta(t, 0.01, r.Current(), 1e-12)
}

func TestCapacitorCharge(t *testing.T) {
	c := NewCapacitor("c1", []string{"1", "2"}, 1e-9)
	c.SetNodes([]int{1, 2})
	sys, err := matrix.NewSystem(2, 2, matrix.OldDAE)
	require.NoError(t, err)
	c.RegisterHandles(sys)

	require.NoError(t, c.Evaluate(&CircuitStatus{}, []float64{0, 3, 1}))
	require.NoError(t, c.Load(Loader{M: sys, Conv: matrix.OldDAE, Alpha: 1e6}))

	assert.InDelta(t, 2e-9, sys.Q[1], 1e-21)
	assert.InDelta(t, -2e-9, sys.Q[2], 1e-21)
	assert.InDelta(t, 2e-3, sys.F[1], 1e-15)

	h, ok := sys.Lookup(1, 2)
	require.True(t, ok)
	assert.InDelta(t, -1e-3, sys.FValue(h), 1e-15)
	assert.Zero(t, sys.QValue(h))
}

func TestSourceWaveforms(t *testing.T) {
	p := NewPulseVoltageSource("v1", []string{"1", "0"}, 0, 1, 1e-9, 1e-9, 1e-9, 5e-9, 20e-9)
	assert.Equal(t, 0.0, p.GetVoltage(0))
	assert.InDelta(t, 0.5, p.GetVoltage(1.5e-9), 1e-12)
	assert.Equal(t, 1.0, p.GetVoltage(4e-9))
	assert.Equal(t, 0.0, p.GetVoltage(15e-9))

	w := NewPWLVoltageSource("v2", []string{"1", "0"}, []float64{0, 1, 2}, []float64{0, 2, 2})
	assert.InDelta(t, 1.0, w.GetVoltage(0.5), 1e-12)
	assert.Equal(t, 2.0, w.GetVoltage(3))

	s := NewSinVoltageSource("v3", []string{"1", "0"}, 1, 1, 1e3, 0)
	assert.InDelta(t, 2.0, s.GetVoltage(0.25e-3), 1e-9)
}

func TestSourceCrosses(t *testing.T) {
	// corners at 1, 2, 7, 8 ns and every 20 ns after
	p := NewPulseVoltageSource("v1", []string{"1", "0"}, 0, 1, 1e-9, 1e-9, 1e-9, 5e-9, 20e-9)
	assert.False(t, p.Crosses(0, 0.5e-9))
	assert.True(t, p.Crosses(0.5e-9, 1e-9))
	assert.False(t, p.Crosses(1e-9, 1.5e-9))
	assert.True(t, p.Crosses(6e-9, 7.5e-9))
	assert.False(t, p.Crosses(9e-9, 20e-9))
	assert.True(t, p.Crosses(27.5e-9, 28.5e-9))

	i := NewPWLCurrentSource("i1", []string{"1", "0"}, []float64{0, 1, 2}, []float64{0, 1e-3, 0})
	assert.False(t, i.Crosses(0, 0.5))
	assert.True(t, i.Crosses(0.5, 1))
	assert.False(t, i.Crosses(2, 3))

	var dc Device = NewDCVoltageSource("v2", []string{"1", "0"}, 1)
	_, ok := dc.(Breakpointer)
	require.True(t, ok)
	assert.False(t, dc.(Breakpointer).Crosses(0, 1))
}
