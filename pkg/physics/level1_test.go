package physics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edp1096/soi-spice/pkg/device"
)

func testEvaluator(t *testing.T, typ string) *Level1 {
	t.Helper()
	m := NewModel("nch", typ, map[string]float64{
		"jgate":  1e-2,
		"alpha0": 0.05,
		"cgbo":   1e-10,
	})
	require.Empty(t, m.Check())
	e, _, warnings := m.Instantiate("m1", Geometry{L: 1e-6, W: 5e-6, NRD: 1, NRS: 1})
	require.Empty(t, warnings)
	return e
}

func perturb(b device.Bias, k device.Control, h float64) device.Bias {
	switch k {
	case device.CtrlVds:
		b.Vds += h
	case device.CtrlVgs:
		b.Vgs += h
	case device.CtrlVbs:
		b.Vbs += h
	case device.CtrlVes:
		b.Ves += h
	case device.CtrlDT:
		b.DeltaT += h
	}
	return b
}

func TestDerivativesMatchFiniteDifferences(t *testing.T) {
	tests := []struct {
		name string
		typ  string
		bias device.Bias
	}{
		{"nmos saturation", "nmos", device.Bias{Vds: 1.2, Vgs: 1.5, Vbs: -0.2, Ves: 0.3, DeltaT: 3, Temp: 300, Body: true}},
		{"nmos reverse linear", "nmos", device.Bias{Vds: -0.3, Vgs: 1.2, Vbs: -0.2, Ves: 0.1, DeltaT: 1, Temp: 300, Body: true}},
		{"nmos no body", "nmos", device.Bias{Vds: 0.2, Vgs: 1.4, Ves: 0.2, Temp: 320}},
		{"pmos saturation", "pmos", device.Bias{Vds: -1.2, Vgs: -1.5, Vbs: 0.2, Ves: -0.3, DeltaT: 2, Temp: 300, Body: true}},
	}

	const h = 1e-6
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := testEvaluator(t, tt.typ)
			q := e.Evaluate(tt.bias)

			for k := device.CtrlVds; k < device.NumControls; k++ {
				if !tt.bias.Body && k == device.CtrlVbs {
					continue
				}
				hi := e.Evaluate(perturb(tt.bias, k, h))
				lo := e.Evaluate(perturb(tt.bias, k, -h))
				for port := device.PortD; port < device.NumPorts; port++ {
					fd := (hi.Current[port] - lo.Current[port]) / (2 * h)
					got := q.DCurrent[port][k]
					assert.InDelta(t, fd, got, 1e-9+1e-5*math.Abs(got), "dI[%d]/d%d", port, k)

					fdq := (hi.Charge[port] - lo.Charge[port]) / (2 * h)
					assert.InDelta(t, fdq, q.DCharge[port][k], 1e-20+1e-6*math.Abs(fdq), "dQ[%d]/d%d", port, k)
				}
			}
		})
	}
}

func TestElectricalCurrentsAreConserved(t *testing.T) {
	for _, typ := range []string{"nmos", "pmos"} {
		e := testEvaluator(t, typ)
		for _, b := range []device.Bias{
			{Vds: 1, Vgs: 1, Vbs: 0.1, Ves: 0.5, Temp: 300, Body: true},
			{Vds: -2, Vgs: 0.3, Vbs: -1, Ves: -0.5, DeltaT: 10, Temp: 350, Body: true},
			{Vds: 0.5, Vgs: 2, Ves: 1, Temp: 300},
		} {
			q := e.Evaluate(b)
			var sum, qsum float64
			var dsum [device.NumControls]float64
			for port := device.PortD; port < device.PortT; port++ {
				sum += q.Current[port]
				qsum += q.Charge[port]
				for k := range dsum {
					dsum[k] += q.DCurrent[port][k]
				}
			}
			assert.InDelta(t, 0, sum, 1e-12)
			assert.InDelta(t, 0, qsum, 1e-25)
			for k := range dsum {
				assert.InDelta(t, 0, dsum[k], 1e-9)
			}
		}
	}
}

func TestNoBodyMeansNoBodyTerms(t *testing.T) {
	e := testEvaluator(t, "nmos")
	q := e.Evaluate(device.Bias{Vds: 1, Vgs: 1.5, Vbs: 0.4, Ves: 0.2, Temp: 300})

	assert.Zero(t, q.Current[device.PortB])
	assert.Zero(t, q.Charge[device.PortB])
	for k := range q.DCurrent[device.PortB] {
		assert.Zero(t, q.DCurrent[device.PortB][k])
		assert.Zero(t, q.DCharge[device.PortB][k])
	}
	for port := range q.DCurrent {
		assert.Zero(t, q.DCurrent[port][device.CtrlVbs])
	}
}

func TestPMOSMirrorsNMOS(t *testing.T) {
	n := testEvaluator(t, "nmos")
	p := testEvaluator(t, "pmos")

	b := device.Bias{Vds: 0.8, Vgs: 1.1, Vbs: -0.3, Ves: 0.2, DeltaT: 2, Temp: 300, Body: true}
	nb := n.Evaluate(b)
	pb := p.Evaluate(device.Bias{Vds: -0.8, Vgs: -1.1, Vbs: 0.3, Ves: -0.2, DeltaT: 2, Temp: 300, Body: true})

	for port := device.PortD; port < device.PortT; port++ {
		assert.InDelta(t, -nb.Current[port], pb.Current[port], 1e-15)
	}
	assert.InDelta(t, nb.Current[device.PortT], pb.Current[device.PortT], 1e-15)
	assert.Greater(t, nb.Current[device.PortD], 0.0)
	assert.Less(t, nb.Current[device.PortT], 0.0)
}

func TestEvaluateIsIdempotentAndFinite(t *testing.T) {
	e := testEvaluator(t, "nmos")
	b := device.Bias{Vds: 1, Vgs: 1, Vbs: 0.2, Temp: 300, Body: true}
	assert.Equal(t, e.Evaluate(b), e.Evaluate(b))

	huge := e.Evaluate(device.Bias{Vds: -500, Vgs: 800, Vbs: 300, Ves: -900, DeltaT: 50, Temp: 300, Body: true})
	for port := range huge.Current {
		assert.False(t, math.IsNaN(huge.Current[port]) || math.IsInf(huge.Current[port], 0))
		for k := range huge.DCurrent[port] {
			assert.False(t, math.IsNaN(huge.DCurrent[port][k]) || math.IsInf(huge.DCurrent[port][k], 0))
		}
	}
}

func TestSafeExpIsContinuous(t *testing.T) {
	below, dbelow := safeExp(expLimit - 1e-9)
	above, dabove := safeExp(expLimit + 1e-9)
	assert.InEpsilon(t, below, above, 1e-8)
	assert.InEpsilon(t, dbelow, dabove, 1e-8)
}

func TestCheckCorrectsUndefinedParameters(t *testing.T) {
	m := NewModel("bad", "nmos", map[string]float64{"phi": -1, "n": 0, "kp": -1})
	warnings := m.Check()

	require.Len(t, warnings, 3)
	assert.Equal(t, 0.7, m.PHI)
	assert.Equal(t, 1.0, m.N)
	assert.Equal(t, -1.0, m.KP)

	var corrected int
	for _, w := range warnings {
		if w.Corrected {
			corrected++
		}
	}
	assert.Equal(t, 2, corrected)
}

func TestInstantiate(t *testing.T) {
	m := NewModel("nch", "nmos", map[string]float64{"rsh": 50, "shmod": 1, "rgatemod": 3, "rgm": 20, "rshg": 10, "rbody": 1e3})
	_, params, warnings := m.Instantiate("m1", Geometry{L: 1e-6, W: 4e-6, NRD: 2, NRS: 0})
	require.Empty(t, warnings)

	assert.True(t, params.SelfHeating)
	assert.Equal(t, 3, int(params.GateMode))
	assert.Equal(t, 100.0, params.Parasitics.RD)
	assert.Equal(t, 0.0, params.Parasitics.RS)
	assert.Equal(t, 40.0, params.Parasitics.RG)
	assert.Equal(t, 20.0, params.Parasitics.RGM)
	assert.InDelta(t, 0.1/4e-6, params.Parasitics.Rth, 1e-6)

	_, _, warnings = m.Instantiate("m2", Geometry{L: 0, W: -1})
	assert.Len(t, warnings, 2)
}
