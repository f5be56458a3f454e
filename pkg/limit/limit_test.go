package limit

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		name      string
		candidate float64
		previous  float64
		step      float64
		want      float64
		changed   bool
	}{
		{"within step", 0.7, 0.5, 0.5, 0.7, false},
		{"exactly step", 1.0, 0.5, 0.5, 1.0, false},
		{"above", 3.0, 0.5, 0.5, 1.0, true},
		{"below", -3.0, 0.5, 0.5, 0.0, true},
		{"zero step unchanged", 0.5, 0.5, 0, 0.5, false},
		{"zero step changed", 0.9, 0.5, 0, 0.5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := Clamp(tt.candidate, tt.previous, tt.step)
			assert.InDelta(t, tt.want, got, 1e-15)
			assert.Equal(t, tt.changed, changed)
			assert.False(t, math.IsNaN(got))
		})
	}
}

func TestClampFloat32(t *testing.T) {
	got, changed := Clamp[float32](2, 0, 0.25)
	assert.True(t, changed)
	assert.Equal(t, float32(0.25), got)
}

func TestClampNeverExceedsStep(t *testing.T) {
	for _, c := range []float64{-1e6, -10, -0.1, 0, 0.1, 10, 1e6} {
		for _, p := range []float64{-5, 0, 5} {
			got, _ := Clamp(c, p, 0.5)
			assert.LessOrEqual(t, math.Abs(got-p), 0.5+1e-12)
			// the step keeps its direction
			assert.GreaterOrEqual(t, (got-p)*(c-p), 0.0, "candidate %g previous %g", c, p)
		}
	}
}

func TestNodes(t *testing.T) {
	candidate := []float64{0, 5, -5, 0.2}
	previous := []float64{0, 0, 0, 0}

	steps := Steps{Node: 1.0, Temp: 5.0}
	changed := Nodes(candidate, previous, steps)
	assert.True(t, changed)
	assert.Equal(t, []float64{0, 1, -1, 0.2}, candidate)

	assert.False(t, Nodes([]float64{0.5}, []float64{0}, steps))
}

func TestNodesUsesTemperatureStep(t *testing.T) {
	candidate := []float64{3, 30, 3}
	previous := []float64{0, 0, 0}

	assert.True(t, Nodes(candidate, previous, Steps{Node: 1.0, Temp: 5.0}, 1))
	assert.Equal(t, []float64{1, 5, 1}, candidate)

	candidate = []float64{0.5, 4}
	assert.False(t, Nodes(candidate, []float64{0, 0}, Steps{Node: 1.0, Temp: 5.0}, 1))
}

func TestDropsUsesTemperatureStep(t *testing.T) {
	steps := Steps{Drop: 0.5, Temp: 5}
	candidate := []float64{2, 2, 20}
	previous := []float64{0, 1.8, 0}

	changed := Drops(candidate, previous, steps, 2)
	assert.True(t, changed)
	assert.InDelta(t, 0.5, candidate[0], 1e-15)
	assert.InDelta(t, 2.0, candidate[1], 1e-15)
	assert.InDelta(t, 5.0, candidate[2], 1e-15)
}

func TestDefaultSteps(t *testing.T) {
	s := DefaultSteps()
	assert.Greater(t, s.Node, 0.0)
	assert.Greater(t, s.Drop, 0.0)
	assert.Greater(t, s.Temp, 0.0)
}
