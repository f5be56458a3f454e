package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBDFCoefficients(t *testing.T) {
	dt := 1e-9

	c1 := GetBDFcoeffs(1, dt)
	assert.Len(t, c1, 2)
	assert.InEpsilon(t, 1/dt, c1[0], 1e-12)
	assert.InEpsilon(t, -1/dt, c1[1], 1e-12)

	// BDF2 on q(t) = t is exact: dq/dt = 1
	c2 := GetBDFcoeffs(2, dt)
	assert.Len(t, c2, 3)
	d := c2[0]*2*dt + c2[1]*dt + c2[2]*0
	assert.InDelta(t, 1.0, d, 1e-9)

	// weights of a constant charge cancel
	for order := 1; order <= 6; order++ {
		sum := 0.0
		for _, c := range GetBDFcoeffs(order, dt) {
			sum += c
		}
		assert.InDelta(t, 0, sum*dt, 1e-9, "order %d", order)
	}

	assert.Len(t, GetBDFcoeffs(0, dt), 2)
	assert.Len(t, GetBDFcoeffs(7, dt), 2)
}

func TestFormatValueFactor(t *testing.T) {
	tests := []struct {
		value float64
		unit  string
		want  string
	}{
		{1.8, "V", "1.800 V"},
		{-2.5e-3, "A", "-2.500 mA"},
		{4.7e-6, "A", "4.700 uA"},
		{1e-9, "s", "1.000 ns"},
		{3.3e-12, "F", "3.300 pF"},
		{0, "V", "0.000e+00 V"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatValueFactor(tt.value, tt.unit))
	}
}
