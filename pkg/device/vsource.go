package device

import (
	"fmt"
	"math"

	"github.com/edp1096/soi-spice/pkg/matrix"
)

type VoltageSource struct {
	BaseDevice
	vtype SourceType
	// DC, common params
	dcValue float64
	// SIN params
	amplitude float64
	freq      float64
	phase     float64
	// PULSE params
	v1     float64
	v2     float64
	delay  float64
	rise   float64
	fall   float64
	pWidth float64
	period float64
	// PWL params
	times  []float64
	values []float64
	// Branch index for MNA
	branchIdx int

	handles [4]matrix.Handle // (n1,br) (n2,br) (br,n1) (br,n2)
	current float64
	drop    float64
	value   float64
}

var _ Device = (*VoltageSource)(nil)

func NewDCVoltageSource(name string, nodeNames []string, value float64) *VoltageSource {
	return &VoltageSource{
		BaseDevice: BaseDevice{
			Name:      name,
			Nodes:     make([]int, len(nodeNames)),
			NodeNames: nodeNames,
			Value:     value,
		},
		vtype:   DC,
		dcValue: value,
	}
}

func NewSinVoltageSource(name string, nodeNames []string, offset, amplitude, freq, phase float64) *VoltageSource {
	return &VoltageSource{
		BaseDevice: BaseDevice{
			Name:      name,
			Nodes:     make([]int, len(nodeNames)),
			NodeNames: nodeNames,
			Value:     offset,
		},
		vtype:     SIN,
		dcValue:   offset,
		amplitude: amplitude,
		freq:      freq,
		phase:     phase,
	}
}

func NewPulseVoltageSource(name string, nodeNames []string, v1, v2, delay, rise, fall, pWidth, period float64) *VoltageSource {
	return &VoltageSource{
		BaseDevice: BaseDevice{
			Name:      name,
			Nodes:     make([]int, len(nodeNames)),
			NodeNames: nodeNames,
			Value:     v1,
		},
		vtype:  PULSE,
		v1:     v1,
		v2:     v2,
		delay:  delay,
		rise:   rise,
		fall:   fall,
		pWidth: pWidth,
		period: period,
	}
}

func NewPWLVoltageSource(name string, nodeNames []string, times []float64, values []float64) *VoltageSource {
	return &VoltageSource{
		BaseDevice: BaseDevice{
			Name:      name,
			Nodes:     make([]int, len(nodeNames)),
			NodeNames: nodeNames,
			Value:     values[0], // First value as initial value
		},
		vtype:  PWL,
		times:  times,
		values: values,
	}
}

func (v *VoltageSource) GetVoltage(t float64) float64 {
	switch v.vtype {
	case DC:
		return v.dcValue
	case SIN:
		phaseRad := v.phase * math.Pi / 180.0
		return v.dcValue + v.amplitude*math.Sin(2.0*math.Pi*v.freq*t+phaseRad)
	case PULSE:
		return v.getPulseVoltage(t)
	case PWL:
		return v.getPWLVoltage(t)
	default:
		return 0
	}
}

func (v *VoltageSource) GetType() string { return "V" }

func (v *VoltageSource) InternalCount() int { return 1 }

func (v *VoltageSource) BranchCount() int { return 1 }

func (v *VoltageSource) SetInternal(lids []int) error {
	if len(lids) != 1 {
		return fmt.Errorf("voltage source %s: needs one branch unknown, got %d", v.Name, len(lids))
	}
	v.branchIdx = lids[0]
	return nil
}

func (v *VoltageSource) RegisterHandles(reg matrix.Registrar) {
	n1, n2, bIdx := v.Nodes[0], v.Nodes[1], v.branchIdx
	v.handles = [4]matrix.Handle{
		reg.Register(n1, bIdx),
		reg.Register(n2, bIdx),
		reg.Register(bIdx, n1),
		reg.Register(bIdx, n2),
	}
}

func (v *VoltageSource) Evaluate(status *CircuitStatus, x []float64) error {
	v.current = voltage(x, v.branchIdx)
	v.value = v.GetVoltage(status.Time)
	v.drop = voltage(x, v.Nodes[0]) - voltage(x, v.Nodes[1])
	return nil
}

// Load writes the branch equation v1 - v2 = V and the branch current into both nodes.
func (v *VoltageSource) Load(l Loader) error {
	n1, n2, bIdx := v.Nodes[0], v.Nodes[1], v.branchIdx

	l.Current(n1, v.current)
	l.Current(n2, -v.current)
	l.Current(bIdx, v.drop)
	l.Source(bIdx, v.value)

	l.Conductance(v.handles[0], 1)
	l.Conductance(v.handles[1], -1)
	l.Conductance(v.handles[2], 1)
	l.Conductance(v.handles[3], -1)
	return nil
}

func (v *VoltageSource) getPulseVoltage(t float64) float64 {
	if t < v.delay {
		return v.v1
	}

	t = t - v.delay
	if v.period > 0 {
		t = math.Mod(t, v.period)
	}

	if t < v.rise {
		if v.rise == 0 {
			return v.v2
		}
		return v.v1 + (v.v2-v.v1)*t/v.rise
	}

	if t < v.rise+v.pWidth {
		return v.v2
	}

	fallStart := v.rise + v.pWidth
	if t < fallStart+v.fall {
		if v.fall == 0 {
			return v.v1
		}
		return v.v2 - (v.v2-v.v1)*(t-fallStart)/v.fall
	}

	return v.v1
}

func (v *VoltageSource) getPWLVoltage(t float64) float64 {
	if t <= v.times[0] {
		return v.values[0]
	}

	lastIdx := len(v.times) - 1
	if t >= v.times[lastIdx] {
		return v.values[lastIdx]
	}

	for i := 1; i < len(v.times); i++ {
		if t <= v.times[i] {
			t1, t2 := v.times[i-1], v.times[i]
			v1, v2 := v.values[i-1], v.values[i]
			slope := (v2 - v1) / (t2 - t1)
			return v1 + slope*(t-t1)
		}
	}

	return v.values[lastIdx] // Must not reach
}

func (v *VoltageSource) BranchIndex() int {
	return v.branchIdx
}

func (v *VoltageSource) SetValue(value float64) {
	v.Value = value
	v.dcValue = value
}

// Current is the branch current at the last evaluation, flowing from the first node
// through the source to the second.
func (v *VoltageSource) Current() float64 {
	return v.current
}
