package device

import (
	"fmt"

	"github.com/edp1096/soi-spice/pkg/matrix"
)

type Resistor struct {
	BaseDevice
	Tc1  float64
	Tc2  float64
	Tnom float64

	handles [2][2]matrix.Handle
	g, i    float64
}

var _ Device = (*Resistor)(nil)

func NewResistor(name string, nodeNames []string, value float64) *Resistor {
	return &Resistor{
		BaseDevice: BaseDevice{
			Name:      name,
			Nodes:     make([]int, len(nodeNames)),
			NodeNames: nodeNames,
			Value:     value,
		},
		Tc1:  0.0,
		Tc2:  0.0,
		Tnom: 300.15,
	}
}

func (r *Resistor) GetType() string { return "R" }

func (r *Resistor) RegisterHandles(reg matrix.Registrar) {
	for a := range 2 {
		for b := range 2 {
			r.handles[a][b] = reg.Register(r.Nodes[a], r.Nodes[b])
		}
	}
}

func (r *Resistor) Evaluate(status *CircuitStatus, x []float64) error {
	if len(r.Nodes) != 2 {
		return fmt.Errorf("resistor %s: requires exactly 2 nodes", r.Name)
	}

	// g := 1.0 / r.Value // Conductance. G = 1/R
	r.g = 1.0 / r.temperatureAdjustedValue(status.Temp)
	r.i = r.g * (voltage(x, r.Nodes[0]) - voltage(x, r.Nodes[1]))
	return nil
}

func (r *Resistor) Load(l Loader) error {
	n1, n2 := r.Nodes[0], r.Nodes[1]

	l.Current(n1, r.i)
	l.Current(n2, -r.i)
	l.Conductance(r.handles[0][0], r.g)
	l.Conductance(r.handles[0][1], -r.g)
	l.Conductance(r.handles[1][0], -r.g)
	l.Conductance(r.handles[1][1], r.g)

	return nil
}

// Current is the current from the first to the second node at the last evaluation.
func (r *Resistor) Current() float64 { return r.i }

func (r *Resistor) temperatureAdjustedValue(temp float64) float64 {
	dt := temp - r.Tnom
	factor := 1.0 + r.Tc1*dt + r.Tc2*dt*dt
	return r.Value * factor
}
