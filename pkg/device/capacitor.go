package device

import (
	"github.com/edp1096/soi-spice/pkg/matrix"
)

type Capacitor struct {
	BaseDevice
	handles [2][2]matrix.Handle
	charge  float64
}

var _ Device = (*Capacitor)(nil)

func NewCapacitor(name string, nodeNames []string, value float64) *Capacitor {
	return &Capacitor{
		BaseDevice: BaseDevice{
			Name:      name,
			Nodes:     make([]int, len(nodeNames)),
			NodeNames: nodeNames,
			Value:     value,
		},
	}
}

func (c *Capacitor) GetType() string { return "C" }

func (c *Capacitor) RegisterHandles(reg matrix.Registrar) {
	for a := range 2 {
		for b := range 2 {
			c.handles[a][b] = reg.Register(c.Nodes[a], c.Nodes[b])
		}
	}
}

func (c *Capacitor) Evaluate(status *CircuitStatus, x []float64) error {
	c.charge = c.Value * (voltage(x, c.Nodes[0]) - voltage(x, c.Nodes[1]))
	return nil
}

// Load writes the charge C*(v1-v2); the integrator turns it into a current.
func (c *Capacitor) Load(l Loader) error {
	n1, n2 := c.Nodes[0], c.Nodes[1]

	l.Charge(n1, c.charge)
	l.Charge(n2, -c.charge)
	l.Capacitance(c.handles[0][0], c.Value)
	l.Capacitance(c.handles[0][1], -c.Value)
	l.Capacitance(c.handles[1][0], -c.Value)
	l.Capacitance(c.handles[1][1], c.Value)

	return nil
}
