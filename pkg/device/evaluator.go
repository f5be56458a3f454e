package device

import "github.com/edp1096/soi-spice/pkg/topology"

// Port is a terminal the physics evaluator reports a current or charge for.
type Port int

const (
	PortD Port = iota // drain prime
	PortG             // gate prime
	PortS             // source prime
	PortE             // substrate
	PortB             // body
	PortT             // temperature, carries -P
	NumPorts
)

// Control is a bias variable the physics evaluator differentiates against.
type Control int

const (
	CtrlVds Control = iota
	CtrlVgs
	CtrlVbs
	CtrlVes
	CtrlDT
	NumControls
)

var portTerminal = [NumPorts]topology.Terminal{
	PortD: topology.DP,
	PortG: topology.GP,
	PortS: topology.SP,
	PortE: topology.E,
	PortB: topology.B,
	PortT: topology.T,
}

// controlTerminals maps a control to the column pair it is the difference of.
var controlTerminals = [NumControls][2]topology.Terminal{
	CtrlVds: {topology.DP, topology.SP},
	CtrlVgs: {topology.GP, topology.SP},
	CtrlVbs: {topology.B, topology.SP},
	CtrlVes: {topology.E, topology.SP},
	CtrlDT:  {topology.T, topology.None},
}

// Bias is the limited operating point handed to the evaluator.
type Bias struct {
	Vds, Vgs, Vbs, Ves float64
	DeltaT             float64 // temperature rise over Temp (K)
	Temp               float64 // ambient temperature (K)
	Body               bool    // false when the device has no body node
}

// Controls returns the bias as a control-indexed vector.
func (b Bias) Controls() [NumControls]float64 {
	return [NumControls]float64{b.Vds, b.Vgs, b.Vbs, b.Ves, b.DeltaT}
}

func biasFromControls(c [NumControls]float64, temp float64, body bool) Bias {
	return Bias{
		Vds:    c[CtrlVds],
		Vgs:    c[CtrlVgs],
		Vbs:    c[CtrlVbs],
		Ves:    c[CtrlVes],
		DeltaT: c[CtrlDT],
		Temp:   temp,
		Body:   body,
	}
}

// TerminalQuantities are the evaluator results at one bias. Currents are positive out
// of the node into the device.
type TerminalQuantities struct {
	Current  [NumPorts]float64
	Charge   [NumPorts]float64
	DCurrent [NumPorts][NumControls]float64
	DCharge  [NumPorts][NumControls]float64
}

// Evaluator is the compact-model physics. Implementations must be free of hidden
// state, safe for concurrent use, and return finite values for finite input. With
// Bias.Body false every body term must be zero.
type Evaluator interface {
	Evaluate(b Bias) TerminalQuantities
}

// EvaluatorFunc adapts a function to Evaluator.
type EvaluatorFunc func(b Bias) TerminalQuantities

func (f EvaluatorFunc) Evaluate(b Bias) TerminalQuantities { return f(b) }
