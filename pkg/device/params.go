package device

import (
	"fmt"

	"github.com/edp1096/soi-spice/pkg/limit"
	"github.com/edp1096/soi-spice/pkg/topology"
)

// Parasitics are the linear elements around the intrinsic device, in ohms, K/W and J/K.
// A zero resistance means the element is absent.
type Parasitics struct {
	RD    float64 // drain series, D to D'
	RS    float64 // source series, S to S'
	RG    float64 // gate electrode, G to Gm
	RGM   float64 // intrinsic gate, Gm to G'
	RBody float64 // body tie, B to P
	Rth   float64 // thermal resistance, T to ambient
	Cth   float64 // thermal capacitance, T to ambient
}

// SOIParams are the topology-relevant inputs of one SOI instance.
type SOIParams struct {
	SelfHeating      bool
	TempNodeExternal bool
	GateMode         topology.GateMode
	FullyDepleted    bool

	SheetResistance float64
	DrainSquares    float64
	SourceSquares   float64

	// IC holds the initial condition of each junction whose ICSet flag is true.
	IC    [topology.NumJunctions]float64
	ICSet [topology.NumJunctions]bool

	Parasitics Parasitics
	Steps      limit.Steps
}

// ParameterWarning reports a parameter outside its recommended range. The value is
// still used unless Corrected says otherwise.
type ParameterWarning struct {
	Instance  string
	Param     string
	Value     float64
	Reason    string
	Corrected bool
	NewValue  float64
}

func (w ParameterWarning) String() string {
	s := fmt.Sprintf("%s: parameter %s=%g %s", w.Instance, w.Param, w.Value, w.Reason)
	if w.Corrected {
		s += fmt.Sprintf(", using %g", w.NewValue)
	}
	return s
}
