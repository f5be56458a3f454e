package device

import (
	"errors"

	"github.com/edp1096/soi-spice/pkg/matrix"
)

var ErrNotSetup = errors.New("device is not set up")

// Device is one circuit element as seen by the host circuit. The setup methods run
// sequentially; Evaluate may run concurrently with other devices and must only write
// device-owned state; Load runs sequentially.
type Device interface {
	GetName() string
	GetType() string
	GetNodeNames() []string
	GetNodes() []int
	SetNodes(nodes []int)

	InternalCount() int
	SetInternal(lids []int) error
	RegisterHandles(r matrix.Registrar)

	Evaluate(status *CircuitStatus, x []float64) error
	Load(l Loader) error
}

// Accepter is implemented by devices that keep a Newton iterate snapshot.
type Accepter interface {
	Accept()
}

// Brancher is implemented by devices whose last BranchCount internal unknowns are
// branch currents rather than node voltages.
type Brancher interface {
	BranchCount() int
}

// Breakpointer is implemented by sources whose waveform has corners.
type Breakpointer interface {
	// Crosses reports whether a waveform corner lies in (from, to].
	Crosses(from, to float64) bool
}

// Limiter is implemented by devices that may censor the Newton step.
type Limiter interface {
	Limited() bool
}

type BaseDevice struct {
	Name      string
	Nodes     []int
	Value     float64
	NodeNames []string
}

type SourceType int

const (
	DC SourceType = iota
	SIN
	PULSE
	PWL
)

type AnalysisMode int

const (
	OperatingPointAnalysis AnalysisMode = iota
	TransientAnalysis
	DCSweep
)

// CircuitStatus is the solver state handed to every device on each Newton iteration.
type CircuitStatus struct {
	Time      float64
	TimeStep  float64
	Gmin      float64
	Mode      AnalysisMode
	Temp      float64 // ambient temperature (K)
	Order     int
	Alpha     float64 // leading integration coefficient, 0 at DC
	Iteration int     // Newton iteration within the current solve
	// Restart marks the first iteration after a discontinuity (new solve, new sweep
	// point, breakpoint).
	Restart bool
	// InitialConditions is set while user initial conditions are being enforced.
	InitialConditions bool
}

func (d *BaseDevice) GetName() string {
	return d.Name
}

func (d *BaseDevice) GetNodes() []int {
	return d.Nodes
}

func (d *BaseDevice) GetNodeNames() []string {
	return d.NodeNames
}

func (d *BaseDevice) GetValue() float64 {
	return d.Value
}

func (d *BaseDevice) SetNodes(nodes []int) {
	d.Nodes = nodes
}

func (d *BaseDevice) InternalCount() int { return 0 }

func (d *BaseDevice) SetInternal(lids []int) error { return nil }

// voltage reads a 1-based solution vector; ground and unset indices read 0.
func voltage(x []float64, lid int) float64 {
	if lid <= 0 || lid >= len(x) {
		return 0
	}
	return x[lid]
}
