package device

import (
	"fmt"

	"github.com/edp1096/soi-spice/pkg/limit"
	"github.com/edp1096/soi-spice/pkg/matrix"
	"github.com/edp1096/soi-spice/pkg/stamp"
	"github.com/edp1096/soi-spice/pkg/topology"
)

// SOI is a silicon-on-insulator transistor instance. Node order is D, G, S, E, then
// the body and contact nodes that are external, then the temperature node when
// exposed.
type SOI struct {
	BaseDevice
	eval   Evaluator
	params SOIParams

	top     topology.Topology
	variant *stamp.Variant
	lids    []int // derived row -> global unknown, 0 for ground
	handles [][]matrix.Handle

	// assembled contributions, derived rows
	f, q, fdxp, qdxp []float64
	jf, jq           [][]float64

	raw, lim []float64
	orig     [NumControls]float64
	limited  bool
	state    iterateStore
}

var _ Device = (*SOI)(nil)

func NewSOI(name string, nodeNames []string, eval Evaluator, params SOIParams) *SOI {
	if params.Steps == (limit.Steps{}) {
		params.Steps = limit.DefaultSteps()
	}
	return &SOI{
		BaseDevice: BaseDevice{
			Name:      name,
			Nodes:     make([]int, len(nodeNames)),
			NodeNames: nodeNames,
		},
		eval:   eval,
		params: params,
	}
}

func (m *SOI) GetType() string { return "M" }

func (m *SOI) options() topology.Options {
	p := m.params
	return topology.Options{
		ExternalNodes:    len(m.NodeNames),
		SelfHeating:      p.SelfHeating,
		TempNodeExternal: p.TempNodeExternal,
		GateMode:         p.GateMode,
		BodyTie:          p.Parasitics.RBody != 0,
		FullyDepleted:    p.FullyDepleted,
		DrainResistance:  p.SheetResistance,
		DrainSquares:     p.DrainSquares,
		SourceResistance: p.SheetResistance,
		SourceSquares:    p.SourceSquares,
		IC:               p.ICSet,
	}
}

// Setup selects the topology and resolves the stamp variant. It runs during the
// sequential setup phase and is the only place instance parameters are corrected.
func (m *SOI) Setup(table *stamp.Table) ([]ParameterWarning, error) {
	top, err := topology.Select(m.Name, m.options())
	if err != nil {
		return nil, err
	}

	var warnings []ParameterWarning
	if top.Body == topology.BodySplit && m.params.Parasitics.RBody == 0 {
		warnings = append(warnings, ParameterWarning{
			Instance:  m.Name,
			Param:     "rbody",
			Value:     0,
			Reason:    "must be nonzero with separate body and contact nodes",
			Corrected: true,
			NewValue:  1,
		})
		m.params.Parasitics.RBody = 1
	}
	gate := func(param string, r *float64) {
		if *r > 0 {
			return
		}
		warnings = append(warnings, ParameterWarning{
			Instance:  m.Name,
			Param:     param,
			Value:     *r,
			Reason:    "gate resistance network needs a positive value",
			Corrected: true,
			NewValue:  1,
		})
		*r = 1
	}
	switch top.Gate {
	case topology.GateResistor:
		gate("rg", &m.params.Parasitics.RG)
	case topology.GateChannelResistor:
		gate("rgm", &m.params.Parasitics.RGM)
	case topology.GateTwoResistor:
		gate("rg", &m.params.Parasitics.RG)
		gate("rgm", &m.params.Parasitics.RGM)
	}
	if top.Present(topology.T) && m.params.Parasitics.Rth <= 0 {
		warnings = append(warnings, ParameterWarning{
			Instance:  m.Name,
			Param:     "rth",
			Value:     m.params.Parasitics.Rth,
			Reason:    "self-heating without thermal resistance",
			Corrected: true,
			NewValue:  1e6,
		})
		m.params.Parasitics.Rth = 1e6
	}

	v, err := table.Variant(top)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m.Name, err)
	}

	m.top = top
	m.variant = v

	size := v.Size()
	m.lids = make([]int, size)
	m.f = make([]float64, size)
	m.q = make([]float64, size)
	m.fdxp = make([]float64, size)
	m.qdxp = make([]float64, size)
	m.jf = make([][]float64, size)
	m.jq = make([][]float64, size)
	for r, row := range v.Stamp {
		m.jf[r] = make([]float64, len(row))
		m.jq[r] = make([]float64, len(row))
	}
	m.raw = make([]float64, v.NodeCount())
	m.lim = make([]float64, v.NodeCount())
	m.state = iterateStore{
		curr: newIterationState(v.NodeCount()),
		next: newIterationState(v.NodeCount()),
	}

	return warnings, nil
}

func (m *SOI) Topology() topology.Topology { return m.top }

func (m *SOI) Variant() *stamp.Variant { return m.variant }

// InternalCount is the number of internal unknowns, 0 before Setup.
func (m *SOI) InternalCount() int {
	if m.variant == nil {
		return 0
	}
	return m.top.InternalCount()
}

// BranchCount is the number of initial-condition branch unknowns.
func (m *SOI) BranchCount() int {
	if m.variant == nil {
		return 0
	}
	return len(m.top.Branches())
}

// SetInternal assigns the global unknowns of the internal terminals followed by the
// initial-condition branches.
func (m *SOI) SetInternal(lids []int) error {
	if m.variant == nil {
		return fmt.Errorf("%s: %w", m.Name, ErrNotSetup)
	}
	if len(lids) != m.top.InternalCount() {
		return &topology.ConfigurationError{
			Instance:   m.Name,
			Constraint: fmt.Sprintf("%d internal unknowns assigned, topology needs %d", len(lids), m.top.InternalCount()),
		}
	}

	ext := m.top.ExternalCount()
	if len(m.Nodes) != ext {
		return &topology.ConfigurationError{
			Instance:   m.Name,
			Constraint: fmt.Sprintf("%d external nodes connected, topology needs %d", len(m.Nodes), ext),
		}
	}
	copy(m.lids, m.Nodes)
	copy(m.lids[ext:], lids)
	return nil
}

// InternalNames names the internal unknowns in SetInternal order.
func (m *SOI) InternalNames() []string {
	var names []string
	for _, term := range m.top.InternalTerminals() {
		names = append(names, term.String())
	}
	for _, j := range m.top.Branches() {
		names = append(names, "ic_"+j.String())
	}
	return names
}

// LIDs returns the global unknown of every derived row.
func (m *SOI) LIDs() []int { return m.lids }

// RegisterHandles resolves one write handle per stamp entry.
func (m *SOI) RegisterHandles(r matrix.Registrar) {
	m.handles = make([][]matrix.Handle, len(m.variant.Stamp))
	for row, cols := range m.variant.Stamp {
		m.handles[row] = make([]matrix.Handle, len(cols))
		for p, col := range cols {
			m.handles[row][p] = r.Register(m.lids[row], m.lids[col])
		}
	}
}

func (m *SOI) Limited() bool { return m.limited }

// Accept commits the last iterate as the reference for the next solve.
func (m *SOI) Accept() { m.state.accept() }

// State returns the accepted iterate snapshot.
func (m *SOI) State() IterationState { return m.state.curr }

// Load scatters the assembled contributions through the cached handles.
func (m *SOI) Load(l Loader) error {
	if m.variant == nil || m.handles == nil {
		return fmt.Errorf("%s: %w", m.Name, ErrNotSetup)
	}

	for r, row := range m.lids {
		l.Current(row, m.f[r])
		l.Charge(row, m.q[r])
		l.CurrentCorrection(row, m.fdxp[r])
		l.ChargeCorrection(row, m.qdxp[r])
		for p, h := range m.handles[r] {
			l.Conductance(h, m.jf[r][p])
			l.Capacitance(h, m.jq[r][p])
		}
	}
	return nil
}
