package device

import (
	"fmt"

	"github.com/edp1096/soi-spice/pkg/limit"
	"github.com/edp1096/soi-spice/pkg/stamp"
	"github.com/edp1096/soi-spice/pkg/topology"
)

// Evaluate limits the proposed solution, calls the physics and assembles F, Q, their
// Jacobians and the bias-correction vectors into instance-local buffers.
func (m *SOI) Evaluate(status *CircuitStatus, x []float64) error {
	if m.variant == nil {
		return fmt.Errorf("%s: %w", m.Name, ErrNotSetup)
	}
	for r := range m.raw {
		m.raw[r] = voltage(x, m.lids[r])
	}
	copy(m.lim, m.raw)

	prev := m.state.previous(status.Iteration)
	m.limited = false
	if status.Restart {
		var temp []int
		if r := m.variant.Row(topology.T); r >= 0 {
			temp = append(temp, r)
		}
		m.limited = limit.Nodes(m.lim, prev.Nodes, m.params.Steps, temp...)
	}

	m.orig = m.controls(m.raw)
	ctrl := m.controls(m.lim)
	if limit.Drops(ctrl[:], prev.Controls[:], m.params.Steps, int(CtrlDT)) {
		m.limited = true
	}

	out := m.eval.Evaluate(biasFromControls(ctrl, status.Temp, m.top.Present(topology.B)))

	m.clear()
	m.assembleIntrinsic(&out, &ctrl)
	m.assembleParasitics()
	m.assembleBranches(status, x)

	next := &m.state.next
	copy(next.Nodes, m.lim)
	next.Controls = ctrl

	return nil
}

// controls derives the evaluator controls from node voltages indexed by derived row.
func (m *SOI) controls(volts []float64) [NumControls]float64 {
	at := func(t topology.Terminal) float64 {
		if r := m.variant.Row(t); r >= 0 {
			return volts[r]
		}
		return 0
	}

	var c [NumControls]float64
	vs := at(topology.SP)
	c[CtrlVds] = at(topology.DP) - vs
	c[CtrlVgs] = at(topology.GP) - vs
	c[CtrlVes] = at(topology.E) - vs
	if m.top.Present(topology.B) {
		c[CtrlVbs] = at(topology.B) - vs
	}
	if m.top.Present(topology.T) {
		c[CtrlDT] = at(topology.T)
	}
	return c
}

func (m *SOI) clear() {
	for _, v := range [][]float64{m.f, m.q, m.fdxp, m.qdxp} {
		clear(v)
	}
	for r := range m.jf {
		clear(m.jf[r])
		clear(m.jq[r])
	}
}

// entry resolves a logical (row, col) pair through the derivation maps.
func (m *SOI) entry(row, col topology.Terminal) (int, int) {
	dr := m.variant.Row(row)
	if dr < 0 {
		return -1, -1
	}
	return dr, m.variant.Offset(int(row), stamp.MaximalPosition(row, col))
}

func (m *SOI) addF(row topology.Terminal, value float64) {
	if r := m.variant.Row(row); r >= 0 {
		m.f[r] += value
	}
}

func (m *SOI) addQ(row topology.Terminal, value float64) {
	if r := m.variant.Row(row); r >= 0 {
		m.q[r] += value
	}
}

func (m *SOI) addJF(row, col topology.Terminal, value float64) {
	if r, p := m.entry(row, col); p >= 0 {
		m.jf[r][p] += value
	}
}

func (m *SOI) addJQ(row, col topology.Terminal, value float64) {
	if r, p := m.entry(row, col); p >= 0 {
		m.jq[r][p] += value
	}
}

func (m *SOI) assembleIntrinsic(out *TerminalQuantities, ctrl *[NumControls]float64) {
	for port := PortD; port < NumPorts; port++ {
		term := portTerminal[port]
		if m.variant.Row(term) < 0 {
			continue
		}

		m.addF(term, out.Current[port])
		m.addQ(term, out.Charge[port])

		var fcorr, qcorr float64
		for c := CtrlVds; c < NumControls; c++ {
			gi, ci := out.DCurrent[port][c], out.DCharge[port][c]
			pos, neg := controlTerminals[c][0], controlTerminals[c][1]

			m.addJF(term, pos, gi)
			m.addJQ(term, pos, ci)
			if neg != topology.None {
				m.addJF(term, neg, -gi)
				m.addJQ(term, neg, -ci)
			}

			if m.limited {
				d := ctrl[c] - m.orig[c]
				fcorr -= gi * d
				qcorr -= ci * d
			}
		}

		if r := m.variant.Row(term); r >= 0 {
			m.fdxp[r] += fcorr
			m.qdxp[r] += qcorr
		}
	}
}

func (m *SOI) rawVoltage(t topology.Terminal) float64 {
	if r := m.variant.Row(t); r >= 0 {
		return m.raw[r]
	}
	return 0
}

// resistor adds a linear conductance between two logical terminals at the raw
// voltages. Merged or eliminated ends make it vanish.
func (m *SOI) resistor(a, b topology.Terminal, r float64) {
	ra, rb := m.variant.Row(a), m.variant.Row(b)
	if r == 0 || ra < 0 || rb < 0 || ra == rb {
		return
	}
	g := 1 / r
	i := g * (m.rawVoltage(a) - m.rawVoltage(b))

	m.addF(a, i)
	m.addF(b, -i)
	m.addJF(a, a, g)
	m.addJF(a, b, -g)
	m.addJF(b, a, -g)
	m.addJF(b, b, g)
}

func (m *SOI) assembleParasitics() {
	p := m.params.Parasitics

	m.resistor(topology.D, topology.DP, p.RD)
	m.resistor(topology.S, topology.SP, p.RS)

	switch m.top.Gate {
	case topology.GateResistor:
		m.resistor(topology.G, topology.GM, p.RG)
	case topology.GateChannelResistor:
		m.resistor(topology.G, topology.GM, p.RGM)
	case topology.GateTwoResistor:
		m.resistor(topology.G, topology.GM, p.RG)
		m.resistor(topology.GM, topology.GP, p.RGM)
	}

	m.resistor(topology.B, topology.P, p.RBody)

	if m.top.Present(topology.T) {
		dt := m.rawVoltage(topology.T)
		gth := 1 / p.Rth
		m.addF(topology.T, gth*dt)
		m.addJF(topology.T, topology.T, gth)
		m.addQ(topology.T, p.Cth*dt)
		m.addJQ(topology.T, topology.T, p.Cth)
	}
}

// assembleBranches adds the initial-condition branch equations. While initial
// conditions are enforced the branch current holds the junction at its value;
// otherwise the branch current is driven to zero.
func (m *SOI) assembleBranches(status *CircuitStatus, x []float64) {
	v := m.variant
	for _, j := range v.Branches {
		br := v.BranchRow(j)
		a, b := j.Terminals()
		ra, rb := v.Row(a), v.Row(b)
		i := voltage(x, m.lids[br])

		m.f[ra] += i
		m.f[rb] -= i
		m.jf[ra][v.Stamp.Position(ra, br)] += 1
		m.jf[rb][v.Stamp.Position(rb, br)] -= 1

		if status.InitialConditions {
			m.f[br] = m.raw[ra] - m.raw[rb] - m.params.IC[j]
			m.jf[br][v.Stamp.Position(br, ra)] += 1
			m.jf[br][v.Stamp.Position(br, rb)] -= 1
		} else {
			m.f[br] = i
			m.jf[br][v.Stamp.Position(br, br)] += 1
		}
	}
}

// Contributions is a copy of the last assembled values, indexed by derived row and
// stamp position.
type Contributions struct {
	F, Q, Fdxp, Qdxp []float64
	JF, JQ           [][]float64
}

func (m *SOI) Contributions() Contributions {
	c := Contributions{
		F:    append([]float64(nil), m.f...),
		Q:    append([]float64(nil), m.q...),
		Fdxp: append([]float64(nil), m.fdxp...),
		Qdxp: append([]float64(nil), m.qdxp...),
		JF:   make([][]float64, len(m.jf)),
		JQ:   make([][]float64, len(m.jq)),
	}
	for r := range m.jf {
		c.JF[r] = append([]float64(nil), m.jf[r]...)
		c.JQ[r] = append([]float64(nil), m.jq[r]...)
	}
	return c
}
