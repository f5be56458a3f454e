package physics

import (
	"math"

	"github.com/edp1096/soi-spice/pkg/device"
	"github.com/edp1096/soi-spice/pkg/topology"
)

// Geometry is the per-instance geometry.
type Geometry struct {
	L   float64 // Channel length (m)
	W   float64 // Channel width (m)
	NRD float64 // Drain squares
	NRS float64 // Source squares
}

func DefaultGeometry() Geometry {
	return Geometry{L: 1e-6, W: 10e-6, NRD: 1, NRS: 1}
}

// Instantiate scales the model to one instance geometry.
func (m *Model) Instantiate(instance string, geom Geometry) (*Level1, device.SOIParams, []device.ParameterWarning) {
	var warnings []device.ParameterWarning
	def := DefaultGeometry()
	if geom.L <= 0 {
		warnings = append(warnings, device.ParameterWarning{
			Instance: instance, Param: "l", Value: geom.L, Reason: "must be positive", Corrected: true, NewValue: def.L,
		})
		geom.L = def.L
	}
	if geom.W <= 0 {
		warnings = append(warnings, device.ParameterWarning{
			Instance: instance, Param: "w", Value: geom.W, Reason: "must be positive", Corrected: true, NewValue: def.W,
		})
		geom.W = def.W
	}

	e := &Level1{
		polarity: m.polarity(),
		beta0:    m.KP * geom.W / geom.L,
		vto:      m.VTO,
		gamma:    m.GAMMA,
		phi:      m.PHI,
		sqrtPhi:  math.Sqrt(m.PHI),
		lambda:   m.LAMBDA,
		kbg:      m.KBG,
		tnom:     m.TNOM,
		bex:      m.BEX,
		kt1:      m.KT1,
		isat:     m.JS * geom.W,
		n:        m.N,
		gminj:    m.GMINJ,
		jg:       m.JGATE * geom.W * geom.L,
		vg:       m.VGATE,
		alpha0:   m.ALPHA0,
		cgs:      m.CGSO * geom.W,
		cgd:      m.CGDO * geom.W,
		cgb:      m.CGBO * geom.L,
		cbs:      m.CJSW * geom.W,
		cbd:      m.CJSW * geom.W,
		ces:      0.5 * m.CBOX * geom.W * geom.L,
		ced:      0.5 * m.CBOX * geom.W * geom.L,
	}

	params := device.SOIParams{
		SelfHeating:     m.SHMOD != 0,
		GateMode:        topology.GateMode(m.RGATEMOD),
		FullyDepleted:   m.SOIMOD == 2,
		SheetResistance: m.RSH,
		DrainSquares:    geom.NRD,
		SourceSquares:   geom.NRS,
		Parasitics: device.Parasitics{
			RD:    m.RSH * geom.NRD,
			RS:    m.RSH * geom.NRS,
			RG:    m.RSHG * geom.W / geom.L,
			RGM:   m.RGM,
			RBody: m.RBODY,
			Rth:   m.RTH0 / geom.W,
			Cth:   m.CTH0 * geom.W,
		},
	}

	return e, params, warnings
}
