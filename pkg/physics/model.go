package physics

import (
	"strings"

	"github.com/edp1096/soi-spice/pkg/device"
)

// Model is an SOI model card. Parameter names follow the deck keys in lower case.
type Model struct {
	Name string
	Type string // "NMOS" or "PMOS"

	// DC parameters
	VTO    float64 // Threshold voltage (V)
	KP     float64 // Transconductance parameter (A/V²)
	GAMMA  float64 // Body effect parameter (V^0.5)
	PHI    float64 // Surface potential (V)
	LAMBDA float64 // Channel length modulation (1/V)
	KBG    float64 // Back-gate threshold coupling (V/V)

	// Temperature parameters
	TNOM float64 // Parameter measurement temperature (K)
	BEX  float64 // Mobility temperature exponent
	KT1  float64 // Threshold temperature coefficient (V)

	// Body junctions
	JS    float64 // Junction saturation current per width (A/m)
	N     float64 // Junction emission coefficient
	GMINJ float64 // Junction shunt conductance (S)

	// Gate tunnelling and impact ionization
	JGATE  float64 // Gate tunnelling current density (A/m²)
	VGATE  float64 // Gate tunnelling voltage scale (V)
	ALPHA0 float64 // Impact ionization coefficient (1/V)

	// Capacitance parameters
	CGSO float64 // Gate-Source overlap capacitance per width (F/m)
	CGDO float64 // Gate-Drain overlap capacitance per width (F/m)
	CGBO float64 // Gate-Body capacitance per length (F/m)
	CJSW float64 // Body junction sidewall capacitance per width (F/m)
	CBOX float64 // Buried oxide capacitance per area (F/m²)

	// Parasitics
	RSH   float64 // Source/drain sheet resistance (Ω/□)
	RSHG  float64 // Gate electrode sheet resistance (Ω/□)
	RGM   float64 // Intrinsic gate resistance (Ω)
	RBODY float64 // Body-tie resistance (Ω)
	RTH0  float64 // Thermal resistance times width (K·m/W)
	CTH0  float64 // Thermal capacitance per width (J/(K·m))

	// Mode selectors
	SHMOD    float64 // 1 enables self-heating
	RGATEMOD float64 // gate resistance network 0..3
	SOIMOD   float64 // 2 selects the fully depleted, bodiless device
}

func NewModel(name, typ string, params map[string]float64) *Model {
	m := &Model{Name: name, Type: "NMOS"}
	if strings.EqualFold(typ, "pmos") {
		m.Type = "PMOS"
	}
	m.setDefaultParameters()
	m.SetModelParameters(params)
	return m
}

func (m *Model) setDefaultParameters() {
	m.VTO = 0.5
	m.KP = 2e-4
	m.GAMMA = 0.4
	m.PHI = 0.7
	m.LAMBDA = 0.05
	m.KBG = 0.02

	m.TNOM = 300.15 // 27°C
	m.BEX = 1.5
	m.KT1 = -0.1

	m.JS = 1e-10
	m.N = 1.0
	m.GMINJ = 1e-12

	m.JGATE = 0.0
	m.VGATE = 1.0
	m.ALPHA0 = 0.0

	m.CGSO = 3e-10
	m.CGDO = 3e-10
	m.CGBO = 0.0
	m.CJSW = 1e-10
	m.CBOX = 1e-4

	m.RSH = 0.0
	m.RSHG = 0.0
	m.RGM = 0.0
	m.RBODY = 0.0
	m.RTH0 = 0.1
	m.CTH0 = 1e-5

	m.SHMOD = 0
	m.RGATEMOD = 0
	m.SOIMOD = 0
}

func (m *Model) SetModelParameters(params map[string]float64) {
	if typeVal, ok := params["type"]; ok {
		if typeVal == 1.0 {
			m.Type = "PMOS"
		} else {
			m.Type = "NMOS"
		}
	}

	paramsSet := map[string]*float64{
		"vto":    &m.VTO,
		"kp":     &m.KP,
		"gamma":  &m.GAMMA,
		"phi":    &m.PHI,
		"lambda": &m.LAMBDA,
		"kbg":    &m.KBG,

		"tnom": &m.TNOM,
		"bex":  &m.BEX,
		"kt1":  &m.KT1,

		"js":    &m.JS,
		"n":     &m.N,
		"gminj": &m.GMINJ,

		"jgate":  &m.JGATE,
		"vgate":  &m.VGATE,
		"alpha0": &m.ALPHA0,

		"cgso": &m.CGSO,
		"cgdo": &m.CGDO,
		"cgbo": &m.CGBO,
		"cjsw": &m.CJSW,
		"cbox": &m.CBOX,

		"rsh":   &m.RSH,
		"rshg":  &m.RSHG,
		"rgm":   &m.RGM,
		"rbody": &m.RBODY,
		"rth0":  &m.RTH0,
		"cth0":  &m.CTH0,

		"shmod":    &m.SHMOD,
		"rgatemod": &m.RGATEMOD,
		"soimod":   &m.SOIMOD,
	}

	for key, param := range paramsSet {
		if value, ok := params[key]; ok {
			*param = value
		}
	}
}

// Check corrects parameters that would make the equations undefined and reports
// the ones outside their usual range.
func (m *Model) Check() []device.ParameterWarning {
	var warnings []device.ParameterWarning
	warn := func(param string, value float64, reason string) {
		warnings = append(warnings, device.ParameterWarning{Instance: m.Name, Param: param, Value: value, Reason: reason})
	}
	correct := func(param string, p *float64, reason string, value float64) {
		warnings = append(warnings, device.ParameterWarning{
			Instance: m.Name, Param: param, Value: *p, Reason: reason, Corrected: true, NewValue: value,
		})
		*p = value
	}

	if m.KP <= 0 {
		warn("kp", m.KP, "is not positive")
	}
	if m.LAMBDA < 0 {
		warn("lambda", m.LAMBDA, "is negative")
	}
	if m.GAMMA < 0 {
		warn("gamma", m.GAMMA, "is negative")
	}
	if m.PHI <= 0 {
		correct("phi", &m.PHI, "must be positive", 0.7)
	}
	if m.N <= 0 {
		correct("n", &m.N, "must be positive", 1.0)
	}
	if m.VGATE <= 0 {
		correct("vgate", &m.VGATE, "must be positive", 1.0)
	}
	if m.TNOM <= 0 {
		correct("tnom", &m.TNOM, "must be positive", 300.15)
	}
	if m.ALPHA0 < 0 || m.ALPHA0 > 1 {
		warn("alpha0", m.ALPHA0, "is outside 0..1")
	}
	if m.SHMOD != 0 && m.RTH0 <= 0 {
		warn("rth0", m.RTH0, "is not positive with self-heating enabled")
	}

	return warnings
}

func (m *Model) polarity() float64 {
	if m.Type == "PMOS" {
		return -1
	}
	return 1
}
