package physics

import (
	"math"

	"github.com/edp1096/soi-spice/pkg/device"
)

const sargMin = 1e-3

// Level1 is a Shichman-Hodges SOI transistor: square-law channel with body and
// back-gate threshold shifts, body junction diodes, gate tunnelling, impact
// ionization into the body, self-heating power and constant capacitances. Every
// current is a two-port branch, so terminal currents always sum to zero.
type Level1 struct {
	polarity float64

	beta0, vto, gamma, phi, sqrtPhi, lambda, kbg float64
	tnom, bex, kt1                               float64
	isat, n, gminj                               float64
	jg, vg, alpha0                               float64
	cgs, cgd, cgb, cbs, cbd, ces, ced            float64
}

var _ device.Evaluator = (*Level1)(nil)

type controls = [device.NumControls]float64

// controlOf is the control each port's potential (relative to S') is measured by.
var controlOf = [device.NumPorts]device.Control{
	device.PortD: device.CtrlVds,
	device.PortG: device.CtrlVgs,
	device.PortS: -1,
	device.PortE: device.CtrlVes,
	device.PortB: device.CtrlVbs,
	device.PortT: -1,
}

type accumulator struct {
	out *device.TerminalQuantities
}

// branch adds a current i flowing from port a through the device to port b.
func (acc accumulator) branch(a, b device.Port, i float64, di controls) {
	acc.out.Current[a] += i
	acc.out.Current[b] -= i
	for k, d := range di {
		acc.out.DCurrent[a][k] += d
		acc.out.DCurrent[b][k] -= d
	}
}

// capacitor adds the charge c*(V(a)-V(b)) on a and its opposite on b.
func (acc accumulator) capacitor(a, b device.Port, c float64, x *controls) {
	if c == 0 {
		return
	}
	var q float64
	if k := controlOf[a]; k >= 0 {
		q += c * x[k]
		acc.out.DCharge[a][k] += c
		acc.out.DCharge[b][k] -= c
	}
	if k := controlOf[b]; k >= 0 {
		q -= c * x[k]
		acc.out.DCharge[a][k] -= c
		acc.out.DCharge[b][k] += c
	}
	acc.out.Charge[a] += q
	acc.out.Charge[b] -= q
}

// forward evaluates the channel and impact-ionization currents for vds >= 0 in
// the n-channel frame.
func (e *Level1) forward(x controls, temp float64, body bool) (id float64, did controls, ii float64, dii controls) {
	vds, vgs, vbs, ves := x[device.CtrlVds], x[device.CtrlVgs], x[device.CtrlVbs], x[device.CtrlVes]

	var dvth controls
	sq := math.Sqrt(sargMin)
	if body {
		if sarg := e.phi - vbs; sarg > sargMin {
			sq = math.Sqrt(sarg)
			dvth[device.CtrlVbs] = -e.gamma * 0.5 / sq
		}
	} else {
		sq = e.sqrtPhi
	}
	vth := e.vto + e.gamma*(sq-e.sqrtPhi) - e.kbg*ves + e.kt1*(temp/e.tnom-1)
	dvth[device.CtrlVes] = -e.kbg
	dvth[device.CtrlDT] = e.kt1 / e.tnom

	beta := e.beta0 * math.Pow(temp/e.tnom, -e.bex)
	dbeta := beta * -e.bex / temp

	vgst := vgs - vth
	if vgst <= 0 || beta <= 0 {
		return 0, did, 0, dii
	}

	clm := 1 + e.lambda*vds
	var gvgst, gds float64
	if vds < vgst {
		// Linear region
		core := vgst*vds - 0.5*vds*vds
		id = beta * core * clm
		gvgst = beta * vds * clm
		gds = beta*(vgst-vds)*clm + beta*core*e.lambda
	} else {
		// Saturation region
		id = 0.5 * beta * vgst * vgst * clm
		gvgst = beta * vgst * clm
		gds = 0.5 * beta * vgst * vgst * e.lambda
	}

	did[device.CtrlVds] = gds
	did[device.CtrlVgs] = gvgst
	did[device.CtrlVbs] = -gvgst * dvth[device.CtrlVbs]
	did[device.CtrlVes] = -gvgst * dvth[device.CtrlVes]
	did[device.CtrlDT] = -gvgst*dvth[device.CtrlDT] + id/beta*dbeta

	if body && e.alpha0 > 0 {
		ii = e.alpha0 * id * vds
		for k := range dii {
			dii[k] = e.alpha0 * did[k] * vds
		}
		dii[device.CtrlVds] += e.alpha0 * id
	}
	return id, did, ii, dii
}

// reverse maps partials from the drain-source swapped frame back to the device frame.
func reverse(df controls) controls {
	var d controls
	d[device.CtrlVgs] = df[device.CtrlVgs]
	d[device.CtrlVbs] = df[device.CtrlVbs]
	d[device.CtrlVes] = df[device.CtrlVes]
	d[device.CtrlDT] = df[device.CtrlDT]
	d[device.CtrlVds] = -(df[device.CtrlVgs] + df[device.CtrlVds] + df[device.CtrlVbs] + df[device.CtrlVes])
	return d
}

func (e *Level1) Evaluate(b device.Bias) device.TerminalQuantities {
	var out device.TerminalQuantities
	acc := accumulator{out: &out}

	p := e.polarity
	x := controls{p * b.Vds, p * b.Vgs, p * b.Vbs, p * b.Ves, b.DeltaT}
	if !b.Body {
		x[device.CtrlVbs] = 0
	}
	temp := b.Temp + b.DeltaT
	if temp <= 0 {
		temp = 1
	}
	vds := x[device.CtrlVds]

	// Channel and impact ionization
	var ich float64
	var dch controls
	if vds >= 0 {
		id, did, ii, dii := e.forward(x, temp, b.Body)
		ich, dch = id, did
		if ii != 0 {
			acc.branch(device.PortD, device.PortB, ii, dii)
		}
	} else {
		xf := x
		xf[device.CtrlVds] = -vds
		xf[device.CtrlVgs] -= vds
		xf[device.CtrlVbs] -= vds
		xf[device.CtrlVes] -= vds
		if !b.Body {
			xf[device.CtrlVbs] = 0
		}
		id, did, ii, dii := e.forward(xf, temp, b.Body)
		ich = -id
		dch = reverse(did)
		for k := range dch {
			dch[k] = -dch[k]
		}
		if ii != 0 {
			acc.branch(device.PortS, device.PortB, ii, reverse(dii))
		}
	}
	acc.branch(device.PortD, device.PortS, ich, dch)

	// Gate tunnelling to source and drain
	if e.jg != 0 {
		vgs := x[device.CtrlVgs]
		igs, ggs := tunnel(vgs, e.jg, e.vg)
		acc.branch(device.PortG, device.PortS, igs, controls{device.CtrlVgs: ggs})

		igd, ggd := tunnel(vgs-vds, e.jg, e.vg)
		acc.branch(device.PortG, device.PortD, igd, controls{device.CtrlVgs: ggd, device.CtrlVds: -ggd})
	}

	// Body junctions
	if b.Body {
		vbs := x[device.CtrlVbs]
		ibs, gbs, tbs := diode(vbs, temp, e.isat, e.n, e.gminj)
		acc.branch(device.PortB, device.PortS, ibs, controls{device.CtrlVbs: gbs, device.CtrlDT: tbs})

		ibd, gbd, tbd := diode(vbs-vds, temp, e.isat, e.n, e.gminj)
		acc.branch(device.PortB, device.PortD, ibd, controls{device.CtrlVbs: gbd, device.CtrlVds: -gbd, device.CtrlDT: tbd})
	}

	// Self-heating: channel power flows into the thermal node
	power := ich * vds
	out.Current[device.PortT] = -power
	for k, d := range dch {
		out.DCurrent[device.PortT][k] = -d * vds
	}
	out.DCurrent[device.PortT][device.CtrlVds] -= ich

	// Charges
	acc.capacitor(device.PortG, device.PortS, e.cgs, &x)
	acc.capacitor(device.PortG, device.PortD, e.cgd, &x)
	acc.capacitor(device.PortE, device.PortS, e.ces, &x)
	acc.capacitor(device.PortE, device.PortD, e.ced, &x)
	if b.Body {
		acc.capacitor(device.PortG, device.PortB, e.cgb, &x)
		acc.capacitor(device.PortB, device.PortS, e.cbs, &x)
		acc.capacitor(device.PortB, device.PortD, e.cbd, &x)
	}

	if p < 0 {
		flip(&out)
	}
	return out
}

// flip converts n-frame results to p-channel terminal quantities.
func flip(out *device.TerminalQuantities) {
	for port := device.PortD; port < device.NumPorts; port++ {
		if port == device.PortT {
			for k := device.CtrlVds; k < device.CtrlDT; k++ {
				out.DCurrent[port][k] = -out.DCurrent[port][k]
			}
			continue
		}
		out.Current[port] = -out.Current[port]
		out.Charge[port] = -out.Charge[port]
		out.DCurrent[port][device.CtrlDT] = -out.DCurrent[port][device.CtrlDT]
		out.DCharge[port][device.CtrlDT] = -out.DCharge[port][device.CtrlDT]
	}
}
