package physics

import (
	"math"

	"github.com/edp1096/soi-spice/internal/consts"
)

const expLimit = 40.0

var expAtLimit = math.Exp(expLimit)

// safeExp is exp(x) continued linearly beyond expLimit. It returns the value and
// its derivative.
func safeExp(x float64) (float64, float64) {
	if x > expLimit {
		return expAtLimit * (1 + x - expLimit), expAtLimit
	}
	e := math.Exp(x)
	return e, e
}

func thermalVoltage(temp float64) float64 {
	if temp <= 0 {
		temp = 300.15
	}
	return consts.BOLTZMANN * temp / consts.CHARGE
}

// diode returns i = is*(exp(v/(n*vt))-1) + gmin*v with its derivatives against v and
// temperature.
func diode(v, temp, is, n, gmin float64) (i, gv, gt float64) {
	nvt := n * thermalVoltage(temp)
	x := v / nvt
	e, de := safeExp(x)

	i = is*(e-1) + gmin*v
	gv = is*de/nvt + gmin
	gt = is * de * (-x / temp)
	return i, gv, gt
}

// tunnel returns i = j*sinh(v/vs) and di/dv.
func tunnel(v, j, vs float64) (float64, float64) {
	if j == 0 {
		return 0, 0
	}
	ep, dep := safeExp(v / vs)
	en, den := safeExp(-v / vs)
	return 0.5 * j * (ep - en), 0.5 * j * (dep + den) / vs
}
