package device

import "github.com/edp1096/soi-spice/pkg/matrix"

// Loader scatters instance-local contributions into the shared system. The
// convention only changes where charge terms land.
type Loader struct {
	M     matrix.DeviceMatrix
	Conv  matrix.Convention
	Alpha float64
}

func (l Loader) Current(row int, value float64) {
	l.M.AddFVector(row, value)
}

func (l Loader) Conductance(h matrix.Handle, value float64) {
	l.M.AddF(h, value)
}

func (l Loader) CurrentCorrection(row int, value float64) {
	l.M.AddFdxpVector(row, value)
}

func (l Loader) Source(row int, value float64) {
	l.M.AddBVector(row, value)
}

// Charge always records the raw charge, which the integrator keeps as history. In the
// old convention alpha*Q is also folded into F.
func (l Loader) Charge(row int, value float64) {
	l.M.AddQVector(row, value)
	if l.Conv == matrix.OldDAE {
		l.M.AddFVector(row, l.Alpha*value)
	}
}

func (l Loader) Capacitance(h matrix.Handle, value float64) {
	if l.Conv == matrix.OldDAE {
		l.M.AddF(h, l.Alpha*value)
		return
	}
	l.M.AddQ(h, value)
}

func (l Loader) ChargeCorrection(row int, value float64) {
	if l.Conv == matrix.OldDAE {
		l.M.AddFdxpVector(row, l.Alpha*value)
		return
	}
	l.M.AddQdxpVector(row, value)
}
