package analysis

import (
	"context"
	"fmt"

	"github.com/edp1096/soi-spice/pkg/circuit"
	"github.com/edp1096/soi-spice/pkg/device"
	"github.com/edp1096/soi-spice/pkg/util"
)

const maxOrder = 2

type Transient struct {
	BaseAnalysis
	op        *OperatingPoint
	time      float64
	startTime float64
	stopTime  float64
	timeStep  float64
	minStep   float64
	useUIC    bool

	order    int         // BDF order of the next step
	prevStep float64     // size of the last accepted step
	charges  [][]float64 // accepted Q vectors, most recent first
}

func NewTransient(tStart, tStop, tStep float64, uic bool) *Transient {
	return &Transient{
		BaseAnalysis: *NewBaseAnalysis("tran"),
		op:           NewOP(),
		startTime:    tStart,
		stopTime:     tStop,
		timeStep:     tStep,
		minStep:      tStep / 50.0,
		useUIC:       uic,
		order:        1,
	}
}

// Setup finds the initial state. With uic the initial-condition branches hold the
// device junctions at their values during that solve.
func (tr *Transient) Setup(ckt *circuit.Circuit) error {
	if tr.timeStep <= 0 || tr.stopTime <= 0 {
		return fmt.Errorf("transient: invalid step %g or stop time %g", tr.timeStep, tr.stopTime)
	}
	if err := tr.op.Setup(ckt); err != nil {
		return err
	}
	tr.op.SetConvergence(tr.convergence)
	tr.op.InitialConditions = tr.useUIC
	tr.Circuit = ckt
	return nil
}

func (tr *Transient) Execute(ctx context.Context) error {
	if tr.Circuit == nil {
		return fmt.Errorf("circuit not set")
	}

	if err := tr.op.solve(ctx); err != nil {
		return fmt.Errorf("initial operating point: %w", err)
	}
	tr.pushCharges()
	if tr.startTime <= 0 {
		tr.StoreTimeResult(0, tr.Circuit.GetSolution())
	}

	dt := tr.timeStep
	for tr.stopTime-tr.time > 1e-9*tr.timeStep {
		// fold a sliver at the end into the last step
		if tr.time+dt > tr.stopTime-tr.minStep {
			dt = tr.stopTime - tr.time
		}

		saved := append([]float64(nil), tr.Circuit.Solution...)
		for {
			order := min(tr.order, len(tr.charges), maxOrder)
			if dt != tr.prevStep {
				// BDF2 history assumes equal steps
				order = 1
			}

			err := tr.step(ctx, dt, order)
			if err == nil {
				break
			}
			if ctx.Err() != nil {
				return err
			}
			if dt/2 < tr.minStep {
				return fmt.Errorf("failed to converge at t=%g: %w", tr.time+dt, err)
			}
			copy(tr.Circuit.Solution, saved)
			dt /= 2
			tr.order = 1
			tr.logger().Warn("halving time step", "time", tr.time, "step", dt, "error", err)
		}

		tr.time += dt
		tr.prevStep = dt
		tr.pushCharges()
		if tr.time >= tr.startTime {
			tr.StoreTimeResult(tr.time, tr.Circuit.GetSolution())
		}

		tr.order = maxOrder
		if dt < tr.timeStep {
			dt = min(2*dt, tr.timeStep)
		}
	}

	return nil
}

// step solves one BDF step of size dt from the accepted charge history.
func (tr *Transient) step(ctx context.Context, dt float64, order int) error {
	coeffs := util.GetBDFcoeffs(order, dt)
	history := make([]float64, tr.Circuit.Size()+1)
	for k := 1; k <= order; k++ {
		for i, q := range tr.charges[k-1] {
			history[i] += coeffs[k] * q
		}
	}

	status := &device.CircuitStatus{
		Time:     tr.time + dt,
		TimeStep: dt,
		Gmin:     tr.convergence.Gmin,
		Mode:     device.TransientAnalysis,
		Temp:     tr.Circuit.Status.Temp,
		Order:    order,
		Alpha:    coeffs[0],
	}
	// a waveform corner inside the step restarts junction limiting
	restart := tr.Circuit.Crosses(tr.time, tr.time+dt)
	if restart {
		tr.logger().Debug("source breakpoint", "from", tr.time, "to", tr.time+dt)
	}
	return tr.newton(ctx, status, history, restart)
}

func (tr *Transient) pushCharges() {
	q := append([]float64(nil), tr.Circuit.System().Q...)
	tr.charges = append([][]float64{q}, tr.charges...)
	if len(tr.charges) > maxOrder {
		tr.charges = tr.charges[:maxOrder]
	}
}
