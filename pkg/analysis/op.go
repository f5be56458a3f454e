package analysis

import (
	"context"
	"fmt"
	"math"

	"github.com/edp1096/soi-spice/pkg/circuit"
	"github.com/edp1096/soi-spice/pkg/device"
)

type OperatingPoint struct {
	BaseAnalysis
	// InitialConditions holds device initial-condition branches at their values.
	InitialConditions bool
	numGminSteps      int
}

func NewOP() *OperatingPoint {
	return &OperatingPoint{
		BaseAnalysis: *NewBaseAnalysis("op"),
		numGminSteps: 10,
	}
}

func (op *OperatingPoint) Setup(ckt *circuit.Circuit) error {
	if ckt.System() == nil {
		return fmt.Errorf("operating point: %w", device.ErrNotSetup)
	}
	op.Circuit = ckt
	return nil
}

func (op *OperatingPoint) status(gmin float64) *device.CircuitStatus {
	return &device.CircuitStatus{
		Mode:              device.OperatingPointAnalysis,
		Temp:              op.Circuit.Status.Temp,
		Gmin:              gmin,
		InitialConditions: op.InitialConditions,
	}
}

// solve finds the operating point from the current solution, falling back to gmin
// stepping when plain Newton fails.
func (op *OperatingPoint) solve(ctx context.Context) error {
	ckt := op.Circuit
	start := append([]float64(nil), ckt.Solution...)

	err := op.newton(ctx, op.status(op.convergence.Gmin), nil, true)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return err
	}
	op.logger().Warn("newton failed, stepping gmin", "circuit", ckt.Name(), "error", err)

	copy(ckt.Solution, start)
	gmin := float64(ckt.Size()) * 0.001 * math.Pow(10, float64(op.numGminSteps))
	for i := 0; i <= op.numGminSteps; i++ {
		gminSteps.Inc()
		if err := op.newton(ctx, op.status(gmin), nil, i == 0); err != nil {
			return fmt.Errorf("gmin stepping failed at %g: %w", gmin, err)
		}
		op.logger().Debug("gmin step converged", "gmin", gmin)
		gmin /= 10
	}

	if err := op.newton(ctx, op.status(op.convergence.Gmin), nil, false); err != nil {
		return fmt.Errorf("final solution failed with gmin %g: %w", op.convergence.Gmin, err)
	}
	return nil
}

func (op *OperatingPoint) Execute(ctx context.Context) error {
	if err := op.solve(ctx); err != nil {
		return fmt.Errorf("operating point: %w", err)
	}
	op.storeResults()
	return nil
}

func (op *OperatingPoint) storeResults() {
	for name, value := range op.Circuit.GetSolution() {
		op.results[name] = []float64{value}
	}
}
