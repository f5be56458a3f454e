package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/edp1096/soi-spice/pkg/circuit"
	"github.com/edp1096/soi-spice/pkg/device"
	"github.com/edp1096/soi-spice/pkg/util"
)

var ErrNoConvergence = errors.New("newton iteration did not converge")

type Analysis interface {
	Setup(ckt *circuit.Circuit) error
	Execute(ctx context.Context) error
	GetResults() map[string][]float64
}

// Convergence holds the Newton controls shared by every analysis.
type Convergence struct {
	MaxIter int
	Abstol  float64
	Reltol  float64
	Gmin    float64
}

func DefaultConvergence() Convergence {
	return Convergence{
		MaxIter: 100,
		Abstol:  1e-12,
		Reltol:  1e-6,
		Gmin:    1e-12,
	}
}

type BaseAnalysis struct {
	Circuit     *circuit.Circuit
	results     map[string][]float64 // key: variable name, value: result by time
	convergence Convergence
	name        string
}

func NewBaseAnalysis(name string) *BaseAnalysis {
	return &BaseAnalysis{
		results:     make(map[string][]float64),
		convergence: DefaultConvergence(),
		name:        name,
	}
}

// SetConvergence replaces the Newton controls. Zero fields keep their defaults.
func (a *BaseAnalysis) SetConvergence(c Convergence) {
	if c.MaxIter > 0 {
		a.convergence.MaxIter = c.MaxIter
	}
	if c.Abstol > 0 {
		a.convergence.Abstol = c.Abstol
	}
	if c.Reltol > 0 {
		a.convergence.Reltol = c.Reltol
	}
	if c.Gmin > 0 {
		a.convergence.Gmin = c.Gmin
	}
}

func (a *BaseAnalysis) logger() *slog.Logger {
	if a.Circuit == nil {
		return slog.Default()
	}
	return a.Circuit.Logger()
}

func (a *BaseAnalysis) CheckConvergence(oldSol, newSol []float64) bool {
	if len(oldSol) != len(newSol) {
		return false
	}

	for i := range oldSol {
		diff := math.Abs(newSol[i] - oldSol[i])
		if diff > a.convergence.Abstol &&
			diff > a.convergence.Reltol*math.Max(math.Abs(newSol[i]), math.Abs(oldSol[i])) {
			return false
		}
	}
	return true
}

// newton solves F(x) + alpha*Q(x) + history = B from the circuit's current solution.
// restart marks the solve as the first after a discontinuity. On success the devices
// are left evaluated at the solution and their iterates accepted.
func (a *BaseAnalysis) newton(ctx context.Context, status *device.CircuitStatus, history []float64, restart bool) error {
	ckt := a.Circuit
	sys := ckt.System()
	x := ckt.Solution
	prev := make([]float64, len(x))

	ckt.Status = status
	for iter := range a.convergence.MaxIter {
		if err := ctx.Err(); err != nil {
			return err
		}
		status.Iteration = iter
		status.Restart = restart && iter == 0

		if err := ckt.Evaluate(ctx, x); err != nil {
			return err
		}
		if err := ckt.Load(); err != nil {
			return err
		}
		sys.Combine(status.Alpha, status.Gmin)

		start := time.Now()
		dx, err := sys.Solve(sys.Residual(status.Alpha, status.Gmin, history, x))
		solveDuration.Observe(time.Since(start).Seconds())
		newtonIterations.WithLabelValues(a.name).Inc()
		if err != nil {
			return fmt.Errorf("iteration %d: %w", iter, err)
		}

		limited := ckt.Limited()
		if limited {
			limitedIterations.WithLabelValues(a.name).Inc()
		}

		copy(prev, x)
		for i := 1; i < len(x); i++ {
			x[i] += dx[i]
		}

		if iter > 0 && !limited && a.CheckConvergence(prev, x) {
			status.Restart = false
			status.Iteration = iter + 1
			if err := ckt.Evaluate(ctx, x); err != nil {
				return err
			}
			if err := ckt.Load(); err != nil {
				return err
			}
			ckt.Accept()
			return nil
		}
	}

	newtonFailures.WithLabelValues(a.name).Inc()
	return fmt.Errorf("%w in %d iterations", ErrNoConvergence, a.convergence.MaxIter)
}

func (a *BaseAnalysis) StoreTimeResult(time float64, solution map[string]float64) {
	// Ignore same time
	if len(a.results["TIME"]) > 0 {
		lastTime := a.results["TIME"][len(a.results["TIME"])-1]
		if time == lastTime {
			return
		}
		// Compare rounded string. 1.999999e-05 == 2.000000e-05
		if util.FormatValueFactor(time, "s") == util.FormatValueFactor(lastTime, "s") {
			return
		}
	}

	a.results["TIME"] = append(a.results["TIME"], time)
	for name, value := range solution {
		a.results[name] = append(a.results[name], value)
	}
}

func (a *BaseAnalysis) GetResults() map[string][]float64 {
	return a.results
}
