package analysis

import (
	"context"
	"fmt"
	"math"

	"github.com/edp1096/soi-spice/pkg/circuit"
)

// sweepable is a source whose DC value can be stepped.
type sweepable interface {
	GetValue() float64
	SetValue(value float64)
}

// Sweep steps one source from Start to Stop.
type Sweep struct {
	Source    string
	Start     float64
	Stop      float64
	Increment float64
}

func (s Sweep) values() ([]float64, error) {
	if s.Increment == 0 || (s.Stop-s.Start)/s.Increment < 0 {
		return nil, fmt.Errorf("sweep of %s: increment %g does not reach %g from %g", s.Source, s.Increment, s.Stop, s.Start)
	}
	n := int(math.Floor((s.Stop-s.Start)/s.Increment+1e-9)) + 1
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = s.Start + float64(i)*s.Increment
	}
	return vals, nil
}

type DCSweep struct {
	BaseAnalysis
	op        *OperatingPoint
	sweeps    []Sweep
	sweepVals [][]float64 // Generated sweep values for each source
	sources   []sweepable
	origVals  []float64 // Original values of the sources
}

// NewDCSweep sweeps one source, or two nested with the first outermost.
func NewDCSweep(sweeps ...Sweep) (*DCSweep, error) {
	if len(sweeps) < 1 || len(sweeps) > 2 {
		return nil, fmt.Errorf("unsupported number of sweep sources: %d", len(sweeps))
	}

	dc := &DCSweep{
		BaseAnalysis: *NewBaseAnalysis("dc"),
		op:           NewOP(),
		sweeps:       sweeps,
	}
	for _, s := range sweeps {
		vals, err := s.values()
		if err != nil {
			return nil, err
		}
		dc.sweepVals = append(dc.sweepVals, vals)
	}
	return dc, nil
}

func (dc *DCSweep) Setup(ckt *circuit.Circuit) error {
	if err := dc.op.Setup(ckt); err != nil {
		return err
	}
	dc.op.SetConvergence(dc.convergence)
	dc.Circuit = ckt

	for _, s := range dc.sweeps {
		dev, ok := ckt.GetDevice(s.Source)
		if !ok {
			return fmt.Errorf("source %s not found", s.Source)
		}
		src, ok := dev.(sweepable)
		if !ok {
			return fmt.Errorf("device %s cannot be swept", s.Source)
		}
		dc.sources = append(dc.sources, src)
		dc.origVals = append(dc.origVals, src.GetValue())
	}
	return nil
}

func (dc *DCSweep) Execute(ctx context.Context) error {
	if dc.Circuit == nil {
		return fmt.Errorf("circuit not set")
	}
	defer func() {
		for i, src := range dc.sources {
			src.SetValue(dc.origVals[i])
		}
	}()

	outer := dc.sweepVals[0]
	inner := []float64{math.NaN()}
	if len(dc.sweeps) == 2 {
		inner = dc.sweepVals[1]
	}

	for _, val1 := range outer {
		dc.sources[0].SetValue(val1)
		for _, val2 := range inner {
			if len(dc.sweeps) == 2 {
				dc.sources[1].SetValue(val2)
			}

			if err := dc.op.solve(ctx); err != nil {
				return fmt.Errorf("convergence error at %s: %w", dc.point(val1, val2), err)
			}
			dc.storeResult(val1, val2, dc.Circuit.GetSolution())
		}
	}
	return nil
}

func (dc *DCSweep) point(val1, val2 float64) string {
	s := fmt.Sprintf("%s=%g", dc.sweeps[0].Source, val1)
	if len(dc.sweeps) == 2 {
		s += fmt.Sprintf(", %s=%g", dc.sweeps[1].Source, val2)
	}
	return s
}

func (dc *DCSweep) storeResult(val1, val2 float64, solution map[string]float64) {
	dc.results["SWEEP1"] = append(dc.results["SWEEP1"], val1)
	if len(dc.sweeps) == 2 {
		dc.results["SWEEP2"] = append(dc.results["SWEEP2"], val2)
	}

	// Store node voltages and branch currents
	for name, value := range solution {
		dc.results[name] = append(dc.results[name], value)
	}
}
