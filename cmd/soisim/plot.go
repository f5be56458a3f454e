package main

import (
	"fmt"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// plotSweep draws the named traces of a single sweep against SWEEP1. With no
// traces every node voltage is drawn.
func plotSweep(path, title string, results map[string][]float64, traces []string) error {
	sweep, ok := results["SWEEP1"]
	if !ok {
		return fmt.Errorf("no sweep results to plot")
	}
	if _, nested := results["SWEEP2"]; nested {
		return fmt.Errorf("plotting nested sweeps is not supported")
	}
	if len(traces) == 0 {
		traces, _ = splitNames(results, "SWEEP1")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "sweep"
	p.Add(plotter.NewGrid())

	unit := ""
	for i, name := range traces {
		values, ok := results[name]
		if !ok {
			return fmt.Errorf("unknown trace %s", name)
		}
		pts := make(plotter.XYs, len(sweep))
		for k := range sweep {
			pts[k].X = sweep[k]
			pts[k].Y = values[k]
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("trace %s: %w", name, err)
		}
		line.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(name, line)

		switch {
		case strings.HasPrefix(name, "V(") && unit != "A":
			unit = "V"
		case strings.HasPrefix(name, "I("):
			unit = "A"
		}
	}
	p.Y.Label.Text = unit

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("saving plot: %w", err)
	}
	return nil
}
