package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/edp1096/soi-spice/pkg/util"
)

func splitNames(results map[string][]float64, skip ...string) (voltages, currents []string) {
outer:
	for name := range results {
		for _, s := range skip {
			if name == s {
				continue outer
			}
		}
		if strings.HasPrefix(name, "V(") {
			voltages = append(voltages, name)
		} else if strings.HasPrefix(name, "I(") {
			currents = append(currents, name)
		}
	}
	sort.Strings(voltages)
	sort.Strings(currents)
	return voltages, currents
}

func printRow(w io.Writer, results map[string][]float64, voltages, currents []string, i int) {
	for _, name := range voltages {
		fmt.Fprintf(w, "%s=%s  ", name, util.FormatValueFactor(results[name][i], "V"))
	}
	for _, name := range currents {
		fmt.Fprintf(w, "%s=%s  ", name, util.FormatValueFactor(results[name][i], "A"))
	}
	fmt.Fprintln(w)
}

func printResults(w io.Writer, results map[string][]float64) {
	fmt.Fprintln(w, "\nAnalysis Results:")
	fmt.Fprintln(w, "================")

	// DC Sweep
	if sweep1, isDC := results["SWEEP1"]; isDC {
		fmt.Fprintf(w, "\nDC Sweep Analysis Results (%d points):\n", len(sweep1))
		fmt.Fprintln(w, "Sweep Values    Node Voltages        Branch Currents")
		fmt.Fprintln(w, "------------------------------------------------")

		voltages, currents := splitNames(results, "SWEEP1", "SWEEP2")
		sweep2, hasNested := results["SWEEP2"]
		for i := range sweep1 {
			if hasNested {
				fmt.Fprintf(w, "V1=%-9s V2=%-9s  ",
					util.FormatValueFactor(sweep1[i], "V"),
					util.FormatValueFactor(sweep2[i], "V"))
			} else {
				fmt.Fprintf(w, "V=%-9s  ", util.FormatValueFactor(sweep1[i], "V"))
			}
			printRow(w, results, voltages, currents, i)
		}
		return
	}

	voltages, currents := splitNames(results, "TIME")

	// Operating point
	if len(results["TIME"]) <= 1 {
		fmt.Fprintln(w, "\nNode Voltages:")
		for _, name := range voltages {
			fmt.Fprintf(w, "%s = %s\n", name, util.FormatValueFactor(results[name][0], "V"))
		}
		fmt.Fprintln(w, "\nBranch Currents:")
		for _, name := range currents {
			fmt.Fprintf(w, "%s = %s\n", name, util.FormatValueFactor(results[name][0], "A"))
		}
		return
	}

	// Transient
	times := results["TIME"]
	fmt.Fprintf(w, "\nTransient Analysis Results (%d time points):\n", len(times))
	fmt.Fprintln(w, "Time        Node Voltages        Branch Currents")
	fmt.Fprintln(w, "------------------------------------------------")
	for i, t := range times {
		fmt.Fprintf(w, "%9s  ", util.FormatValueFactor(t, "s"))
		printRow(w, results, voltages, currents, i)
	}
}

// printMetrics dumps the solver counters of the default registry.
func printMetrics(w io.Writer) error {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}

	fmt.Fprintln(w, "\nSolver Metrics:")
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "soisim_") {
			continue
		}
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			switch {
			case m.GetCounter() != nil:
				fmt.Fprintf(w, "%s{%s} %g\n", mf.GetName(), strings.Join(labels, ","), m.GetCounter().GetValue())
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				fmt.Fprintf(w, "%s{%s} count %d sum %gs\n", mf.GetName(), strings.Join(labels, ","), h.GetSampleCount(), h.GetSampleSum())
			}
		}
	}
	return nil
}
