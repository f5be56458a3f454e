package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/edp1096/soi-spice/pkg/analysis"
	"github.com/edp1096/soi-spice/pkg/circuit"
	"github.com/edp1096/soi-spice/pkg/netlist"
	"github.com/edp1096/soi-spice/pkg/stamp"
	"github.com/edp1096/soi-spice/pkg/topology"
)

var (
	rootCmd = &cobra.Command{
		Use:   "soisim",
		Short: "Simulate circuits with SOI transistors",
		Long:  `soisim reads a YAML deck, builds the circuit and runs an operating point, DC sweep or transient analysis.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(logLevel)
		},
		SilenceUsage: true,
	}
	logLevel    string
	convention  string
	workers     int
	showMetrics bool
	printSystem bool

	runCmd = &cobra.Command{
		Use:   "run [deck]",
		Short: "Run the analysis named in the deck",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeck(cmd.Context(), args[0], "")
		},
	}
	opCmd = &cobra.Command{
		Use:   "op [deck]",
		Short: "Solve the DC operating point",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeck(cmd.Context(), args[0], "op")
		},
	}
	dcCmd = &cobra.Command{
		Use:   "dc [deck]",
		Short: "Sweep a source and solve each point",
		Long:  `Runs the sweeps of the deck's analysis block, or the one given with --source.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeck(cmd.Context(), args[0], "dc")
		},
	}
	sweepSource string
	sweepRange  []string
	plotFile    string
	plotTraces  []string

	tranCmd = &cobra.Command{
		Use:   "tran [deck]",
		Short: "Run a fixed-step transient analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeck(cmd.Context(), args[0], "tran")
		},
	}
	tranStep string
	tranStop string
	tranUIC  bool

	stampsCmd = &cobra.Command{
		Use:   "stamps",
		Short: "Print the stamp catalogue or one variant",
		Args:  cobra.NoArgs,
		RunE:  runStamps,
	}
	signature string

	topologyCmd = &cobra.Command{
		Use:   "topology",
		Short: "Print the topology and stamp selected for an instance configuration",
		Args:  cobra.NoArgs,
		RunE:  runTopology,
	}
	topoOpts topology.Options
	topoGate int
	topoIC   []string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&convention, "convention", "", "override the deck's DAE convention: new or old")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0, "devices evaluated concurrently, 0 uses the deck or GOMAXPROCS")
	rootCmd.PersistentFlags().BoolVar(&showMetrics, "metrics", false, "print solver counters after the analysis")
	rootCmd.PersistentFlags().BoolVar(&printSystem, "print-system", false, "print the loaded DAE system after the analysis")

	dcCmd.Flags().StringVar(&sweepSource, "source", "", "source to sweep instead of the deck's sweeps")
	dcCmd.Flags().StringSliceVar(&sweepRange, "range", nil, "start,stop,step of the --source sweep")
	dcCmd.Flags().StringVar(&plotFile, "plot", "", "write the sweep to a PNG file")
	dcCmd.Flags().StringSliceVar(&plotTraces, "trace", nil, "results to plot, e.g. I(vdd); default all currents")

	tranCmd.Flags().StringVar(&tranStep, "tstep", "", "time step, overrides the deck")
	tranCmd.Flags().StringVar(&tranStop, "tstop", "", "stop time, overrides the deck")
	tranCmd.Flags().BoolVar(&tranUIC, "uic", false, "hold device initial conditions in the initial solve")

	stampsCmd.Flags().StringVar(&signature, "signature", "", "print the variant with this signature")

	f := topologyCmd.Flags()
	f.IntVar(&topoOpts.ExternalNodes, "nodes", 4, "external node count")
	f.BoolVar(&topoOpts.SelfHeating, "self-heating", false, "enable self-heating")
	f.BoolVar(&topoOpts.TempNodeExternal, "temp-node", false, "last external node is the temperature node")
	f.IntVar(&topoGate, "gate-mode", 0, "gate resistance network 0..3")
	f.BoolVar(&topoOpts.BodyTie, "body-tie", false, "nonzero body-tie resistance")
	f.BoolVar(&topoOpts.FullyDepleted, "fd", false, "fully depleted device")
	f.Float64Var(&topoOpts.DrainResistance, "rsh", 0, "source/drain sheet resistance")
	f.Float64Var(&topoOpts.DrainSquares, "nrd", 1, "drain squares")
	f.Float64Var(&topoOpts.SourceSquares, "nrs", 1, "source squares")
	f.StringSliceVar(&topoIC, "ic", nil, "junctions with initial conditions: vds, vgs, vbs, ves, vps")

	rootCmd.AddCommand(runCmd, opCmd, dcCmd, tranCmd, stampsCmd, topologyCmd)
}

func setupLogging(level string) error {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
	return nil
}

func parseRange(vals []string) (start, stop, step float64, err error) {
	if len(vals) != 3 {
		return 0, 0, 0, fmt.Errorf("--range needs start,stop,step")
	}
	var out [3]float64
	for i, v := range vals {
		if out[i], err = netlist.ParseValue(v); err != nil {
			return 0, 0, 0, err
		}
	}
	return out[0], out[1], out[2], nil
}

// applyOverrides folds command line flags into the deck.
func applyOverrides(deck *netlist.Deck, kind string) error {
	if convention != "" {
		deck.Options.Convention = convention
	}
	if workers > 0 {
		deck.Options.Workers = workers
	}
	if kind == "" {
		return nil
	}
	deck.Analysis.Type = kind

	switch kind {
	case "dc":
		if sweepSource != "" {
			start, stop, step, err := parseRange(sweepRange)
			if err != nil {
				return err
			}
			deck.Analysis.Sweeps = []netlist.SweepCard{{
				Source: sweepSource,
				Start:  netlist.Value(start),
				Stop:   netlist.Value(stop),
				Step:   netlist.Value(step),
			}}
		}
	case "tran":
		if tranStep != "" {
			v, err := netlist.ParseValue(tranStep)
			if err != nil {
				return err
			}
			deck.Analysis.TStep = netlist.Value(v)
		}
		if tranStop != "" {
			v, err := netlist.ParseValue(tranStop)
			if err != nil {
				return err
			}
			deck.Analysis.TStop = netlist.Value(v)
		}
		if tranUIC {
			deck.Analysis.UIC = true
		}
	}
	return deck.Validate()
}

func runDeck(ctx context.Context, path, kind string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	deck, err := netlist.Load(path)
	if err != nil {
		return err
	}
	if err := applyOverrides(deck, kind); err != nil {
		return err
	}

	ckt, err := netlist.Build(deck, circuit.WithLogger(slog.Default()))
	if err != nil {
		return err
	}
	a, err := netlist.NewAnalysis(deck)
	if err != nil {
		return err
	}
	if err := a.Setup(ckt); err != nil {
		return err
	}

	slog.Info("running analysis",
		"title", deck.Title,
		"analysis", deck.Analysis.Type,
		"unknowns", ckt.Size(),
		"convention", ckt.Convention().String(),
	)
	if err := a.Execute(ctx); err != nil {
		return err
	}

	results := a.GetResults()
	printResults(os.Stdout, results)

	if _, isDC := a.(*analysis.DCSweep); isDC && plotFile != "" {
		if err := plotSweep(plotFile, deck.Title, results, plotTraces); err != nil {
			return err
		}
		slog.Info("plot written", "file", plotFile)
	}
	if printSystem {
		sys := ckt.System()
		sys.PrintSystem(os.Stdout)
		fmt.Printf("density %.2f%%\n", sys.Density())
	}
	if showMetrics {
		return printMetrics(os.Stdout)
	}
	return nil
}

func runStamps(cmd *cobra.Command, args []string) error {
	table := stamp.Build()
	out := cmd.OutOrStdout()

	if signature != "" {
		sig, err := strconv.ParseUint(signature, 0, 32)
		if err != nil {
			return fmt.Errorf("invalid signature %q: %w", signature, err)
		}
		v, err := table.Lookup(topology.Signature(sig))
		if err != nil {
			return err
		}
		v.Fprint(out)
		return nil
	}

	fmt.Fprintf(out, "%d variants\n", table.Len())
	for i, v := range table.Variants() {
		fmt.Fprintf(out, "%3d %s size %2d nnz %3d  %s\n", i, v.Signature, v.Size(), v.Stamp.NonZeros(), v.Topology)
	}
	return nil
}

func runTopology(cmd *cobra.Command, args []string) error {
	opts := topoOpts
	opts.GateMode = topology.GateMode(topoGate)
	opts.SourceResistance = opts.DrainResistance
	for _, name := range topoIC {
		j, ok := topology.ParseJunction(strings.ToLower(strings.TrimSpace(name)))
		if !ok {
			return fmt.Errorf("unknown junction %q", name)
		}
		opts.IC[j] = true
	}

	top, err := topology.Select("cli", opts)
	if err != nil {
		return err
	}
	v, err := stamp.Build().Variant(top)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "body %s, gate mode %d\n", top.Body, top.Gate)
	fmt.Fprintf(out, "external %v, internal unknowns %d\n", top.ExternalTerminals(), top.InternalCount())
	v.Fprint(out)
	return nil
}
