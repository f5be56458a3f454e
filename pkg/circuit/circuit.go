package circuit

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/edp1096/soi-spice/pkg/device"
	"github.com/edp1096/soi-spice/pkg/matrix"
	"github.com/edp1096/soi-spice/pkg/stamp"
)

// topologyDevice is a device that selects its topology during setup.
type topologyDevice interface {
	Setup(table *stamp.Table) ([]device.ParameterWarning, error)
}

type internalNamer interface {
	InternalNames() []string
}

type Circuit struct {
	name      string
	nodeMap   map[string]int
	nodeNames []string // 1-based, index 0 is ground
	branchMap map[string]int
	devices   []device.Device
	numNodes  int
	size      int

	table   *stamp.Table
	sys     *matrix.System
	conv    matrix.Convention
	workers int
	logger  *slog.Logger

	warnings []device.ParameterWarning

	Status   *device.CircuitStatus
	Solution []float64 // 1-based
}

type Option func(*Circuit)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Circuit) { c.logger = logger }
}

// WithWorkers bounds the number of devices evaluated concurrently; 1 evaluates in
// sequence.
func WithWorkers(n int) Option {
	return func(c *Circuit) { c.workers = n }
}

func WithConvention(conv matrix.Convention) Option {
	return func(c *Circuit) { c.conv = conv }
}

// WithTable shares a prebuilt stamp catalogue between circuits.
func WithTable(table *stamp.Table) Option {
	return func(c *Circuit) { c.table = table }
}

func New(name string, opts ...Option) *Circuit {
	c := &Circuit{
		name:      name,
		nodeMap:   make(map[string]int),
		nodeNames: []string{"0"},
		branchMap: make(map[string]int),
		workers:   runtime.GOMAXPROCS(0),
		logger:    slog.Default(),
		Status:    &device.CircuitStatus{Temp: 300.15},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func isGround(name string) bool {
	return name == "0" || name == "gnd"
}

func (c *Circuit) AddDevice(dev device.Device) {
	c.devices = append(c.devices, dev)
}

func (c *Circuit) addNode(name string) int {
	if idx, ok := c.nodeMap[name]; ok {
		return idx
	}
	c.nodeNames = append(c.nodeNames, name)
	idx := len(c.nodeNames) - 1
	c.nodeMap[name] = idx
	return idx
}

// Setup numbers the nodes, selects device topologies, allocates internal unknowns and
// registers every matrix handle. Node unknowns come first, branch currents last.
func (c *Circuit) Setup() error {
	if c.table == nil {
		c.table = stamp.Build()
		c.logger.Debug("stamp catalogue built", "variants", c.table.Len())
	}

	for _, dev := range c.devices {
		names := dev.GetNodeNames()
		nodes := make([]int, len(names))
		for i, name := range names {
			if isGround(name) {
				continue
			}
			nodes[i] = c.addNode(name)
		}
		dev.SetNodes(nodes)
	}

	for _, dev := range c.devices {
		td, ok := dev.(topologyDevice)
		if !ok {
			continue
		}
		warnings, err := td.Setup(c.table)
		if err != nil {
			return fmt.Errorf("setting up %s: %w", dev.GetName(), err)
		}
		c.Warn(warnings)
	}

	// internal node unknowns follow the external nodes
	internal := make([][]int, len(c.devices))
	for i, dev := range c.devices {
		n := dev.InternalCount() - branchCount(dev)
		var names []string
		if in, ok := dev.(internalNamer); ok {
			names = in.InternalNames()
		}
		for k := range n {
			label := fmt.Sprintf("%d", k)
			if k < len(names) {
				label = names[k]
			}
			internal[i] = append(internal[i], c.addNode(dev.GetName()+"#"+label))
		}
	}
	c.numNodes = len(c.nodeNames) - 1

	next := c.numNodes + 1
	for i, dev := range c.devices {
		for range branchCount(dev) {
			if _, ok := c.branchMap[dev.GetName()]; !ok {
				c.branchMap[dev.GetName()] = next
			}
			internal[i] = append(internal[i], next)
			next++
		}
		if err := dev.SetInternal(internal[i]); err != nil {
			return fmt.Errorf("setting up %s: %w", dev.GetName(), err)
		}
	}
	c.size = next - 1

	sys, err := matrix.NewSystem(c.size, c.numNodes, c.conv)
	if err != nil {
		return fmt.Errorf("creating system for %s: %w", c.name, err)
	}
	c.sys = sys
	for _, dev := range c.devices {
		dev.RegisterHandles(sys)
	}
	c.Solution = make([]float64, c.size+1)

	c.logger.Debug("circuit set up",
		"circuit", c.name,
		"nodes", c.numNodes,
		"unknowns", c.size,
		"handles", sys.Handles(),
		"convention", c.conv.String(),
	)
	return nil
}

func branchCount(dev device.Device) int {
	if b, ok := dev.(device.Brancher); ok {
		return b.BranchCount()
	}
	return 0
}

// Warn logs parameter warnings and keeps them for Warnings.
func (c *Circuit) Warn(warnings []device.ParameterWarning) {
	c.warnings = append(c.warnings, warnings...)
	for _, w := range warnings {
		if w.Corrected {
			c.logger.Warn("parameter corrected",
				"instance", w.Instance, "param", w.Param, "value", w.Value, "reason", w.Reason, "using", w.NewValue)
			continue
		}
		c.logger.Warn("parameter out of range",
			"instance", w.Instance, "param", w.Param, "value", w.Value, "reason", w.Reason)
	}
}

// Warnings returns every parameter warning raised since the circuit was created.
func (c *Circuit) Warnings() []device.ParameterWarning {
	return c.warnings
}

// Evaluate runs every device against the proposed solution x. Devices only write their
// own state, so they are evaluated concurrently.
func (c *Circuit) Evaluate(ctx context.Context, x []float64) error {
	if c.sys == nil {
		return fmt.Errorf("circuit %s: %w", c.name, device.ErrNotSetup)
	}

	g, gCtx := errgroup.WithContext(ctx)
	if c.workers > 0 {
		g.SetLimit(c.workers)
	}
	for _, dev := range c.devices {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			if err := dev.Evaluate(c.Status, x); err != nil {
				return fmt.Errorf("evaluating %s: %w", dev.GetName(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Load clears the system and scatters every device's contributions into it. Devices
// share nodes, so loading is sequential.
func (c *Circuit) Load() error {
	c.sys.Clear()
	l := device.Loader{M: c.sys, Conv: c.conv, Alpha: c.Status.Alpha}
	for _, dev := range c.devices {
		if err := dev.Load(l); err != nil {
			return fmt.Errorf("loading %s: %w", dev.GetName(), err)
		}
	}
	return nil
}

// Limited reports whether any device censored the last evaluation.
func (c *Circuit) Limited() bool {
	for _, dev := range c.devices {
		if l, ok := dev.(device.Limiter); ok && l.Limited() {
			return true
		}
	}
	return false
}

// Crosses reports whether any source waveform has a corner in (from, to].
func (c *Circuit) Crosses(from, to float64) bool {
	for _, dev := range c.devices {
		if b, ok := dev.(device.Breakpointer); ok && b.Crosses(from, to) {
			return true
		}
	}
	return false
}

// Accept commits the last evaluated iterate of every device.
func (c *Circuit) Accept() {
	for _, dev := range c.devices {
		if a, ok := dev.(device.Accepter); ok {
			a.Accept()
		}
	}
}

func (c *Circuit) System() *matrix.System { return c.sys }

func (c *Circuit) Convention() matrix.Convention { return c.conv }

func (c *Circuit) GetNodeMap() map[string]int {
	return c.nodeMap
}

func (c *Circuit) GetBranchMap() map[string]int {
	return c.branchMap
}

func (c *Circuit) GetDevices() []device.Device {
	return c.devices
}

func (c *Circuit) GetDevice(name string) (device.Device, bool) {
	for _, dev := range c.devices {
		if dev.GetName() == name {
			return dev, true
		}
	}
	return nil, false
}

func (c *Circuit) Logger() *slog.Logger { return c.logger }

func (c *Circuit) Name() string {
	return c.name
}

func (c *Circuit) GetNumNodes() int {
	return c.numNodes
}

// Size is the number of unknowns.
func (c *Circuit) Size() int {
	return c.size
}

func (c *Circuit) GetNodeVoltage(nodeIdx int) float64 {
	if nodeIdx <= 0 || nodeIdx >= len(c.Solution) {
		return 0
	}
	return c.Solution[nodeIdx]
}

// GetSolution names the current solution: node voltages, source currents and
// resistor currents.
func (c *Circuit) GetSolution() map[string]float64 {
	solution := make(map[string]float64)

	for name, idx := range c.nodeMap {
		solution[fmt.Sprintf("V(%s)", name)] = c.Solution[idx]
	}

	for _, dev := range c.devices {
		switch d := dev.(type) {
		case *device.VoltageSource:
			solution[fmt.Sprintf("I(%s)", d.GetName())] = -c.Solution[d.BranchIndex()]
		case *device.Resistor:
			solution[fmt.Sprintf("I(%s)", d.GetName())] = d.Current()
		}
	}

	return solution
}
