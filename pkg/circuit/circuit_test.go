package circuit

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edp1096/soi-spice/pkg/device"
	"github.com/edp1096/soi-spice/pkg/physics"
	"github.com/edp1096/soi-spice/pkg/topology"
)

func soi(t *testing.T, name string, nodes []string, params map[string]float64, ic ...topology.Junction) *device.SOI {
	t.Helper()
	eval, p, _ := physics.NewModel("nch", "nmos", params).Instantiate(name, physics.DefaultGeometry())
	for _, j := range ic {
		p.ICSet[j] = true
	}
	return device.NewSOI(name, nodes, eval, p)
}

func TestSetupNumbersNodesThenBranches(t *testing.T) {
	c := New("numbering")
	c.AddDevice(device.NewDCVoltageSource("vdd", []string{"vdd", "0"}, 1))
	c.AddDevice(soi(t, "m1", []string{"vdd", "g", "gnd", "0"}, map[string]float64{"shmod": 1}, topology.Vds))
	c.AddDevice(device.NewResistor("r1", []string{"g", "0"}, 1e3))
	require.NoError(t, c.Setup())

	nodes := c.GetNodeMap()
	assert.Equal(t, 1, nodes["vdd"])
	assert.Equal(t, 2, nodes["g"])
	assert.Equal(t, 3, nodes["m1#B"])
	assert.Equal(t, 4, nodes["m1#T"])
	assert.Equal(t, 4, c.GetNumNodes())
	assert.NotContains(t, nodes, "0")
	assert.NotContains(t, nodes, "gnd")

	// branch unknowns follow every node unknown
	assert.Equal(t, 5, c.GetBranchMap()["vdd"])
	assert.Equal(t, 6, c.GetBranchMap()["m1"])
	assert.Equal(t, 6, c.Size())

	dev, ok := c.GetDevice("m1")
	require.True(t, ok)
	assert.Equal(t, []int{1, 2, 0, 0, 3, 4, 6}, dev.(*device.SOI).LIDs())
}

func TestSetupLogsCorrections(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	c := New("warn", WithLogger(logger))
	c.AddDevice(soi(t, "m1", []string{"d", "g", "s", "e", "b", "p"}, nil))
	require.NoError(t, c.Setup())

	assert.Contains(t, buf.String(), "parameter corrected")
	assert.Contains(t, buf.String(), "param=rbody")

	var params []string
	for _, w := range c.Warnings() {
		assert.Equal(t, "m1", w.Instance)
		params = append(params, w.Param)
	}
	assert.Contains(t, params, "rbody")
}

func TestSetupReportsConfigurationErrors(t *testing.T) {
	c := New("bad")
	c.AddDevice(soi(t, "m9", []string{"d", "g", "s", "e", "b"}, map[string]float64{"soimod": 2}))

	err := c.Setup()
	var cfg *topology.ConfigurationError
	require.True(t, errors.As(err, &cfg))
	assert.Equal(t, "m9", cfg.Instance)
}

func TestEvaluateBeforeSetup(t *testing.T) {
	c := New("empty")
	assert.ErrorIs(t, c.Evaluate(context.Background(), nil), device.ErrNotSetup)
}

func TestParallelEvaluationMatchesSequential(t *testing.T) {
	build := func(workers int) *Circuit {
		c := New("bank", WithWorkers(workers))
		c.AddDevice(device.NewDCVoltageSource("vdd", []string{"vdd", "0"}, 1.5))
		for _, name := range []string{"m1", "m2", "m3", "m4", "m5", "m6"} {
			c.AddDevice(soi(t, name, []string{"vdd", "vdd", "0", "0"}, map[string]float64{"alpha0": 0.02}))
		}
		require.NoError(t, c.Setup())
		return c
	}

	seq, par := build(1), build(4)
	for i := range seq.Solution {
		seq.Solution[i] = 0.1 * float64(i)
		par.Solution[i] = 0.1 * float64(i)
	}

	for _, c := range []*Circuit{seq, par} {
		require.NoError(t, c.Evaluate(context.Background(), c.Solution))
		require.NoError(t, c.Load())
	}
	assert.Equal(t, seq.System().F, par.System().F)
	assert.Equal(t, seq.System().Fdxp, par.System().Fdxp)
	assert.Equal(t, seq.Limited(), par.Limited())
}

func TestEvaluateStopsOnCancel(t *testing.T) {
	c := New("cancel")
	c.AddDevice(device.NewResistor("r1", []string{"a", "0"}, 1e3))
	require.NoError(t, c.Setup())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.Evaluate(ctx, c.Solution), context.Canceled)
}
