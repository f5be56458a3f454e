package main

import (
	"bytes"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edp1096/soi-spice/pkg/netlist"
	"github.com/edp1096/soi-spice/pkg/stamp"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestStampsCommand(t *testing.T) {
	out, err := execute(t, "stamps", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, fmt.Sprintf("%d variants", stamp.CatalogueSize))
}

func TestStampsBadSignature(t *testing.T) {
	_, err := execute(t, "stamps", "--signature", "zz")
	require.Error(t, err)
	signature = ""
}

func TestTopologyCommand(t *testing.T) {
	out, err := execute(t, "topology", "--nodes", "4", "--self-heating", "--ic", "vbs")
	require.NoError(t, err)
	assert.Contains(t, out, "body floating")
	assert.Contains(t, out, "ic=vbs")
	assert.Contains(t, out, "non-zeros")

	topoIC = nil
	topoOpts.SelfHeating = false
}

func TestTopologyRejectsBadNodes(t *testing.T) {
	_, err := execute(t, "topology", "--nodes", "9")
	require.Error(t, err)
	topoOpts.ExternalNodes = 4
}

func TestBadLogLevel(t *testing.T) {
	_, err := execute(t, "stamps", "--log-level", "loud")
	require.Error(t, err)
	logLevel = "info"
}

func TestApplyOverrides(t *testing.T) {
	deck, err := netlist.Load(filepath.Join("..", "..", "examples", "decks", "inverter_dc.yaml"))
	require.NoError(t, err)

	sweepSource, sweepRange = "vin", []string{"0", "1", "0.25"}
	tranStep, tranStop = "", ""
	convention = "old"
	defer func() {
		sweepSource, sweepRange, convention = "", nil, ""
	}()

	require.NoError(t, applyOverrides(deck, "dc"))
	assert.Equal(t, "dc", deck.Analysis.Type)
	assert.Equal(t, "old", deck.Options.Convention)
	require.Len(t, deck.Analysis.Sweeps, 1)
	assert.Equal(t, netlist.Value(0.25), deck.Analysis.Sweeps[0].Step)

	sweepRange = []string{"0", "1"}
	assert.Error(t, applyOverrides(deck, "dc"))
}
