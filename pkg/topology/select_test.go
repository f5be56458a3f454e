package topology

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectBodyModes(t *testing.T) {
	tests := []struct {
		name   string
		opts   Options
		body   BodyMode
		roleB  Role
		roleP  Role
		aliasP Terminal
	}{
		{"floating", Options{ExternalNodes: 4}, BodyFloating, Internal, Absent, B},
		{"internal contact", Options{ExternalNodes: 4, BodyTie: true}, BodyInternalContact, Internal, Internal, None},
		{"fully depleted", Options{ExternalNodes: 4, FullyDepleted: true}, BodyNone, Absent, Absent, None},
		{"fully depleted with tie", Options{ExternalNodes: 4, FullyDepleted: true, BodyTie: true}, BodyNone, Absent, Absent, None},
		{"tied", Options{ExternalNodes: 5}, BodyTied, External, Absent, B},
		{"contact", Options{ExternalNodes: 5, BodyTie: true}, BodyContact, Internal, External, None},
		{"split", Options{ExternalNodes: 6}, BodySplit, External, External, None},
		{"split with tie", Options{ExternalNodes: 6, BodyTie: true}, BodySplit, External, External, None},
		{"external temp floating", Options{ExternalNodes: 5, TempNodeExternal: true}, BodyFloating, Internal, Absent, B},
		{"external temp internal contact", Options{ExternalNodes: 5, TempNodeExternal: true, BodyTie: true}, BodyInternalContact, Internal, Internal, None},
		{"external temp split", Options{ExternalNodes: 7, TempNodeExternal: true}, BodySplit, External, External, None},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			top, err := Select("m1", tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.body, top.Body)
			assert.Equal(t, tt.roleB, top.Role(B))
			assert.Equal(t, tt.roleP, top.Role(P))
			assert.Equal(t, tt.aliasP, top.Alias[P])
			if tt.roleP != Absent {
				assert.Equal(t, P, top.Representative(P))
			}
		})
	}
}

func TestSelectRejectsBadConfigurations(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"too few nodes", Options{ExternalNodes: 3}},
		{"too many nodes", Options{ExternalNodes: 7}},
		{"external temp shifts range", Options{ExternalNodes: 4, TempNodeExternal: true}},
		{"gate mode", Options{ExternalNodes: 4, GateMode: 4}},
		{"negative gate mode", Options{ExternalNodes: 4, GateMode: -1}},
		{"fully depleted with body", Options{ExternalNodes: 5, FullyDepleted: true}},
		{"fully depleted split", Options{ExternalNodes: 6, FullyDepleted: true}},
		{"vbs without body", Options{ExternalNodes: 4, FullyDepleted: true, IC: [NumJunctions]bool{Vbs: true}}},
		{"vps without body", Options{ExternalNodes: 4, FullyDepleted: true, IC: [NumJunctions]bool{Vps: true}}},
		{"vbs and vps on floating body", Options{ExternalNodes: 4, IC: [NumJunctions]bool{Vbs: true, Vps: true}}},
		{"vbs and vps on tied body", Options{ExternalNodes: 5, IC: [NumJunctions]bool{Vbs: true, Vps: true}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Select("m7", tt.opts)
			require.Error(t, err)

			var cfgErr *ConfigurationError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, "m7", cfgErr.Instance)
			assert.Contains(t, err.Error(), "m7")
		})
	}
}

func TestSelectTemperatureNode(t *testing.T) {
	top, err := Select("m1", Options{ExternalNodes: 4})
	require.NoError(t, err)
	assert.Equal(t, Absent, top.Role(T))
	assert.Equal(t, None, top.Representative(T))

	top, err = Select("m1", Options{ExternalNodes: 4, SelfHeating: true})
	require.NoError(t, err)
	assert.Equal(t, Internal, top.Role(T))

	top, err = Select("m1", Options{ExternalNodes: 5, SelfHeating: true, TempNodeExternal: true})
	require.NoError(t, err)
	assert.Equal(t, External, top.Role(T))
	assert.Equal(t, []Terminal{D, G, S, E, T}, top.ExternalTerminals())
}

func TestSelectSeriesResistance(t *testing.T) {
	top, err := Select("m1", Options{
		ExternalNodes:    4,
		DrainResistance:  50,
		DrainSquares:     2,
		SourceResistance: 50,
		SourceSquares:    0,
	})
	require.NoError(t, err)
	assert.Equal(t, Internal, top.Role(DP))
	assert.Equal(t, Absent, top.Role(SP))
	assert.Equal(t, S, top.Representative(SP))
	assert.Equal(t, DP, top.Representative(DP))
}

func TestSelectGateModes(t *testing.T) {
	tests := []struct {
		mode GateMode
		gp   Role
		gm   Role
		repG Terminal
	}{
		{GateNone, Absent, Absent, G},
		{GateResistor, Internal, Absent, GP},
		{GateChannelResistor, Internal, Absent, GP},
		{GateTwoResistor, Internal, Internal, GM},
	}

	for _, tt := range tests {
		top, err := Select("m1", Options{ExternalNodes: 4, GateMode: tt.mode})
		require.NoError(t, err)
		assert.Equal(t, tt.gp, top.Role(GP), "mode %d", tt.mode)
		assert.Equal(t, tt.gm, top.Role(GM), "mode %d", tt.mode)
		assert.Equal(t, tt.repG, top.Representative(GM), "mode %d", tt.mode)
	}
}

func TestInternalCountIncludesBranches(t *testing.T) {
	top, err := Select("m1", Options{
		ExternalNodes: 4,
		SelfHeating:   true,
		GateMode:      GateTwoResistor,
		IC:            [NumJunctions]bool{Vds: true, Vbs: true},
	})
	require.NoError(t, err)

	// B, T, G', Gm plus two branches
	assert.Equal(t, []Terminal{B, T, GP, GM}, top.InternalTerminals())
	assert.Equal(t, []Junction{Vds, Vbs}, top.Branches())
	assert.Equal(t, 6, top.InternalCount())
	assert.Equal(t, 4, top.ExternalCount())
}

func TestSignature(t *testing.T) {
	a, err := Select("a", Options{ExternalNodes: 5, BodyTie: true, SelfHeating: true})
	require.NoError(t, err)
	b, err := Select("b", Options{ExternalNodes: 5, BodyTie: true, SelfHeating: true, IC: [NumJunctions]bool{Vgs: true}})
	require.NoError(t, err)

	assert.NotEqual(t, a.Signature(), b.Signature())
	assert.Equal(t, a.Signature(), b.Signature().Base())
	assert.True(t, b.Signature().IC(Vgs))
	assert.False(t, b.Signature().IC(Vds))

	for term := D; term < NumTerminals; term++ {
		assert.Equal(t, b.Role(term), b.Signature().Role(term), "terminal %s", term)
	}
}

func TestComposeIsDeterministic(t *testing.T) {
	x := Compose(Internal, BodyContact, GateTwoResistor, true, false)
	y := Compose(Internal, BodyContact, GateTwoResistor, true, false)
	assert.Equal(t, x, y)
	assert.Equal(t, "B=int P=ext T=int D'=->D S'=int G'=int Gm=int", x.String())
}

func TestSelectDistinctBodyInitialConditions(t *testing.T) {
	for _, opts := range []Options{
		{ExternalNodes: 4, BodyTie: true},
		{ExternalNodes: 5, BodyTie: true},
		{ExternalNodes: 6},
	} {
		opts.IC = [NumJunctions]bool{Vbs: true, Vps: true}
		top, err := Select("m1", opts)
		require.NoError(t, err, "%d nodes", opts.ExternalNodes)
		assert.Equal(t, []Junction{Vbs, Vps}, top.Branches())
	}

	top, err := Select("m1", Options{ExternalNodes: 4, IC: [NumJunctions]bool{Vps: true}})
	require.NoError(t, err)
	assert.Equal(t, []Junction{Vps}, top.Branches())
	assert.Equal(t, B, top.Representative(P))
}
