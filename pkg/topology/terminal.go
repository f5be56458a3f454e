package topology

import "fmt"

// Role of a logical terminal in a derived topology.
type Role uint8

const (
	Absent Role = iota
	Internal
	External
)

func (r Role) String() string {
	switch r {
	case Absent:
		return "-"
	case Internal:
		return "int"
	case External:
		return "ext"
	}
	return fmt.Sprintf("Role(%d)", uint8(r))
}

// Terminal numbers the logical terminals in maximal stamp order.
type Terminal int

const (
	None Terminal = iota - 1
	D
	G
	S
	E
	B
	P
	T
	DP
	SP
	GP
	GM
	NumTerminals
)

// FirstOptional is the first terminal whose role depends on configuration.
const FirstOptional = B

var terminalNames = [NumTerminals]string{"D", "G", "S", "E", "B", "P", "T", "D'", "S'", "G'", "Gm"}

func (t Terminal) String() string {
	if t < 0 || t >= NumTerminals {
		return "none"
	}
	return terminalNames[t]
}

// Junction identifies a controlling voltage that can carry an initial condition.
type Junction int

const (
	Vds Junction = iota
	Vgs
	Vbs
	Ves
	Vps
	NumJunctions
)

var junctionTerminals = [NumJunctions][2]Terminal{
	Vds: {DP, SP},
	Vgs: {GP, SP},
	Vbs: {B, SP},
	Ves: {E, SP},
	Vps: {P, SP},
}

var junctionNames = [NumJunctions]string{"vds", "vgs", "vbs", "ves", "vps"}

// Terminals returns the positive and negative terminal the junction voltage is taken across.
func (j Junction) Terminals() (Terminal, Terminal) {
	pair := junctionTerminals[j]
	return pair[0], pair[1]
}

func (j Junction) String() string {
	if j < 0 || j >= NumJunctions {
		return fmt.Sprintf("Junction(%d)", int(j))
	}
	return junctionNames[j]
}

// ParseJunction maps an initial-condition name (vds, vgs, ...) to its junction.
func ParseJunction(name string) (Junction, bool) {
	for j, n := range junctionNames {
		if n == name {
			return Junction(j), true
		}
	}
	return 0, false
}
