package stamp

import (
	"slices"

	"github.com/edp1096/soi-spice/pkg/topology"
)

// Stamp is a compressed-row sparsity pattern: Stamp[row] lists, in ascending order,
// the columns of row that may hold a non-zero.
type Stamp [][]int

// maximal is the pattern of the device with every optional terminal present and unmerged,
// in Terminal numbering.
var maximal = Stamp{
	topology.D:  cols(topology.D, topology.DP),
	topology.G:  cols(topology.G, topology.GM),
	topology.S:  cols(topology.S, topology.SP),
	topology.E:  cols(topology.E, topology.B, topology.T, topology.DP, topology.SP, topology.GP),
	topology.B:  cols(topology.E, topology.B, topology.P, topology.T, topology.DP, topology.SP, topology.GP),
	topology.P:  cols(topology.B, topology.P),
	topology.T:  cols(topology.E, topology.B, topology.T, topology.DP, topology.SP, topology.GP),
	topology.DP: cols(topology.D, topology.E, topology.B, topology.T, topology.DP, topology.SP, topology.GP),
	topology.SP: cols(topology.S, topology.E, topology.B, topology.T, topology.DP, topology.SP, topology.GP),
	topology.GP: cols(topology.E, topology.B, topology.T, topology.DP, topology.SP, topology.GP, topology.GM),
	topology.GM: cols(topology.G, topology.GP, topology.GM),
}

func cols(terms ...topology.Terminal) []int {
	c := make([]int, len(terms))
	for i, t := range terms {
		c[i] = int(t)
	}
	return c
}

// Maximal returns a copy of the maximal pattern.
func Maximal() Stamp { return maximal.Clone() }

func (s Stamp) Clone() Stamp {
	c := make(Stamp, len(s))
	for i, row := range s {
		c[i] = slices.Clone(row)
	}
	return c
}

// NonZeros counts the entries of the pattern.
func (s Stamp) NonZeros() int {
	n := 0
	for _, row := range s {
		n += len(row)
	}
	return n
}

// Position returns the index of col within row, or -1.
func (s Stamp) Position(row, col int) int {
	if row < 0 || row >= len(s) {
		return -1
	}
	if pos, ok := slices.BinarySearch(s[row], col); ok {
		return pos
	}
	return -1
}

// MaximalPosition returns the position of col within row of the maximal pattern, or -1.
func MaximalPosition(row, col topology.Terminal) int {
	return maximal.Position(int(row), int(col))
}

// Has reports whether (row, col) is part of the pattern.
func (s Stamp) Has(row, col int) bool { return s.Position(row, col) >= 0 }
