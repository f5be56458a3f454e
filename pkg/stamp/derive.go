package stamp

import (
	"github.com/edp1096/soi-spice/pkg/topology"
)

// Variant is the derived pattern of one topology together with the maps that relate
// it back to the maximal pattern. Variants are shared read-only between instances.
type Variant struct {
	Signature topology.Signature
	Topology  topology.Topology
	Stamp     Stamp

	// Order lists the terminal carried by each derived node row. Branch rows follow
	// the node rows and are listed in Branches.
	Order    []topology.Terminal
	Branches []topology.Junction

	// RowMap[maxRow] is the derived row of a maximal row, or -1 when eliminated.
	RowMap []int
	// ColMap[maxRow][maxPos] is the derived position of a maximal entry, or -1.
	ColMap [][]int
}

// Derive reduces the maximal pattern for top: eliminated terminals lose their row and
// column, merged terminals fold into their representative, and the surviving terminals
// are renumbered externals first. Initial-condition branches of top are ignored;
// see Extend.
func Derive(top topology.Topology) *Variant {
	top = top.WithoutIC()
	v := &Variant{
		Signature: top.Signature(),
		Topology:  top,
	}

	index := make([]int, topology.NumTerminals)
	for i := range index {
		index[i] = -1
	}
	v.Order = append(top.ExternalTerminals(), top.InternalTerminals()...)
	for i, term := range v.Order {
		index[term] = i
	}

	v.RowMap = make([]int, topology.NumTerminals)
	for term := topology.D; term < topology.NumTerminals; term++ {
		v.RowMap[term] = -1
		if rep := top.Representative(term); rep != topology.None {
			v.RowMap[term] = index[rep]
		}
	}

	n := len(v.Order)
	fill := make([][]bool, n)
	for i := range fill {
		fill[i] = make([]bool, n)
	}
	for r, row := range maximal {
		dr := v.RowMap[r]
		if dr < 0 {
			continue
		}
		for _, c := range row {
			if dc := v.RowMap[c]; dc >= 0 {
				fill[dr][dc] = true
			}
		}
	}

	v.Stamp = make(Stamp, n)
	for r := range fill {
		for c, on := range fill[r] {
			if on {
				v.Stamp[r] = append(v.Stamp[r], c)
			}
		}
	}

	v.ColMap = make([][]int, len(maximal))
	for r, row := range maximal {
		v.ColMap[r] = make([]int, len(row))
		for pos, c := range row {
			v.ColMap[r][pos] = v.Stamp.Position(v.RowMap[r], v.RowMap[c])
		}
	}

	return v
}

// Size is the number of derived rows, node and branch rows together.
func (v *Variant) Size() int { return len(v.Stamp) }

// NodeCount is the number of derived node rows.
func (v *Variant) NodeCount() int { return len(v.Order) }

// Row returns the derived row of a terminal, -1 when eliminated.
func (v *Variant) Row(term topology.Terminal) int { return v.RowMap[term] }

// BranchRow returns the derived row of an initial-condition branch, or -1.
func (v *Variant) BranchRow(j topology.Junction) int {
	for k, b := range v.Branches {
		if b == j {
			return len(v.Order) + k
		}
	}
	return -1
}

// Offset translates a maximal (row, position) pair into a derived position.
func (v *Variant) Offset(maxRow, maxPos int) int {
	if maxRow < 0 || maxRow >= len(v.ColMap) || maxPos < 0 || maxPos >= len(v.ColMap[maxRow]) {
		return -1
	}
	return v.ColMap[maxRow][maxPos]
}
