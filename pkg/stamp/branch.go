package stamp

import (
	"slices"

	"github.com/edp1096/soi-spice/pkg/topology"
)

// Extend returns a copy of the base variant with one unknown appended per
// initial-condition branch of top. A branch row couples its two junction terminals and
// itself; each of the two terminal rows gains the branch column.
func (v *Variant) Extend(top topology.Topology) *Variant {
	ext := &Variant{
		Signature: top.Signature(),
		Topology:  top,
		Stamp:     v.Stamp.Clone(),
		Order:     slices.Clone(v.Order),
		Branches:  top.Branches(),
		RowMap:    slices.Clone(v.RowMap),
		ColMap:    v.ColMap,
	}

	for k, j := range ext.Branches {
		br := len(ext.Order) + k
		a, b := j.Terminals()
		ra, rb := v.RowMap[top.Representative(a)], v.RowMap[top.Representative(b)]

		row := []int{ra, rb}
		if ra == rb {
			row = row[:1]
		}
		row = append(row, br)
		slices.Sort(row)
		ext.Stamp = append(ext.Stamp, row)

		for _, r := range row[:len(row)-1] {
			ext.Stamp[r] = append(ext.Stamp[r], br)
		}
	}

	return ext
}
