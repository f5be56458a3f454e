package stamp

import (
	"fmt"
	"io"

	"github.com/edp1096/soi-spice/pkg/topology"
)

func (v *Variant) rowName(r int) string {
	if r < len(v.Order) {
		return v.Order[r].String()
	}
	return "ic:" + v.Branches[r-len(v.Order)].String()
}

// Fprint writes the derived pattern and the maximal-to-derived maps.
func (v *Variant) Fprint(w io.Writer) {
	fmt.Fprintf(w, "signature %s  %s\n", v.Signature, v.Topology)
	fmt.Fprintf(w, "size %d, non-zeros %d\n", v.Size(), v.Stamp.NonZeros())

	for r, row := range v.Stamp {
		fmt.Fprintf(w, "  %2d %-7s:", r, v.rowName(r))
		for _, c := range row {
			fmt.Fprintf(w, " %s", v.rowName(c))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "maximal row -> derived row [positions]")
	for r := range maximal {
		fmt.Fprintf(w, "  %-3s -> %2d %v\n", topology.Terminal(r), v.RowMap[r], v.ColMap[r])
	}
}
