package matrix

import (
	"fmt"
	"io"
	"slices"
)

// PrintSystem writes the registered F and Q matrix entries row by row, followed by
// the DAE vectors.
func (s *System) PrintSystem(w io.Writer) {
	fmt.Fprintf(w, "\nDAE system (%dx%d, %s convention, %d entries):\n", s.Size, s.Size, s.Conv, s.Handles())
	fmt.Fprintln(w, "Node equations 1..n, followed by branch equations")

	rows := make(map[int][]int)
	for key := range s.index {
		rows[key[0]] = append(rows[key[0]], key[1])
	}

	for i := 1; i <= s.Size; i++ {
		cols := rows[i]
		slices.Sort(cols)

		fmt.Fprintf(w, "Equation %d:", i)
		for _, j := range cols {
			h := s.index[[2]int{i, j}]
			f, q := s.FValue(h), s.QValue(h)
			if f == 0 && q == 0 {
				continue
			}
			fmt.Fprintf(w, "  %+g*x%d", f, j)
			if q != 0 {
				fmt.Fprintf(w, " (%+g*dx%d/dt)", q, j)
			}
		}
		fmt.Fprintf(w, "  | F=%g Q=%g Fdxp=%g Qdxp=%g B=%g\n", s.F[i], s.Q[i], s.Fdxp[i], s.Qdxp[i], s.B[i])
	}
}

// Density is the percentage of registered entries in the full matrix.
func (s *System) Density() float64 {
	return float64(s.Handles()) * 100 / float64(s.Size*s.Size)
}
