package topology

import "fmt"

// Signature packs the roles of the optional terminals (2 bits each, from B upwards)
// and the initial-condition branch mask (bits 16-20) into one key.
type Signature uint32

const icShift = 16

func (t Topology) Signature() Signature {
	var sig Signature
	for term := FirstOptional; term < NumTerminals; term++ {
		sig |= Signature(t.Roles[term]) << (2 * uint(term-FirstOptional))
	}
	for j, on := range t.IC {
		if on {
			sig |= 1 << (icShift + uint(j))
		}
	}
	return sig
}

// Base strips the initial-condition mask.
func (s Signature) Base() Signature { return s & (1<<icShift - 1) }

// IC reports whether the junction carries an initial-condition branch.
func (s Signature) IC(j Junction) bool { return s&(1<<(icShift+uint(j))) != 0 }

// Role decodes the role of an optional terminal.
func (s Signature) Role(term Terminal) Role {
	if term < FirstOptional {
		return External
	}
	return Role(s >> (2 * uint(term-FirstOptional)) & 3)
}

func (s Signature) String() string { return fmt.Sprintf("%#07x", uint32(s)) }
