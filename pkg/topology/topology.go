package topology

import (
	"fmt"
	"strings"
)

type BodyMode int

const (
	BodyNone            BodyMode = iota // fully depleted, no body node
	BodyFloating                        // body is an internal unknown
	BodyTied                            // body is an external node
	BodyContact                         // internal body behind an external contact through the body-tie resistor
	BodySplit                           // body and contact both external
	BodyInternalContact                 // body and contact both internal, joined by the body-tie resistor
	NumBodyModes
)

var bodyModeNames = [NumBodyModes]string{"none", "floating", "tied", "contact", "split", "internal-contact"}

func (m BodyMode) String() string {
	if m < 0 || m >= NumBodyModes {
		return fmt.Sprintf("BodyMode(%d)", int(m))
	}
	return bodyModeNames[m]
}

// GateMode selects the gate resistance network.
type GateMode int

const (
	GateNone            GateMode = iota // no gate resistance
	GateResistor                        // single electrode resistance, G to G'
	GateChannelResistor                 // single intrinsic-input resistance, G to G'
	GateTwoResistor                     // electrode plus intrinsic resistance, G to Gm to G'
	NumGateModes
)

var gateRoles = [NumGateModes][2]Role{
	GateNone:            {Absent, Absent},
	GateResistor:        {Internal, Absent},
	GateChannelResistor: {Internal, Absent},
	GateTwoResistor:     {Internal, Internal},
}

// Topology is the outcome of topology selection for one instance.
type Topology struct {
	Roles [NumTerminals]Role
	// Alias is the merge target of an Absent terminal; None means eliminated.
	Alias [NumTerminals]Terminal
	Body  BodyMode
	Gate  GateMode
	IC    [NumJunctions]bool
}

// Compose builds the topology for a combination of optional sub-topologies without
// initial-condition branches.
func Compose(temp Role, body BodyMode, gate GateMode, sourcePrime, drainPrime bool) Topology {
	var t Topology
	for i := range t.Alias {
		t.Alias[i] = None
	}
	for _, term := range []Terminal{D, G, S, E} {
		t.Roles[term] = External
	}

	t.Body = body
	switch body {
	case BodyFloating:
		t.Roles[B] = Internal
		t.Alias[P] = B
	case BodyTied:
		t.Roles[B] = External
		t.Alias[P] = B
	case BodyContact:
		t.Roles[B] = Internal
		t.Roles[P] = External
	case BodySplit:
		t.Roles[B] = External
		t.Roles[P] = External
	case BodyInternalContact:
		t.Roles[B] = Internal
		t.Roles[P] = Internal
	}

	t.Roles[T] = temp

	if drainPrime {
		t.Roles[DP] = Internal
	} else {
		t.Alias[DP] = D
	}
	if sourcePrime {
		t.Roles[SP] = Internal
	} else {
		t.Alias[SP] = S
	}

	t.Gate = gate
	roles := gateRoles[gate]
	t.Roles[GP], t.Roles[GM] = roles[0], roles[1]
	t.Alias[GP] = G
	t.Alias[GM] = GP
	if t.Roles[GP] != Absent {
		t.Alias[GP] = None
	}
	if t.Roles[GM] != Absent {
		t.Alias[GM] = None
	}

	return t
}

func (t Topology) Role(term Terminal) Role { return t.Roles[term] }

func (t Topology) Present(term Terminal) bool { return t.Roles[term] != Absent }

// Representative follows the alias chain of term to the terminal that carries its
// row and column, or None when term is eliminated.
func (t Topology) Representative(term Terminal) Terminal {
	for term != None && t.Roles[term] == Absent {
		term = t.Alias[term]
	}
	return term
}

// ExternalTerminals lists the External terminals in node-list order.
func (t Topology) ExternalTerminals() []Terminal {
	return t.withRole(External)
}

// InternalTerminals lists the Internal terminals in unknown order.
func (t Topology) InternalTerminals() []Terminal {
	return t.withRole(Internal)
}

func (t Topology) withRole(role Role) []Terminal {
	terms := make([]Terminal, 0, NumTerminals)
	for term := D; term < NumTerminals; term++ {
		if t.Roles[term] == role {
			terms = append(terms, term)
		}
	}
	return terms
}

// Branches lists junctions carrying an initial-condition branch unknown.
func (t Topology) Branches() []Junction {
	var js []Junction
	for j := Vds; j < NumJunctions; j++ {
		if t.IC[j] {
			js = append(js, j)
		}
	}
	return js
}

func (t Topology) ExternalCount() int { return len(t.ExternalTerminals()) }

// InternalCount is the number of internal unknowns the instance needs, internal
// terminals and initial-condition branches together.
func (t Topology) InternalCount() int {
	return len(t.InternalTerminals()) + len(t.Branches())
}

// WithoutIC returns the topology with every initial-condition branch removed.
func (t Topology) WithoutIC() Topology {
	t.IC = [NumJunctions]bool{}
	return t
}

func (t Topology) String() string {
	var sb strings.Builder
	for term := FirstOptional; term < NumTerminals; term++ {
		if term > FirstOptional {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%s=%s", term, t.Roles[term])
		if t.Roles[term] == Absent && t.Alias[term] != None {
			fmt.Fprintf(&sb, ">%s", t.Representative(term))
		}
	}
	if br := t.Branches(); len(br) > 0 {
		sb.WriteString(" ic=")
		for i, j := range br {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(j.String())
		}
	}
	return sb.String()
}
