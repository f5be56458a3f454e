package stamp

import (
	"errors"
	"fmt"
	"sync"

	"github.com/edp1096/soi-spice/pkg/topology"
)

var ErrUnknownSignature = errors.New("no stamp variant for topology signature")

var (
	catalogueTemps = []topology.Role{topology.Absent, topology.Internal, topology.External}
	catalogueGates = []topology.GateMode{topology.GateTwoResistor, topology.GateResistor, topology.GateNone}
	presence       = []bool{true, false}
)

// CatalogueSize is the number of base variants Build produces.
var CatalogueSize = len(catalogueTemps) * int(topology.NumBodyModes) * len(catalogueGates) * len(presence) * len(presence)

// Table is the catalogue of derived variants keyed by topology signature. Base variants
// are built eagerly; variants carrying initial-condition branches are derived on first
// use during setup and memoized.
type Table struct {
	variants []*Variant
	base     map[topology.Signature]*Variant

	mu       sync.Mutex
	extended map[topology.Signature]*Variant
}

// Build enumerates every legal combination of optional sub-topologies in a fixed order
// and derives its variant.
func Build() *Table {
	t := &Table{
		variants: make([]*Variant, 0, CatalogueSize),
		base:     make(map[topology.Signature]*Variant, CatalogueSize),
		extended: make(map[topology.Signature]*Variant),
	}

	for _, temp := range catalogueTemps {
		for body := topology.BodyNone; body < topology.NumBodyModes; body++ {
			for _, gate := range catalogueGates {
				for _, sp := range presence {
					for _, dp := range presence {
						v := Derive(topology.Compose(temp, body, gate, sp, dp))
						t.variants = append(t.variants, v)
						t.base[v.Signature] = v
					}
				}
			}
		}
	}

	return t
}

func (t *Table) Len() int { return len(t.variants) }

// Variants returns the base variants in catalogue order.
func (t *Table) Variants() []*Variant { return t.variants }

// Lookup returns the variant registered under sig.
func (t *Table) Lookup(sig topology.Signature) (*Variant, error) {
	if v, ok := t.base[sig]; ok {
		return v, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if v, ok := t.extended[sig]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("%w %s", ErrUnknownSignature, sig)
}

// Variant returns the variant for top, extending the base variant with the topology's
// initial-condition branches when it has any.
func (t *Table) Variant(top topology.Topology) (*Variant, error) {
	base, err := t.Lookup(top.WithoutIC().Signature())
	if err != nil {
		return nil, err
	}
	if len(top.Branches()) == 0 {
		return base, nil
	}

	sig := top.Signature()
	t.mu.Lock()
	defer t.mu.Unlock()
	if v, ok := t.extended[sig]; ok {
		return v, nil
	}
	v := base.Extend(top)
	t.extended[sig] = v
	return v, nil
}
