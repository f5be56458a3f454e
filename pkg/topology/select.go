package topology

// Options carries the configuration inputs of topology selection.
type Options struct {
	ExternalNodes    int
	SelfHeating      bool
	TempNodeExternal bool
	GateMode         GateMode
	// BodyTie is true when the body-tie resistance is nonzero.
	BodyTie       bool
	FullyDepleted bool

	DrainResistance  float64
	DrainSquares     float64
	SourceResistance float64
	SourceSquares    float64

	IC [NumJunctions]bool
}

// Select decides the role of every logical terminal from the instance configuration.
// An illegal combination yields a *ConfigurationError naming the instance.
func Select(instance string, opts Options) (Topology, error) {
	lo, hi := 4, 6
	m := opts.ExternalNodes
	if opts.TempNodeExternal {
		lo, hi = 5, 7
		m--
	}
	if opts.ExternalNodes < lo || opts.ExternalNodes > hi {
		return Topology{}, configErrorf(instance, "%d external nodes, want %d to %d", opts.ExternalNodes, lo, hi)
	}

	if opts.GateMode < GateNone || opts.GateMode >= NumGateModes {
		return Topology{}, configErrorf(instance, "gate resistance mode %d out of range 0..%d", opts.GateMode, NumGateModes-1)
	}

	var body BodyMode
	switch m {
	case 4:
		switch {
		case opts.FullyDepleted:
			body = BodyNone
		case opts.BodyTie:
			body = BodyInternalContact
		default:
			body = BodyFloating
		}
	case 5:
		if opts.FullyDepleted {
			return Topology{}, configErrorf(instance, "fully depleted device cannot have a body node")
		}
		body = BodyTied
		if opts.BodyTie {
			body = BodyContact
		}
	case 6:
		if opts.FullyDepleted {
			return Topology{}, configErrorf(instance, "fully depleted device cannot have body and contact nodes")
		}
		body = BodySplit
	}

	temp := Absent
	switch {
	case opts.TempNodeExternal:
		temp = External
	case opts.SelfHeating:
		temp = Internal
	}

	drainPrime := opts.DrainResistance != 0 && opts.DrainSquares > 0
	sourcePrime := opts.SourceResistance != 0 && opts.SourceSquares > 0

	top := Compose(temp, body, opts.GateMode, sourcePrime, drainPrime)

	for j := Vds; j < NumJunctions; j++ {
		if !opts.IC[j] {
			continue
		}
		a, b := j.Terminals()
		if top.Representative(a) == None || top.Representative(b) == None {
			return Topology{}, configErrorf(instance, "initial condition %s on a junction without a %s node", j, a)
		}
		for k := Vds; k < j; k++ {
			if !top.IC[k] {
				continue
			}
			ka, kb := k.Terminals()
			if top.Representative(ka) == top.Representative(a) && top.Representative(kb) == top.Representative(b) {
				return Topology{}, configErrorf(instance, "initial conditions %s and %s constrain the same node pair", k, j)
			}
		}
		top.IC[j] = true
	}

	return top, nil
}
