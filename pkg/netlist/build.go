package netlist

import (
	"fmt"
	"strings"

	"github.com/edp1096/soi-spice/pkg/analysis"
	"github.com/edp1096/soi-spice/pkg/circuit"
	"github.com/edp1096/soi-spice/pkg/device"
	"github.com/edp1096/soi-spice/pkg/physics"
	"github.com/edp1096/soi-spice/pkg/topology"
)

// Build creates the circuit of a deck and sets it up.
func Build(deck *Deck, opts ...circuit.Option) (*circuit.Circuit, error) {
	conv, err := deck.Options.ConventionValue()
	if err != nil {
		return nil, err
	}
	opts = append([]circuit.Option{circuit.WithConvention(conv)}, opts...)
	if deck.Options.Workers > 0 {
		opts = append(opts, circuit.WithWorkers(deck.Options.Workers))
	}

	ckt := circuit.New(deck.Title, opts...)
	ckt.Status.Temp = deck.Options.Temp.Float()

	models := make(map[string]*physics.Model, len(deck.Models))
	for _, card := range deck.Models {
		params := make(map[string]float64, len(card.Params))
		for k, v := range card.Params {
			params[strings.ToLower(k)] = v.Float()
		}
		m := physics.NewModel(card.Name, card.Type, params)
		ckt.Warn(m.Check())
		models[card.Name] = m
	}

	for _, card := range deck.Devices {
		dev, err := createDevice(card, models, deck.Options, ckt)
		if err != nil {
			return nil, fmt.Errorf("creating device %s: %w", card.Name, err)
		}
		ckt.AddDevice(dev)
	}

	if err := ckt.Setup(); err != nil {
		return nil, err
	}
	return ckt, nil
}

func createDevice(card DeviceCard, models map[string]*physics.Model, opts Options, ckt *circuit.Circuit) (device.Device, error) {
	switch card.Type {
	case "resistor":
		return device.NewResistor(card.Name, card.Nodes, card.Value.Float()), nil

	case "capacitor":
		return device.NewCapacitor(card.Name, card.Nodes, card.Value.Float()), nil

	case "vsource":
		switch {
		case card.Sin != "":
			offset, amplitude, freq, phase, err := parseSinParams(card.Sin)
			if err != nil {
				return nil, err
			}
			return device.NewSinVoltageSource(card.Name, card.Nodes, offset, amplitude, freq, phase), nil
		case card.Pulse != "":
			v1, v2, delay, rise, fall, pWidth, period, err := parsePulseParams(card.Pulse)
			if err != nil {
				return nil, err
			}
			return device.NewPulseVoltageSource(card.Name, card.Nodes, v1, v2, delay, rise, fall, pWidth, period), nil
		case card.PWL != "":
			times, values, err := parsePWLParams(card.PWL)
			if err != nil {
				return nil, err
			}
			return device.NewPWLVoltageSource(card.Name, card.Nodes, times, values), nil
		}
		return device.NewDCVoltageSource(card.Name, card.Nodes, card.Value.Float()), nil

	case "isource":
		switch {
		case card.Sin != "":
			offset, amplitude, freq, phase, err := parseSinParams(card.Sin)
			if err != nil {
				return nil, err
			}
			return device.NewSinCurrentSource(card.Name, card.Nodes, offset, amplitude, freq, phase), nil
		case card.Pulse != "":
			i1, i2, delay, rise, fall, pWidth, period, err := parsePulseParams(card.Pulse)
			if err != nil {
				return nil, err
			}
			return device.NewPulseCurrentSource(card.Name, card.Nodes, i1, i2, delay, rise, fall, pWidth, period), nil
		case card.PWL != "":
			times, values, err := parsePWLParams(card.PWL)
			if err != nil {
				return nil, err
			}
			return device.NewPWLCurrentSource(card.Name, card.Nodes, times, values), nil
		}
		return device.NewDCCurrentSource(card.Name, card.Nodes, card.Value.Float()), nil

	case "soi":
		return createSOI(card, models[card.Model], opts, ckt)
	}
	return nil, fmt.Errorf("unsupported device type: %s", card.Type)
}

func createSOI(card DeviceCard, model *physics.Model, opts Options, ckt *circuit.Circuit) (device.Device, error) {
	if model == nil {
		return nil, fmt.Errorf("unknown model %q", card.Model)
	}
	geom := physics.DefaultGeometry()
	if card.L != 0 {
		geom.L = card.L.Float()
	}
	if card.W != 0 {
		geom.W = card.W.Float()
	}
	if card.NRD != nil {
		geom.NRD = card.NRD.Float()
	}
	if card.NRS != nil {
		geom.NRS = card.NRS.Float()
	}

	eval, params, warnings := model.Instantiate(card.Name, geom)
	ckt.Warn(warnings)

	params.TempNodeExternal = card.TempNode
	params.Steps = opts.LimitSteps()
	for name, v := range card.IC {
		j, ok := topology.ParseJunction(strings.ToLower(name))
		if !ok {
			return nil, fmt.Errorf("unknown initial condition %q", name)
		}
		params.ICSet[j] = true
		params.IC[j] = v.Float()
	}

	return device.NewSOI(card.Name, card.Nodes, eval, params), nil
}

// NewAnalysis creates the analysis a deck asks for.
func NewAnalysis(deck *Deck) (analysis.Analysis, error) {
	conv := analysis.Convergence{
		MaxIter: deck.Options.MaxIter,
		Abstol:  deck.Options.Abstol.Float(),
		Reltol:  deck.Options.Reltol.Float(),
		Gmin:    deck.Options.Gmin.Float(),
	}

	a := deck.Analysis
	switch a.Type {
	case "", "op":
		op := analysis.NewOP()
		op.SetConvergence(conv)
		return op, nil

	case "dc":
		sweeps := make([]analysis.Sweep, len(a.Sweeps))
		for i, s := range a.Sweeps {
			sweeps[i] = analysis.Sweep{Source: s.Source, Start: s.Start.Float(), Stop: s.Stop.Float(), Increment: s.Step.Float()}
		}
		dc, err := analysis.NewDCSweep(sweeps...)
		if err != nil {
			return nil, err
		}
		dc.SetConvergence(conv)
		return dc, nil

	case "tran":
		tr := analysis.NewTransient(a.TStart.Float(), a.TStop.Float(), a.TStep.Float(), a.UIC)
		tr.SetConvergence(conv)
		return tr, nil
	}
	return nil, fmt.Errorf("unknown analysis %q", a.Type)
}
