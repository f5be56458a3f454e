package netlist

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/edp1096/soi-spice/pkg/limit"
	"github.com/edp1096/soi-spice/pkg/matrix"
)

// Deck is a simulation input file.
type Deck struct {
	Title    string       `yaml:"title"`
	Options  Options      `yaml:"options"`
	Models   []ModelCard  `yaml:"models"`
	Devices  []DeviceCard `yaml:"devices"`
	Analysis AnalysisCard `yaml:"analysis"`
}

type Options struct {
	Temp       Value     `yaml:"temp"` // ambient temperature (K)
	Gmin       Value     `yaml:"gmin"`
	Abstol     Value     `yaml:"abstol"`
	Reltol     Value     `yaml:"reltol"`
	MaxIter    int       `yaml:"maxiter"`
	Workers    int       `yaml:"workers"`
	Convention string    `yaml:"convention"` // "new" or "old"
	Steps      StepsCard `yaml:"steps"`
}

// StepsCard overrides the Newton limiting steps of every SOI instance.
type StepsCard struct {
	Node Value `yaml:"node"`
	Drop Value `yaml:"drop"`
	Temp Value `yaml:"temp"`
}

type ModelCard struct {
	Name   string           `yaml:"name"`
	Type   string           `yaml:"type"` // nmos or pmos
	Params map[string]Value `yaml:"params"`
}

type DeviceCard struct {
	Name  string   `yaml:"name"`
	Type  string   `yaml:"type"` // soi, resistor, capacitor, vsource, isource
	Nodes []string `yaml:"nodes"`
	Value Value    `yaml:"value"`

	// soi
	Model    string           `yaml:"model"`
	L        Value            `yaml:"l"`
	W        Value            `yaml:"w"`
	NRD      *Value           `yaml:"nrd"`
	NRS      *Value           `yaml:"nrs"`
	TempNode bool             `yaml:"tempnode"` // last node is the temperature node
	IC       map[string]Value `yaml:"ic"`

	// sources, in SPICE argument order
	Sin   string `yaml:"sin"`
	Pulse string `yaml:"pulse"`
	PWL   string `yaml:"pwl"`
}

type SweepCard struct {
	Source string `yaml:"source"`
	Start  Value  `yaml:"start"`
	Stop   Value  `yaml:"stop"`
	Step   Value  `yaml:"step"`
}

type AnalysisCard struct {
	Type   string      `yaml:"type"` // op, dc or tran
	Sweeps []SweepCard `yaml:"sweeps"`
	TStart Value       `yaml:"tstart"`
	TStop  Value       `yaml:"tstop"`
	TStep  Value       `yaml:"tstep"`
	UIC    bool        `yaml:"uic"`
}

func DefaultOptions() Options {
	steps := limit.DefaultSteps()
	return Options{
		Temp:       300.15,
		Gmin:       1e-12,
		Abstol:     1e-12,
		Reltol:     1e-6,
		MaxIter:    100,
		Convention: "new",
		Steps: StepsCard{
			Node: Value(steps.Node),
			Drop: Value(steps.Drop),
			Temp: Value(steps.Temp),
		},
	}
}

// ConventionValue maps the option string to a DAE convention.
func (o Options) ConventionValue() (matrix.Convention, error) {
	switch strings.ToLower(o.Convention) {
	case "", "new":
		return matrix.NewDAE, nil
	case "old":
		return matrix.OldDAE, nil
	}
	return 0, fmt.Errorf("unknown convention %q, want new or old", o.Convention)
}

func (o Options) LimitSteps() limit.Steps {
	return limit.Steps{Node: o.Steps.Node.Float(), Drop: o.Steps.Drop.Float(), Temp: o.Steps.Temp.Float()}
}

// Parse decodes a deck, filling unset options with their defaults.
func Parse(data []byte) (*Deck, error) {
	deck := &Deck{Options: DefaultOptions()}
	if err := yaml.Unmarshal(data, deck); err != nil {
		return nil, fmt.Errorf("failed to parse deck: %w", err)
	}
	if err := deck.Validate(); err != nil {
		return nil, err
	}
	return deck, nil
}

func Load(path string) (*Deck, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read deck %s: %w", path, err)
	}
	deck, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return deck, nil
}

// Validate checks references and required fields.
func (d *Deck) Validate() error {
	if _, err := d.Options.ConventionValue(); err != nil {
		return err
	}

	models := make(map[string]bool)
	for _, m := range d.Models {
		if m.Name == "" {
			return fmt.Errorf("model without a name")
		}
		if t := strings.ToLower(m.Type); t != "nmos" && t != "pmos" {
			return fmt.Errorf("model %s: unknown type %q", m.Name, m.Type)
		}
		models[m.Name] = true
	}

	names := make(map[string]bool)
	for _, dev := range d.Devices {
		if dev.Name == "" {
			return fmt.Errorf("device without a name")
		}
		if names[dev.Name] {
			return fmt.Errorf("duplicate device %s", dev.Name)
		}
		names[dev.Name] = true

		switch dev.Type {
		case "soi":
			if !models[dev.Model] {
				return fmt.Errorf("device %s: unknown model %q", dev.Name, dev.Model)
			}
		case "resistor", "capacitor", "vsource", "isource":
			if len(dev.Nodes) != 2 {
				return fmt.Errorf("device %s: %s needs 2 nodes, got %d", dev.Name, dev.Type, len(dev.Nodes))
			}
		default:
			return fmt.Errorf("device %s: unsupported type %q", dev.Name, dev.Type)
		}
	}

	switch d.Analysis.Type {
	case "", "op":
	case "dc":
		if len(d.Analysis.Sweeps) == 0 {
			return fmt.Errorf("dc analysis without sweeps")
		}
		for _, s := range d.Analysis.Sweeps {
			if !names[s.Source] {
				return fmt.Errorf("dc sweep of unknown source %s", s.Source)
			}
		}
	case "tran":
		if d.Analysis.TStep <= 0 || d.Analysis.TStop <= 0 {
			return fmt.Errorf("tran analysis needs positive tstep and tstop")
		}
	default:
		return fmt.Errorf("unknown analysis %q", d.Analysis.Type)
	}
	return nil
}
