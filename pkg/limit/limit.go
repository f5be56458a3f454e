// Package limit implements the censored Newton step applied to node voltages and
// junction drops before the device is evaluated.
package limit

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Steps holds the largest change allowed per Newton iteration.
type Steps struct {
	Node float64 // raw node voltage, first iteration after a restart (V)
	Drop float64 // junction voltage drop (V)
	Temp float64 // temperature rise (K)
}

func DefaultSteps() Steps {
	return Steps{
		Node: 1.0,
		Drop: 0.5,
		Temp: 5.0,
	}
}

// Clamp limits candidate to within maxStep of previous and reports whether it did.
func Clamp[F constraints.Float](candidate, previous, maxStep F) (F, bool) {
	delta := candidate - previous
	if F(math.Abs(float64(delta))) <= maxStep {
		return candidate, false
	}
	if delta > 0 {
		return previous + maxStep, true
	}
	return previous - maxStep, true
}

// Nodes clamps each candidate node voltage against the previous one in place.
// Indices listed in temp are temperature rows and use the temperature step.
func Nodes(candidate, previous []float64, steps Steps, temp ...int) bool {
	return clampAll(candidate, previous, steps.Node, steps.Temp, temp)
}

// Drops clamps junction drops in place against the previously accepted values.
// Indices listed in temp use the temperature step instead of the voltage step.
func Drops(candidate, previous []float64, steps Steps, temp ...int) bool {
	return clampAll(candidate, previous, steps.Drop, steps.Temp, temp)
}

func clampAll(candidate, previous []float64, step, tempStep float64, temp []int) bool {
	changed := false
	for i := range candidate {
		maxStep := step
		for _, k := range temp {
			if k == i {
				maxStep = tempStep
			}
		}
		var c bool
		candidate[i], c = Clamp(candidate[i], previous[i], maxStep)
		changed = changed || c
	}
	return changed
}
