package device

import "math"

// pulseCrosses reports whether a corner of a PULSE waveform lies in (from, to].
func pulseCrosses(from, to, delay, rise, width, fall, period float64) bool {
	if to < delay {
		return false
	}
	corners := [4]float64{0, rise, rise + width, rise + width + fall}
	first, last := 0.0, 0.0
	if period > 0 {
		first = max(0, math.Floor((from-delay)/period)-1)
		last = math.Floor((to - delay) / period)
	}
	for k := first; k <= last; k++ {
		for _, c := range corners {
			if t := delay + k*period + c; t > from && t <= to {
				return true
			}
		}
	}
	return false
}

func pwlCrosses(from, to float64, times []float64) bool {
	for _, t := range times {
		if t > from && t <= to {
			return true
		}
	}
	return false
}

func (v *VoltageSource) Crosses(from, to float64) bool {
	switch v.vtype {
	case PULSE:
		return pulseCrosses(from, to, v.delay, v.rise, v.pWidth, v.fall, v.period)
	case PWL:
		return pwlCrosses(from, to, v.times)
	}
	return false
}

func (i *CurrentSource) Crosses(from, to float64) bool {
	switch i.ctype {
	case PULSE:
		return pulseCrosses(from, to, i.delay, i.rise, i.pWidth, i.fall, i.period)
	case PWL:
		return pwlCrosses(from, to, i.times)
	}
	return false
}
