package search

import "math"

// MinTemperature is the temperature at or below which worsening moves are
// always rejected.
const MinTemperature = 1e-9

// minExponent is where math.Exp underflows to zero.
const minExponent = -745.0

// Accept reports whether a move from current to candidate is taken at the
// given temperature. u is a uniform draw from [0, 1). Improvements are always
// accepted. A worsening (or equal) move is accepted when u < exp(delta/T).
// NaN on either side never wins.
func Accept(current, candidate, temperature, u float64) bool {
	delta := candidate - current
	if math.IsNaN(delta) {
		return false
	}
	if delta > 0 {
		return true
	}
	if math.IsNaN(temperature) || temperature <= MinTemperature {
		return false
	}
	x := delta / temperature
	if x < minExponent {
		return false
	}
	return u < math.Exp(x)
}

// Temperature is the geometric schedule t0 * rate^step.
func Temperature(t0, rate float64, step int) float64 {
	return t0 * math.Pow(rate, float64(step))
}

// Schedule tracks a geometric cooling schedule step by step. Its value after
// k calls to Cool equals Temperature(t0, rate, k) exactly.
type Schedule struct {
	t0   float64
	rate float64
	step int
	temp float64
}

// NewSchedule starts a schedule at t0.
func NewSchedule(t0, rate float64) *Schedule {
	return &Schedule{t0: t0, rate: rate, temp: t0}
}

// Cool advances the schedule by one step and returns the new temperature.
func (s *Schedule) Cool() float64 {
	s.step++
	s.temp = Temperature(s.t0, s.rate, s.step)
	return s.temp
}

// Value is the current temperature.
func (s *Schedule) Value() float64 {
	return s.temp
}

// Step is the number of Cool calls so far.
func (s *Schedule) Step() int {
	return s.step
}
