package agents

import "math"

// Energy describes a robot battery.
type Energy struct {
	// PerMeter is the charge consumed per unit of distance driven.
	PerMeter float64 `yaml:"per_meter"`
	// SecondsPerUnit is the time needed to restore one unit of charge.
	SecondsPerUnit float64 `yaml:"seconds_per_unit"`
	// Max is the battery capacity.
	Max float64 `yaml:"max"`
}

// DefaultEnergy returns the stock battery model.
func DefaultEnergy() Energy {
	return Energy{PerMeter: 2, SecondsPerUnit: 0.01, Max: 100}
}

// Cost returns the charge needed to drive the given distance.
func (e Energy) Cost(dist float64) float64 {
	return e.PerMeter * math.Abs(dist)
}

// ChargeTime returns the time needed to restore the missing charge.
func (e Energy) ChargeTime(missing float64) float64 {
	return missing * e.SecondsPerUnit
}

// ChargeRate returns the charge gained in one tick of length dt.
func (e Energy) ChargeRate(dt float64) float64 {
	return dt / e.ChargeTime(1.0)
}
