package planner

import "math"

// Power draw in watts for a multirotor of the reference mass; scaled by
// (mass/referenceMassKg)^1.5.
const (
	referenceMassKg = 36.9
	hoverWatts      = 4400.0
	moveFactor      = 1.2
	climbFactor     = 1.3
	ascentFactor    = 1.3
)

func (p *Planner) hoverPower() float64 {
	return hoverWatts * math.Pow(p.params.MassKg/referenceMassKg, 1.5)
}

// stepEnergyWh is the energy spent covering dist metres while changing
// height by dh metres.
func (p *Planner) stepEnergyWh(dist, dh float64) float64 {
	hover := p.hoverPower()
	move := moveFactor * hover
	t := dist / p.params.VelocityMps
	joules := move * t
	if dh > 0 {
		joules *= ascentFactor
	}
	if dh > p.climbLimit(dist) {
		joules += climbFactor * hover * dh / p.params.ClimbRateMps
	}
	return joules / 3600
}
