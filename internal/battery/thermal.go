package battery

// NextTemperature advances the first-order lumped thermal model by one
// explicit-Euler step:
//
//	dT/dt = (P - H*(T - T_ambient)) / CTh
//
// Stability requires dt small relative to CTh/H; no step-size control is done.
func (p *Params) NextTemperature(tPrev, power, ambient, dt float64) float64 {
	return tPrev + dt*(power-p.H*(tPrev-ambient))/p.CTh
}
