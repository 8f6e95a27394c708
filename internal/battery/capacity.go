package battery

import "math"

// capacityFloorFraction keeps the usable capacity away from zero so the
// charge update never divides by a vanishing denominator.
const capacityFloorFraction = 0.1

// EffectiveCapacity derates the nominal capacity with temperature:
// Q_eff = QAh * exp(-KTemp * (T - TRef)), floored at 10% of nominal.
func (p *Params) EffectiveCapacity(temperature float64) float64 {
	q := p.QAh * math.Exp(-p.KTemp*(temperature-p.TRef))
	return math.Max(q, capacityFloorFraction*p.QAh)
}
