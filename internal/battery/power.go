package battery

import "math"

// PowerBreakdown splits the instantaneous draw per subsystem, in watts.
type PowerBreakdown struct {
	Screen     float64
	CPU        float64
	Network    float64
	GPS        float64
	Background float64
}

// Power returns the total instantaneous draw for the given workload along
// with its per-subsystem breakdown. The total is floored at zero.
func (p *Params) Power(u UsageInput) (float64, PowerBreakdown) {
	bd := PowerBreakdown{
		Screen: p.PScreenBase * math.Pow(u.Brightness, p.ScreenExponent),
		CPU:    p.PCPUIdle + (p.PCPUPeak-p.PCPUIdle)*math.Pow(u.CPULoad, p.CPUExponent),
	}
	if u.Network {
		bd.Network = p.PNetwork
	}
	if u.GPS {
		bd.GPS = p.PGPS
	}
	if u.Background {
		bd.Background = p.PBackground
	}
	total := p.PBase + bd.Screen + bd.CPU + bd.Network + bd.GPS + bd.Background
	return math.Max(0, total), bd
}
