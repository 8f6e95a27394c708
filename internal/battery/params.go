package battery

// Params holds the physical and electrical constants of the modeled handset.
// A Params value is shared read-only by all model functions of one run.
type Params struct {
	QAh   float64 // nominal capacity [Ah]
	VNom  float64 // nominal voltage [V]
	TRef  float64 // reference temperature for capacity derating [degC]
	KTemp float64 // capacity temperature sensitivity [1/K]

	PBase       float64 // baseline (always-on) power [W]
	PScreenBase float64 // screen power at full brightness [W]
	PCPUIdle    float64 // CPU power at zero load [W]
	PCPUPeak    float64 // CPU power at full load [W]
	PNetwork    float64 // radio/network power when active [W]
	PGPS        float64 // GPS power when active [W]
	PBackground float64 // background apps power when active [W]

	// Nonlinearity exponents for the screen and CPU power curves.
	// 1 is linear; values != 1 model diminishing or accelerating draw.
	ScreenExponent float64
	CPUExponent    float64

	CTh      float64 // thermal capacitance [J/K]
	H        float64 // thermal conductance to ambient [W/K]
	TEnvInit float64 // initial ambient temperature [degC]
}

// DefaultParams mirrors a representative mid-range smartphone.
func DefaultParams() Params {
	return Params{
		QAh:            3.8,
		VNom:           3.85,
		TRef:           25.0,
		KTemp:          0.02,
		PBase:          0.20,
		PScreenBase:    0.30,
		PCPUIdle:       0.10,
		PCPUPeak:       0.90,
		PNetwork:       0.25,
		PGPS:           0.04,
		PBackground:    0.05,
		ScreenExponent: 1.0,
		CPUExponent:    1.0,
		CTh:            600.0,
		H:              5.0,
		TEnvInit:       25.0,
	}
}

func (p *Params) Validate() error {
	if p.QAh <= 0 {
		return ErrNonPositiveCapacity
	}
	if p.VNom <= 0 {
		return ErrNonPositiveVoltage
	}
	if p.CTh <= 0 {
		return ErrNonPositiveThermalCapacitance
	}
	if p.H < 0 {
		return ErrNegativeConductance
	}
	return nil
}
