package battery

// UsageInput is the instantaneous workload applied to the device.
// Brightness and CPULoad are meant to lie in [0,1] but are taken verbatim:
// out-of-range values flow into the power formula unchanged.
type UsageInput struct {
	Brightness float64 `json:"brightness" yaml:"brightness"`
	CPULoad    float64 `json:"cpu_load" yaml:"cpu_load"`
	Network    bool    `json:"network" yaml:"network"`
	GPS        bool    `json:"gps" yaml:"gps"`
	Background bool    `json:"background" yaml:"background"`
}

// DefaultUsage is the workload assumed whenever no schedule segment applies.
func DefaultUsage() UsageInput {
	return UsageInput{
		Brightness: 0.6,
		CPULoad:    0.5,
		Network:    true,
		GPS:        true,
		Background: true,
	}
}
