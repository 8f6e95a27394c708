package testutil

import "github.com/battmock/battmock/internal/battery"

// FakeBatteryService is a reusable fake implementing ports.BatteryService.
// Put ONLY what multiple test packages need here.
type FakeBatteryService struct {
	S battery.Snapshot

	SetBrightnessCalled bool
	SetBrightnessArg    float64

	SetCPULoadCalled bool
	SetCPULoadArg    float64

	SetNetworkCalled bool
	SetNetworkArg    bool

	SetGPSCalled bool
	SetGPSArg    bool

	SetBackgroundCalled bool
	SetBackgroundArg    bool

	SetAmbientCalled bool
	SetAmbientArg    float64

	ResetCalled bool
	ResetArg    float64
}

func NewFakeBatteryService() *FakeBatteryService {
	params := battery.DefaultParams()
	usage := battery.DefaultUsage()
	power, bd := params.Power(usage)
	return &FakeBatteryService{
		S: battery.Snapshot{
			SOC:                1.0,
			Temperature:        25.0,
			AmbientTemperature: 25.0,
			Power:              power,
			Current:            power / params.VNom,
			EffectiveCapacity:  params.QAh,
			Usage:              usage,
			Breakdown:          bd,
		},
	}
}

func (f *FakeBatteryService) Get() battery.Snapshot { return f.S }

func (f *FakeBatteryService) SetBrightness(v float64) {
	f.SetBrightnessCalled = true
	f.SetBrightnessArg = v
	f.S.Usage.Brightness = v
}

func (f *FakeBatteryService) SetCPULoad(v float64) {
	f.SetCPULoadCalled = true
	f.SetCPULoadArg = v
	f.S.Usage.CPULoad = v
}

func (f *FakeBatteryService) SetNetwork(on bool) {
	f.SetNetworkCalled = true
	f.SetNetworkArg = on
	f.S.Usage.Network = on
}

func (f *FakeBatteryService) SetGPS(on bool) {
	f.SetGPSCalled = true
	f.SetGPSArg = on
	f.S.Usage.GPS = on
}

func (f *FakeBatteryService) SetBackground(on bool) {
	f.SetBackgroundCalled = true
	f.SetBackgroundArg = on
	f.S.Usage.Background = on
}

func (f *FakeBatteryService) SetAmbient(v float64) {
	f.SetAmbientCalled = true
	f.SetAmbientArg = v
	f.S.AmbientTemperature = v
}

func (f *FakeBatteryService) Reset(soc float64) {
	f.ResetCalled = true
	f.ResetArg = soc
	if soc < 0 {
		soc = 0
	}
	if soc > 1 {
		soc = 1
	}
	f.S.SOC = soc
	f.S.Temperature = f.S.AmbientTemperature
}
