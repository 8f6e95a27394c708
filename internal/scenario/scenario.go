// Package scenario loads simulation runs from YAML or JSON files: duration,
// step size, usage and ambient schedules, and battery parameter overrides.
package scenario

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/battmock/battmock/internal/battery"
)

type Scenario struct {
	DurationS float64 `json:"duration_s" yaml:"duration_s"`
	DtS       float64 `json:"dt_s" yaml:"dt_s"`

	UsageSchedule []UsageSegmentConfig `json:"usage_schedule" yaml:"usage_schedule"`
	Ambient       *AmbientConfig       `json:"ambient" yaml:"ambient"`

	Battery ParamsConfig `json:"battery" yaml:"battery"`
}

// UsageSegmentConfig is one workload window. A zero End means open-ended.
// Omitted usage fields fall back to the documented defaults.
type UsageSegmentConfig struct {
	Start float64     `json:"start" yaml:"start"`
	End   float64     `json:"end" yaml:"end"`
	Usage UsageConfig `json:"usage" yaml:"usage"`
}

type UsageConfig struct {
	Brightness *float64 `json:"brightness" yaml:"brightness"`
	CPULoad    *float64 `json:"cpu_load" yaml:"cpu_load"`
	Network    *bool    `json:"network" yaml:"network"`
	GPS        *bool    `json:"gps" yaml:"gps"`
	Background *bool    `json:"background" yaml:"background"`
}

func (c UsageConfig) Usage() battery.UsageInput {
	u := battery.DefaultUsage()
	if c.Brightness != nil {
		u.Brightness = *c.Brightness
	}
	if c.CPULoad != nil {
		u.CPULoad = *c.CPULoad
	}
	if c.Network != nil {
		u.Network = *c.Network
	}
	if c.GPS != nil {
		u.GPS = *c.GPS
	}
	if c.Background != nil {
		u.Background = *c.Background
	}
	return u
}

// AmbientConfig is either a single fixed temperature for the whole run or a
// piecewise segment list; Fixed wins when both are given.
type AmbientConfig struct {
	Fixed    *float64               `json:"fixed" yaml:"fixed"`
	Segments []AmbientSegmentConfig `json:"segments" yaml:"segments"`
}

type AmbientSegmentConfig struct {
	Start float64 `json:"start" yaml:"start"`
	End   float64 `json:"end" yaml:"end"`
	Value float64 `json:"value" yaml:"value"`
}

// Schedule converts the config into the engine's ambient schedule. A nil
// config means "no ambient override for the run".
func (c *AmbientConfig) Schedule() battery.AmbientSchedule {
	if c == nil {
		return nil
	}
	if c.Fixed != nil {
		return battery.FixedAmbient(*c.Fixed)
	}
	if len(c.Segments) == 0 {
		return nil
	}
	segs := make(battery.AmbientSegments, len(c.Segments))
	for i, s := range c.Segments {
		segs[i] = battery.AmbientSegment{Start: s.Start, End: openEnd(s.End), Value: s.Value}
	}
	return segs
}

// ParamsConfig overrides individual battery constants; unset fields keep the
// defaults of battery.DefaultParams.
type ParamsConfig struct {
	CapacityAh      *float64 `json:"capacity_ah" yaml:"capacity_ah"`
	VoltageV        *float64 `json:"voltage_v" yaml:"voltage_v"`
	RefTempC        *float64 `json:"ref_temp_c" yaml:"ref_temp_c"`
	TempSensitivity *float64 `json:"temp_sensitivity" yaml:"temp_sensitivity"`

	BasePowerW       *float64 `json:"base_power_w" yaml:"base_power_w"`
	ScreenPowerW     *float64 `json:"screen_power_w" yaml:"screen_power_w"`
	CPUIdlePowerW    *float64 `json:"cpu_idle_power_w" yaml:"cpu_idle_power_w"`
	CPUPeakPowerW    *float64 `json:"cpu_peak_power_w" yaml:"cpu_peak_power_w"`
	NetworkPowerW    *float64 `json:"network_power_w" yaml:"network_power_w"`
	GPSPowerW        *float64 `json:"gps_power_w" yaml:"gps_power_w"`
	BackgroundPowerW *float64 `json:"background_power_w" yaml:"background_power_w"`

	ScreenExponent *float64 `json:"screen_exponent" yaml:"screen_exponent"`
	CPUExponent    *float64 `json:"cpu_exponent" yaml:"cpu_exponent"`

	ThermalCapacitance *float64 `json:"thermal_capacitance" yaml:"thermal_capacitance"`
	ThermalConductance *float64 `json:"thermal_conductance" yaml:"thermal_conductance"`
	AmbientTempC       *float64 `json:"ambient_temp_c" yaml:"ambient_temp_c"`
}

func (c ParamsConfig) Params() battery.Params {
	p := battery.DefaultParams()
	apply := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	apply(&p.QAh, c.CapacityAh)
	apply(&p.VNom, c.VoltageV)
	apply(&p.TRef, c.RefTempC)
	apply(&p.KTemp, c.TempSensitivity)
	apply(&p.PBase, c.BasePowerW)
	apply(&p.PScreenBase, c.ScreenPowerW)
	apply(&p.PCPUIdle, c.CPUIdlePowerW)
	apply(&p.PCPUPeak, c.CPUPeakPowerW)
	apply(&p.PNetwork, c.NetworkPowerW)
	apply(&p.PGPS, c.GPSPowerW)
	apply(&p.PBackground, c.BackgroundPowerW)
	apply(&p.ScreenExponent, c.ScreenExponent)
	apply(&p.CPUExponent, c.CPUExponent)
	apply(&p.CTh, c.ThermalCapacitance)
	apply(&p.H, c.ThermalConductance)
	apply(&p.TEnvInit, c.AmbientTempC)
	return p
}

// Segments converts the usage schedule to engine segments.
func (s *Scenario) Segments() []battery.UsageSegment {
	if len(s.UsageSchedule) == 0 {
		return nil
	}
	segs := make([]battery.UsageSegment, len(s.UsageSchedule))
	for i, c := range s.UsageSchedule {
		segs[i] = battery.UsageSegment{Start: c.Start, End: openEnd(c.End), Usage: c.Usage.Usage()}
	}
	return segs
}

// Load reads a scenario file (.yaml/.yml/.json). An empty path yields the
// default two-hour run at one-minute steps.
func Load(path string) (Scenario, error) {
	var sc Scenario

	if path == "" {
		applyDefaults(&sc)
		return sc, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return sc, fmt.Errorf("read scenario: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &sc); err != nil {
			return sc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &sc); err != nil {
			return sc, fmt.Errorf("parse json: %w", err)
		}
	default:
		return sc, fmt.Errorf("unsupported scenario extension %q", ext)
	}

	applyDefaults(&sc)
	if sc.DtS <= 0 {
		return sc, battery.ErrNonPositiveStep
	}
	return sc, nil
}

func applyDefaults(sc *Scenario) {
	if sc.DurationS == 0 {
		sc.DurationS = 7200
	}
	if sc.DtS == 0 {
		sc.DtS = 60
	}
}

func openEnd(end float64) float64 {
	if end == 0 {
		return math.Inf(1)
	}
	return end
}
