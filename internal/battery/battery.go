// Package battery models the discharge of a smartphone battery under a
// configurable workload and ambient temperature. State of charge evolves by
// Coulomb counting against a temperature-derated effective capacity, and the
// device temperature follows a first-order lumped thermal model.
package battery

import (
	"context"
	"math"
	"sync"
	"time"
)

// voltageEpsilon floors the divisor of the current computation.
const voltageEpsilon = 1e-6

// Snapshot is a read-only view of the device state plus the derived
// electrical quantities for the workload in effect.
type Snapshot struct {
	SOC                float64
	Temperature        float64
	AmbientTemperature float64
	Power              float64
	Current            float64
	EffectiveCapacity  float64
	Usage              UsageInput
	Breakdown          PowerBreakdown
}

// Battery owns the mutable simulation state for one device. The lock makes
// concurrent control-plane reads and writes safe while a live run ticks; a
// given Battery still serves one simulation at a time.
type Battery struct {
	mu     sync.RWMutex
	params Params

	soc     float64
	temp    float64
	ambient float64
	usage   UsageInput
}

// New validates params and returns a fully charged battery at ambient
// temperature.
func New(params Params) (*Battery, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Battery{
		params:  params,
		soc:     1.0,
		temp:    params.TEnvInit,
		ambient: params.TEnvInit,
		usage:   DefaultUsage(),
	}, nil
}

// Params returns the constants this battery was built with.
func (b *Battery) Params() Params {
	return b.params
}

// Reset restores the given state of charge (clamped to [0,1]) and settles the
// body temperature back to the current ambient.
func (b *Battery) Reset(soc float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.soc = clamp01(soc)
	b.temp = b.ambient
}

// ResetAt is Reset with an explicit temperature, which becomes both the body
// and the ambient temperature.
func (b *Battery) ResetAt(soc, temperature float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.soc = clamp01(soc)
	b.temp = temperature
	b.ambient = temperature
}

// Step advances the model by dt seconds under the given workload and returns
// a snapshot of the post-step state. A non-nil ambient replaces the stored
// ambient temperature before the thermal update. dt must be positive.
func (b *Battery) Step(dt float64, usage UsageInput, ambient *float64) (Snapshot, error) {
	if dt <= 0 {
		return Snapshot{}, ErrNonPositiveStep
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	power, bd := b.params.Power(usage)
	if ambient != nil {
		b.ambient = *ambient
	}
	b.temp = b.params.NextTemperature(b.temp, power, b.ambient, dt)
	qEff := b.params.EffectiveCapacity(b.temp)
	current := power / maxFloat(b.params.VNom, voltageEpsilon)
	// Coulomb counting; 3600 converts Ah to As. dSOC <= 0, so there is no
	// charging path through here. A dt far above CTh/H makes the explicit
	// Euler thermal step diverge and the derated capacity go NaN; the charge
	// state holds its last value then and never leaves [0,1].
	if delta := (current * dt) / (qEff * 3600.0); !math.IsNaN(delta) {
		b.soc = clamp01(b.soc - delta)
	}
	b.usage = usage

	return Snapshot{
		SOC:                b.soc,
		Temperature:        b.temp,
		AmbientTemperature: b.ambient,
		Power:              power,
		Current:            current,
		EffectiveCapacity:  qEff,
		Usage:              usage,
		Breakdown:          bd,
	}, nil
}

// Get returns the current state with the electrical quantities the present
// workload would draw. It does not advance the model.
func (b *Battery) Get() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	power, bd := b.params.Power(b.usage)
	qEff := b.params.EffectiveCapacity(b.temp)
	return Snapshot{
		SOC:                b.soc,
		Temperature:        b.temp,
		AmbientTemperature: b.ambient,
		Power:              power,
		Current:            power / maxFloat(b.params.VNom, voltageEpsilon),
		EffectiveCapacity:  qEff,
		Usage:              b.usage,
		Breakdown:          bd,
	}
}

// Usage returns the workload currently applied to the device.
func (b *Battery) Usage() UsageInput {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.usage
}

func (b *Battery) SetBrightness(v float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.usage.Brightness = v
}

func (b *Battery) SetCPULoad(v float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.usage.CPULoad = v
}

func (b *Battery) SetNetwork(on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.usage.Network = on
}

func (b *Battery) SetGPS(on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.usage.GPS = on
}

func (b *Battery) SetBackground(on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.usage.Background = on
}

func (b *Battery) SetAmbient(temperature float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ambient = temperature
}

// Run drains the battery in real time, stepping once per interval with the
// workload currently set on the device. It blocks until ctx is canceled.
func (b *Battery) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := b.Step(interval.Seconds(), b.Usage(), nil); err != nil {
				return err
			}
		}
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
