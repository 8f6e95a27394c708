package ports

import "github.com/battmock/battmock/internal/battery"

// BatteryService is the control-plane port used by controllers (HTTP/MQTT/etc).
// Brightness and CPU load are applied verbatim; the model does not range-check
// workload inputs.
type BatteryService interface {
	Get() battery.Snapshot
	SetBrightness(float64)
	SetCPULoad(float64)
	SetNetwork(bool)
	SetGPS(bool)
	SetBackground(bool)
	SetAmbient(float64)
	Reset(soc float64)
}
