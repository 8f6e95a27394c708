package modbusctrl

import (
	"encoding/binary"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/goburrow/modbus"

	"github.com/battmock/battmock/internal/battery"
)

// fake service for tests
type spyBatteryService struct {
	mu sync.Mutex
	s  battery.Snapshot

	// record calls
	setBrightnessCalls []float64
	setCPULoadCalls    []float64
	setNetworkCalls    []bool
	setGPSCalls        []bool
	setBackgroundCalls []bool
	setAmbientCalls    []float64
	resetCalls         []float64
}

func (f *spyBatteryService) Get() battery.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.s
}
func (f *spyBatteryService) SetBrightness(v float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.s.Usage.Brightness = v
	f.setBrightnessCalls = append(f.setBrightnessCalls, v)
}
func (f *spyBatteryService) SetCPULoad(v float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.s.Usage.CPULoad = v
	f.setCPULoadCalls = append(f.setCPULoadCalls, v)
}
func (f *spyBatteryService) SetNetwork(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.s.Usage.Network = on
	f.setNetworkCalls = append(f.setNetworkCalls, on)
}
func (f *spyBatteryService) SetGPS(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.s.Usage.GPS = on
	f.setGPSCalls = append(f.setGPSCalls, on)
}
func (f *spyBatteryService) SetBackground(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.s.Usage.Background = on
	f.setBackgroundCalls = append(f.setBackgroundCalls, on)
}
func (f *spyBatteryService) SetAmbient(v float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.s.AmbientTemperature = v
	f.setAmbientCalls = append(f.setAmbientCalls, v)
}
func (f *spyBatteryService) Reset(soc float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.s.SOC = soc
	f.resetCalls = append(f.resetCalls, soc)
}

func findFreeTCPAddr(t *testing.T) string {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("free port: %v", err)
	}
	a := l.Addr().String()
	_ = l.Close()
	return a
}

const SyncInterval = 50 * time.Millisecond

func TestModbusControllerHandlers(t *testing.T) {
	fs := &spyBatteryService{}
	fs.s = battery.Snapshot{
		SOC:                0.875,
		Temperature:        31.25,
		AmbientTemperature: 25.5,
		Power:              1.55,
		Current:            0.403,
		EffectiveCapacity:  3.52,
		Usage: battery.UsageInput{
			Brightness: 0.6,
			CPULoad:    0.5,
			Network:    true,
			GPS:        false,
			Background: true,
		},
	}

	addr := findFreeTCPAddr(t)

	ctrl, err := New(fs, Config{
		DeviceID:     "dev",
		Addr:         addr,
		UnitID:       1,
		SyncInterval: SyncInterval,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := t.Context()
	go func() {
		_ = ctrl.Run(ctx)
	}()

	time.Sleep(SyncInterval)

	handler := modbus.NewTCPClientHandler(addr)
	if err := handler.Connect(); err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer handler.Close()
	client := modbus.NewClient(handler)

	// Read holding registers 0..4
	res, err := client.ReadHoldingRegisters(0, 5)
	if err != nil {
		t.Fatalf("read holding: %v", err)
	}
	if len(res) != 10 {
		t.Fatalf("expected 10 bytes got %d", len(res))
	}
	get := func(i int) uint16 { return binary.BigEndian.Uint16(res[i*2 : i*2+2]) }
	if get(hrSOC) != 8750 {
		t.Fatalf("soc mismatch: got %d", get(hrSOC))
	}
	if get(hrBrightness) != 600 {
		t.Fatalf("brightness mismatch: got %d", get(hrBrightness))
	}
	if get(hrTemperature) != encodeTemp(31.25) {
		t.Fatalf("temperature mismatch: got %d", get(hrTemperature))
	}
	if get(hrPower) != 1550 {
		t.Fatalf("power mismatch: got %d", get(hrPower))
	}
	if decodeTemp(encodeTemp(31.25)) != 31.25 {
		t.Fatalf("temperature codec not symmetric")
	}

	// Read input registers 0..2
	res, err = client.ReadInputRegisters(0, 3)
	if err != nil {
		t.Fatalf("read input: %v", err)
	}
	iget := func(i int) uint16 { return binary.BigEndian.Uint16(res[i*2 : i*2+2]) }
	if iget(irAmbient) != encodeTemp(25.5) {
		t.Fatalf("ambient mismatch: got %d", iget(irAmbient))
	}
	if iget(irCurrent) != 403 {
		t.Fatalf("current mismatch: got %d", iget(irCurrent))
	}
	if iget(irCapacity) != 3520 {
		t.Fatalf("capacity mismatch: got %d", iget(irCapacity))
	}

	// Read coils 0..2: network on, gps off, background on
	coils, err := client.ReadCoils(0, 3)
	if err != nil {
		t.Fatalf("read coils: %v", err)
	}
	if len(coils) != 1 || coils[0] != 0b101 {
		t.Fatalf("coil bits mismatch: got %v", coils)
	}

	// Write brightness register
	if _, err := client.WriteSingleRegister(hrBrightness, 900); err != nil {
		t.Fatalf("write register: %v", err)
	}
	time.Sleep(SyncInterval)
	fs.mu.Lock()
	if len(fs.setBrightnessCalls) == 0 || fs.setBrightnessCalls[len(fs.setBrightnessCalls)-1] != 0.9 {
		fs.mu.Unlock()
		t.Fatalf("setBrightness not called")
	}
	fs.mu.Unlock()

	// Write multiple registers: brightness + cpu load together
	if _, err := client.WriteMultipleRegisters(hrBrightness, 2, []byte{0x01, 0xF4, 0x02, 0x58}); err != nil {
		t.Fatalf("write multiple: %v", err)
	}
	time.Sleep(SyncInterval)
	fs.mu.Lock()
	if len(fs.setCPULoadCalls) == 0 || fs.setCPULoadCalls[len(fs.setCPULoadCalls)-1] != 0.6 {
		fs.mu.Unlock()
		t.Fatalf("setCPULoad not called")
	}
	fs.mu.Unlock()

	// Write coil 1: gps on
	if _, err := client.WriteSingleCoil(1, 0xFF00); err != nil {
		t.Fatalf("write coil: %v", err)
	}
	time.Sleep(SyncInterval)
	fs.mu.Lock()
	if len(fs.setGPSCalls) == 0 || fs.setGPSCalls[len(fs.setGPSCalls)-1] != true {
		fs.mu.Unlock()
		t.Fatalf("setGPS not called")
	}
	fs.mu.Unlock()

	// Writes to read-only registers are rejected.
	if _, err := client.WriteSingleRegister(hrSOC, 1); err == nil {
		t.Fatalf("expected error writing soc register")
	}
}
