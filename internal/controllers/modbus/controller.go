package modbusctrl

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	mbserver "github.com/tbrandon/mbserver"

	"github.com/battmock/battmock/internal/ports"
)

// Config for the Modbus controller.
type Config struct {
	DeviceID string
	Addr     string
	UnitID   byte // UnitID (Modbus slave/unit ID). Use an integer 1..247.
	// SyncInterval retained in config to preserve API but unused when reads are handled by custom handlers.
	SyncInterval time.Duration
}

// Register map.
//
// Holding registers (read via fn 3, registers 1..2 writable via fn 6/16):
//
//	0: state of charge, scaled x10000
//	1: screen brightness, scaled x1000
//	2: cpu load, scaled x1000
//	3: body temperature in centi-degrees C, signed
//	4: total draw in milliwatts
//
// Input registers (fn 4):
//
//	0: ambient temperature in centi-degrees C, signed
//	1: current draw in milliamps
//	2: effective capacity in milliamp-hours
//
// Coils 0..2 (fn 1/5): network, gps, background.
const (
	hrSOC = iota
	hrBrightness
	hrCPULoad
	hrTemperature
	hrPower
	hrCount
)

const (
	irAmbient = iota
	irCurrent
	irCapacity
	irCount
)

const coilCount = 3

type Controller struct {
	svc ports.BatteryService
	cfg Config

	serv *mbserver.Server
}

func New(svc ports.BatteryService, cfg Config) (*Controller, error) {
	if cfg.UnitID == 0 {
		return nil, errors.New("modbus: UnitID is required (non-zero)")
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:1502"
	}
	// SyncInterval is optional; no polling is required because reads are handled directly.
	return &Controller{svc: svc, cfg: cfg}, nil
}

// Run starts the Modbus server and registers handlers that apply writes immediately
// and serve reads directly from the battery service. It blocks until ctx is canceled.
func (c *Controller) Run(ctx context.Context) error {
	serv := mbserver.NewServer()
	c.serv = serv

	// Register handlers BEFORE starting the TCP listener to avoid races inside mbserver
	// between handler registration and the server's goroutines.

	// Read Coils (function 1) - usage flags.
	serv.RegisterFunctionHandler(1, func(s *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
		data := frame.GetData()
		if len(data) < 4 {
			return []byte{}, &mbserver.IllegalDataValue
		}
		start := int(binary.BigEndian.Uint16(data[0:2]))
		qty := int(binary.BigEndian.Uint16(data[2:4]))
		if qty == 0 || qty > 2000 {
			return []byte{}, &mbserver.IllegalDataValue
		}
		if start < 0 || start+qty > coilCount {
			return []byte{}, &mbserver.IllegalDataAddress
		}
		snap := c.svc.Get()
		flags := [coilCount]bool{snap.Usage.Network, snap.Usage.GPS, snap.Usage.Background}
		coilByte := byte(0)
		for i := 0; i < qty; i++ {
			if flags[start+i] {
				coilByte |= 1 << i
			}
		}
		// response: byte count (1) + coil bytes
		return []byte{1, coilByte}, &mbserver.Success
	})

	// Read Holding Registers (function 3).
	serv.RegisterFunctionHandler(3, func(s *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
		data := frame.GetData()
		if len(data) < 4 {
			return []byte{}, &mbserver.IllegalDataValue
		}
		start := int(binary.BigEndian.Uint16(data[0:2]))
		qty := int(binary.BigEndian.Uint16(data[2:4]))
		if qty == 0 || qty > 125 {
			return []byte{}, &mbserver.IllegalDataValue
		}
		if start < 0 || start+qty > hrCount {
			return []byte{}, &mbserver.IllegalDataAddress
		}
		snap := c.svc.Get()
		regs := make([]uint16, 0, qty)
		for i := 0; i < qty; i++ {
			switch start + i {
			case hrSOC:
				regs = append(regs, encodeUnit(snap.SOC, socScale))
			case hrBrightness:
				regs = append(regs, encodeUnit(snap.Usage.Brightness, unitScale))
			case hrCPULoad:
				regs = append(regs, encodeUnit(snap.Usage.CPULoad, unitScale))
			case hrTemperature:
				regs = append(regs, encodeTemp(snap.Temperature))
			case hrPower:
				regs = append(regs, encodeMilli(snap.Power))
			default:
				return []byte{}, &mbserver.IllegalDataAddress
			}
		}
		byteCount := len(regs) * 2
		resp := make([]byte, 1+byteCount)
		resp[0] = byte(byteCount)
		for i, r := range regs {
			binary.BigEndian.PutUint16(resp[1+i*2:1+i*2+2], r)
		}
		return resp, &mbserver.Success
	})

	// Read Input Registers (function 4).
	serv.RegisterFunctionHandler(4, func(s *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
		data := frame.GetData()
		if len(data) < 4 {
			return []byte{}, &mbserver.IllegalDataValue
		}
		start := int(binary.BigEndian.Uint16(data[0:2]))
		qty := int(binary.BigEndian.Uint16(data[2:4]))
		if qty == 0 || qty > 125 {
			return []byte{}, &mbserver.IllegalDataValue
		}
		if start < 0 || start+qty > irCount {
			return []byte{}, &mbserver.IllegalDataAddress
		}
		snap := c.svc.Get()
		regs := make([]uint16, 0, qty)
		for i := 0; i < qty; i++ {
			switch start + i {
			case irAmbient:
				regs = append(regs, encodeTemp(snap.AmbientTemperature))
			case irCurrent:
				regs = append(regs, encodeMilli(snap.Current))
			case irCapacity:
				regs = append(regs, encodeMilli(snap.EffectiveCapacity))
			default:
				return []byte{}, &mbserver.IllegalDataAddress
			}
		}
		byteCount := len(regs) * 2
		resp := make([]byte, 1+byteCount)
		resp[0] = byte(byteCount)
		for i, r := range regs {
			binary.BigEndian.PutUint16(resp[1+i*2:1+i*2+2], r)
		}
		return resp, &mbserver.Success
	})

	// Write Single Coil (function 5) - usage flags.
	serv.RegisterFunctionHandler(5, func(s *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
		data := frame.GetData()
		if len(data) < 4 {
			return []byte{}, &mbserver.IllegalDataValue
		}
		addr := binary.BigEndian.Uint16(data[0:2])
		value := binary.BigEndian.Uint16(data[2:4])

		var on bool
		switch value {
		case 0x0000:
			on = false
		case 0xFF00:
			on = true
		default:
			return []byte{}, &mbserver.IllegalDataValue
		}

		switch addr {
		case 0:
			c.svc.SetNetwork(on)
		case 1:
			c.svc.SetGPS(on)
		case 2:
			c.svc.SetBackground(on)
		default:
			return []byte{}, &mbserver.IllegalDataAddress
		}

		// echo request (address + value)
		resp := make([]byte, 4)
		copy(resp, data[0:4])
		return resp, &mbserver.Success
	})

	// Write Single Register (function 6) - brightness and cpu load only.
	serv.RegisterFunctionHandler(6, func(s *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
		data := frame.GetData()
		if len(data) < 4 {
			return []byte{}, &mbserver.IllegalDataValue
		}
		addr := binary.BigEndian.Uint16(data[0:2])
		value := binary.BigEndian.Uint16(data[2:4])

		if exc := c.writeRegister(int(addr), value); exc != nil {
			return []byte{}, exc
		}

		resp := make([]byte, 4)
		copy(resp, data[0:4])
		return resp, &mbserver.Success
	})

	// Write Multiple Registers (function 16)
	serv.RegisterFunctionHandler(16, func(s *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
		d := frame.GetData()
		if len(d) < 5 {
			return []byte{}, &mbserver.IllegalDataValue
		}
		start := binary.BigEndian.Uint16(d[0:2])
		quantity := binary.BigEndian.Uint16(d[2:4])
		byteCount := int(d[4])
		if byteCount != int(quantity)*2 || len(d) < 5+byteCount {
			return []byte{}, &mbserver.IllegalDataValue
		}
		for i := 0; i < int(quantity); i++ {
			val := binary.BigEndian.Uint16(d[5+i*2 : 5+i*2+2])
			if exc := c.writeRegister(int(start)+i, val); exc != nil {
				return []byte{}, exc
			}
		}

		resp := make([]byte, 4)
		binary.BigEndian.PutUint16(resp[0:2], start)
		binary.BigEndian.PutUint16(resp[2:4], quantity)
		return resp, &mbserver.Success
	})

	// Now start listening after all handlers are registered.
	if err := serv.ListenTCP(c.cfg.Addr); err != nil {
		return fmt.Errorf("mbserver listen tcp %s: %w", c.cfg.Addr, err)
	}

	// Block until ctx.Done()
	<-ctx.Done()
	serv.Close()
	return ctx.Err()
}

func (c *Controller) writeRegister(addr int, value uint16) *mbserver.Exception {
	switch addr {
	case hrBrightness:
		c.svc.SetBrightness(decodeUnit(value, unitScale))
	case hrCPULoad:
		c.svc.SetCPULoad(decodeUnit(value, unitScale))
	default:
		return &mbserver.IllegalDataAddress
	}
	return nil
}

const (
	TemperatureScale = 100
	unitScale        = 1000
	socScale         = 10000
)

func encodeTemp(v float64) uint16 {
	r := min(max(int(math.Round(v*float64(TemperatureScale))), math.MinInt16), math.MaxInt16)
	return uint16(int16(r))
}

func decodeTemp(u uint16) float64 {
	i := int16(u)
	return float64(i) / float64(TemperatureScale)
}

// encodeUnit scales a [0,1] quantity into an unsigned register.
func encodeUnit(v float64, scale int) uint16 {
	r := min(max(int(math.Round(v*float64(scale))), 0), math.MaxUint16)
	return uint16(r)
}

func decodeUnit(u uint16, scale int) float64 {
	return float64(u) / float64(scale)
}

// encodeMilli converts a base unit (W, A, Ah) into milli-units.
func encodeMilli(v float64) uint16 {
	r := min(max(int(math.Round(v*1000)), 0), math.MaxUint16)
	return uint16(r)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
