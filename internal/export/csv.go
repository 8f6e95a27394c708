// Package export writes simulation trajectories to delimited files consumed
// by external analysis tooling. Column order is part of the contract.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/battmock/battmock/internal/battery"
)

var columns = []string{
	"time_s", "SOC", "temp_C", "P_W", "I_A", "Q_eff_Ah",
	"brightness", "cpu_load", "network", "gps", "background", "ambient_T",
	"P_screen_W", "P_cpu_W", "P_network_W", "P_gps_W", "P_background_W",
}

// WriteCSV writes one row per simulated step to path, creating the parent
// directory if needed. Booleans are serialized as 0/1; floats use the
// shortest exact representation so a re-read reproduces every value.
func WriteCSV(path string, traj battery.Trajectory) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		_ = f.Close()
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, p := range traj {
		if err := w.Write(record(p)); err != nil {
			_ = f.Close()
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("flush csv: %w", err)
	}
	return f.Close()
}

// ReadCSV parses a file previously written by WriteCSV back into a
// trajectory.
func ReadCSV(path string) (battery.Trajectory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("read csv: missing header")
	}
	if len(rows[0]) != len(columns) {
		return nil, fmt.Errorf("read csv: expected %d columns, got %d", len(columns), len(rows[0]))
	}

	traj := make(battery.Trajectory, 0, len(rows)-1)
	for i, row := range rows[1:] {
		p, err := parseRecord(row)
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", i+1, err)
		}
		traj = append(traj, p)
	}
	return traj, nil
}

func record(p battery.TrajectoryPoint) []string {
	return []string{
		formatFloat(p.Time),
		formatFloat(p.SOC),
		formatFloat(p.Temperature),
		formatFloat(p.Power),
		formatFloat(p.Current),
		formatFloat(p.EffectiveCapacity),
		formatFloat(p.Usage.Brightness),
		formatFloat(p.Usage.CPULoad),
		formatBool(p.Usage.Network),
		formatBool(p.Usage.GPS),
		formatBool(p.Usage.Background),
		formatFloat(p.AmbientTemperature),
		formatFloat(p.Breakdown.Screen),
		formatFloat(p.Breakdown.CPU),
		formatFloat(p.Breakdown.Network),
		formatFloat(p.Breakdown.GPS),
		formatFloat(p.Breakdown.Background),
	}
}

func parseRecord(row []string) (battery.TrajectoryPoint, error) {
	var p battery.TrajectoryPoint
	if len(row) != len(columns) {
		return p, fmt.Errorf("expected %d fields, got %d", len(columns), len(row))
	}

	floats := make([]float64, len(row))
	var err error
	for i, s := range row {
		switch i {
		case 8, 9, 10: // boolean columns
			continue
		default:
			if floats[i], err = strconv.ParseFloat(s, 64); err != nil {
				return p, fmt.Errorf("column %s: %w", columns[i], err)
			}
		}
	}

	bools := make([]bool, 3)
	for i, col := range []int{8, 9, 10} {
		if bools[i], err = parseBool(row[col]); err != nil {
			return p, fmt.Errorf("column %s: %w", columns[col], err)
		}
	}

	p.Time = floats[0]
	p.SOC = floats[1]
	p.Temperature = floats[2]
	p.Power = floats[3]
	p.Current = floats[4]
	p.EffectiveCapacity = floats[5]
	p.Usage = battery.UsageInput{
		Brightness: floats[6],
		CPULoad:    floats[7],
		Network:    bools[0],
		GPS:        bools[1],
		Background: bools[2],
	}
	p.AmbientTemperature = floats[11]
	p.Breakdown = battery.PowerBreakdown{
		Screen:     floats[12],
		CPU:        floats[13],
		Network:    floats[14],
		GPS:        floats[15],
		Background: floats[16],
	}
	return p, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatBool(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func parseBool(s string) (bool, error) {
	switch s {
	case "1":
		return true, nil
	case "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean %q", s)
	}
}
