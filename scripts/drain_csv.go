package main

import (
	"fmt"
	"os"

	"github.com/battmock/battmock/internal/battery"
	"github.com/battmock/battmock/internal/export"
)

// RunDrainDemo simulates a two-segment day (heavy use for the first hour,
// lighter use after) and dumps the trajectory to a CSV file.
func RunDrainDemo() error {
	b, err := battery.New(battery.DefaultParams())
	if err != nil {
		return fmt.Errorf("failed to create battery: %v", err)
	}

	schedule := []battery.UsageSegment{
		{
			Start: 0,
			End:   3600,
			Usage: battery.UsageInput{Brightness: 0.9, CPULoad: 0.8, Network: true, GPS: true, Background: true},
		},
		{
			Start: 3600,
			End:   7200,
			Usage: battery.UsageInput{Brightness: 0.4, CPULoad: 0.3, Network: true, GPS: false, Background: true},
		},
	}

	traj, err := b.Simulate(7200, 60, schedule, battery.FixedAmbient(25))
	if err != nil {
		return fmt.Errorf("simulation failed: %v", err)
	}

	path := export.ResolveCSVPath()
	if err := export.WriteCSV(path, traj); err != nil {
		return fmt.Errorf("failed to write CSV: %v", err)
	}

	sum := battery.Summarize(traj, b.Params())
	fmt.Printf("wrote %d steps to %s\n", sum.Steps, path)
	fmt.Printf("final SOC %.4f, final temp %.2f C\n", sum.FinalSOC, sum.FinalTemperature)
	fmt.Printf("mean power %.3f W, estimated time to empty %.0f s\n", sum.MeanPower, sum.TimeToEmpty)
	return nil
}

func main() {
	if err := RunDrainDemo(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
