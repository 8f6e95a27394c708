package main

import (
	"github.com/spf13/cobra"

	"github.com/battmock/battmock/internal/battery"
	"github.com/battmock/battmock/internal/export"
	"github.com/battmock/battmock/internal/logging"
	"github.com/battmock/battmock/internal/scenario"
)

func newSimulateCmd() *cobra.Command {
	var (
		scenarioPath string
		outPath      string
		duration     float64
		dt           float64
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a drain scenario offline and write the trajectory as CSV",
		RunE: func(_ *cobra.Command, _ []string) error {
			log := logging.New("simulate")

			sc, err := scenario.Load(scenarioPath)
			if err != nil {
				return err
			}
			if duration > 0 {
				sc.DurationS = duration
			}
			if dt > 0 {
				sc.DtS = dt
			}

			b, err := battery.New(sc.Battery.Params())
			if err != nil {
				return err
			}

			traj, err := b.Simulate(sc.DurationS, sc.DtS, sc.Segments(), sc.Ambient.Schedule())
			if err != nil {
				return err
			}

			if outPath == "" {
				outPath = export.ResolveCSVPath()
			}
			if err := export.WriteCSV(outPath, traj); err != nil {
				return err
			}

			sum := battery.Summarize(traj, b.Params())
			log.Info().
				Str("out", outPath).
				Int("steps", sum.Steps).
				Float64("final_soc", sum.FinalSOC).
				Float64("final_temp_c", sum.FinalTemperature).
				Float64("mean_power_w", sum.MeanPower).
				Float64("time_to_empty_s", sum.TimeToEmpty).
				Msg("simulation complete")
			return nil
		},
	}

	cmd.Flags().StringVar(&scenarioPath, "scenario", "", "scenario file (.yaml/.yml/.json); defaults to a two-hour run")
	cmd.Flags().StringVar(&outPath, "out", "", "output CSV path (default: $BATTMOCK_CSV_PATH or output/trajectory_demo.csv)")
	cmd.Flags().Float64Var(&duration, "duration", 0, "override scenario duration in seconds")
	cmd.Flags().Float64Var(&dt, "dt", 0, "override scenario step in seconds")
	return cmd
}
