package battery

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// tteWindow is the number of trailing steps averaged for the time-to-empty
// estimate.
const tteWindow = 5

// Summary condenses a trajectory into run-level figures.
type Summary struct {
	Steps            int
	FinalSOC         float64
	FinalTemperature float64
	MeanPower        float64 // W
	MeanCurrent      float64 // A
	// TimeToEmpty is a rough projection in seconds assuming the trailing
	// mean current holds. +Inf when that current is effectively zero.
	TimeToEmpty float64
}

// Summarize computes run statistics for a trajectory produced by Simulate.
// The zero Summary is returned for an empty trajectory.
func Summarize(traj Trajectory, params Params) Summary {
	if len(traj) == 0 {
		return Summary{}
	}

	powers := make([]float64, len(traj))
	currents := make([]float64, len(traj))
	for i, p := range traj {
		powers[i] = p.Power
		currents[i] = p.Current
	}

	last := traj[len(traj)-1]
	s := Summary{
		Steps:            len(traj),
		FinalSOC:         last.SOC,
		FinalTemperature: last.Temperature,
		MeanPower:        stat.Mean(powers, nil),
		MeanCurrent:      stat.Mean(currents, nil),
	}

	window := currents
	if len(window) > tteWindow {
		window = window[len(window)-tteWindow:]
	}
	trailing := stat.Mean(window, nil)
	if trailing > 1e-6 {
		remaining := params.QAh * 3600.0 * last.SOC // coulombs left
		s.TimeToEmpty = remaining / trailing
	} else {
		s.TimeToEmpty = math.Inf(1)
	}
	return s
}
