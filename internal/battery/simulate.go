package battery

import "math"

// TrajectoryPoint is one simulated step: the elapsed time at which the step
// started plus the post-step snapshot.
type TrajectoryPoint struct {
	Time float64
	Snapshot
}

// Trajectory is the ordered output of one simulation run.
type Trajectory []TrajectoryPoint

// Simulate drives the battery for duration seconds in fixed steps of dt,
// resolving the workload and ambient temperature per step from the given
// schedules. Either schedule may be nil: usage falls back to DefaultUsage and
// ambient stays at the battery's current value.
//
// The loop runs exactly ceil(duration/dt) steps with times 0, dt, 2*dt, ...
// so the entry count cannot drift with floating-point accumulation; when
// duration is not a multiple of dt the last step overshoots slightly in
// simulated time.
func (b *Battery) Simulate(duration, dt float64, usage []UsageSegment, ambient AmbientSchedule) (Trajectory, error) {
	if dt <= 0 {
		return nil, ErrNonPositiveStep
	}

	steps := int(math.Ceil(duration / dt))
	if steps < 0 {
		steps = 0
	}

	traj := make(Trajectory, 0, steps)
	for i := 0; i < steps; i++ {
		t := float64(i) * dt

		var override *float64
		if ambient != nil {
			if v, ok := ambient.AmbientAt(t); ok {
				override = &v
			}
		}

		snap, err := b.Step(dt, UsageAt(t, usage), override)
		if err != nil {
			return nil, err
		}
		traj = append(traj, TrajectoryPoint{Time: t, Snapshot: snap})
	}
	return traj, nil
}
