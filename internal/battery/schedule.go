package battery

// UsageSegment applies a workload over the half-open window [Start, End),
// in seconds of simulated time. End is exclusive so adjacent segments never
// overlap at the boundary.
type UsageSegment struct {
	Start float64
	End   float64
	Usage UsageInput
}

// UsageAt resolves the workload in effect at time t. Segments are scanned in
// order and the first match wins; callers order overlapping segments
// accordingly. An empty schedule, or a t outside every segment, yields
// DefaultUsage.
func UsageAt(t float64, schedule []UsageSegment) UsageInput {
	for _, seg := range schedule {
		if seg.Start <= t && t < seg.End {
			return seg.Usage
		}
	}
	return DefaultUsage()
}

// AmbientSchedule resolves the ambient temperature in effect at time t.
// The second return is false when the schedule has nothing to say for t,
// in which case the battery keeps its current ambient.
type AmbientSchedule interface {
	AmbientAt(t float64) (float64, bool)
}

// FixedAmbient applies one temperature uniformly for the whole run.
type FixedAmbient float64

func (f FixedAmbient) AmbientAt(float64) (float64, bool) { return float64(f), true }

// AmbientSegment overrides the ambient temperature over [Start, End).
type AmbientSegment struct {
	Start float64
	End   float64
	Value float64
}

// AmbientSegments is a piecewise ambient schedule, first match wins.
type AmbientSegments []AmbientSegment

func (s AmbientSegments) AmbientAt(t float64) (float64, bool) {
	for _, seg := range s {
		if seg.Start <= t && t < seg.End {
			return seg.Value, true
		}
	}
	return 0, false
}
