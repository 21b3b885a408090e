package trend

import (
	"health-analyzer/healthexport"
)

// EfficiencyBasis names the output side of an efficiency factor.
type EfficiencyBasis string

const (
	BasisPower EfficiencyBasis = "power"
	BasisSpeed EfficiencyBasis = "speed"
)

// Efficiency is output per heartbeat for one workout. Value is nil when unavailable.
type Efficiency struct {
	WorkoutID string          `json:"workout_id"`
	Value     *float64        `json:"value,omitempty"`
	Basis     EfficiencyBasis `json:"basis,omitempty"`
	Source    string          `json:"source,omitempty"`
	Status    Status          `json:"status"`
}

// EfficiencyFactor divides mean running power by mean heart rate over the
// workout window, or mean speed in m/min by mean heart rate when no power was
// recorded. Samples come from the workout's own source when that source
// recorded heart rate in the window; otherwise every source is used.
func EfficiencyFactor(w healthexport.Workout, samples []healthexport.Sample) Efficiency {
	out := Efficiency{WorkoutID: w.ID, Status: StatusUnavailable}

	source := ""
	if w.Source != "" && hasSamples(w, samples, healthexport.MetricHeartRate, w.Source) {
		source = w.Source
	}
	out.Source = source

	hr, ok := windowMean(w, samples, healthexport.MetricHeartRate, source)
	if !ok || hr <= 0 {
		return out
	}
	if power, ok := windowMean(w, samples, healthexport.MetricRunningPower, source); ok {
		v := power / hr
		out.Value, out.Basis, out.Status = &v, BasisPower, StatusOK
		return out
	}
	if speed, ok := windowMean(w, samples, healthexport.MetricRunningSpeed, source); ok {
		v := speed * 60 / hr
		out.Value, out.Basis, out.Status = &v, BasisSpeed, StatusOK
	}
	return out
}

func inWindow(w healthexport.Workout, s healthexport.Sample) bool {
	return !s.Start.Before(w.Start) && !s.Start.After(w.End)
}

func hasSamples(w healthexport.Workout, samples []healthexport.Sample, metric healthexport.MetricType, source string) bool {
	for _, s := range samples {
		if s.Type == metric && s.Source == source && inWindow(w, s) {
			return true
		}
	}
	return false
}

func windowMean(w healthexport.Workout, samples []healthexport.Sample, metric healthexport.MetricType, source string) (float64, bool) {
	sum, n := 0.0, 0
	for _, s := range samples {
		if s.Type != metric || !inWindow(w, s) {
			continue
		}
		if source != "" && s.Source != source {
			continue
		}
		sum += s.Value
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
