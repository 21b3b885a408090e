package daily

import (
	"time"

	"health-analyzer/healthexport"
)

// WorkloadKind picks the per-workout load unit.
type WorkloadKind int

const (
	// WorkloadDistance loads by kilometers; workouts without a distance contribute nothing.
	WorkloadDistance WorkloadKind = iota
	// WorkloadDuration loads by minutes.
	WorkloadDuration
)

func (k WorkloadKind) String() string {
	if k == WorkloadDuration {
		return "workload_minutes"
	}
	return "workload_km"
}

// WorkloadFromWorkouts sums workout load per start date. Rest days are absent.
func WorkloadFromWorkouts(workouts []healthexport.Workout, kind WorkloadKind, loc *time.Location) []Summary {
	byDay := make(map[string]int)
	var out []Summary
	for _, w := range workouts {
		var load float64
		switch kind {
		case WorkloadDuration:
			load = w.Duration.Minutes()
		default:
			if w.TotalDistanceKM == nil {
				continue
			}
			load = *w.TotalDistanceKM
		}
		d := DateOf(w.Start, loc)
		key := d.String()
		if i, ok := byDay[key]; ok {
			out[i].Value += load
			out[i].Count++
			continue
		}
		byDay[key] = len(out)
		out = append(out, Summary{Date: d, Metric: kind.String(), Value: load, Count: 1})
	}
	sortByDate(out)
	return out
}
