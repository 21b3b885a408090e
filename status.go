package healthnotes

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"health-analyzer/daily"
	"health-analyzer/trend"
)

const trainingStatusSchemaVersion = "training_status_v1"

// statusWeeks is how many trailing weeks the status view summarizes.
const statusWeeks = 4

// TrainingStatus is a compact semantic view of the most recent training state.
type TrainingStatus struct {
	SchemaVersion string       `json:"schema_version"`
	AsOf          *civil.Date  `json:"as_of,omitempty"`
	ACWR          *float64     `json:"acwr,omitempty"`
	ACWRStatus    trend.Status `json:"acwr_status"`
	Band          trend.Band   `json:"band,omitempty"`
	Fitness       float64      `json:"fitness"`
	Fatigue       float64      `json:"fatigue"`
	TSB           float64      `json:"tsb"`
	Form          string       `json:"form,omitempty"`
	Weeks         []WeekBlock  `json:"weeks,omitempty"`
	Label         string       `json:"label"`
}

// WeekBlock totals one Monday-based calendar week.
type WeekBlock struct {
	WeekStart       civil.Date `json:"week_start"`
	Workouts        int        `json:"workouts"`
	DistanceKM      float64    `json:"distance_km"`
	DurationMinutes float64    `json:"duration_minutes"`
	// DistanceChangePct compares with the previous week; zero for the first week or after an empty week.
	DistanceChangePct float64 `json:"distance_change_pct"`
}

// InferTrainingStatus reads the last day of the trend series and the most
// recent weeks of workouts.
func InferTrainingStatus(workouts []WorkoutAnalysis, acwr []trend.Point, stress []trend.StressPoint, loc *time.Location) TrainingStatus {
	ts := TrainingStatus{
		SchemaVersion: trainingStatusSchemaVersion,
		ACWRStatus:    trend.StatusUnavailable,
	}
	if len(acwr) > 0 {
		last := acwr[len(acwr)-1]
		d := last.Date
		ts.AsOf = &d
		ts.ACWRStatus = last.Status
		if last.Value != nil {
			v := *last.Value
			ts.ACWR = &v
			ts.Band = trend.BandFor(v)
		}
	}
	if len(stress) > 0 {
		last := stress[len(stress)-1]
		ts.Fitness, ts.Fatigue, ts.TSB = last.Fitness, last.Fatigue, last.TSB
		ts.Form = trend.FormDescription(last.TSB)
		if ts.AsOf == nil {
			d := last.Date
			ts.AsOf = &d
		}
	}
	if ts.AsOf != nil {
		ts.Weeks = buildWeeks(workouts, *ts.AsOf, loc)
	}
	ts.Label = statusLabel(ts)
	return ts
}

func buildWeeks(workouts []WorkoutAnalysis, asOf civil.Date, loc *time.Location) []WeekBlock {
	lastWeek := daily.PeriodWeek.PeriodStart(asOf)
	firstWeek := lastWeek.AddDays(-7 * (statusWeeks - 1))
	weeks := make([]WeekBlock, statusWeeks)
	for i := range weeks {
		weeks[i].WeekStart = firstWeek.AddDays(7 * i)
	}
	for _, wa := range workouts {
		d := daily.DateOf(wa.Workout.Start, loc)
		if d.Before(firstWeek) || d.After(asOf) {
			continue
		}
		i := d.DaysSince(firstWeek) / 7
		weeks[i].Workouts++
		weeks[i].DurationMinutes += wa.Workout.Duration.Minutes()
		if wa.Distance.Value != nil {
			weeks[i].DistanceKM += *wa.Distance.Value
		}
	}
	for i := 1; i < len(weeks); i++ {
		if prev := weeks[i-1].DistanceKM; prev > 0 {
			weeks[i].DistanceChangePct = (weeks[i].DistanceKM - prev) / prev * 100
		}
	}
	return weeks
}

func statusLabel(ts TrainingStatus) string {
	switch ts.ACWRStatus {
	case trend.StatusInsufficientHistory:
		return "Building history: fewer than 28 days of workload recorded"
	case trend.StatusUnavailable:
		return "No recent workload"
	}
	var load string
	switch ts.Band {
	case trend.BandUnderTrained:
		load = "Detraining"
	case trend.BandOptimal:
		load = "Productive"
	case trend.BandElevated:
		load = "Overreaching"
	default:
		load = "High injury risk"
	}
	return fmt.Sprintf("%s (ACWR %.2f), %s", load, *ts.ACWR, ts.Form)
}
