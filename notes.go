package healthnotes

import (
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"health-analyzer/healthexport"
	"health-analyzer/trend"
)

// recentWorkouts bounds the per-workout section of the notes.
const recentWorkouts = 5

// BuildTrainingNotes turns an analysis into a readable training summary.
func BuildTrainingNotes(a *Analysis) string {
	if a == nil {
		return ""
	}
	p := message.NewPrinter(language.English)
	var b strings.Builder

	if a.AsOf != nil {
		fmt.Fprintf(&b, "Health summary as of %s (range %s)\n", a.AsOf, a.Range)
	} else {
		fmt.Fprintf(&b, "Health summary (range %s)\n", a.Range)
	}
	p.Fprintf(
		&b,
		"Samples %d | Workouts %d | Skipped %d\n",
		a.Stats.Samples,
		a.Stats.Workouts,
		a.Stats.SkippedTotal(),
	)
	if len(a.OrphanTracks) > 0 {
		fmt.Fprintf(&b, "Tracks without a matching workout: %s\n", strings.Join(a.OrphanTracks, ", "))
	}

	b.WriteString("\nTraining Load\n")
	st := a.Status
	switch {
	case st.ACWR != nil:
		fmt.Fprintf(&b, "- ACWR %.2f (%s)\n", *st.ACWR, strings.ReplaceAll(string(st.Band), "_", " "))
	case st.ACWRStatus == trend.StatusInsufficientHistory:
		b.WriteString("- ACWR unavailable: fewer than 28 days of history\n")
	default:
		b.WriteString("- ACWR unavailable: no chronic load\n")
	}
	if len(a.Stress) > 0 {
		fmt.Fprintf(
			&b,
			"- Fitness %.1f | Fatigue %.1f | Form %+.1f: %s\n",
			st.Fitness,
			st.Fatigue,
			st.TSB,
			st.Form,
		)
	}
	for _, w := range st.Weeks {
		fmt.Fprintf(
			&b,
			"- Week of %s: %d workouts, %.1f km, %s",
			w.WeekStart,
			w.Workouts,
			w.DistanceKM,
			formatDuration(w.DurationMinutes*60),
		)
		if w.DistanceChangePct != 0 {
			fmt.Fprintf(&b, " (%+.0f%% distance)", w.DistanceChangePct)
		}
		b.WriteByte('\n')
	}

	if len(a.Workouts) > 0 {
		b.WriteString("\nRecent Workouts\n")
		start := max(0, len(a.Workouts)-recentWorkouts)
		for _, wa := range a.Workouts[start:] {
			b.WriteString("- ")
			b.WriteString(workoutLine(wa))
			b.WriteByte('\n')
		}
	}

	if lines := physiologyLines(a, p); len(lines) > 0 {
		b.WriteString("\nPhysiology\n")
		for _, l := range lines {
			b.WriteString("- ")
			b.WriteString(l)
			b.WriteByte('\n')
		}
	}

	if len(a.Warnings) > 0 {
		b.WriteString("\nData Quality\n")
		for _, w := range a.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}

	b.WriteString("\nCoaching Notes\n- ")
	b.WriteString(coachingAssessment(a))
	b.WriteByte('\n')

	return strings.TrimSpace(b.String())
}

func workoutLine(wa WorkoutAnalysis) string {
	w := wa.Workout
	parts := []string{
		fmt.Sprintf("%s %s", w.Start.Format("2006-01-02 15:04"), w.ActivityType),
		formatDuration(w.Duration.Seconds()),
	}
	if d := wa.Distance.Value; d != nil {
		parts = append(parts, fmt.Sprintf("%.2f km (%s)", *d, wa.Distance.Source))
	} else {
		parts = append(parts, "distance unavailable")
	}
	if wa.AvgPaceMinPerKM != nil && w.ActivityType != healthexport.ActivityCycling {
		parts = append(parts, formatPace(*wa.AvgPaceMinPerKM))
	}
	if wa.AvgHeartRate != nil {
		parts = append(parts, fmt.Sprintf("HR %.0f avg", *wa.AvgHeartRate))
	}
	if ef := wa.Efficiency; ef.Value != nil {
		parts = append(parts, fmt.Sprintf("EF %.2f (%s)", *ef.Value, ef.Basis))
	}
	if wa.AvgVerticalRatio != nil {
		parts = append(parts, fmt.Sprintf("VR %.1f%%", *wa.AvgVerticalRatio))
	}
	return strings.Join(parts, " | ")
}

func physiologyLines(a *Analysis, p *message.Printer) []string {
	var lines []string
	// latest prefers the 7-day average and falls back to the last daily value.
	latest := func(metric healthexport.MetricType) (float64, string, bool) {
		if series := a.Smoothed[metric.String()]; len(series) > 0 {
			return series[len(series)-1].Value, "7-day average", true
		}
		if series := a.Daily[metric.String()]; len(series) > 0 {
			last := series[len(series)-1]
			return last.Value, "daily value " + last.Date.String(), true
		}
		return 0, "", false
	}
	if v, label, ok := latest(healthexport.MetricVO2Max); ok {
		lines = append(lines, fmt.Sprintf("VO2max %.1f mL/min·kg (%s)", v, label))
	}
	if v, label, ok := latest(healthexport.MetricRestingHeartRate); ok {
		lines = append(lines, fmt.Sprintf("Resting HR %.0f bpm (%s)", v, label))
	}
	if v, label, ok := latest(healthexport.MetricHRVSDNN); ok {
		lines = append(lines, fmt.Sprintf("HRV %.0f ms (%s)", v, label))
	}
	if steps := a.Daily[healthexport.MetricStepCount.String()]; len(steps) > 0 {
		total := 0.0
		for _, s := range steps {
			total += s.Value
		}
		lines = append(lines, p.Sprintf("Steps %.0f per day over %d days", total/float64(len(steps)), len(steps)))
	}
	if n := len(a.Sleep); n > 0 {
		total := 0.0
		for _, night := range a.Sleep {
			total += night.TotalSleepHours()
		}
		lines = append(lines, fmt.Sprintf("Sleep %s per night over %d nights", formatDuration(total/float64(n)*3600), n))
	}
	return lines
}

func coachingAssessment(a *Analysis) string {
	st := a.Status
	switch st.Band {
	case trend.BandHighRisk:
		return "Recent load is well above what the last four weeks prepared for; schedule easy days before adding intensity."
	case trend.BandElevated:
		return "Load is climbing faster than fitness; hold volume steady this week."
	case trend.BandUnderTrained:
		return "Load has dropped below the chronic baseline; add volume gradually to avoid losing fitness."
	case trend.BandOptimal:
		if st.TSB < -10 {
			return "Load progression is sound but fatigue is accumulating; plan a lighter day soon."
		}
		return "Load progression is in the productive range; keep building consistently."
	}
	if len(a.Workouts) == 0 {
		return "No workouts recorded; trends rely on daily metrics only."
	}
	return "Keep recording workouts to establish a chronic load baseline."
}

func formatDuration(seconds float64) string {
	if seconds <= 0 {
		return "0s"
	}
	s := int(math.Round(seconds))
	h := s / 3600
	m := (s % 3600) / 60
	sec := s % 60
	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, sec)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%02ds", m, sec)
	}
	return fmt.Sprintf("%ds", sec)
}

func formatPace(minPerKM float64) string {
	d := time.Duration(math.Round(minPerKM*60)) * time.Second
	return fmt.Sprintf("%d:%02d /km", int(d.Minutes()), int(d.Seconds())%60)
}
