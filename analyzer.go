package healthnotes

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"cloud.google.com/go/civil"

	"health-analyzer/align"
	"health-analyzer/daily"
	"health-analyzer/healthexport"
	"health-analyzer/track"
	"health-analyzer/trend"
)

// DailyMetrics are aggregated when Config.Metrics is empty.
var DailyMetrics = []healthexport.MetricType{
	healthexport.MetricHeartRate,
	healthexport.MetricRestingHeartRate,
	healthexport.MetricHRVSDNN,
	healthexport.MetricVO2Max,
	healthexport.MetricStepCount,
	healthexport.MetricActiveEnergy,
	healthexport.MetricExerciseTime,
	healthexport.MetricDistanceWalkingRunning,
	healthexport.MetricRunningPower,
	healthexport.MetricRunningSpeed,
	healthexport.MetricVerticalOscillation,
	healthexport.MetricGroundContactTime,
	healthexport.MetricStrideLength,
}

// SmoothedMetrics get gap interpolation and a trailing moving average.
var SmoothedMetrics = []healthexport.MetricType{
	healthexport.MetricVO2Max,
	healthexport.MetricRestingHeartRate,
	healthexport.MetricHRVSDNN,
}

// Config controls Analyze. The zero value is usable.
type Config struct {
	// Location assigns calendar dates. Nil keeps each sample's recorded offset.
	Location *time.Location

	// AssociationWindow bounds track-to-workout start distance. Zero uses track.DefaultWindow.
	AssociationWindow time.Duration

	TSB      trend.TSBConfig
	Workload daily.WorkloadKind

	// Range trims every daily and trend series. Anchor ends the window; nil
	// anchors at the date of the latest sample.
	Range  daily.Range
	Anchor *civil.Date

	Metrics []healthexport.MetricType
	Logger  *slog.Logger
}

// WorkoutAnalysis joins a workout with everything derived for it.
type WorkoutAnalysis struct {
	Workout          healthexport.Workout            `json:"workout"`
	Distance         healthexport.DistanceResolution `json:"distance"`
	TrackName        string                          `json:"track_name,omitempty"`
	TrackSummary     *track.Summary                  `json:"track_summary,omitempty"`
	AvgHeartRate     *float64                        `json:"avg_heart_rate_bpm,omitempty"`
	MaxHeartRate     *float64                        `json:"max_heart_rate_bpm,omitempty"`
	AvgPaceMinPerKM  *float64                        `json:"avg_pace_min_per_km,omitempty"`
	AvgVerticalRatio *float64                        `json:"avg_vertical_ratio_pct,omitempty"`
	Efficiency       trend.Efficiency                `json:"efficiency"`
	DynamicsRows     int                             `json:"dynamics_rows"`
	TrackRows        int                             `json:"track_rows"`
	Dynamics         align.Table                     `json:"-"`
	TrackView        align.Table                     `json:"-"`
}

// Analysis is the full derived view of one export.
type Analysis struct {
	AsOf         *civil.Date                `json:"as_of,omitempty"`
	Range        string                     `json:"range"`
	Stats        healthexport.Stats         `json:"stats"`
	Warnings     []string                   `json:"warnings,omitempty"`
	Workouts     []WorkoutAnalysis          `json:"workouts"`
	OrphanTracks []string                   `json:"orphan_tracks,omitempty"`
	Association  track.Association          `json:"-"`
	Daily        map[string][]daily.Summary `json:"daily"`
	Smoothed     map[string][]daily.Summary `json:"smoothed,omitempty"`
	Sleep        []daily.SleepNight         `json:"sleep,omitempty"`
	Workload     []daily.Summary            `json:"workload"`
	ACWR         []trend.Point              `json:"acwr"`
	Stress       []trend.StressPoint        `json:"stress"`
	Status       TrainingStatus             `json:"status"`
	Notes        string                     `json:"notes"`
}

// AnalyzeFile extracts an export file, parses track files and analyzes them.
// Unreadable tracks become warnings; an unreadable export is an error.
func AnalyzeFile(exportPath string, trackPaths []string, cfg Config) (*Analysis, error) {
	f, err := os.Open(exportPath)
	if err != nil {
		return nil, fmt.Errorf("open export file: %w", err)
	}
	defer f.Close()

	export, err := healthexport.Extract(f, healthexport.ExtractOptions{Logger: cfg.Logger})
	if err != nil {
		return nil, fmt.Errorf("extract export: %w", err)
	}
	tracks, warnings := ParseTracks(trackPaths, cfg.Logger)

	analysis := Analyze(export, tracks, cfg)
	analysis.Warnings = append(analysis.Warnings, warnings...)
	return analysis, nil
}

// ParseTracks reads every path, skipping and reporting the ones that fail.
func ParseTracks(paths []string, logger *slog.Logger) ([]*track.Track, []string) {
	logger = loggerOrDiscard(logger)
	var (
		tracks   []*track.Track
		warnings []string
	)
	for _, p := range paths {
		tr, err := track.ParseFile(p)
		if err != nil {
			logger.Warn("skipping track", "path", p, "error", err)
			warnings = append(warnings, fmt.Sprintf("track skipped: %v", err))
			continue
		}
		tracks = append(tracks, tr)
	}
	return tracks, warnings
}

// Analyze derives per-workout, daily and trend views from extracted data.
func Analyze(export *healthexport.Export, tracks []*track.Track, cfg Config) *Analysis {
	logger := loggerOrDiscard(cfg.Logger)
	if export == nil {
		export = &healthexport.Export{}
	}
	metrics := cfg.Metrics
	if len(metrics) == 0 {
		metrics = DailyMetrics
	}

	analysis := &Analysis{
		Range:    cfg.Range.String(),
		Stats:    export.Stats,
		Warnings: healthexport.BuildWarnings(export.Stats),
		Daily:    make(map[string][]daily.Summary, len(metrics)),
	}

	anchor := cfg.Anchor
	if anchor == nil {
		anchor = latestDate(export.Samples, export.Workouts, cfg.Location)
	}
	analysis.AsOf = anchor
	keep := dateFilter(cfg.Range, anchor)

	index := newSampleIndex(export.Samples)
	workouts := append([]healthexport.Workout(nil), export.Workouts...)
	sort.SliceStable(workouts, func(i, j int) bool {
		if !workouts[i].Start.Equal(workouts[j].Start) {
			return workouts[i].Start.Before(workouts[j].Start)
		}
		return workouts[i].ID < workouts[j].ID
	})

	assoc := track.Associate(tracks, workouts, cfg.AssociationWindow)
	analysis.Association = assoc
	for _, orphan := range assoc.Orphans {
		logger.Info("track has no workout within window", "track", orphan.Name, "start", orphan.Start())
		analysis.OrphanTracks = append(analysis.OrphanTracks, orphan.Name)
	}

	resolved := make([]healthexport.Workout, 0, len(workouts))
	for _, w := range workouts {
		wa := analyzeWorkout(w, assoc.TrackFor(w.ID), index)
		analysis.Workouts = append(analysis.Workouts, wa)

		loaded := w
		loaded.TotalDistanceKM = wa.Distance.Value
		resolved = append(resolved, loaded)
	}

	for _, m := range metrics {
		series := daily.Aggregate(export.Samples, m, daily.AggregateOptions{
			Func:     daily.DefaultFunc(m),
			Location: cfg.Location,
		})
		if len(series) == 0 {
			continue
		}
		analysis.Daily[m.String()] = filterSummaries(series, keep)
	}
	for _, m := range SmoothedMetrics {
		series := daily.Aggregate(export.Samples, m, daily.AggregateOptions{Location: cfg.Location})
		if len(series) == 0 {
			continue
		}
		if analysis.Smoothed == nil {
			analysis.Smoothed = make(map[string][]daily.Summary)
		}
		smoothed := daily.MovingAverage(daily.Interpolate(series, daily.DefaultMaxGap), daily.DefaultWindow)
		analysis.Smoothed[m.String()] = filterSummaries(smoothed, keep)
	}

	for _, n := range daily.SleepStages(export.Samples, cfg.Location) {
		if keep(n.Date) {
			analysis.Sleep = append(analysis.Sleep, n)
		}
	}

	workload := daily.WorkloadFromWorkouts(resolved, cfg.Workload, cfg.Location)
	tsbCfg := cfg.TSB
	var acwr []trend.Point
	if anchor != nil {
		acwr = trend.ACWRUntil(workload, *anchor)
		if tsbCfg.Until == nil {
			tsbCfg.Until = anchor
		}
	} else {
		acwr = trend.ACWR(workload)
	}
	stress := trend.TrainingStress(workload, tsbCfg)

	analysis.Workload = filterSummaries(workload, keep)
	for _, p := range acwr {
		if keep(p.Date) {
			analysis.ACWR = append(analysis.ACWR, p)
		}
	}
	for _, p := range stress {
		if keep(p.Date) {
			analysis.Stress = append(analysis.Stress, p)
		}
	}

	analysis.Status = InferTrainingStatus(analysis.Workouts, acwr, stress, cfg.Location)
	analysis.Notes = BuildTrainingNotes(analysis)

	logger.Info("analysis complete",
		"workouts", len(analysis.Workouts),
		"tracks", len(tracks),
		"orphan_tracks", len(analysis.OrphanTracks),
		"daily_metrics", len(analysis.Daily),
	)
	return analysis
}

func analyzeWorkout(w healthexport.Workout, tr *track.Track, index sampleIndex) WorkoutAnalysis {
	samples := index.window(w.Start, w.End)
	wa := WorkoutAnalysis{Workout: w}

	var trackKM *float64
	if tr != nil {
		trackKM = tr.DistanceKM()
		wa.TrackName = tr.Name
		summary := tr.Summary
		wa.TrackSummary = &summary
	}
	wa.Distance = healthexport.ResolveDistance(w, trackKM, samples)
	wa.Efficiency = trend.EfficiencyFactor(w, samples)

	hrSource := wa.Efficiency.Source
	hr := align.Observations(samples, healthexport.MetricHeartRate, hrSource, w.Start, w.End)
	if len(hr) > 0 {
		values := make([]float64, len(hr))
		for i, o := range hr {
			values[i] = o.Value
		}
		avg, peak := average(values), maxValue(values)
		wa.AvgHeartRate, wa.MaxHeartRate = &avg, &peak
	}
	if d := wa.Distance.Value; d != nil && *d > 0 && w.Duration > 0 {
		pace := w.Duration.Minutes() / *d
		wa.AvgPaceMinPerKM = &pace
	}

	wa.Dynamics = align.DynamicsForWorkout(w, samples)
	wa.DynamicsRows = wa.Dynamics.Len()
	if vr := presentValues(wa.Dynamics.Column(align.ColumnVerticalRatio)); len(vr) > 0 {
		avg := average(vr)
		wa.AvgVerticalRatio = &avg
	}

	if tr != nil {
		extras := []align.Stream{
			{Name: "running_power_w", Observations: align.Observations(samples, healthexport.MetricRunningPower, hrSource, w.Start, w.End)},
			{Name: "running_speed_mps", Observations: align.Observations(samples, healthexport.MetricRunningSpeed, hrSource, w.Start, w.End)},
		}
		wa.TrackView = align.TrackView(tr, hr, extras...)
		wa.TrackRows = wa.TrackView.Len()
	}
	return wa
}

// sampleIndex keeps samples ordered by start so workout windows are binary searched.
type sampleIndex []healthexport.Sample

func newSampleIndex(samples []healthexport.Sample) sampleIndex {
	idx := make(sampleIndex, len(samples))
	copy(idx, samples)
	sort.SliceStable(idx, func(i, j int) bool { return idx[i].Start.Before(idx[j].Start) })
	return idx
}

// window returns samples starting in [from, to].
func (idx sampleIndex) window(from, to time.Time) []healthexport.Sample {
	lo := sort.Search(len(idx), func(i int) bool { return !idx[i].Start.Before(from) })
	hi := sort.Search(len(idx), func(i int) bool { return idx[i].Start.After(to) })
	if lo >= hi {
		return nil
	}
	return idx[lo:hi]
}

func latestDate(samples []healthexport.Sample, workouts []healthexport.Workout, loc *time.Location) *civil.Date {
	var latest time.Time
	for _, s := range samples {
		if s.Start.After(latest) {
			latest = s.Start
		}
	}
	for _, w := range workouts {
		if w.Start.After(latest) {
			latest = w.Start
		}
	}
	if latest.IsZero() {
		return nil
	}
	d := daily.DateOf(latest, loc)
	return &d
}

func dateFilter(r daily.Range, anchor *civil.Date) func(civil.Date) bool {
	if r.Days() == 0 || anchor == nil {
		return func(civil.Date) bool { return true }
	}
	from, to := r.Bounds(*anchor)
	return func(d civil.Date) bool { return !d.Before(from) && !d.After(to) }
}

func filterSummaries(series []daily.Summary, keep func(civil.Date) bool) []daily.Summary {
	out := make([]daily.Summary, 0, len(series))
	for _, s := range series {
		if keep(s.Date) {
			out = append(out, s)
		}
	}
	return out
}

func presentValues(values []*float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if v != nil {
			out = append(out, *v)
		}
	}
	return out
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func maxValue(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func loggerOrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return l
}
