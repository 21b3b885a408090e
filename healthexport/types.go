package healthexport

import (
	"log/slog"
	"time"
)

const (
	// ExportFormatVersion identifies the on-disk schema of the sample export bundle.
	ExportFormatVersion = "health_samples_jsonl_v1"
)

// MetricType is the closed vocabulary of record types the extractor understands.
type MetricType int

const (
	MetricUnrecognized MetricType = iota
	MetricHeartRate
	MetricRestingHeartRate
	MetricHRVSDNN
	MetricVO2Max
	MetricActiveEnergy
	MetricBasalEnergy
	MetricExerciseTime
	MetricStandTime
	MetricDistanceWalkingRunning
	MetricDistanceCycling
	MetricDistanceSwimming
	MetricRunningPower
	MetricRunningSpeed
	MetricVerticalOscillation
	MetricGroundContactTime
	MetricStrideLength
	MetricStepCount
	MetricSleepAnalysis
)

// Unit is the canonical unit a normalized sample value is expressed in.
type Unit string

const (
	UnitBPM        Unit = "count/min"
	UnitMillis     Unit = "ms"
	UnitVO2Max     Unit = "mL/min·kg"
	UnitKcal       Unit = "kcal"
	UnitMinutes    Unit = "min"
	UnitKilometers Unit = "km"
	UnitWatts      Unit = "W"
	UnitMPS        Unit = "m/s"
	UnitCentimeter Unit = "cm"
	UnitMeters     Unit = "m"
	UnitCount      Unit = "count"
	UnitSleepStage Unit = "stage"
)

// Sleep stage codes stored as the value of sleep analysis samples.
const (
	SleepInBed  = 0
	SleepAsleep = 1
	SleepAwake  = 2
	SleepCore   = 3
	SleepDeep   = 4
	SleepREM    = 5
)

// Sample is one normalized measurement. Start never follows End.
type Sample struct {
	Type   MetricType `json:"type"`
	Value  float64    `json:"value"`
	Unit   Unit       `json:"unit"`
	Start  time.Time  `json:"start"`
	End    time.Time  `json:"end"`
	Source string     `json:"source"`
}

// ActivityType is the closed vocabulary of workout kinds.
type ActivityType string

const (
	ActivityRunning  ActivityType = "running"
	ActivityWalking  ActivityType = "walking"
	ActivityCycling  ActivityType = "cycling"
	ActivitySwimming ActivityType = "swimming"
	ActivityHiking   ActivityType = "hiking"
	ActivityOther    ActivityType = "other"
)

// Workout is one exercise session as recorded by one source device.
// Sessions recorded by two devices appear as two overlapping workouts.
type Workout struct {
	ID              string            `json:"id"`
	ActivityType    ActivityType      `json:"activity_type"`
	RawActivityType string            `json:"raw_activity_type"`
	Start           time.Time         `json:"start"`
	End             time.Time         `json:"end"`
	Duration        time.Duration     `json:"duration_ns"`
	TotalDistanceKM *float64          `json:"total_distance_km,omitempty"`
	EnergyKcal      *float64          `json:"energy_kcal,omitempty"`
	Source          string            `json:"source"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// EntryKind tags what a cursor step produced.
type EntryKind int

const (
	EntrySkipped EntryKind = iota
	EntrySample
	EntryWorkout
)

// SkipReason explains why an entry was not surfaced as a sample or workout.
type SkipReason string

const (
	SkipUnrecognizedType SkipReason = "unrecognized_type"
	SkipBadValue         SkipReason = "bad_value"
	SkipBadDate          SkipReason = "bad_date"
	SkipUnknownUnit      SkipReason = "unknown_unit"
	SkipImplausible      SkipReason = "implausible_value"
	SkipEndBeforeStart   SkipReason = "end_before_start"
	SkipFiltered         SkipReason = "filtered"
)

// Entry is one decoded element of the export. Exactly one of Sample or Workout
// is set unless Kind is EntrySkipped.
type Entry struct {
	Kind    EntryKind
	Sample  *Sample
	Workout *Workout
	Skip    SkipReason
	RawType string
	Offset  int64
}

// Stats counts what the extractor saw.
type Stats struct {
	Samples  int                `json:"samples"`
	Workouts int                `json:"workouts"`
	Skipped  map[SkipReason]int `json:"skipped,omitempty"`
	ByType   map[string]int     `json:"by_type,omitempty"`
}

// Export is the fully collected output of Extract.
type Export struct {
	Samples  []Sample
	Workouts []Workout
	Stats    Stats
}

// ExtractOptions controls Extract.
type ExtractOptions struct {
	// Types keeps only samples of the listed types. Empty keeps every recognized type.
	Types []MetricType

	// Logger receives per-entry skip diagnostics at debug level. Nil discards.
	Logger *slog.Logger
}

// ExportOptions controls ExportFile.
type ExportOptions struct {
	// Overwrite allows writing into a non-empty output directory.
	Overwrite bool

	// Types is forwarded to Extract.
	Types []MetricType

	Logger *slog.Logger
}

// ExportResult describes generated files.
type ExportResult struct {
	OutputDir       string `json:"output_dir"`
	ManifestPath    string `json:"manifest_path"`
	SamplesPath     string `json:"samples_path"`
	WorkoutsPath    string `json:"workouts_path"`
	SampleCount     int    `json:"sample_count"`
	WorkoutCount    int    `json:"workout_count"`
	SkippedCount    int    `json:"skipped_count"`
	SourceSHA256    string `json:"source_sha256"`
	SourceSizeBytes int64  `json:"source_size_bytes"`
}

// Manifest captures export metadata and pointers to exported files.
type Manifest struct {
	FormatVersion     string        `json:"format_version"`
	GeneratedAt       time.Time     `json:"generated_at"`
	SourceFile        string        `json:"source_file"`
	SourceFileName    string        `json:"source_file_name"`
	SourceSHA256      string        `json:"source_sha256"`
	SourceSizeBytes   int64         `json:"source_size_bytes"`
	SamplesPath       string        `json:"samples_path"`
	WorkoutsPath      string        `json:"workouts_path"`
	Stats             Stats         `json:"stats"`
	Warnings          []string      `json:"warnings,omitempty"`
	SchemaDescription SchemaDetails `json:"schema_description"`
}

// SchemaDetails documents the record shape for downstream applications.
type SchemaDetails struct {
	RecordType string   `json:"record_type"`
	Notes      []string `json:"notes"`
}
