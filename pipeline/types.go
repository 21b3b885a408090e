package pipeline

import (
	healthnotes "health-analyzer"
	"health-analyzer/observability"
	"health-analyzer/track"
)

// FormatVersion tags manifest.json.
const FormatVersion = "health_analysis_v1"

// Options configures the health_analyze pipeline.
type Options struct {
	ExportPath     string
	TrackPaths     []string
	OutDir         string
	Format         string // parquet|csv
	Overwrite      bool
	IncludeSamples bool

	Config  healthnotes.Config
	Metrics *observability.Metrics
}

// BytesOptions configures RunBytes. Tracks maps file names to contents; the
// extension picks the decoder.
type BytesOptions struct {
	ExportName     string
	ExportData     []byte
	Tracks         map[string][]byte
	Format         string // parquet|csv
	IncludeSamples bool

	Config  healthnotes.Config
	Metrics *observability.Metrics

	// Cache reuses parsed exports keyed by content hash. Nil parses every call.
	Cache *Cache
}

// Result returns generated output paths.
type Result struct {
	OutputDir           string   `json:"output_dir"`
	ManifestPath        string   `json:"manifest_path"`
	WorkoutsPath        string   `json:"workouts_path"`
	TracksPath          string   `json:"tracks_path"`
	DailySummaryPath    string   `json:"daily_summary_path"`
	TrainingLoadPath    string   `json:"training_load_path"`
	TrainingSummaryPath string   `json:"training_summary_path"`
	SamplesPath         string   `json:"samples_path,omitempty"`
	AlignedPaths        []string `json:"aligned_paths,omitempty"`
	Warnings            []string `json:"warnings,omitempty"`

	Analysis *healthnotes.Analysis `json:"-"`
}

// BytesResult holds every artifact in memory, keyed by relative path.
type BytesResult struct {
	Files    map[string][]byte
	Warnings []string
	CacheHit bool

	Analysis *healthnotes.Analysis
}

// Manifest describes one analysis bundle.
type Manifest struct {
	FormatVersion   string         `json:"format_version"`
	SourceFileName  string         `json:"source_file_name"`
	SourceSHA256    string         `json:"source_sha256"`
	SourceSizeBytes int64          `json:"source_size_bytes"`
	Tracks          []TrackSource  `json:"tracks,omitempty"`
	TableFormat     string         `json:"table_format"`
	Range           string         `json:"range"`
	AsOf            string         `json:"as_of,omitempty"`
	Counts          ManifestCounts `json:"counts"`
	Files           []string       `json:"files"`
	Warnings        []string       `json:"warnings,omitempty"`
}

// TrackSource identifies one input track file.
type TrackSource struct {
	Name      string `json:"name"`
	SHA256    string `json:"sha256,omitempty"`
	SizeBytes int64  `json:"size_bytes,omitempty"`
}

// ManifestCounts summarizes what the bundle holds.
type ManifestCounts struct {
	Samples       int `json:"samples"`
	Workouts      int `json:"workouts"`
	Skipped       int `json:"skipped"`
	Tracks        int `json:"tracks"`
	OrphanTracks  int `json:"orphan_tracks"`
	DailyRows     int `json:"daily_rows"`
	LoadRows      int `json:"load_rows"`
	AlignedTables int `json:"aligned_tables"`
}

// TrackRecord is one entry of tracks.json.
type TrackRecord struct {
	Name          string        `json:"name"`
	Format        string        `json:"format"`
	Points        int           `json:"points"`
	WorkoutID     string        `json:"workout_id,omitempty"`
	OffsetSeconds *float64      `json:"offset_s,omitempty"`
	Orphan        bool          `json:"orphan"`
	Summary       track.Summary `json:"summary"`
}

// DailyRow is one row of daily_summary. Series is "daily" or "smoothed".
type DailyRow struct {
	Date        string
	Metric      string
	Series      string
	Aggregation string
	Value       float64
	Count       int
}

// LoadRow is one row of training_load. Nil ACWR means the status explains why.
type LoadRow struct {
	Date       string
	Load       float64
	ACWR       *float64
	ACWRStatus string
	Band       string
	Fitness    float64
	Fatigue    float64
	TSB        float64
}
