package pipeline

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	healthnotes "health-analyzer"
	"health-analyzer/healthexport"
	"health-analyzer/observability"
	"health-analyzer/track"
)

// Run executes the health_analyze pipeline and writes:
//   - manifest.json
//   - workouts.json
//   - tracks.json
//   - daily_summary.{parquet|csv}
//   - training_load.{parquet|csv}
//   - aligned/<workout>_dynamics.csv and aligned/<workout>_track.csv
//   - training_summary.md
//   - samples.jsonl when IncludeSamples is set
func Run(opts Options) (*Result, error) {
	started := time.Now()
	if strings.TrimSpace(opts.ExportPath) == "" {
		return nil, fmt.Errorf("export path is required")
	}
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	format, err := normalizeFormat(opts.Format)
	if err != nil {
		return nil, err
	}

	parsed, err := healthexport.ExtractFile(opts.ExportPath, healthexport.ExtractOptions{Logger: opts.Config.Logger})
	if err != nil {
		return nil, err
	}
	tracks, warnings := healthnotes.ParseTracks(opts.TrackPaths, opts.Config.Logger)
	sources := hashTrackFiles(opts.TrackPaths)

	if err := ensureOutputDir(opts.OutDir, opts.Overwrite); err != nil {
		return nil, err
	}
	sink := &dirSink{dir: opts.OutDir}
	b := &bundle{
		sourceName:     filepath.Base(opts.ExportPath),
		parsed:         parsed,
		tracks:         tracks,
		trackSources:   sources,
		trackWarnings:  warnings,
		format:         format,
		includeSamples: opts.IncludeSamples,
		cfg:            opts.Config,
		metrics:        opts.Metrics,
	}
	analysis, err := b.emit(sink)
	if err != nil {
		return nil, err
	}
	opts.Metrics.ObserveRun(time.Since(started).Seconds())

	res := &Result{
		OutputDir:           opts.OutDir,
		ManifestPath:        filepath.Join(opts.OutDir, manifestFile),
		WorkoutsPath:        filepath.Join(opts.OutDir, workoutsFile),
		TracksPath:          filepath.Join(opts.OutDir, tracksFile),
		DailySummaryPath:    filepath.Join(opts.OutDir, "daily_summary"+formatExtension(format)),
		TrainingLoadPath:    filepath.Join(opts.OutDir, "training_load"+formatExtension(format)),
		TrainingSummaryPath: filepath.Join(opts.OutDir, summaryFile),
		Warnings:            analysis.Warnings,
		Analysis:            analysis,
	}
	if opts.IncludeSamples {
		res.SamplesPath = filepath.Join(opts.OutDir, samplesFile)
	}
	for _, name := range sink.written {
		if strings.HasPrefix(name, alignedDir+"/") {
			res.AlignedPaths = append(res.AlignedPaths, filepath.Join(opts.OutDir, filepath.FromSlash(name)))
		}
	}
	return res, nil
}

// RunBytes runs the pipeline in memory and returns every artifact keyed by its
// slash-separated relative path.
func RunBytes(opts BytesOptions) (*BytesResult, error) {
	started := time.Now()
	if len(opts.ExportData) == 0 {
		return nil, fmt.Errorf("export bytes are required")
	}
	format, err := normalizeFormat(opts.Format)
	if err != nil {
		return nil, err
	}

	extractOpts := healthexport.ExtractOptions{Logger: opts.Config.Logger}
	var (
		parsed *healthexport.ParsedExport
		hit    bool
	)
	if opts.Cache != nil {
		parsed, hit, err = opts.Cache.parse(opts.ExportData, extractOpts)
		opts.Metrics.RecordCacheLookup(hit)
	} else {
		parsed, err = healthexport.ParseBytes(opts.ExportData, extractOpts)
	}
	if err != nil {
		return nil, err
	}

	names := sortedKeys(opts.Tracks)
	var (
		tracks   []*track.Track
		warnings []string
		sources  = make([]TrackSource, 0, len(names))
	)
	for _, name := range names {
		data := opts.Tracks[name]
		sources = append(sources, TrackSource{
			Name:      name,
			SHA256:    healthexport.ContentHash(data),
			SizeBytes: int64(len(data)),
		})
		tr, err := track.Parse(bytes.NewReader(data), name)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("track skipped: %v", err))
			continue
		}
		tracks = append(tracks, tr)
	}

	sourceName := opts.ExportName
	if sourceName == "" {
		sourceName = "export.xml"
	}
	sink := &memSink{files: make(map[string][]byte)}
	b := &bundle{
		sourceName:     sourceName,
		parsed:         parsed,
		tracks:         tracks,
		trackSources:   sources,
		trackWarnings:  warnings,
		format:         format,
		includeSamples: opts.IncludeSamples,
		cfg:            opts.Config,
		metrics:        opts.Metrics,
	}
	analysis, err := b.emit(sink)
	if err != nil {
		return nil, err
	}
	opts.Metrics.ObserveRun(time.Since(started).Seconds())

	return &BytesResult{
		Files:    sink.files,
		Warnings: analysis.Warnings,
		CacheHit: hit,
		Analysis: analysis,
	}, nil
}

const (
	manifestFile = "manifest.json"
	workoutsFile = "workouts.json"
	tracksFile   = "tracks.json"
	summaryFile  = "training_summary.md"
	samplesFile  = "samples.jsonl"
	alignedDir   = "aligned"
)

// bundle is everything one run needs to analyze and write its artifacts.
type bundle struct {
	sourceName     string
	parsed         *healthexport.ParsedExport
	tracks         []*track.Track
	trackSources   []TrackSource
	trackWarnings  []string
	format         string
	includeSamples bool
	cfg            healthnotes.Config
	metrics        *observability.Metrics
}

// sink receives artifacts by relative, slash-separated name.
type sink interface {
	writeBytes(name string, data []byte) error
	writeParquet(name string, schema any, rows []any) error
}

func (b *bundle) emit(s sink) (*healthnotes.Analysis, error) {
	analysis := healthnotes.Analyze(b.parsed.Export, b.tracks, b.cfg)
	analysis.Warnings = append(analysis.Warnings, b.trackWarnings...)

	b.metrics.RecordExtraction(b.parsed.Stats)
	b.metrics.RecordTracks(len(analysis.Association.Matches), len(analysis.Association.Orphans))

	var files []string
	put := func(name string, data []byte) error {
		if err := s.writeBytes(name, data); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		files = append(files, name)
		return nil
	}
	putJSON := func(name string, v any) error {
		data, err := healthexport.MarshalJSON(v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", name, err)
		}
		return put(name, data)
	}

	if err := putJSON(workoutsFile, analysis.Workouts); err != nil {
		return nil, err
	}
	if err := putJSON(tracksFile, buildTrackRecords(analysis)); err != nil {
		return nil, err
	}

	dailyRows := buildDailyRows(analysis)
	loadRows := buildLoadRows(analysis)
	dailyName := "daily_summary" + formatExtension(b.format)
	loadName := "training_load" + formatExtension(b.format)
	if b.format == "csv" {
		data, err := marshalDailyCSV(dailyRows)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", dailyName, err)
		}
		if err := put(dailyName, data); err != nil {
			return nil, err
		}
		data, err = marshalLoadCSV(loadRows)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", loadName, err)
		}
		if err := put(loadName, data); err != nil {
			return nil, err
		}
	} else {
		if err := s.writeParquet(dailyName, new(dailyParquetRow), dailyParquetRows(dailyRows)); err != nil {
			return nil, fmt.Errorf("write %s: %w", dailyName, err)
		}
		files = append(files, dailyName)
		if err := s.writeParquet(loadName, new(loadParquetRow), loadParquetRows(loadRows)); err != nil {
			return nil, fmt.Errorf("write %s: %w", loadName, err)
		}
		files = append(files, loadName)
	}

	aligned := 0
	for _, wa := range analysis.Workouts {
		views := []struct {
			kind string
			rows int
			data func() ([]byte, error)
		}{
			{"dynamics", wa.DynamicsRows, func() ([]byte, error) { return marshalAlignedCSV(wa.Dynamics) }},
			{"track", wa.TrackRows, func() ([]byte, error) { return marshalAlignedCSV(wa.TrackView) }},
		}
		for _, v := range views {
			if v.rows == 0 {
				continue
			}
			name := fmt.Sprintf("%s/%s_%s.csv", alignedDir, wa.Workout.ID, v.kind)
			data, err := v.data()
			if err != nil {
				return nil, fmt.Errorf("encode %s: %w", name, err)
			}
			if err := put(name, data); err != nil {
				return nil, err
			}
			b.metrics.RecordAlignedRows(v.kind, v.rows)
			aligned++
		}
	}

	if err := put(summaryFile, []byte("# Training Summary\n\n"+analysis.Notes+"\n")); err != nil {
		return nil, err
	}
	if b.includeSamples {
		data, err := healthexport.MarshalSamplesJSONL(b.parsed.Samples)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", samplesFile, err)
		}
		if err := put(samplesFile, data); err != nil {
			return nil, err
		}
	}

	sort.Strings(files)
	manifest := Manifest{
		FormatVersion:   FormatVersion,
		SourceFileName:  b.sourceName,
		SourceSHA256:    b.parsed.SourceSHA256,
		SourceSizeBytes: b.parsed.SourceSizeBytes,
		Tracks:          b.trackSources,
		TableFormat:     b.format,
		Range:           analysis.Range,
		Counts: ManifestCounts{
			Samples:       b.parsed.Stats.Samples,
			Workouts:      b.parsed.Stats.Workouts,
			Skipped:       b.parsed.Stats.SkippedTotal(),
			Tracks:        len(b.tracks),
			OrphanTracks:  len(analysis.OrphanTracks),
			DailyRows:     len(dailyRows),
			LoadRows:      len(loadRows),
			AlignedTables: aligned,
		},
		Files:    files,
		Warnings: analysis.Warnings,
	}
	if analysis.AsOf != nil {
		manifest.AsOf = analysis.AsOf.String()
	}
	if err := putJSON(manifestFile, manifest); err != nil {
		return nil, err
	}
	return analysis, nil
}

type dirSink struct {
	dir     string
	written []string
}

func (d *dirSink) path(name string) (string, error) {
	p := filepath.Join(d.dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", err
	}
	d.written = append(d.written, name)
	return p, nil
}

func (d *dirSink) writeBytes(name string, data []byte) error {
	p, err := d.path(name)
	if err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o644)
}

func (d *dirSink) writeParquet(name string, schema any, rows []any) error {
	p, err := d.path(name)
	if err != nil {
		return err
	}
	return writeParquetFile(p, schema, rows)
}

type memSink struct {
	files map[string][]byte
}

func (m *memSink) writeBytes(name string, data []byte) error {
	m.files[name] = data
	return nil
}

func (m *memSink) writeParquet(name string, schema any, rows []any) error {
	data, err := marshalParquet(schema, rows)
	if err != nil {
		return err
	}
	m.files[name] = data
	return nil
}

func normalizeFormat(format string) (string, error) {
	f := strings.ToLower(strings.TrimSpace(format))
	if f == "" {
		f = "parquet"
	}
	if f != "parquet" && f != "csv" {
		return "", fmt.Errorf("unsupported format %q (expected parquet|csv)", format)
	}
	return f, nil
}

func formatExtension(format string) string {
	if format == "csv" {
		return ".csv"
	}
	return ".parquet"
}

func hashTrackFiles(paths []string) []TrackSource {
	out := make([]TrackSource, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			// Unreadable tracks are already reported as warnings.
			out = append(out, TrackSource{Name: filepath.Base(p)})
			continue
		}
		out = append(out, TrackSource{
			Name:      filepath.Base(p),
			SHA256:    healthexport.ContentHash(data),
			SizeBytes: int64(len(data)),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func ensureOutputDir(path string, overwrite bool) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("read output directory: %w", err)
	}
	if len(entries) > 0 && !overwrite {
		return fmt.Errorf("output directory is not empty: %s (set overwrite=true to allow)", path)
	}
	return nil
}
