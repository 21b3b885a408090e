package healthexport

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ExportFile streams an export file and writes a normalized sample bundle.
// Output files:
//   - manifest.json
//   - samples.jsonl
//   - workouts.json
func ExportFile(inputPath, outputDir string, opts ExportOptions) (*ExportResult, error) {
	if strings.TrimSpace(inputPath) == "" {
		return nil, fmt.Errorf("input path is required")
	}
	if strings.TrimSpace(outputDir) == "" {
		return nil, fmt.Errorf("output directory is required")
	}

	parsed, err := ExtractFile(inputPath, ExtractOptions{Types: opts.Types, Logger: opts.Logger})
	if err != nil {
		return nil, err
	}
	export := parsed.Export

	if err := ensureOutputDir(outputDir, opts.Overwrite); err != nil {
		return nil, err
	}

	samplesPath := filepath.Join(outputDir, "samples.jsonl")
	if err := writeSamplesJSONL(samplesPath, export.Samples); err != nil {
		return nil, fmt.Errorf("write samples.jsonl: %w", err)
	}
	workoutsPath := filepath.Join(outputDir, "workouts.json")
	if err := writeJSON(workoutsPath, export.Workouts); err != nil {
		return nil, fmt.Errorf("write workouts.json: %w", err)
	}

	manifest := Manifest{
		FormatVersion:     ExportFormatVersion,
		GeneratedAt:       time.Now().UTC(),
		SourceFile:        inputPath,
		SourceFileName:    filepath.Base(inputPath),
		SourceSHA256:      parsed.SourceSHA256,
		SourceSizeBytes:   parsed.SourceSizeBytes,
		SamplesPath:       filepath.Base(samplesPath),
		WorkoutsPath:      filepath.Base(workoutsPath),
		Stats:             export.Stats,
		Warnings:          BuildWarnings(export.Stats),
		SchemaDescription: schemaDetails(),
	}
	manifestPath := filepath.Join(outputDir, "manifest.json")
	if err := writeJSON(manifestPath, manifest); err != nil {
		return nil, fmt.Errorf("write manifest.json: %w", err)
	}

	return &ExportResult{
		OutputDir:       outputDir,
		ManifestPath:    manifestPath,
		SamplesPath:     samplesPath,
		WorkoutsPath:    workoutsPath,
		SampleCount:     len(export.Samples),
		WorkoutCount:    len(export.Workouts),
		SkippedCount:    export.Stats.SkippedTotal(),
		SourceSHA256:    parsed.SourceSHA256,
		SourceSizeBytes: parsed.SourceSizeBytes,
	}, nil
}

// ExtractFile streams an export file through Extract while hashing it, so
// the result carries the same content hash ParseBytes would give.
func ExtractFile(path string, opts ExtractOptions) (*ParsedExport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open export file: %w", err)
	}
	defer f.Close()

	hasher := sha256.New()
	counter := &countingReader{r: io.TeeReader(f, hasher)}
	export, err := Extract(counter, opts)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", filepath.Base(path), err)
	}
	// Trailing bytes after the root still belong to the content hash.
	if _, err := io.Copy(io.Discard, counter); err != nil {
		return nil, fmt.Errorf("read export file: %w", err)
	}
	return &ParsedExport{
		Export:          export,
		SourceSHA256:    hex.EncodeToString(hasher.Sum(nil)),
		SourceSizeBytes: counter.n,
	}, nil
}

func schemaDetails() SchemaDetails {
	return SchemaDetails{
		RecordType: "JSONL line-per-sample in document order, values in the canonical unit of their type",
		Notes: []string{
			"Unrecognized record types and implausible values are counted in stats.skipped, never exported.",
			"Sleep analysis values are stage codes: 0 in bed, 1 asleep, 2 awake, 3 core, 4 deep, 5 rem.",
			"Timestamps keep the offset recorded by the source device.",
			"Workout ids are stable across runs for the same source, start and activity.",
		},
	}
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
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

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeSamplesJSONL(path string, samples []Sample) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return encodeSamples(f, samples)
}

func encodeSamples(w io.Writer, samples []Sample) error {
	buf := bufio.NewWriterSize(w, 1<<20)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	for _, s := range samples {
		if err := enc.Encode(s); err != nil {
			return err
		}
	}
	return buf.Flush()
}
