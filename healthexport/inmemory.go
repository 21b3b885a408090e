package healthexport

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// ParsedExport is an extracted export stamped with the hash of its bytes.
type ParsedExport struct {
	*Export
	SourceSHA256    string
	SourceSizeBytes int64
}

// ParseBytes extracts an in-memory export. The hash identifies the content for caching.
func ParseBytes(data []byte, opts ExtractOptions) (*ParsedExport, error) {
	export, err := Extract(bytes.NewReader(data), opts)
	if err != nil {
		return nil, fmt.Errorf("parse export bytes: %w", err)
	}
	return &ParsedExport{
		Export:          export,
		SourceSHA256:    ContentHash(data),
		SourceSizeBytes: int64(len(data)),
	}, nil
}

// ContentHash is the hex SHA-256 of data.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// MarshalJSON renders indented JSON with deterministic key order.
func MarshalJSON(v any) ([]byte, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	out = append(out, '\n')
	return out, nil
}

// MarshalSamplesJSONL renders samples as JSONL bytes.
func MarshalSamplesJSONL(samples []Sample) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeSamples(&buf, samples); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildWarnings returns deterministic extraction-quality notes.
func BuildWarnings(stats Stats) []string {
	warnings := make([]string, 0, len(stats.Skipped)+1)
	if stats.Samples == 0 && stats.Workouts == 0 {
		warnings = append(warnings, "export contains no recognized samples or workouts")
	}
	reasons := make([]string, 0, len(stats.Skipped))
	for reason, n := range stats.Skipped {
		if n > 0 && reason != SkipFiltered {
			reasons = append(reasons, string(reason))
		}
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		warnings = append(warnings, fmt.Sprintf("skipped %d entries: %s", stats.Skipped[SkipReason(reason)], reason))
	}
	return warnings
}
