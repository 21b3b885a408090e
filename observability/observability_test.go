package observability

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"health-analyzer/healthexport"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestNewLoggerUsesCloudLoggingKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("health_analyze", slog.LevelInfo, &buf)
	logger.Debug("hidden")
	logger.Info("extracted", "samples", 3)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "extracted", rec["message"])
	assert.Equal(t, "INFO", rec["severity"])
	assert.Equal(t, "health_analyze", rec["service"])
	assert.EqualValues(t, 3, rec["samples"])
	assert.NotContains(t, rec, "msg")
	assert.NotContains(t, rec, "level")
}

func TestNewLoggerHonoursLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("healthexport", ParseLevel("debug"), &buf)
	logger.Debug("parsed record", "type", "heart_rate")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "DEBUG", rec["severity"])

	buf.Reset()
	logger = NewLogger("healthexport", ParseLevel("warn"), &buf)
	logger.Info("dropped")
	assert.Zero(t, buf.Len())
}

func TestMetricsRecordExtraction(t *testing.T) {
	m := NewMetrics()
	m.RecordExtraction(healthexport.Stats{
		Samples:  10,
		Workouts: 2,
		Skipped: map[healthexport.SkipReason]int{
			healthexport.SkipUnknownUnit: 3,
			healthexport.SkipImplausible: 1,
		},
	})
	m.RecordTracks(1, 2)
	m.RecordAlignedRows("dynamics", 5)
	m.RecordAlignedRows("track", 0)
	m.RecordCacheLookup(true)
	m.RecordCacheLookup(false)
	m.RecordCacheLookup(false)

	assert.Equal(t, 10.0, testutil.ToFloat64(m.samples))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.workouts))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.skipped.WithLabelValues(string(healthexport.SkipUnknownUnit))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.skipped.WithLabelValues(string(healthexport.SkipImplausible))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.matchedTracks))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.orphanTracks))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.alignedRows.WithLabelValues("dynamics")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("miss")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordExtraction(healthexport.Stats{Samples: 1})
	m.RecordTracks(1, 1)
	m.RecordAlignedRows("dynamics", 1)
	m.ObserveRun(1)
	m.RecordCacheLookup(true)
	require.NoError(t, m.LogSnapshot(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func TestLogSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordExtraction(healthexport.Stats{Samples: 4})
	m.ObserveRun(0.5)

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	require.NoError(t, m.LogSnapshot(logger))

	out := buf.String()
	assert.Contains(t, out, `"metric":"health_analyzer_extract_samples_total"`)
	assert.Contains(t, out, `"value":4`)
	assert.Contains(t, out, `"metric":"health_analyzer_pipeline_run_duration_seconds"`)
	assert.Contains(t, out, `"count":1`)
}
