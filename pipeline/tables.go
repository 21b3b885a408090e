package pipeline

import (
	"bytes"
	"encoding/csv"
	"sort"
	"strconv"
	"time"

	healthnotes "health-analyzer"
	"health-analyzer/align"
	"health-analyzer/daily"
	"health-analyzer/healthexport"
	"health-analyzer/track"
	"health-analyzer/trend"
)

var (
	dailyHeader = []string{"date", "metric", "series", "aggregation", "value", "count"}
	loadHeader  = []string{"date", "load", "acwr", "acwr_status", "band", "fitness", "fatigue", "tsb"}
)

// buildDailyRows flattens daily and smoothed series plus sleep totals, ordered
// by metric, series and date.
func buildDailyRows(a *healthnotes.Analysis) []DailyRow {
	var rows []DailyRow
	add := func(series, aggregation string, summaries []daily.Summary) {
		for _, s := range summaries {
			rows = append(rows, DailyRow{
				Date:        s.Date.String(),
				Metric:      s.Metric,
				Series:      series,
				Aggregation: aggregation,
				Value:       s.Value,
				Count:       s.Count,
			})
		}
	}
	for _, name := range sortedKeys(a.Daily) {
		agg := daily.FuncMean
		if m, err := healthexport.ParseMetric(name); err == nil {
			agg = daily.DefaultFunc(m)
		}
		add("daily", agg.String(), a.Daily[name])
	}
	for _, name := range sortedKeys(a.Smoothed) {
		add("smoothed", daily.FuncMean.String(), a.Smoothed[name])
	}
	if len(a.Sleep) > 0 {
		add("daily", daily.FuncDurationHours.String(), daily.TotalSleepSeries(a.Sleep))
	}
	return rows
}

// buildLoadRows joins workload, ACWR and fitness/fatigue by date. The stress
// series is dense over the range and drives the row set.
func buildLoadRows(a *healthnotes.Analysis) []LoadRow {
	acwr := make(map[string]trend.Point, len(a.ACWR))
	for _, p := range a.ACWR {
		acwr[p.Date.String()] = p
	}
	rows := make([]LoadRow, 0, len(a.Stress))
	for _, s := range a.Stress {
		date := s.Date.String()
		row := LoadRow{
			Date:    date,
			Load:    s.Load,
			Fitness: s.Fitness,
			Fatigue: s.Fatigue,
			TSB:     s.TSB,
		}
		if p, ok := acwr[date]; ok {
			row.ACWR = p.Value
			row.ACWRStatus = string(p.Status)
			if p.Value != nil {
				row.Band = string(trend.BandFor(*p.Value))
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func buildTrackRecords(a *healthnotes.Analysis) []TrackRecord {
	out := make([]TrackRecord, 0, len(a.Association.Matches)+len(a.Association.Orphans))
	for _, m := range a.Association.Matches {
		offset := m.Offset.Seconds()
		out = append(out, trackRecord(m.Track, m.WorkoutID, &offset))
	}
	for _, t := range a.Association.Orphans {
		out = append(out, trackRecord(t, "", nil))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func trackRecord(t *track.Track, workoutID string, offset *float64) TrackRecord {
	return TrackRecord{
		Name:          t.Name,
		Format:        t.Format,
		Points:        len(t.Points),
		WorkoutID:     workoutID,
		OffsetSeconds: offset,
		Orphan:        workoutID == "",
		Summary:       t.Summary,
	}
}

func marshalDailyCSV(rows []DailyRow) ([]byte, error) {
	return marshalCSV(dailyHeader, len(rows), func(i int) []string {
		r := rows[i]
		return []string{
			r.Date,
			r.Metric,
			r.Series,
			r.Aggregation,
			formatFloat(r.Value),
			strconv.Itoa(r.Count),
		}
	})
}

func marshalLoadCSV(rows []LoadRow) ([]byte, error) {
	return marshalCSV(loadHeader, len(rows), func(i int) []string {
		r := rows[i]
		return []string{
			r.Date,
			formatFloat(r.Load),
			formatFloatPtr(r.ACWR),
			r.ACWRStatus,
			r.Band,
			formatFloat(r.Fitness),
			formatFloat(r.Fatigue),
			formatFloat(r.TSB),
		}
	})
}

// marshalAlignedCSV writes one row per aligned timestamp. Every column after
// the anchor is followed by <column>_offset_s, the matched sample's time minus
// the row time in seconds. Missing cells leave both fields empty.
func marshalAlignedCSV(t align.Table) ([]byte, error) {
	header := []string{"time_utc", "elapsed_min"}
	for i, name := range t.Columns {
		header = append(header, name)
		if i > 0 {
			header = append(header, name+"_offset_s")
		}
	}
	minutes := t.RelativeMinutes()
	return marshalCSV(header, len(t.Rows), func(i int) []string {
		row := t.Rows[i]
		out := make([]string, 0, len(header))
		out = append(out, row.Time.UTC().Format(time.RFC3339Nano), formatFloat(minutes[i]))
		for j, c := range row.Cells {
			value, offset := "", ""
			if c.OK {
				value, offset = formatFloat(c.Value), formatFloat(c.Offset.Seconds())
			}
			out = append(out, value)
			if j > 0 {
				out = append(out, offset)
			}
		}
		return out
	})
}

func marshalCSV(header []string, n int, row func(int) []string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		if err := w.Write(row(i)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func formatFloatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
