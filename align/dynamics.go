package align

import (
	"time"

	"health-analyzer/healthexport"
	"health-analyzer/track"
)

// Column names used by the built-in views.
const (
	ColumnVerticalOscillation = "vertical_oscillation_cm"
	ColumnGroundContactTime   = "ground_contact_time_ms"
	ColumnStrideLength        = "stride_length_m"
	ColumnVerticalRatio       = "vertical_ratio_pct"
	ColumnDistance            = "distance_km"
	ColumnPace                = "pace_smoothed_min_per_km"
	ColumnHeartRate           = "heart_rate_bpm"
)

// VerticalRatio is vertical oscillation as a percentage of stride length.
func VerticalRatio(voCM, strideM float64) (float64, bool) {
	if strideM <= 0 {
		return 0, false
	}
	return voCM / (strideM * 100) * 100, true
}

// Dynamics joins the three running dynamics series within DynamicsTolerance.
// The sparsest series anchors the join, all three are required, and a
// vertical ratio column is appended. Column order does not depend on which
// series anchors.
func Dynamics(vo, gct, sl []Observation) Table {
	streams := []Stream{
		{Name: ColumnVerticalOscillation, Required: true, Observations: vo},
		{Name: ColumnGroundContactTime, Required: true, Observations: gct},
		{Name: ColumnStrideLength, Required: true, Observations: sl},
	}
	anchor := 0
	for i, s := range streams {
		if len(s.Observations) < len(streams[anchor].Observations) {
			anchor = i
		}
	}
	others := make([]Stream, 0, len(streams)-1)
	for i, s := range streams {
		if i != anchor {
			others = append(others, s)
		}
	}
	joined := Align(streams[anchor], others, Options{Tolerance: DynamicsTolerance})

	out := Table{Columns: []string{ColumnVerticalOscillation, ColumnGroundContactTime, ColumnStrideLength, ColumnVerticalRatio}}
	order := make([]int, len(streams))
	for i, s := range streams {
		order[i] = joined.Index(s.Name)
	}
	for _, r := range joined.Rows {
		row := Row{Time: r.Time, Cells: make([]Cell, 0, len(out.Columns))}
		for _, idx := range order {
			row.Cells = append(row.Cells, r.Cells[idx])
		}
		var vr Cell
		if v, ok := VerticalRatio(row.Cells[0].Value, row.Cells[2].Value); ok {
			vr = Cell{Value: v, OK: true, Offset: widerOffset(row.Cells[0].Offset, row.Cells[2].Offset)}
		}
		row.Cells = append(row.Cells, vr)
		out.Rows = append(out.Rows, row)
	}
	return out
}

// widerOffset returns whichever offset lies further from the row time.
func widerOffset(a, b time.Duration) time.Duration {
	if b.Abs() > a.Abs() {
		return b
	}
	return a
}

// DynamicsForWorkout pulls the dynamics series recorded during w by its source.
func DynamicsForWorkout(w healthexport.Workout, samples []healthexport.Sample) Table {
	pick := func(m healthexport.MetricType) []Observation {
		return Observations(samples, m, w.Source, w.Start, w.End)
	}
	return Dynamics(
		pick(healthexport.MetricVerticalOscillation),
		pick(healthexport.MetricGroundContactTime),
		pick(healthexport.MetricStrideLength),
	)
}

// TrackView anchors on the track's derived intervals and joins heart rate
// (required) plus any extra streams within TrackTolerance. Extras keep their
// own Required flag. Smoothed pace already shares the anchor's timestamps, so
// each row carries its own interval's pace and stays missing where that
// interval has none.
func TrackView(tr *track.Track, heartRate []Observation, extras ...Stream) Table {
	if tr == nil {
		return Align(Stream{Name: ColumnDistance}, nil, Options{})
	}
	distance := Stream{Name: ColumnDistance, Required: true}
	paces := make(map[int64][]*float64, len(tr.Derived))
	for _, iv := range tr.Derived {
		distance.Observations = append(distance.Observations, Observation{Time: iv.Time, Value: iv.CumulativeKM})
		key := iv.Time.UnixNano()
		paces[key] = append(paces[key], iv.PaceSmoothed)
	}
	others := append([]Stream{{Name: ColumnHeartRate, Required: true, Observations: heartRate}}, extras...)
	joined := Align(distance, others, Options{Tolerance: TrackTolerance})

	// Rows sharing a timestamp come out in interval order, so each consumes
	// the next pace queued at that time.
	used := make(map[int64]int, len(paces))
	out := Table{Columns: make([]string, 0, len(joined.Columns)+1)}
	out.Columns = append(out.Columns, ColumnDistance, ColumnPace)
	out.Columns = append(out.Columns, joined.Columns[1:]...)
	for _, r := range joined.Rows {
		key := r.Time.UnixNano()
		var pace Cell
		if queue := paces[key]; used[key] < len(queue) {
			if p := queue[used[key]]; p != nil {
				pace = Cell{Value: *p, OK: true}
			}
		}
		used[key]++
		row := Row{Time: r.Time, Cells: make([]Cell, 0, len(r.Cells)+1)}
		row.Cells = append(row.Cells, r.Cells[0], pace)
		row.Cells = append(row.Cells, r.Cells[1:]...)
		out.Rows = append(out.Rows, row)
	}
	return out
}
