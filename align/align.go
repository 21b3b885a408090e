// Package align joins independently sampled series on a nearest-in-time basis.
package align

import (
	"math"
	"sort"
	"time"

	"health-analyzer/healthexport"
)

const (
	// DynamicsTolerance bounds matches between running dynamics series.
	DynamicsTolerance = 2 * time.Second

	// TrackTolerance bounds matches against positional track intervals.
	TrackTolerance = 5 * time.Second
)

// Observation is one timestamped value.
type Observation struct {
	Time  time.Time
	Value float64
}

// Stream is a named series. Rows lacking a match in a required stream are dropped.
type Stream struct {
	Name         string
	Required     bool
	Observations []Observation
}

// Options controls Align.
type Options struct {
	// Tolerance is the largest accepted |Δt|, inclusive.
	Tolerance time.Duration
}

// Cell is one aligned value. Offset is the matched time minus the row time.
type Cell struct {
	Value  float64       `json:"value"`
	Offset time.Duration `json:"offset_ns"`
	OK     bool          `json:"ok"`
}

// Row holds one cell per column, anchored at Time.
type Row struct {
	Time  time.Time `json:"time"`
	Cells []Cell    `json:"cells"`
}

// Table is an ordered aligned result. The first column is the anchor.
type Table struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// Align emits one row per anchor observation in time order. Each other stream
// contributes its observation nearest to the anchor time; on equal distance
// the earlier observation wins. Matches beyond the tolerance are missing.
// Inputs are not modified.
func Align(anchor Stream, others []Stream, opts Options) Table {
	table := Table{Columns: make([]string, 0, len(others)+1)}
	table.Columns = append(table.Columns, anchor.Name)
	sorted := make([][]Observation, len(others))
	for i, s := range others {
		table.Columns = append(table.Columns, s.Name)
		sorted[i] = sortedCopy(s.Observations)
	}

	for _, a := range sortedCopy(anchor.Observations) {
		row := Row{Time: a.Time, Cells: make([]Cell, 0, len(others)+1)}
		row.Cells = append(row.Cells, Cell{Value: a.Value, OK: true})
		keep := true
		for i, s := range others {
			cell := nearest(sorted[i], a.Time, opts.Tolerance)
			if !cell.OK && s.Required {
				keep = false
				break
			}
			row.Cells = append(row.Cells, cell)
		}
		if keep {
			table.Rows = append(table.Rows, row)
		}
	}
	return table
}

func sortedCopy(obs []Observation) []Observation {
	out := make([]Observation, len(obs))
	copy(out, obs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}

func nearest(obs []Observation, at time.Time, tolerance time.Duration) Cell {
	idx := sort.Search(len(obs), func(i int) bool { return !obs[i].Time.Before(at) })

	best := -1
	if idx > 0 {
		// First observation sharing the earlier candidate's timestamp.
		t := obs[idx-1].Time
		best = sort.Search(idx, func(i int) bool { return !obs[i].Time.Before(t) })
	}
	if idx < len(obs) {
		if best < 0 || obs[idx].Time.Sub(at) < at.Sub(obs[best].Time) {
			best = idx
		}
	}
	if best < 0 {
		return Cell{}
	}
	offset := obs[best].Time.Sub(at)
	if offset > tolerance || -offset > tolerance {
		return Cell{}
	}
	return Cell{Value: obs[best].Value, Offset: offset, OK: true}
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// Index returns the position of a column, or -1.
func (t Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns a column's values in row order; missing cells are nil.
// It returns nil for an unknown column.
func (t Table) Column(name string) []*float64 {
	idx := t.Index(name)
	if idx < 0 {
		return nil
	}
	out := make([]*float64, len(t.Rows))
	for i, r := range t.Rows {
		if c := r.Cells[idx]; c.OK {
			v := c.Value
			out[i] = &v
		}
	}
	return out
}

// RelativeMinutes returns each row's minutes since the first row, rounded to
// 0.01 so rows of separately aligned tables share hover positions.
func (t Table) RelativeMinutes() []float64 {
	out := make([]float64, len(t.Rows))
	if len(t.Rows) == 0 {
		return out
	}
	origin := t.Rows[0].Time
	for i, r := range t.Rows {
		out[i] = math.Round(r.Time.Sub(origin).Minutes()*100) / 100
	}
	return out
}

// Observations selects samples of one type with Start in [from, to]. An empty
// source keeps every source; zero bounds are open.
func Observations(samples []healthexport.Sample, metric healthexport.MetricType, source string, from, to time.Time) []Observation {
	var out []Observation
	for _, s := range samples {
		if s.Type != metric {
			continue
		}
		if source != "" && s.Source != source {
			continue
		}
		if !from.IsZero() && s.Start.Before(from) {
			continue
		}
		if !to.IsZero() && s.Start.After(to) {
			continue
		}
		out = append(out, Observation{Time: s.Start, Value: s.Value})
	}
	return out
}
