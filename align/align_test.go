package align

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"health-analyzer/healthexport"
	"health-analyzer/track"
)

var t0 = time.Date(2024, 3, 1, 7, 0, 0, 0, time.UTC)

func at(sec float64, v float64) Observation {
	return Observation{Time: t0.Add(time.Duration(sec * float64(time.Second))), Value: v}
}

func TestAlignNearestWithinTolerance(t *testing.T) {
	anchor := Stream{Name: "a", Observations: []Observation{at(0, 1), at(10, 2), at(20, 3)}}
	other := Stream{Name: "b", Observations: []Observation{at(1, 10), at(13, 20), at(19.5, 30)}}

	table := Align(anchor, []Stream{other}, Options{Tolerance: 2 * time.Second})
	require.Equal(t, []string{"a", "b"}, table.Columns)
	require.Equal(t, 3, table.Len())

	assert.Equal(t, Cell{Value: 10, Offset: time.Second, OK: true}, table.Rows[0].Cells[1])
	assert.False(t, table.Rows[1].Cells[1].OK, "3s away is beyond tolerance")
	assert.Equal(t, Cell{Value: 30, Offset: -500 * time.Millisecond, OK: true}, table.Rows[2].Cells[1])
}

func TestAlignToleranceIsInclusive(t *testing.T) {
	anchor := Stream{Name: "a", Observations: []Observation{at(0, 1)}}
	other := Stream{Name: "b", Observations: []Observation{at(2, 5)}}
	table := Align(anchor, []Stream{other}, Options{Tolerance: 2 * time.Second})
	require.Equal(t, 1, table.Len())
	assert.True(t, table.Rows[0].Cells[1].OK)
}

func TestAlignTieGoesToEarlier(t *testing.T) {
	anchor := Stream{Name: "a", Observations: []Observation{at(10, 1)}}
	other := Stream{Name: "b", Observations: []Observation{at(11, 99), at(9, 42)}}

	table := Align(anchor, []Stream{other}, Options{Tolerance: 2 * time.Second})
	require.Equal(t, 1, table.Len())
	assert.Equal(t, 42.0, table.Rows[0].Cells[1].Value)
	assert.Equal(t, -time.Second, table.Rows[0].Cells[1].Offset)
}

func TestAlignDuplicateTimestampsKeepInputOrder(t *testing.T) {
	anchor := Stream{Name: "a", Observations: []Observation{at(10, 1)}}
	other := Stream{Name: "b", Observations: []Observation{at(9, 1), at(9, 2), at(12, 3)}}
	table := Align(anchor, []Stream{other}, Options{Tolerance: 2 * time.Second})
	assert.Equal(t, 1.0, table.Rows[0].Cells[1].Value)
}

func TestAlignRequiredAndOptional(t *testing.T) {
	anchor := Stream{Name: "a", Observations: []Observation{at(0, 1), at(10, 2), at(20, 3)}}
	required := Stream{Name: "req", Required: true, Observations: []Observation{at(0, 5), at(20, 6)}}
	optional := Stream{Name: "opt", Observations: []Observation{at(20, 7)}}

	table := Align(anchor, []Stream{required, optional}, Options{Tolerance: time.Second})
	require.Equal(t, 2, table.Len())
	assert.Equal(t, t0, table.Rows[0].Time)
	assert.False(t, table.Rows[0].Cells[2].OK)
	assert.Equal(t, 7.0, table.Rows[1].Cells[2].Value)

	col := table.Column("opt")
	require.Len(t, col, 2)
	assert.Nil(t, col[0])
	require.NotNil(t, col[1])
	assert.Equal(t, 7.0, *col[1])
	assert.Nil(t, table.Column("missing"))
}

func TestAlignEmptyAnchor(t *testing.T) {
	table := Align(Stream{Name: "a"}, []Stream{{Name: "b", Observations: []Observation{at(0, 1)}}}, Options{Tolerance: time.Second})
	assert.Zero(t, table.Len())
	assert.Equal(t, []string{"a", "b"}, table.Columns)
}

func TestAlignIsDeterministicAndDoesNotMutate(t *testing.T) {
	anchor := Stream{Name: "a", Observations: []Observation{at(20, 3), at(0, 1), at(10, 2)}}
	other := Stream{Name: "b", Observations: []Observation{at(19, 30), at(1, 10), at(11, 20)}}
	before := append([]Observation(nil), anchor.Observations...)

	first := Align(anchor, []Stream{other}, Options{Tolerance: 2 * time.Second})
	second := Align(anchor, []Stream{other}, Options{Tolerance: 2 * time.Second})
	assert.Equal(t, first, second)
	assert.Equal(t, before, anchor.Observations)
	assert.Equal(t, t0, first.Rows[0].Time)
}

func TestRelativeMinutes(t *testing.T) {
	anchor := Stream{Name: "a", Observations: []Observation{at(0, 1), at(30, 2), at(61, 3)}}
	table := Align(anchor, nil, Options{})
	assert.Equal(t, []float64{0, 0.5, 1.02}, table.RelativeMinutes())
	assert.Empty(t, Table{}.RelativeMinutes())
}

func TestVerticalRatio(t *testing.T) {
	v, ok := VerticalRatio(10, 1.2)
	require.True(t, ok)
	assert.InDelta(t, 8.33, v, 0.005)
	_, ok = VerticalRatio(10, 0)
	assert.False(t, ok)
}

func TestDynamicsAnchorsOnSparsestSeries(t *testing.T) {
	vo := []Observation{at(0, 10), at(1, 10.2), at(2, 10.4), at(3, 10.6)}
	gct := []Observation{at(0.5, 240), at(2.5, 250)}
	sl := []Observation{at(0, 1.2), at(1, 1.2), at(2, 1.25), at(3, 1.3), at(4, 1.3)}

	table := Dynamics(vo, gct, sl)
	require.Equal(t, []string{ColumnVerticalOscillation, ColumnGroundContactTime, ColumnStrideLength, ColumnVerticalRatio}, table.Columns)
	require.Equal(t, 2, table.Len(), "one row per ground contact sample")

	first := table.Rows[0]
	assert.Equal(t, t0.Add(500*time.Millisecond), first.Time)
	assert.Equal(t, 240.0, first.Cells[1].Value)
	assert.Equal(t, time.Duration(0), first.Cells[1].Offset)
	// Ties at ±0.5s resolve to the earlier sample.
	assert.Equal(t, 10.0, first.Cells[0].Value)
	assert.Equal(t, 1.2, first.Cells[2].Value)
	assert.InDelta(t, 10.0/120*100, first.Cells[3].Value, 1e-9)
	assert.Equal(t, -500*time.Millisecond, first.Cells[3].Offset, "ratio carries its inputs' offset")
}

func TestDynamicsDropsRowsMissingAnySeries(t *testing.T) {
	vo := []Observation{at(0, 10), at(60, 10)}
	gct := []Observation{at(0, 240), at(60, 240), at(120, 240)}
	sl := []Observation{at(0, 1.2), at(63, 1.2)}
	table := Dynamics(vo, gct, sl)
	require.Equal(t, 1, table.Len(), "stride length at 63s is beyond 2s of the 60s row")
	assert.Equal(t, t0, table.Rows[0].Time)
	for _, c := range table.Rows[0].Cells {
		assert.True(t, c.OK)
	}
}

func TestDynamicsForWorkoutFiltersSourceAndWindow(t *testing.T) {
	w := healthexport.Workout{Start: t0, End: t0.Add(time.Minute), Source: "Watch"}
	sample := func(m healthexport.MetricType, sec float64, v float64, source string) healthexport.Sample {
		ts := t0.Add(time.Duration(sec * float64(time.Second)))
		return healthexport.Sample{Type: m, Value: v, Start: ts, End: ts, Source: source}
	}
	samples := []healthexport.Sample{
		sample(healthexport.MetricVerticalOscillation, 10, 9, "Watch"),
		sample(healthexport.MetricGroundContactTime, 10, 250, "Watch"),
		sample(healthexport.MetricStrideLength, 10, 1.1, "Watch"),
		sample(healthexport.MetricStrideLength, 10, 2.0, "Phone"),
		sample(healthexport.MetricVerticalOscillation, 120, 9, "Watch"),
	}
	table := DynamicsForWorkout(w, samples)
	require.Equal(t, 1, table.Len())
	assert.Equal(t, 1.1, table.Rows[0].Cells[2].Value)
}

func TestTrackViewRequiresHeartRate(t *testing.T) {
	points := []track.Point{
		{Time: t0, Lat: 45, Lon: 7},
		{Time: t0.Add(10 * time.Second), Lat: 45.0005, Lon: 7},
		{Time: t0.Add(20 * time.Second), Lat: 45.001, Lon: 7},
		{Time: t0.Add(30 * time.Second), Lat: 45.0015, Lon: 7},
	}
	tr := &track.Track{Name: "run", Points: points, Derived: track.Derive(points)}
	hr := []Observation{at(11, 140), at(34, 150)}
	power := Stream{Name: "power_w", Observations: []Observation{at(30, 260)}}

	table := TrackView(tr, hr, power)
	require.Equal(t, []string{ColumnDistance, ColumnPace, ColumnHeartRate, "power_w"}, table.Columns)
	require.Equal(t, 2, table.Len(), "the 20s interval has no heart rate within 5s")
	assert.Equal(t, 140.0, table.Rows[0].Cells[2].Value)
	assert.False(t, table.Rows[0].Cells[3].OK)
	assert.Equal(t, 260.0, table.Rows[1].Cells[3].Value)

	assert.Zero(t, TrackView(nil, hr).Len())
}

func TestTrackViewKeepsPaceMissingWhileStationary(t *testing.T) {
	var points []track.Point
	lat := 45.0
	for sec := 0; sec < 12; sec++ {
		if sec > 5 {
			lat += 0.00003
		}
		points = append(points, track.Point{Time: t0.Add(time.Duration(sec) * time.Second), Lat: lat, Lon: 7})
	}
	tr := &track.Track{Name: "warmup", Points: points, Derived: track.Derive(points)}
	var hr []Observation
	for sec := 0; sec < 12; sec++ {
		hr = append(hr, at(float64(sec), 120+float64(sec)))
	}

	table := TrackView(tr, hr)
	require.Equal(t, 11, table.Len())
	pace := table.Index(ColumnPace)
	for _, row := range table.Rows {
		sec := int(row.Time.Sub(t0) / time.Second)
		cell := row.Cells[pace]
		if sec <= 5 {
			assert.False(t, cell.OK, "no movement at %ds", sec)
			continue
		}
		require.True(t, cell.OK, "moving at %ds", sec)
		assert.Equal(t, time.Duration(0), cell.Offset)
		assert.InDelta(t, 5.0, cell.Value, 0.5)
	}
}
