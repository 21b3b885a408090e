// Package track turns positional recordings into distance and pace series and
// pairs them with workouts.
package track

import (
	"math"
	"sort"
	"time"
)

const (
	// EarthRadiusKM is the sphere radius used for great-circle distance.
	EarthRadiusKM = 6371.0

	// MaxPaceMinPerKM marks slower intervals as noise; they carry no pace.
	MaxPaceMinPerKM = 20.0

	// SmoothingWindow is the number of trailing intervals averaged into PaceSmoothed.
	SmoothingWindow = 10
)

// Point is one timestamped position.
type Point struct {
	Time      time.Time `json:"time"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Elevation *float64  `json:"elevation_m,omitempty"`
}

// Interval covers the step from the previous point to the point at Time.
// Pace fields are nil when unavailable.
type Interval struct {
	Time         time.Time `json:"time"`
	DeltaKM      float64   `json:"delta_km"`
	CumulativeKM float64   `json:"cumulative_km"`
	DeltaSeconds float64   `json:"delta_s"`
	PaceSmoothed *float64  `json:"pace_smoothed_min_per_km,omitempty"`
	Elevation    *float64  `json:"elevation_m,omitempty"`

	pace *float64
}

// Summary aggregates a derived track.
type Summary struct {
	Start          time.Time     `json:"start"`
	End            time.Time     `json:"end"`
	Duration       time.Duration `json:"duration_ns"`
	DistanceKM     float64       `json:"distance_km"`
	ElevationGainM float64       `json:"elevation_gain_m"`
	ElevationLossM float64       `json:"elevation_loss_m"`
	AvgPace        *float64      `json:"avg_pace_min_per_km,omitempty"`
}

// Track is a named positional recording.
type Track struct {
	Name    string     `json:"name"`
	Format  string     `json:"format"`
	Points  []Point    `json:"-"`
	Derived []Interval `json:"-"`
	Summary Summary    `json:"summary"`
}

// Start returns the time of the first point, or zero for an empty track.
func (t *Track) Start() time.Time {
	if len(t.Points) == 0 {
		return time.Time{}
	}
	return t.Points[0].Time
}

// DistanceKM returns the cumulative great-circle distance, nil when the track has no intervals.
func (t *Track) DistanceKM() *float64 {
	if len(t.Derived) == 0 {
		return nil
	}
	v := t.Derived[len(t.Derived)-1].CumulativeKM
	return &v
}

func newTrack(name, format string, points []Point) *Track {
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Time.Before(points[j].Time)
	})
	t := &Track{Name: name, Format: format, Points: points}
	t.Derived = Derive(points)
	t.Summary = Summarize(points, t.Derived)
	return t
}

// Haversine returns the great-circle distance between a and b in km.
func Haversine(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadiusKM * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Derive computes one interval per consecutive point pair. Points must be time ordered.
func Derive(points []Point) []Interval {
	if len(points) < 2 {
		return nil
	}
	out := make([]Interval, 0, len(points)-1)
	cumulative := 0.0
	for i := 1; i < len(points); i++ {
		prev, cur := points[i-1], points[i]
		dkm := Haversine(prev, cur)
		dt := cur.Time.Sub(prev.Time).Seconds()
		cumulative += dkm

		iv := Interval{
			Time:         cur.Time,
			DeltaKM:      dkm,
			CumulativeKM: cumulative,
			DeltaSeconds: dt,
			Elevation:    cur.Elevation,
		}
		if dkm > 0 && dt > 0 {
			pace := (dt / 60) / dkm
			if pace <= MaxPaceMinPerKM {
				iv.pace = &pace
			}
		}
		out = append(out, iv)
	}
	smoothPace(out, SmoothingWindow)
	return out
}

// smoothPace fills PaceSmoothed with the mean of available paces over the
// trailing window, the current interval included.
func smoothPace(intervals []Interval, window int) {
	for i := range intervals {
		lo := max(0, i-window+1)
		sum, n := 0.0, 0
		for _, iv := range intervals[lo : i+1] {
			if iv.pace != nil {
				sum += *iv.pace
				n++
			}
		}
		if n > 0 {
			v := sum / float64(n)
			intervals[i].PaceSmoothed = &v
		}
	}
}

// Summarize builds totals for a derived track.
func Summarize(points []Point, intervals []Interval) Summary {
	var s Summary
	if len(points) == 0 {
		return s
	}
	s.Start = points[0].Time
	s.End = points[len(points)-1].Time
	s.Duration = s.End.Sub(s.Start)
	if len(intervals) > 0 {
		s.DistanceKM = intervals[len(intervals)-1].CumulativeKM
	}
	if s.DistanceKM > 0 && s.Duration > 0 {
		pace := s.Duration.Minutes() / s.DistanceKM
		if pace <= MaxPaceMinPerKM {
			s.AvgPace = &pace
		}
	}

	var last *float64
	for _, p := range points {
		if p.Elevation == nil {
			continue
		}
		if last != nil {
			d := *p.Elevation - *last
			if d > 0 {
				s.ElevationGainM += d
			} else {
				s.ElevationLossM -= d
			}
		}
		last = p.Elevation
	}
	return s
}
