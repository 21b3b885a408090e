package track

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"health-analyzer/healthexport"
)

// DefaultWindow bounds the start-time distance between a track and its workout.
const DefaultWindow = 120 * time.Second

// Match pairs a track with a workout.
type Match struct {
	Track     *Track        `json:"track"`
	WorkoutID string        `json:"workout_id"`
	Offset    time.Duration `json:"offset_ns"`
}

// Association is the outcome of pairing tracks with workouts.
type Association struct {
	Matches []Match  `json:"matches"`
	Orphans []*Track `json:"orphans"`
}

// Associate matches each track to the workout whose start is closest and
// strictly within window of the track's first point. Equal distances go to
// the earlier workout. Tracks without a candidate are orphans.
func Associate(tracks []*Track, workouts []healthexport.Workout, window time.Duration) Association {
	if window <= 0 {
		window = DefaultWindow
	}
	var out Association
	for _, t := range tracks {
		if t == nil || len(t.Points) == 0 {
			continue
		}
		start := t.Start()
		best := -1
		var bestDist time.Duration
		for i, w := range workouts {
			d := absDuration(w.Start.Sub(start))
			if d >= window {
				continue
			}
			if best < 0 || d < bestDist || (d == bestDist && w.Start.Before(workouts[best].Start)) {
				best, bestDist = i, d
			}
		}
		if best < 0 {
			out.Orphans = append(out.Orphans, t)
			continue
		}
		out.Matches = append(out.Matches, Match{
			Track:     t,
			WorkoutID: workouts[best].ID,
			Offset:    start.Sub(workouts[best].Start),
		})
	}
	return out
}

// TrackFor returns the closest track matched to a workout, or nil.
func (a Association) TrackFor(workoutID string) *Track {
	var best *Match
	for i := range a.Matches {
		m := &a.Matches[i]
		if m.WorkoutID != workoutID {
			continue
		}
		if best == nil || absDuration(m.Offset) < absDuration(best.Offset) {
			best = m
		}
	}
	if best == nil {
		return nil
	}
	return best.Track
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

var filenameHintPattern = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})_(\d{1,2})\.(\d{2})(am|pm)`)

// FilenameHint reads the start time some exporters encode in route file
// names, e.g. route_2024-01-02_7.30am.gpx. It is informational only.
func FilenameHint(name string, loc *time.Location) (time.Time, bool) {
	m := filenameHintPattern.FindStringSubmatch(strings.ToLower(name))
	if m == nil {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	day, err := time.ParseInLocation("2006-01-02", m[1], loc)
	if err != nil {
		return time.Time{}, false
	}
	hour, _ := strconv.Atoi(m[2])
	minute, _ := strconv.Atoi(m[3])
	if hour < 1 || hour > 12 || minute > 59 {
		return time.Time{}, false
	}
	hour %= 12
	if m[4] == "pm" {
		hour += 12
	}
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute), true
}
