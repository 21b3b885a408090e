package track

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/tormoder/fit"
)

// ErrNoPoints means a track file decoded but held no usable timestamped position.
var ErrNoPoints = errors.New("no timestamped points")

// ParseFIT reads the record messages of a FIT activity file. Records without
// a valid position or timestamp are dropped.
func ParseFIT(r io.Reader, name string) (*Track, error) {
	decoded, err := fit.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode fit %s: %w", name, err)
	}
	activity, err := decoded.Activity()
	if err != nil {
		return nil, fmt.Errorf("fit %s is not an activity: %w", name, err)
	}

	points := make([]Point, 0, len(activity.Records))
	for _, rec := range activity.Records {
		if rec == nil || rec.Timestamp.IsZero() {
			continue
		}
		if rec.PositionLat.Invalid() || rec.PositionLong.Invalid() {
			continue
		}
		pt := Point{
			Time: rec.Timestamp,
			Lat:  rec.PositionLat.Degrees(),
			Lon:  rec.PositionLong.Degrees(),
		}
		if alt := recordAltitude(rec); alt != nil {
			pt.Elevation = alt
		}
		points = append(points, pt)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("fit %s: %w", name, ErrNoPoints)
	}
	return newTrack(name, "fit", points), nil
}

func recordAltitude(rec *fit.RecordMsg) *float64 {
	v := rec.GetEnhancedAltitudeScaled()
	if math.IsNaN(v) {
		v = rec.GetAltitudeScaled()
	}
	if math.IsNaN(v) {
		return nil
	}
	return &v
}
