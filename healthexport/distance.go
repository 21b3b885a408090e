package healthexport

// DistanceSource names where a resolved workout distance came from.
type DistanceSource string

const (
	DistanceFromTrack   DistanceSource = "track"
	DistanceRecorded    DistanceSource = "recorded"
	DistanceFromSamples DistanceSource = "samples"
	DistanceUnavailable DistanceSource = "unavailable"
)

// DistanceResolution is a workout distance and its provenance. Value is nil when unavailable.
type DistanceResolution struct {
	Value   *float64       `json:"value_km,omitempty"`
	Source  DistanceSource `json:"source"`
	Samples int            `json:"samples,omitempty"`
}

// ResolveDistance picks a workout's distance in km. Precedence: an associated
// track, then the recorded total when non-zero, then distance samples lying
// fully inside the workout window from the workout's own source.
func ResolveDistance(w Workout, trackKM *float64, samples []Sample) DistanceResolution {
	if trackKM != nil {
		v := *trackKM
		return DistanceResolution{Value: &v, Source: DistanceFromTrack}
	}
	if w.TotalDistanceKM != nil && *w.TotalDistanceKM != 0 {
		v := *w.TotalDistanceKM
		return DistanceResolution{Value: &v, Source: DistanceRecorded}
	}

	metric := distanceMetricFor(w.ActivityType)
	var sum float64
	n := 0
	for _, s := range samples {
		if s.Type != metric || s.Source != w.Source {
			continue
		}
		if s.Start.Before(w.Start) || s.End.After(w.End) {
			continue
		}
		sum += s.Value
		n++
	}
	if n == 0 {
		return DistanceResolution{Source: DistanceUnavailable}
	}
	return DistanceResolution{Value: &sum, Source: DistanceFromSamples, Samples: n}
}

func distanceMetricFor(activity ActivityType) MetricType {
	switch activity {
	case ActivityCycling:
		return MetricDistanceCycling
	case ActivitySwimming:
		return MetricDistanceSwimming
	default:
		return MetricDistanceWalkingRunning
	}
}
