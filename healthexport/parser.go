package healthexport

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotHealthExport means the stream holds no recognizable export container.
	ErrNotHealthExport = errors.New("not a health export")

	// ErrCorruptExport means the container was found but its markup broke mid-stream.
	ErrCorruptExport = errors.New("corrupt health export")
)

const (
	rootElement    = "HealthData"
	recordElement  = "Record"
	workoutElement = "Workout"
)

// Container metadata, consumed without being reported as skipped.
var headerElements = map[string]bool{
	"ExportDate": true,
	"Me":         true,
}

var timeLayouts = []string{
	"2006-01-02 15:04:05 -0700",
	time.RFC3339Nano,
	"2006-01-02T15:04:05-0700",
}

var workoutNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("health-analyzer/workout"))

// Reader is a forward-only cursor over an export stream. Each call to Next
// decodes one top-level element and discards its subtree.
type Reader struct {
	dec      *xml.Decoder
	rootSeen bool
	done     bool
}

// NewReader wraps r. The caller owns r.
func NewReader(r io.Reader) *Reader {
	dec := xml.NewDecoder(r)
	dec.Strict = true
	return &Reader{dec: dec}
}

// Next returns the next entry, or io.EOF once the container is exhausted.
// Unrecognized and malformed elements come back as EntrySkipped.
func (r *Reader) Next() (Entry, error) {
	if r.done {
		return Entry{}, io.EOF
	}
	for {
		offset := r.dec.InputOffset()
		tok, err := r.dec.Token()
		if err != nil {
			return Entry{}, r.fail(offset, err)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			if !r.rootSeen {
				if el.Name.Local != rootElement {
					r.done = true
					return Entry{}, fmt.Errorf("%w: unexpected root element %q", ErrNotHealthExport, el.Name.Local)
				}
				r.rootSeen = true
				continue
			}
			switch el.Name.Local {
			case recordElement:
				entry := decodeRecord(el)
				entry.Offset = offset
				if err := r.dec.Skip(); err != nil {
					return Entry{}, r.fail(offset, err)
				}
				return entry, nil
			case workoutElement:
				entry, err := r.decodeWorkout(el)
				if err != nil {
					return Entry{}, r.fail(offset, err)
				}
				entry.Offset = offset
				return entry, nil
			default:
				if err := r.dec.Skip(); err != nil {
					return Entry{}, r.fail(offset, err)
				}
				if headerElements[el.Name.Local] {
					continue
				}
				return Entry{Kind: EntrySkipped, Skip: SkipUnrecognizedType, RawType: el.Name.Local, Offset: offset}, nil
			}
		case xml.EndElement:
			if el.Name.Local == rootElement {
				r.done = true
				return Entry{}, io.EOF
			}
		}
	}
}

func (r *Reader) fail(offset int64, err error) error {
	r.done = true
	if errors.Is(err, io.EOF) {
		if !r.rootSeen {
			return fmt.Errorf("%w: no %s element found", ErrNotHealthExport, rootElement)
		}
		return fmt.Errorf("%w: unexpected end of stream at offset %d", ErrCorruptExport, offset)
	}
	if !r.rootSeen {
		return fmt.Errorf("%w: %v", ErrNotHealthExport, err)
	}
	return fmt.Errorf("%w: offset %d: %v", ErrCorruptExport, offset, err)
}

func attrMap(el xml.StartElement) map[string]string {
	out := make(map[string]string, len(el.Attr))
	for _, a := range el.Attr {
		out[a.Name.Local] = a.Value
	}
	return out
}

func decodeRecord(el xml.StartElement) Entry {
	attrs := attrMap(el)
	rawType := attrs["type"]
	metric := LookupMetric(rawType)
	skip := func(reason SkipReason) Entry {
		return Entry{Kind: EntrySkipped, Skip: reason, RawType: rawType}
	}
	if metric == MetricUnrecognized {
		return skip(SkipUnrecognizedType)
	}

	start, err := parseTime(attrs["startDate"])
	if err != nil {
		return skip(SkipBadDate)
	}
	end, err := parseTime(attrs["endDate"])
	if err != nil {
		return skip(SkipBadDate)
	}
	if end.Before(start) {
		return skip(SkipEndBeforeStart)
	}

	var value float64
	if metric == MetricSleepAnalysis {
		stage, ok := sleepStage(attrs["value"])
		if !ok {
			return skip(SkipBadValue)
		}
		value = stage
	} else {
		raw, err := parseFloat(attrs["value"])
		if err != nil {
			return skip(SkipBadValue)
		}
		v, reason, ok := Normalize(metric, raw, attrs["unit"])
		if !ok {
			return skip(reason)
		}
		value = v
	}

	return Entry{
		Kind:    EntrySample,
		RawType: rawType,
		Sample: &Sample{
			Type:   metric,
			Value:  value,
			Unit:   metric.CanonicalUnit(),
			Start:  start,
			End:    end,
			Source: strings.TrimSpace(attrs["sourceName"]),
		},
	}
}

// decodeWorkout consumes the workout subtree, folding statistics and metadata
// children into the returned workout.
func (r *Reader) decodeWorkout(el xml.StartElement) (Entry, error) {
	attrs := attrMap(el)
	rawType := attrs["workoutActivityType"]
	metadata := make(map[string]string)
	var statDistance, statEnergy *float64

	depth := 0
	for {
		tok, err := r.dec.Token()
		if err != nil {
			return Entry{}, err
		}
		if _, ok := tok.(xml.EndElement); ok {
			if depth == 0 {
				break
			}
			depth--
			continue
		}
		child, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		depth++
		ca := attrMap(child)
		switch child.Name.Local {
		case "MetadataEntry":
			if key := strings.TrimSpace(ca["key"]); key != "" {
				metadata[key] = ca["value"]
			}
		case "WorkoutStatistics":
			metric := LookupMetric(ca["type"])
			sum, err := parseFloat(ca["sum"])
			if err != nil {
				break
			}
			switch {
			case metric.IsDistance():
				if km, ok := NormalizeDistance(sum, ca["unit"]); ok {
					statDistance = &km
				}
			case metric == MetricActiveEnergy:
				if kcal, _, ok := Normalize(metric, sum, ca["unit"]); ok {
					statEnergy = &kcal
				}
			}
		case "FileReference":
			if path := strings.TrimSpace(ca["path"]); path != "" {
				metadata["route_file"] = path
			}
		}
	}

	skip := func(reason SkipReason) (Entry, error) {
		return Entry{Kind: EntrySkipped, Skip: reason, RawType: workoutElement}, nil
	}
	start, err := parseTime(attrs["startDate"])
	if err != nil {
		return skip(SkipBadDate)
	}
	end, err := parseTime(attrs["endDate"])
	if err != nil {
		return skip(SkipBadDate)
	}
	if end.Before(start) {
		return skip(SkipEndBeforeStart)
	}

	source := strings.TrimSpace(attrs["sourceName"])
	w := &Workout{
		ID:              workoutID(source, start, rawType),
		ActivityType:    lookupActivity(rawType),
		RawActivityType: rawType,
		Start:           start,
		End:             end,
		Duration:        workoutDuration(attrs["duration"], attrs["durationUnit"], start, end),
		Source:          source,
	}
	if v, err := parseFloat(attrs["totalDistance"]); err == nil {
		unit := attrs["totalDistanceUnit"]
		if unit == "" {
			unit = "km"
		}
		if km, ok := NormalizeDistance(v, unit); ok {
			w.TotalDistanceKM = &km
		}
	}
	if w.TotalDistanceKM == nil {
		w.TotalDistanceKM = statDistance
	}
	if v, err := parseFloat(attrs["totalEnergyBurned"]); err == nil {
		unit := attrs["totalEnergyBurnedUnit"]
		if unit == "" {
			unit = "kcal"
		}
		if kcal, _, ok := Normalize(MetricActiveEnergy, v, unit); ok {
			w.EnergyKcal = &kcal
		}
	}
	if w.EnergyKcal == nil {
		w.EnergyKcal = statEnergy
	}
	if len(metadata) > 0 {
		w.Metadata = metadata
	}
	return Entry{Kind: EntryWorkout, Workout: w, RawType: rawType}, nil
}

func workoutID(source string, start time.Time, rawType string) string {
	key := source + "|" + start.UTC().Format(time.RFC3339Nano) + "|" + rawType
	return uuid.NewSHA1(workoutNamespace, []byte(key)).String()
}

func workoutDuration(raw, unit string, start, end time.Time) time.Duration {
	v, err := parseFloat(raw)
	if err != nil || v <= 0 {
		return end.Sub(start)
	}
	switch strings.TrimSpace(unit) {
	case "s":
		return time.Duration(v * float64(time.Second))
	case "hr":
		return time.Duration(v * float64(time.Hour))
	default:
		return time.Duration(v * float64(time.Minute))
	}
}

func parseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable time %q", raw)
}

func parseFloat(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", raw)
	}
	return v, nil
}

// Extract drains an export stream. Skipped entries are counted, never fatal;
// a fatal error discards everything collected so far.
func Extract(r io.Reader, opts ExtractOptions) (*Export, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	keep := make(map[MetricType]bool, len(opts.Types))
	for _, t := range opts.Types {
		keep[t] = true
	}

	out := &Export{
		Stats: Stats{
			Skipped: make(map[SkipReason]int),
			ByType:  make(map[string]int),
		},
	}
	cur := NewReader(r)
	for {
		entry, err := cur.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch entry.Kind {
		case EntrySample:
			if len(keep) > 0 && !keep[entry.Sample.Type] {
				out.Stats.Skipped[SkipFiltered]++
				continue
			}
			out.Samples = append(out.Samples, *entry.Sample)
			out.Stats.Samples++
			out.Stats.ByType[entry.Sample.Type.String()]++
		case EntryWorkout:
			out.Workouts = append(out.Workouts, *entry.Workout)
			out.Stats.Workouts++
		default:
			out.Stats.Skipped[entry.Skip]++
			logger.Debug("skipped export entry", "raw_type", entry.RawType, "reason", string(entry.Skip), "offset", entry.Offset)
		}
	}
	logger.Info("export extracted",
		"samples", out.Stats.Samples,
		"workouts", out.Stats.Workouts,
		"skipped", out.Stats.SkippedTotal(),
	)
	return out, nil
}

// SkippedTotal sums skipped entries over all reasons.
func (s Stats) SkippedTotal() int {
	n := 0
	for _, c := range s.Skipped {
		n += c
	}
	return n
}
