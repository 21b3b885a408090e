package track

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tkrajina/gpxgo/gpx"
)

// ParseGPX reads a GPX document. Track segments are used first and routes
// only when no segment holds a timestamped point. Points without a timestamp
// are dropped.
func ParseGPX(r io.Reader, name string) (*Track, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read gpx: %w", err)
	}
	doc, err := gpx.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parse gpx %s: %w", name, err)
	}

	var points []Point
	collect := func(p *gpx.GPXPoint) {
		if p.Timestamp.IsZero() {
			return
		}
		pt := Point{
			Time: p.Timestamp,
			Lat:  p.Point.Latitude,
			Lon:  p.Point.Longitude,
		}
		if p.Elevation.NotNull() {
			v := p.Elevation.Value()
			pt.Elevation = &v
		}
		points = append(points, pt)
	}

	for _, trk := range doc.Tracks {
		for _, seg := range trk.Segments {
			for i := range seg.Points {
				collect(&seg.Points[i])
			}
		}
	}
	if len(points) == 0 {
		for _, rte := range doc.Routes {
			for i := range rte.Points {
				collect(&rte.Points[i])
			}
		}
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("gpx %s: %w", name, ErrNoPoints)
	}
	return newTrack(name, "gpx", points), nil
}

// ParseFile opens path and parses it by extension.
func ParseFile(path string) (*Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open track: %w", err)
	}
	defer f.Close()
	return Parse(f, filepath.Base(path))
}

// Parse dispatches on the extension of name: .gpx or .fit.
func Parse(r io.Reader, name string) (*Track, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".gpx":
		return ParseGPX(r, name)
	case ".fit":
		return ParseFIT(r, name)
	default:
		return nil, fmt.Errorf("track %s: unsupported extension", name)
	}
}
