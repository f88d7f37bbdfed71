// Package gpx parses GPS track logs into routes. Unlike the bulk export,
// a track document is small enough to decode in one pass.
package gpx

import (
	"encoding/xml"
	"fmt"
	"io"
	"time"

	"github.com/mkarlsen/stride/internal/run"
)

type gpxDoc struct {
	XMLName xml.Name `xml:"gpx"`
	Trk     struct {
		Name     string `xml:"name"`
		Segments []struct {
			Points []trkpt `xml:"trkpt"`
		} `xml:"trkseg"`
	} `xml:"trk"`
}

type trkpt struct {
	Lat  float64   `xml:"lat,attr"`
	Lon  float64   `xml:"lon,attr"`
	Ele  float64   `xml:"ele"`
	Time time.Time `xml:"time"`

	// GPX 1.0 puts speed directly on the point.
	Speed float64 `xml:"speed"`

	// GPX 1.1 devices scatter heart rate and speed across extension
	// layouts; all the common spots are probed.
	Extensions struct {
		Speed float64 `xml:"speed"`
		HR    float64 `xml:"hr"`
		TPX   struct {
			HR    float64 `xml:"hr"`
			Speed float64 `xml:"speed"`
		} `xml:"TrackPointExtension"`
	} `xml:"extensions"`
}

// Parse decodes one complete GPX document. filename becomes the route's
// unique id; the display name falls back to it when the track is unnamed.
// A document with zero track points is a valid empty route, not an error.
func Parse(r io.Reader, filename string) (*run.Route, error) {
	var doc gpxDoc
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding gpx: %w", err)
	}

	var points []run.RoutePoint
	for _, seg := range doc.Trk.Segments {
		for _, pt := range seg.Points {
			points = append(points, run.RoutePoint{
				Lat:       pt.Lat,
				Lon:       pt.Lon,
				Elevation: pt.Ele,
				Time:      pt.Time,
				SpeedKmh:  speedKmh(pt),
				HeartRate: heartRate(pt),
			})
		}
	}

	name := doc.Trk.Name
	if name == "" {
		name = filename
	}
	return run.NewRoute(filename, name, points), nil
}

// speedKmh picks the first embedded speed value, converting from the m/s the
// GPX formats use. Absent speed is 0.
func speedKmh(pt trkpt) float64 {
	for _, mps := range []float64{pt.Speed, pt.Extensions.Speed, pt.Extensions.TPX.Speed} {
		if mps > 0 {
			return mps * 3.6
		}
	}
	return 0
}

func heartRate(pt trkpt) float64 {
	if pt.Extensions.TPX.HR > 0 {
		return pt.Extensions.TPX.HR
	}
	return pt.Extensions.HR
}
