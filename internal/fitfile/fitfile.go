// Package fitfile imports FIT activity files as routes, for watches that log
// runs in FIT rather than GPX.
package fitfile

import (
	"fmt"
	"io"
	"math"

	"github.com/tormoder/fit"

	"github.com/mkarlsen/stride/internal/run"
)

const invalidHeartRate = 0xFF

// Parse decodes one FIT activity file. filename becomes the route id and, as
// FIT carries no track name, the display name too. Records without a valid
// position fix are dropped; a file with no positioned records yields a valid
// empty route.
func Parse(r io.Reader, filename string) (*run.Route, error) {
	decoded, err := fit.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decoding fit: %w", err)
	}
	activity, err := decoded.Activity()
	if err != nil {
		return nil, fmt.Errorf("reading fit activity: %w", err)
	}

	var points []run.RoutePoint
	for _, rec := range activity.Records {
		lat := rec.PositionLat.Degrees()
		lon := rec.PositionLong.Degrees()
		if math.IsNaN(lat) || math.IsNaN(lon) {
			continue
		}

		pt := run.RoutePoint{
			Lat:  lat,
			Lon:  lon,
			Time: rec.Timestamp,
		}
		if ele := rec.GetAltitudeScaled(); !math.IsNaN(ele) {
			pt.Elevation = ele
		}
		if mps := rec.GetSpeedScaled(); !math.IsNaN(mps) {
			pt.SpeedKmh = mps * 3.6
		}
		if rec.HeartRate != invalidHeartRate {
			pt.HeartRate = float64(rec.HeartRate)
		}
		points = append(points, pt)
	}

	return run.NewRoute(filename, filename, points), nil
}
