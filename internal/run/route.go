package run

import (
	"time"

	"github.com/mkarlsen/stride/internal/geo"
)

// RoutePoint is one GPS fix on a track.
type RoutePoint struct {
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Elevation float64   `json:"elevation"`
	Time      time.Time `json:"time"`
	SpeedKmh  float64   `json:"speed_kmh"`
	HeartRate float64   `json:"heart_rate,omitempty"`

	// DistanceKm is the cumulative distance from the first point,
	// monotonically non-decreasing.
	DistanceKm float64 `json:"distance_km"`
}

// Route is one GPS-logged path, independent of any Workout. ID is the source
// filename and acts as the unique key.
type Route struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	Points []RoutePoint `json:"points"`

	DistanceKm   float64   `json:"distance_km"`
	DurationMin  float64   `json:"duration_min"`
	AvgPaceMinKm float64   `json:"avg_pace_min_km"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`

	Bounds geo.Bounds `json:"bounds"`
	Center geo.Point  `json:"center"`

	// Fields below are populated by workout linking and persisted back,
	// since route-level HR display depends on them.
	HeartRateAvg    float64  `json:"heart_rate_avg,omitempty"`
	HeartRateMin    float64  `json:"heart_rate_min,omitempty"`
	HeartRateMax    float64  `json:"heart_rate_max,omitempty"`
	HeartRateSeries []Sample `json:"heart_rate_series,omitempty"`
	LinkedWorkoutID string   `json:"linked_workout_id,omitempty"`
}

// NewRoute assembles a Route from an ordered point sequence, filling in
// cumulative distances and every derived field. A nil or empty point list
// yields a valid route with empty points and zero derived fields.
func NewRoute(id, name string, points []RoutePoint) *Route {
	r := &Route{ID: id, Name: name, Points: points}
	if len(points) == 0 {
		return r
	}

	var cum float64
	coords := make([]geo.Point, len(points))
	for i := range points {
		if i > 0 {
			prev := &points[i-1]
			cum += geo.Haversine(prev.Lat, prev.Lon, points[i].Lat, points[i].Lon)
		}
		points[i].DistanceKm = cum
		coords[i] = geo.Point{Lat: points[i].Lat, Lon: points[i].Lon}
	}

	r.DistanceKm = cum
	r.Start = points[0].Time
	r.End = points[len(points)-1].Time
	r.DurationMin = r.End.Sub(r.Start).Minutes()
	if r.DistanceKm > 0 {
		r.AvgPaceMinKm = r.DurationMin / r.DistanceKm
	}
	r.Bounds = geo.BoundsOf(coords)
	r.Center = geo.Centroid(coords)
	return r
}

// PointElapsed returns the elapsed time of point i since the route start.
func (r *Route) PointElapsed(i int) time.Duration {
	if len(r.Points) == 0 {
		return 0
	}
	return r.Points[i].Time.Sub(r.Points[0].Time)
}

// Duration returns the total route duration.
func (r *Route) Duration() time.Duration {
	return r.End.Sub(r.Start)
}
