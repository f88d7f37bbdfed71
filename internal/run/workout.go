// Package run holds the domain model shared by every other package: workouts,
// GPS routes, and timestamped samples. All values are stored in canonical
// units (kilometers, fractional minutes) regardless of display preference.
package run

import (
	"fmt"
	"time"
)

// Source identifies where a workout record came from.
type Source string

const (
	SourceHealthExport Source = "health_export"
	SourceStrava       Source = "strava"
	SourceOther        Source = "other"
)

// Sample is a single timestamped reading of a time-series attachment.
type Sample struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// Workout is one completed run.
type Workout struct {
	ID     string    `json:"id"`
	Source Source    `json:"source"`
	Start  time.Time `json:"start"`

	DurationMin float64 `json:"duration_min"`
	DistanceKm  float64 `json:"distance_km"`
	Calories    float64 `json:"calories,omitempty"`

	AvgHeartRate float64 `json:"avg_heart_rate,omitempty"`
	MinHeartRate float64 `json:"min_heart_rate,omitempty"`
	MaxHeartRate float64 `json:"max_heart_rate,omitempty"`

	AvgCadence   float64 `json:"avg_cadence,omitempty"`    // steps/min
	AvgStrideLen float64 `json:"avg_stride_len,omitempty"` // meters

	HeartRateSeries []Sample `json:"heart_rate_series,omitempty"`
	CadenceSeries   []Sample `json:"cadence_series,omitempty"`
	StrideLenSeries []Sample `json:"stride_len_series,omitempty"`
}

// End returns the workout's end time derived from start plus duration.
func (w *Workout) End() time.Time {
	return w.Start.Add(time.Duration(w.DurationMin * float64(time.Minute)))
}

// PaceMinPerKm returns the derived average pace. Pace is never stored; it is
// always duration over distance. Returns 0 for zero distance.
func (w *Workout) PaceMinPerKm() float64 {
	if w.DistanceKm <= 0 {
		return 0
	}
	return w.DurationMin / w.DistanceKm
}

// ExportWorkoutID builds the deterministic identity for a bulk-export workout,
// stable across re-parses of the same input so re-imports overwrite instead of
// duplicating.
func ExportWorkoutID(source Source, start time.Time, distanceKm float64) string {
	return fmt.Sprintf("%s_%d_%.3f", source, start.UnixMilli(), distanceKm)
}

// ExternalWorkoutID builds the identity for an API-sourced workout from its
// external id.
func ExternalWorkoutID(source Source, externalID string) string {
	return fmt.Sprintf("%s_%s", source, externalID)
}
