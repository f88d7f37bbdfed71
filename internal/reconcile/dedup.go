// Package reconcile merges the views of the same physical runs arriving from
// different systems: workout-level dedup across sources, route-to-workout
// linking, route similarity, and geographic clustering. Every function is
// pure; callers persist results explicitly.
package reconcile

import (
	"math"
	"time"

	"github.com/mkarlsen/stride/internal/run"
)

const (
	// Two workouts can only be the same run when they started within this
	// window of each other.
	maxStartDiff = 10 * time.Minute

	// Distance gate: absolute slack floor and fractional slack of the
	// larger distance, whichever is bigger.
	minDistanceSlackKm = 0.5
	distanceSlackFrac  = 0.10

	duplicateScoreThreshold = 0.5
)

// Dedup removes secondary-source workouts that duplicate a primary-source
// workout. Primary and other-source records are always kept. When a
// secondary duplicate carried time-series the kept primary lacks, the series
// is filled in on the returned copy; inputs are never mutated. The first
// qualifying primary match wins.
func Dedup(workouts []run.Workout, primary, secondary run.Source) []run.Workout {
	var primaries, secondaries, others []run.Workout
	for _, w := range workouts {
		switch w.Source {
		case primary:
			primaries = append(primaries, w)
		case secondary:
			secondaries = append(secondaries, w)
		default:
			others = append(others, w)
		}
	}

	var kept []run.Workout
	for _, sec := range secondaries {
		matched := false
		for i := range primaries {
			score, ok := duplicateScore(primaries[i], sec)
			if !ok || score < duplicateScoreThreshold {
				continue
			}
			fillSeries(&primaries[i], sec)
			matched = true
			break
		}
		if !matched {
			kept = append(kept, sec)
		}
	}

	out := make([]run.Workout, 0, len(primaries)+len(kept)+len(others))
	out = append(out, primaries...)
	out = append(out, kept...)
	out = append(out, others...)
	return out
}

// duplicateScore returns the combined similarity of two workouts and whether
// both gates passed. The score averages a time-closeness fraction and a
// distance-closeness fraction, each scaled linearly by its gate's threshold.
func duplicateScore(a, b run.Workout) (float64, bool) {
	dt := a.Start.Sub(b.Start).Abs()
	if dt >= maxStartDiff {
		return 0, false
	}

	larger := math.Max(a.DistanceKm, b.DistanceKm)
	slack := math.Max(minDistanceSlackKm, distanceSlackFrac*larger)
	dd := math.Abs(a.DistanceKm - b.DistanceKm)
	if dd >= slack {
		return 0, false
	}

	timeScore := 1 - float64(dt)/float64(maxStartDiff)
	distScore := 1 - dd/slack
	return (timeScore + distScore) / 2, true
}

// fillSeries copies a dropped duplicate's time-series onto the kept workout
// where the kept one has none. This is the read-time cross-source merge; it
// never touches summary statistics.
func fillSeries(dst *run.Workout, src run.Workout) {
	if len(dst.HeartRateSeries) == 0 {
		dst.HeartRateSeries = src.HeartRateSeries
	}
	if len(dst.CadenceSeries) == 0 {
		dst.CadenceSeries = src.CadenceSeries
	}
	if len(dst.StrideLenSeries) == 0 {
		dst.StrideLenSeries = src.StrideLenSeries
	}
}
