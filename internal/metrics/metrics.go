// Package metrics derives training statistics from canonical workouts and
// routes: calendar rollups, heart-rate zone time, estimated VO2max, and best
// pace. All functions are pure over their inputs.
package metrics

import (
	"fmt"
	"time"

	"github.com/mkarlsen/stride/internal/run"
)

// Bucket is one calendar period's totals. Empty periods inside the lookback
// window are present with zero totals.
type Bucket struct {
	Start       time.Time `json:"start"`
	Label       string    `json:"label"`
	DistanceKm  float64   `json:"distance_km"`
	DurationMin float64   `json:"duration_min"`
	Count       int       `json:"count"`
}

// WeeklyTotals rolls workouts up into Sunday-start weeks, newest last,
// covering the `weeks` weeks ending at now's week. Workouts outside the
// window are ignored.
func WeeklyTotals(workouts []run.Workout, now time.Time, weeks int) []Bucket {
	if weeks <= 0 {
		return nil
	}

	current := weekStart(now)
	buckets := make([]Bucket, weeks)
	index := make(map[time.Time]int, weeks)
	for i := range buckets {
		start := current.AddDate(0, 0, -7*(weeks-1-i))
		buckets[i] = Bucket{Start: start, Label: start.Format("2006-01-02")}
		index[start] = i
	}

	for _, w := range workouts {
		if i, ok := index[weekStart(w.Start.In(now.Location()))]; ok {
			add(&buckets[i], w)
		}
	}
	return buckets
}

// MonthlyTotals rolls workouts up into calendar months, newest last, covering
// the `months` months ending at now's month.
func MonthlyTotals(workouts []run.Workout, now time.Time, months int) []Bucket {
	if months <= 0 {
		return nil
	}

	buckets := make([]Bucket, months)
	index := make(map[time.Time]int, months)
	for i := range buckets {
		start := monthStart(now).AddDate(0, -(months - 1 - i), 0)
		buckets[i] = Bucket{Start: start, Label: start.Format("2006-01")}
		index[start] = i
	}

	for _, w := range workouts {
		if i, ok := index[monthStart(w.Start.In(now.Location()))]; ok {
			add(&buckets[i], w)
		}
	}
	return buckets
}

func add(b *Bucket, w run.Workout) {
	b.DistanceKm += w.DistanceKm
	b.DurationMin += w.DurationMin
	b.Count++
}

// weekStart is the local midnight of the Sunday on or before t.
func weekStart(t time.Time) time.Time {
	y, m, d := t.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return midnight.AddDate(0, 0, -int(midnight.Weekday()))
}

func monthStart(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

// Zone is time spent in one heart-rate band, bounded by percent of max HR.
type Zone struct {
	Name        string  `json:"name"`
	MinPct      float64 `json:"min_pct"`
	MaxPct      float64 `json:"max_pct"`
	DurationMin float64 `json:"duration_min"`
}

// HeartRateZones buckets workout time into five bands of %maxHR. A workout
// with a heart-rate series contributes per-sample durations (each sample
// covers the gap to the next, the last runs to the workout's end); a workout
// with only an average contributes its whole duration to one band.
func HeartRateZones(workouts []run.Workout, maxHR float64) []Zone {
	zones := []Zone{
		{Name: "Z1", MinPct: 0, MaxPct: 60},
		{Name: "Z2", MinPct: 60, MaxPct: 70},
		{Name: "Z3", MinPct: 70, MaxPct: 80},
		{Name: "Z4", MinPct: 80, MaxPct: 90},
		{Name: "Z5", MinPct: 90, MaxPct: 1000},
	}
	if maxHR <= 0 {
		return zones
	}

	credit := func(hr, minutes float64) {
		if hr <= 0 || minutes <= 0 {
			return
		}
		pct := hr / maxHR * 100
		for i := range zones {
			if pct < zones[i].MaxPct || i == len(zones)-1 {
				zones[i].DurationMin += minutes
				return
			}
		}
	}

	for _, w := range workouts {
		if len(w.HeartRateSeries) == 0 {
			credit(w.AvgHeartRate, w.DurationMin)
			continue
		}
		for i, s := range w.HeartRateSeries {
			var until time.Time
			if i+1 < len(w.HeartRateSeries) {
				until = w.HeartRateSeries[i+1].Time
			} else {
				until = w.End()
			}
			if minutes := until.Sub(s.Time).Minutes(); minutes > 0 {
				credit(s.Value, minutes)
			}
		}
	}
	return zones
}

const (
	minVO2 = 20.0
	maxVO2 = 90.0
)

// VO2Max estimates maximal oxygen uptake from one workout: oxygen cost of the
// average velocity (Daniels) divided by the fraction of max effort implied by
// average heart rate (Swain). Returns nil when the inputs cannot support the
// estimate or the result is implausible.
func VO2Max(w run.Workout, maxHR float64) *float64 {
	if maxHR <= 0 || w.AvgHeartRate <= 0 || w.DurationMin <= 0 || w.DistanceKm <= 0 {
		return nil
	}

	fraction := (w.AvgHeartRate/maxHR - 0.37) / 0.63
	if fraction <= 0 || fraction > 1 {
		return nil
	}

	// Velocity in meters per minute.
	v := w.DistanceKm * 1000 / w.DurationMin
	cost := -4.60 + 0.182258*v + 0.000104*v*v

	est := cost / fraction
	if est < minVO2 || est > maxVO2 {
		return nil
	}
	return &est
}

// BestPace returns the fastest plausible pace (min/km) seen across the
// routes' speed samples. Paces at or under two minutes per kilometer are
// treated as sensor glitches and skipped.
func BestPace(routes []run.Route) (float64, bool) {
	best := 0.0
	found := false
	for i := range routes {
		for _, p := range routes[i].Points {
			if p.SpeedKmh <= 0 {
				continue
			}
			pace := 60 / p.SpeedKmh
			if pace <= 2 {
				continue
			}
			if !found || pace < best {
				best = pace
				found = true
			}
		}
	}
	return best, found
}

// Summary is the headline block for a lookback window.
type Summary struct {
	Workouts    int      `json:"workouts"`
	DistanceKm  float64  `json:"distance_km"`
	DurationMin float64  `json:"duration_min"`
	AvgPace     float64  `json:"avg_pace_min_km"`
	VO2Max      *float64 `json:"vo2max,omitempty"`
}

// Summarize totals the workouts and reports the best VO2max estimate among
// them.
func Summarize(workouts []run.Workout, maxHR float64) Summary {
	var s Summary
	for _, w := range workouts {
		s.Workouts++
		s.DistanceKm += w.DistanceKm
		s.DurationMin += w.DurationMin
		if est := VO2Max(w, maxHR); est != nil {
			if s.VO2Max == nil || *est > *s.VO2Max {
				s.VO2Max = est
			}
		}
	}
	if s.DistanceKm > 0 {
		s.AvgPace = s.DurationMin / s.DistanceKm
	}
	return s
}

func (b Bucket) String() string {
	return fmt.Sprintf("%s: %.1f km over %d workouts", b.Label, b.DistanceKm, b.Count)
}
