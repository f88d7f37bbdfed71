package metrics

import (
	"math"
	"testing"
	"time"

	"github.com/mkarlsen/stride/internal/run"
)

func wk(start time.Time, distanceKm, durationMin float64) run.Workout {
	return run.Workout{
		ID:          run.ExportWorkoutID(run.SourceHealthExport, start, distanceKm),
		Source:      run.SourceHealthExport,
		Start:       start,
		DistanceKm:  distanceKm,
		DurationMin: durationMin,
	}
}

func TestWeeklyTotals(t *testing.T) {
	t.Parallel()

	// 2025-03-09 was a Sunday.
	now := time.Date(2025, 3, 12, 18, 0, 0, 0, time.UTC)
	workouts := []run.Workout{
		wk(time.Date(2025, 3, 4, 7, 0, 0, 0, time.UTC), 5, 25),  // prior week
		wk(time.Date(2025, 3, 9, 7, 0, 0, 0, time.UTC), 10, 50), // current week
		wk(time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC), 3, 18), // current week
		wk(time.Date(2025, 2, 1, 7, 0, 0, 0, time.UTC), 8, 40),  // outside window
	}

	got := WeeklyTotals(workouts, now, 2)
	if len(got) != 2 {
		t.Fatalf("got %d buckets, want 2", len(got))
	}
	if got[0].Label != "2025-03-02" || got[0].Count != 1 || got[0].DistanceKm != 5 {
		t.Errorf("prior week = %+v", got[0])
	}
	if got[1].Label != "2025-03-09" || got[1].Count != 2 || got[1].DistanceKm != 13 || got[1].DurationMin != 68 {
		t.Errorf("current week = %+v", got[1])
	}
}

func TestWeeklyTotalsEmptyBucketsPresent(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)
	got := WeeklyTotals(nil, now, 4)
	if len(got) != 4 {
		t.Fatalf("got %d buckets, want 4", len(got))
	}
	for i, b := range got {
		if b.Count != 0 || b.DistanceKm != 0 {
			t.Errorf("bucket %d not empty: %+v", i, b)
		}
		if b.Start.Weekday() != time.Sunday {
			t.Errorf("bucket %d starts on %v", i, b.Start.Weekday())
		}
	}
}

func TestMonthlyTotals(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	workouts := []run.Workout{
		wk(time.Date(2025, 1, 10, 7, 0, 0, 0, time.UTC), 5, 25),
		wk(time.Date(2025, 3, 1, 7, 0, 0, 0, time.UTC), 10, 50),
		wk(time.Date(2025, 3, 31, 23, 0, 0, 0, time.UTC), 4, 20),
		wk(time.Date(2024, 11, 1, 7, 0, 0, 0, time.UTC), 8, 40), // outside
	}

	got := MonthlyTotals(workouts, now, 3)
	if len(got) != 3 {
		t.Fatalf("got %d buckets, want 3", len(got))
	}
	if got[0].Label != "2025-01" || got[0].Count != 1 {
		t.Errorf("january = %+v", got[0])
	}
	if got[1].Label != "2025-02" || got[1].Count != 0 {
		t.Errorf("february = %+v", got[1])
	}
	if got[2].Label != "2025-03" || got[2].Count != 2 || got[2].DistanceKm != 14 {
		t.Errorf("march = %+v", got[2])
	}
}

func TestHeartRateZonesFromSeries(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 3, 9, 7, 0, 0, 0, time.UTC)
	w := wk(start, 5, 30)
	// 10 minutes at 50% (Z1), 10 at 70% (Z3 lower bound), 10 to the end
	// at 95% (Z5).
	w.HeartRateSeries = []run.Sample{
		{Time: start, Value: 100},
		{Time: start.Add(10 * time.Minute), Value: 140},
		{Time: start.Add(20 * time.Minute), Value: 190},
	}

	zones := HeartRateZones([]run.Workout{w}, 200)
	want := map[string]float64{"Z1": 10, "Z2": 0, "Z3": 10, "Z4": 0, "Z5": 10}
	for _, z := range zones {
		if math.Abs(z.DurationMin-want[z.Name]) > 1e-9 {
			t.Errorf("%s = %v min, want %v", z.Name, z.DurationMin, want[z.Name])
		}
	}
}

func TestHeartRateZonesFromAverage(t *testing.T) {
	t.Parallel()

	w := wk(time.Date(2025, 3, 9, 7, 0, 0, 0, time.UTC), 5, 30)
	w.AvgHeartRate = 165 // 82.5% of 200

	zones := HeartRateZones([]run.Workout{w}, 200)
	for _, z := range zones {
		want := 0.0
		if z.Name == "Z4" {
			want = 30
		}
		if z.DurationMin != want {
			t.Errorf("%s = %v min, want %v", z.Name, z.DurationMin, want)
		}
	}
}

func TestVO2Max(t *testing.T) {
	t.Parallel()

	w := wk(time.Date(2025, 3, 9, 7, 0, 0, 0, time.UTC), 10, 60)
	w.AvgHeartRate = 150

	got := VO2Max(w, 190)
	if got == nil {
		t.Fatal("expected an estimate")
	}
	if math.Abs(*got-43.05) > 0.1 {
		t.Errorf("VO2Max = %v, want ~43.05", *got)
	}
}

func TestVO2MaxRejections(t *testing.T) {
	t.Parallel()

	base := wk(time.Date(2025, 3, 9, 7, 0, 0, 0, time.UTC), 10, 60)
	base.AvgHeartRate = 150

	tests := []struct {
		name   string
		mutate func(*run.Workout)
		maxHR  float64
	}{
		{"no heart rate", func(w *run.Workout) { w.AvgHeartRate = 0 }, 190},
		{"no distance", func(w *run.Workout) { w.DistanceKm = 0 }, 190},
		{"no duration", func(w *run.Workout) { w.DurationMin = 0 }, 190},
		{"no max hr", func(*run.Workout) {}, 0},
		{"hr below resting floor", func(w *run.Workout) { w.AvgHeartRate = 60 }, 190},
		{"implausible speed", func(w *run.Workout) { w.DistanceKm = 30 }, 190},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w := base
			tt.mutate(&w)
			if got := VO2Max(w, tt.maxHR); got != nil {
				t.Errorf("VO2Max = %v, want nil", *got)
			}
		})
	}
}

func TestBestPace(t *testing.T) {
	t.Parallel()

	routes := []run.Route{
		{Points: []run.RoutePoint{
			{SpeedKmh: 12}, // 5:00 /km
			{SpeedKmh: 40},  // glitch, skipped
			{SpeedKmh: 15},  // 4:00 /km
		}},
		{Points: []run.RoutePoint{{SpeedKmh: 0}}},
	}

	got, ok := BestPace(routes)
	if !ok || math.Abs(got-4.0) > 1e-9 {
		t.Errorf("BestPace = %v, %v; want 4.0, true", got, ok)
	}

	if _, ok := BestPace(nil); ok {
		t.Error("BestPace(nil) reported a pace")
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	a := wk(time.Date(2025, 3, 9, 7, 0, 0, 0, time.UTC), 10, 60)
	a.AvgHeartRate = 150
	b := wk(time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC), 5, 24)

	got := Summarize([]run.Workout{a, b}, 190)
	if got.Workouts != 2 || got.DistanceKm != 15 || got.DurationMin != 84 {
		t.Errorf("totals = %+v", got)
	}
	if math.Abs(got.AvgPace-84.0/15.0) > 1e-9 {
		t.Errorf("AvgPace = %v", got.AvgPace)
	}
	if got.VO2Max == nil {
		t.Error("VO2Max missing from summary")
	}
}
