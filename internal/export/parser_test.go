package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/mkarlsen/stride/internal/run"
)

type sliceSource struct {
	data  []byte
	chunk int
	pos   int
}

func (s *sliceSource) Next(ctx context.Context) ([]byte, error) {
	if s.pos >= len(s.data) {
		return nil, io.EOF
	}
	end := s.pos + s.chunk
	if end > len(s.data) {
		end = len(s.data)
	}
	out := s.data[s.pos:end]
	s.pos = end
	return out, nil
}

func (s *sliceSource) Size() int64 { return int64(len(s.data)) }

type failingSource struct{}

func (failingSource) Next(ctx context.Context) ([]byte, error) {
	return nil, errors.New("disk gone")
}

func (failingSource) Size() int64 { return 0 }

func record(typ, start, end, value string) string {
	if end == "" {
		end = start
	}
	return fmt.Sprintf(" <Record type=%q sourceName=\"Watch\" startDate=%q endDate=%q value=%q/>\n",
		typ, start, end, value)
}

func buildExport() string {
	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<HealthData locale=\"en_US\">\n")

	// Auxiliary samples around the first workout. The first and third sit
	// exactly on the workout's boundaries; the last one is outside.
	b.WriteString(record(recordHeartRate, "2025-03-09 07:00:00 -0400", "", "142"))
	b.WriteString(record(recordHeartRate, "2025-03-09 07:12:00 -0400", "", "150"))
	b.WriteString(record(recordHeartRate, "2025-03-09 07:30:00 -0400", "", "161"))
	b.WriteString(record(recordHeartRate, "2025-03-09 07:45:00 -0400", "", "95"))

	// 540 steps over 3 minutes: 180 spm, plausible.
	b.WriteString(record(recordStepCount, "2025-03-09 07:10:00 -0400", "2025-03-09 07:13:00 -0400", "540"))
	// 270 steps over 3 minutes: 90 spm, below the running floor, dropped.
	b.WriteString(record(recordStepCount, "2025-03-09 07:14:00 -0400", "2025-03-09 07:17:00 -0400", "270"))

	b.WriteString(record(recordStrideLength, "2025-03-09 07:05:00 -0400", "", "1.10"))
	// Literal duplicate of the previous record; must collapse to one sample.
	b.WriteString(record(recordStrideLength, "2025-03-09 07:05:00 -0400", "", "1.10"))

	b.WriteString(` <Workout workoutActivityType="HKWorkoutActivityTypeRunning" duration="30" durationUnit="min" sourceName="Watch" startDate="2025-03-09 07:00:00 -0400" endDate="2025-03-09 07:30:00 -0400">
  <WorkoutStatistics type="HKQuantityTypeIdentifierDistanceWalkingRunning" sum="5.2" unit="km"/>
  <WorkoutStatistics type="HKQuantityTypeIdentifierActiveEnergyBurned" sum="321" unit="Cal"/>
  <WorkoutStatistics type="HKQuantityTypeIdentifierHeartRate" average="151" minimum="118" maximum="176" unit="count/min"/>
  <WorkoutStatistics type="HKQuantityTypeIdentifierStepCount" sum="5100" unit="count"/>
  <WorkoutStatistics type="HKQuantityTypeIdentifierRunningStrideLength" average="1.05" unit="m"/>
 </Workout>
`)

	// Not a run; must be skipped.
	b.WriteString(` <Workout workoutActivityType="HKWorkoutActivityTypeCycling" duration="45" durationUnit="min" startDate="2025-03-09 09:00:00 -0400" endDate="2025-03-09 09:45:00 -0400">
  <WorkoutStatistics type="HKQuantityTypeIdentifierDistanceCycling" sum="20.0" unit="km"/>
 </Workout>
`)

	// Self-closing running workout with no nested statistics.
	b.WriteString(` <Workout workoutActivityType="HKWorkoutActivityTypeRunning" duration="20" durationUnit="min" startDate="2025-03-08 06:00:00 -0400" endDate="2025-03-08 06:20:00 -0400"/>` + "\n")

	b.WriteString("</HealthData>\n")
	return b.String()
}

func parseWith(t *testing.T, doc string, chunk int) []run.Workout {
	t.Helper()
	got, err := NewParser().Parse(context.Background(), &sliceSource{data: []byte(doc), chunk: chunk}, nil)
	if err != nil {
		t.Fatalf("Parse(chunk=%d) error: %v", chunk, err)
	}
	return got
}

func TestParse(t *testing.T) {
	t.Parallel()

	workouts := parseWith(t, buildExport(), DefaultChunkSize)
	if len(workouts) != 2 {
		t.Fatalf("got %d workouts, want 2", len(workouts))
	}

	w := workouts[0]
	if w.Source != run.SourceHealthExport {
		t.Errorf("source = %q", w.Source)
	}
	if w.DistanceKm != 5.2 || w.DurationMin != 30 || w.Calories != 321 {
		t.Errorf("summary fields wrong: %+v", w)
	}
	if w.AvgHeartRate != 151 || w.MinHeartRate != 118 || w.MaxHeartRate != 176 {
		t.Errorf("HR summary wrong: %+v", w)
	}
	if len(w.HeartRateSeries) != 3 {
		t.Fatalf("attached %d HR samples, want 3 (both boundaries inclusive, outsider excluded)", len(w.HeartRateSeries))
	}
	if w.HeartRateSeries[0].Value != 142 || w.HeartRateSeries[2].Value != 161 {
		t.Errorf("HR series not chronological: %+v", w.HeartRateSeries)
	}

	// One plausible cadence interval (180 spm); the 90 spm interval is
	// rejected, and the series average overrides the step-count summary.
	if len(w.CadenceSeries) != 1 || w.CadenceSeries[0].Value != 180 {
		t.Errorf("cadence series = %+v", w.CadenceSeries)
	}
	if w.AvgCadence != 180 {
		t.Errorf("AvgCadence = %v, want series-derived 180", w.AvgCadence)
	}

	// Duplicate stride record collapsed; average overrides the summary 1.05.
	if len(w.StrideLenSeries) != 1 {
		t.Fatalf("stride series = %+v", w.StrideLenSeries)
	}
	if w.AvgStrideLen != 1.10 {
		t.Errorf("AvgStrideLen = %v, want 1.10", w.AvgStrideLen)
	}

	if w.ID != run.ExportWorkoutID(run.SourceHealthExport, w.Start, 5.2) {
		t.Errorf("unexpected id %q", w.ID)
	}

	bare := workouts[1]
	if bare.DistanceKm != 0 || bare.DurationMin != 20 || len(bare.HeartRateSeries) != 0 {
		t.Errorf("self-closing workout parsed wrong: %+v", bare)
	}
}

func TestParseChunkBoundaryInvariance(t *testing.T) {
	t.Parallel()

	doc := buildExport()
	want := parseWith(t, doc, len(doc))

	for _, chunk := range []int{1, 3, 7, 16, 64, 255, 1 << 20} {
		got := parseWith(t, doc, chunk)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("chunk size %d changed result (-whole +chunked):\n%s", chunk, diff)
		}
	}
}

func TestSamplesWithinBoundaries(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 3, 9, 7, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)
	samples := []run.Sample{
		{Time: start.Add(-time.Millisecond), Value: 1},
		{Time: start, Value: 2},
		{Time: end, Value: 3},
		{Time: end.Add(time.Millisecond), Value: 4},
	}

	got := samplesWithin(samples, start, end)
	if len(got) != 2 || got[0].Value != 2 || got[1].Value != 3 {
		t.Fatalf("samplesWithin() = %+v, want exactly the two boundary samples", got)
	}
}

func TestParseMalformedWorkoutSkipped(t *testing.T) {
	t.Parallel()

	doc := `<HealthData>
 <Workout workoutActivityType="HKWorkoutActivityTypeRunning" duration="30" startDate="not a date" endDate="also bad"/>
 <Workout workoutActivityType="HKWorkoutActivityTypeRunning" duration="25" startDate="2025-03-07 06:00:00 -0400" endDate="2025-03-07 06:25:00 -0400"/>
</HealthData>`

	workouts := parseWith(t, doc, 32)
	if len(workouts) != 1 {
		t.Fatalf("got %d workouts, want the malformed one skipped", len(workouts))
	}
	if workouts[0].DurationMin != 25 {
		t.Errorf("surviving workout = %+v", workouts[0])
	}
}

func TestParseStreamErrorAborts(t *testing.T) {
	t.Parallel()

	_, err := NewParser().Parse(context.Background(), failingSource{}, nil)
	if err == nil {
		t.Fatal("expected stream error to surface")
	}
}

func TestParseProgress(t *testing.T) {
	t.Parallel()

	doc := buildExport()
	var last Progress
	calls := 0
	_, err := NewParser().Parse(context.Background(),
		&sliceSource{data: []byte(doc), chunk: 128},
		func(p Progress) {
			calls++
			if p.BytesRead < last.BytesRead {
				t.Errorf("progress went backwards: %+v after %+v", p, last)
			}
			last = p
		})
	if err != nil {
		t.Fatal(err)
	}
	if calls == 0 {
		t.Fatal("progress callback never fired")
	}
	if last.Percent != 100 || last.BytesRead != int64(len(doc)) {
		t.Errorf("final progress = %+v", last)
	}
	if last.Workouts != 2 {
		t.Errorf("final workout count = %d, want 2", last.Workouts)
	}
}

func TestParseCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewParser().Parse(ctx, &sliceSource{data: []byte(buildExport()), chunk: 16}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
