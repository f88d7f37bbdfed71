// Package export implements the streaming parser for bulk health-data
// exports. The document is consumed in chunks; at no point is the full input
// held in memory. Two record families are extracted: <Workout> summaries and
// auxiliary <Record> time-series samples, which are joined onto workouts by
// time span once the stream ends.
package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/mkarlsen/stride/internal/run"
	"github.com/mkarlsen/stride/internal/units"
	"github.com/mkarlsen/stride/internal/xslog"
)

const timeLayout = "2006-01-02 15:04:05 -0700"

const (
	workoutTypeRunning = "HKWorkoutActivityTypeRunning"

	recordHeartRate    = "HKQuantityTypeIdentifierHeartRate"
	recordStepCount    = "HKQuantityTypeIdentifierStepCount"
	recordStrideLength = "HKQuantityTypeIdentifierRunningStrideLength"

	statDistance = "HKQuantityTypeIdentifierDistanceWalkingRunning"
	statEnergy   = "HKQuantityTypeIdentifierActiveEnergyBurned"
	statSteps    = "HKQuantityTypeIdentifierStepCount"
)

// Cadence derived from a step-count interval is only kept when it is
// physiologically plausible for running.
const (
	minPlausibleCadence = 100
	maxPlausibleCadence = 250
)

const (
	// A serialized auxiliary <Record .../> element is a handful of quoted
	// attributes; 1 KiB comfortably bounds it. When the record buffer holds
	// no complete match, only this much tail is retained so the buffer
	// cannot grow without bound on degenerate input.
	maxAuxRecordBytes = 1024

	// A <Workout> element carries nested statistic and event children and
	// can legitimately span many chunks; retention is capped far higher.
	maxWorkoutBytes = 256 * 1024
)

type auxKind uint8

const (
	auxHeartRate auxKind = iota
	auxCadence
	auxStride
)

// Progress reports parse advancement after each consumed chunk.
type Progress struct {
	BytesRead  int64
	TotalBytes int64
	Percent    float64
	Workouts   int
}

// Parser extracts running workouts and their auxiliary time-series from a
// chunked export stream. A Parser is stateless across calls; each Parse
// carries its own buffers.
type Parser struct {
	logger *slog.Logger
}

type Option func(*Parser)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) { p.logger = logger }
}

func NewParser(opts ...Option) *Parser {
	p := &Parser{logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse consumes src to exhaustion and returns every running workout with its
// time-series attached. A malformed individual element is skipped and logged;
// an error from the source aborts the parse with no partial result. onProgress
// may be nil.
func (p *Parser) Parse(ctx context.Context, src ChunkSource, onProgress func(Progress)) ([]run.Workout, error) {
	st := &parseState{
		logger: p.logger,
		seen:   make(map[auxSampleKey]struct{}),
	}

	total := src.Size()
	var read int64

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		chunk, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading export chunk: %w", err)
		}
		read += int64(len(chunk))

		// The two extraction passes run over independent accumulation
		// windows: each keeps a different amount of unconsumed tail.
		st.workoutBuf = append(st.workoutBuf, chunk...)
		st.recordBuf = append(st.recordBuf, chunk...)
		st.scanWorkouts()
		st.scanRecords()

		if onProgress != nil {
			pr := Progress{BytesRead: read, TotalBytes: total, Workouts: len(st.workouts)}
			if total > 0 {
				pr.Percent = 100 * float64(read) / float64(total)
			}
			onProgress(pr)
		}
	}

	st.finalize()
	return st.workouts, nil
}

type auxSampleKey struct {
	kind  auxKind
	t     int64 // unix millis
	value float64
}

type parseState struct {
	logger *slog.Logger

	workoutBuf []byte
	recordBuf  []byte

	workouts []run.Workout

	heartRate []run.Sample
	cadence   []run.Sample
	stride    []run.Sample

	// Chunk-boundary rescans and literal duplicates in the document must
	// not emit the same sample twice.
	seen map[auxSampleKey]struct{}
}

func (st *parseState) scanWorkouts() {
	buf := st.workoutBuf
	consumed := 0

	for {
		i := findOpen(buf, "Workout", consumed)
		if i < 0 {
			// No start marker; keep just enough tail to survive a marker
			// split across the chunk boundary.
			if c := len(buf) - (len("<Workout") - 1); c > consumed {
				consumed = c
			}
			break
		}
		el, end, complete := scanElement(buf, "Workout", i)
		if !complete {
			consumed = i
			break
		}
		st.emitWorkout(el)
		consumed = end
	}

	st.workoutBuf = retain(buf, consumed, maxWorkoutBytes)
}

func (st *parseState) scanRecords() {
	buf := st.recordBuf
	consumed := 0

	for {
		i := findOpen(buf, "Record", consumed)
		if i < 0 {
			if c := len(buf) - (len("<Record") - 1); c > consumed {
				consumed = c
			}
			break
		}
		el, end, complete := scanElement(buf, "Record", i)
		if !complete {
			consumed = i
			break
		}
		st.emitRecord(el)
		consumed = end
	}

	st.recordBuf = retain(buf, consumed, maxAuxRecordBytes)
}

// retain keeps buf[consumed:], capped at limit bytes, reusing buf's backing
// array.
func retain(buf []byte, consumed, limit int) []byte {
	rest := buf[consumed:]
	if len(rest) > limit {
		rest = rest[len(rest)-limit:]
	}
	return append(buf[:0], rest...)
}

func (st *parseState) emitWorkout(el element) {
	a := attrs(el.tag)
	if a["workoutActivityType"] != workoutTypeRunning {
		return
	}

	start, err := time.Parse(timeLayout, a["startDate"])
	if err != nil {
		st.logger.Warn("skipping workout with bad start date", xslog.Error(err))
		return
	}

	duration, err := strconv.ParseFloat(a["duration"], 64)
	if err != nil {
		// Older exports omit the duration attribute; fall back to the
		// end date when present.
		end, endErr := time.Parse(timeLayout, a["endDate"])
		if endErr != nil {
			st.logger.Warn("skipping workout without usable duration",
				slog.String("start", a["startDate"]))
			return
		}
		duration = end.Sub(start).Minutes()
	}

	w := run.Workout{
		Source:      run.SourceHealthExport,
		Start:       start,
		DurationMin: duration,
	}
	st.applyStatistics(&w, el.inner)
	w.ID = run.ExportWorkoutID(w.Source, w.Start, w.DistanceKm)

	st.workouts = append(st.workouts, w)
}

func (st *parseState) applyStatistics(w *run.Workout, inner []byte) {
	pos := 0
	for {
		i := findOpen(inner, "WorkoutStatistics", pos)
		if i < 0 {
			return
		}
		el, end, complete := scanElement(inner, "WorkoutStatistics", i)
		if !complete {
			return
		}
		pos = end

		a := attrs(el.tag)
		switch a["type"] {
		case statDistance:
			sum := parseFloatAttr(a, "sum")
			if a["unit"] == "mi" {
				sum = units.MilesToKm(sum)
			}
			w.DistanceKm = sum
		case statEnergy:
			w.Calories = parseFloatAttr(a, "sum")
		case recordHeartRate:
			w.AvgHeartRate = parseFloatAttr(a, "average")
			w.MinHeartRate = parseFloatAttr(a, "minimum")
			w.MaxHeartRate = parseFloatAttr(a, "maximum")
		case statSteps:
			if steps := parseFloatAttr(a, "sum"); steps > 0 && w.DurationMin > 0 {
				w.AvgCadence = steps / w.DurationMin
			}
		case recordStrideLength:
			w.AvgStrideLen = parseFloatAttr(a, "average")
		}
	}
}

func (st *parseState) emitRecord(el element) {
	a := attrs(el.tag)

	var kind auxKind
	switch a["type"] {
	case recordHeartRate:
		kind = auxHeartRate
	case recordStepCount:
		kind = auxCadence
	case recordStrideLength:
		kind = auxStride
	default:
		return
	}

	start, err := time.Parse(timeLayout, a["startDate"])
	if err != nil {
		return
	}
	value, err := strconv.ParseFloat(a["value"], 64)
	if err != nil {
		return
	}

	if kind == auxCadence {
		end, err := time.Parse(timeLayout, a["endDate"])
		if err != nil {
			return
		}
		interval := end.Sub(start).Minutes()
		if interval <= 0 {
			return
		}
		value = value / interval
		if value < minPlausibleCadence || value > maxPlausibleCadence {
			return
		}
	}

	key := auxSampleKey{kind: kind, t: start.UnixMilli(), value: value}
	if _, dup := st.seen[key]; dup {
		return
	}
	st.seen[key] = struct{}{}

	sample := run.Sample{Time: start, Value: value}
	switch kind {
	case auxHeartRate:
		st.heartRate = append(st.heartRate, sample)
	case auxCadence:
		st.cadence = append(st.cadence, sample)
	case auxStride:
		st.stride = append(st.stride, sample)
	}
}

// finalize sorts the auxiliary series chronologically and attaches each
// sample to every workout whose [start, end] span contains it, boundaries
// inclusive. Averages computed from an attached series override the coarse
// summary statistic.
func (st *parseState) finalize() {
	sortSamples(st.heartRate)
	sortSamples(st.cadence)
	sortSamples(st.stride)

	for i := range st.workouts {
		w := &st.workouts[i]
		start, end := w.Start, w.End()

		w.HeartRateSeries = samplesWithin(st.heartRate, start, end)
		w.CadenceSeries = samplesWithin(st.cadence, start, end)
		w.StrideLenSeries = samplesWithin(st.stride, start, end)

		if len(w.CadenceSeries) > 0 {
			w.AvgCadence = meanValue(w.CadenceSeries)
		}
		if len(w.StrideLenSeries) > 0 {
			w.AvgStrideLen = meanValue(w.StrideLenSeries)
		}
	}
}

func sortSamples(s []run.Sample) {
	sort.Slice(s, func(i, j int) bool { return s[i].Time.Before(s[j].Time) })
}

func samplesWithin(s []run.Sample, start, end time.Time) []run.Sample {
	var out []run.Sample
	for _, sample := range s {
		if sample.Time.Before(start) || sample.Time.After(end) {
			continue
		}
		out = append(out, sample)
	}
	return out
}

func meanValue(s []run.Sample) float64 {
	var sum float64
	for _, sample := range s {
		sum += sample.Value
	}
	return sum / float64(len(s))
}

func parseFloatAttr(a map[string]string, key string) float64 {
	v, err := strconv.ParseFloat(a[key], 64)
	if err != nil {
		return 0
	}
	return v
}
