package strava

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mkarlsen/stride/internal/run"
)

type ActivityService interface {
	List(ctx context.Context, params *ListParams) ([]Activity, error)
	Streams(ctx context.Context, id int64) (*StreamSet, error)
}

type activityService struct {
	client *Client
}

// ListParams selects a page of the athlete's activities, newest first.
type ListParams struct {
	Page    int
	PerPage int
	After   *time.Time
	Before  *time.Time
}

func (p *ListParams) values() url.Values {
	if p == nil {
		return nil
	}

	v := make(url.Values)

	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.PerPage > 0 {
		v.Set("per_page", strconv.Itoa(p.PerPage))
	}
	if p.After != nil {
		v.Set("after", strconv.FormatInt(p.After.Unix(), 10))
	}
	if p.Before != nil {
		v.Set("before", strconv.FormatInt(p.Before.Unix(), 10))
	}

	return v
}

// Activity is a summary activity as Strava returns it: meters, seconds, and
// meters per second.
type Activity struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	SportType        string    `json:"sport_type"`
	StartDate        time.Time `json:"start_date"`
	DistanceMeter    float64   `json:"distance"`
	MovingTimeSec    int       `json:"moving_time"`
	ElapsedTimeSec   int       `json:"elapsed_time"`
	AverageSpeedMps  float64   `json:"average_speed"`
	AverageHeartrate float64   `json:"average_heartrate"`
	MaxHeartrate     float64   `json:"max_heartrate"`
	AverageCadence   float64   `json:"average_cadence"`
	Calories         float64   `json:"calories"`
	Kilojoules       float64   `json:"kilojoules"`
}

func (a *Activity) IsRun() bool {
	return a.SportType == "Run" || a.SportType == "TrailRun" || a.SportType == "VirtualRun"
}

// ToWorkout converts to the canonical representation: kilometers, fractional
// minutes, and a deterministic strava_<id> identity. Strava reports cadence
// per leg, so it is doubled into steps per minute.
func (a *Activity) ToWorkout() run.Workout {
	calories := a.Calories
	if calories == 0 {
		// Summary payloads omit calories; kilojoules of mechanical work
		// is the closest stand-in.
		calories = a.Kilojoules
	}

	return run.Workout{
		ID:           run.ExternalWorkoutID(run.SourceStrava, strconv.FormatInt(a.ID, 10)),
		Source:       run.SourceStrava,
		Start:        a.StartDate,
		DurationMin:  float64(a.MovingTimeSec) / 60,
		DistanceKm:   a.DistanceMeter / 1000,
		Calories:     calories,
		AvgHeartRate: a.AverageHeartrate,
		MaxHeartRate: a.MaxHeartrate,
		AvgCadence:   a.AverageCadence * 2,
	}
}

func (s *activityService) List(ctx context.Context, params *ListParams) ([]Activity, error) {
	const route = "/athlete/activities"

	var activities []Activity
	if err := s.client.do(ctx, http.MethodGet, route, params.values(), &activities); err != nil {
		return nil, err
	}
	return activities, nil
}

// StreamSet is the key_by_type=true form of a streams response. Time offsets
// are seconds from activity start.
type StreamSet struct {
	Time      Stream[int]     `json:"time"`
	Heartrate Stream[float64] `json:"heartrate"`
}

type Stream[T any] struct {
	Data []T `json:"data"`
}

// HeartRateSamples pairs the time and heartrate streams into absolute-time
// samples. Returns nil when either stream is missing.
func (s *StreamSet) HeartRateSamples(start time.Time) []run.Sample {
	n := min(len(s.Time.Data), len(s.Heartrate.Data))
	if n == 0 {
		return nil
	}

	samples := make([]run.Sample, 0, n)
	for i := 0; i < n; i++ {
		samples = append(samples, run.Sample{
			Time:  start.Add(time.Duration(s.Time.Data[i]) * time.Second),
			Value: s.Heartrate.Data[i],
		})
	}
	return samples
}

func (s *activityService) Streams(ctx context.Context, id int64) (*StreamSet, error) {
	route := "/activities/" + strconv.FormatInt(id, 10) + "/streams"

	query := url.Values{
		"keys":        {"time,heartrate"},
		"key_by_type": {"true"},
	}

	var streams StreamSet
	if err := s.client.do(ctx, http.MethodGet, route, query, &streams); err != nil {
		return nil, err
	}
	return &streams, nil
}
