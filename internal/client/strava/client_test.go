package strava

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/mkarlsen/stride/internal/run"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token"})
	return New(ts,
		WithBaseURL(srv.URL),
		WithRateLimit(rate.Inf, 1),
	)
}

func TestListActivities(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/athlete/activities" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.URL.Query().Get("page"); got != "2" {
			t.Errorf("page = %q", got)
		}
		if got := r.URL.Query().Get("per_page"); got != "50" {
			t.Errorf("per_page = %q", got)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id": 101, "name": "Morning Run", "sport_type": "Run",
			 "start_date": "2025-03-09T07:00:00Z", "distance": 5000,
			 "moving_time": 1500, "average_heartrate": 152.5,
			 "max_heartrate": 171, "average_cadence": 85},
			{"id": 102, "name": "Commute", "sport_type": "Ride",
			 "start_date": "2025-03-09T17:00:00Z", "distance": 12000,
			 "moving_time": 2400}
		]`))
	}))

	got, err := c.Activities.List(t.Context(), &ListParams{Page: 2, PerPage: 50})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d activities", len(got))
	}
	if !got[0].IsRun() || got[1].IsRun() {
		t.Errorf("run detection wrong: %+v", got)
	}

	w := got[0].ToWorkout()
	if w.ID != "strava_101" || w.Source != run.SourceStrava {
		t.Errorf("identity = %q/%q", w.ID, w.Source)
	}
	if w.DistanceKm != 5.0 || w.DurationMin != 25.0 {
		t.Errorf("units not canonical: %+v", w)
	}
	if w.AvgCadence != 170 { // per-leg cadence doubled to steps/min
		t.Errorf("AvgCadence = %v", w.AvgCadence)
	}
}

func TestActivityStreams(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/activities/101/streams" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("key_by_type"); got != "true" {
			t.Errorf("key_by_type = %q", got)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"time": {"data": [0, 10, 20]},
			"heartrate": {"data": [120, 140, 150]}
		}`))
	}))

	streams, err := c.Activities.Streams(t.Context(), 101)
	if err != nil {
		t.Fatal(err)
	}

	start := time.Date(2025, 3, 9, 7, 0, 0, 0, time.UTC)
	samples := streams.HeartRateSamples(start)
	if len(samples) != 3 {
		t.Fatalf("got %d samples", len(samples))
	}
	if samples[1].Time != start.Add(10*time.Second) || samples[1].Value != 140 {
		t.Errorf("sample[1] = %+v", samples[1])
	}
}

func TestHeartRateSamplesMissingStream(t *testing.T) {
	t.Parallel()

	s := &StreamSet{Time: Stream[int]{Data: []int{0, 10}}}
	if got := s.HeartRateSamples(time.Now()); got != nil {
		t.Errorf("samples from missing heartrate stream: %v", got)
	}
}

func TestAPIError(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message": "Authorization Error", "errors": [{"resource": "Athlete", "field": "access_token", "code": "invalid"}]}`))
	}))

	_, err := c.Activities.List(t.Context(), nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d", apiErr.StatusCode)
	}
}

func TestTokenSourceErrorSurfaces(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not reach the server")
	}))
	t.Cleanup(srv.Close)

	c := New(failingTokenSource{},
		WithBaseURL(srv.URL),
		WithRateLimit(rate.Inf, 1),
	)

	if _, err := c.Activities.List(t.Context(), nil); err == nil {
		t.Fatal("expected a token error")
	}
}

type failingTokenSource struct{}

func (failingTokenSource) Token() (*oauth2.Token, error) {
	return nil, errors.New("token expired")
}
