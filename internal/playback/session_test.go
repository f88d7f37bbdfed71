package playback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmpopts"

	"github.com/mkarlsen/stride/internal/run"
)

var trackStart = time.Date(2025, 3, 9, 7, 0, 0, 0, time.UTC)

// track builds a straight-line route with n points spaced spacing apart in
// time.
func track(id string, n int, spacing time.Duration) run.Route {
	points := make([]run.RoutePoint, n)
	for i := range points {
		points[i] = run.RoutePoint{
			Lat:  42.35 + 0.0001*float64(i),
			Lon:  -71.06,
			Time: trackStart.Add(time.Duration(i) * spacing),
		}
	}
	return *run.NewRoute(id, id, points)
}

func TestNewSessionValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewSession(nil, Options{}); !errors.Is(err, ErrNoTracks) {
		t.Errorf("nil routes: err = %v", err)
	}

	three := []run.Route{track("a", 2, time.Second), track("b", 2, time.Second), track("c", 2, time.Second)}
	if _, err := NewSession(three, Options{}); !errors.Is(err, ErrTooManyTracks) {
		t.Errorf("three routes: err = %v", err)
	}

	empty := *run.NewRoute("e", "e", nil)
	if _, err := NewSession([]run.Route{empty}, Options{}); !errors.Is(err, ErrEmptyTrack) {
		t.Errorf("empty route: err = %v", err)
	}
}

func TestStepDeterministic(t *testing.T) {
	t.Parallel()

	// Two sessions over the same routes must produce identical frame
	// sequences, and N steps at multiplier M advance exactly N*tick*M.
	routes := []run.Route{track("a", 10, time.Second)}
	opts := Options{TickInterval: 100 * time.Millisecond, Speed: 2}

	s1, err := NewSession(routes, opts)
	if err != nil {
		t.Fatal(err)
	}
	s2, err := NewSession(routes, opts)
	if err != nil {
		t.Fatal(err)
	}

	ignoreID := cmpopts.IgnoreFields(Frame{}, "SessionID")
	for i := 1; i <= 50; i++ {
		f1, f2 := s1.Step(), s2.Step()
		if diff := cmp.Diff(f1, f2, ignoreID); diff != "" {
			t.Fatalf("step %d diverged (-s1 +s2):\n%s", i, diff)
		}
		if want := time.Duration(i) * 200 * time.Millisecond; f1.Elapsed != want {
			t.Fatalf("step %d elapsed = %v, want %v", i, f1.Elapsed, want)
		}
	}
}

func TestStepAdvancesAndFinishes(t *testing.T) {
	t.Parallel()

	s, err := NewSession([]run.Route{track("a", 4, time.Second)}, Options{
		TickInterval: time.Second,
	})
	if err != nil {
		t.Fatal(err)
	}

	for i := 1; i <= 3; i++ {
		f := s.Step()
		if got := f.Tracks[0].PointIndex; got != i {
			t.Fatalf("after step %d pointer at %d", i, got)
		}
		if (i == 3) != f.Tracks[0].Finished {
			t.Fatalf("after step %d finished = %v", i, f.Tracks[0].Finished)
		}
	}
	if !s.Frame().Done {
		t.Error("session not done after last point reached")
	}

	// Extra steps keep the pointer pinned at the last point.
	f := s.Step()
	if f.Tracks[0].PointIndex != 3 || !f.Done {
		t.Errorf("post-finish frame = %+v", f)
	}
}

func TestSetSpeedTakesEffectNextStep(t *testing.T) {
	t.Parallel()

	s, err := NewSession([]run.Route{track("a", 100, time.Second)}, Options{
		TickInterval: 100 * time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}

	s.Step() // 100ms at 1x
	s.SetSpeed(10)
	f := s.Step() // +1s at 10x
	if want := 1100 * time.Millisecond; f.Elapsed != want {
		t.Errorf("elapsed = %v, want %v", f.Elapsed, want)
	}
}

func TestSeek(t *testing.T) {
	t.Parallel()

	s, err := NewSession([]run.Route{track("a", 11, time.Minute)}, Options{})
	if err != nil {
		t.Fatal(err)
	}

	f := s.Seek(50)
	if f.Elapsed != 5*time.Minute || f.Tracks[0].PointIndex != 5 {
		t.Errorf("seek 50%%: %+v", f)
	}

	// Seeking rescans from the start, so seeking backwards works too.
	f = s.Seek(0)
	if f.Elapsed != 0 || f.Tracks[0].PointIndex != 0 || f.Done {
		t.Errorf("seek 0%%: %+v", f)
	}

	f = s.Seek(100)
	if f.Tracks[0].PointIndex != 10 || !f.Tracks[0].Finished || !f.Done {
		t.Errorf("seek 100%%: %+v", f)
	}

	// Out-of-range percents clamp.
	if f = s.Seek(250); !f.Done {
		t.Errorf("seek 250%%: %+v", f)
	}
	if f = s.Seek(-10); f.Elapsed != 0 {
		t.Errorf("seek -10%%: %+v", f)
	}
}

func TestDualTrackDone(t *testing.T) {
	t.Parallel()

	// The short track finishes first; the race is only done when both do.
	routes := []run.Route{
		track("short", 3, time.Second),
		track("long", 6, time.Second),
	}
	s, err := NewSession(routes, Options{TickInterval: time.Second})
	if err != nil {
		t.Fatal(err)
	}

	f := s.Step()
	f = s.Step()
	if !f.Tracks[0].Finished || f.Tracks[1].Finished || f.Done {
		t.Fatalf("after 2s: %+v", f)
	}

	for i := 0; i < 3; i++ {
		f = s.Step()
	}
	if !f.Done || !f.Tracks[1].Finished {
		t.Fatalf("after 5s: %+v", f)
	}
}

func TestSeekDualUsesLongestTrack(t *testing.T) {
	t.Parallel()

	routes := []run.Route{
		track("short", 3, time.Second), // 2s long
		track("long", 11, time.Second), // 10s long
	}
	s, err := NewSession(routes, Options{})
	if err != nil {
		t.Fatal(err)
	}

	f := s.Seek(50)
	if f.Elapsed != 5*time.Second {
		t.Fatalf("seek 50%% elapsed = %v", f.Elapsed)
	}
	if !f.Tracks[0].Finished || f.Tracks[1].PointIndex != 5 {
		t.Errorf("seek 50%% frame = %+v", f)
	}
}

func TestEngineDrivesToCompletion(t *testing.T) {
	t.Parallel()

	s, err := NewSession([]run.Route{track("a", 5, 10*time.Millisecond)}, Options{
		TickInterval: time.Millisecond,
		Speed:        10,
	})
	if err != nil {
		t.Fatal(err)
	}

	var (
		mu     sync.Mutex
		frames []Frame
	)
	done := make(chan struct{})
	e := NewEngine()
	e.Start(context.Background(), s, func(f Frame) {
		mu.Lock()
		frames = append(frames, f)
		mu.Unlock()
		if f.Done {
			close(done)
		}
	})

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("engine never completed the session")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(frames) == 0 {
		t.Fatal("no frames emitted")
	}
	last := frames[len(frames)-1]
	if !last.Done || last.Tracks[0].PointIndex != 4 {
		t.Errorf("final frame = %+v", last)
	}
	for i := 1; i < len(frames); i++ {
		if frames[i].Elapsed <= frames[i-1].Elapsed {
			t.Errorf("elapsed not monotonic at frame %d", i)
		}
	}
}

func TestEnginePauseResume(t *testing.T) {
	t.Parallel()

	// A long route the test never finishes.
	s, err := NewSession([]run.Route{track("a", 1000, time.Second)}, Options{
		TickInterval: time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}

	first := make(chan struct{})
	var once sync.Once
	e := NewEngine()
	e.Start(context.Background(), s, func(Frame) {
		once.Do(func() { close(first) })
	})

	select {
	case <-first:
	case <-time.After(5 * time.Second):
		t.Fatal("no frame emitted")
	}

	e.Pause()
	if got := s.State(); got != StatePaused {
		t.Fatalf("state after pause = %v", got)
	}
	paused := s.Elapsed()
	if paused == 0 {
		t.Fatal("elapsed reset on pause")
	}

	// No ticker is running: elapsed must hold still.
	time.Sleep(20 * time.Millisecond)
	if got := s.Elapsed(); got != paused {
		t.Fatalf("elapsed moved while paused: %v -> %v", paused, got)
	}

	resumed := make(chan Frame, 1)
	e.Start(context.Background(), s, func(f Frame) {
		select {
		case resumed <- f:
		default:
		}
	})
	select {
	case f := <-resumed:
		if f.Elapsed <= paused {
			t.Errorf("resume restarted the clock: %v <= %v", f.Elapsed, paused)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no frame after resume")
	}

	e.Stop()
	if got := s.State(); got != StateIdle {
		t.Errorf("state after stop = %v", got)
	}
	if e.Session() != nil {
		t.Error("session still attached after stop")
	}
}

func TestEngineStartReplacesDriver(t *testing.T) {
	t.Parallel()

	mk := func(id string) *Session {
		s, err := NewSession([]run.Route{track(id, 1000, time.Second)}, Options{
			TickInterval: time.Millisecond,
		})
		if err != nil {
			t.Fatal(err)
		}
		return s
	}
	s1, s2 := mk("a"), mk("b")

	e := NewEngine()
	e.Start(context.Background(), s1, func(Frame) {})

	got := make(chan string, 1)
	e.Start(context.Background(), s2, func(f Frame) {
		select {
		case got <- f.SessionID:
		default:
		}
	})

	select {
	case id := <-got:
		if id != s2.ID() {
			t.Errorf("frames from session %s, want %s", id, s2.ID())
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no frame from replacement driver")
	}
	if e.Session() != s2 {
		t.Error("engine not attached to the new session")
	}
	e.Stop()
}
