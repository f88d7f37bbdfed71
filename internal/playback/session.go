// Package playback replays one or two routes against a shared simulated
// clock. The stepping core is deterministic and side-effect free; the Engine
// drives it with a real ticker and is the only place wall-clock time exists.
package playback

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mkarlsen/stride/internal/run"
)

const (
	DefaultTickInterval = 100 * time.Millisecond
	DefaultSpeed        = 1.0
)

// MaxTracks is the number of routes a race can replay side by side.
const MaxTracks = 2

var (
	ErrNoTracks      = errors.New("playback: no routes given")
	ErrTooManyTracks = errors.New("playback: at most two routes can race")
	ErrEmptyTrack    = errors.New("playback: route has no points")
)

type State uint8

const (
	StateIdle State = iota
	StatePlaying
	StatePaused
)

// Options configures a session. Zero values take the defaults.
type Options struct {
	TickInterval time.Duration
	Speed        float64
}

// TrackProgress is one track's position within a Frame.
type TrackProgress struct {
	RouteID    string
	PointIndex int
	Point      run.RoutePoint
	DistanceKm float64
	Finished   bool
}

// Frame is the progress payload emitted every tick.
type Frame struct {
	SessionID string
	Elapsed   time.Duration
	Tracks    []TrackProgress
	Done      bool
}

type trackState struct {
	route    run.Route
	idx      int
	finished bool
}

// Session holds the simulated clock and per-track forward pointers for one
// replay. Stepping never consults the wall clock: N steps at multiplier M
// always advance elapsed time by exactly N × tick × M.
type Session struct {
	id   string
	tick time.Duration

	mu      sync.Mutex
	tracks  []*trackState
	speed   float64
	elapsed time.Duration
	state   State
}

// NewSession validates the routes and builds an idle session positioned at
// the start of every track.
func NewSession(routes []run.Route, opts Options) (*Session, error) {
	if len(routes) == 0 {
		return nil, ErrNoTracks
	}
	if len(routes) > MaxTracks {
		return nil, ErrTooManyTracks
	}
	for i := range routes {
		if len(routes[i].Points) == 0 {
			return nil, ErrEmptyTrack
		}
	}

	tick := opts.TickInterval
	if tick <= 0 {
		tick = DefaultTickInterval
	}
	speed := opts.Speed
	if speed <= 0 {
		speed = DefaultSpeed
	}

	s := &Session{
		id:    uuid.NewString(),
		tick:  tick,
		speed: speed,
	}
	for i := range routes {
		s.tracks = append(s.tracks, &trackState{route: routes[i]})
	}
	return s, nil
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsed
}

// SetSpeed changes the simulation multiplier; it takes effect on the next
// tick. Non-positive values are ignored.
func (s *Session) SetSpeed(multiplier float64) {
	if multiplier <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.speed = multiplier
}

// Step advances the simulated clock by one tick and moves every track's
// forward pointer to the last point at or before the new elapsed time.
func (s *Session) Step() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.elapsed += time.Duration(float64(s.tick) * s.speed)
	s.advanceLocked()
	return s.frameLocked()
}

// Frame reports the current position without advancing the clock.
func (s *Session) Frame() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frameLocked()
}

// Seek relocates the clock to percent of the longest track's duration and
// rescans every pointer from the start. Percent is clamped to [0,100].
func (s *Session) Seek(percent float64) Frame {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var longest time.Duration
	for _, t := range s.tracks {
		if d := t.route.Duration(); d > longest {
			longest = d
		}
	}
	s.elapsed = time.Duration(percent / 100 * float64(longest))

	for _, t := range s.tracks {
		t.idx = 0
		t.finished = false
	}
	s.advanceLocked()
	return s.frameLocked()
}

// advanceLocked moves pointers forward only; during normal play they are
// never rewound.
func (s *Session) advanceLocked() {
	for _, t := range s.tracks {
		last := len(t.route.Points) - 1
		for t.idx < last && t.route.PointElapsed(t.idx+1) <= s.elapsed {
			t.idx++
		}
		if t.idx == last {
			t.finished = true
		}
	}
}

func (s *Session) frameLocked() Frame {
	f := Frame{
		SessionID: s.id,
		Elapsed:   s.elapsed,
		Done:      true,
	}
	for _, t := range s.tracks {
		pt := t.route.Points[t.idx]
		f.Tracks = append(f.Tracks, TrackProgress{
			RouteID:    t.route.ID,
			PointIndex: t.idx,
			Point:      pt,
			DistanceKm: pt.DistanceKm,
			Finished:   t.finished,
		})
		if !t.finished {
			f.Done = false
		}
	}
	return f
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
}
