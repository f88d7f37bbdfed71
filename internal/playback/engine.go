package playback

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mkarlsen/stride/internal/xslog"
)

// Sink receives every frame the driver emits.
type Sink func(Frame)

// Engine drives a session with a real ticker, one goroutine at a time.
// Starting while a driver is running replaces it; Pause and Stop halt the
// ticker but keep the session's clock, so a later Start resumes in place.
type Engine struct {
	logger *slog.Logger

	mu      sync.Mutex
	session *Session
	cancel  context.CancelFunc
	done    chan struct{}
}

type EngineOption func(*Engine)

func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start begins (or resumes) driving the session, emitting a frame to sink on
// every tick until the session completes or the context is cancelled. Any
// previously running driver is stopped first.
func (e *Engine) Start(ctx context.Context, session *Session, sink Sink) {
	e.mu.Lock()
	e.stopLocked()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	e.session = session
	e.cancel = cancel
	e.done = done
	e.mu.Unlock()

	session.setState(StatePlaying)
	e.logger.Debug("playback started",
		xslog.SessionID(session.ID()),
		xslog.Duration(session.tick),
	)

	go e.drive(ctx, session, sink, done)
}

func (e *Engine) drive(ctx context.Context, session *Session, sink Sink, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(session.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			frame := session.Step()
			sink(frame)
			if frame.Done {
				session.setState(StateIdle)
				e.logger.Debug("playback finished",
					xslog.SessionID(session.ID()),
					xslog.Duration(frame.Elapsed),
				)
				return
			}
		}
	}
}

// Pause halts the ticker. The session keeps its elapsed clock and pointers,
// so Start with the same session picks up where it left off.
func (e *Engine) Pause() {
	e.mu.Lock()
	session := e.session
	e.stopLocked()
	e.mu.Unlock()

	if session != nil {
		session.setState(StatePaused)
		e.logger.Debug("playback paused",
			xslog.SessionID(session.ID()),
			xslog.Duration(session.Elapsed()),
		)
	}
}

// Stop halts the ticker and detaches the session.
func (e *Engine) Stop() {
	e.mu.Lock()
	session := e.session
	e.session = nil
	e.stopLocked()
	e.mu.Unlock()

	if session != nil {
		session.setState(StateIdle)
		e.logger.Debug("playback stopped", xslog.SessionID(session.ID()))
	}
}

// Session returns the session the engine is attached to, or nil.
func (e *Engine) Session() *Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session
}

// stopLocked cancels the running driver and waits for it to exit. Callers
// hold e.mu.
func (e *Engine) stopLocked() {
	if e.cancel == nil {
		return
	}
	e.cancel()
	<-e.done
	e.cancel = nil
	e.done = nil
}
