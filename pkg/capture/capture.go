// Package capture implements the voice capture session: acquiring an
// exclusive audio input resource, streaming it through a speech recognizer,
// and emitting the recognized transcript.
//
// A capture session walks Idle → Acquiring → Listening → Finalizing → Idle.
// Explicit cancellation and every failure path land back in Idle with the
// input resource released exactly once. Failures are logged, never surfaced
// to the conversation.
package capture

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// State is the capture session state.
type State int

const (
	Idle State = iota
	Acquiring
	Listening
	Finalizing
	Errored
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Acquiring:
		return "acquiring"
	case Listening:
		return "listening"
	case Finalizing:
		return "finalizing"
	case Errored:
		return "error"
	default:
		return "unknown"
	}
}

// Stream is an acquired audio input resource delivering 16-bit little-endian
// mono PCM. Close releases the underlying resource.
type Stream interface {
	io.Reader
	Close() error
}

// Source acquires the audio input resource. Acquisition may suspend (e.g.
// waiting on a permission prompt); it honors ctx cancellation.
type Source interface {
	Acquire(ctx context.Context) (Stream, error)
}

// Controller is the capture state machine. At most one capture session is
// active at a time; Start while a session is active is a no-op.
type Controller struct {
	source     Source
	recognizer Recognizer

	// OnTranscript receives the recognized text of a completed session.
	OnTranscript func(text string)

	// OnLevel receives the input level scale factor while listening
	// (1.0 at silence, clamped upward). Reset to 1.0 when capture ends.
	OnLevel func(scale float64)

	mu      sync.Mutex
	state   State
	current *session
}

// session is the transient state of one capture attempt.
type session struct {
	id     string
	cancel context.CancelFunc

	releaseOnce sync.Once
	stream      Stream
}

// release closes the stream exactly once, regardless of how many exit paths
// race to it.
func (s *session) release() {
	s.releaseOnce.Do(func() {
		if s.stream != nil {
			if err := s.stream.Close(); err != nil {
				slog.Warn("capture: stream close failed", "session", s.id, "err", err)
			}
		}
	})
}

// NewController creates a capture controller.
func NewController(source Source, recognizer Recognizer) *Controller {
	return &Controller{source: source, recognizer: recognizer}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start begins a capture session. It returns false without side effects if a
// session is already active. The session runs asynchronously: the transcript,
// if any, is delivered via OnTranscript.
func (c *Controller) Start(ctx context.Context) bool {
	c.mu.Lock()
	if c.state != Idle {
		c.mu.Unlock()
		return false
	}
	ctx, cancel := context.WithCancel(ctx)
	sess := &session{id: uuid.NewString(), cancel: cancel}
	c.state = Acquiring
	c.current = sess
	c.mu.Unlock()

	go c.run(ctx, sess)
	return true
}

// Stop cancels the active session, if any, releasing the resource without
// emitting a transcript. Calling Stop from Idle is a no-op.
func (c *Controller) Stop() {
	c.mu.Lock()
	sess := c.current
	if sess == nil {
		c.mu.Unlock()
		return
	}
	c.state = Idle
	c.current = nil
	c.mu.Unlock()

	sess.cancel()
	sess.release()
	c.resetLevel()
}

// run drives one capture session to completion.
func (c *Controller) run(ctx context.Context, sess *session) {
	defer sess.cancel()

	stream, err := c.source.Acquire(ctx)
	if err != nil {
		slog.Warn("capture: acquire failed", "session", sess.id, "err", err)
		c.transition(sess, Errored)
		c.finish(sess)
		return
	}
	// Adopt the stream and move to Listening atomically. If Stop won the
	// race while we were acquiring, the session's release already ran with
	// no stream attached, so this goroutine owns the only close.
	c.mu.Lock()
	if c.current != sess {
		c.mu.Unlock()
		if err := stream.Close(); err != nil {
			slog.Warn("capture: stream close failed", "session", sess.id, "err", err)
		}
		return
	}
	sess.stream = stream
	c.state = Listening
	c.mu.Unlock()

	audio := io.Reader(stream)
	if c.OnLevel != nil {
		audio = io.TeeReader(stream, &levelMeter{onLevel: c.OnLevel})
	}

	text, err := c.recognizer.Recognize(ctx, audio)
	sess.release()
	c.resetLevel()

	if err != nil {
		if !errors.Is(err, context.Canceled) {
			slog.Warn("capture: recognition failed", "session", sess.id, "err", err)
		}
		c.transition(sess, Errored)
		c.finish(sess)
		return
	}
	if text == "" {
		slog.Warn("capture: no speech recognized", "session", sess.id)
		c.transition(sess, Errored)
		c.finish(sess)
		return
	}

	if !c.transition(sess, Finalizing) {
		return
	}
	if c.OnTranscript != nil {
		c.OnTranscript(text)
	}
	c.finish(sess)
}

// transition moves to the next state if sess is still the active session.
// Returns false if the session was superseded or stopped.
func (c *Controller) transition(sess *session, next State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != sess {
		return false
	}
	c.state = next
	return true
}

// finish releases the session and lands the controller in Idle, unless the
// session was already superseded by Stop.
func (c *Controller) finish(sess *session) {
	sess.release()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != sess {
		return
	}
	c.state = Idle
	c.current = nil
}

func (c *Controller) resetLevel() {
	if c.OnLevel != nil {
		c.OnLevel(1)
	}
}
