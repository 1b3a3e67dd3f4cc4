// Package engine orchestrates the conversational session: user input in,
// remote exchange out, reply rendered incrementally and optionally spoken.
//
// Submissions are independent: a second message fired while one is in
// flight runs concurrently, and each reply lands in its own placeholder
// slot. The engine imposes no cross-submission ordering.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/talkbox/talkbox/pkg/capture"
	"github.com/talkbox/talkbox/pkg/chat"
	"github.com/talkbox/talkbox/pkg/history"
	"github.com/talkbox/talkbox/pkg/render"
	"github.com/talkbox/talkbox/pkg/speak"
)

// Fixed user-facing texts. Overridable per engine via Config.
const (
	DefaultFallbackReply   = "I couldn't answer that right now."
	DefaultUnavailableText = "Service unavailable. Try again later."
	DefaultNetworkText     = "Network error. Check your connection."
	DefaultClearedText     = "Chat history cleared."
	DefaultGreeting        = "Hi! Hold the mic to talk, or type a message."
	pendingText            = "..."
)

// Config carries the engine's fixed texts. Zero values fall back to the
// package defaults.
type Config struct {
	FallbackReply   string
	UnavailableText string
	NetworkText     string
	ClearedText     string
	Greeting        string
}

func (c *Config) fill() {
	if c.FallbackReply == "" {
		c.FallbackReply = DefaultFallbackReply
	}
	if c.UnavailableText == "" {
		c.UnavailableText = DefaultUnavailableText
	}
	if c.NetworkText == "" {
		c.NetworkText = DefaultNetworkText
	}
	if c.ClearedText == "" {
		c.ClearedText = DefaultClearedText
	}
	if c.Greeting == "" {
		c.Greeting = DefaultGreeting
	}
}

// Engine is the message pipeline.
type Engine struct {
	store     *history.Store
	exchanger chat.Exchanger
	renderer  *render.Renderer
	surface   render.Surface
	output    *speak.Output
	voice     *capture.Controller
	config    Config

	gestures map[Gesture]func(ctx context.Context, arg string)
	inflight sync.WaitGroup
}

// New wires an engine. voice may be nil (no capture hardware); when given,
// its transcripts feed Submit.
func New(store *history.Store, exchanger chat.Exchanger, renderer *render.Renderer,
	surface render.Surface, output *speak.Output, voice *capture.Controller, config Config) *Engine {

	config.fill()
	e := &Engine{
		store:     store,
		exchanger: exchanger,
		renderer:  renderer,
		surface:   surface,
		output:    output,
		voice:     voice,
		config:    config,
	}
	if voice != nil {
		voice.OnTranscript = func(text string) {
			e.Submit(context.Background(), text)
		}
	}
	e.gestures = map[Gesture]func(ctx context.Context, arg string){
		GestureSubmit:       func(ctx context.Context, arg string) { e.Submit(ctx, arg) },
		GestureCaptureStart: func(ctx context.Context, _ string) { e.StartCapture(ctx) },
		GestureCaptureStop:  func(ctx context.Context, _ string) { e.StopCapture() },
		GestureMuteToggle:   func(_ context.Context, _ string) { e.ToggleMute() },
		GestureClearHistory: func(ctx context.Context, _ string) { e.ClearHistory(ctx) },
	}
	return e
}

// Submit runs one conversational turn. Empty or whitespace-only input is a
// no-op. The remote exchange runs asynchronously; the reply (or an error
// bubble) lands in this submission's own placeholder.
func (e *Engine) Submit(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	// The exchange payload carries the history as it stood before this
	// turn; the new user message travels in the message field itself.
	prior := e.store.Load(ctx)

	// Persist and render the user turn immediately.
	if _, err := e.store.Append(ctx, chat.NewMessage(chat.RoleUser, text)); err != nil {
		// Persistence trouble never blocks the conversation.
		slog.Warn("engine: append user message failed", "err", err)
	}
	e.addBubble("user", text)

	// Transient placeholder for the assistant turn.
	placeholder := uuid.NewString()
	e.surface.AppendBubble(placeholder, "assistant")
	e.surface.SetText(placeholder, pendingText)
	e.surface.ScrollToEnd()

	e.inflight.Add(1)
	go func() {
		defer e.inflight.Done()
		e.completeTurn(ctx, text, prior, placeholder)
	}()
}

// completeTurn performs the remote exchange and resolves the placeholder.
func (e *Engine) completeTurn(ctx context.Context, text string, prior []chat.Message, placeholder string) {
	reply, err := e.exchanger.Exchange(ctx, text, prior)
	e.surface.Remove(placeholder)

	if err != nil {
		msg := e.config.NetworkText
		if errors.Is(err, chat.ErrUnavailable) {
			msg = e.config.UnavailableText
		} else {
			slog.Warn("engine: exchange failed", "err", err)
		}
		// Failed turns leave no trace in history.
		e.addBubble("assistant", msg)
		return
	}

	if reply == "" {
		reply = e.config.FallbackReply
	}
	if _, err := e.store.Append(ctx, chat.NewMessage(chat.RoleAssistant, reply)); err != nil {
		slog.Warn("engine: append assistant message failed", "err", err)
	}

	id := uuid.NewString()
	e.surface.AppendBubble(id, "assistant")
	task := e.renderer.Reveal(id, reply)
	select {
	case <-task.Done():
		e.output.Speak(reply)
	case <-task.Canceled():
	}
}

// addBubble renders a complete bubble without the typewriter.
func (e *Engine) addBubble(who, text string) string {
	id := uuid.NewString()
	e.surface.AppendBubble(id, who)
	e.surface.SetText(id, text)
	e.surface.ScrollToEnd()
	return id
}

// Greet posts the greeting bubble if the conversation is empty.
func (e *Engine) Greet(ctx context.Context) {
	if e.store.Len(ctx) == 0 {
		e.addBubble("assistant", e.config.Greeting)
	}
}

// ClearHistory empties the durable log and the view.
func (e *Engine) ClearHistory(ctx context.Context) {
	if err := e.store.Clear(ctx); err != nil {
		slog.Warn("engine: clear history failed", "err", err)
	}
	e.surface.Clear()
	e.addBubble("assistant", e.config.ClearedText)
}

// StartCapture begins a voice capture session, if capture is wired.
func (e *Engine) StartCapture(ctx context.Context) {
	if e.voice != nil {
		e.voice.Start(ctx)
	}
}

// StopCapture cancels the active voice capture session, if any.
func (e *Engine) StopCapture() {
	if e.voice != nil {
		e.voice.Stop()
	}
}

// ToggleMute flips speech output muting and returns the new state.
func (e *Engine) ToggleMute() bool {
	return e.output.ToggleMute()
}

// History returns the persisted log.
func (e *Engine) History(ctx context.Context) []chat.Message {
	return e.store.Load(ctx)
}

// Wait blocks until all in-flight submissions have resolved. Speech may
// still be playing; see speak.Output.Wait.
func (e *Engine) Wait() {
	e.inflight.Wait()
}
