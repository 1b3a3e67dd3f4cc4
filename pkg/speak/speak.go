// Package speak provides the text-to-speech output sink. At most one
// utterance is in flight process-wide: starting a new one cancels the
// current one, and muting cancels whatever is speaking.
package speak

import (
	"context"
	"log/slog"
	"sync"
)

// Synthesizer is the audio backend that actually voices an utterance.
// Speak blocks until the utterance finishes or ctx is cancelled.
type Synthesizer interface {
	Speak(ctx context.Context, text, lang string) error
}

// SynthesizeFunc is an adapter to allow the use of ordinary functions as
// Synthesizers.
type SynthesizeFunc func(ctx context.Context, text, lang string) error

// Speak calls the underlying function.
func (f SynthesizeFunc) Speak(ctx context.Context, text, lang string) error {
	return f(ctx, text, lang)
}

// Output is the speech output sink.
type Output struct {
	synth Synthesizer

	mu      sync.Mutex
	muted   bool
	cancel  context.CancelFunc
	current *sync.WaitGroup
}

// New creates a speech output over the given synthesizer. A nil synthesizer
// yields an output where Speak is a no-op (unsupported backend).
func New(synth Synthesizer) *Output {
	return &Output{synth: synth}
}

// Speak voices the text asynchronously. No-op when muted or unsupported.
// Any utterance currently speaking is cancelled first.
func (o *Output) Speak(text string) {
	if o.synth == nil || text == "" {
		return
	}

	o.mu.Lock()
	if o.muted {
		o.mu.Unlock()
		return
	}
	o.cancelCurrentLocked()

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	o.cancel = cancel
	o.current = &wg
	o.mu.Unlock()

	lang := DetectLang(text)
	go func() {
		defer wg.Done()
		if err := o.synth.Speak(ctx, text, lang); err != nil && ctx.Err() == nil {
			slog.Warn("speak: synthesis failed", "lang", lang, "err", err)
		}
	}()
}

// SetMuted sets the mute state. Muting cancels any in-progress utterance.
func (o *Output) SetMuted(muted bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.muted = muted
	if muted {
		o.cancelCurrentLocked()
	}
}

// ToggleMute flips the mute state and returns the new value.
func (o *Output) ToggleMute() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.muted = !o.muted
	if o.muted {
		o.cancelCurrentLocked()
	}
	return o.muted
}

// Muted reports the current mute state.
func (o *Output) Muted() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.muted
}

// Wait blocks until the current utterance, if any, has finished. Intended
// for tests and orderly shutdown.
func (o *Output) Wait() {
	o.mu.Lock()
	wg := o.current
	o.mu.Unlock()
	if wg != nil {
		wg.Wait()
	}
}

func (o *Output) cancelCurrentLocked() {
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
}
