package speak_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/talkbox/talkbox/pkg/speak"
)

func TestDetectLang(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"hello there", "en-IN"},
		{"", "en-IN"},
		{"नमस्ते", "hi-IN"},
		{"hello नमस्ते", "hi-IN"},
		{"42 + 7 = ?", "en-IN"},
	}
	for _, tt := range tests {
		if got := speak.DetectLang(tt.text); got != tt.want {
			t.Errorf("DetectLang(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

// recordingSynth records utterances and blocks until its context is
// cancelled or it is released.
type recordingSynth struct {
	mu     sync.Mutex
	spoken []string
	langs  []string

	block bool
}

func (s *recordingSynth) Speak(ctx context.Context, text, lang string) error {
	s.mu.Lock()
	s.spoken = append(s.spoken, text)
	s.langs = append(s.langs, lang)
	s.mu.Unlock()
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (s *recordingSynth) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.spoken...)
}

func TestSpeakDeliversTextAndLang(t *testing.T) {
	synth := &recordingSynth{}
	o := speak.New(synth)

	o.Speak("नमस्ते")
	o.Wait()

	synth.mu.Lock()
	defer synth.mu.Unlock()
	if len(synth.spoken) != 1 || synth.spoken[0] != "नमस्ते" {
		t.Fatalf("spoken = %v", synth.spoken)
	}
	if synth.langs[0] != "hi-IN" {
		t.Fatalf("lang = %q, want hi-IN", synth.langs[0])
	}
}

func TestSpeakWhileMutedIsNoOp(t *testing.T) {
	synth := &recordingSynth{}
	o := speak.New(synth)
	o.SetMuted(true)

	o.Speak("hello")
	o.Wait()

	if got := synth.snapshot(); len(got) != 0 {
		t.Fatalf("spoken while muted: %v", got)
	}
}

func TestSpeakNilSynthesizerIsNoOp(t *testing.T) {
	o := speak.New(nil)
	o.Speak("hello") // must not panic
	o.Wait()
}

func TestNewUtteranceCancelsPrevious(t *testing.T) {
	synth := &recordingSynth{block: true}
	o := speak.New(synth)

	o.Speak("first")
	// Give the first utterance time to start.
	waitFor(t, func() bool { return len(synth.snapshot()) == 1 })

	o.Speak("second")
	waitFor(t, func() bool { return len(synth.snapshot()) == 2 })

	got := synth.snapshot()
	if got[0] != "first" || got[1] != "second" {
		t.Fatalf("spoken = %v", got)
	}

	// The second utterance started, so the first one's context was
	// cancelled; unmute-style cleanup: cancel the second too and drain.
	o.SetMuted(true)
	o.Wait()
}

func TestMuteCancelsInFlight(t *testing.T) {
	synth := &recordingSynth{block: true}
	o := speak.New(synth)

	o.Speak("long story")
	waitFor(t, func() bool { return len(synth.snapshot()) == 1 })

	o.SetMuted(true)

	done := make(chan struct{})
	go func() {
		o.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("mute did not cancel the in-flight utterance")
	}
}

func TestToggleMute(t *testing.T) {
	o := speak.New(&recordingSynth{})
	if o.Muted() {
		t.Fatal("new output starts muted")
	}
	if !o.ToggleMute() {
		t.Fatal("first toggle should mute")
	}
	if o.ToggleMute() {
		t.Fatal("second toggle should unmute")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached")
}
