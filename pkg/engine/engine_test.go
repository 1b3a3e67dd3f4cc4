package engine_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/talkbox/talkbox/pkg/chat"
	"github.com/talkbox/talkbox/pkg/engine"
	"github.com/talkbox/talkbox/pkg/history"
	"github.com/talkbox/talkbox/pkg/kv"
	"github.com/talkbox/talkbox/pkg/render"
	"github.com/talkbox/talkbox/pkg/speak"
)

// bubble is one recorded surface entry.
type bubble struct {
	id   string
	who  string
	text string
	gone bool
}

// fakeSurface records bubbles in append order.
type fakeSurface struct {
	mu      sync.Mutex
	bubbles []*bubble
}

func (s *fakeSurface) AppendBubble(id, who string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bubbles = append(s.bubbles, &bubble{id: id, who: who})
}

func (s *fakeSurface) SetText(id, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bubbles {
		if b.id == id {
			b.text = text
		}
	}
}

func (s *fakeSurface) SetSpans(id string, spans []render.Span) {
	s.SetText(id, render.JoinSpans(spans))
}

func (s *fakeSurface) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bubbles {
		if b.id == id {
			b.gone = true
		}
	}
}

func (s *fakeSurface) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bubbles = nil
}

func (s *fakeSurface) ScrollToEnd() {}

// visible returns who/text pairs of live bubbles, in order.
func (s *fakeSurface) visible() [][2]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out [][2]string
	for _, b := range s.bubbles {
		if !b.gone {
			out = append(out, [2]string{b.who, b.text})
		}
	}
	return out
}

type fixture struct {
	engine  *engine.Engine
	surface *fakeSurface
	store   *history.Store
	synth   *recordingSynth
}

type recordingSynth struct {
	mu     sync.Mutex
	spoken []string
}

func (s *recordingSynth) Speak(ctx context.Context, text, lang string) error {
	s.mu.Lock()
	s.spoken = append(s.spoken, text)
	s.mu.Unlock()
	return nil
}

func (s *recordingSynth) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.spoken...)
}

func newFixture(t *testing.T, ex chat.Exchanger) *fixture {
	t.Helper()
	backing := kv.NewMemory()
	t.Cleanup(func() { backing.Close() })

	surface := &fakeSurface{}
	store := history.New(backing, history.Options{Limit: 20})
	synth := &recordingSynth{}
	renderer := render.New(surface, render.WithInterval(time.Microsecond))
	out := speak.New(synth)

	e := engine.New(store, ex, renderer, surface, out, nil, engine.Config{})
	return &fixture{engine: e, surface: surface, store: store, synth: synth}
}

func settle(f *fixture) {
	f.engine.Wait()
	// Speech starts after the reveal task completes; drain it too.
	time.Sleep(5 * time.Millisecond)
}

func TestSubmitHappyPath(t *testing.T) {
	ctx := context.Background()
	var gotHistory []chat.Message
	ex := chat.ExchangeFunc(func(ctx context.Context, msg string, history []chat.Message) (string, error) {
		gotHistory = append([]chat.Message(nil), history...)
		if msg != "hello" {
			t.Errorf("message = %q", msg)
		}
		return "hi there", nil
	})
	f := newFixture(t, ex)

	f.engine.Submit(ctx, "hello")
	settle(f)

	// First submission with empty history sends history: [].
	if len(gotHistory) != 0 {
		t.Fatalf("request history = %v, want empty", gotHistory)
	}

	log := f.store.Load(ctx)
	if len(log) != 2 {
		t.Fatalf("history = %v, want 2 entries", log)
	}
	if log[0].Role != chat.RoleUser || log[0].Content != "hello" {
		t.Fatalf("log[0] = %+v", log[0])
	}
	if log[1].Role != chat.RoleAssistant || log[1].Content != "hi there" {
		t.Fatalf("log[1] = %+v", log[1])
	}

	vis := f.surface.visible()
	if len(vis) != 2 {
		t.Fatalf("visible bubbles = %v", vis)
	}
	if vis[0] != [2]string{"user", "hello"} {
		t.Fatalf("user bubble = %v", vis[0])
	}
	if vis[1] != [2]string{"assistant", "hi there"} {
		t.Fatalf("assistant bubble = %v", vis[1])
	}
}

func TestSubmitEmptyIsNoOp(t *testing.T) {
	ex := chat.ExchangeFunc(func(context.Context, string, []chat.Message) (string, error) {
		t.Error("exchange called for empty input")
		return "", nil
	})
	f := newFixture(t, ex)

	f.engine.Submit(context.Background(), "")
	f.engine.Submit(context.Background(), "   \n\t")
	settle(f)

	if vis := f.surface.visible(); len(vis) != 0 {
		t.Fatalf("bubbles rendered for empty input: %v", vis)
	}
}

func TestSubmitSendsPriorHistory(t *testing.T) {
	ctx := context.Background()
	var histories [][]chat.Message
	var mu sync.Mutex
	ex := chat.ExchangeFunc(func(ctx context.Context, msg string, history []chat.Message) (string, error) {
		mu.Lock()
		histories = append(histories, append([]chat.Message(nil), history...))
		mu.Unlock()
		return "reply to " + msg, nil
	})
	f := newFixture(t, ex)

	f.engine.Submit(ctx, "one")
	settle(f)
	f.engine.Submit(ctx, "two")
	settle(f)

	if len(histories) != 2 {
		t.Fatalf("exchanges = %d", len(histories))
	}
	// Second request carries the completed first turn.
	second := histories[1]
	if len(second) != 2 || second[0].Content != "one" || second[1].Content != "reply to one" {
		t.Fatalf("second request history = %+v", second)
	}
}

func TestUnavailableRendersFixedMessage(t *testing.T) {
	ctx := context.Background()
	ex := chat.ExchangeFunc(func(context.Context, string, []chat.Message) (string, error) {
		return "", chat.ErrUnavailable
	})
	f := newFixture(t, ex)

	f.engine.Submit(ctx, "hello")
	settle(f)

	vis := f.surface.visible()
	if len(vis) != 2 {
		t.Fatalf("visible = %v", vis)
	}
	if vis[1] != [2]string{"assistant", engine.DefaultUnavailableText} {
		t.Fatalf("error bubble = %v", vis[1])
	}

	// The failed assistant turn is not appended; only the user message is.
	log := f.store.Load(ctx)
	if len(log) != 1 || log[0].Role != chat.RoleUser {
		t.Fatalf("history after failure = %+v", log)
	}
}

func TestNetworkErrorRendersFixedMessage(t *testing.T) {
	ctx := context.Background()
	ex := chat.ExchangeFunc(func(context.Context, string, []chat.Message) (string, error) {
		return "", context.DeadlineExceeded
	})
	f := newFixture(t, ex)

	f.engine.Submit(ctx, "hello")
	settle(f)

	vis := f.surface.visible()
	if vis[len(vis)-1] != [2]string{"assistant", engine.DefaultNetworkText} {
		t.Fatalf("error bubble = %v", vis[len(vis)-1])
	}
}

func TestEmptyReplyUsesFallback(t *testing.T) {
	ctx := context.Background()
	ex := chat.ExchangeFunc(func(context.Context, string, []chat.Message) (string, error) {
		return "", nil
	})
	f := newFixture(t, ex)

	f.engine.Submit(ctx, "hello")
	settle(f)

	log := f.store.Load(ctx)
	if len(log) != 2 || log[1].Content != engine.DefaultFallbackReply {
		t.Fatalf("history = %+v", log)
	}
}

func TestReplyIsSpokenAfterReveal(t *testing.T) {
	ctx := context.Background()
	ex := chat.ExchangeFunc(func(context.Context, string, []chat.Message) (string, error) {
		return "hi there", nil
	})
	f := newFixture(t, ex)

	f.engine.Submit(ctx, "hello")
	f.engine.Wait()
	waitFor(t, func() bool { return len(f.synth.snapshot()) == 1 })

	if got := f.synth.snapshot(); got[0] != "hi there" {
		t.Fatalf("spoken = %v", got)
	}
}

func TestMutedReplyIsNotSpoken(t *testing.T) {
	ctx := context.Background()
	ex := chat.ExchangeFunc(func(context.Context, string, []chat.Message) (string, error) {
		return "hi there", nil
	})
	f := newFixture(t, ex)
	f.engine.ToggleMute()

	f.engine.Submit(ctx, "hello")
	settle(f)
	time.Sleep(10 * time.Millisecond)

	if got := f.synth.snapshot(); len(got) != 0 {
		t.Fatalf("spoken while muted: %v", got)
	}
}

func TestConcurrentSubmissionsLandIndependently(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	ex := chat.ExchangeFunc(func(ctx context.Context, msg string, _ []chat.Message) (string, error) {
		if msg == "slow" {
			<-release
		}
		return "reply to " + msg, nil
	})
	f := newFixture(t, ex)

	f.engine.Submit(ctx, "slow")
	f.engine.Submit(ctx, "fast")

	// The fast reply lands while the slow one is still pending.
	waitFor(t, func() bool {
		for _, v := range f.surface.visible() {
			if v == [2]string{"assistant", "reply to fast"} {
				return true
			}
		}
		return false
	})

	close(release)
	settle(f)

	var replies []string
	for _, v := range f.surface.visible() {
		if v[0] == "assistant" && v[1] != "..." {
			replies = append(replies, v[1])
		}
	}
	if len(replies) != 2 {
		t.Fatalf("assistant replies = %v, want 2", replies)
	}
}

func TestClearHistory(t *testing.T) {
	ctx := context.Background()
	ex := chat.ExchangeFunc(func(context.Context, string, []chat.Message) (string, error) {
		return "ok", nil
	})
	f := newFixture(t, ex)

	f.engine.Submit(ctx, "hello")
	settle(f)

	f.engine.ClearHistory(ctx)
	if got := f.store.Load(ctx); len(got) != 0 {
		t.Fatalf("history after clear = %v", got)
	}
	vis := f.surface.visible()
	if len(vis) != 1 || vis[0] != [2]string{"assistant", engine.DefaultClearedText} {
		t.Fatalf("visible after clear = %v", vis)
	}
}

func TestGreetOnlyWhenEmpty(t *testing.T) {
	ctx := context.Background()
	ex := chat.ExchangeFunc(func(context.Context, string, []chat.Message) (string, error) {
		return "ok", nil
	})
	f := newFixture(t, ex)

	f.engine.Greet(ctx)
	vis := f.surface.visible()
	if len(vis) != 1 || vis[0] != [2]string{"assistant", engine.DefaultGreeting} {
		t.Fatalf("visible = %v", vis)
	}

	f.engine.Submit(ctx, "hello")
	settle(f)
	before := len(f.surface.visible())
	f.engine.Greet(ctx)
	if got := len(f.surface.visible()); got != before {
		t.Fatal("greeted a non-empty conversation")
	}
}

func TestDispatchTable(t *testing.T) {
	ctx := context.Background()
	var mu sync.Mutex
	var messages []string
	ex := chat.ExchangeFunc(func(ctx context.Context, msg string, _ []chat.Message) (string, error) {
		mu.Lock()
		messages = append(messages, msg)
		mu.Unlock()
		return "ok", nil
	})
	f := newFixture(t, ex)

	f.engine.Dispatch(ctx, engine.GestureSubmit, "from a chip")
	settle(f)
	mu.Lock()
	n := len(messages)
	mu.Unlock()
	if n != 1 {
		t.Fatalf("submit gesture produced %d exchanges", n)
	}

	f.engine.Dispatch(ctx, engine.GestureMuteToggle, "")
	f.engine.Dispatch(ctx, engine.GestureClearHistory, "")
	if got := f.store.Load(ctx); len(got) != 0 {
		t.Fatalf("history after clear gesture = %v", got)
	}

	// Unknown gestures are ignored.
	f.engine.Dispatch(ctx, engine.Gesture("no-such"), "")
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
