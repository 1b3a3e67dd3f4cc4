// Package render reveals assistant replies incrementally, typewriter style,
// and enriches the completed text with actionable references.
//
// One bubble has at most one live reveal task: starting a new task for the
// same bubble abandons the old one, and the bubble ends up showing only the
// new task's text. Enrichment runs exactly once, on completion, never on a
// partially revealed prefix.
package render

import (
	"math/rand/v2"
	"sync"
	"time"
)

// DefaultInterval is the base delay between revealed runes.
const DefaultInterval = 25 * time.Millisecond

// Surface is the live view a renderer draws into. Implementations must
// tolerate calls for ids they have already removed.
type Surface interface {
	// AppendBubble adds an empty bubble for the given author ("user",
	// "assistant") to the end of the view.
	AppendBubble(id, who string)

	// SetText replaces the bubble's visible text.
	SetText(id, text string)

	// SetSpans replaces the bubble's content with enriched spans.
	SetSpans(id string, spans []Span)

	// Remove deletes the bubble.
	Remove(id string)

	// Clear removes every bubble.
	Clear()

	// ScrollToEnd keeps the newest content in view.
	ScrollToEnd()
}

// Renderer runs reveal tasks against a Surface.
type Renderer struct {
	surface  Surface
	interval time.Duration
	jitter   float64 // fraction of interval, 0..1

	mu      sync.Mutex
	current map[string]*Task
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithInterval sets the base delay between revealed runes.
func WithInterval(d time.Duration) RendererOption {
	return func(r *Renderer) { r.interval = d }
}

// WithJitter sets the random spread applied to each tick, as a fraction of
// the interval. 0.5 means each tick waits between 50% and 150% of the base.
func WithJitter(f float64) RendererOption {
	return func(r *Renderer) { r.jitter = f }
}

// New creates a renderer over the given surface.
func New(surface Surface, opts ...RendererOption) *Renderer {
	r := &Renderer{
		surface:  surface,
		interval: DefaultInterval,
		jitter:   0.5,
		current:  make(map[string]*Task),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Task is one in-progress reveal.
type Task struct {
	id       string
	fullText string

	cancelOnce sync.Once
	cancelCh   chan struct{}
	doneCh     chan struct{}
}

// Cancel abandons the task. The bubble keeps whatever prefix was revealed
// until another task claims it.
func (t *Task) Cancel() {
	t.cancelOnce.Do(func() { close(t.cancelCh) })
}

// Done is closed when the task has fully revealed and enriched its text.
// It is never closed for a cancelled task.
func (t *Task) Done() <-chan struct{} { return t.doneCh }

// Canceled is closed when the task has been cancelled or superseded.
func (t *Task) Canceled() <-chan struct{} { return t.cancelCh }

// Final returns the full text the task reveals.
func (t *Task) Final() string { return t.fullText }

// Reveal starts revealing fullText into the bubble with the given id,
// superseding any task already running for that bubble.
func (r *Renderer) Reveal(id, fullText string) *Task {
	task := &Task{
		id:       id,
		fullText: fullText,
		cancelCh: make(chan struct{}),
		doneCh:   make(chan struct{}),
	}

	r.mu.Lock()
	if prev, ok := r.current[id]; ok {
		prev.Cancel()
	}
	r.current[id] = task
	r.mu.Unlock()

	go r.run(task)
	return task
}

// run drives one task to completion or cancellation.
func (r *Renderer) run(task *Task) {
	runes := []rune(task.fullText)
	for i := 1; i <= len(runes); i++ {
		select {
		case <-task.cancelCh:
			r.forget(task)
			return
		case <-time.After(r.tick()):
		}
		if !r.draw(task, string(runes[:i])) {
			return
		}
	}

	// Completed: enrich exactly once, against the full text only.
	r.mu.Lock()
	if r.current[task.id] == task {
		r.surface.SetSpans(task.id, Enrich(task.fullText))
		r.surface.ScrollToEnd()
		delete(r.current, task.id)
	}
	r.mu.Unlock()
	close(task.doneCh)
}

// draw writes the prefix if the task still owns its bubble.
func (r *Renderer) draw(task *Task, prefix string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current[task.id] != task {
		return false
	}
	r.surface.SetText(task.id, prefix)
	r.surface.ScrollToEnd()
	return true
}

// forget drops the task's bubble claim if it still holds it.
func (r *Renderer) forget(task *Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current[task.id] == task {
		delete(r.current, task.id)
	}
}

// tick returns the jittered delay for one reveal step.
func (r *Renderer) tick() time.Duration {
	if r.jitter <= 0 {
		return r.interval
	}
	spread := 1 + r.jitter*(2*rand.Float64()-1)
	return time.Duration(float64(r.interval) * spread)
}
