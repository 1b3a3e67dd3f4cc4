package engine

import "context"

// Gesture names a user action. Each gesture maps to exactly one pipeline
// entry point; the dispatch table is built once at engine construction.
type Gesture string

const (
	GestureSubmit       Gesture = "submit"
	GestureCaptureStart Gesture = "capture-start"
	GestureCaptureStop  Gesture = "capture-stop"
	GestureMuteToggle   Gesture = "mute-toggle"
	GestureClearHistory Gesture = "clear-history"
)

// Dispatch routes a gesture to its pipeline entry point. arg carries the
// message text for GestureSubmit (typed input or a preset quick message)
// and is ignored otherwise. Unknown gestures are ignored.
func (e *Engine) Dispatch(ctx context.Context, g Gesture, arg string) {
	if fn, ok := e.gestures[g]; ok {
		fn(ctx, arg)
	}
}
