package capture

import (
	"context"
	"errors"
	"io"
)

// ErrNoSpeech is returned by a Recognizer when the audio contained no
// recognizable speech.
var ErrNoSpeech = errors.New("capture: no speech recognized")

// Recognizer converts an audio stream into text. Recognize reads PCM from r
// until the utterance ends (or r is exhausted) and returns the transcript.
type Recognizer interface {
	Recognize(ctx context.Context, r io.Reader) (string, error)
}

// RecognizeFunc is an adapter to allow the use of ordinary functions as
// Recognizers.
type RecognizeFunc func(ctx context.Context, r io.Reader) (string, error)

// Recognize calls the underlying function.
func (f RecognizeFunc) Recognize(ctx context.Context, r io.Reader) (string, error) {
	return f(ctx, r)
}
