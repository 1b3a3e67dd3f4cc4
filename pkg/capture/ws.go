package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// wsFrameBytes is 100 ms of 16 kHz 16-bit mono PCM per binary frame.
	wsFrameBytes = 3200

	wsWriteTimeout = 10 * time.Second
)

// WSRecognizer is a Recognizer backed by a streaming speech recognition
// service over WebSocket. Binary PCM frames go up; JSON transcript frames
// come down. The first final transcript ends the session.
type WSRecognizer struct {
	endpoint string
	dialer   *websocket.Dialer
	language string
}

var _ Recognizer = (*WSRecognizer)(nil)

// WSOption configures the WSRecognizer.
type WSOption func(*WSRecognizer)

// WithWSDialer sets a custom websocket dialer.
func WithWSDialer(d *websocket.Dialer) WSOption {
	return func(r *WSRecognizer) { r.dialer = d }
}

// WithWSLanguage sets the recognition language tag sent in the start frame.
func WithWSLanguage(lang string) WSOption {
	return func(r *WSRecognizer) { r.language = lang }
}

// NewWSRecognizer creates a websocket recognizer for the given endpoint.
func NewWSRecognizer(endpoint string, opts ...WSOption) *WSRecognizer {
	r := &WSRecognizer{
		endpoint: endpoint,
		dialer:   websocket.DefaultDialer,
		language: "en-IN",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// wsStartFrame opens a recognition session.
type wsStartFrame struct {
	Type       string `json:"type"` // "start"
	Format     string `json:"format"`
	SampleRate int    `json:"sample_rate"`
	Language   string `json:"language,omitempty"`
}

// wsEndFrame marks the end of the audio stream.
type wsEndFrame struct {
	Type string `json:"type"` // "end"
}

// wsTranscript is a transcript frame from the service.
type wsTranscript struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
	Error string `json:"error,omitempty"`
}

// Recognize implements Recognizer. It streams audio from r until EOF or
// until the service delivers a final transcript, whichever comes first.
func (w *WSRecognizer) Recognize(ctx context.Context, r io.Reader) (string, error) {
	conn, resp, err := w.dialer.DialContext(ctx, w.endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("capture: dial recognizer: %w", err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	// Close the connection on ctx cancellation to unblock reads.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	start, _ := json.Marshal(wsStartFrame{
		Type:       "start",
		Format:     "pcm",
		SampleRate: 16000,
		Language:   w.language,
	})
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, start); err != nil {
		return "", fmt.Errorf("capture: send start frame: %w", err)
	}

	// Uploader: binary PCM frames until the stream ends, then an end frame.
	// Upload failures surface through the read loop when the connection
	// drops; they are logged here for diagnosis only.
	go func() {
		buf := make([]byte, wsFrameBytes)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				if werr := conn.WriteMessage(websocket.BinaryMessage, buf[:n]); werr != nil {
					slog.Warn("capture: audio upload failed", "err", werr)
					return
				}
			}
			if err != nil {
				if err != io.EOF && ctx.Err() == nil {
					slog.Warn("capture: audio read failed", "err", err)
				}
				break
			}
		}
		end, _ := json.Marshal(wsEndFrame{Type: "end"})
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if werr := conn.WriteMessage(websocket.TextMessage, end); werr != nil {
			slog.Warn("capture: send end frame failed", "err", werr)
		}
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return "", ErrNoSpeech
			}
			return "", fmt.Errorf("capture: read transcript: %w", err)
		}
		if msgType != websocket.TextMessage {
			continue
		}
		var tr wsTranscript
		if err := json.Unmarshal(data, &tr); err != nil {
			return "", fmt.Errorf("capture: decode transcript: %w", err)
		}
		if tr.Error != "" {
			return "", fmt.Errorf("capture: recognizer: %s", tr.Error)
		}
		if !tr.Final {
			continue
		}
		if tr.Text == "" {
			return "", ErrNoSpeech
		}
		return tr.Text, nil
	}
}
