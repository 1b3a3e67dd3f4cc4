// Package history provides a durable bounded log of past conversation
// turns. The log is capped at the N most recent entries with oldest-first
// eviction and is rewritten wholesale on every mutation; traffic is
// human-paced, so durability wins over throughput.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/talkbox/talkbox/pkg/chat"
	"github.com/talkbox/talkbox/pkg/kv"
)

// DefaultLimit is the default bound on stored entries.
const DefaultLimit = 20

const (
	recordPrefix = "history:"
	metaPrefix   = "meta:"
)

// Store is a bounded write-through message log for one session.
type Store struct {
	store   kv.Store
	session string
	limit   int
}

// Options configures a Store.
type Options struct {
	// Session names the log. Empty means "default".
	Session string

	// Limit bounds the number of stored entries. Zero or negative means
	// DefaultLimit.
	Limit int
}

// New creates a history store over the given KV store.
func New(store kv.Store, opts Options) *Store {
	if opts.Session == "" {
		opts.Session = "default"
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	return &Store{store: store, session: opts.Session, limit: opts.Limit}
}

// Limit returns the configured bound.
func (s *Store) Limit() int { return s.limit }

// Session returns the session name.
func (s *Store) Session() string { return s.session }

// record is the durable wire shape: role and content pairs only.
type record struct {
	Role    chat.Role `json:"role"`
	Content string    `json:"content"`
}

// Load reads the persisted log. An absent or malformed record loads as an
// empty history; persistence problems are never fatal.
func (s *Store) Load(ctx context.Context) []chat.Message {
	data, err := s.store.Get(ctx, recordPrefix+s.session)
	if err != nil {
		if err != kv.ErrNotFound {
			slog.Warn("history: load failed, treating as empty", "session", s.session, "err", err)
		}
		return nil
	}
	var recs []record
	if err := json.Unmarshal(data, &recs); err != nil {
		slog.Warn("history: malformed record, treating as empty", "session", s.session, "err", err)
		return nil
	}
	if len(recs) > s.limit {
		recs = recs[len(recs)-s.limit:]
	}
	msgs := make([]chat.Message, 0, len(recs))
	for _, r := range recs {
		msgs = append(msgs, chat.Message{Role: r.Role, Content: r.Content})
	}
	return msgs
}

// Append adds one entry, evicts the oldest if the bound would be exceeded,
// persists the result, and returns the new log.
func (s *Store) Append(ctx context.Context, msg chat.Message) ([]chat.Message, error) {
	msgs := s.Load(ctx)
	msgs = append(msgs, msg)
	if len(msgs) > s.limit {
		msgs = msgs[len(msgs)-s.limit:]
	}
	if err := s.persist(ctx, msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// Clear empties the durable state for this session.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.store.Delete(ctx, recordPrefix+s.session); err != nil {
		return fmt.Errorf("history: clear: %w", err)
	}
	if err := s.store.Delete(ctx, metaPrefix+s.session); err != nil {
		return fmt.Errorf("history: clear meta: %w", err)
	}
	return nil
}

// Len returns the number of persisted entries.
func (s *Store) Len(ctx context.Context) int {
	return len(s.Load(ctx))
}

func (s *Store) persist(ctx context.Context, msgs []chat.Message) error {
	recs := make([]record, 0, len(msgs))
	for _, m := range msgs {
		recs = append(recs, record{Role: m.Role, Content: m.Content})
	}
	data, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("history: encode: %w", err)
	}
	if err := s.store.Set(ctx, recordPrefix+s.session, data); err != nil {
		return fmt.Errorf("history: persist: %w", err)
	}
	if err := s.writeMeta(ctx, msgs, time.Now()); err != nil {
		// Meta is advisory; the log itself is already durable.
		slog.Warn("history: meta update failed", "session", s.session, "err", err)
	}
	return nil
}
