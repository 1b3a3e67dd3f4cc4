package history

import (
	"context"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/talkbox/talkbox/pkg/chat"
	"github.com/talkbox/talkbox/pkg/kv"
)

// Meta is a per-session summary record kept alongside the log. It exists so
// session listings do not need to decode every log record.
type Meta struct {
	Session   string    `msgpack:"session"`
	Title     string    `msgpack:"title"`
	Entries   int       `msgpack:"entries"`
	UpdatedAt time.Time `msgpack:"updated_at"`
}

const titleLimit = 48

func (s *Store) writeMeta(ctx context.Context, msgs []chat.Message, now time.Time) error {
	meta := Meta{
		Session:   s.session,
		Title:     sessionTitle(msgs),
		Entries:   len(msgs),
		UpdatedAt: now,
	}
	data, err := msgpack.Marshal(meta)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, metaPrefix+s.session, data)
}

// sessionTitle derives a listing title from the first user message.
func sessionTitle(msgs []chat.Message) string {
	for _, m := range msgs {
		if m.Role != chat.RoleUser {
			continue
		}
		t := strings.TrimSpace(m.Content)
		if len(t) > titleLimit {
			t = t[:titleLimit]
		}
		return t
	}
	return ""
}

// Sessions lists the metas of all sessions present in the store, ordered by
// session name. Malformed meta records are skipped.
func Sessions(ctx context.Context, store kv.Store) ([]Meta, error) {
	var metas []Meta
	for entry, err := range store.List(ctx, metaPrefix) {
		if err != nil {
			return nil, err
		}
		var m Meta
		if err := msgpack.Unmarshal(entry.Value, &m); err != nil {
			continue
		}
		metas = append(metas, m)
	}
	return metas, nil
}
