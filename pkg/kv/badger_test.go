package kv_test

import (
	"context"
	"errors"
	"testing"

	"github.com/talkbox/talkbox/pkg/kv"
)

func newBadgerStore(t *testing.T) kv.Store {
	t.Helper()
	s, err := kv.NewBadger(kv.BadgerOptions{InMemory: true})
	if err != nil {
		t.Fatalf("NewBadger: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBadgerRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newBadgerStore(t)

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.Set(ctx, "history:default", []byte(`[]`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get(ctx, "history:default")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != `[]` {
		t.Fatalf("Get = %q, want %q", got, `[]`)
	}

	if err := s.Delete(ctx, "history:default"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "history:default"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestBadgerList(t *testing.T) {
	ctx := context.Background()
	s := newBadgerStore(t)

	for _, k := range []string{"meta:a", "meta:b", "history:a"} {
		if err := s.Set(ctx, k, []byte(k)); err != nil {
			t.Fatalf("Set %s: %v", k, err)
		}
	}

	var keys []string
	for entry, err := range s.List(ctx, "meta:") {
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		keys = append(keys, entry.Key)
	}
	if len(keys) != 2 || keys[0] != "meta:a" || keys[1] != "meta:b" {
		t.Fatalf("List = %v, want [meta:a meta:b]", keys)
	}
}
