package redisstore_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"thena/internal/adapters/redisstore"
)

func newStore(t *testing.T) (*redisstore.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return redisstore.NewFromClient(c), mr
}

func TestDraft_SaveLoadRoundTrip(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, "place:gp-1", map[string]any{"score": "7", "comment": "ok"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	d, err := s.Load(ctx, "place:gp-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if d["score"] != "7" || d["comment"] != "ok" {
		t.Fatalf("unexpected draft: %+v", d)
	}
	if d["_ts"] == nil {
		t.Fatalf("expected _ts to be stamped")
	}
}

func TestDraft_SaveMergesShallow(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	_ = s.Save(ctx, "est:1", map[string]any{"score": "5", "role": "serveuse"})
	_ = s.Save(ctx, "est:1", map[string]any{"score": "8"})

	d, _ := s.Load(ctx, "est:1")
	if d["score"] != "8" {
		t.Fatalf("expected last write to win, got %v", d["score"])
	}
	if d["role"] != "serveuse" {
		t.Fatalf("expected untouched field to survive, got %+v", d)
	}
}

func TestDraft_CorruptJSONDegradesToEmpty(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()

	mr.Set("thena:draft:est:9", "{not json")
	d, err := s.Load(ctx, "est:9")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(d) != 0 {
		t.Fatalf("expected empty draft, got %+v", d)
	}
}

func TestDraft_EmptyKeyIsNoop(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, "", map[string]any{"comment": "x"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if n := len(mr.Keys()); n != 0 {
		t.Fatalf("expected no keys written, got %d", n)
	}
	d, err := s.Load(ctx, "")
	if err != nil || d == nil || len(d) != 0 {
		t.Fatalf("expected empty draft, got %v / %v", d, err)
	}
	if err := s.Clear(ctx, ""); err != nil {
		t.Fatalf("clear: %v", err)
	}
}

func TestDraft_ClearRemoves(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	_ = s.Save(ctx, "est:2", map[string]any{"comment": "bon poste"})
	if err := s.Clear(ctx, "est:2"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	d, _ := s.Load(ctx, "est:2")
	if len(d) != 0 {
		t.Fatalf("expected cleared draft, got %+v", d)
	}
}

func TestDraft_RekeyMovesWithoutClobbering(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	_ = s.Save(ctx, "place:gp-1", map[string]any{"comment": "typed before create", "score": "6"})
	_ = s.Save(ctx, "est:10", map[string]any{"score": "9"})

	if err := s.Rekey(ctx, "place:gp-1", "est:10"); err != nil {
		t.Fatalf("rekey: %v", err)
	}

	d, _ := s.Load(ctx, "est:10")
	if d["comment"] != "typed before create" {
		t.Fatalf("expected migrated comment, got %+v", d)
	}
	if d["score"] != "9" {
		t.Fatalf("expected existing entry-key value to win, got %v", d["score"])
	}
	old, _ := s.Load(ctx, "place:gp-1")
	if len(old) != 0 {
		t.Fatalf("expected old key cleared, got %+v", old)
	}
}

func TestStateStore_LastQuery(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	q, err := s.LastQuery(ctx)
	if err != nil || q != "" {
		t.Fatalf("expected empty last query, got %q / %v", q, err)
	}
	if err := s.SetLastQuery(ctx, "pizza"); err != nil {
		t.Fatalf("set: %v", err)
	}
	q, _ = s.LastQuery(ctx)
	if q != "pizza" {
		t.Fatalf("expected pizza, got %q", q)
	}
}
