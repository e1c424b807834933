package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"thena/internal/adapters/observability"
)

// Store is the namespaced persistent key-value state behind drafts and the
// small "where was I" client state. It is shared across client instances
// with no locking: concurrent writers under one key race and the last full
// snapshot wins.
type Store struct{ c *redis.Client }

const (
	ns          = "thena:"
	keyLastQ    = ns + "lastQuery"
	keyPlaceID  = ns + "currentPlaceId"
	keyEstID    = ns + "currentEstId"
	draftPrefix = ns + "draft:"

	tsField = "_ts"
)

func New(addr, pass string, db int) *Store {
	return &Store{c: redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})}
}

// NewFromClient exists for tests (miniredis).
func NewFromClient(c *redis.Client) *Store { return &Store{c: c} }

func (s *Store) Ping(ctx context.Context) error { return s.c.Ping(ctx).Err() }

// ---- drafts ----

// Save shallow-merges partial into the draft stored under key and stamps
// _ts. Last write wins per field. No-op on an empty key.
func (s *Store) Save(ctx context.Context, key string, partial map[string]any) error {
	if key == "" {
		return nil
	}
	existing, err := s.Load(ctx, key)
	if err != nil {
		return err
	}
	for k, v := range partial {
		existing[k] = v
	}
	existing[tsField] = time.Now().UnixMilli()
	b, err := json.Marshal(existing)
	if err != nil {
		return err
	}
	observability.ObserveStore("draft", "set")
	return s.c.Set(ctx, draftPrefix+key, b, 0).Err()
}

// Load returns the stored draft or an empty map. Corrupted JSON degrades
// silently to an empty map rather than failing the panel.
func (s *Store) Load(ctx context.Context, key string) (map[string]any, error) {
	if key == "" {
		return map[string]any{}, nil
	}
	v, err := s.c.Get(ctx, draftPrefix+key).Bytes()
	if err == redis.Nil {
		observability.ObserveStore("draft", "miss")
		return map[string]any{}, nil
	}
	if err != nil {
		return map[string]any{}, err
	}
	var out map[string]any
	if json.Unmarshal(v, &out) != nil || out == nil {
		return map[string]any{}, nil
	}
	observability.ObserveStore("draft", "hit")
	return out, nil
}

// Clear removes the draft under key. Called exactly once, right after a
// successful submission.
func (s *Store) Clear(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	observability.ObserveStore("draft", "del")
	return s.c.Del(ctx, draftPrefix+key).Err()
}

// Rekey moves a draft between reconciliation keys (place-keyed to
// entry-keyed, at entry-creation time). Existing data under the new key is
// kept where the old draft has no value for the field.
func (s *Store) Rekey(ctx context.Context, oldKey, newKey string) error {
	if oldKey == "" || newKey == "" || oldKey == newKey {
		return nil
	}
	old, err := s.Load(ctx, oldKey)
	if err != nil {
		return err
	}
	if len(old) == 0 {
		return nil
	}
	dst, err := s.Load(ctx, newKey)
	if err != nil {
		return err
	}
	for k, v := range old {
		if _, taken := dst[k]; !taken {
			dst[k] = v
		}
	}
	if err := s.Save(ctx, newKey, dst); err != nil {
		return err
	}
	return s.Clear(ctx, oldKey)
}

// ---- client state ----

func (s *Store) SetLastQuery(ctx context.Context, q string) error {
	observability.ObserveStore("state", "set")
	return s.c.Set(ctx, keyLastQ, q, 0).Err()
}

func (s *Store) LastQuery(ctx context.Context) (string, error) {
	v, err := s.c.Get(ctx, keyLastQ).Result()
	if err == redis.Nil {
		observability.ObserveStore("state", "miss")
		return "", nil
	}
	if err != nil {
		return "", err
	}
	observability.ObserveStore("state", "hit")
	return v, nil
}

func (s *Store) SetCurrentPlaceID(ctx context.Context, id string) error {
	observability.ObserveStore("state", "set")
	return s.c.Set(ctx, keyPlaceID, id, 0).Err()
}

func (s *Store) SetCurrentEstablishmentID(ctx context.Context, id int64) error {
	observability.ObserveStore("state", "set")
	return s.c.Set(ctx, keyEstID, fmt.Sprintf("%d", id), 0).Err()
}
