package store

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"

	"github.com/rushteam/procurekit/core"
)

func TestMemoryStore_KeyValue(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	defer m.Close()

	if _, err := m.Get(ctx, "missing"); !core.IsStoreNotFound(err) {
		t.Fatalf("Get(missing) err = %v, want not found", err)
	}
	buf := []byte("v1")
	if err := m.Set(ctx, "k", buf); err != nil {
		t.Fatal(err)
	}
	buf[0] = 'x'
	got, err := m.Get(ctx, "k")
	if err != nil || string(got) != "v1" {
		t.Fatalf("Get(k) = %q, %v; want stored copy", got, err)
	}
}

func TestMemoryStore_Hash(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	defer m.Close()

	all, err := m.HGetAll(ctx, "entries")
	if err != nil || len(all) != 0 {
		t.Fatalf("HGetAll(empty) = %v, %v", all, err)
	}
	for _, id := range []string{"1", "2"} {
		if err := m.HSet(ctx, "entries", id, []byte(id)); err != nil {
			t.Fatal(err)
		}
	}
	if err := m.HDel(ctx, "entries", "1"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.HGet(ctx, "entries", "1"); !core.IsStoreNotFound(err) {
		t.Fatalf("HGet(deleted) err = %v", err)
	}

	all, _ = m.HGetAll(ctx, "entries")
	all["3"] = []byte("3")
	again, _ := m.HGetAll(ctx, "entries")
	if len(again) != 1 || string(again["2"]) != "2" {
		t.Fatalf("HGetAll must return a copy, got %v", again)
	}

	if err := m.Delete(ctx, "entries"); err != nil {
		t.Fatal(err)
	}
	if all, _ := m.HGetAll(ctx, "entries"); len(all) != 0 {
		t.Fatalf("Delete should drop the hash, got %v", all)
	}
}

func TestOpen(t *testing.T) {
	tests := []struct {
		kind    string
		wantErr bool
	}{
		{"", false},
		{KindMemory, false},
		{"qdrant", true},
	}
	for _, tt := range tests {
		kv, err := Open(context.Background(), tt.kind, RedisOptions{})
		if (err != nil) != tt.wantErr {
			t.Fatalf("Open(%q) err = %v, wantErr %v", tt.kind, err, tt.wantErr)
		}
		if err != nil {
			if !core.IsConfiguration(err) {
				t.Errorf("Open(%q) err = %v, want CONFIGURATION", tt.kind, err)
			}
			continue
		}
		if kv.Name() != KindMemory {
			t.Errorf("Open(%q).Name() = %q", tt.kind, kv.Name())
		}
		_ = kv.Close()
	}
}

func TestRedisStore_Unreachable(t *testing.T) {
	ctx := context.Background()
	_, err := NewRedisStore(ctx, RedisOptions{Addr: "127.0.0.1:1"})
	if !core.IsUnavailable(err) {
		t.Fatalf("NewRedisStore err = %v, want UNAVAILABLE", err)
	}

	r := NewRedisStoreFromClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1}))
	defer r.Close()
	if _, err := r.Get(ctx, "k"); err == nil || core.IsStoreNotFound(err) {
		t.Fatalf("Get on a dead connection must fail with a transport error, got %v", err)
	}
}
