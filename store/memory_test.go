package store

import (
	"bytes"
	"context"
	"testing"

	"github.com/custkit/custkit/core"
)

func TestMemoryStore_GetSetDelete(t *testing.T) {
	ms := NewMemoryStore()
	defer ms.Close()
	ctx := context.Background()

	if _, err := ms.Get(ctx, "missing"); !core.IsStoreNotFound(err) {
		t.Errorf("Get(missing) error = %v, want not found", err)
	}

	if err := ms.Set(ctx, "k1", []byte("v1")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err := ms.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !bytes.Equal(got, []byte("v1")) {
		t.Errorf("Get(k1) = %q, want v1", got)
	}

	if err := ms.Delete(ctx, "k1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := ms.Get(ctx, "k1"); !core.IsStoreNotFound(err) {
		t.Errorf("Get after delete error = %v, want not found", err)
	}
}

func TestMemoryStore_BatchOps(t *testing.T) {
	ms := NewMemoryStore()
	defer ms.Close()
	ctx := context.Background()

	kvs := map[string][]byte{"a": []byte("1"), "b": []byte("2")}
	if err := ms.BatchSet(ctx, kvs); err != nil {
		t.Fatalf("BatchSet() error = %v", err)
	}

	got, err := ms.BatchGet(ctx, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("BatchGet() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("BatchGet size = %d, want 2 (missing keys skipped)", len(got))
	}
	if !bytes.Equal(got["b"], []byte("2")) {
		t.Errorf("BatchGet[b] = %q, want 2", got["b"])
	}
}

func TestMemoryStore_ZSet(t *testing.T) {
	ms := NewMemoryStore()
	defer ms.Close()
	ctx := context.Background()

	if _, err := ms.ZScore(ctx, "z", "m"); !core.IsStoreNotFound(err) {
		t.Errorf("ZScore on missing zset error = %v, want not found", err)
	}

	ms.ZAdd(ctx, "z", 2, "b")
	ms.ZAdd(ctx, "z", 3, "a")
	ms.ZAdd(ctx, "z", 3, "c")
	ms.ZAdd(ctx, "z", 1, "d")

	// score desc, member asc on ties
	got, err := ms.ZRange(ctx, "z", 0, -1)
	if err != nil {
		t.Fatalf("ZRange() error = %v", err)
	}
	want := []string{"a", "c", "b", "d"}
	if len(got) != len(want) {
		t.Fatalf("ZRange len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ZRange[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	got, err = ms.ZRange(ctx, "z", 0, 1)
	if err != nil {
		t.Fatalf("ZRange() error = %v", err)
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Errorf("ZRange(0,1) = %v, want [a c]", got)
	}

	score, err := ms.ZScore(ctx, "z", "b")
	if err != nil {
		t.Fatalf("ZScore() error = %v", err)
	}
	if score != 2 {
		t.Errorf("ZScore(b) = %v, want 2", score)
	}
}

func TestMemoryStore_Hash(t *testing.T) {
	ms := NewMemoryStore()
	defer ms.Close()
	ctx := context.Background()

	ms.HSet(ctx, "h", "f1", []byte("v1"))
	ms.HSet(ctx, "h", "f2", []byte("v2"))
	ms.HSet(ctx, "other", "f1", []byte("x"))

	got, err := ms.HGet(ctx, "h", "f1")
	if err != nil {
		t.Fatalf("HGet() error = %v", err)
	}
	if !bytes.Equal(got, []byte("v1")) {
		t.Errorf("HGet(h, f1) = %q, want v1", got)
	}

	all, err := ms.HGetAll(ctx, "h")
	if err != nil {
		t.Fatalf("HGetAll() error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("HGetAll size = %d, want 2", len(all))
	}
	if !bytes.Equal(all["f2"], []byte("v2")) {
		t.Errorf("HGetAll[f2] = %q, want v2", all["f2"])
	}
}
