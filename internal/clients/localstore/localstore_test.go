package localstore

import (
	"context"
	"testing"

	"github.com/threadforge/design-backend/internal/pkg/errors"
)

func TestMemoryStore(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if _, err := m.Get(ctx, "k"); !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("miss must report ErrNotFound, got %v", err)
	}

	if err := m.Set(ctx, "k", []byte("v1")); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := m.Get(ctx, "k")
	if err != nil || string(got) != "v1" {
		t.Fatalf("get: %q, %v", got, err)
	}

	// The stored value is isolated from caller mutation.
	got[0] = 'X'
	again, _ := m.Get(ctx, "k")
	if string(again) != "v1" {
		t.Fatalf("stored value was aliased: %q", again)
	}

	if err := m.Set(ctx, "k", []byte("v2")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if v, _ := m.Get(ctx, "k"); string(v) != "v2" {
		t.Fatalf("overwrite lost: %q", v)
	}

	if err := m.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := m.Get(ctx, "k"); !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("deleted key still readable: %v", err)
	}

	// Deleting a missing key is not an error.
	if err := m.Delete(ctx, "gone"); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
}
