package guard

import (
	"context"
	"testing"
	"time"
)

func TestMemoryExclusive(t *testing.T) {
	g := NewMemory()
	ctx := context.Background()

	unlock, ok, err := g.TryLock(ctx, "job:1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first lock: ok=%v err=%v", ok, err)
	}
	if _, ok, _ := g.TryLock(ctx, "job:1", time.Minute); ok {
		t.Fatal("second lock on same key should fail")
	}
	if _, ok, _ := g.TryLock(ctx, "job:2", time.Minute); !ok {
		t.Fatal("different key should lock")
	}
	unlock()
	if _, ok, _ := g.TryLock(ctx, "job:1", time.Minute); !ok {
		t.Fatal("lock after release should succeed")
	}
}

func TestMemoryExpiry(t *testing.T) {
	g := NewMemory()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }

	staleUnlock, ok, _ := g.TryLock(context.Background(), "k", time.Second)
	if !ok {
		t.Fatal("lock")
	}
	now = now.Add(2 * time.Second)
	if _, ok, _ := g.TryLock(context.Background(), "k", time.Second); !ok {
		t.Fatal("expired lock should be reclaimable")
	}
	// the stale holder must not release the new owner's lock
	staleUnlock()
	if _, ok, _ := g.TryLock(context.Background(), "k", time.Second); ok {
		t.Fatal("stale unlock released someone else's lock")
	}
}
