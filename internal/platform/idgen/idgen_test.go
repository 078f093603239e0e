package idgen

import (
	"testing"
	"time"

	ulid "github.com/oklog/ulid/v2"
)

func TestULIDMonotonic(t *testing.T) {
	g := NewULID()
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	prev := ""
	for i := 0; i < 100; i++ {
		id := g.NewULID(now)
		if len(id) != 26 {
			t.Fatalf("len = %d", len(id))
		}
		if id <= prev {
			t.Fatalf("not monotonic: %s <= %s", id, prev)
		}
		prev = id
	}
	parsed, err := ulid.Parse(prev)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !ulid.Time(parsed.Time()).Equal(now) {
		t.Errorf("timestamp = %v", ulid.Time(parsed.Time()))
	}
}
