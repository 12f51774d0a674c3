package postgres

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
)

func TestULIDGeneratorIsMonotonicWithinMillisecond(t *testing.T) {
	g := NewULIDGenerator()
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return fixed }

	prev := g.Generate()
	for i := 0; i < 100; i++ {
		next := g.Generate()
		if next <= prev {
			t.Fatalf("expected %s > %s", next, prev)
		}
		prev = next
	}

	id, err := ulid.Parse(prev)
	if err != nil {
		t.Fatalf("generated id is not a ULID: %v", err)
	}
	if got := ulid.Time(id.Time()); !got.Equal(fixed) {
		t.Fatalf("expected timestamp %v, got %v", fixed, got)
	}
}
