// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package arena_test

import (
	"testing"

	"github.com/gviegas/rendergraph/internal/arena"
)

func TestWatermarkPersists(t *testing.T) {
	a := arena.New()
	p := arena.NewPool[int](a, "transitions")

	p.Reset()
	for i := 0; i < 100; i++ {
		p.Append(i)
	}
	p.Commit()

	p.Reset()
	if c := cap(p.Slice()); c < 150 {
		t.Fatalf("Reset: cap = %d, want >= 150 (1.5x watermark)", c)
	}
	if n := p.Len(); n != 0 {
		t.Fatalf("Reset: Len() = %d, want 0", n)
	}
}

func TestSpan(t *testing.T) {
	a := arena.New()
	p := arena.NewPool[string](a, "edges")
	p.Reset()
	p.Append("a")
	sp := arena.AppendSpan(p, []string{"b", "c", "d"})
	if sp.Offset != 1 || sp.Count != 3 {
		t.Fatalf("AppendSpan: span = %+v, want {1 3}", sp)
	}
	got := arena.SliceOf(p, sp)
	want := []string{"b", "c", "d"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("SliceOf: got %v, want %v", got, want)
		}
	}
}
