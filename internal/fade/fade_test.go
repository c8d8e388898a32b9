package fade

import (
	"math"
	"testing"
	"time"

	"github.com/heimdex/reelquiz/internal/scheduler"
)

type recordingSurface struct {
	values []float64
}

func (s *recordingSurface) SetOpacity(alpha float64) {
	s.values = append(s.values, alpha)
}

func (s *recordingSurface) last() float64 {
	return s.values[len(s.values)-1]
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestFadeTo_Interpolates(t *testing.T) {
	loop := scheduler.New()
	surface := &recordingSurface{}
	f := New(loop, surface)

	if surface.last() != 0 {
		t.Fatalf("initial opacity = %g, want 0", surface.last())
	}

	done := 0
	f.FadeTo(1, time.Second, func() { done++ })

	loop.Tick(250 * time.Millisecond)
	if !almostEqual(surface.last(), 0.25) {
		t.Errorf("opacity at 250ms = %g, want 0.25", surface.last())
	}

	loop.Tick(500 * time.Millisecond)
	if !almostEqual(surface.last(), 0.75) {
		t.Errorf("opacity at 750ms = %g, want 0.75", surface.last())
	}
	if done != 0 {
		t.Fatal("done called before fade finished")
	}

	loop.Tick(500 * time.Millisecond)
	if surface.last() != 1 {
		t.Errorf("final opacity = %g, want 1", surface.last())
	}
	if done != 1 {
		t.Fatalf("done called %d times, want 1", done)
	}
	if f.Fading() {
		t.Error("Fading() = true after completion")
	}

	loop.Tick(time.Second)
	if done != 1 {
		t.Fatalf("done called again after completion")
	}
}

func TestFadeTo_FromCurrentAlpha(t *testing.T) {
	loop := scheduler.New()
	surface := &recordingSurface{}
	f := New(loop, surface)

	f.FadeTo(1, 0, nil)
	if f.Alpha() != 1 {
		t.Fatalf("Alpha() = %g, want 1 after instant fade", f.Alpha())
	}

	f.FadeTo(0, time.Second, nil)
	loop.Tick(500 * time.Millisecond)
	if !almostEqual(f.Alpha(), 0.5) {
		t.Errorf("Alpha() = %g, want 0.5", f.Alpha())
	}
}

func TestFadeTo_ReplacesInFlight(t *testing.T) {
	loop := scheduler.New()
	f := New(loop, &recordingSurface{})

	first := 0
	second := 0
	f.FadeTo(1, time.Second, func() { first++ })
	loop.Tick(500 * time.Millisecond)
	f.FadeTo(0, time.Second, func() { second++ })
	loop.Tick(2 * time.Second)

	if first != 0 {
		t.Errorf("replaced fade done called %d times, want 0", first)
	}
	if second != 1 {
		t.Errorf("second fade done called %d times, want 1", second)
	}
	if f.Alpha() != 0 {
		t.Errorf("Alpha() = %g, want 0", f.Alpha())
	}
}

func TestCancel(t *testing.T) {
	loop := scheduler.New()
	f := New(loop, &recordingSurface{})

	called := false
	f.FadeTo(1, time.Second, func() { called = true })
	loop.Tick(400 * time.Millisecond)
	f.Cancel()
	loop.Tick(2 * time.Second)

	if called {
		t.Fatal("done called after Cancel")
	}
	if !almostEqual(f.Alpha(), 0.4) {
		t.Errorf("Alpha() = %g, want 0.4", f.Alpha())
	}
}
