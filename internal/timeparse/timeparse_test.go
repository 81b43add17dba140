package timeparse

import (
	"testing"
	"time"
)

func TestParseClockTimeSameDay(t *testing.T) {
	t.Parallel()
	p := New(true)
	base := time.Date(2026, 6, 18, 10, 0, 0, 0, time.UTC)

	got, ok := p.Parse("remind me to drink water at 3pm", base)
	if !ok {
		t.Fatal("expected a parse")
	}
	if got.Day() != 18 || got.Hour() != 15 {
		t.Fatalf("got %v, want 3pm on the 18th", got)
	}
}

func TestParseFutureBiasRollsForward(t *testing.T) {
	t.Parallel()
	p := New(true)
	// 6pm: "3pm" already passed today, so it must mean tomorrow.
	base := time.Date(2026, 6, 18, 18, 0, 0, 0, time.UTC)

	got, ok := p.Parse("remind me to drink water at 3pm", base)
	if !ok {
		t.Fatal("expected a parse")
	}
	if !got.After(base) {
		t.Fatalf("got %v, want a future time", got)
	}
	if got.Day() != 19 || got.Hour() != 15 {
		t.Fatalf("got %v, want 3pm on the 19th", got)
	}
}

func TestParseWithoutFutureBias(t *testing.T) {
	t.Parallel()
	p := New(false)
	base := time.Date(2026, 6, 18, 18, 0, 0, 0, time.UTC)

	got, ok := p.Parse("remind me to drink water at 3pm", base)
	if !ok {
		t.Fatal("expected a parse")
	}
	if got.Day() != 18 {
		t.Fatalf("got %v, want same-day match without bias", got)
	}
}

func TestParseTomorrow(t *testing.T) {
	t.Parallel()
	p := New(true)
	base := time.Date(2026, 6, 18, 10, 0, 0, 0, time.UTC)

	got, ok := p.Parse("remind me to stretch tomorrow at 9am", base)
	if !ok {
		t.Fatal("expected a parse")
	}
	if got.Day() != 19 || got.Hour() != 9 {
		t.Fatalf("got %v, want 9am on the 19th", got)
	}
}

func TestParseNoTimeExpression(t *testing.T) {
	t.Parallel()
	p := New(true)
	if _, ok := p.Parse("remind me to be kind", time.Now()); ok {
		t.Fatal("expected no parse for text without a time")
	}
}
