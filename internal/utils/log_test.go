package utils

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestTruncateForLog(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		limit  int
		expect string
	}{
		{
			name:   "returns empty when limit non-positive",
			input:  "hello world",
			limit:  0,
			expect: "",
		},
		{
			name:   "shorter than limit",
			input:  "hello",
			limit:  10,
			expect: "hello",
		},
		{
			name:   "truncates and adds ellipsis",
			input:  "hello world",
			limit:  5,
			expect: "hello...",
		},
		{
			name:   "trims surrounding whitespace",
			input:  "  spaced  ",
			limit:  5,
			expect: "space...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := TruncateForLog(tt.input, tt.limit); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

func TestTruncateRunes(t *testing.T) {
	t.Parallel()

	if got := TruncateRunes("короткий", 20); got != "короткий" {
		t.Fatalf("unexpected short value: %q", got)
	}

	if got := TruncateRunes("hello world", 6); got != "hello" {
		t.Fatalf("expected trailing space to be trimmed, got %q", got)
	}

	long := strings.Repeat("я", 200)
	if got := TruncateRunes(long, 180); len([]rune(got)) != 180 {
		t.Fatalf("expected 180 runes, got %d", len([]rune(got)))
	}

	if got := TruncateRunes("abc", 0); got != "" {
		t.Fatalf("expected empty string for zero limit, got %q", got)
	}
}

func TestSingleLine(t *testing.T) {
	t.Parallel()

	if got := SingleLine("  What\n is\t\tyour   stack? "); got != "What is your stack?" {
		t.Fatalf("unexpected single line: %q", got)
	}
}

func TestWaitForHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := WaitFor(ctx, time.Hour); err == nil {
		t.Fatal("expected context error")
	}

	if err := WaitFor(context.Background(), 0); err != nil {
		t.Fatalf("expected nil for zero duration, got %v", err)
	}
}
