package scorer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/hh-interviewer/internal/interview"
)

type stubProvider struct {
	reply  string
	err    error
	delay  time.Duration
	prompt string
}

func (s *stubProvider) GenerateContent(ctx context.Context, prompt string) (string, error) {
	s.prompt = prompt
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.reply, s.err
}

func (s *stubProvider) Name() string  { return "stub" }
func (s *stubProvider) Model() string { return "stub-model" }

func TestScoreParsesProviderResponse(t *testing.T) {
	tests := []struct {
		name      string
		reply     string
		wantScore int
		wantNotes string
	}{
		{name: "plain", reply: `{"score": 8, "notes": "Concrete and well structured."}`, wantScore: 8, wantNotes: "Concrete and well structured."},
		{name: "fenced", reply: "```json\n{\"score\": 3, \"notes\": \"Shallow.\"}\n```", wantScore: 3, wantNotes: "Shallow."},
		{name: "numeric string", reply: `{"score": "6", "notes": "ok"}`, wantScore: 6, wantNotes: "ok"},
		{name: "half rounds up", reply: `{"score": 6.5, "notes": ""}`, wantScore: 7},
		{name: "above range", reply: `{"score": 14, "notes": "great"}`, wantScore: 10, wantNotes: "great"},
		{name: "below range", reply: `{"score": -2, "notes": "bad"}`, wantScore: 0, wantNotes: "bad"},
		{name: "multi-line notes", reply: "{\"score\": 5, \"notes\": \"line one\\nline two\"}", wantScore: 5, wantNotes: "line one line two"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := New(&stubProvider{reply: tc.reply}, Options{Logger: zap.NewNop()})
			got := s.Score(context.Background(), "What is a goroutine?", "A lightweight thread.")
			if got.Score != tc.wantScore || got.Notes != tc.wantNotes {
				t.Fatalf("expected %d/%q, got %d/%q", tc.wantScore, tc.wantNotes, got.Score, got.Notes)
			}
			if got.GradedBy != interview.GradedByProvider {
				t.Fatalf("expected provider grading, got %s", got.GradedBy)
			}
		})
	}
}

func TestScorePromptCarriesQuestionAndAnswer(t *testing.T) {
	provider := &stubProvider{reply: `{"score": 5, "notes": "ok"}`}
	New(provider, Options{Logger: zap.NewNop()}).Score(context.Background(), "Why channels?", "To share memory by communicating.")

	if !strings.Contains(provider.prompt, "Why channels?") || !strings.Contains(provider.prompt, "To share memory by communicating.") {
		t.Fatalf("prompt is missing inputs:\n%s", provider.prompt)
	}
}

func TestScoreFallsBackToHeuristic(t *testing.T) {
	answer := strings.Repeat("a", 260)
	want := Heuristic(answer)

	tests := []struct {
		name     string
		provider *stubProvider
	}{
		{name: "provider error", provider: &stubProvider{err: errors.New("unavailable")}},
		{name: "not json", provider: &stubProvider{reply: "I'd give it a seven"}},
		{name: "missing score", provider: &stubProvider{reply: `{"notes": "fine"}`}},
		{name: "invalid score", provider: &stubProvider{reply: `{"score": "seven", "notes": "fine"}`}},
		{name: "null score", provider: &stubProvider{reply: `{"score": null}`}},
		{name: "timeout", provider: &stubProvider{reply: `{"score": 9}`, delay: time.Second}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.WarnLevel)
			s := New(tc.provider, Options{Timeout: 20 * time.Millisecond, Logger: zap.New(core)})

			got := s.Score(context.Background(), "Q?", answer)
			if got != want {
				t.Fatalf("expected heuristic %+v, got %+v", want, got)
			}
			if logs.FilterMessage("using heuristic score").Len() != 1 {
				t.Fatalf("expected a warning about the fallback, got %d entries", logs.Len())
			}
		})
	}
}

func TestScoreWithoutProvider(t *testing.T) {
	got := New(nil, Options{}).Score(context.Background(), "Q?", "short")
	if got.GradedBy != interview.GradedByHeuristic || !strings.HasPrefix(got.Notes, HeuristicPrefix) {
		t.Fatalf("expected heuristic assessment, got %+v", got)
	}
}

func TestHeuristic(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		want   int
	}{
		{name: "empty", answer: "", want: 0},
		{name: "whitespace only", answer: "   \n\t", want: 0},
		{name: "short", answer: strings.Repeat("x", 24), want: 0},
		{name: "rounds half up", answer: strings.Repeat("x", 25), want: 1},
		{name: "medium", answer: strings.Repeat("x", 260), want: 5},
		{name: "multibyte counts runes", answer: strings.Repeat("ж", 100), want: 2},
		{name: "capped", answer: strings.Repeat("x", 5000), want: 10},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Heuristic(tc.answer)
			if got.Score != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got.Score)
			}
			if !strings.HasPrefix(got.Notes, HeuristicPrefix) {
				t.Fatalf("notes must carry the heuristic prefix, got %q", got.Notes)
			}
			if utf8.RuneCountInString(got.Notes) > interview.MaxNotesLength {
				t.Fatalf("notes too long: %q", got.Notes)
			}
			if got.GradedBy != interview.GradedByHeuristic {
				t.Fatalf("expected heuristic grading, got %s", got.GradedBy)
			}
		})
	}

	longer := Heuristic(strings.Repeat("x", 400))
	shorter := Heuristic(strings.Repeat("x", 100))
	if longer.Score <= shorter.Score {
		t.Fatalf("longer answers should score higher: %d <= %d", longer.Score, shorter.Score)
	}
}
