package questioner

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/hh-interviewer/internal/interview"
)

type stubProvider struct {
	reply   string
	err     error
	delay   time.Duration
	prompts []string
}

func (s *stubProvider) GenerateContent(ctx context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
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

var backendJob = interview.Job{
	ID:             "job-1",
	Title:          "Backend Engineer",
	Description:    "Own the payments API.",
	RequiredSkills: []string{"Go", " ", "Kafka"},
}

func TestNextUsesProviderQuestion(t *testing.T) {
	provider := &stubProvider{reply: "```json\n{\"done\": false, \"question\": \"How would you\\n  partition Kafka topics for payments? And why?\"}\n```"}
	g := New(provider, Options{Logger: zap.NewNop()})

	qc := interview.QuestionContext{
		Job: backendJob,
		Transcript: []interview.Exchange{
			{Question: "Tell me about Go.", Answer: "I built a ledger service.", Answered: true},
		},
	}
	question, ok := g.Next(context.Background(), qc)
	if !ok {
		t.Fatal("expected a question")
	}
	if question != "How would you partition Kafka topics for payments?" {
		t.Fatalf("unexpected question %q", question)
	}

	prompt := provider.prompts[0]
	for _, want := range []string{"Backend Engineer", "Own the payments API.", "Go, Kafka", "I built a ledger service."} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt is missing %q:\n%s", want, prompt)
		}
	}
}

func TestNextProviderTerminates(t *testing.T) {
	g := New(&stubProvider{reply: `{"done": true, "question": ""}`}, Options{Logger: zap.NewNop()})

	question, ok := g.Next(context.Background(), interview.QuestionContext{Job: backendJob})
	if ok || question != "" {
		t.Fatalf("expected termination, got %q ok=%v", question, ok)
	}
}

func TestNextFallsBack(t *testing.T) {
	opening := Fallback(interview.QuestionContext{Job: backendJob})

	tests := []struct {
		name     string
		provider *stubProvider
	}{
		{name: "provider error", provider: &stubProvider{err: errors.New("unavailable")}},
		{name: "unparseable", provider: &stubProvider{reply: "I think you should ask about Go"}},
		{name: "empty question", provider: &stubProvider{reply: `{"done": false, "question": "   "}`}},
		{name: "timeout", provider: &stubProvider{reply: `{"question": "late?"}`, delay: time.Second}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g := New(tc.provider, Options{Timeout: 20 * time.Millisecond, Logger: zap.NewNop()})
			question, ok := g.Next(context.Background(), interview.QuestionContext{Job: backendJob})
			if !ok {
				t.Fatal("fallback must never terminate")
			}
			if question != opening {
				t.Fatalf("expected fallback %q, got %q", opening, question)
			}
		})
	}
}

func TestNextWithoutProvider(t *testing.T) {
	g := New(nil, Options{})
	question, ok := g.Next(context.Background(), interview.QuestionContext{Job: backendJob})
	if !ok || !strings.Contains(question, "Go") {
		t.Fatalf("expected opening fallback about the first skill, got %q ok=%v", question, ok)
	}
}

func TestFallback(t *testing.T) {
	answered := func(n int) []interview.Exchange {
		out := make([]interview.Exchange, n)
		for i := range out {
			out[i] = interview.Exchange{Question: "Q?", Answer: "A", Answered: true}
		}
		return out
	}

	tests := []struct {
		name string
		qc   interview.QuestionContext
		want []string
	}{
		{
			name: "opening with skills",
			qc:   interview.QuestionContext{Job: backendJob},
			want: []string{"Go", "project"},
		},
		{
			name: "opening without skills",
			qc:   interview.QuestionContext{Job: interview.Job{Title: "Data Analyst"}},
			want: []string{"core competencies", "Data Analyst"},
		},
		{
			name: "opening without title",
			qc:   interview.QuestionContext{},
			want: []string{"core competencies", "this role"},
		},
		{
			name: "follow-up rotates to first skill",
			qc:   interview.QuestionContext{Job: backendJob, Transcript: answered(1)},
			want: []string{"architecture", "trade-offs", "Go"},
		},
		{
			name: "follow-up rotates to second skill",
			qc:   interview.QuestionContext{Job: backendJob, Transcript: answered(2)},
			want: []string{"architecture", "Kafka"},
		},
		{
			name: "follow-up without skills",
			qc:   interview.QuestionContext{Transcript: answered(1)},
			want: []string{"architecture", "trade-offs"},
		},
		{
			name: "pending last turn asks an opening question",
			qc: interview.QuestionContext{Job: backendJob, Transcript: []interview.Exchange{
				{Question: "Q?", Answered: false},
			}},
			want: []string{"project", "Go"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Fallback(tc.qc)
			if got != Fallback(tc.qc) {
				t.Fatal("fallback must be deterministic")
			}
			for _, want := range tc.want {
				if !strings.Contains(got, want) {
					t.Fatalf("expected %q to contain %q", got, want)
				}
			}
			if utf8.RuneCountInString(got) > MaxQuestionLength {
				t.Fatalf("fallback too long: %d", utf8.RuneCountInString(got))
			}
			if strings.Count(got, "?") != 1 {
				t.Fatalf("expected a single question, got %q", got)
			}
		})
	}
}

func TestClean(t *testing.T) {
	long := strings.Repeat("word ", 60) + "?"

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "multi-line", in: "How do you\n\ttest   Go code?", want: "How do you test Go code?"},
		{name: "compound", in: "What is X? And what is Y?", want: "What is X?"},
		{name: "quoted", in: `"Why Go?"`, want: "Why Go?"},
		{name: "empty", in: "  \n ", want: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Clean(tc.in); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}

	got := Clean(long)
	if utf8.RuneCountInString(got) > MaxQuestionLength {
		t.Fatalf("expected truncation, got %d runes", utf8.RuneCountInString(got))
	}
	if !strings.HasSuffix(got, "?") {
		t.Fatalf("truncated question must still end with '?', got %q", got)
	}
}

func TestFallbackKeepsLongSkillsWellFormed(t *testing.T) {
	skill := "Distributed systems design for high-throughput event streaming platforms built on Apache Kafka " + strings.Repeat("and more ", 20)
	job := interview.Job{Title: strings.Repeat("Principal ", 30), RequiredSkills: []string{skill}}
	answered := []interview.Exchange{{Question: "Q?", Answer: "A", Answered: true}}

	tests := []struct {
		name   string
		qc     interview.QuestionContext
		suffix string
	}{
		{name: "follow-up", qc: interview.QuestionContext{Job: job, Transcript: answered}, suffix: "was involved?"},
		{name: "opening", qc: interview.QuestionContext{Job: job}, suffix: "what your role was?"},
		{name: "opening by title", qc: interview.QuestionContext{Job: interview.Job{Title: job.Title}}, suffix: "where have you applied them?"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Fallback(tc.qc)
			if n := utf8.RuneCountInString(got); n > MaxQuestionLength {
				t.Fatalf("fallback too long: %d runes", n)
			}
			if !strings.HasSuffix(got, tc.suffix) {
				t.Fatalf("expected suffix %q, got %q", tc.suffix, got)
			}
		})
	}
}
