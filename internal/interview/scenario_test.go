package interview_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/spigell/hh-interviewer/internal/ai/questioner"
	"github.com/spigell/hh-interviewer/internal/ai/scorer"
	"github.com/spigell/hh-interviewer/internal/interview"
	"github.com/spigell/hh-interviewer/internal/jobs"
	"github.com/spigell/hh-interviewer/internal/store/memory"
)

type providerFunc func(ctx context.Context, prompt string) (string, error)

func (f providerFunc) GenerateContent(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func (providerFunc) Name() string  { return "fake" }
func (providerFunc) Model() string { return "fake-model" }

var errUnavailable = errors.New("provider unavailable")

func newScenarioEngine(questions, scores providerFunc, maxQuestions int) *interview.Engine {
	catalog := jobs.New(interview.Job{
		ID:             "J",
		Title:          "Platform Engineer",
		Description:    "Run Kubernetes clusters.",
		RequiredSkills: []string{"Kubernetes", "Go", "Terraform"},
	})

	var q interview.QuestionGenerator = questioner.New(nil, questioner.Options{})
	if questions != nil {
		q = questioner.New(questions, questioner.Options{})
	}
	var s interview.AnswerScorer = scorer.New(nil, scorer.Options{})
	if scores != nil {
		s = scorer.New(scores, scorer.Options{})
	}

	return interview.NewEngine(interview.Deps{
		Store:     memory.New(),
		Jobs:      catalog,
		Questions: q,
		Scorer:    s,
	}, interview.Options{MaxQuestions: maxQuestions})
}

func TestScenarioFullSession(t *testing.T) {
	ctx := context.Background()

	var asked atomic.Int32
	questions := providerFunc(func(_ context.Context, _ string) (string, error) {
		n := asked.Add(1)
		if n == 1 {
			return `{"question": "How do you roll out a cluster upgrade?", "done": false}`, nil
		}
		return "```json\n{\"question\": \"How do you test Terraform modules?\", \"done\": false}\n```", nil
	})
	scores := providerFunc(func(_ context.Context, prompt string) (string, error) {
		if strings.Contains(prompt, "answer A") {
			return `{"score": 7, "notes": "clear rollout plan"}`, nil
		}
		return `{"score": "8.6", "notes": "good"}`, nil
	})

	engine := newScenarioEngine(questions, scores, 2)

	s, created, err := engine.Start(ctx, "J", "C")
	if err != nil || !created {
		t.Fatalf("start: %v created=%v", err, created)
	}
	q1 := s.CurrentQuestion
	if q1 != "How do you roll out a cluster upgrade?" {
		t.Fatalf("unexpected first question %q", q1)
	}

	again, created, err := engine.Start(ctx, "J", "C")
	if err != nil || created || again.ID != s.ID {
		t.Fatalf("duplicate start returned %v created=%v err=%v", again, created, err)
	}

	first, err := engine.SubmitAnswer(ctx, s.ID, "answer A")
	if err != nil {
		t.Fatalf("first answer: %v", err)
	}
	if first.Status != interview.StatusActive || first.NextQuestion != "How do you test Terraform modules?" {
		t.Fatalf("unexpected first result %+v", first)
	}
	if first.Score != 7 || first.GradedBy != interview.GradedByProvider {
		t.Fatalf("unexpected first score %+v", first)
	}

	second, err := engine.SubmitAnswer(ctx, s.ID, "answer B")
	if err != nil {
		t.Fatalf("second answer: %v", err)
	}
	if second.Status != interview.StatusCompleted || second.NextQuestion != "" || second.Score != 9 {
		t.Fatalf("unexpected second result %+v", second)
	}
	// The cap is checked before generation, so the second answer asks nothing.
	if asked.Load() != 2 {
		t.Fatalf("expected 2 question requests, got %d", asked.Load())
	}

	state, err := engine.State(ctx, s.ID)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if len(state.Turns) != 2 || state.Turns[0].Question != q1 || state.Turns[0].Answer != "answer A" {
		t.Fatalf("unexpected turns %+v", state.Turns)
	}

	if _, err := engine.SubmitAnswer(ctx, s.ID, "late answer"); !errors.Is(err, interview.ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
	state, _ = engine.State(ctx, s.ID)
	if len(state.Turns) != 2 {
		t.Fatalf("late answer changed turns: %d", len(state.Turns))
	}
}

func TestScenarioUnknownSession(t *testing.T) {
	ctx := context.Background()
	engine := newScenarioEngine(nil, nil, 2)

	if _, err := engine.State(ctx, "nonexistent-id"); !errors.Is(err, interview.ErrNotFound) {
		t.Fatalf("state: expected not found, got %v", err)
	}
	if _, err := engine.SubmitAnswer(ctx, "nonexistent-id", "x"); !errors.Is(err, interview.ErrNotFound) {
		t.Fatalf("submit: expected not found, got %v", err)
	}
	if _, _, err := engine.Start(ctx, "missing-job", "C"); !errors.Is(err, interview.ErrJobNotFound) {
		t.Fatalf("start: expected job not found, got %v", err)
	}
}

func TestScenarioProvidersUnavailable(t *testing.T) {
	ctx := context.Background()

	down := providerFunc(func(context.Context, string) (string, error) {
		return "", errUnavailable
	})
	engine := newScenarioEngine(down, down, 4)

	s, _, err := engine.Start(ctx, "J", "C")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !strings.Contains(s.CurrentQuestion, "Kubernetes") {
		t.Fatalf("expected fallback opening question, got %q", s.CurrentQuestion)
	}

	answers := []string{"", strings.Repeat("x", 2000), "short", "a medium length answer about Terraform state locking"}
	var res *interview.SubmitResult
	for i, answer := range answers {
		res, err = engine.SubmitAnswer(ctx, s.ID, answer)
		if err != nil {
			t.Fatalf("answer %d: %v", i, err)
		}
		if res.GradedBy != interview.GradedByHeuristic || !strings.HasPrefix(res.Notes, scorer.HeuristicPrefix) {
			t.Fatalf("answer %d: expected heuristic grading, got %+v", i, res)
		}
		if res.Score < 0 || res.Score > interview.MaxScore {
			t.Fatalf("answer %d: score out of range %d", i, res.Score)
		}
		if i < len(answers)-1 && (res.Status != interview.StatusActive || res.NextQuestion == "") {
			t.Fatalf("answer %d: fallback must keep the interview going, got %+v", i, res)
		}
	}

	if res.Status != interview.StatusCompleted {
		t.Fatalf("expected completion at the cap, got %s", res.Status)
	}

	state, _ := engine.State(ctx, s.ID)
	if state.Turns[0].Score != 0 || state.Turns[1].Score != interview.MaxScore {
		t.Fatalf("unexpected clamped scores %d and %d", state.Turns[0].Score, state.Turns[1].Score)
	}
}
