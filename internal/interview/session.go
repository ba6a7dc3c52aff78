package interview

import (
	"math"
	"time"
)

// Status is the lifecycle state of an interview session.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// GradedBy tells who produced a turn's score.
type GradedBy string

const (
	GradedByProvider  GradedBy = "provider"
	GradedByHeuristic GradedBy = "heuristic"
)

const (
	DefaultMaxQuestions = 8
	MinMaxQuestions     = 1
	MaxMaxQuestions     = 20

	MaxScore       = 10
	MaxNotesLength = 180
)

// Session is one candidate's interview for one job.
type Session struct {
	ID              string
	JobID           string
	CandidateID     string
	Job             Job
	Status          Status
	Turns           []Turn
	CurrentQuestion string
	MaxQuestions    int
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Turn is a single answered question. Turns are never edited after append.
type Turn struct {
	Question   string
	Answer     string
	Score      int
	Notes      string
	GradedBy   GradedBy
	AnsweredAt time.Time
}

// Job is the slice of a job posting the engine needs.
type Job struct {
	ID             string
	Title          string
	Description    string
	RequiredSkills []string
}

// Exchange is a question/answer pair as seen by the question generator.
// Answered is false only for the question still waiting for an answer.
type Exchange struct {
	Question string
	Answer   string
	Answered bool
}

// QuestionContext is everything the generator may use to pick the next question.
type QuestionContext struct {
	Job        Job
	Transcript []Exchange
}

// Assessment is the scorer's verdict for one answer.
type Assessment struct {
	Score    int
	Notes    string
	GradedBy GradedBy
}

// IsActive reports whether the session still accepts answers.
func (s *Session) IsActive() bool {
	return s.Status == StatusActive
}

// Transcript returns the answered turns as generator input.
func (s *Session) Transcript() []Exchange {
	out := make([]Exchange, 0, len(s.Turns))
	for _, turn := range s.Turns {
		out = append(out, Exchange{Question: turn.Question, Answer: turn.Answer, Answered: true})
	}
	return out
}

// AverageScore is the mean turn score on the native [0,10] scale, or 0 when
// nothing was scored yet.
func (s *Session) AverageScore() float64 {
	if len(s.Turns) == 0 {
		return 0
	}
	total := 0
	for _, turn := range s.Turns {
		total += turn.Score
	}
	avg := float64(total) / float64(len(s.Turns))
	return math.Round(avg*100) / 100
}

// Clone returns a deep copy so stores never share turn slices with callers.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Turns = append([]Turn(nil), s.Turns...)
	cp.Job.RequiredSkills = append([]string(nil), s.Job.RequiredSkills...)
	return &cp
}

// ClampScore rounds v half away from zero and bounds it to [0, MaxScore].
func ClampScore(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	rounded := math.Round(v)
	if rounded < 0 {
		return 0
	}
	if rounded > MaxScore {
		return MaxScore
	}
	return int(rounded)
}

// NormalizeMaxQuestions bounds a configured cap to [MinMaxQuestions, MaxMaxQuestions].
// Zero selects the default.
func NormalizeMaxQuestions(n int) int {
	switch {
	case n == 0:
		return DefaultMaxQuestions
	case n < MinMaxQuestions:
		return MinMaxQuestions
	case n > MaxMaxQuestions:
		return MaxMaxQuestions
	default:
		return n
	}
}
