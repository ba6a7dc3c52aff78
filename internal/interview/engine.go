package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/hh-interviewer/internal/logger"
	"github.com/spigell/hh-interviewer/internal/metrics"
	"github.com/spigell/hh-interviewer/internal/utils"
)

// ErrInvalidInput is returned for empty identifiers.
var ErrInvalidInput = errors.New("invalid input")

// Deps are the collaborators an Engine drives.
type Deps struct {
	Store     Store
	Jobs      JobLookup
	Questions QuestionGenerator
	Scorer    AnswerScorer
	// Locker defaults to an in-process KeyedMutex.
	Locker Locker
	Logger *zap.Logger
}

// Options tune an Engine. Zero values select defaults.
type Options struct {
	MaxQuestions int
	Now          func() time.Time
	NewID        func() string
}

// SubmitResult is what the caller learns after answering.
// NextQuestion is empty exactly when Status is StatusCompleted.
type SubmitResult struct {
	NextQuestion string
	Score        int
	Notes        string
	GradedBy     GradedBy
	Status       Status
	TurnCount    int
}

// Engine is the interview session state machine.
type Engine struct {
	store     Store
	jobs      JobLookup
	questions QuestionGenerator
	scorer    AnswerScorer
	locker    Locker
	logger    *zap.Logger

	maxQuestions int
	now          func() time.Time
	newID        func() string
}

func NewEngine(deps Deps, opts Options) *Engine {
	locker := deps.Locker
	if locker == nil {
		locker = NewKeyedMutex()
	}

	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	newID := opts.NewID
	if newID == nil {
		newID = func() string { return uuid.New().String() }
	}

	return &Engine{
		store:        deps.Store,
		jobs:         deps.Jobs,
		questions:    deps.Questions,
		scorer:       deps.Scorer,
		locker:       locker,
		logger:       logger.WithFields(deps.Logger),
		maxQuestions: NormalizeMaxQuestions(opts.MaxQuestions),
		now:          now,
		newID:        newID,
	}
}

// MaxQuestions is the cap applied to new sessions.
func (e *Engine) MaxQuestions() int {
	return e.maxQuestions
}

// Start opens an interview for the pair, or returns the one already active.
// created reports whether a new session was made.
func (e *Engine) Start(ctx context.Context, jobID, candidateID string) (s *Session, created bool, err error) {
	jobID = strings.TrimSpace(jobID)
	candidateID = strings.TrimSpace(candidateID)
	if jobID == "" || candidateID == "" {
		return nil, false, fmt.Errorf("%w: job id and candidate id are required", ErrInvalidInput)
	}

	unlock, err := e.locker.Lock(ctx, pairKey(jobID, candidateID))
	if err != nil {
		return nil, false, fmt.Errorf("lock candidate pair: %w", err)
	}
	defer unlock()

	log := e.logger.With(logger.SessionFields("", jobID, candidateID)...)

	existing, err := e.store.FindActive(ctx, jobID, candidateID)
	switch {
	case err == nil:
		log.Info("returning active interview", zap.String(logger.FieldSessionID, existing.ID))
		metrics.SessionEvent(metrics.EventResumed)
		return existing, false, nil
	case !errors.Is(err, ErrNotFound):
		return nil, false, fmt.Errorf("find active session: %w", err)
	}

	job, err := e.jobs.Job(ctx, jobID)
	if err != nil {
		return nil, false, fmt.Errorf("lookup job: %w", err)
	}

	question, ok := e.questions.Next(ctx, QuestionContext{Job: *job})

	now := e.now()
	s = &Session{
		ID:              e.newID(),
		JobID:           jobID,
		CandidateID:     candidateID,
		Job:             *job,
		Status:          StatusActive,
		CurrentQuestion: question,
		MaxQuestions:    e.maxQuestions,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if !ok {
		log.Warn("question generator had nothing to ask; session created completed")
		s.complete()
	}

	if err := e.store.Create(ctx, s); err != nil {
		if errors.Is(err, ErrDuplicate) {
			existing, findErr := e.store.FindActive(ctx, jobID, candidateID)
			if findErr != nil {
				return nil, false, fmt.Errorf("find active session after duplicate: %w", findErr)
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("create session: %w", err)
	}

	metrics.SessionEvent(metrics.EventStarted)
	log.Info("interview started",
		zap.String(logger.FieldSessionID, s.ID),
		zap.Int("max_questions", s.MaxQuestions),
	)

	return s, true, nil
}

// State returns the session by id.
func (e *Engine) State(ctx context.Context, sessionID string) (*Session, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}
	return e.store.Get(ctx, sessionID)
}

// SubmitAnswer scores the answer to the current question, appends the turn
// and moves the session forward. Once the session lock is held the work is
// detached from ctx cancellation and runs to completion.
func (e *Engine) SubmitAnswer(ctx context.Context, sessionID, answer string) (*SubmitResult, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}

	unlock, err := e.locker.Lock(ctx, sessionKey(sessionID))
	if err != nil {
		return nil, fmt.Errorf("lock session: %w", err)
	}
	defer unlock()

	ctx = context.WithoutCancel(ctx)

	s, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	log := e.logger.With(logger.SessionFields(s.ID, s.JobID, s.CandidateID)...)

	if !s.IsActive() {
		return nil, fmt.Errorf("%w: session %s is %s", ErrInvalidState, s.ID, s.Status)
	}
	if len(s.Turns) >= s.MaxQuestions {
		return nil, fmt.Errorf("%w: session %s already has %d turns", ErrInvalidState, s.ID, len(s.Turns))
	}

	assessment := e.scorer.Score(ctx, s.CurrentQuestion, answer)
	assessment.Score = ClampScore(float64(assessment.Score))
	assessment.Notes = utils.TruncateRunes(strings.TrimSpace(assessment.Notes), MaxNotesLength)
	if assessment.GradedBy == "" {
		assessment.GradedBy = GradedByProvider
	}
	metrics.TurnScored(string(assessment.GradedBy))

	now := e.now()
	s.Turns = append(s.Turns, Turn{
		Question:   s.CurrentQuestion,
		Answer:     answer,
		Score:      assessment.Score,
		Notes:      assessment.Notes,
		GradedBy:   assessment.GradedBy,
		AnsweredAt: now,
	})
	s.UpdatedAt = now

	if len(s.Turns) >= s.MaxQuestions {
		s.complete()
	} else {
		next, ok := e.questions.Next(ctx, QuestionContext{Job: s.Job, Transcript: s.Transcript()})
		if ok {
			s.CurrentQuestion = next
		} else {
			log.Info("question generator signalled the end of the interview")
			s.complete()
		}
	}

	expected := s.Version
	s.Version++
	if err := e.store.Save(ctx, s, expected); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, fmt.Errorf("%w: session %s was modified concurrently", ErrInvalidState, s.ID)
		}
		return nil, fmt.Errorf("save session: %w", err)
	}

	log.Info("answer scored",
		zap.Int("turn", len(s.Turns)),
		zap.Int("score", assessment.Score),
		zap.String("graded_by", string(assessment.GradedBy)),
		zap.String("status", string(s.Status)),
	)
	if !s.IsActive() {
		metrics.SessionEvent(metrics.EventCompleted)
		log.Info("interview completed", zap.Float64("average_score", s.AverageScore()))
	}

	return &SubmitResult{
		NextQuestion: s.CurrentQuestion,
		Score:        assessment.Score,
		Notes:        assessment.Notes,
		GradedBy:     assessment.GradedBy,
		Status:       s.Status,
		TurnCount:    len(s.Turns),
	}, nil
}

func (s *Session) complete() {
	s.Status = StatusCompleted
	s.CurrentQuestion = ""
}

func pairKey(jobID, candidateID string) string {
	return "pair:" + jobID + ":" + candidateID
}

func sessionKey(id string) string {
	return "session:" + id
}
