package interview

import "context"

// Store persists sessions. Implementations must make Save atomic per session:
// it succeeds only when the stored version equals expectedVersion and then
// bumps the version.
type Store interface {
	// Create inserts a new session. It returns ErrDuplicate when the
	// (job, candidate) pair already has an active session.
	Create(ctx context.Context, s *Session) error
	// FindActive returns the active session for the pair or ErrSessionNotFound.
	FindActive(ctx context.Context, jobID, candidateID string) (*Session, error)
	// Get returns the session by id or ErrSessionNotFound.
	Get(ctx context.Context, id string) (*Session, error)
	// Save writes s when the stored version equals expectedVersion, otherwise
	// it returns ErrConflict. Turns past the stored ones are appended.
	Save(ctx context.Context, s *Session, expectedVersion int64) error
}

// JobLookup resolves job postings. Unknown ids yield ErrJobNotFound.
type JobLookup interface {
	Job(ctx context.Context, id string) (*Job, error)
}

// QuestionGenerator produces the next question. ok=false means the interview
// has nothing more to ask. Implementations never fail; provider trouble is
// absorbed by a fallback.
type QuestionGenerator interface {
	Next(ctx context.Context, qc QuestionContext) (question string, ok bool)
}

// AnswerScorer grades an answer. Like QuestionGenerator it never fails.
type AnswerScorer interface {
	Score(ctx context.Context, question, answer string) Assessment
}

// Locker serializes work on a key. The returned unlock must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
