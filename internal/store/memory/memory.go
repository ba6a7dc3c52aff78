package memory

import (
	"context"
	"sync"

	"github.com/spigell/hh-interviewer/internal/interview"
)

// Store keeps sessions in process memory. It is used by the practice command
// and as the default backend for single-instance deployments.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*interview.Session
	// active maps a (job, candidate) pair to the id of its active session.
	active map[pair]string
}

type pair struct {
	jobID       string
	candidateID string
}

var _ interview.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		sessions: make(map[string]*interview.Session),
		active:   make(map[pair]string),
	}
}

func (s *Store) Create(_ context.Context, session *interview.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[session.ID]; ok {
		return interview.ErrDuplicate
	}

	key := pair{session.JobID, session.CandidateID}
	if session.IsActive() {
		if _, ok := s.active[key]; ok {
			return interview.ErrDuplicate
		}
		s.active[key] = session.ID
	}
	s.sessions[session.ID] = session.Clone()
	return nil
}

func (s *Store) FindActive(_ context.Context, jobID, candidateID string) (*interview.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.active[pair{jobID, candidateID}]
	if !ok {
		return nil, interview.ErrSessionNotFound
	}
	return s.sessions[id].Clone(), nil
}

func (s *Store) Get(_ context.Context, id string) (*interview.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, interview.ErrSessionNotFound
	}
	return session.Clone(), nil
}

func (s *Store) Save(_ context.Context, session *interview.Session, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.sessions[session.ID]
	if !ok {
		return interview.ErrSessionNotFound
	}
	if current.Version != expectedVersion {
		return interview.ErrConflict
	}

	key := pair{session.JobID, session.CandidateID}
	if !session.IsActive() && s.active[key] == session.ID {
		delete(s.active, key)
	}
	s.sessions[session.ID] = session.Clone()
	return nil
}

// Len is the number of stored sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
