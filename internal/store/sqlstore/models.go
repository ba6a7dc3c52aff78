package sqlstore

import (
	"time"

	"github.com/spigell/hh-interviewer/internal/interview"
)

type sessionRecord struct {
	ID              string    `gorm:"primaryKey;size:64"`
	JobID           string    `gorm:"not null;size:128;index:idx_interview_sessions_pair"`
	CandidateID     string    `gorm:"not null;size:128;index:idx_interview_sessions_pair"`
	JobTitle        string    `gorm:"size:512"`
	JobDescription  string    `gorm:"type:text"`
	RequiredSkills  []string  `gorm:"serializer:json"`
	Status          string    `gorm:"not null;size:16"`
	CurrentQuestion string    `gorm:"type:text"`
	MaxQuestions    int       `gorm:"not null"`
	Version         int64     `gorm:"not null"`
	CreatedAt       time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime:false"`

	Turns []turnRecord `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
}

func (sessionRecord) TableName() string { return "interview_sessions" }

type turnRecord struct {
	SessionID  string `gorm:"primaryKey;size:64"`
	Position   int    `gorm:"primaryKey;autoIncrement:false"`
	Question   string `gorm:"type:text"`
	Answer     string `gorm:"type:text"`
	Score      int
	Notes      string `gorm:"size:512"`
	GradedBy   string `gorm:"size:16"`
	AnsweredAt time.Time
}

func (turnRecord) TableName() string { return "interview_turns" }

func toRecord(s *interview.Session) sessionRecord {
	return sessionRecord{
		ID:              s.ID,
		JobID:           s.JobID,
		CandidateID:     s.CandidateID,
		JobTitle:        s.Job.Title,
		JobDescription:  s.Job.Description,
		RequiredSkills:  s.Job.RequiredSkills,
		Status:          string(s.Status),
		CurrentQuestion: s.CurrentQuestion,
		MaxQuestions:    s.MaxQuestions,
		Version:         s.Version,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
		Turns:           toTurnRecords(s.ID, s.Turns, 0),
	}
}

// toTurnRecords converts turns[from:] keeping their absolute positions.
func toTurnRecords(sessionID string, turns []interview.Turn, from int) []turnRecord {
	if from >= len(turns) {
		return nil
	}
	out := make([]turnRecord, 0, len(turns)-from)
	for i := from; i < len(turns); i++ {
		t := turns[i]
		out = append(out, turnRecord{
			SessionID:  sessionID,
			Position:   i,
			Question:   t.Question,
			Answer:     t.Answer,
			Score:      t.Score,
			Notes:      t.Notes,
			GradedBy:   string(t.GradedBy),
			AnsweredAt: t.AnsweredAt,
		})
	}
	return out
}

func (r *sessionRecord) toSession() *interview.Session {
	s := &interview.Session{
		ID:          r.ID,
		JobID:       r.JobID,
		CandidateID: r.CandidateID,
		Job: interview.Job{
			ID:             r.JobID,
			Title:          r.JobTitle,
			Description:    r.JobDescription,
			RequiredSkills: r.RequiredSkills,
		},
		Status:          interview.Status(r.Status),
		CurrentQuestion: r.CurrentQuestion,
		MaxQuestions:    r.MaxQuestions,
		Version:         r.Version,
		CreatedAt:       r.CreatedAt.UTC(),
		UpdatedAt:       r.UpdatedAt.UTC(),
		Turns:           make([]interview.Turn, 0, len(r.Turns)),
	}
	for _, t := range r.Turns {
		s.Turns = append(s.Turns, interview.Turn{
			Question:   t.Question,
			Answer:     t.Answer,
			Score:      t.Score,
			Notes:      t.Notes,
			GradedBy:   interview.GradedBy(t.GradedBy),
			AnsweredAt: t.AnsweredAt.UTC(),
		})
	}
	return s
}
