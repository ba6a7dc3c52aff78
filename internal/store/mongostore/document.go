package mongostore

import (
	"time"

	"github.com/spigell/hh-interviewer/internal/interview"
)

type document struct {
	ID              string         `bson:"_id"`
	JobID           string         `bson:"job_id"`
	CandidateID     string         `bson:"candidate_id"`
	Job             jobDocument    `bson:"job"`
	Status          string         `bson:"status"`
	Turns           []turnDocument `bson:"turns"`
	CurrentQuestion string         `bson:"current_question,omitempty"`
	MaxQuestions    int            `bson:"max_questions"`
	Version         int64          `bson:"version"`
	CreatedAt       time.Time      `bson:"created_at"`
	UpdatedAt       time.Time      `bson:"updated_at"`
}

type jobDocument struct {
	Title          string   `bson:"title"`
	Description    string   `bson:"description"`
	RequiredSkills []string `bson:"required_skills"`
}

type turnDocument struct {
	Question   string    `bson:"question"`
	Answer     string    `bson:"answer"`
	Score      int       `bson:"score"`
	Notes      string    `bson:"notes,omitempty"`
	GradedBy   string    `bson:"graded_by"`
	AnsweredAt time.Time `bson:"answered_at"`
}

func toDocument(s *interview.Session) document {
	turns := make([]turnDocument, 0, len(s.Turns))
	for _, t := range s.Turns {
		turns = append(turns, turnDocument{
			Question:   t.Question,
			Answer:     t.Answer,
			Score:      t.Score,
			Notes:      t.Notes,
			GradedBy:   string(t.GradedBy),
			AnsweredAt: t.AnsweredAt,
		})
	}

	return document{
		ID:          s.ID,
		JobID:       s.JobID,
		CandidateID: s.CandidateID,
		Job: jobDocument{
			Title:          s.Job.Title,
			Description:    s.Job.Description,
			RequiredSkills: s.Job.RequiredSkills,
		},
		Status:          string(s.Status),
		Turns:           turns,
		CurrentQuestion: s.CurrentQuestion,
		MaxQuestions:    s.MaxQuestions,
		Version:         s.Version,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

func (d document) toSession() *interview.Session {
	turns := make([]interview.Turn, 0, len(d.Turns))
	for _, t := range d.Turns {
		turns = append(turns, interview.Turn{
			Question:   t.Question,
			Answer:     t.Answer,
			Score:      t.Score,
			Notes:      t.Notes,
			GradedBy:   interview.GradedBy(t.GradedBy),
			AnsweredAt: t.AnsweredAt.UTC(),
		})
	}

	return &interview.Session{
		ID:          d.ID,
		JobID:       d.JobID,
		CandidateID: d.CandidateID,
		Job: interview.Job{
			ID:             d.JobID,
			Title:          d.Job.Title,
			Description:    d.Job.Description,
			RequiredSkills: d.Job.RequiredSkills,
		},
		Status:          interview.Status(d.Status),
		Turns:           turns,
		CurrentQuestion: d.CurrentQuestion,
		MaxQuestions:    d.MaxQuestions,
		Version:         d.Version,
		CreatedAt:       d.CreatedAt.UTC(),
		UpdatedAt:       d.UpdatedAt.UTC(),
	}
}
