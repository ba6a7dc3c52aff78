package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/spigell/hh-interviewer/internal/interview"
)

const (
	codeInvalidRequest = "invalid_request"
	codeNotFound       = "not_found"
	codeInvalidState   = "invalid_state"
	codeInternal       = "internal_error"
)

type startRequest struct {
	JobID       string `json:"job_id"`
	CandidateID string `json:"candidate_id"`
}

type startResponse struct {
	SessionID string  `json:"session_id"`
	Question  *string `json:"question"`
	Status    string  `json:"status"`
}

type answerRequest struct {
	Answer *string `json:"answer"`
}

type answerResponse struct {
	NextQuestion *string `json:"next_question"`
	Score        int     `json:"score"`
	Notes        string  `json:"notes"`
	Status       string  `json:"status"`
}

type turnResponse struct {
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	Score      int       `json:"score"`
	Notes      string    `json:"notes"`
	GradedBy   string    `json:"graded_by"`
	AnsweredAt time.Time `json:"answered_at"`
}

type stateResponse struct {
	SessionID       string         `json:"session_id"`
	JobID           string         `json:"job_id"`
	CandidateID     string         `json:"candidate_id"`
	Status          string         `json:"status"`
	CurrentQuestion *string        `json:"current_question"`
	MaxQuestions    int            `json:"max_questions"`
	AverageScore    float64        `json:"average_score"`
	Turns           []turnResponse `json:"turns"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}

	session, created, err := s.interviews.Start(r.Context(), req.JobID, req.CandidateID)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, startResponse{
		SessionID: session.ID,
		Question:  optional(session.CurrentQuestion),
		Status:    string(session.Status),
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	session, err := s.interviews.State(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStateResponse(session))
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}
	if req.Answer == nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "answer is required")
		return
	}

	res, err := s.interviews.SubmitAnswer(r.Context(), chi.URLParam(r, "sessionID"), *req.Answer)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, answerResponse{
		NextQuestion: optional(res.NextQuestion),
		Score:        res.Score,
		Notes:        res.Notes,
		Status:       string(res.Status),
	})
}

func toStateResponse(s *interview.Session) stateResponse {
	turns := make([]turnResponse, 0, len(s.Turns))
	for _, t := range s.Turns {
		turns = append(turns, turnResponse{
			Question:   t.Question,
			Answer:     t.Answer,
			Score:      t.Score,
			Notes:      t.Notes,
			GradedBy:   string(t.GradedBy),
			AnsweredAt: t.AnsweredAt,
		})
	}
	return stateResponse{
		SessionID:       s.ID,
		JobID:           s.JobID,
		CandidateID:     s.CandidateID,
		Status:          string(s.Status),
		CurrentQuestion: optional(s.CurrentQuestion),
		MaxQuestions:    s.MaxQuestions,
		AverageScore:    s.AverageScore(),
		Turns:           turns,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

func (s *Server) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, interview.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
	case errors.Is(err, interview.ErrNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, err.Error())
	case errors.Is(err, interview.ErrInvalidState):
		writeError(w, http.StatusConflict, codeInvalidState, err.Error())
	default:
		s.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return fmt.Errorf("request body exceeds %d bytes", maxBodyBytes)
		case errors.Is(err, io.EOF):
			return errors.New("request body is empty")
		default:
			return fmt.Errorf("invalid json: %w", err)
		}
	}
	if dec.More() {
		return errors.New("request body must contain a single json object")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
