package scorer

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/hh-interviewer/internal/ai"
	"github.com/spigell/hh-interviewer/internal/interview"
	"github.com/spigell/hh-interviewer/internal/logger"
	"github.com/spigell/hh-interviewer/internal/metrics"
	"github.com/spigell/hh-interviewer/internal/utils"
)

const (
	component = "scorer"

	// HeuristicPrefix starts the notes of every heuristic assessment.
	HeuristicPrefix = "heuristic fallback:"

	// runesPerPoint is how many answer characters earn one heuristic point.
	runesPerPoint = 50

	defaultTimeout      = 20 * time.Second
	defaultMaxLogLength = 200
)

const (
	reasonDisabled = "disabled"
	reasonTimeout  = "timeout"
	reasonError    = "error"
	reasonParse    = "parse"
	reasonScore    = "invalid_score"
)

//go:embed prompt.md
var promptTemplate string

type Options struct {
	Timeout      time.Duration
	MaxLogLength int
	Logger       *zap.Logger
}

// Scorer grades answers through a provider, with a length heuristic behind it.
type Scorer struct {
	provider  ai.Provider
	timeout   time.Duration
	maxLogLen int
	logger    *zap.Logger
}

var _ interview.AnswerScorer = (*Scorer)(nil)

// New builds a Scorer. A nil provider means every answer is graded by the heuristic.
func New(provider ai.Provider, opts Options) *Scorer {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxLogLen := opts.MaxLogLength
	if maxLogLen <= 0 {
		maxLogLen = defaultMaxLogLength
	}

	log := logger.WithFields(opts.Logger, zap.String("component", component))
	if provider != nil {
		log = logger.WithCommonFields(log, provider.Name(), provider.Model())
	}

	return &Scorer{
		provider:  provider,
		timeout:   timeout,
		maxLogLen: maxLogLen,
		logger:    log,
	}
}

// Score never fails: provider trouble of any kind yields Heuristic(answer).
func (s *Scorer) Score(ctx context.Context, question, answer string) interview.Assessment {
	if s.provider == nil {
		return s.fallback(answer, reasonDisabled, nil)
	}

	prompt := buildPrompt(question, answer)

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	s.logger.Debug("answer scoring request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, s.maxLogLen)),
	)

	raw, err := s.provider.GenerateContent(callCtx, prompt)
	if err != nil {
		metrics.ProviderCall(component, metrics.OutcomeError)
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return s.fallback(answer, reasonTimeout, err)
		}
		return s.fallback(answer, reasonError, err)
	}
	metrics.ProviderCall(component, metrics.OutcomeOK)

	s.logger.Debug("answer scoring response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, s.maxLogLen)),
	)

	assessment, err := parseResponse(raw)
	if err != nil {
		reason := reasonParse
		if errors.Is(err, errInvalidScore) {
			reason = reasonScore
		}
		return s.fallback(answer, reason, err)
	}

	return assessment
}

func (s *Scorer) fallback(answer, reason string, err error) interview.Assessment {
	metrics.ProviderFallback(component, reason)
	fields := []zap.Field{zap.String("reason", reason)}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	if reason == reasonDisabled {
		s.logger.Debug("using heuristic score", fields...)
	} else {
		s.logger.Warn("using heuristic score", fields...)
	}
	return Heuristic(answer)
}

// Heuristic scores the trimmed answer by length: one point per 50 runes,
// rounded, capped at 10.
func Heuristic(answer string) interview.Assessment {
	length := utf8.RuneCountInString(strings.TrimSpace(answer))
	score := interview.ClampScore(float64(length) / runesPerPoint)

	var notes string
	switch {
	case length == 0:
		notes = fmt.Sprintf("%s empty answer", HeuristicPrefix)
	default:
		notes = fmt.Sprintf("%s graded by answer length (%d chars)", HeuristicPrefix, length)
	}

	return interview.Assessment{
		Score:    score,
		Notes:    notes,
		GradedBy: interview.GradedByHeuristic,
	}
}

var errInvalidScore = errors.New("missing or invalid score")

func parseResponse(raw string) (interview.Assessment, error) {
	data, err := ai.DecodeObject(raw)
	if err != nil {
		return interview.Assessment{}, err
	}

	score := ai.CoerceFloat(data["score"])
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return interview.Assessment{}, fmt.Errorf("%w: %v", errInvalidScore, data["score"])
	}

	notes := utils.SingleLine(ai.CoerceString(data["notes"]))

	return interview.Assessment{
		Score:    interview.ClampScore(score),
		Notes:    utils.TruncateRunes(notes, interview.MaxNotesLength),
		GradedBy: interview.GradedByProvider,
	}, nil
}

func buildPrompt(question, answer string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Question:\n{{QUESTION}}\n\nAnswer:\n{{ANSWER}}\n\nJSON Response:"
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		answer = "(no answer given)"
	}

	replacer := strings.NewReplacer(
		"{{QUESTION}}", strings.TrimSpace(question),
		"{{ANSWER}}", answer,
	)
	return replacer.Replace(template)
}
