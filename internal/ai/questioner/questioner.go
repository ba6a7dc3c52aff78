package questioner

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
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
	component = "questioner"

	// MaxQuestionLength bounds every question handed to the engine.
	MaxQuestionLength = 180

	defaultTimeout      = 20 * time.Second
	defaultMaxLogLength = 200
)

// Fallback reasons reported to metrics and logs.
const (
	reasonDisabled = "disabled"
	reasonTimeout  = "timeout"
	reasonError    = "error"
	reasonParse    = "parse"
	reasonEmpty    = "empty"
)

//go:embed prompt.md
var promptTemplate string

type Options struct {
	Timeout      time.Duration
	MaxLogLength int
	Logger       *zap.Logger
}

// Generator asks a provider for the next interview question and falls back
// to a deterministic question when the provider cannot help.
type Generator struct {
	provider  ai.Provider
	timeout   time.Duration
	maxLogLen int
	logger    *zap.Logger
}

var _ interview.QuestionGenerator = (*Generator)(nil)

// New builds a Generator. A nil provider means every question comes from the fallback.
func New(provider ai.Provider, opts Options) *Generator {
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

	return &Generator{
		provider:  provider,
		timeout:   timeout,
		maxLogLen: maxLogLen,
		logger:    log,
	}
}

// Next returns the next question, or ok=false when the provider decided the
// interview is over. The fallback path never terminates.
func (g *Generator) Next(ctx context.Context, qc interview.QuestionContext) (string, bool) {
	if g.provider == nil {
		return g.fallback(qc, reasonDisabled, nil), true
	}

	prompt, err := buildPrompt(qc)
	if err != nil {
		return g.fallback(qc, reasonError, err), true
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	g.logger.Debug("question generation request",
		zap.Int("transcript_length", len(qc.Transcript)),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, g.maxLogLen)),
	)

	raw, err := g.provider.GenerateContent(callCtx, prompt)
	if err != nil {
		metrics.ProviderCall(component, metrics.OutcomeError)
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return g.fallback(qc, reasonTimeout, err), true
		}
		return g.fallback(qc, reasonError, err), true
	}
	metrics.ProviderCall(component, metrics.OutcomeOK)

	g.logger.Debug("question generation response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, g.maxLogLen)),
	)

	data, err := ai.DecodeObject(raw)
	if err != nil {
		return g.fallback(qc, reasonParse, err), true
	}

	if ai.CoerceBool(data["done"]) {
		g.logger.Debug("provider ended the interview", zap.Int("transcript_length", len(qc.Transcript)))
		return "", false
	}

	question := Clean(ai.CoerceString(data["question"]))
	if question == "" {
		return g.fallback(qc, reasonEmpty, nil), true
	}

	return question, true
}

func (g *Generator) fallback(qc interview.QuestionContext, reason string, err error) string {
	metrics.ProviderFallback(component, reason)
	fields := []zap.Field{zap.String("reason", reason)}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	if reason == reasonDisabled {
		g.logger.Debug("using fallback question", fields...)
	} else {
		g.logger.Warn("using fallback question", fields...)
	}
	return Fallback(qc)
}

// Fallback is the deterministic question for qc. Follow-ups rotate through
// the required skills by turn number.
func Fallback(qc interview.QuestionContext) string {
	skills := nonEmpty(qc.Job.RequiredSkills)
	n := len(qc.Transcript)

	if n > 0 && qc.Transcript[n-1].Answered {
		if len(skills) == 0 {
			return Clean("Could you elaborate on the architecture and trade-offs behind that answer, and how you measured the result?")
		}
		skill := skills[(n-1)%len(skills)]
		return fillTemplate("Could you elaborate on the architecture and trade-offs behind that answer, especially where %s was involved?", skill)
	}

	if len(skills) > 0 {
		return fillTemplate("Can you walk me through a recent project where you relied on %s and what your role was?", skills[0])
	}

	title := strings.TrimSpace(qc.Job.Title)
	if title == "" {
		title = "this role"
	}
	return fillTemplate("What do you see as the core competencies for %s, and where have you applied them?", title)
}

// fillTemplate shortens subject so the formatted question fits
// MaxQuestionLength with the template text intact.
func fillTemplate(template, subject string) string {
	subject = utils.SingleLine(subject)
	room := MaxQuestionLength - (utf8.RuneCountInString(template) - len("%s"))
	return Clean(fmt.Sprintf(template, utils.TruncateRunes(subject, room)))
}

// Clean forces a provider reply into one single-focus question: one line,
// nothing after the first question mark, at most MaxQuestionLength runes.
func Clean(question string) string {
	question = utils.SingleLine(question)
	question = strings.Trim(question, "\"'` ")
	if idx := strings.Index(question, "?"); idx != -1 {
		question = question[:idx+1]
	}
	if utf8.RuneCountInString(question) <= MaxQuestionLength {
		return question
	}
	return utils.TruncateRunes(question, MaxQuestionLength-1) + "?"
}

type exchange struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

func buildPrompt(qc interview.QuestionContext) (string, error) {
	transcript := make([]exchange, 0, len(qc.Transcript))
	for _, e := range qc.Transcript {
		transcript = append(transcript, exchange{Question: e.Question, Answer: e.Answer})
	}
	transcriptJSON, err := json.MarshalIndent(transcript, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal transcript: %w", err)
	}

	skills := strings.Join(nonEmpty(qc.Job.RequiredSkills), ", ")
	if skills == "" {
		skills = "(none listed)"
	}

	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Job: {{JOB_TITLE}}\n{{JOB_DESCRIPTION}}\nSkills: {{REQUIRED_SKILLS}}\nTranscript:\n{{TRANSCRIPT_JSON}}\n\nJSON Response:"
	}

	replacer := strings.NewReplacer(
		"{{JOB_TITLE}}", strings.TrimSpace(qc.Job.Title),
		"{{JOB_DESCRIPTION}}", strings.TrimSpace(qc.Job.Description),
		"{{REQUIRED_SKILLS}}", skills,
		"{{TRANSCRIPT_JSON}}", string(transcriptJSON),
	)
	return replacer.Replace(template), nil
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
