package reasoning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"intervu/interview/internal/llm"
	"intervu/interview/internal/models"
	"intervu/interview/internal/prompts"
	"intervu/interview/internal/utils"
)

// Action is the moderation verdict on a candidate answer.
type Action string

const (
	ActionNextStep Action = "next_step"
	ActionConfirm  Action = "confirm"
	ActionProceed  Action = "proceed"
)

// Decision is the outcome of moderating one answer.
type Decision struct {
	Action      Action
	Explanation string
}

// Grade is the outcome of grading one answer.
type Grade struct {
	Correct  bool
	Feedback string
}

// NextQuestion is one generated interview question.
type NextQuestion struct {
	Question        string
	Section         string
	DifficultyLevel int
}

// Gateway is a stateless facade over the LLM provider for the three
// reasoning tasks. Every call is bounded by a timeout, and any parse or
// provider failure resolves to the task's conservative default instead of an
// error. The session must keep moving no matter what the model returns.
type Gateway struct {
	provider llm.Provider
	prompts  prompts.PromptProvider
	timeout  time.Duration
	logger   *zap.Logger
}

func NewGateway(provider llm.Provider, promptManager prompts.PromptProvider, timeout time.Duration, logger *zap.Logger) *Gateway {
	return &Gateway{
		provider: provider,
		prompts:  promptManager,
		timeout:  timeout,
		logger:   logger,
	}
}

// Moderate classifies the answer against the question. On any failure the
// verdict is confirm: an answer is never silently dropped or silently graded.
func (g *Gateway) Moderate(ctx context.Context, question, answer string) Decision {
	fallback := Decision{
		Action:      ActionConfirm,
		Explanation: "I am sorry, but I could not process that",
	}

	raw, err := g.generate(ctx, "moderate", map[string]string{
		"Question": question,
		"Answer":   answer,
	})
	if err != nil {
		g.logger.Warn("moderation call failed, falling back to confirm", zap.Error(err))
		return fallback
	}

	var parsed struct {
		Action      string `json:"action"`
		Explanation string `json:"explanation"`
	}
	if !utils.ExtractJSON(raw, &parsed) {
		g.logger.Warn("moderation response unparseable, falling back to confirm",
			zap.String("raw", truncate(raw, 200)))
		return fallback
	}

	switch Action(strings.ToLower(strings.TrimSpace(parsed.Action))) {
	case ActionNextStep:
		return Decision{Action: ActionNextStep, Explanation: parsed.Explanation}
	case ActionProceed:
		return Decision{Action: ActionProceed, Explanation: parsed.Explanation}
	case ActionConfirm:
		if parsed.Explanation != "" {
			fallback.Explanation = parsed.Explanation
		}
		return fallback
	default:
		return fallback
	}
}

// GradeAnswer evaluates the answer for correctness and short feedback. On any
// failure the answer is graded incorrect with no feedback so the session can
// continue.
func (g *Gateway) GradeAnswer(ctx context.Context, question, answer string, difficulty int, section, resumeProfile string) Grade {
	fallback := Grade{Correct: false, Feedback: "No feedback available"}

	raw, err := g.generate(ctx, "grade", map[string]string{
		"Question":   question,
		"Answer":     answer,
		"Difficulty": fmt.Sprintf("%d", difficulty),
		"Section":    section,
		"Resume":     resumeProfile,
	})
	if err != nil {
		g.logger.Warn("grading call failed, defaulting to incorrect", zap.Error(err))
		return fallback
	}

	var parsed struct {
		Correct    flexBool `json:"correct"`
		AIFeedback string   `json:"aiFeedback"`
	}
	if !utils.ExtractJSON(raw, &parsed) {
		g.logger.Warn("grading response unparseable, defaulting to incorrect",
			zap.String("raw", truncate(raw, 200)))
		return fallback
	}

	feedback := strings.TrimSpace(parsed.AIFeedback)
	if feedback == "" {
		feedback = fallback.Feedback
	}
	return Grade{Correct: bool(parsed.Correct), Feedback: feedback}
}

// GenerateQuestion asks for the next question given the resume profile and
// full turn history. If no structured fields are recoverable, the raw model
// text is used as the literal question.
func (g *Gateway) GenerateQuestion(ctx context.Context, resumeProfile, history string, remainingMin float64, durationMin, difficulty int) NextQuestion {
	fallback := NextQuestion{
		Question:        "Tell me more about your most recent project.",
		Section:         models.SectionSkills,
		DifficultyLevel: difficulty,
	}

	raw, err := g.generate(ctx, "generate", map[string]string{
		"Resume":     resumeProfile,
		"History":    history,
		"Remaining":  fmt.Sprintf("%.2f", remainingMin),
		"Duration":   fmt.Sprintf("%d", durationMin),
		"Difficulty": fmt.Sprintf("%d", difficulty),
	})
	if err != nil {
		g.logger.Warn("question generation failed, using fallback question", zap.Error(err))
		return fallback
	}

	var parsed struct {
		Question        string  `json:"question"`
		Section         string  `json:"section"`
		DifficultyLevel flexInt `json:"difficultyLevel"`
	}
	if !utils.ExtractJSON(raw, &parsed) || strings.TrimSpace(parsed.Question) == "" {
		// treat the raw text as the literal next question
		if text := utils.StripCodeFences(raw); text != "" {
			fallback.Question = text
		}
		return fallback
	}

	next := NextQuestion{
		Question:        strings.TrimSpace(parsed.Question),
		Section:         strings.TrimSpace(parsed.Section),
		DifficultyLevel: int(parsed.DifficultyLevel),
	}
	if !models.ValidSections[next.Section] {
		next.Section = fallback.Section
	}
	if next.DifficultyLevel < models.MinDifficulty || next.DifficultyLevel > models.MaxDifficulty {
		next.DifficultyLevel = difficulty
	}
	return next
}

// Greeting produces the opening utterance plus introduction question.
func (g *Gateway) Greeting(ctx context.Context, name string) string {
	fallback := fmt.Sprintf("Hello %s, please introduce yourself briefly?", name)

	raw, err := g.generate(ctx, "greeting", map[string]string{"Name": name})
	if err != nil {
		g.logger.Warn("greeting call failed, using canned greeting", zap.Error(err))
		return fallback
	}
	if text := strings.TrimSpace(utils.StripCodeFences(raw)); text != "" {
		return text
	}
	return fallback
}

func (g *Gateway) generate(ctx context.Context, mode string, data map[string]string) (string, error) {
	prompt, err := g.prompts.BuildPrompt(mode, data)
	if err != nil {
		return "", err
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	return g.provider.GenerateText(callCtx, prompt)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
