package scoring

import (
	"math"
	"time"

	"training-quiz-service/internal/domain"
)

// Config holds the scoring constants.
type Config struct {
	DefaultPoints       int           // points for a question that sets none
	SpeedBonus          int           // added when a correct answer is fast
	FastAnswerThreshold time.Duration // answers strictly faster than this earn the bonus
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		DefaultPoints:       100,
		SpeedBonus:          20,
		FastAnswerThreshold: 10 * time.Second,
	}
}

// Engine scores a set of answers against their questions.
type Engine struct {
	config Config
}

// NewEngine creates a scoring engine. Zero fields fall back to DefaultConfig.
func NewEngine(config Config) *Engine {
	defaults := DefaultConfig()
	if config.DefaultPoints <= 0 {
		config.DefaultPoints = defaults.DefaultPoints
	}
	if config.SpeedBonus < 0 {
		config.SpeedBonus = 0
	}
	if config.FastAnswerThreshold < 0 {
		config.FastAnswerThreshold = 0
	}
	return &Engine{config: config}
}

// Config returns the engine's effective configuration.
func (e *Engine) Config() Config {
	return e.config
}

// Score is pure: it reads only the questions and the captured answers.
// Unanswered questions count as incorrect and earn nothing.
func (e *Engine) Score(questions []domain.Question, answers map[string]domain.Answer) domain.Score {
	result := domain.Score{
		Total:    len(questions),
		Outcomes: make([]domain.QuestionOutcome, 0, len(questions)),
	}
	for _, q := range questions {
		outcome := domain.QuestionOutcome{QuestionID: q.ID}
		answer, ok := answers[q.ID]
		if ok {
			outcome.Answered = true
			outcome.Correct = IsCorrect(q, answer)
		}
		if outcome.Correct {
			points := q.Points
			if points <= 0 {
				points = e.config.DefaultPoints
			}
			if answer.TimeToAnswer < e.config.FastAnswerThreshold {
				points += e.config.SpeedBonus
				outcome.SpeedBonus = true
			}
			outcome.Points = points
			result.Correct++
			result.Points += points
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}
	result.Percentage = Percentage(result.Correct, result.Total)
	return result
}

// Percentage is round(100*correct/total), with zero questions defined as 0%.
func Percentage(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(correct) / float64(total)))
}

// IsCorrect compares an answer with the question's key by value: the set of
// chosen option ids must equal the set flagged correct, regardless of order.
func IsCorrect(q domain.Question, a domain.Answer) bool {
	if q.EffectiveKind() == domain.KindBoolean {
		return q.BoolAnswer != nil && a.Value != nil && *q.BoolAnswer == *a.Value
	}

	want := make(map[string]struct{})
	for _, opt := range q.Options {
		if opt.Correct {
			want[opt.ID] = struct{}{}
		}
	}
	got := make(map[string]struct{}, len(a.OptionIDs))
	for _, id := range a.OptionIDs {
		got[id] = struct{}{}
	}
	if len(want) == 0 || len(got) != len(want) {
		return false
	}
	for id := range got {
		if _, ok := want[id]; !ok {
			return false
		}
	}
	return true
}
