package domain

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateQuiz checks that quiz content can be run as a session. Struct tags
// cover field shape; answer-key rules depend on the question kind.
func ValidateQuiz(quiz ModuleQuiz) error {
	if err := validate.Struct(quiz); err != nil {
		return fmt.Errorf("%w: module %s: %v", ErrValidation, quiz.ModuleID, err)
	}
	seen := make(map[string]struct{}, len(quiz.Questions))
	for _, q := range quiz.Questions {
		if _, dup := seen[q.ID]; dup {
			return fmt.Errorf("%w: duplicate question id %s", ErrValidation, q.ID)
		}
		seen[q.ID] = struct{}{}
		if err := validateAnswerKey(q); err != nil {
			return err
		}
	}
	return nil
}

func validateAnswerKey(q Question) error {
	switch q.EffectiveKind() {
	case KindBoolean:
		if q.BoolAnswer == nil {
			return fmt.Errorf("%w: question %s has no boolean answer", ErrValidation, q.ID)
		}
		return nil
	case KindSingle, KindMulti:
	default:
		return fmt.Errorf("%w: question %s has unknown kind %q", ErrValidation, q.ID, q.Kind)
	}

	if len(q.Options) < 2 {
		return fmt.Errorf("%w: question %s needs at least two options", ErrValidation, q.ID)
	}
	ids := make(map[string]struct{}, len(q.Options))
	correct := 0
	for _, opt := range q.Options {
		if _, dup := ids[opt.ID]; dup {
			return fmt.Errorf("%w: question %s repeats option id %s", ErrValidation, q.ID, opt.ID)
		}
		ids[opt.ID] = struct{}{}
		if opt.Correct {
			correct++
		}
	}
	if correct == 0 {
		return fmt.Errorf("%w: question %s has no correct option", ErrValidation, q.ID)
	}
	if q.EffectiveKind() == KindSingle && correct != 1 {
		return fmt.Errorf("%w: single-choice question %s has %d correct options", ErrValidation, q.ID, correct)
	}
	return nil
}
