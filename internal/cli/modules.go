package cli

import "training-quiz-service/internal/domain"

// sampleModules is the built-in catalog served when no Postgres loader is
// configured, and the data inserted by `migrate --seed`.
func sampleModules() []domain.ModuleQuiz {
	yes, no := true, false
	return []domain.ModuleQuiz{
		{
			ModuleID:            "privacy",
			Title:               "Data Privacy Essentials",
			TimeLimitSeconds:    600,
			PassingScorePercent: 70,
			Questions: []domain.Question{
				{
					ID: "privacy-1", Kind: domain.KindSingle, Points: 100,
					Prompt: "Which of these counts as personal data?",
					Options: []domain.Option{
						{ID: "a", Text: "An employee's home address", Correct: true},
						{ID: "b", Text: "The office opening hours"},
						{ID: "c", Text: "A public product price list"},
					},
					Explanation: "Any information relating to an identifiable person is personal data.",
				},
				{
					ID: "privacy-2", Kind: domain.KindMulti, Points: 100,
					Prompt: "Which actions reduce the risk of a data breach?",
					Options: []domain.Option{
						{ID: "a", Text: "Locking your screen when away", Correct: true},
						{ID: "b", Text: "Sharing passwords with trusted colleagues"},
						{ID: "c", Text: "Encrypting portable devices", Correct: true},
					},
				},
				{
					ID: "privacy-3", Kind: domain.KindBoolean, Points: 100, BoolAnswer: &no,
					Prompt: "It is fine to keep customer data indefinitely in case it becomes useful.",
				},
			},
		},
		{
			ModuleID:            "leadership",
			Title:               "Leading Effective Teams",
			TimeLimitSeconds:    900,
			PassingScorePercent: 75,
			Questions: []domain.Question{
				{
					ID: "leadership-1", Kind: domain.KindSingle, Points: 150,
					Prompt: "What is the main purpose of a one-to-one meeting?",
					Options: []domain.Option{
						{ID: "a", Text: "Reviewing the team's sprint board"},
						{ID: "b", Text: "Supporting the individual's growth and concerns", Correct: true},
						{ID: "c", Text: "Announcing company news"},
					},
				},
				{
					ID: "leadership-2", Kind: domain.KindBoolean, Points: 150, BoolAnswer: &yes,
					Prompt: "Delegating a task includes delegating the authority to complete it.",
				},
				{
					ID: "leadership-3", Kind: domain.KindMulti, Points: 150,
					Prompt: "Which behaviours build psychological safety?",
					Options: []domain.Option{
						{ID: "a", Text: "Admitting your own mistakes", Correct: true},
						{ID: "b", Text: "Asking for input before deciding", Correct: true},
						{ID: "c", Text: "Publicly ranking team members"},
					},
				},
			},
		},
		{
			ModuleID: "ethics",
			Title:    "Workplace Ethics",
			Questions: []domain.Question{
				{
					ID: "ethics-1", Kind: domain.KindSingle,
					Prompt: "A supplier offers you an expensive gift during a tender. What do you do?",
					Options: []domain.Option{
						{ID: "a", Text: "Accept it quietly"},
						{ID: "b", Text: "Decline and report it per policy", Correct: true},
						{ID: "c", Text: "Accept and share it with the team"},
					},
				},
				{
					ID: "ethics-2", Kind: domain.KindBoolean, BoolAnswer: &yes,
					Prompt: "Conflicts of interest must be disclosed even when no harm results.",
				},
			},
		},
	}
}
