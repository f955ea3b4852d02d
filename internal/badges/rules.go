package badges

import (
	"time"

	"training-quiz-service/internal/domain"
)

// Snapshot is the read-only input every rule sees.
type Snapshot struct {
	Result   domain.QuizResult
	Prior    domain.UserProgress
	ModuleID string
	Now      time.Time // already in the user's location
}

// Rule grants BadgeID when Applies holds. Rules are independent: none sees
// another's output.
type Rule struct {
	BadgeID string
	Applies func(Snapshot) bool
}

// ModuleBadge awards BadgeID for a module scored at or above MinPercentage.
type ModuleBadge struct {
	ModuleID      string `yaml:"module"`
	BadgeID       string `yaml:"badge"`
	MinPercentage int    `yaml:"minPercentage"`
}

// RuleConfig tunes the reference thresholds.
type RuleConfig struct {
	SpeedDemonLimit  time.Duration
	ExpertPercentage int
	ExpertOtherCount int
	ModuleBadges     []ModuleBadge
}

// DefaultRuleConfig returns the reference thresholds.
func DefaultRuleConfig() RuleConfig {
	return RuleConfig{
		SpeedDemonLimit:  30 * time.Minute,
		ExpertPercentage: 85,
		ExpertOtherCount: 2,
		ModuleBadges: []ModuleBadge{
			{ModuleID: "leadership", BadgeID: LeadershipMaster, MinPercentage: 75},
		},
	}
}

// DefaultRules builds the reference rule set in evaluation order.
func DefaultRules(cfg RuleConfig) []Rule {
	rules := []Rule{
		{BadgeID: FirstModule, Applies: func(s Snapshot) bool {
			return s.Result.Completed && len(s.Prior.CompletedModules) == 0
		}},
		{BadgeID: Perfectionist, Applies: func(s Snapshot) bool {
			return s.Result.Percentage == 100
		}},
		{BadgeID: SpeedDemon, Applies: func(s Snapshot) bool {
			return s.Result.TimeSpent < cfg.SpeedDemonLimit
		}},
		{BadgeID: NightOwl, Applies: func(s Snapshot) bool {
			h := s.Now.Hour()
			return h >= 23 || h < 6
		}},
		{BadgeID: EarlyBird, Applies: func(s Snapshot) bool {
			h := s.Now.Hour()
			return h >= 6 && h < 9
		}},
	}
	for _, mb := range cfg.ModuleBadges {
		mb := mb
		rules = append(rules, Rule{BadgeID: mb.BadgeID, Applies: func(s Snapshot) bool {
			return s.ModuleID == mb.ModuleID && s.Result.Percentage >= mb.MinPercentage
		}})
	}
	rules = append(rules,
		Rule{BadgeID: Expert, Applies: func(s Snapshot) bool {
			if s.Result.Percentage < cfg.ExpertPercentage {
				return false
			}
			others := 0
			for id, mp := range s.Prior.Modules {
				if id != s.ModuleID && mp.Completed && mp.BestPercentage >= cfg.ExpertPercentage {
					others++
				}
			}
			return others >= cfg.ExpertOtherCount
		}},
		Rule{BadgeID: ComebackKing, Applies: func(s Snapshot) bool {
			mp, ok := s.Prior.Modules[s.ModuleID]
			return ok && mp.Attempts > 0 && s.Result.Score > mp.BestScore
		}},
	)
	return rules
}
