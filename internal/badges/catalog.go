package badges

import (
	"sort"

	"training-quiz-service/internal/domain"
)

const (
	FirstModule      = "first-module"
	Perfectionist    = "perfectionist"
	SpeedDemon       = "speed-demon"
	NightOwl         = "night-owl"
	EarlyBird        = "early-bird"
	LeadershipMaster = "leadership-master"
	Expert           = "expert"
	ComebackKing     = "comeback-king"
)

// Catalog is the static, read-only badge catalog keyed by badge id.
type Catalog map[string]domain.Badge

// DefaultCatalog returns the built-in badges.
func DefaultCatalog() Catalog {
	return Catalog{
		FirstModule: {
			ID: FirstModule, Name: "First Steps", Description: "Complete your first training module",
			Icon: "flag", Rarity: domain.RarityCommon, Category: "milestone",
		},
		Perfectionist: {
			ID: Perfectionist, Name: "Perfectionist", Description: "Score 100% on a quiz",
			Icon: "star", Rarity: domain.RarityRare, Category: "performance",
		},
		SpeedDemon: {
			ID: SpeedDemon, Name: "Speed Demon", Description: "Finish a quiz in under 30 minutes",
			Icon: "bolt", Rarity: domain.RarityCommon, Category: "performance",
		},
		NightOwl: {
			ID: NightOwl, Name: "Night Owl", Description: "Complete a quiz between 11pm and 6am",
			Icon: "moon", Rarity: domain.RarityRare, Category: "habit",
		},
		EarlyBird: {
			ID: EarlyBird, Name: "Early Bird", Description: "Complete a quiz between 6am and 9am",
			Icon: "sunrise", Rarity: domain.RarityRare, Category: "habit",
		},
		LeadershipMaster: {
			ID: LeadershipMaster, Name: "Leadership Master", Description: "Score at least 75% on the leadership module",
			Icon: "crown", Rarity: domain.RarityEpic, Category: "module",
		},
		Expert: {
			ID: Expert, Name: "Expert", Description: "Score 85% or more on three different modules",
			Icon: "medal", Rarity: domain.RarityEpic, Category: "mastery",
		},
		ComebackKing: {
			ID: ComebackKing, Name: "Comeback King", Description: "Beat your previous best score on a module",
			Icon: "arrow-up", Rarity: domain.RarityLegendary, Category: "growth",
		},
	}
}

// List returns catalog entries sorted by id.
func (c Catalog) List() []domain.Badge {
	out := make([]domain.Badge, 0, len(c))
	for _, b := range c {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
