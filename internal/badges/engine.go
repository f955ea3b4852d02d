// Package badges evaluates achievement rules against a quiz result and the
// user's prior progress.
package badges

import (
	"time"

	"training-quiz-service/internal/domain"
)

// Engine evaluates an ordered rule list.
type Engine struct {
	catalog  Catalog
	rules    []Rule
	location *time.Location
}

// NewEngine builds an engine. A nil location means UTC.
func NewEngine(catalog Catalog, rules []Rule, location *time.Location) *Engine {
	if location == nil {
		location = time.UTC
	}
	return &Engine{catalog: catalog, rules: rules, location: location}
}

// Catalog returns the engine's badge catalog.
func (e *Engine) Catalog() Catalog {
	return e.catalog
}

// Evaluate returns badges newly earned by result. Rules run against one
// snapshot; ids missing from the catalog, repeated, or already held by the
// user are dropped.
func (e *Engine) Evaluate(result domain.QuizResult, prior domain.UserProgress, moduleID string, now time.Time) []domain.Badge {
	snap := Snapshot{
		Result:   result,
		Prior:    prior,
		ModuleID: moduleID,
		Now:      now.In(e.location),
	}

	candidates := make([]string, 0, len(e.rules))
	for _, rule := range e.rules {
		if rule.Applies != nil && rule.Applies(snap) {
			candidates = append(candidates, rule.BadgeID)
		}
	}

	earned := make([]domain.Badge, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, id := range candidates {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		badge, ok := e.catalog[id]
		if !ok || prior.HasBadge(id) {
			continue
		}
		earned = append(earned, badge)
	}
	return earned
}

// IDs extracts badge ids.
func IDs(badges []domain.Badge) []string {
	ids := make([]string, 0, len(badges))
	for _, b := range badges {
		ids = append(ids, b.ID)
	}
	return ids
}
