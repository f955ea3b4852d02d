package badges

import (
	"testing"
	"time"

	"training-quiz-service/internal/domain"
)

var noon = time.Date(2024, 5, 6, 12, 0, 0, 0, time.UTC)

func newTestEngine() *Engine {
	return NewEngine(DefaultCatalog(), DefaultRules(DefaultRuleConfig()), time.UTC)
}

func ids(badges []domain.Badge) map[string]bool {
	out := map[string]bool{}
	for _, b := range badges {
		out[b.ID] = true
	}
	return out
}

func TestPerfectFastQuizIsEligibleForPerfectionistAndSpeedDemon(t *testing.T) {
	result := domain.QuizResult{ModuleID: "privacy", Completed: true, Score: 600, Percentage: 100, TimeSpent: 2 * time.Minute}
	prior := domain.UserProgress{CompletedModules: []string{"ethics"}}

	got := ids(newTestEngine().Evaluate(result, prior, "privacy", noon))
	if !got[Perfectionist] || !got[SpeedDemon] {
		t.Fatalf("expected perfectionist and speed demon, got %v", got)
	}
	if got[FirstModule] {
		t.Fatalf("first module must not apply when modules were completed before")
	}
}

func TestNewUserFirstModuleWithoutExpert(t *testing.T) {
	result := domain.QuizResult{ModuleID: "privacy", Completed: true, Score: 300, Percentage: 60, TimeSpent: 45 * time.Minute}

	got := ids(newTestEngine().Evaluate(result, domain.UserProgress{}, "privacy", noon))
	if !got[FirstModule] {
		t.Fatalf("expected first module badge, got %v", got)
	}
	if got[Expert] || got[Perfectionist] || got[SpeedDemon] {
		t.Fatalf("unexpected badges for 60%% result: %v", got)
	}
}

func TestComebackKingOnImprovedScore(t *testing.T) {
	prior := domain.UserProgress{
		CompletedModules: []string{"privacy"},
		Modules: map[string]domain.ModuleProgress{
			"privacy": {ModuleID: "privacy", Completed: true, BestScore: 700, Attempts: 1},
		},
	}
	result := domain.QuizResult{ModuleID: "privacy", Completed: true, Score: 850, Percentage: 85, TimeSpent: time.Hour}

	got := ids(newTestEngine().Evaluate(result, prior, "privacy", noon))
	if !got[ComebackKing] {
		t.Fatalf("expected comeback king, got %v", got)
	}

	result.Score = 700
	if ids(newTestEngine().Evaluate(result, prior, "privacy", noon))[ComebackKing] {
		t.Fatalf("equal score must not count as a comeback")
	}
}

func TestHeldBadgesAreNeverReturned(t *testing.T) {
	prior := domain.UserProgress{
		Badges: []domain.BadgeRecord{{BadgeID: Perfectionist}, {BadgeID: SpeedDemon}, {BadgeID: FirstModule}},
	}
	result := domain.QuizResult{ModuleID: "privacy", Completed: true, Score: 600, Percentage: 100, TimeSpent: time.Minute}

	got := ids(newTestEngine().Evaluate(result, prior, "privacy", noon))
	for _, held := range []string{Perfectionist, SpeedDemon, FirstModule} {
		if got[held] {
			t.Fatalf("held badge %s returned again", held)
		}
	}
}

func TestTimeOfDayBadges(t *testing.T) {
	result := domain.QuizResult{ModuleID: "m", Completed: true, Percentage: 50, TimeSpent: time.Hour}
	cases := []struct {
		hour  int
		night bool
		early bool
	}{
		{23, true, false},
		{0, true, false},
		{5, true, false},
		{6, false, true},
		{8, false, true},
		{9, false, false},
		{22, false, false},
	}
	for _, tc := range cases {
		at := time.Date(2024, 5, 6, tc.hour, 30, 0, 0, time.UTC)
		got := ids(newTestEngine().Evaluate(result, domain.UserProgress{CompletedModules: []string{"x"}}, "m", at))
		if got[NightOwl] != tc.night || got[EarlyBird] != tc.early {
			t.Fatalf("hour %d: night=%v early=%v", tc.hour, got[NightOwl], got[EarlyBird])
		}
	}
}

func TestLocalHourUsesConfiguredLocation(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	engine := NewEngine(DefaultCatalog(), DefaultRules(DefaultRuleConfig()), loc)
	result := domain.QuizResult{ModuleID: "m", Completed: true, TimeSpent: time.Hour}

	// 02:00 UTC is 07:00 at UTC+5
	got := ids(engine.Evaluate(result, domain.UserProgress{CompletedModules: []string{"x"}}, "m", time.Date(2024, 5, 6, 2, 0, 0, 0, time.UTC)))
	if !got[EarlyBird] || got[NightOwl] {
		t.Fatalf("expected early bird in local time, got %v", got)
	}
}

func TestModuleSpecificBadge(t *testing.T) {
	result := domain.QuizResult{ModuleID: "leadership", Completed: true, Percentage: 75, TimeSpent: time.Hour}
	prior := domain.UserProgress{CompletedModules: []string{"x"}}

	if !ids(newTestEngine().Evaluate(result, prior, "leadership", noon))[LeadershipMaster] {
		t.Fatalf("expected leadership badge at 75%%")
	}
	result.Percentage = 74
	if ids(newTestEngine().Evaluate(result, prior, "leadership", noon))[LeadershipMaster] {
		t.Fatalf("leadership badge granted below threshold")
	}
	result.Percentage = 90
	if ids(newTestEngine().Evaluate(result, prior, "privacy", noon))[LeadershipMaster] {
		t.Fatalf("leadership badge granted for another module")
	}
}

func TestExpertNeedsTwoOtherStrongModules(t *testing.T) {
	prior := domain.UserProgress{
		CompletedModules: []string{"a", "b", "c"},
		Modules: map[string]domain.ModuleProgress{
			"a": {ModuleID: "a", Completed: true, BestPercentage: 90, Attempts: 1},
			"b": {ModuleID: "b", Completed: true, BestPercentage: 80, Attempts: 1},
			"c": {ModuleID: "c", Completed: true, BestPercentage: 88, Attempts: 1},
		},
	}
	result := domain.QuizResult{ModuleID: "c", Completed: true, Percentage: 95, Score: 100, TimeSpent: time.Hour}

	// only "a" qualifies once the current module is excluded
	if ids(newTestEngine().Evaluate(result, prior, "c", noon))[Expert] {
		t.Fatalf("expert granted with a single other strong module")
	}

	result.ModuleID = "d"
	if !ids(newTestEngine().Evaluate(result, prior, "d", noon))[Expert] {
		t.Fatalf("expected expert with two other strong modules")
	}
}

func TestUnknownCatalogIDsAndDuplicatesAreDropped(t *testing.T) {
	rules := []Rule{
		{BadgeID: "not-in-catalog", Applies: func(Snapshot) bool { return true }},
		{BadgeID: Perfectionist, Applies: func(Snapshot) bool { return true }},
		{BadgeID: Perfectionist, Applies: func(Snapshot) bool { return true }},
	}
	got := NewEngine(DefaultCatalog(), rules, nil).Evaluate(domain.QuizResult{}, domain.UserProgress{}, "m", noon)
	if len(got) != 1 || got[0].ID != Perfectionist {
		t.Fatalf("expected only perfectionist once, got %+v", got)
	}
}
