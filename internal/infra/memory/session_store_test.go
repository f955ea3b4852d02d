package memory

import (
	"context"
	"testing"
	"time"

	"training-quiz-service/internal/app"
	"training-quiz-service/internal/badges"
	"training-quiz-service/internal/domain"
	"training-quiz-service/internal/progress"
	"training-quiz-service/internal/scoring"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()
	quizzes := NewQuizRepository(NewStaticQuizLoader(map[string]domain.ModuleQuiz{"privacy": sampleQuiz()}), time.Minute)
	service := app.NewQuizService(store, quizzes,
		progress.NewStore(NewProgressRepository()),
		scoring.NewEngine(scoring.DefaultConfig()),
		badges.NewEngine(badges.DefaultCatalog(), badges.DefaultRules(badges.DefaultRuleConfig()), time.UTC),
	)

	view, err := service.StartSession(context.Background(), "u1", "privacy")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	session, ok := store.Get(view.ID)
	if !ok || session.UserID() != "u1" {
		t.Fatalf("expected session present")
	}
	if got := len(store.List()); got != 1 {
		t.Fatalf("expected 1 listed session, got %d", got)
	}

	store.Delete(view.ID)
	if _, ok := store.Get(view.ID); ok {
		t.Fatalf("expected session removed")
	}
}
