package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"training-quiz-service/internal/app"
	"training-quiz-service/internal/domain"
)

func TestJanitorRejectsBadSchedule(t *testing.T) {
	env := newTestEnv(t, nil)
	if err := app.NewJanitor(env.service, "not a schedule", time.Minute, time.Minute).Start(); err == nil {
		t.Fatalf("expected schedule parse error")
	}
}

func TestJanitorSweepsOnSchedule(t *testing.T) {
	env := newTestEnv(t, []app.Option{app.WithClock(time.Now)})
	view, err := env.service.StartSession(context.Background(), "u1", "privacy")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	janitor := app.NewJanitor(env.service, "@every 1s", time.Nanosecond, time.Nanosecond)
	if err := janitor.Start(); err != nil {
		t.Fatalf("start janitor: %v", err)
	}
	defer janitor.Stop()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := env.service.Session(context.Background(), view.ID); errors.Is(err, domain.ErrSessionNotFound) {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("janitor never swept the idle session")
}
