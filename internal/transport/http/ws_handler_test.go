package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"training-quiz-service/internal/app"
	"training-quiz-service/internal/badges"
	"training-quiz-service/internal/domain"
	"training-quiz-service/internal/infra/memory"
	"training-quiz-service/internal/progress"
	"training-quiz-service/internal/random"
	"training-quiz-service/internal/scoring"
)

func TestWebSocketSessionFlow(t *testing.T) {
	server, service := newTestServer(t)

	view, err := service.StartSession(context.Background(), "u1", "quiz-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	u := "ws" + server.URL[len("http"):] + "/ws?sessionId=" + view.ID
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Snapshot first.
	_, payload := readNext(conn, t, "state")
	if payload["state"] != string(domain.StateIntro) {
		t.Fatalf("expected intro snapshot, got %v", payload["state"])
	}

	send(t, conn, map[string]any{"type": "begin"})
	_, payload = readNext(conn, t, "state")
	if payload["state"] != string(domain.StateInProgress) {
		t.Fatalf("expected in-progress, got %v", payload["state"])
	}

	send(t, conn, map[string]any{
		"type":    "answer",
		"payload": map[string]any{"questionId": "q1", "optionIds": []string{"o2"}},
	})
	readNext(conn, t, "state")

	send(t, conn, map[string]any{"type": "submit"})
	sawResult := false
	for i := 0; i < 3 && !sawResult; i++ {
		typ, p := readNext(conn, t, "")
		if typ == "result" {
			sawResult = true
			result, _ := p["result"].(map[string]any)
			if result["percentage"] != float64(100) {
				t.Fatalf("expected 100%%, got %v", result["percentage"])
			}
		}
	}
	if !sawResult {
		t.Fatalf("expected result event")
	}
}

func TestWebSocketReportsCommandErrors(t *testing.T) {
	server, service := newTestServer(t)
	view, err := service.StartSession(context.Background(), "u1", "quiz-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial("ws"+server.URL[len("http"):]+"/ws?sessionId="+view.ID, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	readNext(conn, t, "state")

	send(t, conn, map[string]any{"type": "submit"})
	_, payload := readNext(conn, t, "error")
	if payload["code"] != "session_state" {
		t.Fatalf("expected session_state, got %v", payload["code"])
	}

	send(t, conn, map[string]any{"type": "dance"})
	_, payload = readNext(conn, t, "error")
	if payload["code"] != "validation" {
		t.Fatalf("expected validation, got %v", payload["code"])
	}
}

func TestWebSocketClosesWithSession(t *testing.T) {
	server, service := newTestServer(t)
	view, err := service.StartSession(context.Background(), "u1", "quiz-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial("ws"+server.URL[len("http"):]+"/ws?sessionId="+view.ID, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	readNext(conn, t, "state")

	send(t, conn, map[string]any{"type": "abandon"})
	var msg struct {
		Type string `json:"type"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil || msg.Type != "closed" {
		t.Fatalf("expected closed message, got %q (%v)", msg.Type, err)
	}
}

func TestWebSocketUnknownSession(t *testing.T) {
	server, _ := newTestServer(t)
	_, resp, err := websocket.DefaultDialer.Dial("ws"+server.URL[len("http"):]+"/ws?sessionId=nope", nil)
	if err == nil {
		t.Fatalf("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %+v", resp)
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *app.QuizService) {
	t.Helper()
	sessions := memory.NewSessionStore()
	quizRepo := memory.NewQuizRepository(memory.NewStaticQuizLoader(sampleQuizzes()), time.Minute)
	service := app.NewQuizService(
		sessions,
		quizRepo,
		progress.NewStore(memory.NewProgressRepository()),
		scoring.NewEngine(scoring.DefaultConfig()),
		badges.NewEngine(badges.DefaultCatalog(), badges.DefaultRules(badges.DefaultRuleConfig()), time.UTC),
		app.WithModuleLister(quizRepo),
		app.WithRandom(random.NewRandomizer(1)),
	)
	server := httptest.NewServer(NewRouter(service, nil))
	t.Cleanup(func() {
		server.Close()
		for _, s := range sessions.List() {
			_ = service.Abandon(context.Background(), s.ID())
		}
	})
	return server, service
}

func send(t *testing.T, conn *websocket.Conn, msg map[string]any) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %v: %v", msg["type"], err)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}

func jsonReader(t *testing.T, body any) *bytes.Reader {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return bytes.NewReader(raw)
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", jsonReader(t, body))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return resp
}

func sampleQuizzes() map[string]domain.ModuleQuiz {
	return map[string]domain.ModuleQuiz{
		"quiz-1": {
			ModuleID: "quiz-1",
			Title:    "Arithmetic",
			Questions: []domain.Question{
				{
					ID:     "q1",
					Prompt: "What is 2 + 2?",
					Kind:   domain.KindSingle,
					Options: []domain.Option{
						{ID: "o1", Text: "3"},
						{ID: "o2", Text: "4", Correct: true},
						{ID: "o3", Text: "5"},
					},
				},
			},
		},
		"quiz-2": {
			ModuleID: "quiz-2",
			Title:    "Geography",
			Questions: []domain.Question{
				{
					ID:     "q1",
					Prompt: "Capital of France?",
					Kind:   domain.KindSingle,
					Options: []domain.Option{
						{ID: "a", Text: "Paris", Correct: true},
						{ID: "b", Text: "Lyon"},
					},
				},
			},
		},
	}
}
