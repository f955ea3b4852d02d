package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"training-quiz-service/internal/domain"
)

func TestRESTSessionLifecycle(t *testing.T) {
	server, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/v1/sessions", map[string]string{"userId": "u1", "moduleId": "quiz-1"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var view domain.SessionView
	decodeBody(t, resp, &view)
	if view.State != domain.StateIntro || len(view.Questions) != 1 {
		t.Fatalf("unexpected session: %+v", view)
	}
	base := server.URL + "/v1/sessions/" + view.ID

	resp = postJSON(t, base+"/begin", struct{}{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("begin: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()
	resp = postJSON(t, base+"/answers", domain.AnswerSubmission{QuestionID: "q1", OptionIDs: []string{"o2"}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("answer: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, base+"/submit", struct{}{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submit: expected 200, got %d", resp.StatusCode)
	}
	var result domain.QuizResult
	decodeBody(t, resp, &result)
	if result.Percentage != 100 || !result.Passed {
		t.Fatalf("unexpected result: %+v", result)
	}

	resp = postJSON(t, base+"/submit", struct{}{})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("second submit: expected 409, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err := http.Get(server.URL + "/v1/users/u1/progress")
	if err != nil {
		t.Fatalf("get progress: %v", err)
	}
	var p domain.UserProgress
	decodeBody(t, resp, &p)
	if p.Modules["quiz-1"].BestScore != result.Score || !p.HasCompleted("quiz-1") {
		t.Fatalf("progress not updated: %+v", p)
	}
}

func TestRESTErrorMapping(t *testing.T) {
	server, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/v1/sessions", map[string]string{"userId": "u1", "moduleId": "missing"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing module: expected 404, got %d", resp.StatusCode)
	}
	var payload errorPayload
	decodeBody(t, resp, &payload)
	if payload.Code != "content_not_found" {
		t.Fatalf("unexpected code %q", payload.Code)
	}

	resp = postJSON(t, server.URL+"/v1/sessions", map[string]string{"moduleId": "quiz-1"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing user: expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err := http.Get(server.URL + "/v1/sessions/unknown")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown session: expected 404, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, server.URL+"/v1/sessions", map[string]string{"userId": "u1", "moduleId": "quiz-1"})
	var view domain.SessionView
	decodeBody(t, resp, &view)
	resp = postJSON(t, server.URL+"/v1/sessions/"+view.ID+"/navigate", map[string]int{"position": 0})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("navigate before begin: expected 409, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	req, _ := http.NewRequest(http.MethodDelete, server.URL+"/v1/sessions/"+view.ID, nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("abandon: expected 204, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRESTCatalogEndpoints(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/v1/badges")
	if err != nil {
		t.Fatalf("get badges: %v", err)
	}
	var catalog []domain.Badge
	decodeBody(t, resp, &catalog)
	if len(catalog) == 0 {
		t.Fatalf("expected badge catalog")
	}

	resp, err = http.Get(server.URL + "/v1/modules/popular?limit=1")
	if err != nil {
		t.Fatalf("get popular: %v", err)
	}
	var modules []domain.ModuleSummary
	decodeBody(t, resp, &modules)
	if len(modules) != 1 {
		t.Fatalf("expected one module, got %d", len(modules))
	}

	resp, err = http.Get(server.URL + "/v1/modules/popular?limit=x")
	if err != nil {
		t.Fatalf("get popular: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad limit: expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err = http.Get(server.URL + "/healthz")
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz failed: %v", err)
	}
	resp.Body.Close()
}

func TestRESTRecordSection(t *testing.T) {
	server, _ := newTestServer(t)

	put := func(section string, completed bool) *http.Response {
		req, _ := http.NewRequest(http.MethodPut,
			fmt.Sprintf("%s/v1/users/u1/modules/quiz-1/sections/%s", server.URL, section),
			jsonReader(t, map[string]bool{"completed": completed}))
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("put section: %v", err)
		}
		return resp
	}

	resp := put("2", true)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var p domain.UserProgress
	decodeBody(t, resp, &p)
	if sections := p.Modules["quiz-1"].CompletedSections; len(sections) != 1 || sections[0] != 2 {
		t.Fatalf("unexpected sections: %v", sections)
	}

	resp = put("two", true)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-numeric section, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrap: %w", domain.ErrContentNotFound), http.StatusNotFound},
		{domain.ErrOptionNotFound, http.StatusBadRequest},
		{domain.NewStateError("submit", domain.StateIntro), http.StatusConflict},
		{fmt.Errorf("%w: down", domain.ErrStorage), http.StatusServiceUnavailable},
		{fmt.Errorf("%w: module privacy: dial tcp: refused", domain.ErrUnavailable), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got, _ := classify(tc.err); got != tc.want {
			t.Fatalf("classify(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}
