package controller_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/kioku/pkg/adapter"
	"github.com/m-mizutani/kioku/pkg/controller"
	"github.com/m-mizutani/kioku/pkg/repository"
	"github.com/m-mizutani/kioku/pkg/usecase/memory"
	"github.com/m-mizutani/kioku/pkg/usecase/search"
	"github.com/m-mizutani/kioku/pkg/vector"
)

func newServer() *controller.Server {
	memoryUC := memory.New(repository.NewMemory())
	searchUC := search.New(vector.NewMemoryStore(), adapter.NewHashEmbedder(0))
	return controller.New(memoryUC, searchUC)
}

func doJSON(t *testing.T, srv *controller.Server, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	var resp map[string]any
	if rec.Body.Len() > 0 {
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestHealth(t *testing.T) {
	rec, resp := doJSON(t, newServer(), http.MethodGet, "/health", "")
	gt.Equal(t, rec.Code, http.StatusOK)
	gt.Equal(t, resp["status"], "ok")
}

func TestSessionLifecycle(t *testing.T) {
	srv := newServer()

	rec, resp := doJSON(t, srv, http.MethodPost, "/v1/sessions",
		`{"actorId": "actor-1", "title": "roadmap", "tags": ["work"]}`)
	gt.Equal(t, rec.Code, http.StatusCreated)
	sessionID, ok := resp["sessionId"].(string)
	gt.True(t, ok)

	rec, resp = doJSON(t, srv, http.MethodGet, "/v1/sessions/"+sessionID, "")
	gt.Equal(t, rec.Code, http.StatusOK)
	gt.Equal(t, resp["title"], "roadmap")

	rec, resp = doJSON(t, srv, http.MethodDelete, "/v1/sessions/"+sessionID, "")
	gt.Equal(t, rec.Code, http.StatusOK)
	gt.Equal(t, resp["deleted"], true)
}

func TestGetSessionCreatesOnMiss(t *testing.T) {
	rec, resp := doJSON(t, newServer(), http.MethodGet, "/v1/sessions/sess-new?actorId=actor-1", "")
	gt.Equal(t, rec.Code, http.StatusOK)
	gt.Equal(t, resp["sessionId"], "sess-new")
}

func TestCreateSessionRequiresActor(t *testing.T) {
	rec, _ := doJSON(t, newServer(), http.MethodPost, "/v1/sessions", `{}`)
	gt.Equal(t, rec.Code, http.StatusBadRequest)
}

func TestEventFlow(t *testing.T) {
	srv := newServer()

	rec, _ := doJSON(t, srv, http.MethodPost, "/v1/events",
		`{"sessionId": "sess-1", "actorId": "actor-1", "role": "USER", "content": "hello"}`)
	gt.Equal(t, rec.Code, http.StatusCreated)

	rec, resp := doJSON(t, srv, http.MethodGet, "/v1/events?sessionId=sess-1", "")
	gt.Equal(t, rec.Code, http.StatusOK)
	events, ok := resp["events"].([]any)
	gt.True(t, ok)
	gt.A(t, events).Length(1)

	// Actor view spans sessions
	rec, _ = doJSON(t, srv, http.MethodPost, "/v1/events",
		`{"sessionId": "sess-2", "actorId": "actor-1", "role": "USER", "content": "again"}`)
	gt.Equal(t, rec.Code, http.StatusCreated)

	rec, resp = doJSON(t, srv, http.MethodGet, "/v1/events?actorId=actor-1", "")
	gt.Equal(t, rec.Code, http.StatusOK)
	events, ok = resp["events"].([]any)
	gt.True(t, ok)
	gt.A(t, events).Length(2)

	// Both parameters narrow to the session
	rec, resp = doJSON(t, srv, http.MethodGet, "/v1/events?actorId=actor-1&sessionId=sess-1", "")
	gt.Equal(t, rec.Code, http.StatusOK)
	events, ok = resp["events"].([]any)
	gt.True(t, ok)
	gt.A(t, events).Length(1)
}

func TestEventRejectsInvalidRole(t *testing.T) {
	rec, _ := doJSON(t, newServer(), http.MethodPost, "/v1/events",
		`{"sessionId": "sess-1", "actorId": "actor-1", "role": "NARRATOR", "content": "hello"}`)
	gt.Equal(t, rec.Code, http.StatusBadRequest)
}

func TestGetEventsRequiresScope(t *testing.T) {
	rec, _ := doJSON(t, newServer(), http.MethodGet, "/v1/events", "")
	gt.Equal(t, rec.Code, http.StatusBadRequest)
}

func TestIndexAndSearch(t *testing.T) {
	srv := newServer()

	rec, resp := doJSON(t, srv, http.MethodPost, "/v1/documents",
		`{"content": "the cat sat on the mat"}`)
	gt.Equal(t, rec.Code, http.StatusCreated)
	gt.V(t, resp["id"]).NotNil()

	rec, resp = doJSON(t, srv, http.MethodPost, "/v1/search",
		`{"query": "the cat sat on the mat"}`)
	gt.Equal(t, rec.Code, http.StatusOK)
	results, ok := resp["results"].([]any)
	gt.True(t, ok)
	gt.A(t, results).Length(1)

	// Scores are omitted unless asked for
	item, ok := results[0].(map[string]any)
	gt.True(t, ok)
	_, scored := item["score"]
	gt.False(t, scored)

	rec, resp = doJSON(t, srv, http.MethodPost, "/v1/search",
		`{"query": "the cat sat on the mat", "includeScores": true}`)
	gt.Equal(t, rec.Code, http.StatusOK)
	results, ok = resp["results"].([]any)
	gt.True(t, ok)
	gt.A(t, results).Length(1)
	item, ok = results[0].(map[string]any)
	gt.True(t, ok)
	score, ok := item["score"].(float64)
	gt.True(t, ok)
	gt.True(t, score > 0.99)
}

func TestSearchRequiresQuery(t *testing.T) {
	rec, _ := doJSON(t, newServer(), http.MethodPost, "/v1/search", `{}`)
	gt.Equal(t, rec.Code, http.StatusBadRequest)
}

func TestIndexRequiresContent(t *testing.T) {
	rec, _ := doJSON(t, newServer(), http.MethodPost, "/v1/documents", `{}`)
	gt.Equal(t, rec.Code, http.StatusBadRequest)
}
