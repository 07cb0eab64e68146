package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/quiz-console/internal/config"
	"github.com/terra-clan/quiz-console/internal/console"
	"github.com/terra-clan/quiz-console/internal/events"
	"github.com/terra-clan/quiz-console/pkg/client"
)

// fakeRemote serves the subset of the quiz API the tests touch
func fakeRemote(t *testing.T, attachStatus int) *httptest.Server {
	t.Helper()

	write := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(v)
	}

	r := chi.NewRouter()
	r.Get("/levels", func(w http.ResponseWriter, r *http.Request) {
		write(w, http.StatusOK, map[string]any{"levels": []map[string]any{
			{"_id": "l1", "name": "Beginner", "order": 1},
			{"_id": "l2", "name": "Elementary", "order": 2},
		}})
	})
	r.Post("/topics", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		write(w, http.StatusCreated, map[string]any{"topic": map[string]any{
			"_id":   "t1",
			"name":  r.FormValue("name"),
			"level": r.FormValue("level"),
		}})
	})
	r.Post("/topics/edit", func(w http.ResponseWriter, r *http.Request) {
		if attachStatus >= 400 {
			write(w, attachStatus, map[string]any{"message": "question q9 does not exist"})
			return
		}
		write(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Get("/questions/{id}", func(w http.ResponseWriter, r *http.Request) {
		write(w, http.StatusNotFound, map[string]any{"message": "question not found"})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func newTestServer(t *testing.T, apiKey string, remote *httptest.Server, checks map[string]ReadinessCheck) http.Handler {
	t.Helper()

	base := "http://127.0.0.1:1"
	if remote != nil {
		base = remote.URL
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	con := console.New(client.NewClient(base), console.WithLogger(logger))

	s := NewServer(config.ServerConfig{APIKey: apiKey}, con, events.NewHub(), checks)
	return s.Router()
}

func do(t *testing.T, h http.Handler, method, path, body string, header http.Header) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp apiResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	return rec, resp
}

func TestHealthIsPublic(t *testing.T) {
	h := newTestServer(t, "secret-key-123", nil, nil)

	rec, resp := do(t, h, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK || !resp.Success {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestReadyReportsFailingCheck(t *testing.T) {
	h := newTestServer(t, "", nil, map[string]ReadinessCheck{
		"journal": func(ctx context.Context) error { return errors.New("connection refused") },
	})

	rec, resp := do(t, h, http.MethodGet, "/ready", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if resp.Error == nil || resp.Error.Message != "journal is not ready" {
		t.Errorf("unexpected error %+v", resp.Error)
	}
}

func TestAuthentication(t *testing.T) {
	h := newTestServer(t, "secret-key-123", nil, nil)
	path := "/api/v1/state/levels"

	tests := []struct {
		name   string
		header http.Header
		path   string
		want   int
	}{
		{"missing key", nil, path, http.StatusUnauthorized},
		{"wrong key", http.Header{"X-Api-Key": {"nope"}}, path, http.StatusUnauthorized},
		{"bearer", http.Header{"Authorization": {"Bearer secret-key-123"}}, path, http.StatusOK},
		{"header", http.Header{"X-Api-Key": {"secret-key-123"}}, path, http.StatusOK},
		{"query", nil, path + "?api_key=secret-key-123", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := do(t, h, http.MethodGet, tt.path, "", tt.header)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestNoKeyLetsEverythingThrough(t *testing.T) {
	h := newTestServer(t, "", nil, nil)

	rec, _ := do(t, h, http.MethodGet, "/api/v1/state/pools", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestStateEndpoint(t *testing.T) {
	h := newTestServer(t, "", fakeRemote(t, http.StatusOK), nil)

	if rec, _ := do(t, h, http.MethodPost, "/api/v1/levels/fetch", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("expected fetch to succeed, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec, _ := do(t, h, http.MethodPost, "/api/v1/state/levels/search", `{"predicate":"MEN"}`, nil); rec.Code != http.StatusOK {
		t.Fatalf("expected search to succeed, got %d", rec.Code)
	}

	rec, _ := do(t, h, http.MethodGet, "/api/v1/state/levels", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Data struct {
			Items      []map[string]any          `json:"items"`
			Projection []map[string]any          `json:"projection"`
			Predicate  string                    `json:"predicate"`
			Statuses   map[string]map[string]any `json:"statuses"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode state: %v", err)
	}
	if len(body.Data.Items) != 2 || len(body.Data.Projection) != 1 || body.Data.Predicate != "MEN" {
		t.Errorf("unexpected state %+v", body.Data)
	}
	if body.Data.Statuses["fetch"]["status"] != "succeeded" {
		t.Errorf("expected fetch succeeded, got %v", body.Data.Statuses["fetch"])
	}

	if rec, _ := do(t, h, http.MethodGet, "/api/v1/state/lessons", "", nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected unknown entity to be 404, got %d", rec.Code)
	}
}

func TestFetchAgainAfterSuccess(t *testing.T) {
	h := newTestServer(t, "", fakeRemote(t, http.StatusOK), nil)

	for i := 0; i < 2; i++ {
		if rec, _ := do(t, h, http.MethodPost, "/api/v1/levels/fetch", "", nil); rec.Code != http.StatusOK {
			t.Fatalf("fetch %d: expected 200, got %d", i, rec.Code)
		}
	}
}

func TestValidationErrors(t *testing.T) {
	h := newTestServer(t, "", nil, nil)

	tests := []struct {
		name string
		path string
		body string
	}{
		{"level without name", "/api/v1/levels", `{"name":""}`},
		{"question scope", "/api/v1/questions/fetch", `{"poolId":"p","topicId":"t"}`},
		{"broken json", "/api/v1/pools", `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := do(t, h, http.MethodPost, tt.path, tt.body, nil)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			if resp.Success {
				t.Error("expected success to be false")
			}
		})
	}
}

func TestCreateTopicRequiresLevels(t *testing.T) {
	h := newTestServer(t, "", nil, nil)

	body := `{"topic":{"name":"Greetings","level":"l1","image":{"filename":"t.png","data":"AQI="}}}`
	rec, resp := do(t, h, http.MethodPost, "/api/v1/topics", body, nil)
	if rec.Code != http.StatusPreconditionFailed {
		t.Fatalf("expected 412, got %d", rec.Code)
	}
	if resp.Error == nil || resp.Error.Code != "precondition_failed" {
		t.Errorf("unexpected error %+v", resp.Error)
	}
}

func TestCreateTopicPartialFailure(t *testing.T) {
	h := newTestServer(t, "", fakeRemote(t, http.StatusUnprocessableEntity), nil)

	if rec, _ := do(t, h, http.MethodPost, "/api/v1/levels/fetch", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("expected levels fetch to succeed, got %d", rec.Code)
	}

	body := `{
		"topic": {"name": "Greetings", "level": "l1", "image": {"filename": "t.png", "data": "AQI="}},
		"questions": [{"question": "q9", "lessonOrder": 1}]
	}`
	rec, _ := do(t, h, http.MethodPost, "/api/v1/topics", body, nil)
	if rec.Code != http.StatusMultiStatus {
		t.Fatalf("expected 207, got %d: %s", rec.Code, rec.Body.String())
	}

	var got struct {
		Data createTopicResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !got.Data.Partial || got.Data.Topic.ID != "t1" || got.Data.WorkflowID == "" {
		t.Errorf("unexpected response %+v", got.Data)
	}
	if !strings.Contains(got.Data.Error, "question q9 does not exist") {
		t.Errorf("expected the remote message, got %q", got.Data.Error)
	}

	rec, _ = do(t, h, http.MethodGet, "/api/v1/workflows/orphans", "", nil)
	var orphans struct {
		Data struct {
			Total int `json:"total"`
		} `json:"data"`
	}
	json.Unmarshal(rec.Body.Bytes(), &orphans)
	if orphans.Data.Total != 1 {
		t.Errorf("expected one orphan, got %d", orphans.Data.Total)
	}
}

func TestRemoteNotFound(t *testing.T) {
	h := newTestServer(t, "", fakeRemote(t, http.StatusOK), nil)

	rec, resp := do(t, h, http.MethodGet, "/api/v1/questions/q1", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if resp.Error == nil || resp.Error.Message != "question not found" {
		t.Errorf("unexpected error %+v", resp.Error)
	}
}

func TestLessonsNeedLoadedScope(t *testing.T) {
	h := newTestServer(t, "", nil, nil)

	rec, _ := do(t, h, http.MethodGet, "/api/v1/topics/t1/lessons", "", nil)
	if rec.Code != http.StatusPreconditionFailed {
		t.Fatalf("expected 412, got %d", rec.Code)
	}

	rec, _ = do(t, h, http.MethodPost, "/api/v1/topics/t1/lessons/two", `{"questions":["q1"]}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a non-numeric lesson, got %d", rec.Code)
	}
}

func TestDismissUnknownKind(t *testing.T) {
	h := newTestServer(t, "", nil, nil)

	rec, _ := do(t, h, http.MethodPost, "/api/v1/state/learners/ops/add/dismiss", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
