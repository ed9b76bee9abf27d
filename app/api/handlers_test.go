package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/workflow-digest/app/database"
	"github.com/lysyi3m/workflow-digest/app/feed"
	"github.com/lysyi3m/workflow-digest/app/tasks"
	"github.com/lysyi3m/workflow-digest/app/workflow"
)

const testAPIKey = "test-key"

type mockReportRepo struct {
	reports []database.Report
	err     error
}

func (m *mockReportRepo) SaveReport(r *database.Report) error {
	m.reports = append(m.reports, *r)
	return nil
}

func (m *mockReportRepo) GetReport(id string) (*database.Report, error) {
	return nil, nil
}

func (m *mockReportRepo) GetLatestReports(limit int) ([]database.Report, error) {
	return m.reports, m.err
}

type mockItemRepo struct{}

func (m *mockItemRepo) IsReported(hash string) (bool, error)             { return false, nil }
func (m *mockItemRepo) MarkReported(items []database.ReportedItem) error { return nil }
func (m *mockItemRepo) GetReportedCount() (int, error)                   { return 7, nil }

type mockScheduler struct {
	enqueued []tasks.TaskInterface
	err      error
}

func (m *mockScheduler) Start() {}
func (m *mockScheduler) Stop()  {}

func (m *mockScheduler) EnqueueTask(task tasks.TaskInterface) error {
	if m.err != nil {
		return m.err
	}
	m.enqueued = append(m.enqueued, task)
	return nil
}

type mockSources struct{}

func (m *mockSources) GetConfigCount() int { return 3 }

func newFakeDigest() tasks.TaskInterface {
	return &tasks.DigestTask{Task: tasks.NewTask(tasks.TaskTypeDigest, tasks.TriggerAPI)}
}

type testServer struct {
	engine    *gin.Engine
	store     *workflow.Store
	reports   *mockReportRepo
	scheduler *mockScheduler
}

func newTestServer(t *testing.T, apiKey string) *testServer {
	t.Helper()

	store := workflow.NewStore(filepath.Join(t.TempDir(), "workflows.json"))
	if _, err := store.Seed(); err != nil {
		t.Fatal(err)
	}

	ts := &testServer{
		store:     store,
		reports:   &mockReportRepo{},
		scheduler: &mockScheduler{},
	}

	handler := NewHandler(store, ts.reports, &mockItemRepo{},
		feed.NewGenerator("https://digest.example.com/feeds/reports", "test"),
		&mockSources{}, ts.scheduler, newFakeDigest)
	ts.engine = NewServer(handler, apiKey, "test")
	return ts
}

func (ts *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("X-API-Key", testAPIKey)

	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, "")

	w := ts.do(http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var health map[string]interface{}
	decode(t, w, &health)

	if health["workflows"] != float64(5) {
		t.Errorf("Expected 5 workflows, got %v", health["workflows"])
	}
	if health["loaded_configurations"] != float64(3) {
		t.Errorf("Expected 3 configurations, got %v", health["loaded_configurations"])
	}
	if health["reported_items"] != float64(7) {
		t.Errorf("Expected 7 reported items, got %v", health["reported_items"])
	}
}

func TestReportsFeed(t *testing.T) {
	ts := newTestServer(t, "")
	ts.reports.reports = []database.Report{{
		ID:          "r1",
		GeneratedAt: time.Date(2026, 7, 3, 9, 0, 0, 0, time.UTC),
		PostCount:   4,
		Analysis:    "Agents everywhere",
	}}

	w := ts.do(http.MethodGet, "/feeds/reports", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/xml") {
		t.Errorf("Expected XML content type, got %q", ct)
	}
	if w.Header().Get("X-Feed-Items") != "1" {
		t.Errorf("Expected 1 feed item, got %q", w.Header().Get("X-Feed-Items"))
	}
	if !strings.Contains(w.Body.String(), "<title>Workflow digest 2026-07-03 (4 posts)</title>") {
		t.Errorf("Expected report item in feed, got %s", w.Body.String())
	}
}

func TestReportsFeedDatabaseError(t *testing.T) {
	ts := newTestServer(t, "")
	ts.reports.err = errors.New("locked")

	if w := ts.do(http.MethodGet, "/feeds/reports", ""); w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, "")

	w := ts.do(http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Error("Expected prometheus exposition output")
	}
}

func TestAPIDisabledWithoutKey(t *testing.T) {
	ts := newTestServer(t, "")

	if w := ts.do(http.MethodGet, "/api/workflows", ""); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 with API disabled, got %d", w.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	ts := newTestServer(t, testAPIKey)

	tests := []struct {
		name   string
		header string
		value  string
		status int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong key", "X-API-Key", "nope", http.StatusUnauthorized},
		{"header", "X-API-Key", testAPIKey, http.StatusOK},
		{"bearer", "Authorization", "Bearer " + testAPIKey, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/workflows/stats", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			w := httptest.NewRecorder()
			ts.engine.ServeHTTP(w, req)

			if w.Code != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, w.Code)
			}
		})
	}
}

func TestListWorkflows(t *testing.T) {
	ts := newTestServer(t, testAPIKey)

	w := ts.do(http.MethodGet, "/api/workflows?limit=2", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp struct {
		Workflows []workflow.Record `json:"workflows"`
		Total     int               `json:"total"`
	}
	decode(t, w, &resp)

	if resp.Total != 2 || len(resp.Workflows) != 2 {
		t.Fatalf("Expected 2 workflows, got %d", resp.Total)
	}
	if resp.Workflows[0].Title != "Smart Email-to-Task System" {
		t.Errorf("Expected best workflow first, got %q", resp.Workflows[0].Title)
	}

	if w := ts.do(http.MethodGet, "/api/workflows?limit=abc", ""); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for invalid limit, got %d", w.Code)
	}
}

func TestSearchWorkflows(t *testing.T) {
	ts := newTestServer(t, testAPIKey)

	w := ts.do(http.MethodGet, "/api/workflows/search?q=slack", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp struct {
		Total int `json:"total"`
	}
	decode(t, w, &resp)
	if resp.Total != 2 {
		t.Errorf("Expected 2 Slack workflows, got %d", resp.Total)
	}

	if w := ts.do(http.MethodGet, "/api/workflows/search", ""); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 without query, got %d", w.Code)
	}
}

func TestWorkflowStats(t *testing.T) {
	ts := newTestServer(t, testAPIKey)

	w := ts.do(http.MethodGet, "/api/workflows/stats", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var stats workflow.Stats
	decode(t, w, &stats)
	if stats.TotalWorkflows != 5 {
		t.Errorf("Expected 5 workflows, got %d", stats.TotalWorkflows)
	}
}

func TestAddWorkflow(t *testing.T) {
	ts := newTestServer(t, testAPIKey)

	w := ts.do(http.MethodPost, "/api/workflows", `{"title":"Lead Router","apps":["HubSpot","Slack"],"category":"sales","showcase_score":6}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var record workflow.Record
	decode(t, w, &record)
	if record.ID != 6 {
		t.Errorf("Expected id 6, got %d", record.ID)
	}
	if ts.store.Count() != 6 {
		t.Errorf("Expected 6 workflows in store, got %d", ts.store.Count())
	}

	if w := ts.do(http.MethodPost, "/api/workflows", `{"description":"no title"}`); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 without title, got %d", w.Code)
	}
}

func TestFeatureWorkflow(t *testing.T) {
	ts := newTestServer(t, testAPIKey)

	if w := ts.do(http.MethodPost, "/api/workflows/3/feature", ""); w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	for _, r := range ts.store.All() {
		if r.ID == 3 && r.FeatureCount != 1 {
			t.Errorf("Expected feature count 1, got %d", r.FeatureCount)
		}
	}

	if w := ts.do(http.MethodPost, "/api/workflows/99/feature", ""); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for missing workflow, got %d", w.Code)
	}
	if w := ts.do(http.MethodPost, "/api/workflows/x/feature", ""); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for invalid id, got %d", w.Code)
	}
}

func TestStartRun(t *testing.T) {
	ts := newTestServer(t, testAPIKey)

	w := ts.do(http.MethodPost, "/api/runs", "")
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d", w.Code)
	}
	if len(ts.scheduler.enqueued) != 1 {
		t.Fatalf("Expected 1 enqueued task, got %d", len(ts.scheduler.enqueued))
	}
	if ts.scheduler.enqueued[0].GetTrigger() != tasks.TriggerAPI {
		t.Errorf("Expected api trigger, got %q", ts.scheduler.enqueued[0].GetTrigger())
	}

	ts.scheduler.err = errors.New("task queue is full")
	if w := ts.do(http.MethodPost, "/api/runs", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503 when queue is full, got %d", w.Code)
	}
}
