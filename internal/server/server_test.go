package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"

	"tasktracker/internal/assistant"
	"tasktracker/internal/config"
	"tasktracker/internal/models"
	"tasktracker/internal/storage/sqlite"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// mockProvider answers every prompt with AskFunc
type mockProvider struct {
	AskFunc func(ctx context.Context, prompt string) (string, error)
}

func (m *mockProvider) Ask(ctx context.Context, prompt string) (string, error) {
	if m.AskFunc != nil {
		return m.AskFunc(ctx, prompt)
	}
	return "ok", nil
}

type testEnv struct {
	server   *Server
	store    *sqlite.Store
	provider *mockProvider
	settings *config.SettingsStore
	cfgFile  string
}

func setupTestServer(t *testing.T, opts Options) *testEnv {
	t.Helper()

	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := sqlite.Open(filepath.Join(dir, "test.db"), logger)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	v := viper.New()
	config.SetDefaults(v)
	cfgFile := filepath.Join(dir, "config.yaml")
	settings := config.NewSettingsStore(v, cfgFile, logger)

	provider := &mockProvider{}
	bridge := assistant.NewBridge(store, settings,
		assistant.WithLogger(logger),
		assistant.WithProviderFactory(func(config.AssistantConfig) (assistant.Provider, error) {
			return provider, nil
		}))

	srv := New(store, bridge, settings, logger, opts)
	return &testEnv{server: srv, store: store, provider: provider, settings: settings, cfgFile: cfgFile}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = strings.NewReader(b)
		default:
			data, err := json.Marshal(b)
			if err != nil {
				t.Fatalf("marshal body: %v", err)
			}
			reader = bytes.NewReader(data)
		}
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.server.Engine().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func (e *testEnv) createProject(t *testing.T, name string) models.Project {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/projects", map[string]string{"name": name})
	if w.Code != http.StatusCreated {
		t.Fatalf("create project status = %d, body = %s", w.Code, w.Body.String())
	}
	return decode[struct {
		Project models.Project `json:"project"`
	}](t, w).Project
}

func (e *testEnv) createTask(t *testing.T, projectID int64, body map[string]any) models.Task {
	t.Helper()
	w := e.do(t, http.MethodPost, fmt.Sprintf("/api/projects/%d/tasks", projectID), body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create task status = %d, body = %s", w.Code, w.Body.String())
	}
	return decode[struct {
		Task models.Task `json:"task"`
	}](t, w).Task
}

type projectsResponse struct {
	Projects []models.Project `json:"projects"`
	Moved    bool             `json:"moved"`
}

type taskResponse struct {
	Task models.Task `json:"task"`
}

func names(projects []models.Project) string {
	out := make([]string, len(projects))
	for i, p := range projects {
		out[i] = p.Name
	}
	return strings.Join(out, ",")
}

func TestHealth(t *testing.T) {
	env := setupTestServer(t, Options{})

	w := env.do(t, http.MethodGet, "/api/healthz", nil)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if w.Header().Get(requestIDHeader) == "" {
		t.Error("response should carry a request id")
	}
}

func TestRequestID_Reused(t *testing.T) {
	env := setupTestServer(t, Options{})

	req := httptest.NewRequest(http.MethodGet, "/api/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	env.server.Engine().ServeHTTP(w, req)

	if got := w.Header().Get(requestIDHeader); got != "abc-123" {
		t.Errorf("X-Request-ID = %q, want abc-123", got)
	}
}

func TestProjects_CRUD(t *testing.T) {
	env := setupTestServer(t, Options{})

	w := env.do(t, http.MethodGet, "/api/projects", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"projects":[]`) {
		t.Fatalf("empty list = %d %s", w.Code, w.Body.String())
	}

	a := env.createProject(t, "Alpha")
	if a.OrderIndex != 0 {
		t.Errorf("first project OrderIndex = %d", a.OrderIndex)
	}

	w = env.do(t, http.MethodPut, fmt.Sprintf("/api/projects/%d", a.ID), map[string]string{"name": "Renamed"})
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Renamed") {
		t.Errorf("rename = %d %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodDelete, fmt.Sprintf("/api/projects/%d", a.ID), nil)
	if w.Code != http.StatusOK {
		t.Errorf("delete status = %d", w.Code)
	}
	w = env.do(t, http.MethodDelete, "/api/projects/9999", nil)
	if w.Code != http.StatusOK {
		t.Errorf("delete missing status = %d, want 200", w.Code)
	}
}

func TestProjects_CreateValidation(t *testing.T) {
	env := setupTestServer(t, Options{})

	tests := []struct {
		name string
		body any
		want int
	}{
		{"blank name", map[string]string{"name": "   "}, http.StatusBadRequest},
		{"malformed json", "{", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/projects", tt.body)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
			if !strings.Contains(w.Body.String(), `"error"`) {
				t.Errorf("body should carry an error: %s", w.Body.String())
			}
		})
	}
}

func TestProjects_RenameMissing(t *testing.T) {
	env := setupTestServer(t, Options{})

	w := env.do(t, http.MethodPut, "/api/projects/404", map[string]string{"name": "x"})
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	w = env.do(t, http.MethodPut, "/api/projects/abc", map[string]string{"name": "x"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", w.Code)
	}
}

func TestProjects_ReorderAndMove(t *testing.T) {
	env := setupTestServer(t, Options{})
	a := env.createProject(t, "A")
	b := env.createProject(t, "B")
	c := env.createProject(t, "C")

	w := env.do(t, http.MethodPut, "/api/projects", map[string]any{"ids": []int64{c.ID, a.ID, b.ID}})
	if w.Code != http.StatusOK {
		t.Fatalf("reorder status = %d, body = %s", w.Code, w.Body.String())
	}
	if got := names(decode[projectsResponse](t, w).Projects); got != "C,A,B" {
		t.Errorf("after reorder = %s, want C,A,B", got)
	}

	w = env.do(t, http.MethodPut, "/api/projects", map[string]any{"ids": []int64{a.ID, a.ID}})
	if w.Code != http.StatusBadRequest {
		t.Errorf("duplicate ids status = %d, want 400", w.Code)
	}

	w = env.do(t, http.MethodPost, fmt.Sprintf("/api/projects/%d/move", b.ID), map[string]any{"target_id": c.ID})
	if w.Code != http.StatusOK {
		t.Fatalf("move status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decode[projectsResponse](t, w)
	if !resp.Moved || names(resp.Projects) != "B,C,A" {
		t.Errorf("after move = %s (moved=%v), want B,C,A", names(resp.Projects), resp.Moved)
	}
}

func TestTasks_Lifecycle(t *testing.T) {
	env := setupTestServer(t, Options{})
	p := env.createProject(t, "P")

	task := env.createTask(t, p.ID, map[string]any{"title": "Ship search", "priority": "high"})
	if task.Status != models.StatusNotStarted || task.Priority != models.PriorityHigh {
		t.Errorf("created task = %+v", task)
	}

	w := env.do(t, http.MethodPatch, fmt.Sprintf("/api/tasks/%d/status", task.ID), map[string]string{"status": "Started"})
	if w.Code != http.StatusOK {
		t.Fatalf("move status = %d, body = %s", w.Code, w.Body.String())
	}
	moved := decode[taskResponse](t, w).Task
	if moved.Status != models.StatusStarted || !moved.StartDate.Valid {
		t.Errorf("after drag = %+v", moved)
	}

	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/projects/%d/tasks", p.ID), nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Ship search") {
		t.Errorf("list tasks = %d %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodDelete, fmt.Sprintf("/api/tasks/%d", task.ID), nil)
	if w.Code != http.StatusOK {
		t.Errorf("delete status = %d", w.Code)
	}
	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/tasks/%d", task.ID), nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get deleted status = %d, want 404", w.Code)
	}
}

func TestTasks_CreateErrors(t *testing.T) {
	env := setupTestServer(t, Options{})
	p := env.createProject(t, "P")

	tests := []struct {
		name    string
		project int64
		body    map[string]any
		want    int
	}{
		{"empty title", p.ID, map[string]any{"title": ""}, http.StatusBadRequest},
		{"unknown status", p.ID, map[string]any{"title": "x", "status": "Done"}, http.StatusBadRequest},
		{"unknown priority", p.ID, map[string]any{"title": "x", "priority": "Urgent"}, http.StatusBadRequest},
		{"unknown project", 9999, map[string]any{"title": "x"}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, fmt.Sprintf("/api/projects/%d/tasks", tt.project), tt.body)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestTasks_UpdateIgnoresEndDateUnlessDeployed(t *testing.T) {
	env := setupTestServer(t, Options{})
	p := env.createProject(t, "P")
	task := env.createTask(t, p.ID, map[string]any{"title": "x", "status": "Beta Testing"})
	path := fmt.Sprintf("/api/tasks/%d", task.ID)

	w := env.do(t, http.MethodPut, path, map[string]any{"title": "renamed", "end_date": "2024-05-01"})
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", w.Code, w.Body.String())
	}
	got := decode[taskResponse](t, w).Task
	if got.Title != "renamed" {
		t.Errorf("Title = %q", got.Title)
	}
	if got.EndDate.Valid {
		t.Errorf("end date should be ignored while Beta Testing, got %s", got.EndDate.DateOnly())
	}

	w = env.do(t, http.MethodPut, path, map[string]any{"status": "Prod Deployed", "end_date": "2024-05-01"})
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", w.Code, w.Body.String())
	}
	got = decode[taskResponse](t, w).Task
	if got.EndDate.DateOnly() != "2024-05-01" {
		t.Errorf("EndDate = %q, want 2024-05-01", got.EndDate.DateOnly())
	}
	if !got.StartDate.Valid {
		t.Error("StartDate should stay stamped")
	}

	w = env.do(t, http.MethodPut, path, map[string]any{"end_date": nil})
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d", w.Code)
	}
	if decode[taskResponse](t, w).Task.EndDate.Valid {
		t.Error("null end_date should clear the date of a deployed task")
	}
}

func TestTasks_UpdateKeepsAbsentFields(t *testing.T) {
	env := setupTestServer(t, Options{})
	p := env.createProject(t, "P")
	task := env.createTask(t, p.ID, map[string]any{"title": "x", "description": "keep me", "blocker": "waiting"})

	w := env.do(t, http.MethodPut, fmt.Sprintf("/api/tasks/%d", task.ID), map[string]any{"priority": "Low"})
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", w.Code, w.Body.String())
	}
	got := decode[taskResponse](t, w).Task
	if got.Description != "keep me" || got.Blocker != "waiting" || got.Priority != models.PriorityLow {
		t.Errorf("task = %+v", got)
	}
	if !got.AssignedDate.Valid {
		t.Error("assigned date should not be cleared by an absent field")
	}
}

func TestBoard(t *testing.T) {
	env := setupTestServer(t, Options{})
	p := env.createProject(t, "P")
	env.createTask(t, p.ID, map[string]any{"title": "a"})
	env.createTask(t, p.ID, map[string]any{"title": "b", "status": "PR Raised", "blocker": "review"})

	w := env.do(t, http.MethodGet, fmt.Sprintf("/api/projects/%d/board", p.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("board status = %d", w.Code)
	}
	resp := decode[struct {
		Columns []struct {
			Status models.Status `json:"status"`
			Count  int           `json:"count"`
		} `json:"columns"`
		Summary struct {
			Total   int `json:"total"`
			Blocked int `json:"blocked"`
		} `json:"summary"`
	}](t, w)

	if len(resp.Columns) != 7 {
		t.Fatalf("got %d columns, want 7", len(resp.Columns))
	}
	if resp.Columns[0].Count != 1 || resp.Columns[5].Count != 1 {
		t.Errorf("columns = %+v", resp.Columns)
	}
	if resp.Summary.Total != 2 || resp.Summary.Blocked != 1 {
		t.Errorf("summary = %+v", resp.Summary)
	}

	w = env.do(t, http.MethodGet, "/api/projects/9999/board", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing project board status = %d, want 404", w.Code)
	}
}

func TestSearch(t *testing.T) {
	env := setupTestServer(t, Options{})
	p := env.createProject(t, "Infra")
	env.createTask(t, p.ID, map[string]any{"title": "Rotate certificates"})
	env.createTask(t, p.ID, map[string]any{"title": "Upgrade postgres"})

	w := env.do(t, http.MethodGet, "/api/search?q=cert", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search status = %d", w.Code)
	}
	resp := decode[struct {
		Results []models.SearchResult `json:"results"`
	}](t, w)
	if len(resp.Results) != 1 || resp.Results[0].ProjectName != "Infra" {
		t.Errorf("results = %+v", resp.Results)
	}

	w = env.do(t, http.MethodGet, "/api/search?q=c", nil)
	if !strings.Contains(w.Body.String(), `"results":[]`) {
		t.Errorf("short query body = %s, want empty results", w.Body.String())
	}
}

func TestAssistant_SendAndReset(t *testing.T) {
	env := setupTestServer(t, Options{})
	p := env.createProject(t, "Launch")
	env.createTask(t, p.ID, map[string]any{"title": "Write press release"})

	var seen string
	env.provider.AskFunc = func(ctx context.Context, prompt string) (string, error) {
		seen = prompt
		return "One task is open.", nil
	}

	w := env.do(t, http.MethodPost, "/api/assistant/messages", map[string]string{"message": "what's open?"})
	if w.Code != http.StatusOK {
		t.Fatalf("send status = %d, body = %s", w.Code, w.Body.String())
	}
	reply := decode[struct {
		Reply assistant.Message `json:"reply"`
	}](t, w).Reply
	if reply.Text != "One task is open." {
		t.Errorf("reply = %+v", reply)
	}
	if !strings.Contains(seen, "Write press release") {
		t.Errorf("prompt should include the board:\n%s", seen)
	}

	w = env.do(t, http.MethodGet, "/api/assistant/messages", nil)
	msgs := decode[struct {
		Messages []assistant.Message `json:"messages"`
	}](t, w).Messages
	if len(msgs) != 3 {
		t.Errorf("got %d messages, want 3", len(msgs))
	}

	w = env.do(t, http.MethodDelete, "/api/assistant/messages", nil)
	msgs = decode[struct {
		Messages []assistant.Message `json:"messages"`
	}](t, w).Messages
	if len(msgs) != 1 {
		t.Errorf("after reset got %d messages, want 1", len(msgs))
	}
}

func TestAssistant_FailureIsWarningReply(t *testing.T) {
	env := setupTestServer(t, Options{})
	env.provider.AskFunc = func(ctx context.Context, prompt string) (string, error) {
		return "", fmt.Errorf("%w: local model unreachable", assistant.ErrNetwork)
	}

	w := env.do(t, http.MethodPost, "/api/assistant/messages", map[string]string{"message": "hello"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	reply := decode[struct {
		Reply assistant.Message `json:"reply"`
	}](t, w).Reply
	if !reply.Error || !strings.HasPrefix(reply.Text, assistant.WarningPrefix) {
		t.Errorf("reply = %+v, want warning", reply)
	}
}

func TestAssistant_EmptyMessage(t *testing.T) {
	env := setupTestServer(t, Options{})

	w := env.do(t, http.MethodPost, "/api/assistant/messages", map[string]string{"message": "  "})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestAssistant_RateLimited(t *testing.T) {
	env := setupTestServer(t, Options{AssistantRate: 0.001, AssistantBurst: 2})

	codes := make([]int, 3)
	for i := range codes {
		codes[i] = env.do(t, http.MethodPost, "/api/assistant/messages", map[string]string{"message": "hi"}).Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 200 429]", codes)
	}

	if w := env.do(t, http.MethodGet, "/api/assistant/messages", nil); w.Code != http.StatusOK {
		t.Errorf("reading messages should not be rate limited, got %d", w.Code)
	}
}

func TestSettings(t *testing.T) {
	env := setupTestServer(t, Options{})

	w := env.do(t, http.MethodPut, "/api/settings", map[string]string{"provider": "cloud", "apiKey": "sk-abcdef123456"})
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "sk-abcdef123456") {
		t.Error("API key must not be echoed back")
	}
	if _, err := os.Stat(env.cfgFile); err != nil {
		t.Errorf("settings not persisted: %v", err)
	}

	w = env.do(t, http.MethodGet, "/api/settings", nil)
	resp := decode[struct {
		Settings  config.Settings `json:"settings"`
		Providers []string        `json:"providers"`
	}](t, w)
	if resp.Settings.Provider != "cloud" || !strings.HasSuffix(resp.Settings.APIKey, "3456") {
		t.Errorf("settings = %+v", resp.Settings)
	}
	if len(resp.Providers) != 2 {
		t.Errorf("providers = %v", resp.Providers)
	}

	w = env.do(t, http.MethodPut, "/api/settings", map[string]string{"provider": "gemini"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid provider status = %d, want 400", w.Code)
	}
}

func TestStatic_SPAFallback(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>board</html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "assets"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "assets", "app.js"), []byte("console.log(1)"), 0o644); err != nil {
		t.Fatal(err)
	}
	env := setupTestServer(t, Options{StaticDir: dir})

	w := env.do(t, http.MethodGet, "/assets/app.js", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "console.log") {
		t.Errorf("asset = %d %q", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/projects/3", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "board") {
		t.Errorf("SPA route = %d %q", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/api/unknown", nil)
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), "endpoint not found") {
		t.Errorf("unknown api = %d %q", w.Code, w.Body.String())
	}
}

func TestCORS(t *testing.T) {
	env := setupTestServer(t, Options{CORSOrigins: []string{"tauri://localhost"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/projects", nil)
	req.Header.Set("Origin", "tauri://localhost")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	env.server.Engine().ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "tauri://localhost" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", models.ErrValidation), http.StatusBadRequest},
		{config.ValidationErrors{{Field: "f"}}, http.StatusBadRequest},
		{fmt.Errorf("x: %w", models.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("x: %w", models.ErrForeignKey), http.StatusUnprocessableEntity},
		{fmt.Errorf("x: %w", models.ErrPersistence), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestVisitors_SweepsIdleClients(t *testing.T) {
	clients := newVisitors(1, 5)
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	clients.now = func() time.Time { return now }

	first := clients.get("10.0.0.1")
	clients.get("10.0.0.2")

	now = now.Add(time.Minute)
	if clients.get("10.0.0.1") != first {
		t.Error("returning client should keep its limiter")
	}

	now = now.Add(visitorTTL)
	clients.get("10.0.0.3")
	if len(clients.seen) != 1 {
		t.Errorf("len(seen) = %d after sweep, want 1", len(clients.seen))
	}
	if _, ok := clients.seen["10.0.0.3"]; !ok {
		t.Error("active client was swept")
	}
}

func TestVisitors_TTLCoversRefill(t *testing.T) {
	clients := newVisitors(0.001, 2)
	if clients.ttl < 2000*time.Second {
		t.Errorf("ttl = %v, want at least the 2000s refill time", clients.ttl)
	}
}
