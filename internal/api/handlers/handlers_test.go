package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veritest-ai/veritest-be/internal/executor"
	"github.com/veritest-ai/veritest-be/internal/orchestrator"
	"github.com/veritest-ai/veritest-be/internal/provider"
	"github.com/veritest-ai/veritest-be/internal/storage"
	"github.com/veritest-ai/veritest-be/pkg/veritest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// passThroughRunner satisfies the orchestrator's executor contract with a
// canned passing result.
type passThroughRunner struct{}

func (passThroughRunner) Run(ctx context.Context, p executor.Params) veritest.TestResult {
	return veritest.TestResult{
		TestCaseID:       p.TestCase.ID,
		TestCaseName:     p.TestCase.Name,
		Output:           "stub output",
		ValidationPassed: true,
		ResponseTimeMS:   5,
	}
}

// memoryRepo is an in-memory RunRepository for handler tests.
type memoryRepo struct {
	runs    map[string]*veritest.TestRun
	order   []string
	listErr error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{runs: make(map[string]*veritest.TestRun)}
}

func (m *memoryRepo) Create(ctx context.Context, run *veritest.TestRun) error {
	if _, ok := m.runs[run.ID]; ok {
		return storage.ErrAlreadyExists
	}
	m.runs[run.ID] = run
	m.order = append(m.order, run.ID)
	return nil
}

func (m *memoryRepo) Get(ctx context.Context, runID string) (*veritest.TestRun, error) {
	run, ok := m.runs[runID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return run, nil
}

func (m *memoryRepo) List(ctx context.Context, limit, offset int) ([]*veritest.TestRun, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*veritest.TestRun
	for i := len(m.order) - 1; i >= 0 && len(out) < limit; i-- {
		if offset > 0 {
			offset--
			continue
		}
		out = append(out, m.runs[m.order[i]])
	}
	return out, nil
}

func newTestRouter(repo *memoryRepo) *gin.Engine {
	orch := orchestrator.New(passThroughRunner{})
	testRunHandler := NewTestRunHandler(orch, repo, nil)
	comparisonHandler := NewComparisonHandler(repo)
	providerHandler := NewProviderHandler(provider.Defaults())

	r := gin.New()
	v1 := r.Group("/v1")
	v1.GET("/providers", providerHandler.ListProviders)
	v1.POST("/test-runs", testRunHandler.ExecuteTestRun)
	v1.GET("/test-runs", testRunHandler.ListTestRuns)
	v1.GET("/test-runs/:runID", testRunHandler.GetTestRun)
	v1.POST("/comparisons", comparisonHandler.CompareRuns)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func executeRequest() map[string]interface{} {
	return map[string]interface{}{
		"target_type": "prompt",
		"prompt": map[string]interface{}{
			"provider": "openai",
			"model":    "gpt-4o-mini",
			"template": "{{question}}",
		},
		"test_cases": []map[string]interface{}{
			{"id": "tc-1", "name": "first", "inputs": map[string]string{"question": "hi"}},
		},
		"credentials": map[string]string{"openai": "sk-test"},
	}
}

func TestExecuteTestRun(t *testing.T) {
	repo := newMemoryRepo()
	r := newTestRouter(repo)

	w := doJSON(t, r, http.MethodPost, "/v1/test-runs", executeRequest())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var run veritest.TestRun
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))
	assert.Equal(t, veritest.RunStatusCompleted, run.Status)
	require.Len(t, run.Results, 1)
	assert.Equal(t, "tc-1", run.Results[0].TestCaseID)
	assert.Equal(t, 1, run.Summary.Passed)

	// The completed run is persisted under its ID.
	stored, err := repo.Get(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, stored.ID)
}

func TestExecuteTestRun_PreconditionFailure(t *testing.T) {
	r := newTestRouter(newMemoryRepo())

	payload := executeRequest()
	delete(payload, "credentials")
	w := doJSON(t, r, http.MethodPost, "/v1/test-runs", payload)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, orchestrator.CodeMissingCredentials, envelope.Error.Code)
}

func TestExecuteTestRun_InvalidBody(t *testing.T) {
	r := newTestRouter(newMemoryRepo())

	req := httptest.NewRequest(http.MethodPost, "/v1/test-runs", strings.NewReader("not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// target_type outside the prompt/endpoint set fails binding.
	payload := executeRequest()
	payload["target_type"] = "grpc"
	w = doJSON(t, r, http.MethodPost, "/v1/test-runs", payload)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetTestRun(t *testing.T) {
	repo := newMemoryRepo()
	repo.Create(context.Background(), &veritest.TestRun{ID: "run-1", Status: veritest.RunStatusCompleted})
	r := newTestRouter(repo)

	w := doJSON(t, r, http.MethodGet, "/v1/test-runs/run-1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/v1/test-runs/run-missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_FOUND")
}

func TestListTestRuns(t *testing.T) {
	repo := newMemoryRepo()
	repo.Create(context.Background(), &veritest.TestRun{ID: "run-1"})
	repo.Create(context.Background(), &veritest.TestRun{ID: "run-2"})
	r := newTestRouter(repo)

	w := doJSON(t, r, http.MethodGet, "/v1/test-runs?limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		TestRuns []veritest.TestRun `json:"test_runs"`
		Count    int                `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	require.Len(t, body.TestRuns, 2)
	assert.Equal(t, "run-2", body.TestRuns[0].ID, "newest first")
}

func TestCompareRuns_Inline(t *testing.T) {
	r := newTestRouter(newMemoryRepo())

	payload := map[string]interface{}{
		"baseline_run": map[string]interface{}{
			"results": []map[string]interface{}{
				{"test_case_id": "a", "validation_passed": false},
			},
		},
		"compare_run": map[string]interface{}{
			"results": []map[string]interface{}{
				{"test_case_id": "a", "validation_passed": true},
			},
		},
	}

	w := doJSON(t, r, http.MethodPost, "/v1/comparisons", payload)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result veritest.Comparison
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 1, result.Summary.Improved)
	require.Len(t, result.TestCases, 1)
	assert.Equal(t, veritest.CompareImproved, result.TestCases[0].Status)
}

func TestCompareRuns_ByStoredID(t *testing.T) {
	repo := newMemoryRepo()
	repo.Create(context.Background(), &veritest.TestRun{
		ID:      "base",
		Results: []veritest.TestResult{{TestCaseID: "a", ValidationPassed: true}},
	})
	repo.Create(context.Background(), &veritest.TestRun{
		ID:      "head",
		Results: []veritest.TestResult{{TestCaseID: "a", ValidationPassed: false}},
	})
	r := newTestRouter(repo)

	w := doJSON(t, r, http.MethodPost, "/v1/comparisons", map[string]string{
		"baseline_run_id": "base",
		"compare_run_id":  "head",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var result veritest.Comparison
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 1, result.Summary.Regressed)
}

func TestCompareRuns_MissingReference(t *testing.T) {
	r := newTestRouter(newMemoryRepo())

	w := doJSON(t, r, http.MethodPost, "/v1/comparisons", map[string]string{
		"baseline_run_id": "base",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/v1/comparisons", map[string]string{
		"baseline_run_id": "nope",
		"compare_run_id":  "also-nope",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStreamTestRun(t *testing.T) {
	repo := newMemoryRepo()
	orch := orchestrator.New(passThroughRunner{})
	handler := NewTestRunHandler(orch, repo, nil)

	r := gin.New()
	r.POST("/v1/test-runs/stream", handler.StreamTestRun)

	w := doJSON(t, r, http.MethodPost, "/v1/test-runs/stream", executeRequest())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "no", w.Header().Get("X-Accel-Buffering"))

	body := w.Body.String()
	assert.Contains(t, body, "event:connected")
	assert.Contains(t, body, "event:progress")
	assert.Contains(t, body, "event:result")
	assert.Contains(t, body, "event:complete")

	// The complete event arrives last and the run lands in storage.
	assert.True(t, strings.Index(body, "event:connected") < strings.Index(body, "event:complete"))
	runs, err := repo.List(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, veritest.RunStatusCompleted, runs[0].Status)
}

func TestStreamTestRun_PreconditionFailureStreamsError(t *testing.T) {
	orch := orchestrator.New(passThroughRunner{})
	handler := NewTestRunHandler(orch, newMemoryRepo(), nil)

	r := gin.New()
	r.POST("/v1/test-runs/stream", handler.StreamTestRun)

	payload := executeRequest()
	delete(payload, "credentials")
	w := doJSON(t, r, http.MethodPost, "/v1/test-runs/stream", payload)

	body := w.Body.String()
	assert.Contains(t, body, "event:error")
	assert.NotContains(t, body, "event:complete")
}

func TestListProviders(t *testing.T) {
	r := newTestRouter(newMemoryRepo())

	w := doJSON(t, r, http.MethodGet, "/v1/providers", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Providers []struct {
			Name        string   `json:"name"`
			DisplayName string   `json:"display_name"`
			Models      []string `json:"models"`
		} `json:"providers"`
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 5, body.Count)

	names := make([]string, 0, len(body.Providers))
	for _, p := range body.Providers {
		names = append(names, p.Name)
		assert.NotEmpty(t, p.Models)
	}
	assert.Equal(t, []string{"anthropic", "google", "groq", "mistral", "openai"}, names)
}
