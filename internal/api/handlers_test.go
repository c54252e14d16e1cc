package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/serpinsight/analyzer/internal/domain"
	"github.com/serpinsight/analyzer/internal/engine"
)

const testSecret = "test-secret"

var testThresholds = ReportingThresholds{
	QuickWinMinImpressions: 100,
	QuickWinMaxPosition:    20,
	MaxCannibalReports:     25,
}

// mockLogger implements Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(msg string, keysAndValues ...interface{}) {}
func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Warn(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

// mockRecordsStore implements RecordsStore for testing
type mockRecordsStore struct {
	records       []domain.PerformanceRecord
	syncedProject string
}

func (m *mockRecordsStore) ListByScope(ctx context.Context, scope domain.Scope) ([]domain.PerformanceRecord, error) {
	return m.records, nil
}

func (m *mockRecordsStore) ReplaceRecords(ctx context.Context, projectID string, records []domain.PerformanceRecord) error {
	m.syncedProject = projectID
	m.records = records
	return nil
}

// mockResultsStore implements ResultsStore for testing
type mockResultsStore struct {
	replaced *domain.AnalysisResult
	pages    []domain.PageAggregate
}

func (m *mockResultsStore) ReplaceScope(ctx context.Context, result *domain.AnalysisResult) error {
	m.replaced = result
	return nil
}

func (m *mockResultsStore) ListPages(ctx context.Context, projectID string) ([]domain.PageAggregate, error) {
	return m.pages, nil
}

func (m *mockResultsStore) ListQueryClusters(ctx context.Context, projectID string) ([]domain.QueryCluster, error) {
	return nil, nil
}

func (m *mockResultsStore) ListTopicClusters(ctx context.Context, projectID string) ([]domain.TopicCluster, error) {
	return nil, nil
}

// mockMetrics implements Metrics for testing
type mockMetrics struct {
	completed []string
	failures  []string
}

func (m *mockMetrics) RecordAnalysisCompleted(ctx context.Context, trigger string) {
	m.completed = append(m.completed, trigger)
}

func (m *mockMetrics) RecordAnalysisFailure(ctx context.Context, trigger, errorCode string) {
	m.failures = append(m.failures, trigger+":"+errorCode)
}

func testRecords() []domain.PerformanceRecord {
	return []domain.PerformanceRecord{
		{Query: "running shoes", Page: "https://example.com/shoes", Clicks: 40, Impressions: 800, Position: 3},
		{Query: "running shoes", Page: "https://example.com/sneakers", Clicks: 10, Impressions: 400, Position: 8},
	}
}

// setupTest creates a router with a handler wired to mock stores.
func setupTest(records *mockRecordsStore, results *mockResultsStore) *gin.Engine {
	return setupTestWithMetrics(records, results, nil)
}

func setupTestWithMetrics(records *mockRecordsStore, results *mockResultsStore, metrics Metrics) *gin.Engine {
	gin.SetMode(gin.TestMode)
	eng := engine.New(nil, nil, engine.Config{Version: "test"})
	handler := NewHandler(eng, records, results, testThresholds, metrics, &mockLogger{})

	router := gin.New()
	SetupRoutes(router, handler, testSecret, nil)
	return router
}

func authToken(t *testing.T) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Sub: "test-user",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return "Bearer " + signed
}

func doRequest(router *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	router := setupTest(&mockRecordsStore{}, &mockResultsStore{})

	w := doRequest(router, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestAnalyze_Unauthorized(t *testing.T) {
	router := setupTest(&mockRecordsStore{}, &mockResultsStore{})

	w := doRequest(router, http.MethodPost, "/api/v1/analyze", "", AnalyzeRequest{ProjectID: "p1"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAnalyze_InvalidToken(t *testing.T) {
	router := setupTest(&mockRecordsStore{}, &mockResultsStore{})

	w := doRequest(router, http.MethodPost, "/api/v1/analyze", "Bearer not-a-token", AnalyzeRequest{ProjectID: "p1"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAnalyze_PersistsResult(t *testing.T) {
	records := &mockRecordsStore{records: testRecords()}
	results := &mockResultsStore{}
	router := setupTest(records, results)

	w := doRequest(router, http.MethodPost, "/api/v1/analyze", authToken(t), AnalyzeRequest{ProjectID: "p1"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	if results.replaced == nil {
		t.Fatal("expected results to be persisted")
	}
	if results.replaced.Scope.ProjectID != "p1" {
		t.Errorf("persisted project = %s, want p1", results.replaced.Scope.ProjectID)
	}

	var resp AnalyzeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.RecordCount != 2 {
		t.Errorf("RecordCount = %d, want 2", resp.RecordCount)
	}
	if resp.QueryClusters != 1 {
		t.Errorf("QueryClusters = %d, want 1", resp.QueryClusters)
	}
}

func TestAnalyze_RecordsCompletionMetric(t *testing.T) {
	metrics := &mockMetrics{}
	router := setupTestWithMetrics(&mockRecordsStore{records: testRecords()}, &mockResultsStore{}, metrics)

	w := doRequest(router, http.MethodPost, "/api/v1/analyze", authToken(t), AnalyzeRequest{ProjectID: "p1"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	if len(metrics.completed) != 1 || metrics.completed[0] != "api" {
		t.Errorf("completed = %v, want one api completion", metrics.completed)
	}
	if len(metrics.failures) != 0 {
		t.Errorf("failures = %v, want none", metrics.failures)
	}
}

func TestAnalyzePreview_RecordsCompletionMetric(t *testing.T) {
	metrics := &mockMetrics{}
	router := setupTestWithMetrics(&mockRecordsStore{}, &mockResultsStore{}, metrics)

	w := doRequest(router, http.MethodPost, "/api/v1/analyze/preview", authToken(t), PreviewRequest{
		ProjectID: "p1",
		Records:   testRecords(),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	if len(metrics.completed) != 1 || metrics.completed[0] != "preview" {
		t.Errorf("completed = %v, want one preview completion", metrics.completed)
	}
}

func TestAnalyze_NoRecords(t *testing.T) {
	router := setupTest(&mockRecordsStore{}, &mockResultsStore{})

	w := doRequest(router, http.MethodPost, "/api/v1/analyze", authToken(t), AnalyzeRequest{ProjectID: "empty"})
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}

	var resp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Error != ErrScopeNotFound.Error() {
		t.Errorf("error = %q, want %q", resp.Error, ErrScopeNotFound)
	}
}

func TestAnalyze_MissingProjectID(t *testing.T) {
	router := setupTest(&mockRecordsStore{}, &mockResultsStore{})

	w := doRequest(router, http.MethodPost, "/api/v1/analyze", authToken(t), map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestAnalyzePreview_DoesNotPersist(t *testing.T) {
	results := &mockResultsStore{}
	router := setupTest(&mockRecordsStore{}, results)

	w := doRequest(router, http.MethodPost, "/api/v1/analyze/preview", authToken(t), PreviewRequest{
		ProjectID: "p1",
		Records:   testRecords(),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	if results.replaced != nil {
		t.Error("preview must not persist results")
	}

	var result domain.AnalysisResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.RecordCount != 2 {
		t.Errorf("RecordCount = %d, want 2", result.RecordCount)
	}
	if len(result.QueryClusters) != 1 {
		t.Errorf("query clusters = %d, want 1", len(result.QueryClusters))
	}
}

func TestGetPages(t *testing.T) {
	results := &mockResultsStore{
		pages: []domain.PageAggregate{
			{PageURL: "https://example.com/a", TotalClicks: 10},
		},
	}
	router := setupTest(&mockRecordsStore{}, results)

	w := doRequest(router, http.MethodGet, "/api/v1/scopes/p1/pages", authToken(t), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		Pages []domain.PageAggregate `json:"pages"`
		Total int                    `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Total != 1 || len(resp.Pages) != 1 {
		t.Errorf("got %d pages, want 1", resp.Total)
	}
}

func TestContentQuality(t *testing.T) {
	router := setupTest(&mockRecordsStore{}, &mockResultsStore{})

	w := doRequest(router, http.MethodPost, "/api/v1/content/quality", authToken(t), QualityRequest{
		Content: domain.ContentInput{Text: "A short piece of test content. It has two sentences."},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var report domain.ContentQualityReport
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if report.WordCount != 10 {
		t.Errorf("WordCount = %d, want 10", report.WordCount)
	}
}

func TestClassifyIntent(t *testing.T) {
	router := setupTest(&mockRecordsStore{}, &mockResultsStore{})

	w := doRequest(router, http.MethodPost, "/api/v1/intent", authToken(t), IntentRequest{
		Keywords: []string{"buy shoes", "how to run"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var resp IntentResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Total != 2 {
		t.Fatalf("Total = %d, want 2", resp.Total)
	}
	if resp.Intents[0].Intent != domain.IntentTransactional {
		t.Errorf("intent = %s, want transactional", resp.Intents[0].Intent)
	}
}

func TestGetReportingThresholds(t *testing.T) {
	router := setupTest(&mockRecordsStore{}, &mockResultsStore{})

	w := doRequest(router, http.MethodGet, "/api/v1/reporting/thresholds", authToken(t), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var got ReportingThresholds
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got != testThresholds {
		t.Errorf("thresholds = %+v, want %+v", got, testThresholds)
	}
}

func TestSyncRecords(t *testing.T) {
	records := &mockRecordsStore{}
	router := setupTest(records, &mockResultsStore{})

	w := doRequest(router, http.MethodPut, "/api/v1/scopes/p1/records", authToken(t), SyncRecordsRequest{
		Records: []domain.PerformanceRecord{
			{Query: "running shoes", Page: "https://example.com/shoes", Clicks: 10, Impressions: 200, Position: 4},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	if records.syncedProject != "p1" {
		t.Errorf("synced project = %q, want p1", records.syncedProject)
	}
	if len(records.records) != 1 {
		t.Errorf("stored %d records, want 1", len(records.records))
	}
}

func TestSyncRecords_EmptySnapshotRejected(t *testing.T) {
	records := &mockRecordsStore{}
	router := setupTest(records, &mockResultsStore{})

	w := doRequest(router, http.MethodPut, "/api/v1/scopes/p1/records", authToken(t), SyncRecordsRequest{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", w.Code, w.Body.String())
	}
	if records.syncedProject != "" {
		t.Error("empty snapshot should not reach the store")
	}
}
