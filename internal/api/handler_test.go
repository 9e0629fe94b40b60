package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ganjine/parsatext/internal/analyzer"
	"github.com/ganjine/parsatext/internal/database"
	"github.com/ganjine/parsatext/internal/models"
	"github.com/ganjine/parsatext/internal/normalize"
	"github.com/ganjine/parsatext/internal/qa"
	"github.com/ganjine/parsatext/pkg/metrics"
)

// mockEnqueuer implements the Enqueuer interface for testing
type mockEnqueuer struct {
	jobIDs []string
	paths  []string
	err    error
}

func (m *mockEnqueuer) EnqueueAnalyzeFile(ctx context.Context, jobID, path string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.jobIDs = append(m.jobIDs, jobID)
	m.paths = append(m.paths, path)
	return "mock-task-id", nil
}

func setupTestHandler(t *testing.T) (*Handler, *mockEnqueuer) {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	normalizer, tokenizer := normalize.Select(true)
	mockQueue := &mockEnqueuer{}

	handler := &Handler{
		db:              db,
		analyzer:        analyzer.New(normalizer),
		qaEngine:        qa.New(normalizer, tokenizer, qa.Config{}),
		queueClient:     mockQueue,
		uploadDir:       t.TempDir(),
		logger:          slog.Default(),
		businessMetrics: metrics.NewBusinessMetricsWith(prometheus.NewRegistry(), "parsatext"),
		mux:             http.NewServeMux(),
	}
	handler.setupRoutes()

	return handler, mockQueue
}

func TestHealthEndpoint(t *testing.T) {
	handler, _ := setupTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	handler.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response map[string]string
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if response["status"] != "ok" {
		t.Errorf("Expected status 'ok', got '%s'", response["status"])
	}
}

func TestAnalyzeEndpointSync(t *testing.T) {
	handler, _ := setupTestHandler(t)

	reqBody, _ := json.Marshal(map[string]string{
		"text": "این فیلم خیلی خوب بود",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var response struct {
		OK     bool                  `json:"ok"`
		ID     string                `json:"id"`
		Result models.AnalysisResult `json:"result"`
	}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if !response.OK {
		t.Error("Expected ok=true")
	}
	if response.ID == "" {
		t.Error("Expected a non-empty analysis ID")
	}
	if response.Result.Sentiment.Label != models.SentimentPositive {
		t.Errorf("Expected POSITIVE sentiment, got %s", response.Result.Sentiment.Label)
	}

	// The sync path must persist the analysis
	stored, err := handler.db.GetAnalysis(response.ID)
	if err != nil {
		t.Fatalf("Expected analysis to be persisted: %v", err)
	}
	if stored.Input != "این فیلم خیلی خوب بود" {
		t.Errorf("Stored input mismatch: %q", stored.Input)
	}
}

func TestAnalyzeEndpointEmptyText(t *testing.T) {
	handler, _ := setupTestHandler(t)

	for _, body := range []string{`{}`, `{"text":"   "}`, `not json`} {
		req := httptest.NewRequest(http.MethodPost, "/api/analyze", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		handler.mux.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: expected status 400, got %d", body, w.Code)
		}
	}
}

func TestAnalyzeEndpointMethodNotAllowed(t *testing.T) {
	handler, _ := setupTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/analyze", nil)
	w := httptest.NewRecorder()

	handler.mux.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", w.Code)
	}
}

func multipartUpload(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("Failed to create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("Failed to write form file: %v", err)
	}
	writer.Close()

	return body, writer.FormDataContentType()
}

func TestAnalyzeEndpointFileUpload(t *testing.T) {
	handler, mockQueue := setupTestHandler(t)

	body, contentType := multipartUpload(t, "corpus.txt", "کوروش بزرگ پادشاه بود\n")
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	handler.mux.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d: %s", w.Code, w.Body.String())
	}

	var response struct {
		OK     bool   `json:"ok"`
		JobID  string `json:"job_id"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if !response.OK || response.JobID == "" {
		t.Fatalf("Unexpected response: %+v", response)
	}
	if response.Status != models.JobQueued {
		t.Errorf("Expected queued status, got %s", response.Status)
	}

	if len(mockQueue.jobIDs) != 1 || mockQueue.jobIDs[0] != response.JobID {
		t.Errorf("Expected one enqueued job %s, got %v", response.JobID, mockQueue.jobIDs)
	}

	// Upload must be stored on disk for the worker
	data, err := os.ReadFile(mockQueue.paths[0])
	if err != nil {
		t.Fatalf("Expected stored upload: %v", err)
	}
	if string(data) != "کوروش بزرگ پادشاه بود\n" {
		t.Errorf("Stored upload content mismatch: %q", string(data))
	}

	job, err := handler.db.GetJob(response.JobID)
	if err != nil {
		t.Fatalf("Expected job record: %v", err)
	}
	if job.Status != models.JobQueued {
		t.Errorf("Expected job status queued, got %s", job.Status)
	}
}

func TestAnalyzeEndpointFileUploadEnqueueFails(t *testing.T) {
	handler, mockQueue := setupTestHandler(t)
	mockQueue.err = errors.New("redis unavailable")

	body, contentType := multipartUpload(t, "corpus.txt", "متن نمونه\n")
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	handler.mux.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status 500, got %d", w.Code)
	}
}

func TestAnswerEndpoint(t *testing.T) {
	handler, _ := setupTestHandler(t)

	reqBody, _ := json.Marshal(map[string]string{
		"question": "بنیانگذار هخامنشیان که بود؟",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/answer", bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var response struct {
		OK     bool   `json:"ok"`
		Answer string `json:"answer"`
	}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if !response.OK {
		t.Error("Expected ok=true")
	}
	if response.Answer == "" {
		t.Error("Expected a non-empty answer")
	}
}

func TestAnswerEndpointNoMatch(t *testing.T) {
	handler, _ := setupTestHandler(t)

	reqBody, _ := json.Marshal(map[string]string{
		"question": "qqq zzz xxx",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/answer", bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var response struct {
		Answer string `json:"answer"`
	}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if response.Answer != qa.NoAnswer {
		t.Errorf("Expected sentinel answer, got %q", response.Answer)
	}
}

func TestAnswerEndpointEmptyQuestion(t *testing.T) {
	handler, _ := setupTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/answer", bytes.NewBufferString(`{"question":""}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.mux.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestJobStatusEndpoint(t *testing.T) {
	handler, _ := setupTestHandler(t)

	if err := handler.db.CreateJob("job-abc", "/tmp/input.txt"); err != nil {
		t.Fatalf("Failed to create job: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/job-abc", nil)
	w := httptest.NewRecorder()

	handler.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var job models.Job
	if err := json.NewDecoder(w.Body).Decode(&job); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if job.ID != "job-abc" || job.Status != models.JobQueued {
		t.Errorf("Unexpected job: %+v", job)
	}
}

func TestJobStatusNotFound(t *testing.T) {
	handler, _ := setupTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/does-not-exist", nil)
	w := httptest.NewRecorder()

	handler.mux.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestListAnalysesEndpoint(t *testing.T) {
	handler, _ := setupTestHandler(t)

	for i := 0; i < 3; i++ {
		analysis := &models.Analysis{
			ID:        generateID(),
			Input:     "متن نمونه",
			Result:    handler.analyzer.Analyze("متن نمونه"),
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		if err := handler.db.SaveAnalysis(analysis); err != nil {
			t.Fatalf("Failed to save analysis: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/analyses?limit=2", nil)
	w := httptest.NewRecorder()

	handler.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var analyses []*models.Analysis
	if err := json.NewDecoder(w.Body).Decode(&analyses); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if len(analyses) != 2 {
		t.Errorf("Expected 2 analyses, got %d", len(analyses))
	}
}

func TestGetAndDeleteAnalysis(t *testing.T) {
	handler, _ := setupTestHandler(t)

	analysis := &models.Analysis{
		ID:        "analysis-1",
		Input:     "متن نمونه",
		Result:    handler.analyzer.Analyze("متن نمونه"),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := handler.db.SaveAnalysis(analysis); err != nil {
		t.Fatalf("Failed to save analysis: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/analyses/analysis-1", nil)
	w := httptest.NewRecorder()
	handler.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/analyses/analysis-1", nil)
	w = httptest.NewRecorder()
	handler.mux.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/analyses/analysis-1", nil)
	w = httptest.NewRecorder()
	handler.mux.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 after delete, got %d", w.Code)
	}
}

func TestGenerateIDFormat(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := generateID()
		if len(id) != 36 {
			t.Fatalf("Expected 36-character UUID, got %q", id)
		}
		if seen[id] {
			t.Fatalf("Duplicate ID generated: %s", id)
		}
		seen[id] = true
	}
}
