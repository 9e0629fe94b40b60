package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ganjine/parsatext/internal/analyzer"
	"github.com/ganjine/parsatext/internal/database"
	"github.com/ganjine/parsatext/internal/models"
	"github.com/ganjine/parsatext/internal/qa"
	"github.com/ganjine/parsatext/pkg/metrics"
	"github.com/ganjine/parsatext/pkg/tracing"
)

// Enqueuer enqueues batch file analysis tasks.
type Enqueuer interface {
	EnqueueAnalyzeFile(ctx context.Context, jobID, path string) (string, error)
}

// Handler handles HTTP requests
type Handler struct {
	db              *database.DB
	analyzer        *analyzer.Analyzer
	qaEngine        *qa.Engine
	queueClient     Enqueuer
	uploadDir       string
	logger          *slog.Logger
	businessMetrics *metrics.BusinessMetrics
	mux             *http.ServeMux
}

// NewHandler creates a new API handler with CORS support and metrics
func NewHandler(db *database.DB, an *analyzer.Analyzer, qaEngine *qa.Engine, queueClient Enqueuer, uploadDir string, bm *metrics.BusinessMetrics) http.Handler {
	h := &Handler{
		db:              db,
		analyzer:        an,
		qaEngine:        qaEngine,
		queueClient:     queueClient,
		uploadDir:       uploadDir,
		logger:          slog.Default(),
		businessMetrics: bm,
		mux:             http.NewServeMux(),
	}

	h.setupRoutes()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	return c.Handler(h.mux)
}

// setupRoutes configures all API routes
func (h *Handler) setupRoutes() {
	h.mux.Handle("/metrics", promhttp.Handler())
	h.mux.HandleFunc("/api/analyze", h.handleAnalyze)
	h.mux.HandleFunc("/api/answer", h.handleAnswer)
	h.mux.HandleFunc("/api/jobs/", h.handleJobStatus)
	h.mux.HandleFunc("/api/analyses", h.handleListAnalyses)
	h.mux.HandleFunc("/api/analyses/", h.handleAnalysisOperations)
	h.mux.HandleFunc("/health", h.handleHealth)
}

// handleHealth handles health check requests
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleAnalyze handles both synchronous text analysis and batch file
// uploads. A JSON body with a text field is analyzed inline; a multipart
// body with a file field is queued for the worker.
func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		h.analyzeFile(w, r)
		return
	}

	var req struct {
		Text string `json:"text"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.Text) == "" {
		respondError(w, "Text field is required", http.StatusBadRequest)
		return
	}

	tracing.SetSpanAttributes(r.Context(),
		attribute.Int("text.length", len(req.Text)))

	start := time.Now()
	result := h.analyzer.Analyze(req.Text)
	h.businessMetrics.AnalysisDuration.Observe(time.Since(start).Seconds())
	h.businessMetrics.AnalysesTotal.WithLabelValues("sync").Inc()

	analysis := &models.Analysis{
		ID:        generateID(),
		Input:     req.Text,
		Result:    result,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := h.db.SaveAnalysis(analysis); err != nil {
		respondError(w, fmt.Sprintf("Failed to save analysis: %v", err), http.StatusInternalServerError)
		return
	}

	respondJSON(w, map[string]interface{}{
		"ok":     true,
		"id":     analysis.ID,
		"result": result,
	}, http.StatusOK)
}

// analyzeFile stores the uploaded file and queues a batch analysis job.
func (h *Handler) analyzeFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		respondError(w, "Invalid multipart body", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, "File field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	jobID := generateID()
	dstPath := filepath.Join(h.uploadDir, jobID+"_"+filepath.Base(header.Filename))

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		respondError(w, fmt.Sprintf("Failed to store upload: %v", err), http.StatusInternalServerError)
		return
	}
	dst, err := os.Create(dstPath)
	if err != nil {
		respondError(w, fmt.Sprintf("Failed to store upload: %v", err), http.StatusInternalServerError)
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		respondError(w, fmt.Sprintf("Failed to store upload: %v", err), http.StatusInternalServerError)
		return
	}
	dst.Close()

	if err := h.db.CreateJob(jobID, dstPath); err != nil {
		respondError(w, fmt.Sprintf("Failed to create job: %v", err), http.StatusInternalServerError)
		return
	}

	if _, err := h.queueClient.EnqueueAnalyzeFile(r.Context(), jobID, dstPath); err != nil {
		if dbErr := h.db.FailJob(jobID, err.Error()); dbErr != nil {
			h.logger.Error("failed to mark job failed", "job_id", jobID, "error", dbErr)
		}
		respondError(w, fmt.Sprintf("Failed to enqueue analysis: %v", err), http.StatusInternalServerError)
		return
	}

	tracing.SetSpanAttributes(r.Context(),
		attribute.String("job.id", jobID),
		attribute.String("upload.filename", header.Filename))

	respondJSON(w, map[string]interface{}{
		"ok":     true,
		"job_id": jobID,
		"status": models.JobQueued,
	}, http.StatusAccepted)
}

// handleAnswer handles question answering requests
func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Question string `json:"question"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		respondError(w, "Question field is required", http.StatusBadRequest)
		return
	}

	answer, source := h.qaEngine.Answer(r.Context(), req.Question)
	h.businessMetrics.AnswersTotal.WithLabelValues(string(source)).Inc()

	tracing.SetSpanAttributes(r.Context(),
		attribute.String("answer.source", string(source)))

	// Log the exchange, losing it is not worth failing the request.
	if err := h.db.LogQA(req.Question, answer, string(source)); err != nil {
		h.logger.Error("failed to log qa exchange", "error", err)
	}

	respondJSON(w, map[string]interface{}{
		"ok":     true,
		"answer": answer,
	}, http.StatusOK)
}

// handleJobStatus handles job status requests
func (h *Handler) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	jobID := r.URL.Path[len("/api/jobs/"):]
	if idx := strings.Index(jobID, "/"); idx != -1 {
		jobID = jobID[:idx]
	}

	if jobID == "" {
		respondError(w, "Job ID is required", http.StatusBadRequest)
		return
	}

	job, err := h.db.GetJob(jobID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, "Job not found", http.StatusNotFound)
			return
		}
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, job, http.StatusOK)
}

// handleListAnalyses handles listing all analyses with pagination
func (h *Handler) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 10
	offset := 0

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	analyses, err := h.db.ListAnalyses(limit, offset)
	if err != nil {
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, analyses, http.StatusOK)
}

// handleAnalysisOperations handles GET and DELETE for specific analyses
func (h *Handler) handleAnalysisOperations(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Path[len("/api/analyses/"):]
	if id == "" {
		respondError(w, "Analysis ID is required", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getAnalysis(w, id)
	case http.MethodDelete:
		h.deleteAnalysis(w, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// getAnalysis retrieves a specific analysis
func (h *Handler) getAnalysis(w http.ResponseWriter, id string) {
	analysis, err := h.db.GetAnalysis(id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, "Analysis not found", http.StatusNotFound)
			return
		}
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, analysis, http.StatusOK)
}

// deleteAnalysis deletes a specific analysis
func (h *Handler) deleteAnalysis(w http.ResponseWriter, id string) {
	if err := h.db.DeleteAnalysis(id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, "Analysis not found", http.StatusNotFound)
			return
		}
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// generateID generates a UUID for an analysis or job
func generateID() string {
	uuid := make([]byte, 16)
	_, err := rand.Read(uuid)
	if err != nil {
		// Fall back to a timestamp-based ID
		return time.Now().Format("20060102150405") + "-" + strconv.FormatInt(time.Now().UnixNano()%1000000, 10)
	}

	// Set version (4) and variant bits according to RFC 4122
	uuid[6] = (uuid[6] & 0x0f) | 0x40
	uuid[8] = (uuid[8] & 0x3f) | 0x80

	return fmt.Sprintf("%s-%s-%s-%s-%s",
		hex.EncodeToString(uuid[0:4]),
		hex.EncodeToString(uuid[4:6]),
		hex.EncodeToString(uuid[6:8]),
		hex.EncodeToString(uuid[8:10]),
		hex.EncodeToString(uuid[10:16]))
}
