package queue

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ganjine/parsatext/internal/models"
)

// handleAnalyzeFile analyzes every non-blank line of an uploaded file and
// writes the results next to the input as <name>_analysis.json.
func (w *Worker) handleAnalyzeFile(ctx context.Context, t *asynq.Task) error {
	var payload AnalyzeFilePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		w.logger.Error("failed to unmarshal task payload", "error", err)
		return fmt.Errorf("invalid task payload: %w", err)
	}

	// Calculate queue wait time
	var queueWaitTime time.Duration
	if payload.EnqueuedAt > 0 {
		enqueuedTime := time.Unix(0, payload.EnqueuedAt)
		queueWaitTime = time.Since(enqueuedTime)
	}
	w.businessMetrics.QueueWaitTime.Observe(queueWaitTime.Seconds())

	w.logger.Info("processing batch file",
		"job_id", payload.JobID,
		"path", payload.Path,
		"queue_wait_seconds", queueWaitTime.Seconds(),
	)

	// Recreate trace context from payload if available
	if payload.TraceID != "" && payload.SpanID != "" {
		traceID, err := trace.TraceIDFromHex(payload.TraceID)
		if err == nil {
			spanID, err := trace.SpanIDFromHex(payload.SpanID)
			if err == nil {
				remoteSpanCtx := trace.NewSpanContext(trace.SpanContextConfig{
					TraceID:    traceID,
					SpanID:     spanID,
					TraceFlags: trace.FlagsSampled,
					Remote:     true,
				})
				ctx = trace.ContextWithRemoteSpanContext(ctx, remoteSpanCtx)

				var span trace.Span
				ctx, span = otel.Tracer("parsatext").Start(ctx, "asynq.task.analyze_file",
					trace.WithSpanKind(trace.SpanKindConsumer),
					trace.WithAttributes(
						attribute.String("task.type", TypeAnalyzeFile),
						attribute.String("job.id", payload.JobID),
						attribute.Float64("queue.wait_time_seconds", queueWaitTime.Seconds()),
					),
				)
				defer span.End()
			}
		}
	}

	if err := w.db.SetJobRunning(payload.JobID); err != nil {
		return fmt.Errorf("failed to mark job running: %w", err)
	}

	start := time.Now()
	records, err := w.analyzeFile(payload.Path)
	if err != nil {
		w.businessMetrics.AnalysesTotal.WithLabelValues("error").Inc()
		if dbErr := w.db.FailJob(payload.JobID, err.Error()); dbErr != nil {
			w.logger.Error("failed to mark job failed", "job_id", payload.JobID, "error", dbErr)
		}
		return fmt.Errorf("failed to analyze file: %w", err)
	}

	resultFile := outputPath(payload.Path)
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	if err := os.WriteFile(resultFile, data, 0o644); err != nil {
		w.businessMetrics.AnalysesTotal.WithLabelValues("error").Inc()
		if dbErr := w.db.FailJob(payload.JobID, err.Error()); dbErr != nil {
			w.logger.Error("failed to mark job failed", "job_id", payload.JobID, "error", dbErr)
		}
		return fmt.Errorf("failed to write result file: %w", err)
	}

	if err := w.db.CompleteJob(payload.JobID, resultFile, len(records)); err != nil {
		return fmt.Errorf("failed to mark job completed: %w", err)
	}

	w.businessMetrics.AnalysesTotal.WithLabelValues("batch").Inc()
	w.businessMetrics.AnalysisDuration.Observe(time.Since(start).Seconds())

	w.logger.Info("batch file analyzed",
		"job_id", payload.JobID,
		"result_file", resultFile,
		"line_count", len(records),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// analyzeFile runs the analyzer over each non-blank line of the file.
func (w *Worker) analyzeFile(path string) ([]models.LineAnalysis, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	records := []models.LineAnalysis{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		records = append(records, models.LineAnalysis{
			Input:    line,
			Analysis: w.analyzer.Analyze(line),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}

	return records, nil
}

// outputPath derives the result file path: the input path with its extension
// replaced by the _analysis.json suffix.
func outputPath(inputPath string) string {
	ext := filepath.Ext(inputPath)
	return strings.TrimSuffix(inputPath, ext) + "_analysis.json"
}
