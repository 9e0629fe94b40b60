package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ganjine/parsatext/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// SaveAnalysis inserts or replaces an analysis.
func (db *DB) SaveAnalysis(analysis *models.Analysis) error {
	resultJSON, err := json.Marshal(analysis.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	_, err = db.conn.Exec(`
		INSERT OR REPLACE INTO analyses (id, input, result, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, analysis.ID, analysis.Input, string(resultJSON), analysis.CreatedAt, analysis.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert analysis: %w", err)
	}

	return nil
}

// GetAnalysis retrieves an analysis by ID.
func (db *DB) GetAnalysis(id string) (*models.Analysis, error) {
	var (
		input      string
		resultJSON string
		createdAt  time.Time
		updatedAt  time.Time
	)

	err := db.conn.QueryRow(`
		SELECT input, result, created_at, updated_at
		FROM analyses
		WHERE id = ?
	`, id).Scan(&input, &resultJSON, &createdAt, &updatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}

	var result models.AnalysisResult
	if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}

	return &models.Analysis{
		ID:        id,
		Input:     input,
		Result:    result,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

// ListAnalyses retrieves analyses with pagination, newest first.
func (db *DB) ListAnalyses(limit, offset int) ([]*models.Analysis, error) {
	rows, err := db.conn.Query(`
		SELECT id, input, result, created_at, updated_at
		FROM analyses
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}
	defer rows.Close()

	var analyses []*models.Analysis
	for rows.Next() {
		var (
			id         string
			input      string
			resultJSON string
			createdAt  time.Time
			updatedAt  time.Time
		)

		if err := rows.Scan(&id, &input, &resultJSON, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		var result models.AnalysisResult
		if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result: %w", err)
		}

		analyses = append(analyses, &models.Analysis{
			ID:        id,
			Input:     input,
			Result:    result,
			CreatedAt: createdAt,
			UpdatedAt: updatedAt,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return analyses, nil
}

// DeleteAnalysis deletes an analysis by ID.
func (db *DB) DeleteAnalysis(id string) error {
	result, err := db.conn.Exec("DELETE FROM analyses WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete analysis: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// CreateJob records a new batch job in the queued state.
func (db *DB) CreateJob(id, inputPath string) error {
	now := time.Now().UTC()
	_, err := db.conn.Exec(`
		INSERT INTO jobs (id, input_path, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, inputPath, models.JobQueued, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert job: %w", err)
	}
	return nil
}

// SetJobRunning marks a job as picked up by a worker.
func (db *DB) SetJobRunning(id string) error {
	return db.updateJob(id, models.JobRunning, "", "", 0)
}

// CompleteJob marks a job finished with its output file and line count.
func (db *DB) CompleteJob(id, resultFile string, lineCount int) error {
	return db.updateJob(id, models.JobCompleted, "", resultFile, lineCount)
}

// FailJob marks a job failed with the final error message.
func (db *DB) FailJob(id, errMsg string) error {
	return db.updateJob(id, models.JobFailed, errMsg, "", 0)
}

func (db *DB) updateJob(id, status, errMsg, resultFile string, lineCount int) error {
	result, err := db.conn.Exec(`
		UPDATE jobs
		SET status = ?, error = ?, result_file = ?, line_count = ?, updated_at = ?
		WHERE id = ?
	`, status, errMsg, resultFile, lineCount, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// GetJob retrieves a job by ID.
func (db *DB) GetJob(id string) (*models.Job, error) {
	job := &models.Job{ID: id}

	err := db.conn.QueryRow(`
		SELECT input_path, result_file, line_count, status, error, created_at, updated_at
		FROM jobs
		WHERE id = ?
	`, id).Scan(&job.InputPath, &job.ResultFile, &job.LineCount, &job.Status, &job.Error,
		&job.CreatedAt, &job.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return job, nil
}

// LogQA records an answered question and the stage that answered it.
func (db *DB) LogQA(question, answer, source string) error {
	_, err := db.conn.Exec(`
		INSERT INTO qa_log (question, answer, source, created_at)
		VALUES (?, ?, ?, ?)
	`, question, answer, source, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to insert qa log: %w", err)
	}
	return nil
}
