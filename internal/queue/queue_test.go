package queue

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestAnalyzeFilePayload tests the AnalyzeFilePayload structure
func TestAnalyzeFilePayload(t *testing.T) {
	payload := AnalyzeFilePayload{
		JobID:      "job-123",
		Path:       "/data/uploads/input.txt",
		EnqueuedAt: 1700000000000000000,
	}

	data, err := json.Marshal(payload)
	assert.NoError(t, err)
	assert.NotEmpty(t, data)

	var decoded AnalyzeFilePayload
	err = json.Unmarshal(data, &decoded)
	assert.NoError(t, err)
	assert.Equal(t, payload.JobID, decoded.JobID)
	assert.Equal(t, payload.Path, decoded.Path)
	assert.Equal(t, payload.EnqueuedAt, decoded.EnqueuedAt)
}

// TestAnalyzeFilePayloadOmitsEmptyTrace verifies trace fields are omitted
// when no span context was active at enqueue time.
func TestAnalyzeFilePayloadOmitsEmptyTrace(t *testing.T) {
	payload := AnalyzeFilePayload{
		JobID: "job-456",
		Path:  "/data/uploads/input.txt",
	}

	data, err := json.Marshal(payload)
	assert.NoError(t, err)
	assert.NotContains(t, string(data), "trace_id")
	assert.NotContains(t, string(data), "span_id")
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"txt extension", "/data/uploads/corpus.txt", "/data/uploads/corpus_analysis.json"},
		{"no extension", "/data/uploads/corpus", "/data/uploads/corpus_analysis.json"},
		{"multiple dots", "/data/uploads/corpus.v2.txt", "/data/uploads/corpus.v2_analysis.json"},
		{"relative path", "input.txt", "input_analysis.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, outputPath(tt.input))
		})
	}
}

func TestRetryDelay(t *testing.T) {
	tests := []struct {
		retries int
		want    string
	}{
		{0, "1m0s"},
		{1, "5m0s"},
		{2, "15m0s"},
		{5, "15m0s"},
	}

	for _, tt := range tests {
		got := retryDelay(tt.retries, nil, nil)
		assert.Equal(t, tt.want, got.String())
	}
}
