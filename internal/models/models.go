package models

import "time"

// Sentiment labels produced by the lexicon scorer.
const (
	SentimentPositive = "POSITIVE"
	SentimentNegative = "NEGATIVE"
	SentimentNeutral  = "NEUTRAL"
)

// Entity labels known to the curated lexicon.
const (
	LabelPerson       = "PER"
	LabelOrganization = "ORG"
	LabelLocation     = "LOC"
)

// Batch job states.
const (
	JobQueued    = "queued"
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

// SentimentResult is the label and confidence derived from lexicon hits.
// NEUTRAL always carries a score of 1.0.
type SentimentResult struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Entity is a name matched in the normalized text. Start and End are byte
// offsets forming a half-open range, so Normalized[Start:End] == Text.
type Entity struct {
	Text  string  `json:"text"`
	Label string  `json:"label"`
	Score float64 `json:"score"`
	Start int     `json:"start"`
	End   int     `json:"end"`
}

// AnalysisResult is the full output for a single text item. Entities are in
// first-found order: longest lexicon names first, then by position.
type AnalysisResult struct {
	Normalized string          `json:"normalized"`
	Sentiment  SentimentResult `json:"sentiment"`
	Entities   []Entity        `json:"entities"`
}

// Analysis is a persisted single-text analysis.
type Analysis struct {
	ID        string         `json:"id"`
	Input     string         `json:"input"`
	Result    AnalysisResult `json:"result"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Job tracks an asynchronous batch file analysis.
type Job struct {
	ID         string    `json:"id"`
	InputPath  string    `json:"input_path"`
	ResultFile string    `json:"result_file,omitempty"`
	LineCount  int       `json:"line_count"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// QAEntry is one record of the curated question/answer dataset.
type QAEntry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// LineAnalysis is one record of a batch output file.
type LineAnalysis struct {
	Input    string         `json:"input"`
	Analysis AnalysisResult `json:"analysis"`
}
