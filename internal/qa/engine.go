// Package qa answers Persian history questions. It first matches the
// question against a curated dataset by token-set similarity; when no entry
// clears the threshold it falls back to an external encyclopedia lookup, and
// finally to a fixed sentinel answer.
package qa

import (
	"context"
	_ "embed"
	"encoding/json"
	"log/slog"
	"os"
	"sync"

	"github.com/ganjine/parsatext/internal/models"
	"github.com/ganjine/parsatext/internal/normalize"
)

// NoAnswer is returned when neither the dataset nor the fallback yields an
// answer. The exact literal is user-visible API content.
const NoAnswer = "جواب یافت نشد."

// DefaultThreshold is the minimum Jaccard similarity for a local match.
const DefaultThreshold = 0.2

// Source identifies which stage produced an answer.
type Source string

const (
	SourceLocal Source = "local"
	SourceWiki  Source = "wiki"
	SourceNone  Source = "none"
)

//go:embed qa_data.json
var defaultDataset []byte

// Fallback is the external lookup consulted when local matching fails.
type Fallback interface {
	Summary(ctx context.Context, query string, sentences int) (string, bool)
}

// Config configures a QA engine.
type Config struct {
	// DatasetPath points at the question/answer JSON file. Empty means the
	// embedded default dataset.
	DatasetPath string
	// Threshold is the minimum similarity for a local match; zero means
	// DefaultThreshold.
	Threshold float64
	// Fallback may be nil, in which case unmatched questions go straight to
	// the sentinel.
	Fallback Fallback
}

type datasetEntry struct {
	question string
	answer   string
	tokens   map[string]struct{}
}

// Engine matches questions against the dataset and orchestrates the
// fallback chain. The dataset is loaded lazily on first use and cached for
// the process lifetime; a load failure degrades to an empty dataset.
type Engine struct {
	normalizer normalize.Normalizer
	tokenizer  normalize.Tokenizer
	fallback   Fallback
	path       string
	threshold  float64
	logger     *slog.Logger

	once    sync.Once
	entries []datasetEntry
}

// New creates a QA engine.
func New(normalizer normalize.Normalizer, tokenizer normalize.Tokenizer, cfg Config) *Engine {
	threshold := cfg.Threshold
	if threshold == 0 {
		threshold = DefaultThreshold
	}

	return &Engine{
		normalizer: normalizer,
		tokenizer:  tokenizer,
		fallback:   cfg.Fallback,
		path:       cfg.DatasetPath,
		threshold:  threshold,
		logger:     slog.Default(),
	}
}

// Answer resolves a question: local dataset match, then external fallback,
// then the NoAnswer sentinel. It never fails for any string input.
func (e *Engine) Answer(ctx context.Context, question string) (string, Source) {
	if answer, ok := e.MatchLocal(question); ok {
		return answer, SourceLocal
	}
	if e.fallback != nil {
		if summary, ok := e.fallback.Summary(ctx, question, 2); ok {
			return summary, SourceWiki
		}
	}
	return NoAnswer, SourceNone
}

// MatchLocal scores the question against every dataset entry by Jaccard
// similarity of normalized token sets. An entry is accepted only when its
// score beats the best so far and clears the threshold.
func (e *Engine) MatchLocal(question string) (string, bool) {
	e.once.Do(e.load)

	tokens := tokenSet(e.tokenizer.Tokenize(e.normalizer.Normalize(question)))

	best := 0.0
	answer := ""
	found := false
	for _, entry := range e.entries {
		score := jaccard(tokens, entry.tokens)
		if score > best && score >= e.threshold {
			best = score
			answer = entry.answer
			found = true
		}
	}
	return answer, found
}

// load reads and indexes the dataset. Any failure leaves the engine with an
// empty dataset; local matching then always misses, which is the designed
// degradation rather than an error.
func (e *Engine) load() {
	data := defaultDataset
	if e.path != "" {
		fileData, err := os.ReadFile(e.path)
		if err != nil {
			e.logger.Warn("qa dataset unreadable, degrading to empty dataset",
				"path", e.path, "error", err)
			return
		}
		data = fileData
	}

	var raw []models.QAEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		e.logger.Warn("qa dataset malformed, degrading to empty dataset",
			"path", e.path, "error", err)
		return
	}

	entries := make([]datasetEntry, 0, len(raw))
	for _, r := range raw {
		entries = append(entries, datasetEntry{
			question: r.Question,
			answer:   r.Answer,
			tokens:   tokenSet(e.tokenizer.Tokenize(e.normalizer.Normalize(r.Question))),
		})
	}
	e.entries = entries

	e.logger.Info("qa dataset loaded", "entries", len(entries))
}

func tokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// jaccard is |A∩B| / |A∪B|; an empty set on either side yields 0.0.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	intersection := 0
	for t := range a {
		if _, ok := b[t]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}
