// Package analyzer scores sentiment and extracts named entities from Persian
// text using curated lexicons. It is deliberately rule-based: substring
// containment for sentiment, greedy longest-match-first lookup for entities.
package analyzer

import (
	"sort"
	"strings"

	"github.com/ganjine/parsatext/internal/models"
	"github.com/ganjine/parsatext/internal/normalize"
)

// Analyzer performs text analysis. It holds only immutable lexicon data and
// is safe for concurrent use.
type Analyzer struct {
	normalizer normalize.Normalizer
	positive   []string
	negative   []string
	entities   []TableRow
}

// New creates an Analyzer. The entity table is sorted once by descending
// name length so longer names win over their prefixes; ties keep curated
// order.
func New(normalizer normalize.Normalizer) *Analyzer {
	table := getEntityTable()
	sort.SliceStable(table, func(i, j int) bool {
		return len(table[i].Name) > len(table[j].Name)
	})

	return &Analyzer{
		normalizer: normalizer,
		positive:   getPositiveWords(),
		negative:   getNegativeWords(),
		entities:   table,
	}
}

// Analyze normalizes the raw text, scores its sentiment and extracts
// entities. It never fails: empty input yields a neutral result with no
// entities.
func (a *Analyzer) Analyze(raw string) models.AnalysisResult {
	normalized := a.normalizer.Normalize(raw)

	return models.AnalysisResult{
		Normalized: normalized,
		Sentiment:  a.scoreSentiment(normalized),
		Entities:   a.matchEntities(normalized),
	}
}

// scoreSentiment counts lexicon hits by substring containment, not token
// match, so partial and overlapping occurrences count. With no hits the
// result is NEUTRAL with full confidence; otherwise the score is the
// absolute count difference over the total. Equal counts resolve to
// NEGATIVE: the label flips to POSITIVE only on a strictly positive
// difference.
func (a *Analyzer) scoreSentiment(text string) models.SentimentResult {
	pos := 0
	for _, w := range a.positive {
		if strings.Contains(text, w) {
			pos++
		}
	}
	neg := 0
	for _, w := range a.negative {
		if strings.Contains(text, w) {
			neg++
		}
	}

	total := pos + neg
	if total == 0 {
		return models.SentimentResult{Label: models.SentimentNeutral, Score: 1.0}
	}

	diff := pos - neg
	score := float64(diff)
	if score < 0 {
		score = -score
	}
	label := models.SentimentNegative
	if diff > 0 {
		label = models.SentimentPositive
	}

	return models.SentimentResult{Label: label, Score: score / float64(total)}
}

type span struct {
	start int
	end   int
}

// matchEntities scans the text for each table entry in length-sorted order.
// A candidate occurrence is skipped when it overlaps any previously accepted
// span; the search cursor advances past the candidate either way. Entities
// are emitted in the order found (table order, then position), not sorted by
// offset.
func (a *Analyzer) matchEntities(text string) []models.Entity {
	entities := []models.Entity{}
	var occupied []span

	for _, row := range a.entities {
		cursor := 0
		for {
			idx := strings.Index(text[cursor:], row.Name)
			if idx < 0 {
				break
			}
			start := cursor + idx
			end := start + len(row.Name)

			overlap := false
			for _, s := range occupied {
				if !(end <= s.start || start >= s.end) {
					overlap = true
					break
				}
			}
			if !overlap {
				entities = append(entities, models.Entity{
					Text:  row.Name,
					Label: row.Label,
					Score: 1.0,
					Start: start,
					End:   end,
				})
				occupied = append(occupied, span{start: start, end: end})
			}

			cursor = end
		}
	}

	return entities
}
