// Package normalize canonicalizes Persian text before matching. Two variants
// exist: Rich unifies Arabic-presentation characters, strips diacritics,
// converts Arabic-Indic digits and collapses whitespace; Basic only trims.
// Both are idempotent: Normalize(Normalize(x)) == Normalize(x).
package normalize

import (
	"strings"
	"unicode"
)

// Normalizer canonicalizes raw text into a stable form.
type Normalizer interface {
	Normalize(text string) string
}

// Tokenizer splits normalized text into word tokens.
type Tokenizer interface {
	Tokenize(text string) []string
}

// Select returns the normalizer/tokenizer pair for the process. The rich
// variant is the default; callers that disable it fall back to Basic with no
// error surfaced.
func Select(rich bool) (Normalizer, Tokenizer) {
	if rich {
		r := Rich{}
		return r, r
	}
	b := Basic{}
	return b, b
}

// Basic is the minimal fallback: trim and whitespace-split.
type Basic struct{}

// Normalize trims leading and trailing whitespace.
func (Basic) Normalize(text string) string {
	return strings.TrimSpace(text)
}

// Tokenize splits on whitespace.
func (Basic) Tokenize(text string) []string {
	return strings.Fields(text)
}

// Rich performs Persian-specific canonicalization.
type Rich struct{}

// charMap unifies Arabic-presentation characters with their Persian forms
// and maps Arabic-Indic digits to Extended Arabic-Indic (Persian) digits.
var charMap = map[rune]rune{
	'ي': 'ی', // ي -> ی
	'ك': 'ک', // ك -> ک
	'ة': 'ه', // ة -> ه
	'٠': '۰',
	'١': '۱',
	'٢': '۲',
	'٣': '۳',
	'٤': '۴',
	'٥': '۵',
	'٦': '۶',
	'٧': '۷',
	'٨': '۸',
	'٩': '۹',
}

// isDiacritic reports Arabic harakat and the tatweel, which carry no
// information for substring matching.
func isDiacritic(r rune) bool {
	return (r >= 'ً' && r <= 'ْ') || r == 'ـ'
}

// Normalize unifies characters, drops diacritics and collapses whitespace
// runs to a single space.
func (Rich) Normalize(text string) string {
	mapped := strings.Map(func(r rune) rune {
		if u, ok := charMap[r]; ok {
			return u
		}
		if isDiacritic(r) {
			return -1
		}
		return r
	}, text)
	return strings.Join(strings.Fields(mapped), " ")
}

// Tokenize splits on whitespace and strips surrounding punctuation from each
// token. The zero-width non-joiner is kept: it is word-internal in Persian.
func (Rich) Tokenize(text string) []string {
	fields := strings.Fields(text)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		tok := strings.TrimFunc(f, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		if tok != "" {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}
