// Package tokenize implements the CJK+Latin tokenization pipeline used by
// both the Write Guard's similarity stage and the full-text index: the same
// deterministic pipeline must run at indexing time and at query time so the
// two never disagree (spec §4.2).
package tokenize

import (
	"strings"
	"unicode"
)

// maxTokens caps the deduplicated output of Tokenize.
const maxTokens = 30

// stopwords is a small fixed set of common Chinese function words that
// carry no discriminative value for retrieval. No jieba-style segmentation
// library is available in this module's dependency set (see DESIGN.md), so
// the fallback path below — unigrams plus consecutive bigrams over a CJK
// run — is the only segmentation this package performs.
var stopwords = map[string]bool{
	"的": true, "了": true, "在": true, "是": true, "我": true,
	"有": true, "和": true, "就": true, "都": true, "而": true,
	"及": true, "与": true, "也": true, "之": true,
}

// isCJK reports whether r falls in the CJK Unified Ideographs, Hiragana,
// Katakana, or Hangul blocks.
func isCJK(r rune) bool {
	switch {
	case r >= 0x4E00 && r <= 0x9FFF: // CJK Unified Ideographs
		return true
	case r >= 0x3040 && r <= 0x309F: // Hiragana
		return true
	case r >= 0x30A0 && r <= 0x30FF: // Katakana
		return true
	case r >= 0xAC00 && r <= 0xD7A3: // Hangul syllables
		return true
	}
	return false
}

// keepRune reports whether r survives step 1's character-class filter:
// word characters, CJK/Kana/Hangul, or whitespace. Everything else becomes
// a space.
func keepRune(r rune) bool {
	if unicode.IsSpace(r) {
		return true
	}
	if isCJK(r) {
		return true
	}
	// "Word characters" per step 1: letters, digits, underscore.
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// clean applies step 1: replace everything outside the allowed character
// classes with a single space.
func clean(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if keepRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return b.String()
}

// isLatinWord reports whether a cleaned "word" (whitespace-delimited
// token) consists entirely of non-CJK runes, making it eligible for
// step 2's direct emission.
func isLatinWord(w string) bool {
	for _, r := range w {
		if isCJK(r) {
			return false
		}
	}
	return true
}

// segmentCJKRun applies step 3's fallback: the union of unigrams and
// consecutive bigrams over a contiguous run of CJK runes.
func segmentCJKRun(run []rune) []string {
	var out []string
	for i, r := range run {
		out = append(out, string(r))
		if i+1 < len(run) {
			out = append(out, string(run[i:i+2]))
		}
	}
	return out
}

// Tokenize runs the full pipeline over s and returns a deduplicated,
// order-preserving list of at most 30 tokens.
func Tokenize(s string) []string {
	cleaned := clean(s)

	var raw []string
	for _, field := range strings.Fields(cleaned) {
		if isLatinWord(field) {
			// Step 2: emit Latin/numeric words of length > 1.
			lower := strings.ToLower(field)
			if len([]rune(lower)) > 1 {
				raw = append(raw, lower)
			}
			continue
		}
		// A "field" here is whitespace-delimited but may itself be a run of
		// CJK runes possibly interleaved with ASCII the regex let through
		// (e.g. "量子3D"). Split into maximal CJK sub-runs and segment each.
		var run []rune
		flush := func() {
			if len(run) > 0 {
				raw = append(raw, segmentCJKRun(run)...)
				run = run[:0]
			}
		}
		for _, r := range field {
			if isCJK(r) {
				run = append(run, r)
			} else {
				flush()
				lower := strings.ToLower(string(r))
				if len([]rune(lower)) > 1 {
					raw = append(raw, lower)
				}
			}
		}
		flush()
	}

	// Step 4: stopword removal.
	filtered := raw[:0]
	for _, t := range raw {
		if !stopwords[t] {
			filtered = append(filtered, t)
		}
	}

	// Step 5: dedup preserving first occurrence, capped at maxTokens.
	seen := make(map[string]bool, len(filtered))
	out := make([]string, 0, len(filtered))
	for _, t := range filtered {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
		if len(out) >= maxTokens {
			break
		}
	}
	return out
}

// IndexForm joins Tokenize's output with single spaces, producing the
// pre-segmented text handed to the full-text index. FTS5's own (Unicode
// word) tokenizer then sees already-segmented input, so index-side and
// query-side tokenization stay consistent (spec §4.2).
func IndexForm(s string) string {
	return strings.Join(Tokenize(s), " ")
}
