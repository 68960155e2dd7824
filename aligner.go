package groundextract

import (
	"strings"
	"unicode"
)

// AlignmentConfig tunes Aligner behavior.
type AlignmentConfig struct {
	EnableFuzzyAlignment    bool
	FuzzyAlignmentThreshold float64 // Jaccard threshold, default 0.5
	AcceptMatchLesser       bool    // accept the best sub-threshold match rather than AlignmentNone
	CaseSensitive           bool
	MaxSearchWindow         int // fuzzy window lengths tried: the extraction's word count ± this many words; 0 tries that count only
}

// DefaultAlignmentConfig matches the defaults exercised by the
// benchmark fixtures this aligner is grounded on: fuzzy alignment on,
// a 0.5 Jaccard threshold, case-insensitive exact search.
func DefaultAlignmentConfig() AlignmentConfig {
	return AlignmentConfig{
		EnableFuzzyAlignment:    true,
		FuzzyAlignmentThreshold: 0.5,
		AcceptMatchLesser:       false,
		CaseSensitive:           false,
		MaxSearchWindow:         2,
	}
}

// Aligner maps each Extraction's Text back to a CharInterval within a
// chunk's source text.
type Aligner struct {
	cfg AlignmentConfig
}

// NewAligner returns an Aligner with the given config.
func NewAligner(cfg AlignmentConfig) *Aligner { return &Aligner{cfg: cfg} }

// word is one token of source text plus its byte offsets, precomputed
// once per AlignExtractions call so fuzzy matching never has to rebuild
// a candidate span by joining words with spaces — spacing in the
// original is preserved exactly because offsets are sliced from source,
// never reconstructed.
type word struct {
	start, end int
	lower      string
}

// AlignExtractions aligns every extraction's Text against source,
// mutating each Extraction's Interval and Status in place. baseOffset is
// added to every resulting interval so that per-chunk offsets can be
// translated into document-absolute offsets by the caller.
func (a *Aligner) AlignExtractions(extractions []Extraction, source string, baseOffset int) {
	words := splitWords(source)
	searchFrom := 0

	for i := range extractions {
		ext := &extractions[i]
		if ext.Text == "" {
			ext.Status = AlignmentNone
			continue
		}

		if start, end, ok := a.exactMatch(source, ext.Text, searchFrom); ok {
			ext.Interval = &CharInterval{Start: baseOffset + start, End: baseOffset + end}
			ext.Status = AlignmentExact
			searchFrom = end
			continue
		}

		if a.cfg.EnableFuzzyAlignment {
			if start, end, score, ok := a.fuzzyMatch(words, ext.Text, searchFrom); ok {
				ext.Interval = &CharInterval{Start: baseOffset + start, End: baseOffset + end}
				if score >= a.cfg.FuzzyAlignmentThreshold {
					ext.Status = AlignmentFuzzy
				} else if a.cfg.AcceptMatchLesser {
					ext.Status = AlignmentApproximate
				} else {
					ext.Interval = nil
					ext.Status = AlignmentNone
					continue
				}
				continue
			}
		}

		ext.Status = AlignmentNone
	}
}

// exactMatch finds the first occurrence of needle in source at or after
// from, case-folded unless CaseSensitive, and advances past it so a
// second identical extraction finds the next occurrence instead of the
// same one (the "duplicate-advance" rule).
func (a *Aligner) exactMatch(source, needle string, from int) (int, int, bool) {
	if from > len(source) {
		return 0, 0, false
	}
	hay := source
	pat := needle
	if !a.cfg.CaseSensitive {
		hay = strings.ToLower(source)
		pat = strings.ToLower(needle)
	}
	idx := strings.Index(hay[from:], pat)
	if idx < 0 {
		return 0, 0, false
	}
	start := from + idx
	return start, start + len(needle), true
}

// fuzzyMatch slides a window of word-counts close to len(needle's
// words) across words starting at or after the word covering byte
// offset from, scoring each window's text against needle by word-set
// Jaccard similarity, and returns the best-scoring window's byte span.
func (a *Aligner) fuzzyMatch(words []word, needle string, from int) (int, int, float64, bool) {
	needleWords := wordSet(needle, a.cfg.CaseSensitive)
	if len(needleWords) == 0 {
		return 0, 0, 0, false
	}
	targetLen := 0
	for range needleWords {
		targetLen++
	}

	startIdx := 0
	for i, w := range words {
		if w.start >= from {
			startIdx = i
			break
		}
	}

	best := -1.0
	var bestStart, bestEnd int
	found := false

	for i := startIdx; i < len(words); i++ {
		for delta := -a.cfg.MaxSearchWindow; delta <= a.cfg.MaxSearchWindow; delta++ {
			wlen := targetLen + delta
			if wlen <= 0 || i+wlen > len(words) {
				continue
			}
			span := words[i : i+wlen]
			candidate := wordSetFromSpan(span)
			score := jaccard(needleWords, candidate)
			if score > best {
				best = score
				bestStart = span[0].start
				bestEnd = span[len(span)-1].end
				found = true
			}
		}
		// Exact-count window already covers i==startIdx; once we've scanned
		// MaxSearchWindow positions past the first candidate without
		// improvement we could stop, but the corpus sizes here are small
		// enough that a full scan stays cheap and simple.
	}

	if !found {
		return 0, 0, 0, false
	}
	return bestStart, bestEnd, best, true
}

// splitWords tokenizes source into whitespace-separated words with their
// byte offsets (punctuation stays attached to its word), matching the
// strings.Fields split wordSet uses for the extraction side, so both
// sides of the Jaccard comparison agree on word boundaries.
func splitWords(source string) []word {
	var words []word
	start := -1
	for i, r := range source {
		if unicode.IsSpace(r) {
			if start >= 0 {
				words = append(words, word{start: start, end: i, lower: strings.ToLower(source[start:i])})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		words = append(words, word{start: start, end: len(source), lower: strings.ToLower(source[start:])})
	}
	return words
}

func wordSet(s string, caseSensitive bool) map[string]struct{} {
	set := make(map[string]struct{})
	for _, f := range strings.Fields(s) {
		if !caseSensitive {
			f = strings.ToLower(f)
		}
		set[f] = struct{}{}
	}
	return set
}

func wordSetFromSpan(span []word) map[string]struct{} {
	set := make(map[string]struct{}, len(span))
	for _, w := range span {
		set[w.lower] = struct{}{}
	}
	return set
}

// jaccard computes |a∩b| / |a∪b| over two word sets. No library in this
// codebase's dependency corpus provides set-similarity math; the stdlib
// map-based implementation here is the justified exception (see
// DESIGN.md "stdlib-only pieces").
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
