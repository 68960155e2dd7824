package groundextract

import (
	"sort"
	"strings"
)

// Aggregator merges per-chunk extraction results into one ordered,
// deduplicated slice for the final AnnotatedDocument.
type Aggregator struct {
	// DedupThreshold is the Jaccard similarity at or above which two
	// extractions of the same class are treated as duplicates and
	// collapsed into the higher-quality one.
	DedupThreshold float64
}

// NewAggregator returns an Aggregator using the given dedup threshold.
func NewAggregator(dedupThreshold float64) *Aggregator {
	return &Aggregator{DedupThreshold: dedupThreshold}
}

// Merge combines all extractions across every chunk of a document,
// first collapsing exact (class, normalized-text) duplicates, then
// collapsing near-duplicates within the same class via pairwise Jaccard
// similarity, and finally ordering the result by source position.
// Extractions with no alignment (Interval == nil) sort after every
// aligned extraction, in their original encounter order.
func (a *Aggregator) Merge(extractions []Extraction) []Extraction {
	exact := a.collapseExact(extractions)
	collapsed := a.collapseFuzzy(exact)
	sortByPosition(collapsed)
	return collapsed
}

// sortByPosition orders extractions by source position, aligned
// extractions before unaligned ones, in original encounter order among
// the unaligned. Shared by Aggregator.Merge and the multi-pass
// consensus merge, which both need this ordering after collapsing
// duplicates.
func sortByPosition(extractions []Extraction) {
	sort.SliceStable(extractions, func(i, j int) bool {
		ii, jj := extractions[i].Interval, extractions[j].Interval
		switch {
		case ii == nil && jj == nil:
			return false
		case ii == nil:
			return false
		case jj == nil:
			return true
		default:
			return ii.Start < jj.Start
		}
	})
}

// collapseExact groups extractions sharing (Class, normalized Text) and
// keeps the highest-quality representative of each group, in first-seen
// order.
func (a *Aggregator) collapseExact(extractions []Extraction) []Extraction {
	type key struct {
		class string
		text  string
	}
	order := make([]key, 0, len(extractions))
	best := make(map[key]Extraction)

	for _, ext := range extractions {
		k := key{class: ext.Class, text: normalizeForDedup(ext.Text)}
		existing, ok := best[k]
		if !ok {
			order = append(order, k)
			best[k] = ext
			continue
		}
		if betterExtraction(ext, existing) {
			best[k] = ext
		}
	}

	out := make([]Extraction, 0, len(order))
	for _, k := range order {
		out = append(out, best[k])
	}
	return out
}

// collapseFuzzy collapses near-duplicate extractions of the same class
// whose text's word-set Jaccard similarity is at or above
// DedupThreshold, keeping whichever of a colliding pair scores better.
func (a *Aggregator) collapseFuzzy(extractions []Extraction) []Extraction {
	if a.DedupThreshold <= 0 {
		return extractions
	}

	kept := make([]Extraction, 0, len(extractions))
	keptSets := make([]map[string]struct{}, 0, len(extractions))

	for _, ext := range extractions {
		set := wordSet(ext.Text, false)
		dup := -1
		for i, other := range kept {
			if other.Class != ext.Class {
				continue
			}
			if jaccard(set, keptSets[i]) >= a.DedupThreshold {
				dup = i
				break
			}
		}
		if dup < 0 {
			kept = append(kept, ext)
			keptSets = append(keptSets, set)
			continue
		}
		if betterExtraction(ext, kept[dup]) {
			kept[dup] = ext
			keptSets[dup] = set
		}
	}
	return kept
}

// betterExtraction reports whether candidate should replace incumbent
// when they are judged duplicates: exact alignment beats fuzzy beats
// approximate beats none, ties broken by QualityScore.
func betterExtraction(candidate, incumbent Extraction) bool {
	if candidate.Status != incumbent.Status {
		return candidate.Status > incumbent.Status
	}
	return candidate.QualityScore > incumbent.QualityScore
}

func normalizeForDedup(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
