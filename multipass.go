package groundextract

import (
	"context"
	"math"
	"sort"
)

// passTemperature applies the documented decay t_p = t_1 * 0.8^(p-1),
// floored at 0.05 so later passes never go fully deterministic and lose
// the sampling diversity that makes additional passes worth running.
func passTemperature(base float64, pass int) float64 {
	t := base * math.Pow(0.8, float64(pass-1))
	if t < 0.05 {
		return 0.05
	}
	return t
}

// kilobytes converts a chunk's character length to kilobytes for the
// yield-score formula, flooring at one byte (1/1024 KB) so a
// zero-length chunk never divides density by zero.
func kilobytes(charLength int) float64 {
	kb := float64(charLength) / 1024
	if kb <= 0 {
		return 1.0 / 1024
	}
	return kb
}

// medianExtractionDensity computes expected_density: the median
// extractions-per-kilobyte across every chunk pass 1 produced. Each
// later pass's under-yielding chunks are judged against this same
// baseline rather than recomputing it per pass.
func medianExtractionDensity(sizes, countByChunk map[int]int) float64 {
	if len(sizes) == 0 {
		return 0
	}
	densities := make([]float64, 0, len(sizes))
	for chunkID, size := range sizes {
		densities = append(densities, float64(countByChunk[chunkID])/kilobytes(size))
	}
	sort.Float64s(densities)
	mid := len(densities) / 2
	if len(densities)%2 == 0 {
		return (densities[mid-1] + densities[mid]) / 2
	}
	return densities[mid]
}

// underYields reports whether a chunk's yield_score — extractions in
// the chunk divided by its expected extraction count — falls below
// cfg.MultipassYieldFloor. A failed chunk always counts as
// under-yielding regardless of the formula.
func underYields(failed bool, count, charLength int, expectedDensity, floor float64) bool {
	if failed {
		return true
	}
	denom := math.Max(1, expectedDensity*kilobytes(charLength))
	return float64(count)/denom < floor
}

// RunMultiPass repeats Annotate up to cfg.MultipassMaxPasses times,
// reprocessing only chunks whose yield score falls below
// cfg.MultipassYieldFloor, then consensus-merges every pass's
// extractions by vote count instead of simply deduplicating them.
func (an *Annotator) RunMultiPass(ctx context.Context, doc Document) (*AnnotatedDocument, error) {
	if !an.cfg.EnableMultipass {
		return an.Annotate(ctx, doc)
	}

	baseTemp := an.cfg.Temperature
	passes := an.cfg.MultipassMaxPasses
	if passes < 1 {
		passes = 1
	}

	var (
		allExtractions  []Extraction
		failures        []ChunkFailure
		chunkSizes      map[int]int
		expectedDensity float64
	)
	underYielded := map[int]bool{}

	for pass := 1; pass <= passes; pass++ {
		an.cfg.Temperature = passTemperature(baseTemp, pass)

		result, err := an.Annotate(ctx, doc)
		an.cfg.Temperature = baseTemp
		if err != nil {
			return nil, err
		}

		countByChunk := make(map[int]int)
		for i := range result.Extractions {
			result.Extractions[i].Pass = pass
			countByChunk[result.Extractions[i].ChunkID]++
		}
		failedChunk := make(map[int]bool, len(result.PartialFailures))
		for _, f := range result.PartialFailures {
			failedChunk[f.ChunkID] = true
		}

		if pass == 1 {
			allExtractions = append(allExtractions, result.Extractions...)
			failures = result.PartialFailures
			chunkSizes = result.chunkSizes
			expectedDensity = medianExtractionDensity(chunkSizes, countByChunk)

			for chunkID, size := range chunkSizes {
				if underYields(failedChunk[chunkID], countByChunk[chunkID], size, expectedDensity, an.cfg.MultipassYieldFloor) {
					underYielded[chunkID] = true
				}
			}
			if len(underYielded) == 0 {
				break
			}
			continue
		}

		// Later passes only contribute extractions for chunks that were
		// flagged as under-yielding; extractions from already-converged
		// chunks are dropped to avoid diluting consensus with repeats of
		// work that was already good enough.
		for _, ext := range result.Extractions {
			if underYielded[ext.ChunkID] {
				allExtractions = append(allExtractions, ext)
			}
		}

		stillLow := map[int]bool{}
		for chunkID := range underYielded {
			size := chunkSizes[chunkID]
			if underYields(failedChunk[chunkID], countByChunk[chunkID], size, expectedDensity, an.cfg.MultipassYieldFloor) {
				stillLow[chunkID] = true
			}
		}
		underYielded = stillLow
		if len(underYielded) == 0 {
			break
		}
	}

	merged := an.consensusMerge(allExtractions)

	return &AnnotatedDocument{
		Document:        doc,
		Extractions:     merged,
		PartialFailures: failures,
		chunkSizes:      chunkSizes,
	}, nil
}

// consensusEntry is one (class, normalized_text) key's merge state
// across every pass: the best-judged representative extraction seen so
// far, and the set of distinct passes that produced a matching
// extraction.
type consensusEntry struct {
	best   Extraction
	passes map[int]bool
}

func (e *consensusEntry) voteCount() int { return len(e.passes) }

// minPass returns the earliest pass that contributed to this entry;
// used to tell a genuine baseline extraction (present in pass 1) apart
// from one only a later, reprocessing pass produced.
func (e *consensusEntry) minPass() int {
	min := math.MaxInt
	for p := range e.passes {
		if p < min {
			min = p
		}
	}
	return min
}

// betterConsensusCandidate reports whether candidate should be chosen
// as the representative extraction over incumbent when two consensus
// entries collide: higher vote_count wins, then exact alignment, then
// quality score.
func betterConsensusCandidate(candidate, incumbent *consensusEntry) bool {
	if candidate.voteCount() != incumbent.voteCount() {
		return candidate.voteCount() > incumbent.voteCount()
	}
	if candidate.best.Status != incumbent.best.Status {
		return candidate.best.Status > incumbent.best.Status
	}
	return candidate.best.QualityScore > incumbent.best.QualityScore
}

// consensusMerge implements the multi-pass consensus merge: every
// pass's extractions feed a merge map keyed on (class,
// normalized_text), recording each key's vote_count (distinct passes
// producing it) and best quality/alignment. Near-duplicate keys of the
// same class are then folded together at cfg.ConsensusThreshold, same
// as Aggregator's fuzzy collapse but combining vote counts instead of
// discarding the loser outright. A singleton whose only vote comes from
// a pass after the first is kept only if it aligned exactly — an
// unreplicated later-pass finding is trusted no further than its own
// grounding.
func (an *Annotator) consensusMerge(allExtractions []Extraction) []Extraction {
	type key struct {
		class string
		text  string
	}
	entries := make(map[key]*consensusEntry, len(allExtractions))
	order := make([]key, 0, len(allExtractions))

	for _, ext := range allExtractions {
		k := key{class: ext.Class, text: normalizeForDedup(ext.Text)}
		e, ok := entries[k]
		if !ok {
			e = &consensusEntry{best: ext, passes: map[int]bool{ext.Pass: true}}
			entries[k] = e
			order = append(order, k)
			continue
		}
		e.passes[ext.Pass] = true
		if betterExtraction(ext, e.best) {
			e.best = ext
		}
	}

	list := make([]*consensusEntry, 0, len(order))
	for _, k := range order {
		list = append(list, entries[k])
	}
	collapsed := collapseConsensusFuzzy(list, an.cfg.ConsensusThreshold)

	out := make([]Extraction, 0, len(collapsed))
	for _, e := range collapsed {
		if e.voteCount() == 1 && e.minPass() > 1 && e.best.Status != AlignmentExact {
			continue
		}
		ext := e.best
		ext.VoteCount = e.voteCount()
		out = append(out, ext)
	}
	sortByPosition(out)
	return out
}

// collapseConsensusFuzzy folds near-duplicate consensus entries of the
// same class together when their text's word-set Jaccard similarity is
// at or above threshold, unioning their pass sets (so the same pass
// voting for near-duplicate text never counts twice) and keeping
// whichever entry's fields betterConsensusCandidate prefers.
func collapseConsensusFuzzy(entries []*consensusEntry, threshold float64) []*consensusEntry {
	if threshold <= 0 {
		return entries
	}

	kept := make([]*consensusEntry, 0, len(entries))
	keptSets := make([]map[string]struct{}, 0, len(entries))

	for _, e := range entries {
		set := wordSet(e.best.Text, false)
		dup := -1
		for i, other := range kept {
			if other.best.Class != e.best.Class {
				continue
			}
			if jaccard(set, keptSets[i]) >= threshold {
				dup = i
				break
			}
		}
		if dup < 0 {
			kept = append(kept, e)
			keptSets = append(keptSets, set)
			continue
		}
		kept[dup] = mergeConsensusEntries(kept[dup], e)
		keptSets[dup] = wordSet(kept[dup].best.Text, false)
	}
	return kept
}

// mergeConsensusEntries unions two colliding entries' pass sets and
// keeps the representative extraction betterConsensusCandidate prefers.
func mergeConsensusEntries(a, b *consensusEntry) *consensusEntry {
	passes := make(map[int]bool, len(a.passes)+len(b.passes))
	for p := range a.passes {
		passes[p] = true
	}
	for p := range b.passes {
		passes[p] = true
	}
	merged := &consensusEntry{passes: passes}
	if betterConsensusCandidate(&consensusEntry{best: b.best, passes: b.passes}, &consensusEntry{best: a.best, passes: a.passes}) {
		merged.best = b.best
	} else {
		merged.best = a.best
	}
	return merged
}
