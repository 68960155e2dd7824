package groundextract

import (
	"context"
	"strings"
	"unicode/utf8"
)

// FixedChunker is the simplest fallback: it emits consecutive,
// non-overlapping byte ranges of approximately MaxChunkSize bytes each,
// snapping boundaries backward to the nearest rune boundary so no
// chunk splits a multi-byte code point.
type FixedChunker struct{}

func (f *FixedChunker) Chunks(ctx context.Context, doc *Document, cfg ChunkingConfig) (<-chan Chunk, <-chan error) {
	cfg.withDefaults()
	return runChunker(ctx, doc, cfg, splitFixed)
}

func splitFixed(text string, cfg ChunkingConfig) ([]rawChunk, error) {
	if text == "" {
		return nil, nil
	}
	var raws []rawChunk
	pos := 0
	for pos < len(text) {
		end := pos + cfg.MaxChunkSize
		if end > len(text) {
			end = len(text)
		} else {
			for end > pos && !utf8.RuneStart(text[end]) {
				end--
			}
		}
		raws = append(raws, rawChunk{offset: pos, length: end - pos})
		pos = end
	}
	return raws, nil
}

// SentenceChunker emits chunks covering consecutive sentences, using
// character length (rather than a BPE token count) against
// MaxChunkSize, same offset invariants as the other strategies.
type SentenceChunker struct{}

func (s *SentenceChunker) Chunks(ctx context.Context, doc *Document, cfg ChunkingConfig) (<-chan Chunk, <-chan error) {
	cfg.withDefaults()
	return runChunker(ctx, doc, cfg, splitSentenceByChars)
}

func splitSentenceByChars(text string, cfg ChunkingConfig) ([]rawChunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	sentences := splitIntoSentenceSpans(text)
	return groupSpansByCharBudget(text, sentences, cfg)
}

// ParagraphChunker emits chunks covering consecutive paragraphs, using
// character length against MaxChunkSize.
type ParagraphChunker struct{}

func (p *ParagraphChunker) Chunks(ctx context.Context, doc *Document, cfg ChunkingConfig) (<-chan Chunk, <-chan error) {
	cfg.withDefaults()
	return runChunker(ctx, doc, cfg, splitParagraphByChars)
}

func splitParagraphByChars(text string, cfg ChunkingConfig) ([]rawChunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	var spans []sentenceSpan
	pos := 0
	for pos < len(text) {
		loc := paragraphSplitRE.FindStringIndex(text[pos:])
		var end int
		if loc == nil {
			end = len(text)
		} else {
			end = pos + loc[0]
		}
		if end > pos {
			spans = append(spans, sentenceSpan{start: pos, end: end})
		}
		if loc == nil {
			break
		}
		pos += loc[1]
	}
	return groupSpansByCharBudget(text, spans, cfg)
}

// groupSpansByCharBudget is the shared greedy-accumulate loop used by
// the sentence and paragraph fallback strategies: keep adding spans to
// the current chunk while its character length stays within budget,
// flush and start a new chunk otherwise.
func groupSpansByCharBudget(text string, spans []sentenceSpan, cfg ChunkingConfig) ([]rawChunk, error) {
	if len(spans) == 0 {
		return nil, nil
	}
	var raws []rawChunk
	bufStart, bufEnd := spans[0].start, spans[0].start

	flush := func(nextStart int) {
		if bufEnd <= bufStart {
			return
		}
		gap := ""
		if nextStart > bufEnd {
			gap = text[bufEnd:nextStart]
		}
		raws = append(raws, rawChunk{offset: bufStart, length: bufEnd - bufStart, gap: gap})
	}

	for _, sp := range spans {
		if bufEnd > bufStart && (sp.end-bufStart) > cfg.MaxChunkSize {
			flush(sp.start)
			bufStart = sp.start
		}
		bufEnd = sp.end
	}
	flush(len(text))

	return raws, nil
}
