package groundextract

import (
	"context"
	"regexp"
	"strings"
)

// SemanticChunker splits at natural boundaries — paragraph, then
// sentence — so that every emitted chunk's token count stays at or
// under the configured budget. It is the default strategy named in the
// spec.
type SemanticChunker struct{}

func (s *SemanticChunker) Chunks(ctx context.Context, doc *Document, cfg ChunkingConfig) (<-chan Chunk, <-chan error) {
	cfg.withDefaults()
	return runChunker(ctx, doc, cfg, splitSemantic)
}

// paragraphSplitRE matches runs of two or more newlines (with optional
// surrounding horizontal whitespace), the conventional paragraph
// separator.
var paragraphSplitRE = regexp.MustCompile(`\n[ \t]*\n[\s]*`)

// sentenceEndRE matches a sentence terminator (. ! or ?) followed by
// whitespace or end of string. It intentionally is not abbreviation
// aware; an over-eager split only affects batching, never correctness,
// since the aligner always re-derives offsets from the source.
var sentenceEndRE = regexp.MustCompile(`[.!?]+(\s+|$)`)

func splitSemantic(text string, cfg ChunkingConfig) ([]rawChunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	sentences := splitIntoSentenceSpans(text)
	if len(sentences) == 0 {
		return nil, nil
	}

	var raws []rawChunk
	currentPos := 0

	bufStart, bufEnd := sentences[0].start, sentences[0].start

	flush := func(nextStart int) {
		if bufEnd <= bufStart {
			return
		}
		gap := ""
		if nextStart > bufEnd {
			gap = text[bufEnd:nextStart]
		}
		emitRealigned(text, &currentPos, bufStart, bufEnd, gap, &raws, cfg.Logger)
	}

	for _, sp := range sentences {
		if bufEnd > bufStart && cfg.Counter.Count(text[bufStart:sp.end]) > cfg.MaxChunkSize {
			// Adding this sentence would overflow the budget.
			flush(sp.start)
			bufStart = sp.start
		}
		bufEnd = sp.end

		if cfg.Counter.Count(text[bufStart:bufEnd]) > cfg.MaxChunkSize && sp.start == bufStart {
			cfg.Logger.Warn("groundextract: sentence exceeds chunk budget, emitting oversized chunk",
				"start", bufStart, "end", bufEnd, "budget", cfg.MaxChunkSize)
		}
	}
	flush(len(text))

	return raws, nil
}

type sentenceSpan struct{ start, end int }

// splitIntoSentenceSpans splits text first on paragraph boundaries, then
// each paragraph on sentence boundaries, returning spans in source
// order. The gaps between spans (paragraph separators, trailing
// whitespace within a paragraph) are recovered by the caller from the
// source itself, never reconstructed.
func splitIntoSentenceSpans(text string) []sentenceSpan {
	var spans []sentenceSpan
	pos := 0
	for pos < len(text) {
		loc := paragraphSplitRE.FindStringIndex(text[pos:])
		var paraEnd int
		if loc == nil {
			paraEnd = len(text)
		} else {
			paraEnd = pos + loc[0]
		}
		para := text[pos:paraEnd]
		spans = append(spans, splitParagraphIntoSentences(para, pos)...)
		if loc == nil {
			break
		}
		pos += loc[1]
	}
	return spans
}

func splitParagraphIntoSentences(para string, base int) []sentenceSpan {
	if para == "" {
		return nil
	}
	var spans []sentenceSpan
	locs := sentenceEndRE.FindAllStringIndex(para, -1)
	start := 0
	for _, loc := range locs {
		end := loc[1]
		spans = append(spans, sentenceSpan{start: base + start, end: base + end})
		start = end
	}
	if start < len(para) {
		spans = append(spans, sentenceSpan{start: base + start, end: base + len(para)})
	}
	return spans
}

// emitRealigned appends one chunk to raws, performing the spec-mandated
// alignment check: verify source[char_offset..] starts with the chunk
// text before trusting the offset, and if not, realign by scanning
// forward for the chunk's text.
func emitRealigned(text string, currentPos *int, start, end int, gap string, raws *[]rawChunk, log warner) {
	chunkText := text[start:end]
	offset := start
	if !verifyAlignment(text, offset, chunkText) {
		log.Warn("groundextract: chunk offset misaligned with source, realigning by forward scan",
			"expected_offset", offset)
		if idx := indexFrom(text, chunkText, *currentPos); idx >= 0 {
			offset = idx
		}
	}
	*raws = append(*raws, rawChunk{offset: offset, length: len(chunkText), gap: gap})
	*currentPos = offset + len(chunkText)
}

// warner is satisfied by *slog.Logger; kept narrow so chunk-splitting
// code does not need to import log/slog directly.
type warner interface {
	Warn(msg string, args ...any)
}

func indexFrom(text, sub string, from int) int {
	if from < 0 {
		from = 0
	}
	if from > len(text) {
		return -1
	}
	idx := strings.Index(text[from:], sub)
	if idx < 0 {
		return -1
	}
	return from + idx
}
