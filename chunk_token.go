package groundextract

import "context"

// TokenChunker tokenizes the entire source once, then emits chunks of
// consecutive tokens whose cumulative byte length stays at or under the
// configured budget, preferring to break after newlines or
// sentence-terminal punctuation. Each emitted chunk's text and interval
// are fixed at emission time; nothing is re-tokenized on access.
type TokenChunker struct{}

func (t *TokenChunker) Chunks(ctx context.Context, doc *Document, cfg ChunkingConfig) (<-chan Chunk, <-chan error) {
	cfg.withDefaults()
	return runChunker(ctx, doc, cfg, splitToken)
}

func splitToken(text string, cfg ChunkingConfig) ([]rawChunk, error) {
	if text == "" {
		return nil, nil
	}
	tokenizer := NewTokenizer()
	tokens, err := tokenizer.Tokenize(text)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, nil
	}

	var raws []rawChunk
	start := tokens[0].Start
	lastGoodBreak := -1 // index into tokens of the last preferred break point

	flush := func(endTokIdx int, nextStart int) {
		end := tokens[endTokIdx].End
		raws = append(raws, rawChunk{offset: start, length: end - start})
		gap := ""
		if nextStart > end {
			gap = text[end:nextStart]
		}
		if len(raws) > 0 {
			raws[len(raws)-1].gap = gap
		}
		start = nextStart
	}

	for i, tok := range tokens {
		length := tok.End - start
		if length > cfg.MaxChunkSize && i > 0 {
			// Prefer the most recent newline/sentence-terminal break
			// point inside the current accumulation; fall back to
			// breaking right before this token.
			breakIdx := i - 1
			if lastGoodBreak >= 0 && lastGoodBreak < i {
				breakIdx = lastGoodBreak
			}
			nextStart := tokens[breakIdx+1].Start
			flush(breakIdx, nextStart)
			lastGoodBreak = -1
			length = tok.End - start
			if length > cfg.MaxChunkSize {
				cfg.Logger.Warn("groundextract: single token run exceeds chunk budget",
					"start", start, "end", tok.End, "budget", cfg.MaxChunkSize)
			}
		}
		if tok.Kind == TokenNewline || (tok.Kind == TokenPunct && isSentenceTerminal(text[tok.Start:tok.End])) {
			lastGoodBreak = i
		}
	}
	flush(len(tokens)-1, len(text))

	return raws, nil
}

func isSentenceTerminal(s string) bool {
	switch s {
	case ".", "!", "?":
		return true
	default:
		return false
	}
}
