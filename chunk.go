package groundextract

import (
	"context"
	"log/slog"
	"strings"
)

// Chunk is a half-open byte range [CharOffset, CharOffset+CharLength)
// into a Document, plus an ordinal ID. Its text is always derived by
// slicing the shared source — a Chunk never owns a copy of its text.
type Chunk struct {
	Doc        *Document
	ID         int
	CharOffset int
	CharLength int

	// Gap records whitespace-only bytes deliberately trimmed between
	// the end of this chunk and the start of the next one, so that
	// concatenating chunk.Text() + chunk.Gap across the stream always
	// reconstructs a prefix of the source.
	Gap string
}

// Text returns the borrowed slice of the source this chunk covers.
func (c Chunk) Text() string {
	return c.Doc.Slice(c.CharOffset, c.CharOffset+c.CharLength)
}

// End returns the exclusive end offset of the chunk.
func (c Chunk) End() int { return c.CharOffset + c.CharLength }

// ChunkingStrategy selects one of the fixed set of Chunker
// implementations. The set is closed, so a tagged enum is the right
// polymorphism strategy (see SPEC_FULL.md §9 "polymorphism strategy").
type ChunkingStrategy int

const (
	StrategySemantic ChunkingStrategy = iota
	StrategyToken
	StrategyFixed
	StrategySentence
	StrategyParagraph
)

// ChunkingConfig configures any Chunker implementation.
type ChunkingConfig struct {
	// MaxChunkSize is the target token budget per chunk for the semantic
	// strategy, and the byte-length budget for the token, fixed,
	// sentence and paragraph strategies.
	MaxChunkSize int
	Strategy     ChunkingStrategy
	// MaxChunks caps the number of emitted chunks; beyond it, the final
	// N-MaxChunks+1 chunks are merged into one by slicing the source
	// directly from the first chunk's start to the last chunk's end —
	// never by joining chunk texts, which would introduce whitespace
	// the original did not have.
	MaxChunks int
	// Counter is the pluggable token counter used by strategies that
	// count tokens rather than characters. Defaults to BPETokenCounter.
	Counter TokenCounter
	Logger  *slog.Logger
}

// DefaultChunkingConfig returns sane defaults: semantic strategy, a
// 4000-"token" budget, no chunk cap, and the BPE counter.
func DefaultChunkingConfig() ChunkingConfig {
	return ChunkingConfig{
		MaxChunkSize: 4000,
		Strategy:     StrategySemantic,
		MaxChunks:    0,
		Counter:      NewBPETokenCounter(""),
		Logger:       slog.Default(),
	}
}

func (c *ChunkingConfig) withDefaults() {
	if c.MaxChunkSize <= 0 {
		c.MaxChunkSize = 4000
	}
	if c.Counter == nil {
		c.Counter = NewBPETokenCounter("")
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Chunker emits a document's chunks as a lazy, ordered sequence. The
// source is shared by reference; implementations must not copy it.
// Chunks and errors are delivered on separate channels so that a
// consumer can process chunks as they are produced instead of waiting
// for the whole document to be split — the "lazy ordered sequence"
// contract from the spec.
type Chunker interface {
	Chunks(ctx context.Context, doc *Document, cfg ChunkingConfig) (<-chan Chunk, <-chan error)
}

// NewChunker returns the Chunker implementation named by strategy.
func NewChunker(strategy ChunkingStrategy) Chunker {
	switch strategy {
	case StrategyToken:
		return &TokenChunker{}
	case StrategyFixed:
		return &FixedChunker{}
	case StrategySentence:
		return &SentenceChunker{}
	case StrategyParagraph:
		return &ParagraphChunker{}
	default:
		return &SemanticChunker{}
	}
}

// runChunker drives the common channel-emission boilerplate shared by
// every strategy: validate UTF-8, run the strategy-specific split
// function to get raw (offset, length) ranges plus inter-chunk gaps,
// then stream them out as Chunks, respecting context cancellation and
// the MaxChunks merge rule.
func runChunker(ctx context.Context, doc *Document, cfg ChunkingConfig, split func(text string, cfg ChunkingConfig) ([]rawChunk, error)) (<-chan Chunk, <-chan error) {
	out := make(chan Chunk)
	errc := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errc)

		if !doc.ValidUTF8() {
			errc <- &ChunkingError{Err: ErrInvalidUTF8}
			return
		}

		raws, err := split(doc.Text(), cfg)
		if err != nil {
			errc <- err
			return
		}

		raws = applyMaxChunks(raws, cfg.MaxChunks)

		for i, rc := range raws {
			select {
			case <-ctx.Done():
				errc <- &CancellationError{Err: ctx.Err()}
				return
			case out <- Chunk{Doc: doc, ID: i, CharOffset: rc.offset, CharLength: rc.length, Gap: rc.gap}:
			}
		}
	}()

	return out, errc
}

// rawChunk is the strategy-internal representation of one emitted
// chunk's offsets before it is wrapped into a public Chunk.
type rawChunk struct {
	offset int
	length int
	gap    string // whitespace trimmed between this chunk and the next one
}

// applyMaxChunks enforces ChunkingConfig.MaxChunks by merging the tail
// into a single chunk spanning [first.offset, last.offset+last.length),
// sliced directly — never by joining chunk texts.
func applyMaxChunks(raws []rawChunk, max int) []rawChunk {
	if max <= 0 || len(raws) <= max {
		return raws
	}
	head := raws[:max-1]
	tail := raws[max-1:]
	first, last := tail[0], tail[len(tail)-1]
	merged := rawChunk{
		offset: first.offset,
		length: last.offset + last.length - first.offset,
		gap:    last.gap,
	}
	return append(append([]rawChunk{}, head...), merged)
}

// verifyAlignment checks that text[offset:].HasPrefix(chunkText); the
// semantic chunker uses this before emitting, as required by the spec's
// "before emitting, verify source[char_offset..].starts_with(chunk_text)"
// step. On mismatch it reports the caller should realign by scanning
// forward; this helper only detects the condition.
func verifyAlignment(text string, offset int, chunkText string) bool {
	if offset < 0 || offset > len(text) {
		return false
	}
	return strings.HasPrefix(text[offset:], chunkText)
}
