package groundextract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectChunks(t *testing.T, chunker Chunker, doc *Document, cfg ChunkingConfig) []Chunk {
	t.Helper()
	out, errc := chunker.Chunks(context.Background(), doc, cfg)
	var chunks []Chunk
	for c := range out {
		chunks = append(chunks, c)
	}
	require.NoError(t, <-errc)
	return chunks
}

// assertReconstructs checks that walking chunk.Text()+chunk.Gap across the
// whole stream reproduces a prefix of the source, and that each chunk's
// slice is exactly source[offset:offset+length].
func assertReconstructs(t *testing.T, source string, chunks []Chunk) {
	t.Helper()
	var rebuilt string
	for i, c := range chunks {
		assert.Equal(t, source[c.CharOffset:c.CharOffset+c.CharLength], c.Text(), "chunk %d text mismatch", i)
		rebuilt += c.Text() + c.Gap
	}
	assert.True(t, len(rebuilt) <= len(source), "rebuilt text longer than source")
	assert.Equal(t, source[:len(rebuilt)], rebuilt)
}

func TestFixedChunker_ReconstructsSource(t *testing.T) {
	source := "The quick brown fox jumps over the lazy dog. It runs fast through the forest."
	doc := NewDocument(source, "", nil)
	cfg := ChunkingConfig{MaxChunkSize: 20, Counter: NewBPETokenCounter("")}
	cfg.withDefaults()

	chunks := collectChunks(t, &FixedChunker{}, &doc, cfg)
	require.NotEmpty(t, chunks)
	assertReconstructs(t, source, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, c.CharLength, 20)
	}
}

func TestFixedChunker_NeverSplitsARune(t *testing.T) {
	source := "café über naïve résumé"
	doc := NewDocument(source, "", nil)
	cfg := ChunkingConfig{MaxChunkSize: 5, Counter: NewBPETokenCounter("")}
	cfg.withDefaults()

	chunks := collectChunks(t, &FixedChunker{}, &doc, cfg)
	for _, c := range chunks {
		assert.True(t, utf8ValidStart(source, c.CharOffset))
	}
	assertReconstructs(t, source, chunks)
}

func utf8ValidStart(s string, offset int) bool {
	if offset == 0 || offset == len(s) {
		return true
	}
	return s[offset]&0xC0 != 0x80
}

func TestSemanticChunker_ReconstructsSource(t *testing.T) {
	source := "First sentence here. Second sentence follows!\n\nNew paragraph starts. It has more content too."
	doc := NewDocument(source, "", nil)
	cfg := ChunkingConfig{MaxChunkSize: 8, Counter: NewBPETokenCounter("")}
	cfg.withDefaults()

	chunks := collectChunks(t, &SemanticChunker{}, &doc, cfg)
	require.NotEmpty(t, chunks)
	assertReconstructs(t, source, chunks)
}

func TestTokenChunker_ReconstructsSource(t *testing.T) {
	source := "alpha beta gamma delta epsilon zeta eta theta iota kappa"
	doc := NewDocument(source, "", nil)
	cfg := ChunkingConfig{MaxChunkSize: 15, Counter: NewBPETokenCounter("")}
	cfg.withDefaults()

	chunks := collectChunks(t, &TokenChunker{}, &doc, cfg)
	require.NotEmpty(t, chunks)
	assertReconstructs(t, source, chunks)
}

func TestSentenceChunker_ReconstructsSource(t *testing.T) {
	source := "One. Two. Three. Four. Five."
	doc := NewDocument(source, "", nil)
	cfg := ChunkingConfig{MaxChunkSize: 10, Counter: NewBPETokenCounter("")}
	cfg.withDefaults()

	chunks := collectChunks(t, &SentenceChunker{}, &doc, cfg)
	require.NotEmpty(t, chunks)
	assertReconstructs(t, source, chunks)
}

func TestParagraphChunker_ReconstructsSource(t *testing.T) {
	source := "Para one line one.\n\nPara two line one. Para two line two.\n\nPara three."
	doc := NewDocument(source, "", nil)
	cfg := ChunkingConfig{MaxChunkSize: 40, Counter: NewBPETokenCounter("")}
	cfg.withDefaults()

	chunks := collectChunks(t, &ParagraphChunker{}, &doc, cfg)
	require.Len(t, chunks, 3)
	assertReconstructs(t, source, chunks)
}

func TestChunker_InvalidUTF8Errors(t *testing.T) {
	doc := NewDocument(string([]byte{0xff, 0xfe}), "", nil)
	cfg := DefaultChunkingConfig()

	out, errc := (&FixedChunker{}).Chunks(context.Background(), &doc, cfg)
	for range out {
		t.Fatal("expected no chunks for invalid UTF-8")
	}
	err := <-errc
	require.Error(t, err)
	var ce *ChunkingError
	require.ErrorAs(t, err, &ce)
}

func TestApplyMaxChunks_MergesTailBySlicingNotJoining(t *testing.T) {
	raws := []rawChunk{
		{offset: 0, length: 5},
		{offset: 5, length: 5},
		{offset: 10, length: 5},
		{offset: 15, length: 5},
	}
	merged := applyMaxChunks(raws, 2)
	require.Len(t, merged, 2)
	assert.Equal(t, rawChunk{offset: 0, length: 5}, merged[0])
	assert.Equal(t, 5, merged[1].offset)
	assert.Equal(t, 15, merged[1].length) // spans offset 5 through 20
}

func TestApplyMaxChunks_NoopWhenUnderLimit(t *testing.T) {
	raws := []rawChunk{{offset: 0, length: 5}, {offset: 5, length: 5}}
	merged := applyMaxChunks(raws, 10)
	assert.Equal(t, raws, merged)
}

func TestVerifyAlignment(t *testing.T) {
	text := "hello world"
	assert.True(t, verifyAlignment(text, 6, "world"))
	assert.False(t, verifyAlignment(text, 0, "world"))
	assert.False(t, verifyAlignment(text, 100, "x"))
}

func TestNewChunker_SelectsStrategy(t *testing.T) {
	assert.IsType(t, &SemanticChunker{}, NewChunker(StrategySemantic))
	assert.IsType(t, &TokenChunker{}, NewChunker(StrategyToken))
	assert.IsType(t, &FixedChunker{}, NewChunker(StrategyFixed))
	assert.IsType(t, &SentenceChunker{}, NewChunker(StrategySentence))
	assert.IsType(t, &ParagraphChunker{}, NewChunker(StrategyParagraph))
}
