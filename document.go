package groundextract

import (
	"unicode/utf8"

	"github.com/google/uuid"
)

// Document is an immutable, shared-ownership view of one input text. Go
// strings already share their backing array across copies, so a
// Document value can be copied or passed by value freely without
// duplicating the source bytes — cloning a Document never clones text.
type Document struct {
	id       string
	text     string
	metadata map[string]string
}

// NewDocument wraps text as a Document, generating a random ID if id is
// empty.
func NewDocument(text string, id string, metadata map[string]string) Document {
	if id == "" {
		id = uuid.NewString()
	}
	return Document{id: id, text: text, metadata: metadata}
}

// ID returns the document's stable identifier.
func (d Document) ID() string { return d.id }

// Text returns the full source text. The returned string is a borrowed
// view; it is never copied.
func (d Document) Text() string { return d.text }

// Len returns the byte length of the source text.
func (d Document) Len() int { return len(d.text) }

// Metadata returns the caller-supplied metadata map, or nil.
func (d Document) Metadata() map[string]string { return d.metadata }

// Slice returns the borrowed substring source[s:e]. Callers must ensure
// 0 <= s <= e <= d.Len().
func (d Document) Slice(s, e int) string { return d.text[s:e] }

// ValidUTF8 reports whether the document's text is valid UTF-8. The
// Chunker and Tokenizer both fail fast with a ChunkingError when this is
// false, per the "fails only on invalid UTF-8 input" contract.
func (d Document) ValidUTF8() bool { return utf8.ValidString(d.text) }
