package groundextract

// AlignmentStatus records how (or whether) an Extraction's text was
// mapped back to a character interval in its source chunk. Values are
// ordered from weakest to strongest grounding, so a larger value is a
// better alignment.
type AlignmentStatus int

const (
	AlignmentNone AlignmentStatus = iota
	AlignmentApproximate
	AlignmentFuzzy
	AlignmentExact
)

func (s AlignmentStatus) String() string {
	switch s {
	case AlignmentExact:
		return "exact"
	case AlignmentFuzzy:
		return "fuzzy"
	case AlignmentApproximate:
		return "approximate"
	default:
		return "none"
	}
}

// CharInterval is a half-open byte range [Start, End) into a document's
// source text.
type CharInterval struct {
	Start int
	End   int
}

// Extraction is one piece of source-grounded structured data. When
// Status is AlignmentExact, source[Interval.Start:Interval.End] equals
// Text (case-insensitively). When Status is AlignmentFuzzy, that same
// slice matches Text with word-set Jaccard similarity at or above the
// configured fuzzy threshold. RawText preserves the original,
// pre-coercion string alongside whatever typed Value coercion produced.
type Extraction struct {
	Class      string
	Text       string
	RawText    string
	Value      any
	Attributes map[string]any

	Interval *CharInterval
	Status   AlignmentStatus

	QualityScore float64
	Pass         int
	ChunkID      int

	// VoteCount is the number of distinct multi-pass runs that produced
	// this extraction (or one judged a duplicate of it). Zero for
	// extractions produced outside RunMultiPass, since a single-pass
	// Annotate call has nothing to vote against.
	VoteCount int
}

// AnnotatedDocument is a Document plus the ordered, deduplicated set of
// its Extractions, plus a record of any chunk that did not contribute
// extractions because its processing failed. A successful Annotate call
// always returns one of these; callers inspect PartialFailures to
// detect chunk losses instead of receiving a request-level error.
type AnnotatedDocument struct {
	Document        Document
	Extractions     []Extraction
	PartialFailures []ChunkFailure

	// chunkSizes maps chunk ID to character length. Unexported: it
	// exists only so RunMultiPass can score each chunk's extraction
	// yield against the document's expected extraction density without
	// re-chunking the source itself.
	chunkSizes map[int]int
}

// ExtractionCount returns the number of extractions in the document.
func (a *AnnotatedDocument) ExtractionCount() int { return len(a.Extractions) }
