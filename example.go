package groundextract

// ExampleExtraction is an Extraction stripped of offset/alignment/pass
// bookkeeping — it exists only to seed a few-shot prompt, never to
// describe a real aligned result.
type ExampleExtraction struct {
	Class      string
	Text       string
	Attributes map[string]any
}

// Example is one few-shot demonstration: an input text paired with the
// extractions a correct model response would contain for it.
type Example struct {
	Text        string
	Extractions []ExampleExtraction
}

// NewExample is a small constructor convenience matching the
// functional-option style used across this package.
func NewExample(text string, extractions ...ExampleExtraction) Example {
	return Example{Text: text, Extractions: extractions}
}
