package groundextract

import (
	"fmt"
	"sort"
	"strings"
)

// PromptProvider supplies the task-description template rendered into
// every chunk's prompt. Tag/version mirror the teacher's lookup keys;
// callers that don't need template management can use
// SimplePromptProvider or StickPromptProvider (providers.go).
type PromptProvider interface {
	GetPrompt(tag string, version int) (string, error)
}

// expectedFields collects the union of extraction classes across every
// example's extractions, sorted for deterministic output. It is computed
// once per request and reused for every chunk's prompt and for the
// default MaxOutputTokens estimate, matching the Annotator construction
// step that pre-computes this from examples.
func expectedFields(examples []Example) []string {
	set := make(map[string]struct{})
	for _, ex := range examples {
		for _, e := range ex.Extractions {
			set[e.Class] = struct{}{}
		}
	}
	fields := make([]string, 0, len(set))
	for f := range set {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// estimateMaxOutputTokens derives a default output budget from the
// number of expected fields, following the heuristic that more expected
// classes need more room in the model's response.
func estimateMaxOutputTokens(fields []string) int {
	n := len(fields) * 200
	if n < 500 {
		n = 500
	}
	return n
}

// buildPrompt assembles the final prompt sent to a Provider for one
// chunk: the task description, the expected field list, a JSON-only
// instruction, the few-shot examples rendered as text/extractions pairs,
// and the chunk text itself delimited so the model cannot mistake
// instructions for document content.
func buildPrompt(task string, fields []string, examples []Example, chunkText string) string {
	var b strings.Builder

	b.WriteString(task)
	b.WriteString("\n\n")

	if len(fields) > 0 {
		b.WriteString("Extract the following classes of information: ")
		b.WriteString(strings.Join(fields, ", "))
		b.WriteString(".\n")
	}
	b.WriteString("Respond with a JSON array of objects, each with \"class\", \"text\", ")
	b.WriteString("and optionally \"attributes\". \"text\" must be copied verbatim from the ")
	b.WriteString("source, character for character — never paraphrased or reformatted.\n")

	for _, ex := range examples {
		b.WriteString("\n<<EXAMPLE_DOC>>\n")
		b.WriteString(ex.Text)
		b.WriteString("\n<<EXAMPLE_OUTPUT>>\n")
		b.WriteString(renderExampleOutput(ex.Extractions))
		b.WriteString("\n<<END_EXAMPLE>>\n")
	}

	b.WriteString("\n<<DOC>>\n")
	b.WriteString(chunkText)
	b.WriteString("\n<<END>>")

	return b.String()
}

func renderExampleOutput(extractions []ExampleExtraction) string {
	var b strings.Builder
	b.WriteString("[")
	for i, e := range extractions {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, `{"class": %q, "text": %q}`, e.Class, e.Text)
	}
	b.WriteString("]")
	return b.String()
}
