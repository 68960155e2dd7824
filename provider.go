package groundextract

import "context"

// ResponseFormat constrains how a Provider should shape its raw output.
type ResponseFormat int

const (
	ResponseFormatText ResponseFormat = iota
	ResponseFormatJSON
)

// Params is the enumerated inference configuration threaded from
// Config down to every Provider call. No subsystem may substitute its
// own constant for any of these — see the "config threading" design
// note.
type Params struct {
	Temperature     float64
	MaxOutputTokens int
	TopP            float64
	ResponseFormat  ResponseFormat
	Schema          []byte // optional JSON Schema, provider-enforced when SupportsSchema()
	Stop            []string
}

// Provider is the abstract inference capability every LLM backend
// implements. A single InferBatch call dispatches every prompt in the
// batch concurrently — never serially, which would defeat the point of
// batching — and returns responses in the same order as the input
// prompts.
type Provider interface {
	// InferBatch returns one response string per prompt, same order.
	InferBatch(ctx context.Context, prompts []string, params Params) ([]string, error)
	// SupportsSchema reports whether this provider can enforce Params.Schema
	// server-side (e.g. Gemini response_schema, OpenAI json_schema).
	SupportsSchema() bool
	// Name identifies the provider for logging and InferenceError.Provider.
	Name() string
}
