package groundextract

import (
	"encoding/json"
	"regexp"
	"strings"
)

// codeFenceRE strips a leading/trailing markdown code fence, with no
// language tag or a "json" one, which LLMs routinely wrap JSON responses
// in. Any other tag stays in the captured text as leading prose.
var codeFenceRE = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

// trailingCommaRE repairs `,}` / `,]` left by models that over-comma
// their last field.
var trailingCommaRE = regexp.MustCompile(`,(\s*[}\]])`)

// unquotedKeyRE repairs `{key: ...}` into `{"key": ...}` — a common LLM
// slip into JS object-literal syntax.
var unquotedKeyRE = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)(\s*:)`)

// Resolver turns a raw model response into validated Extractions. It is
// deliberately tolerant of the ways LLMs corrupt JSON — fenced output,
// trailing commas, unquoted keys, and extra prose around the payload —
// before falling back to reporting a ResolveError.
type Resolver struct {
	// SaveRawOutputs keeps the untouched, pre-repair response string on
	// every resulting ResolveError for debugging; otherwise it is
	// discarded once parsing succeeds.
	SaveRawOutputs bool
}

// NewResolver returns a Resolver with the given raw-output retention
// setting.
func NewResolver(saveRawOutputs bool) *Resolver {
	return &Resolver{SaveRawOutputs: saveRawOutputs}
}

// rawExtraction is the wire shape of one parsed extraction before type
// coercion and alignment.
type rawExtraction struct {
	Class      string         `json:"class"`
	Text       string         `json:"text"`
	Attributes map[string]any `json:"attributes"`
}

// ValidateAndParse cleans, locates, and parses response into a slice of
// Extractions whose Value fields have been type-coerced, but whose
// Interval/Status are not yet set — that is Aligner's job. fields is the
// expected class set; it is not consulted: date coercion is gated by
// each extraction's own class, and extractions whose class is outside
// fields are kept, not filtered or reported.
func (r *Resolver) ValidateAndParse(response string, fields []string) ([]Extraction, error) {
	cleaned := stripFence(response)

	payload, err := locateJSON(cleaned)
	if err != nil {
		return nil, r.fail(ResolveEmptyResponse, response, err)
	}

	repaired := repairJSON(payload)

	raws, err := parseShape(repaired)
	if err != nil {
		return nil, r.fail(ResolveMalformedJSON, response, err)
	}

	out := make([]Extraction, 0, len(raws))
	for _, raw := range raws {
		if raw.Class == "" || raw.Text == "" {
			continue
		}
		value := coerceValue(raw.Class, raw.Text, raw.Attributes)
		out = append(out, Extraction{
			Class:      raw.Class,
			Text:       raw.Text,
			RawText:    raw.Text,
			Value:      value,
			Attributes: raw.Attributes,
		})
	}
	return out, nil
}

func (r *Resolver) fail(kind ResolveErrorKind, raw string, err error) error {
	re := &ResolveError{Kind: kind, Err: err}
	if r.SaveRawOutputs {
		re.Raw = raw
	}
	return re
}

// stripFence removes a single leading/trailing ``` or ```json fence, and
// trims any surrounding whitespace left behind.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if m := codeFenceRE.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return s
}

// locateJSON finds the first balanced top-level JSON value (object or
// array) in s, tolerating leading/trailing prose models sometimes add
// around the payload ("Here is the JSON: [...] Let me know if...").
func locateJSON(s string) (string, error) {
	start := strings.IndexAny(s, "[{")
	if start < 0 {
		return "", ErrEmptyDocument
	}
	open := s[start]
	close := byte('}')
	if open == '[' {
		close = ']'
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", ErrEmptyDocument
}

// repairJSON fixes the handful of malformations LLMs reliably produce:
// trailing commas before a closing bracket, and unquoted object keys.
// It never attempts to repair truncated/unbalanced JSON — locateJSON
// already guaranteed balance.
func repairJSON(s string) string {
	s = trailingCommaRE.ReplaceAllString(s, "$1")
	s = unquotedKeyRE.ReplaceAllString(s, `$1"$2"$3`)
	return s
}

// parseShape accepts any of the three response shapes a model may
// produce and normalizes them into a flat list of rawExtraction:
//   - a bare JSON array of extraction objects
//   - {"extractions": [...]}
//   - a class -> value map, e.g. {"name": "Acme", "total": "42.00"}
func parseShape(payload string) ([]rawExtraction, error) {
	trimmed := strings.TrimSpace(payload)

	if strings.HasPrefix(trimmed, "[") {
		var arr []rawExtraction
		if err := json.Unmarshal([]byte(trimmed), &arr); err == nil {
			return arr, nil
		}
		// Array of bare class->value maps, one extraction per element field.
		var maps []map[string]any
		if err := json.Unmarshal([]byte(trimmed), &maps); err != nil {
			return nil, err
		}
		var out []rawExtraction
		for _, m := range maps {
			out = append(out, classMapToExtractions(m)...)
		}
		return out, nil
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
		return nil, err
	}

	if raw, ok := obj["extractions"]; ok {
		encoded, err := json.Marshal(raw)
		if err != nil {
			return nil, err
		}
		var arr []rawExtraction
		if err := json.Unmarshal(encoded, &arr); err != nil {
			return nil, err
		}
		return arr, nil
	}

	return classMapToExtractions(obj), nil
}

// classMapToExtractions converts a flat {"class": value, ...} object
// into one rawExtraction per key, stringifying non-string values.
func classMapToExtractions(m map[string]any) []rawExtraction {
	out := make([]rawExtraction, 0, len(m))
	for k, v := range m {
		out = append(out, rawExtraction{Class: k, Text: stringify(v)})
	}
	return out
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
