package groundextract

import (
	"log/slog"
	"strings"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// TokenCounter estimates how many model tokens a string costs. The
// Chunker uses it to decide when a chunk is full.
type TokenCounter interface {
	Count(s string) int
}

// BPETokenCounter counts tokens using a real byte-pair-encoding
// tokenizer (cl100k_base by default), matching the spec's requirement
// that production chunking use a BPE counter keyed to the target model
// rather than a word-count heuristic.
type BPETokenCounter struct {
	encoding string

	mu  sync.Mutex
	enc *tiktoken.Tiktoken
}

// NewBPETokenCounter returns a counter for the named tiktoken encoding.
// An empty name defaults to "cl100k_base", the encoding used by GPT-3.5
// and GPT-4 class models and the closest general-purpose stand-in for
// other providers' tokenizers.
func NewBPETokenCounter(encoding string) *BPETokenCounter {
	if encoding == "" {
		encoding = "cl100k_base"
	}
	return &BPETokenCounter{encoding: encoding}
}

func (b *BPETokenCounter) Count(s string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.enc == nil {
		enc, err := tiktoken.GetEncoding(b.encoding)
		if err != nil {
			// Fall back to a conservative byte/4 estimate rather than
			// failing chunking outright if the encoding table can't be
			// loaded (e.g. no network access to fetch BPE ranks).
			slog.Default().Warn("groundextract: failed to load BPE encoding, falling back to estimate",
				"encoding", b.encoding, "error", err)
			return len(s)/4 + 1
		}
		b.enc = enc
	}
	return len(b.enc.Encode(s, nil, nil))
}

// WordCountTokenCounter approximates token count by splitting on
// whitespace. The spec forbids this for production use — it
// underestimates real BPE token counts by 20-40% and causes
// context-window overflows — so this type only exists behind
// NewDebugWordCountTokenCounter, which logs a warning on every call.
type WordCountTokenCounter struct {
	log *slog.Logger
}

// NewDebugWordCountTokenCounter returns a WordCountTokenCounter that
// warns on every Count call. It exists for local debugging when the BPE
// tables are unavailable and must never be wired into a production
// Config.
func NewDebugWordCountTokenCounter(log *slog.Logger) *WordCountTokenCounter {
	if log == nil {
		log = slog.Default()
	}
	return &WordCountTokenCounter{log: log}
}

func (w *WordCountTokenCounter) Count(s string) int {
	w.log.Warn("groundextract: using word-count token estimate; forbidden for production use, underestimates BPE tokens by 20-40%")
	return len(strings.Fields(s))
}
