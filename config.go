package groundextract

import (
	"log/slog"
	"time"
)

// Config is the single tuning-knob bundle threaded through the whole
// pipeline. Every subsystem reads its parameters from here; nothing may
// hardcode a substitute constant (see SPEC_FULL.md §9 "config threading").
type Config struct {
	ModelID         string
	Provider        Provider
	Temperature     float64
	MaxOutputTokens int // 0 → derived from len(expectedFields) * 200, at least 500

	ChunkingStrategy ChunkingStrategy
	MaxCharBuffer    int // target max tokens/chars per chunk, depending on strategy
	MaxChunks        int

	BatchLength int // prompts per provider HTTP request
	MaxWorkers  int // concurrent inference calls in flight

	EnableMultipass     bool
	MultipassMaxPasses  int
	MultipassYieldFloor float64 // chunks below this yield score are reprocessed

	DedupThreshold     float64 // Jaccard threshold for aggregation, default 0.8
	FuzzyThreshold     float64 // Jaccard threshold for fuzzy alignment, default 0.5
	ConsensusThreshold float64 // Jaccard threshold for multi-pass consensus keys

	CallTimeout     time.Duration // per-inference-call timeout, default 60s
	RequestDeadline time.Duration // per-request deadline, 0 -> unbounded

	FailFast bool // abort the whole request on the first chunk failure

	Debug    bool
	DebugDir string

	Logger *slog.Logger
}

// DefaultConfig returns the documented defaults for every Config field
// that has one.
func DefaultConfig() Config {
	return Config{
		Temperature:         0.5,
		ChunkingStrategy:    StrategySemantic,
		MaxCharBuffer:       4000,
		BatchLength:         10,
		MaxWorkers:          10,
		MultipassMaxPasses:  3,
		MultipassYieldFloor: 0.5,
		DedupThreshold:      0.8,
		FuzzyThreshold:      0.5,
		ConsensusThreshold:  0.8,
		CallTimeout:         60 * time.Second,
		Logger:              slog.Default(),
	}
}

// ConfigOption mutates a Config; NewAnnotator/NewAnnotatorFromPrompt
// accept any number of them layered on top of DefaultConfig().
type ConfigOption func(*Config)

func WithModelID(id string) ConfigOption { return func(c *Config) { c.ModelID = id } }

func WithProvider(p Provider) ConfigOption { return func(c *Config) { c.Provider = p } }

func WithTemperature(t float64) ConfigOption { return func(c *Config) { c.Temperature = t } }

func WithMaxOutputTokens(n int) ConfigOption { return func(c *Config) { c.MaxOutputTokens = n } }

func WithChunkingStrategy(s ChunkingStrategy) ConfigOption {
	return func(c *Config) { c.ChunkingStrategy = s }
}

func WithMaxCharBuffer(n int) ConfigOption { return func(c *Config) { c.MaxCharBuffer = n } }

func WithMaxChunks(n int) ConfigOption { return func(c *Config) { c.MaxChunks = n } }

func WithBatchLength(n int) ConfigOption { return func(c *Config) { c.BatchLength = n } }

func WithMaxWorkers(n int) ConfigOption { return func(c *Config) { c.MaxWorkers = n } }

func WithMultipass(enabled bool, maxPasses int) ConfigOption {
	return func(c *Config) {
		c.EnableMultipass = enabled
		if maxPasses > 0 {
			c.MultipassMaxPasses = maxPasses
		}
	}
}

func WithDedupThreshold(t float64) ConfigOption { return func(c *Config) { c.DedupThreshold = t } }

func WithFuzzyThreshold(t float64) ConfigOption { return func(c *Config) { c.FuzzyThreshold = t } }

func WithCallTimeout(d time.Duration) ConfigOption { return func(c *Config) { c.CallTimeout = d } }

func WithRequestDeadline(d time.Duration) ConfigOption {
	return func(c *Config) { c.RequestDeadline = d }
}

func WithFailFast(b bool) ConfigOption { return func(c *Config) { c.FailFast = b } }

func WithDebug(dir string) ConfigOption {
	return func(c *Config) { c.Debug = true; c.DebugDir = dir }
}

func WithLogger(l *slog.Logger) ConfigOption {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}

// NewConfig builds a Config from DefaultConfig plus the given options.
func NewConfig(opts ...ConfigOption) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return cfg
}

// Validate checks for conflicting or missing configuration, surfaced as
// a ConfigurationError (fatal, never retried).
func (c *Config) Validate() error {
	if c.Provider == nil {
		return &ConfigurationError{Msg: "no provider configured"}
	}
	if c.MaxCharBuffer <= 0 {
		return &ConfigurationError{Msg: "max_char_buffer must be positive"}
	}
	if c.MaxWorkers <= 0 {
		return &ConfigurationError{Msg: "max_workers must be positive"}
	}
	if c.DedupThreshold < 0 || c.DedupThreshold > 1 {
		return &ConfigurationError{Msg: "dedup_threshold must be in [0,1]"}
	}
	if c.FuzzyThreshold < 0 || c.FuzzyThreshold > 1 {
		return &ConfigurationError{Msg: "fuzzy_threshold must be in [0,1]"}
	}
	if c.EnableMultipass && c.MultipassMaxPasses < 1 {
		return &ConfigurationError{Msg: "multipass_max_passes must be >= 1 when multipass is enabled"}
	}
	return nil
}
