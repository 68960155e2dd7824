package groundextract

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Annotator orchestrates the full pipeline for one document: chunk the
// source, run inference over each chunk with bounded concurrency,
// resolve and align each response, and aggregate the results. Per-chunk
// failures are recorded in AnnotatedDocument.PartialFailures rather than
// aborting the request — the annotation never uses errgroup for this
// fan-out precisely because errgroup cancels every sibling on the first
// error.
type Annotator struct {
	cfg      Config
	task     string
	examples []Example
	fields   []string

	resolver  *Resolver
	aligner   *Aligner
	aggregator *Aggregator
}

// NewAnnotator builds an Annotator for the given task description and
// few-shot examples, applying cfg's options over DefaultConfig(). The
// expected field set and default MaxOutputTokens are computed once here
// rather than per chunk.
func NewAnnotator(task string, examples []Example, opts ...ConfigOption) (*Annotator, error) {
	cfg := NewConfig(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(examples) == 0 {
		return nil, ErrNoExamples
	}

	fields := expectedFields(examples)
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = estimateMaxOutputTokens(fields)
	}

	return &Annotator{
		cfg:      cfg,
		task:     task,
		examples: examples,
		fields:   fields,
		resolver: NewResolver(cfg.Debug),
		aligner: NewAligner(AlignmentConfig{
			EnableFuzzyAlignment:    true,
			FuzzyAlignmentThreshold: cfg.FuzzyThreshold,
			AcceptMatchLesser:       false,
			CaseSensitive:           false,
			MaxSearchWindow:         2,
		}),
		aggregator: NewAggregator(cfg.DedupThreshold),
	}, nil
}

// NewAnnotatorFromPrompt builds an Annotator whose task description is
// rendered from a PromptProvider template instead of a literal string,
// for callers who keep their extraction instructions in template files
// (see StickPromptProvider).
func NewAnnotatorFromPrompt(provider PromptProvider, tag string, version int, examples []Example, opts ...ConfigOption) (*Annotator, error) {
	task, err := provider.GetPrompt(tag, version)
	if err != nil {
		return nil, err
	}
	return NewAnnotator(task, examples, opts...)
}

// Annotate runs the full pipeline over doc and returns the aggregated
// result. It never returns an error for chunk-level failures — those are
// recorded in the returned AnnotatedDocument.PartialFailures — but does
// return an error for request-level problems: invalid UTF-8, chunking
// failure, or (with Config.FailFast) the first chunk failure.
func (an *Annotator) Annotate(ctx context.Context, doc Document) (*AnnotatedDocument, error) {
	if doc.Len() == 0 {
		return nil, ErrEmptyDocument
	}
	if !doc.ValidUTF8() {
		return nil, &ChunkingError{Err: ErrInvalidUTF8}
	}

	if an.cfg.RequestDeadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, an.cfg.RequestDeadline)
		defer cancel()
	}

	chunker := NewChunker(an.cfg.ChunkingStrategy)
	chunkCfg := ChunkingConfig{
		MaxChunkSize: an.cfg.MaxCharBuffer,
		Strategy:     an.cfg.ChunkingStrategy,
		MaxChunks:    an.cfg.MaxChunks,
		Counter:      NewBPETokenCounter(""),
		Logger:       an.cfg.Logger,
	}
	chunks, errc := chunker.Chunks(ctx, &doc, chunkCfg)

	results, err := an.processChunks(ctx, chunks, errc)
	if err != nil {
		return nil, err
	}

	extractions := make([]Extraction, 0)
	failures := make([]ChunkFailure, 0)
	sizes := make(map[int]int, len(results))
	for _, r := range results {
		sizes[r.chunkID] = r.charLength
		if r.failure != nil {
			failures = append(failures, *r.failure)
			continue
		}
		extractions = append(extractions, r.extractions...)
	}

	merged := an.aggregator.Merge(extractions)

	return &AnnotatedDocument{
		Document:        doc,
		Extractions:     merged,
		PartialFailures: failures,
		chunkSizes:      sizes,
	}, nil
}

// chunkResult is one chunk's outcome: either an extractions slice
// (possibly empty if the model legitimately found nothing) or a
// failure record. Exactly one of the two is populated. processChunks
// enforces the "no silent chunk loss" invariant itself, by counting
// every chunk it takes off the channel against every result (or
// deliberate FailFast drain) it produces and returning
// ErrSilentChunkLoss on any mismatch, rather than merely documenting
// the property here.
type chunkResult struct {
	chunkID     int
	charLength  int
	extractions []Extraction
	failure     *ChunkFailure
}

// processChunks fans work out across cfg.MaxWorkers goroutines reading
// from the chunk channel and writing results to a shared slice, without
// using errgroup: a worker that hits an error for its current chunk
// records a ChunkFailure and moves on to the next chunk rather than
// aborting its siblings. This is the bounded, unordered,
// in-flight-capped concurrency pattern the spec requires in place of
// collecting the whole chunk stream before processing it.
//
// Under FailFast, a worker that hits a chunk failure sets aborted and
// every worker (including that one) keeps ranging over chunks but stops
// launching new inference work, draining the channel instead. Workers
// must never return out of the range loop early: the chunk producer in
// runChunker blocks on an unbuffered send until every chunk is read, so
// an early return here — with other workers also idle or gone — can
// leave it stuck forever with its errc never closed.
func (an *Annotator) processChunks(ctx context.Context, chunks <-chan Chunk, chunkErrc <-chan error) ([]chunkResult, error) {
	workers := an.cfg.MaxWorkers
	if workers <= 0 {
		workers = 1
	}

	var (
		mu       sync.Mutex
		results  []chunkResult
		received int
		drained  int
		wg       sync.WaitGroup
		aborted  atomic.Bool
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for chunk := range chunks {
				if an.cfg.FailFast && aborted.Load() {
					mu.Lock()
					received++
					drained++
					mu.Unlock()
					continue
				}

				mu.Lock()
				received++
				mu.Unlock()

				res := an.processChunk(ctx, chunk)

				mu.Lock()
				results = append(results, res)
				mu.Unlock()

				if an.cfg.FailFast && res.failure != nil {
					aborted.Store(true)
				}
			}
		}()
	}
	wg.Wait()

	if err := <-chunkErrc; err != nil {
		return nil, err
	}

	if received != len(results)+drained {
		return nil, ErrSilentChunkLoss
	}

	if an.cfg.FailFast {
		for _, r := range results {
			if r.failure != nil {
				return nil, r.failure.Err
			}
		}
	}

	return results, nil
}

// processChunk runs one chunk through inference, resolution, and
// alignment, returning either its extractions or a ChunkFailure —
// never both, and never neither.
func (an *Annotator) processChunk(ctx context.Context, chunk Chunk) chunkResult {
	log := an.cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	prompt := buildPrompt(an.task, an.fields, an.examples, chunk.Text())

	var responses []string
	err := retryable(ctx, func() error {
		callCtx := ctx
		var cancel context.CancelFunc
		if an.cfg.CallTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, an.cfg.CallTimeout)
			defer cancel()
		}
		out, callErr := an.cfg.Provider.InferBatch(callCtx, []string{prompt}, Params{
			Temperature:     an.cfg.Temperature,
			MaxOutputTokens: an.cfg.MaxOutputTokens,
			ResponseFormat:  ResponseFormatJSON,
		})
		if callErr != nil {
			return callErr
		}
		responses = out
		return nil
	}, log)

	if err != nil {
		log.Warn("groundextract: chunk inference failed", "chunk_id", chunk.ID, "error", err)
		return chunkResult{chunkID: chunk.ID, charLength: chunk.CharLength, failure: &ChunkFailure{ChunkID: chunk.ID, Reason: "inference", Err: err}}
	}
	if len(responses) == 0 {
		return chunkResult{chunkID: chunk.ID, charLength: chunk.CharLength, failure: &ChunkFailure{ChunkID: chunk.ID, Reason: "empty_response", Err: ErrEmptyDocument}}
	}

	extractions, err := an.resolver.ValidateAndParse(responses[0], an.fields)
	if err != nil {
		log.Warn("groundextract: chunk resolution failed", "chunk_id", chunk.ID, "error", err)
		return chunkResult{chunkID: chunk.ID, charLength: chunk.CharLength, failure: &ChunkFailure{ChunkID: chunk.ID, Reason: "resolve", Err: err}}
	}

	for i := range extractions {
		extractions[i].ChunkID = chunk.ID
	}
	an.aligner.AlignExtractions(extractions, chunk.Text(), chunk.CharOffset)

	return chunkResult{chunkID: chunk.ID, charLength: chunk.CharLength, extractions: extractions}
}
