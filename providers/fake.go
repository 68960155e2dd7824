package providers

import (
	"context"
	"sync"

	"github.com/groundextract/groundextract"
)

// Fake is a deterministic in-memory Provider for tests, generalizing the
// teacher's testInvoker mock from a single hardcoded response into a
// queue of canned responses consumed one per InferBatch call, plus an
// optional error to return instead.
type Fake struct {
	mu        sync.Mutex
	responses [][]string
	err       error
	calls     []FakeCall
}

// FakeCall records one InferBatch invocation for test assertions.
type FakeCall struct {
	Prompts []string
	Params  groundextract.Params
}

// NewFake returns a Fake with no queued responses; Enqueue before use.
func NewFake() *Fake { return &Fake{} }

// Enqueue appends one batch response, consumed in FIFO order by
// successive InferBatch calls.
func (f *Fake) Enqueue(responsesForOneBatch ...string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, responsesForOneBatch)
	return f
}

// FailNext makes the next InferBatch call return err instead of a
// queued response.
func (f *Fake) FailNext(err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
	return f
}

// Calls returns every recorded InferBatch invocation in order.
func (f *Fake) Calls() []FakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FakeCall{}, f.calls...)
}

func (f *Fake) Name() string { return "fake" }

func (f *Fake) SupportsSchema() bool { return true }

func (f *Fake) InferBatch(_ context.Context, prompts []string, params groundextract.Params) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, FakeCall{Prompts: prompts, Params: params})

	if f.err != nil {
		err := f.err
		f.err = nil
		return nil, err
	}

	if len(f.responses) == 0 {
		// No canned response queued: echo an empty extraction array so
		// callers that don't care about response content still exercise
		// the resolve/align/aggregate stages without crashing.
		out := make([]string, len(prompts))
		for i := range out {
			out[i] = "[]"
		}
		return out, nil
	}

	batch := f.responses[0]
	f.responses = f.responses[1:]

	out := make([]string, len(prompts))
	for i := range prompts {
		if i < len(batch) {
			out[i] = batch[i]
		} else {
			out[i] = "[]"
		}
	}
	return out, nil
}
