package groundextract

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Runner bounds the concurrency of a batch of all-or-nothing tasks: any
// task's error aborts and is returned from Wait, cancelling the others'
// context. This is the right tool for dispatching one provider batch's
// prompts concurrently — a context where a single failure should abort
// the whole unit of work. It is the wrong tool for per-chunk annotation,
// where one chunk's failure must not cancel its siblings; see
// Annotator.processChunks in annotator.go for that case.
type Runner interface {
	Go(fn func() error)
	Wait() error
	// Context returns the runner's derived context, cancelled as soon as
	// any task returns an error, so in-flight tasks can stop promptly
	// instead of running to completion after their sibling has already
	// failed the batch.
	Context() context.Context
}

// DefaultRunner returns the default implementation backed by errgroup.Group.
func DefaultRunner(ctx context.Context) Runner {
	return newErrGroupRunner(ctx, runtime.NumCPU())
}

// NewLimitedRunner creates a runner with bounded concurrency.
func NewLimitedRunner(ctx context.Context, maxConcurrency int) Runner {
	return newErrGroupRunner(ctx, maxConcurrency)
}

// errGroupRunner is the default implementation backed by errgroup.Group.
type errGroupRunner struct {
	ctx context.Context // derived ctx shared by all tasks
	eg  *errgroup.Group
	sem chan struct{} // concurrency gate
}

func newErrGroupRunner(parent context.Context, maxConcurrency int) *errGroupRunner {
	eg, ctx := errgroup.WithContext(parent)
	return &errGroupRunner{
		ctx: ctx,
		eg:  eg,
		sem: make(chan struct{}, maxConcurrency),
	}
}

func (r *errGroupRunner) Go(fn func() error) {
	r.eg.Go(func() error {
		r.sem <- struct{}{}        // acquire
		defer func() { <-r.sem }() // release
		return fn()
	})
}

func (r *errGroupRunner) Wait() error { return r.eg.Wait() }

func (r *errGroupRunner) Context() context.Context { return r.ctx }
