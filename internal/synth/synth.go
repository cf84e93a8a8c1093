// Package synth drafts docstrings for the callables of a source unit by
// sending one request per callable to a backend generator.
package synth

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/phobologic/pydocgen/internal/backend"
	"github.com/phobologic/pydocgen/internal/model"
	"github.com/phobologic/pydocgen/internal/style"
)

// Defaults for Options fields left zero.
const (
	DefaultConcurrency    = 4
	DefaultMaxAttempts    = 3
	DefaultRetryBaseDelay = 500 * time.Millisecond
	DefaultCallTimeout    = 60 * time.Second
)

// Options controls a synthesis run.
type Options struct {
	Style   model.Style
	Improve bool // regenerate callables that already have a docstring
	Include model.Inclusion

	Concurrency    int
	MaxAttempts    int
	RetryBaseDelay time.Duration
	CallTimeout    time.Duration

	// Progress, if set, is called after each backend request finishes.
	// Calls are serialized.
	Progress func(done, total int)
	Logger   *zap.SugaredLogger
}

func (o Options) withDefaults() Options {
	if o.Concurrency < 1 {
		o.Concurrency = DefaultConcurrency
	}
	if o.MaxAttempts < 1 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.RetryBaseDelay <= 0 {
		o.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = DefaultCallTimeout
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop().Sugar()
	}
	return o
}

// Synthesizer runs generation batches against one backend. The backend
// must be safe for concurrent use.
type Synthesizer struct {
	gen  backend.Generator
	opts Options
}

// New returns a Synthesizer for gen.
func New(gen backend.Generator, opts Options) *Synthesizer {
	return &Synthesizer{gen: gen, opts: opts.withDefaults()}
}

// Plan decides the outcome of every callable that is not sent to the
// backend and builds requests for the rest. results has one entry per
// signature; entries for requested callables are filled in by Run.
func (s *Synthesizer) Plan(table *model.Table) (results []model.GenerationResult, requests []model.GenerationRequest) {
	results = make([]model.GenerationResult, len(table.Signatures))
	for i := range table.Signatures {
		sig := &table.Signatures[i]
		results[i] = model.GenerationResult{Index: i, QualifiedName: sig.QualifiedName}

		switch {
		case !s.opts.Include.Includes(sig):
			results[i].Status = model.Excluded
			continue
		case sig.HasDocstring() && !s.opts.Improve:
			results[i].Status = model.Existing
			results[i].Docstring = sig.Docstring.Text
			continue
		}

		var existing string
		if sig.HasDocstring() {
			existing = sig.Docstring.Text
		}
		requests = append(requests, model.GenerationRequest{
			Index:    i,
			Style:    s.opts.Style,
			Existing: existing,
			Prompt:   style.Prompt(sig, s.opts.Style, existing),
		})
	}
	return results, requests
}

// Run produces one GenerationResult per signature, in table order.
// Failures are recorded per callable and never stop the batch. The
// returned error is batch-level only: the backend is unconfigured, or ctx
// was cancelled. Results are complete in both cases.
func (s *Synthesizer) Run(ctx context.Context, table *model.Table) ([]model.GenerationResult, error) {
	results, requests := s.Plan(table)
	if len(requests) == 0 {
		return results, nil
	}

	batchCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	numWorkers := s.opts.Concurrency
	if numWorkers > len(requests) {
		numWorkers = len(requests)
	}

	work := make(chan int, len(requests))
	done := make(chan model.GenerationResult, len(requests))

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				req := requests[i]
				res := s.generate(batchCtx, &table.Signatures[req.Index], req)
				if res.Failure == model.Unconfigured {
					cancel(res.Err)
				}
				done <- res
			}
		}()
	}

	for i := range requests {
		work <- i
	}
	close(work)

	go func() {
		wg.Wait()
		close(done)
	}()

	finished := 0
	for res := range done {
		results[res.Index] = res
		finished++
		if s.opts.Progress != nil {
			s.opts.Progress(finished, len(requests))
		}
	}

	cause := context.Cause(batchCtx)
	if backend.IsUnconfigured(cause) {
		s.opts.Logger.Errorw("backend unconfigured", "backend", s.gen.Name(), "error", cause)
		return results, cause
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

// generate runs one request with retries and parses the answer.
func (s *Synthesizer) generate(ctx context.Context, sig *model.CallableSignature, req model.GenerationRequest) model.GenerationResult {
	res := model.GenerationResult{Index: req.Index, QualifiedName: sig.QualifiedName, Status: model.Failed}

	if err := ctx.Err(); err != nil {
		return abandoned(ctx, res)
	}

	attempt := func() (string, error) {
		res.Attempts++
		callCtx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
		defer cancel()

		text, err := s.gen.Generate(callCtx, req.Prompt)
		switch {
		case err == nil:
			return text, nil
		case ctx.Err() != nil:
			return "", backoff.Permanent(ctx.Err())
		case backend.IsRetryable(err):
			s.opts.Logger.Debugw("retrying", "callable", sig.QualifiedName, "attempt", res.Attempts, "error", err)
			return "", err
		}
		return "", backoff.Permanent(err)
	}

	text, err := backoff.RetryWithData(attempt, s.policy(ctx))
	if err != nil {
		if ctx.Err() != nil {
			return abandoned(ctx, res)
		}
		res.Err = err
		res.Failure = model.BackendError
		if backend.IsUnconfigured(err) {
			res.Failure = model.Unconfigured
		} else {
			s.opts.Logger.Warnw("generation failed", "callable", sig.QualifiedName, "attempts", res.Attempts, "error", err)
		}
		return res
	}

	resp, err := style.ParseResponse(text, sig, req.Style)
	if err != nil {
		res.Err = err
		res.Failure = model.MalformedResponse
		if errors.Is(err, style.ErrEmptyResponse) {
			res.Failure = model.EmptyResponse
		}
		s.opts.Logger.Warnw("unusable response", "callable", sig.QualifiedName, "error", err)
		return res
	}

	res.Status = model.Generated
	res.Docstring = resp.Text
	res.Notes = resp.Notes
	return res
}

func (s *Synthesizer) policy(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = s.opts.RetryBaseDelay
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(s.opts.MaxAttempts-1)), ctx)
}

// abandoned marks a result whose request was dropped by cancellation. An
// unconfigured backend cancels the batch with that error as cause.
func abandoned(ctx context.Context, res model.GenerationResult) model.GenerationResult {
	res.Status = model.Failed
	cause := context.Cause(ctx)
	if backend.IsUnconfigured(cause) {
		res.Failure = model.Unconfigured
		res.Err = cause
		return res
	}
	res.Failure = model.Cancelled
	res.Err = cause
	return res
}
