// Package engine owns the pretrained vision model that turns normalized
// frames into unit-length embeddings.
//
// The model is loaded once, in the background, after an optional
// stabilization delay. Callers never wait for readiness: Embed fails fast
// with a not-ready error while loading and with an unavailable error once
// loading has failed.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"productmatcher/logging"
	"productmatcher/types"

	"gocv.io/x/gocv"
	"golang.org/x/sync/semaphore"
)

// Model runs a normalized RGB frame through the network
type Model interface {
	Forward(frame gocv.Mat) (Hidden, error)
	Close() error
}

// Loader builds the model. It runs once, on the engine's load goroutine.
type Loader func(ctx context.Context) (Model, error)

// Options configures an Engine
type Options struct {
	// Dim is the embedding length handed to the catalog (default 768)
	Dim int
	// MaxConcurrent bounds in-flight Embed calls (default 1)
	MaxConcurrent int
	// StartupDelay postpones loading so the host can settle first
	StartupDelay time.Duration
}

// Engine is the process-wide embedding model handle
type Engine struct {
	loader Loader
	opts   Options

	state  atomic.Int32
	closed atomic.Bool
	model  Model // written once before state becomes Ready
	err    error // written once before state becomes Failed

	sem  *semaphore.Weighted
	once sync.Once
	done chan struct{}
}

// New creates an unloaded engine. Call Start to begin loading.
func New(loader Loader, opts Options) *Engine {
	if opts.Dim <= 0 {
		opts.Dim = types.EmbeddingDim
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 1
	}

	return &Engine{
		loader: loader,
		opts:   opts,
		sem:    semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		done:   make(chan struct{}),
	}
}

// Start begins loading in the background. Only the first call has any effect.
// Cancelling ctx during the startup delay fails the engine.
func (e *Engine) Start(ctx context.Context) {
	e.once.Do(func() {
		go e.load(ctx)
	})
}

func (e *Engine) load(ctx context.Context) {
	defer close(e.done)

	if e.opts.StartupDelay > 0 {
		logging.LogInfo("Waiting %v before loading the embedding model", e.opts.StartupDelay)
		timer := time.NewTimer(e.opts.StartupDelay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			e.fail(fmt.Errorf("startup cancelled: %w", ctx.Err()))
			return
		case <-timer.C:
		}
	}

	e.state.Store(int32(StateLoading))
	logging.LogInfo("Loading embedding model...")
	start := time.Now()

	model, err := e.loadModel(ctx)
	if err != nil {
		e.fail(err)
		return
	}

	e.model = model
	e.state.Store(int32(StateReady))
	logging.LogInfo("Embedding model ready in %v", time.Since(start).Round(time.Millisecond))
}

// loadModel runs the loader, turning a panic in CGo-backed setup into an error
func (e *Engine) loadModel(ctx context.Context) (model Model, err error) {
	defer func() {
		if r := recover(); r != nil {
			model, err = nil, fmt.Errorf("panic while loading model: %v", r)
		}
	}()

	if e.loader == nil {
		return nil, errors.New("no model loader configured")
	}
	model, err = e.loader(ctx)
	if err == nil && model == nil {
		err = errors.New("loader returned no model")
	}
	return model, err
}

func (e *Engine) fail(err error) {
	e.err = err
	e.state.Store(int32(StateFailed))
	logging.LogError("Embedding model failed to load: %v", err)
}

// State returns the current lifecycle state
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Ready reports whether Embed can run
func (e *Engine) Ready() bool {
	return e.State() == StateReady && !e.closed.Load()
}

// Err returns the load failure, if any
func (e *Engine) Err() error {
	if e.State() != StateFailed {
		return nil
	}
	return e.err
}

// Done is closed once loading has finished, successfully or not
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Wait blocks until loading finishes or ctx ends. For batch tools only;
// request paths must not wait.
func (e *Engine) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
	}
	if err := e.Err(); err != nil {
		return types.UnavailableError("wait", err)
	}
	return nil
}

// Check returns nil when the engine can embed, otherwise the not-ready or
// unavailable error a caller would get from Embed.
func (e *Engine) Check(op string) error {
	switch e.State() {
	case StateReady:
		return nil
	case StateFailed:
		return types.UnavailableError(op, e.err)
	default:
		return types.NotReadyError(op)
	}
}

// Dim returns the embedding length
func (e *Engine) Dim() int {
	return e.opts.Dim
}

// Embed turns a normalized frame into a unit-length vector of Dim components
func (e *Engine) Embed(ctx context.Context, frame gocv.Mat) (types.EmbeddingVector, error) {
	if err := e.Check("embed"); err != nil {
		return nil, err
	}

	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	defer e.sem.Release(1)

	if e.closed.Load() {
		return nil, types.UnavailableError("embed", errors.New("engine closed"))
	}

	hidden, err := e.model.Forward(frame)
	if err != nil {
		return nil, fmt.Errorf("embed: forward pass: %w", err)
	}

	vec, err := Pool(hidden, e.opts.Dim)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	return vec, nil
}

// Close waits for in-flight embeds and releases the model
func (e *Engine) Close() error {
	if e.State() != StateReady || e.closed.Load() {
		return nil
	}

	if err := e.sem.Acquire(context.Background(), int64(e.opts.MaxConcurrent)); err != nil {
		return err
	}
	defer e.sem.Release(int64(e.opts.MaxConcurrent))

	if e.closed.Swap(true) {
		return nil
	}
	return e.model.Close()
}
