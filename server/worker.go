package server

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chazu/nuqta/driver"
)

// ErrWorkerStopped is returned for requests submitted after Stop.
var ErrWorkerStopped = errors.New("compile worker stopped")

// compileRequest is a unit of work for the worker goroutine.
type compileRequest struct {
	ctx  context.Context
	src  string
	done chan compileResult
}

type compileResult struct {
	value *driver.Result
	err   error
}

// CompileWorker serializes compilations through a single goroutine so the
// shared cache sees one writer and a panic in one job cannot take down the
// process.
type CompileWorker struct {
	opts     driver.Options
	compile  func(context.Context, string, driver.Options) *driver.Result
	requests chan compileRequest
	quit     chan struct{}
	stopOnce sync.Once
}

// NewCompileWorker creates a CompileWorker and starts the processing goroutine.
func NewCompileWorker(opts driver.Options) *CompileWorker {
	w := newCompileWorker(opts, driver.Compile)
	go w.loop()
	return w
}

func newCompileWorker(opts driver.Options, compile func(context.Context, string, driver.Options) *driver.Result) *CompileWorker {
	return &CompileWorker{
		opts:     opts,
		compile:  compile,
		requests: make(chan compileRequest, 64),
		quit:     make(chan struct{}),
	}
}

// loop processes requests sequentially on a dedicated goroutine.
func (w *CompileWorker) loop() {
	for {
		select {
		case req := <-w.requests:
			req.done <- w.execute(req.ctx, req.src)
		case <-w.quit:
			return
		}
	}
}

// execute runs one compilation, recovering from panics.
func (w *CompileWorker) execute(ctx context.Context, src string) compileResult {
	var result compileResult
	if err := ctx.Err(); err != nil {
		result.err = err
		return result
	}
	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("compile panicked: %v", r)
				result.err = fmt.Errorf("compiler panic: %v", r)
			}
		}()
		result.value = w.compile(ctx, src, w.opts)
	}()
	return result
}

// Compile submits src to the worker goroutine and blocks until it has been
// compiled or ctx is done.
func (w *CompileWorker) Compile(ctx context.Context, src string) (*driver.Result, error) {
	select {
	case <-w.quit:
		return nil, ErrWorkerStopped
	default:
	}

	req := compileRequest{
		ctx:  ctx,
		src:  src,
		done: make(chan compileResult, 1),
	}
	select {
	case w.requests <- req:
	case <-w.quit:
		return nil, ErrWorkerStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case result := <-req.done:
		return result.value, result.err
	case <-w.quit:
		return nil, ErrWorkerStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stop shuts down the worker goroutine. It is safe to call more than once.
func (w *CompileWorker) Stop() {
	w.stopOnce.Do(func() { close(w.quit) })
}
