package worker

import (
	"context"
	"fmt"
	"image"
	"log"
	"runtime"
	"sync"

	"snip/src/screenshot"
)

// CaptureFunc performs one capture; the resident loop passes a closure over
// session.Capture.
type CaptureFunc func(ctx context.Context, req screenshot.Request) (*image.RGBA, error)

// ResultCallback is invoked on capture completion (from a worker goroutine).
// The event loop should pass a closure that posts back into the event loop safely.
type ResultCallback func(img *image.RGBA, err error)

// Pool is a fixed-size capture worker pool with a 1-slot input queue (strict back-pressure).
type Pool struct {
	capture CaptureFunc
	jobs    chan job
	wg      sync.WaitGroup
	once    sync.Once
}

type job struct {
	ctx context.Context
	req screenshot.Request
	cb  ResultCallback
}

// New creates a worker pool. Size defaults to NumCPU when size<=0. Queue is 1 slot.
func New(size int, capture CaptureFunc) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	p := &Pool{capture: capture, jobs: make(chan job, 1)}
	p.start(size)
	return p
}

func (p *Pool) start(n int) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for j := range p.jobs {
				log.Printf("Worker: starting %s capture", j.req.Mode)
				img, err := p.run(j)
				log.Printf("Worker: capture completed, err=%v", err)
				j.cb(img, err)
			}
		}()
	}
}

func (p *Pool) run(j job) (img *image.RGBA, err error) {
	if err := j.ctx.Err(); err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("PANIC in capture worker: %v", r)
			img, err = nil, &screenshot.CaptureError{Kind: screenshot.KindFailed, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return p.capture(j.ctx, j.req)
}

// Submit enqueues a capture job if the single-slot queue is free. Returns false if dropped.
func (p *Pool) Submit(ctx context.Context, req screenshot.Request, cb ResultCallback) bool {
	select {
	case p.jobs <- job{ctx: ctx, req: req, cb: cb}:
		return true
	default:
		return false
	}
}

// Close stops the pool after draining current work.
func (p *Pool) Close() {
	p.once.Do(func() { close(p.jobs) })
	p.wg.Wait()
}
