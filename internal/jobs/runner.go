// Package jobs runs periodic background work with Prometheus accounting.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ksInsandji/pensezy-edition/internal/observability"
)

type Job func(ctx context.Context) error

type Runner struct {
	ctx context.Context
	wg  sync.WaitGroup
}

func New(ctx context.Context) *Runner { return &Runner{ctx: ctx} }

// Every runs fn on each tick until the runner context is cancelled.
// A panicking run is recovered and counted as an error.
func (r *Runner) Every(interval time.Duration, name string, fn Job) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-r.ctx.Done():
				return
			case <-t.C:
				r.runOnce(name, fn)
			}
		}
	}()
}

func (r *Runner) runOnce(name string, fn Job) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			observability.CaptureErr(fmt.Errorf("panic in job %s: %v", name, rec))
			jobErrors.WithLabelValues(name).Inc()
		}
		jobRuns.WithLabelValues(name).Inc()
		jobDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}()
	if err := fn(r.ctx); err != nil {
		observability.CaptureCtx(r.ctx, err)
		jobErrors.WithLabelValues(name).Inc()
	}
}

// Wait blocks until every job loop has returned.
func (r *Runner) Wait() { r.wg.Wait() }
