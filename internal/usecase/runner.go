package usecase

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"SignalTrader/internal/domain/errs"
	drepo "SignalTrader/internal/domain/repository"
	applogger "SignalTrader/pkg/logger"

	"github.com/cenkalti/backoff/v5"
)

// CycleRunner is the part of the Coordinator the Runner drives.
type CycleRunner interface {
	RunCycle(ctx context.Context) (CycleReport, error)
}

// Runner repeats cycles until its context is cancelled. It sleeps the poll
// interval after each completed cycle, so slow cycles push later ones out.
// A failed cycle is retried after an exponential backoff that starts at the
// error backoff and never exceeds the poll interval.
type Runner struct {
	cycles       CycleRunner
	interval     time.Duration
	errorBackoff time.Duration
	metrics      drepo.Metrics
	log          *applogger.Logger

	mu   sync.RWMutex
	last *CycleReport
	runs int
}

func NewRunner(cycles CycleRunner, interval, errorBackoff time.Duration, metrics drepo.Metrics, l *applogger.Logger) *Runner {
	if l == nil {
		l = applogger.NewNop()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	if errorBackoff <= 0 || errorBackoff > interval {
		errorBackoff = interval
	}
	return &Runner{
		cycles:       cycles,
		interval:     interval,
		errorBackoff: errorBackoff,
		metrics:      metrics,
		log:          l,
	}
}

func (r *Runner) Run(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.errorBackoff
	bo.MaxInterval = r.interval

	r.log.Info("runner started",
		applogger.Duration("interval", r.interval),
		applogger.Duration("error_backoff", r.errorBackoff),
	)

	for {
		wait := r.interval
		if err := r.cycle(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			wait = bo.NextBackOff()
			if wait == backoff.Stop || wait > r.interval {
				wait = r.interval
			}
			r.log.Error("cycle failed", applogger.Error(err), applogger.Duration("retry_in", wait))
		} else {
			bo.Reset()
		}

		select {
		case <-ctx.Done():
			r.log.Info("runner stopped")
			return nil
		case <-time.After(wait):
		}
	}
}

// cycle runs one cycle, converting a panic into an error.
func (r *Runner) cycle(ctx context.Context) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errs.New(errs.KindUnexpected, fmt.Sprintf("cycle panicked: %v", p))
			r.log.Error("cycle panicked", applogger.String("stack", string(debug.Stack())))
			r.metrics.RecordError(string(errs.KindUnexpected))
		}
	}()

	report, err := r.cycles.RunCycle(ctx)
	r.mu.Lock()
	r.last = &report
	r.runs++
	r.mu.Unlock()
	return err
}

// LastReport returns the most recent cycle report.
func (r *Runner) LastReport() (CycleReport, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.last == nil {
		return CycleReport{}, false
	}
	return *r.last, true
}

// Runs returns the number of cycles that produced a report.
func (r *Runner) Runs() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.runs
}
