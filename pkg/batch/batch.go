// Package batch runs independent operations with bounded concurrency and
// reports a per-operation outcome in input order.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/fxnlabs/marketplace-sdk/pkg/metrics"
	"github.com/fxnlabs/marketplace-sdk/pkg/sdkerr"
)

const DefaultMaxConcurrency = 4

// Operation is one unit of work. Its closure carries its arguments.
type Operation[T any] func(ctx context.Context) (T, error)

type Status int

const (
	NotStarted Status = iota
	Succeeded
	Failed
)

func (s Status) String() string {
	switch s {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "not_started"
	}
}

// Outcome is the result of one operation. Err is sdkerr.ErrNotStarted for
// operations that were never started.
type Outcome[T any] struct {
	Status Status
	Value  T
	Err    error
}

func (o Outcome[T]) OK() bool {
	return o.Status == Succeeded
}

type Options struct {
	// ContinueOnError keeps starting operations after a failure. When false, the
	// first failure lets running operations finish but starts no new ones.
	ContinueOnError bool
	// MaxConcurrency bounds how many operations run at once. It must be positive.
	MaxConcurrency int

	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

func DefaultOptions() Options {
	return Options{
		ContinueOnError: true,
		MaxConcurrency:  DefaultMaxConcurrency,
	}
}

// Run executes ops and returns one outcome per op, aligned with ops.
//
// Operations are admitted strictly in input order: op i+1 is not handed a slot
// until op i has started. A finishing operation frees its slot for the next
// queued one. Each runs at most once and is never retried. Failures and panics
// become Failed outcomes; Run itself only fails on invalid options.
//
// Once a failure is recorded with ContinueOnError false, or once ctx is done,
// no further operations are admitted. Operations already running finish, so
// NotStarted outcomes always form a suffix of the result.
func Run[T any](ctx context.Context, ops []Operation[T], opts Options) ([]Outcome[T], error) {
	if opts.MaxConcurrency <= 0 {
		return nil, fmt.Errorf("max concurrency must be positive, got %d: %w", opts.MaxConcurrency, sdkerr.ErrInvalidParameter)
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("batch")

	outcomes := make([]Outcome[T], len(ops))
	for i := range outcomes {
		outcomes[i].Err = sdkerr.ErrNotStarted
	}

	var (
		stopped atomic.Bool
		g       errgroup.Group
		slots   = semaphore.NewWeighted(int64(opts.MaxConcurrency))
	)

	for i, op := range ops {
		if err := slots.Acquire(ctx, 1); err != nil {
			break
		}
		// Failures release their slot only after setting stopped.
		if stopped.Load() || ctx.Err() != nil {
			slots.Release(1)
			break
		}

		started := make(chan struct{})
		g.Go(func() error {
			defer slots.Release(1)

			opts.Metrics.BatchStarted()
			close(started)
			value, err := safeRun(ctx, op)
			opts.Metrics.BatchFinished()

			if err != nil {
				outcomes[i] = Outcome[T]{Status: Failed, Err: err}
				if !opts.ContinueOnError {
					stopped.Store(true)
				}
				log.Debug("Batch operation failed", zap.Int("index", i), zap.Error(err))
			} else {
				outcomes[i] = Outcome[T]{Status: Succeeded, Value: value}
			}
			opts.Metrics.BatchOperation(outcomes[i].Status.String())
			return nil
		})
		<-started
	}
	_ = g.Wait()

	succeeded, failed, notStarted := Count(outcomes)
	for i := 0; i < notStarted; i++ {
		opts.Metrics.BatchOperation(NotStarted.String())
	}
	log.Debug("Batch finished",
		zap.Int("operations", len(ops)),
		zap.Int("succeeded", succeeded),
		zap.Int("failed", failed),
		zap.Int("not_started", notStarted))
	return outcomes, nil
}

func safeRun[T any](ctx context.Context, op Operation[T]) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("operation panicked: %v", r)
		}
	}()
	return op(ctx)
}

// Count tallies outcomes by status.
func Count[T any](outcomes []Outcome[T]) (succeeded, failed, notStarted int) {
	for _, o := range outcomes {
		switch o.Status {
		case Succeeded:
			succeeded++
		case Failed:
			failed++
		default:
			notStarted++
		}
	}
	return succeeded, failed, notStarted
}

// Values returns the values of the succeeded outcomes, in order.
func Values[T any](outcomes []Outcome[T]) []T {
	values := make([]T, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Status == Succeeded {
			values = append(values, o.Value)
		}
	}
	return values
}

// Err joins the errors of the failed outcomes, or returns nil if none failed.
// Operations that never started are not included.
func Err[T any](outcomes []Outcome[T]) error {
	var errs []error
	for i, o := range outcomes {
		if o.Status == Failed {
			errs = append(errs, fmt.Errorf("operation %d: %w", i, o.Err))
		}
	}
	return errors.Join(errs...)
}
