package recordstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Observer receives the outcome of every underlying gateway call.
type Observer func(op, collection string, duration time.Duration, err error)

// ResilientConfig tunes timeouts and read retries.
type ResilientConfig struct {
	CallTimeout  time.Duration
	ReadRetries  int
	RetryBackoff time.Duration
	Observer     Observer
	Logger       *zap.Logger
}

// Resilient bounds every call with a timeout and retries transient read
// failures with exponential backoff. Writes are never retried: a timed-out
// write is reported as failed and may or may not have been applied.
type Resilient struct {
	next Gateway
	cfg  ResilientConfig
}

// NewResilient wraps next.
func NewResilient(next Gateway, cfg ResilientConfig) *Resilient {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 10 * time.Second
	}
	if cfg.ReadRetries < 0 {
		cfg.ReadRetries = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 200 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Resilient{next: next, cfg: cfg}
}

func (r *Resilient) ReadRange(ctx context.Context, collection, rng string) ([][]string, error) {
	var rows [][]string
	for attempt := 0; ; attempt++ {
		err := r.call(ctx, "read_range", collection, func(callCtx context.Context) error {
			var err error
			rows, err = r.next.ReadRange(callCtx, collection, rng)
			return err
		})
		if err == nil {
			return rows, nil
		}
		if !IsTransient(err) || attempt >= r.cfg.ReadRetries || ctx.Err() != nil {
			return nil, err
		}

		delay := r.cfg.RetryBackoff << attempt
		r.cfg.Logger.Warn("retrying record store read",
			zap.String("collection", collection),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, Transient(ctx.Err())
		case <-timer.C:
		}
	}
}

func (r *Resilient) WriteCell(ctx context.Context, collection, cell, value string) error {
	return r.call(ctx, "write_cell", collection, func(callCtx context.Context) error {
		return r.next.WriteCell(callCtx, collection, cell, value)
	})
}

func (r *Resilient) BatchWrite(ctx context.Context, collection string, updates []CellUpdate) error {
	return r.call(ctx, "batch_write", collection, func(callCtx context.Context) error {
		return r.next.BatchWrite(callCtx, collection, updates)
	})
}

func (r *Resilient) AppendRow(ctx context.Context, collection string, row []string) error {
	return r.call(ctx, "append_row", collection, func(callCtx context.Context) error {
		return r.next.AppendRow(callCtx, collection, row)
	})
}

func (r *Resilient) call(ctx context.Context, op, collection string, fn func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
	defer cancel()

	start := time.Now()
	err := fn(callCtx)
	if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && !IsTransient(err) {
		err = Transient(fmt.Errorf("%s timed out after %s: %w", op, r.cfg.CallTimeout, err))
	}
	if r.cfg.Observer != nil {
		r.cfg.Observer(op, collection, time.Since(start), err)
	}
	return err
}
