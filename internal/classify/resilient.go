// Package classify drives batch classification with retries and recursive
// bisection so a few bad rows cannot sink the rest of a batch.
package classify

import (
	"context"
	"log/slog"
	"time"

	"partcat/internal/domain"
)

// BatchFunc classifies one batch. Rows missing from the returned map are
// treated as unresolved.
type BatchFunc[T any] func(ctx context.Context, rows []domain.Row) (map[int]T, error)

// Driver holds the retry policy shared by every Resilient call.
type Driver struct {
	MaxRetries  int
	BackoffBase time.Duration
	Logger      *slog.Logger
	// Sleep waits between attempts. Nil means a context-aware time.Sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// attempt calls fn up to MaxRetries times, sleeping BackoffBase*attempt
// between tries. It returns the last error when every attempt fails.
func attempt[T any](ctx context.Context, d Driver, rows []domain.Row, fn BatchFunc[T]) (map[int]T, error) {
	sleep := d.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	retries := d.MaxRetries
	if retries < 1 {
		retries = 1
	}

	var lastErr error
	for n := 1; n <= retries; n++ {
		result, err := fn(ctx, rows)
		if err == nil {
			return result, nil
		}
		lastErr = err
		d.logger().Debug("batch attempt failed", "rows", len(rows), "first_row", rows[0].Index, "attempt", n, "of", retries, "error", err)
		if n == retries {
			break
		}
		if err := sleep(ctx, d.BackoffBase*time.Duration(n)); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

// Resilient classifies rows, splitting the batch in half and recursing on
// each half whenever the retries on a multi-row batch are exhausted. A
// single row that still fails is left out of the result for the caller's
// fallback. Resilient never returns an error.
func Resilient[T any](ctx context.Context, d Driver, rows []domain.Row, fn BatchFunc[T]) map[int]T {
	if len(rows) == 0 {
		return map[int]T{}
	}

	result, err := attempt(ctx, d, rows, fn)
	if err == nil {
		if result == nil {
			result = map[int]T{}
		}
		return result
	}

	if len(rows) == 1 || ctx.Err() != nil {
		for _, r := range rows {
			d.logger().Warn("row left for keyword fallback", "row", r.Index, "error", err)
		}
		return map[int]T{}
	}

	mid := len(rows) / 2
	left, right := rows[:mid], rows[mid:]
	d.logger().Warn("batch failed, splitting", "rows", len(rows), "left", len(left), "right", len(right), "error", err)

	out := Resilient(ctx, d, left, fn)
	for k, v := range Resilient(ctx, d, right, fn) {
		out[k] = v
	}
	return out
}

func (d Driver) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}
