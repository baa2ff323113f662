package ingest

import (
	"context"
	"fmt"
	"iter"
	"strconv"
	"time"
)

// DetailFunc resolves the detail record for one listed item. id is the value
// returned by the walker's Identify hook ("" when there is none).
type DetailFunc[I, D any] func(ctx context.Context, id string, item I) (D, error)

// Tally counts what a walk did with the listed items.
type Tally struct {
	Listed    int // items returned by the list call
	Visited   int // items inside the per-run cap
	Skipped   int // visited items excluded by an item error
	Processed int // detail records handed to the consumer
}

// Walker iterates a bounded item set sequentially. When Detail is set every
// visited item costs one upstream call and consecutive calls are spaced by
// Delay; item errors are reported through OnSkip and never stop the walk.
type Walker[I, D any] struct {
	// Limit caps the number of items visited; zero or negative means no cap.
	Limit int
	// Delay is the pause between two consecutive detail calls.
	Delay time.Duration
	// Identify extracts the item identifier. An error skips the item before
	// any upstream call is made.
	Identify func(item I) (string, error)
	// Detail is nil for single-call sources.
	Detail DetailFunc[I, D]
	// Lift turns a listed item into its detail record when Detail is nil.
	// When Lift is nil too, I must be assignable to D.
	Lift func(item I) D
	// Sleep waits d or until ctx is done, returning false on cancellation.
	Sleep func(ctx context.Context, d time.Duration) bool
	// OnSkip observes skipped items; ref is the identifier or "#<index>".
	OnSkip func(ctx context.Context, ref string, err error)
}

// Walk returns a lazy sequence of detail records in list order. The consumer
// finishes processing one record before the next upstream call is issued.
// tally may be nil.
func (w Walker[I, D]) Walk(ctx context.Context, items []I, tally *Tally) iter.Seq[D] {
	if tally == nil {
		tally = &Tally{}
	}
	return func(yield func(D) bool) {
		bounded := items
		if w.Limit > 0 && len(bounded) > w.Limit {
			bounded = bounded[:w.Limit]
		}
		tally.Listed = len(items)
		tally.Visited = len(bounded)

		called := false
		for i, item := range bounded {
			if ctx.Err() != nil {
				return
			}
			ref := "#" + strconv.Itoa(i)
			id := ""
			if w.Identify != nil {
				v, err := w.Identify(item)
				if err != nil {
					tally.Skipped++
					w.skip(ctx, ref, err)
					continue
				}
				id, ref = v, v
			}

			var detail D
			if w.Detail == nil {
				d, err := w.lift(item)
				if err != nil {
					tally.Skipped++
					w.skip(ctx, ref, err)
					continue
				}
				detail = d
			} else {
				if called && w.Delay > 0 && !w.sleep(ctx, w.Delay) {
					return
				}
				called = true
				d, err := w.Detail(ctx, id, item)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					tally.Skipped++
					w.skip(ctx, ref, fmt.Errorf("%w: %w", ErrDetailFetch, err))
					continue
				}
				detail = d
			}

			tally.Processed++
			if !yield(detail) {
				return
			}
		}
	}
}

func (w Walker[I, D]) lift(item I) (D, error) {
	if w.Lift != nil {
		return w.Lift(item), nil
	}
	if d, ok := any(item).(D); ok {
		return d, nil
	}
	var zero D
	return zero, fmt.Errorf("ingest: cannot use %T as %T", item, zero)
}

func (w Walker[I, D]) skip(ctx context.Context, ref string, err error) {
	if w.OnSkip != nil {
		w.OnSkip(ctx, ref, err)
	}
}

func (w Walker[I, D]) sleep(ctx context.Context, d time.Duration) bool {
	if w.Sleep != nil {
		return w.Sleep(ctx, d)
	}
	return SleepWithContext(ctx, d)
}

// SleepWithContext waits d unless ctx finishes first.
func SleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
