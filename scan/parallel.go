package scan

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/exp/constraints"
	"golang.org/x/sync/errgroup"

	"github.com/Mearkatz/beetle-collatz/nonzero"
)

// segmentsPerWorker sets how finely a parallel scan cuts its range. Several
// short segments per worker smooth out the uneven per-value cost around
// trajectory spikes like 27.
const segmentsPerWorker = 4

// MaxRecordParallel is MaxRecord with the range cut into contiguous
// segments scanned by up to workers goroutines. Per-segment maxima are
// reduced in ascending segment order with the same strictly-greater
// comparison as the sequential scan, so the result is identical to
// MaxRecord for every worker count and partitioning, ties included.
// Workers below one run sequentially.
func MaxRecordParallel[T constraints.Unsigned](ctx context.Context, r nonzero.Range[T], workers int) (Record[T], error) {
	if r.Empty() {
		return Record[T]{}, fmt.Errorf("max record over %s: %w", r, ErrEmptyRange)
	}
	if workers < 1 {
		workers = 1
	}
	parts := Split(r, workers*segmentsPerWorker)
	if len(parts) == 1 {
		return MaxRecord(ctx, parts[0])
	}

	results := make([]Record[T], len(parts))
	errs := make([]error, len(parts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, part := range parts {
		g.Go(func() error {
			rec, err := MaxRecord(gctx, part)
			results[i], errs[i] = rec, err
			return err
		})
	}
	_ = g.Wait()
	if err := FirstError(errs); err != nil {
		return Record[T]{}, err
	}

	best := results[0]
	for _, rec := range results[1:] {
		if rec.Steps > best.Steps {
			best = rec
		}
	}
	return best, nil
}

// CheckRangeParallel is CheckRange with the range cut into contiguous
// segments scanned by up to workers goroutines. Success requires every
// segment to pass; the reported failure is the one from the lowest failing
// segment. Workers below one run sequentially.
func CheckRangeParallel[T constraints.Unsigned](ctx context.Context, r nonzero.Range[T], workers int) error {
	if workers < 1 {
		workers = 1
	}
	parts := Split(r, workers*segmentsPerWorker)
	if len(parts) == 0 {
		return nil
	}
	if len(parts) == 1 {
		return CheckRange(ctx, parts[0])
	}

	errs := make([]error, len(parts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, part := range parts {
		g.Go(func() error {
			errs[i] = CheckRange(gctx, part)
			return errs[i]
		})
	}
	_ = g.Wait()
	return FirstError(errs)
}

// Split cuts r into at most n contiguous segments of near-equal length, in
// ascending order. Short ranges produce fewer segments; an empty range
// produces none. Concatenating the segments reproduces r exactly, which is
// what journaled scans rely on when they persist a partitioning and resume
// it later.
func Split[T constraints.Unsigned](r nonzero.Range[T], n int) []nonzero.Range[T] {
	if n < 1 {
		n = 1
	}
	total := r.Len()
	per := total / uint64(n)
	rem := total % uint64(n)

	parts := make([]nonzero.Range[T], 0, n)
	lo := r.Start()
	for i := 0; i < n; i++ {
		size := per
		if uint64(i) < rem {
			size++
		}
		if size == 0 {
			continue
		}
		hi := lo + T(size)
		parts = append(parts, nonzero.MustRange(nonzero.MustNew(lo), nonzero.MustNew(hi)))
		lo = hi
	}
	return parts
}

// FirstError reduces per-segment errors, indexed in segment order, to the
// lowest-indexed real failure. Segments cut short by the group context
// after an earlier failure report cancellation; those lose to the failure
// that caused them. When nothing failed but the parent context was
// canceled, the cancellation itself is returned. Journaled scans apply the
// same reduction to their stored partitioning, so a rerun over identical
// segments attributes its failure identically.
func FirstError(errs []error) error {
	var cancel error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			if cancel == nil {
				cancel = err
			}
			continue
		}
		return err
	}
	return cancel
}
