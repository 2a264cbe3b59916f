package usecase

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultChunkSize is the number of items looked up concurrently per chunk
const DefaultChunkSize = 2

// Batcher splits work into sequential chunks that run concurrently inside
type Batcher struct {
	Size        int           // items per chunk
	Concurrency int           // max concurrent calls within a chunk, defaults to Size
	Pause       time.Duration // wait between chunks, none after the last
}

func (b Batcher) normalized() Batcher {
	if b.Size <= 0 {
		b.Size = DefaultChunkSize
	}
	if b.Concurrency <= 0 || b.Concurrency > b.Size {
		b.Concurrency = b.Size
	}
	if b.Pause < 0 {
		b.Pause = 0
	}
	return b
}

// RunBatches applies fn to every item and returns results in item order.
// after, when set, runs once per item right after its attempt whether it failed or not,
// possibly from several goroutines at once. The first failure aborts the run.
func RunBatches[T, R any](
	ctx context.Context,
	b Batcher,
	items []T,
	fn func(ctx context.Context, idx int, item T) (R, error),
	after func(idx int),
) ([]R, error) {
	b = b.normalized()
	results := make([]R, len(items))

	for start := 0; start < len(items); start += b.Size {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := min(start+b.Size, len(items))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(b.Concurrency)
		for i := start; i < end; i++ {
			g.Go(func() error {
				if after != nil {
					defer after(i)
				}
				r, err := fn(gctx, i, items[i])
				if err != nil {
					return err
				}
				results[i] = r
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		if end < len(items) && b.Pause > 0 {
			timer := time.NewTimer(b.Pause)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
	}

	return results, nil
}
