package client

import (
	"context"
	"sync"
	"time"

	"github.com/Sternrassler/github-api-client/pkg/pagination"
)

// Result is the outcome of one request of a batch: exactly one of Envelope
// and Err is set. Err is always a *ClientError.
type Result struct {
	Envelope *pagination.Envelope
	Err      error
}

// Requests fetches all paths with at most MaxConcurrency requests in flight
// and returns one Result per path, in input order. Individual failures are
// reported in their slot; the batch itself never fails. A cancelled ctx
// turns the remaining slots into transport errors.
func (c *Client) Requests(ctx context.Context, paths []string) []Result {
	results := make([]Result, len(paths))
	if len(paths) == 0 {
		return results
	}

	start := time.Now()

	workers := c.config.MaxConcurrency
	if workers > len(paths) {
		workers = len(paths)
	}

	queue := make(chan int, len(paths))
	for i := range paths {
		queue <- i
	}
	close(queue)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go c.worker(ctx, paths, queue, results, &wg, i)
	}
	wg.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	c.logger.Debug().
		Int("requests", len(paths)).
		Int("failed", failed).
		Int("workers", workers).
		Dur("duration", time.Since(start)).
		Msg("Batch complete")

	return results
}

// worker processes request indexes from the queue. Each index is owned by
// exactly one worker, so results is written without locking.
func (c *Client) worker(ctx context.Context, paths []string, queue <-chan int, results []Result, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	processed := 0

	for idx := range queue {
		if err := ctx.Err(); err != nil {
			results[idx] = Result{Err: NewTransportError(err)}
			continue
		}

		env, err := c.Request(ctx, paths[idx], nil)
		if err != nil {
			results[idx] = Result{Err: err}
		} else {
			results[idx] = Result{Envelope: env}
		}
		processed++
	}

	c.logger.Debug().
		Int("worker_id", workerID).
		Int("requests_processed", processed).
		Msg("Worker completed")
}
