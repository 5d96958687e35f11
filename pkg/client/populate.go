package client

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for populate operations.
var (
	ghPopulateRoundsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gh_populate_rounds_total",
		Help: "Total number of populate request rounds",
	})

	ghPopulateIncompleteTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gh_populate_incomplete_total",
		Help: "Total number of items left incomplete after retries were exhausted",
	})
)

// Item is a decoded JSON object that references its full representation
// through "url" and is identified by "id", e.g. an entry of a search
// result. Populate merges the fetched fields into it.
type Item map[string]any

// ID returns the "id" field.
func (i Item) ID() any {
	return i["id"]
}

// URL returns the "url" field, or "" when missing or not a string.
func (i Item) URL() string {
	u, _ := i["url"].(string)
	return u
}

// fetchTask tracks one item across populate rounds. retries only grows and
// done only flips from false to true.
type fetchTask struct {
	item    Item
	retries int
	done    bool
}

// Populate fetches the url of every item and merges the fetched object
// fields into it. Failed fetches are retried in later rounds, up to
// MaxRetries attempts per item, without delay. The ids of items that could
// not be fetched are returned; a failed item never fails the call.
//
// An error is returned only when ctx is cancelled (together with the ids
// still incomplete at that point) or when a batch breaks the one result per
// request contract.
func (c *Client) Populate(ctx context.Context, items []Item) ([]any, error) {
	maxRetries := c.config.MaxRetries

	tasks := make([]*fetchTask, len(items))
	for i, item := range items {
		tasks[i] = &fetchTask{item: item}
		if item.URL() == "" {
			c.logger.Warn().Interface("id", item.ID()).Msg("Item has no url, skipping")
			tasks[i].retries = maxRetries
		}
	}

	maxRounds := ceilDiv(len(tasks), c.config.MaxConcurrency) * maxRetries
	for round := 0; round < maxRounds; round++ {
		pending := pendingTasks(tasks, maxRetries)
		if len(pending) == 0 {
			break
		}
		if err := ctx.Err(); err != nil {
			return incompleteIDs(tasks), fmt.Errorf("populate cancelled: %w", err)
		}

		paths := make([]string, len(pending))
		for i, task := range pending {
			paths[i] = task.item.URL()
		}

		ghPopulateRoundsTotal.Inc()
		responses := c.Requests(ctx, paths)
		if len(responses) != len(pending) {
			return nil, fmt.Errorf("%w: %d results for %d requests", ErrSchedulerContract, len(responses), len(pending))
		}

		for i, res := range responses {
			task := pending[i]
			if res.Err != nil {
				task.retries++
				continue
			}
			for k, v := range res.Envelope.Object() {
				task.item[k] = v
			}
			task.done = true
		}

		c.logger.Debug().
			Int("round", round).
			Int("pending", len(pending)).
			Msg("Populate round complete")
	}

	incomplete := incompleteIDs(tasks)
	ghPopulateIncompleteTotal.Add(float64(len(incomplete)))
	if len(incomplete) > 0 {
		c.logger.Info().
			Int("items", len(items)).
			Int("incomplete", len(incomplete)).
			Msg("Populate finished with incomplete items")
	}

	return incomplete, nil
}

// pendingTasks returns the tasks that are neither done nor out of retries.
func pendingTasks(tasks []*fetchTask, maxRetries int) []*fetchTask {
	var pending []*fetchTask
	for _, task := range tasks {
		if !task.done && task.retries < maxRetries {
			pending = append(pending, task)
		}
	}
	return pending
}

// incompleteIDs returns the ids of the tasks never marked done.
func incompleteIDs(tasks []*fetchTask) []any {
	ids := []any{}
	for _, task := range tasks {
		if !task.done {
			ids = append(ids, task.item.ID())
		}
	}
	return ids
}

func ceilDiv(n, d int) int {
	if n <= 0 || d <= 0 {
		return 0
	}
	return (n + d - 1) / d
}
