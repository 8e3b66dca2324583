package tasks

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/desertthunder/podd/internal/models"
)

const (
	defaultWorkers = 3
	maxWorkers     = 10
)

type downloadJob struct {
	index  int
	intent models.DownloadIntent
}

type downloadPool struct {
	workers   int
	rateLimit float64
	fn        func(context.Context, models.DownloadIntent) DownloadOutcome
}

// run processes intents with a bounded worker pool. Each start waits on the rate limiter. onDone is called from
// the collecting goroutine with the running completion count.
func (p downloadPool) run(ctx context.Context, intents []models.DownloadIntent, onDone func(int, DownloadOutcome)) []DownloadOutcome {
	workers := p.workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	if workers > maxWorkers {
		workers = maxWorkers
	}
	if workers > len(intents) {
		workers = len(intents)
	}

	limit := rate.Inf
	if p.rateLimit > 0 {
		limit = rate.Limit(p.rateLimit)
	}
	limiter := rate.NewLimiter(limit, 1)

	outcomes := make([]DownloadOutcome, len(intents))
	jobs := make(chan downloadJob)
	type result struct {
		index int
		out   DownloadOutcome
	}
	results := make(chan result, len(intents))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				if err := limiter.Wait(ctx); err != nil {
					results <- result{job.index, canceledOutcome(job.intent, err)}
					continue
				}
				results <- result{job.index, p.fn(ctx, job.intent)}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, intent := range intents {
			select {
			case <-ctx.Done():
				for j := i; j < len(intents); j++ {
					results <- result{j, canceledOutcome(intents[j], ctx.Err())}
				}
				return
			case jobs <- downloadJob{index: i, intent: intent}:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	done := 0
	for r := range results {
		done++
		outcomes[r.index] = r.out
		if onDone != nil {
			onDone(done, r.out)
		}
	}
	return outcomes
}
