package llm

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/errgroup"
)

// RewriteRequest is one unit of work for the batch runner. Index is the
// submission position and doubles as the slot in the result slice.
type RewriteRequest struct {
	Index    int
	ID       string
	System   string
	User     string
	Original string
}

// RewriteResult pairs a request with its outcome. On failure Text carries the
// original so downstream stages always have something to emit.
type RewriteResult struct {
	Index    int
	ID       string
	Text     string
	Success  bool
	Attempts int
	Err      error
	Latency  time.Duration
}

// BatchOptions tunes the batch runner.
type BatchOptions struct {
	Concurrency int
	MaxRetries  int
	// MinInterval spaces out request starts to stay under provider
	// rate limits. Zero disables pacing.
	MinInterval time.Duration
}

// DefaultBatchOptions matches the provider free-tier limits the pipeline is
// normally run against.
func DefaultBatchOptions() BatchOptions {
	return BatchOptions{
		Concurrency: 4,
		MaxRetries:  3,
		MinInterval: 150 * time.Millisecond,
	}
}

// RunBatch executes the requests concurrently and returns results in
// submission order. Each result lands in the slot given by its request index,
// so callers can rely on results[i] matching reqs[i] regardless of completion
// order. Rate-limit errors retry with exponential backoff; any other error
// fails the request immediately and degrades it to the original text.
func RunBatch(ctx context.Context, client Client, reqs []RewriteRequest, opts BatchOptions) []RewriteResult {
	results := make([]RewriteResult, len(reqs))
	if len(reqs) == 0 {
		return results
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}

	var gate chan time.Time
	if opts.MinInterval > 0 {
		gate = make(chan time.Time, 1)
		gate <- time.Now()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i := range reqs {
		req := reqs[i]
		g.Go(func() error {
			if gate != nil {
				last := <-gate
				if wait := opts.MinInterval - time.Since(last); wait > 0 {
					select {
					case <-time.After(wait):
					case <-gctx.Done():
						gate <- last
						results[req.Index] = degraded(req, gctx.Err())
						return nil
					}
				}
				gate <- time.Now()
			}
			results[req.Index] = rewriteOnce(gctx, client, req, opts.MaxRetries)
			return nil
		})
	}
	g.Wait()
	return results
}

func rewriteOnce(ctx context.Context, client Client, req RewriteRequest, maxRetries int) RewriteResult {
	start := time.Now()
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		text, err := client.Rewrite(ctx, Request{System: req.System, User: req.User})
		if err == nil && text != "" {
			return RewriteResult{
				Index:    req.Index,
				ID:       req.ID,
				Text:     text,
				Success:  true,
				Attempts: attempt + 1,
				Latency:  time.Since(start),
			}
		}
		lastErr = err
		if err == nil || !IsRateLimited(err) {
			break
		}
		backoff := time.Duration(1<<uint(attempt+1)) * time.Second
		log.Printf("rewrite %s rate limited, retrying in %s (attempt %d/%d)", req.ID, backoff, attempt+1, maxRetries)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return degraded(req, ctx.Err())
		}
	}
	return degraded(req, lastErr)
}

func degraded(req RewriteRequest, err error) RewriteResult {
	if err != nil {
		log.Printf("rewrite %s failed, keeping original: %v", req.ID, err)
	}
	return RewriteResult{
		Index:   req.Index,
		ID:      req.ID,
		Text:    req.Original,
		Success: false,
		Err:     err,
	}
}
