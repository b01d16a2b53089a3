package holistic

import (
	"context"
	"log"
	"strings"
	"time"

	"redpen/internal/llm"
)

// RewriteConfig tunes the holistic rewriter.
type RewriteConfig struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Concurrency int
	MaxRetries  int
	MinInterval time.Duration
}

// DefaultRewriteConfig keeps concurrency low for rate-limit safety.
func DefaultRewriteConfig() RewriteConfig {
	return RewriteConfig{
		Temperature: 0.4,
		MaxTokens:   4096,
		Concurrency: 2,
		MaxRetries:  3,
		MinInterval: 1500 * time.Millisecond,
	}
}

// RewriteResult is the outcome for one chunk. Rewritten holds the original
// text when the rewrite failed or the chunk was not rewritable.
type RewriteResult struct {
	ChunkID   string
	Original  string
	Rewritten string
	Success   bool
	Err       error
	Latency   time.Duration
}

// Rewriter rewrites chunks for overall clarity rather than fixing individual
// flagged issues.
type Rewriter struct {
	client         llm.Client
	cfg            RewriteConfig
	protectedTerms []string
	tracker        *AcronymTracker
}

func NewRewriter(client llm.Client, cfg RewriteConfig, protectedTerms []string, tracker *AcronymTracker) *Rewriter {
	if tracker == nil {
		tracker = NewAcronymTracker()
	}
	return &Rewriter{client: client, cfg: cfg, protectedTerms: protectedTerms, tracker: tracker}
}

func (r *Rewriter) buildPrompt(c Chunk) string {
	var present []string
	lower := strings.ToLower(c.Text)
	for _, t := range r.protectedTerms {
		if strings.Contains(lower, strings.ToLower(t)) {
			present = append(present, t)
		}
	}
	terms := "(none detected)"
	if len(present) > 0 {
		terms = strings.Join(present, ", ")
	}
	defined, undefined := r.tracker.ProcessChunk(c.Text, c.ID)
	definedStr, undefinedStr := FormatForPrompt(defined, undefined)
	return llm.BuildHolisticPrompt(c.SectionTitle, c.ContextBefore, c.Text, c.ContextAfter, terms, definedStr, undefinedStr)
}

// RewriteChunks rewrites the rewritable chunks concurrently and returns
// results aligned with the input slice. Prompts are built sequentially in
// chunk order first; the acronym tracker marks each chunk's first-use
// acronyms as defined at prompt-build time, so later chunks see them as
// covered even though rewrites complete out of order.
func (r *Rewriter) RewriteChunks(ctx context.Context, chunks []Chunk) []RewriteResult {
	results := make([]RewriteResult, len(chunks))
	var reqs []llm.RewriteRequest
	reqSlot := make([]int, 0, len(chunks))

	for i, c := range chunks {
		if !c.IsRewritable {
			results[i] = RewriteResult{ChunkID: c.ID, Original: c.Text, Rewritten: c.Text, Success: true}
			continue
		}
		reqs = append(reqs, llm.RewriteRequest{
			Index:    len(reqs),
			ID:       c.ID,
			System:   llm.HolisticSystemPrompt,
			User:     r.buildPrompt(c),
			Original: c.Text,
		})
		reqSlot = append(reqSlot, i)
	}
	if len(reqs) == 0 {
		return results
	}

	log.Printf("holistic rewrite: %d chunks, %d workers", len(reqs), r.cfg.Concurrency)
	batch := llm.RunBatch(ctx, r.client, reqs, llm.BatchOptions{
		Concurrency: r.cfg.Concurrency,
		MaxRetries:  r.cfg.MaxRetries,
		MinInterval: r.cfg.MinInterval,
	})
	for bi, res := range batch {
		slot := reqSlot[bi]
		results[slot] = RewriteResult{
			ChunkID:   res.ID,
			Original:  chunks[slot].Text,
			Rewritten: res.Text,
			Success:   res.Success,
			Err:       res.Err,
			Latency:   res.Latency,
		}
	}
	return results
}

// RewriteWithFeedback performs one correction attempt guided by linter
// complaints against an earlier rewrite.
func (r *Rewriter) RewriteWithFeedback(ctx context.Context, text string, complaints []string) (string, error) {
	out, err := r.client.Rewrite(ctx, llm.Request{
		System:      llm.HolisticSystemPrompt,
		User:        llm.BuildFeedbackPrompt(text, complaints),
		Model:       r.cfg.Model,
		MaxTokens:   r.cfg.MaxTokens,
		Temperature: r.cfg.Temperature,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
