package holistic

import (
	"context"
	"log"
	"time"

	"redpen/internal/ir"
	"redpen/internal/llm"
	"redpen/internal/vale"
)

// Config drives the whole-document rewrite pipeline.
type Config struct {
	ChunkStrategy  ChunkStrategy
	Rewrite        RewriteConfig
	ProtectedTerms []string
	Linter         *vale.Runner
	// AutoAccept applies review-flagged rewrites instead of keeping the
	// original text.
	AutoAccept bool
	// FeedbackRetry gives a review-flagged rewrite one correction attempt
	// guided by the linter complaints before deciding.
	FeedbackRetry bool
}

// Decision is the per-chunk verdict.
type Decision string

const (
	DecisionAccepted Decision = "accepted"
	DecisionRejected Decision = "rejected"
	DecisionFlagged  Decision = "flagged"
)

// ChunkDecision pairs a chunk with its rewrite, validation, and final text.
type ChunkDecision struct {
	Chunk      Chunk
	Rewrite    RewriteResult
	Validation ValidationResult
	Decision   Decision
	FinalText  string
}

// Stats summarizes one pipeline run.
type Stats struct {
	TotalChunks          int
	RewritableChunks     int
	Accepted             int
	Rejected             int
	Flagged              int
	WordsOriginal        int
	WordsFinal           int
	LLMLatency           time.Duration
	TotalTime            time.Duration
	FeedbackRetries      int
	FeedbackImprovements int
}

// Result is the complete pipeline outcome.
type Result struct {
	OriginalIR   *ir.DocumentIR
	FinalIR      *ir.DocumentIR
	Decisions    []ChunkDecision
	Stats        Stats
	ReviewNeeded bool
}

// Run executes the full pipeline: chunk, rewrite concurrently, validate,
// decide, assemble.
func Run(ctx context.Context, doc *ir.DocumentIR, client llm.Client, cfg Config) (*Result, error) {
	start := time.Now()

	chunking, err := ChunkDocument(doc, cfg.ChunkStrategy)
	if err != nil {
		return nil, err
	}
	log.Printf("chunked document: %d chunks, %d rewritable words (strategy=%s)",
		chunking.TotalChunks, chunking.TotalRewritableWords, chunking.Strategy)

	tracker := NewAcronymTracker()
	tracker.ScanExistingDefinitions(doc.FullText())
	log.Printf("acronym tracker seeded with %d existing definitions", len(tracker.Defined))

	rewriter := NewRewriter(client, cfg.Rewrite, cfg.ProtectedTerms, tracker)
	rewrites := rewriter.RewriteChunks(ctx, chunking.Chunks)

	validator := NewValidator(ValidatorConfig{
		ProtectedTerms: cfg.ProtectedTerms,
		Linter:         cfg.Linter,
	})

	var stats Stats
	decisions := make([]ChunkDecision, 0, len(chunking.Chunks))
	for i, chunk := range chunking.Chunks {
		rewrite := rewrites[i]
		var validation ValidationResult
		if chunk.IsRewritable && rewrite.Success {
			validation = validator.Validate(ctx, rewrite.Original, rewrite.Rewritten)
			if validation.Recommendation == Review && cfg.FeedbackRetry {
				validation, rewrite = retryWithFeedback(ctx, rewriter, validator, rewrite, validation, &stats)
			}
		} else {
			validation = ValidationResult{
				Passed:         true,
				Recommendation: Accept,
				Summary:        "Skipped (non-rewritable or rewrite error)",
			}
		}

		var decision Decision
		var finalText string
		switch {
		case !chunk.IsRewritable:
			decision, finalText = DecisionAccepted, chunk.Text
		case !rewrite.Success:
			decision, finalText = DecisionRejected, chunk.Text
		case validation.Recommendation == Reject:
			decision, finalText = DecisionRejected, chunk.Text
			log.Printf("rejected %s: %s", chunk.ID, validation.Summary)
		case validation.Recommendation == Review:
			decision = DecisionFlagged
			if cfg.AutoAccept {
				finalText = rewrite.Rewritten
			} else {
				finalText = chunk.Text
			}
			log.Printf("flagged %s: %s", chunk.ID, validation.Summary)
		default:
			decision, finalText = DecisionAccepted, rewrite.Rewritten
		}

		switch decision {
		case DecisionAccepted:
			stats.Accepted++
		case DecisionRejected:
			stats.Rejected++
		case DecisionFlagged:
			stats.Flagged++
		}
		stats.WordsOriginal += chunk.WordCount
		stats.WordsFinal += wordCount(finalText)
		stats.LLMLatency += rewrite.Latency
		if chunk.IsRewritable {
			stats.RewritableChunks++
		}

		decisions = append(decisions, ChunkDecision{
			Chunk:      chunk,
			Rewrite:    rewrite,
			Validation: validation,
			Decision:   decision,
			FinalText:  finalText,
		})
	}

	stats.TotalChunks = chunking.TotalChunks
	stats.TotalTime = time.Since(start)

	finalIR := assemble(doc, decisions)
	log.Printf("pipeline complete: %d accepted, %d rejected, %d flagged",
		stats.Accepted, stats.Rejected, stats.Flagged)

	return &Result{
		OriginalIR:   doc,
		FinalIR:      finalIR,
		Decisions:    decisions,
		Stats:        stats,
		ReviewNeeded: stats.Flagged > 0,
	}, nil
}

// retryWithFeedback gives the model one shot at fixing the linter complaints.
// The corrected text is adopted only when it validates at least as well as
// the first attempt; otherwise the original rewrite and verdict stand.
func retryWithFeedback(ctx context.Context, rewriter *Rewriter, validator *Validator, rewrite RewriteResult, validation ValidationResult, stats *Stats) (ValidationResult, RewriteResult) {
	complaints := validator.IssueSummaries(ctx, rewrite.Rewritten)
	if len(complaints) == 0 {
		return validation, rewrite
	}
	stats.FeedbackRetries++
	corrected, err := rewriter.RewriteWithFeedback(ctx, rewrite.Rewritten, complaints)
	if err != nil || corrected == "" {
		log.Printf("feedback retry failed for %s: %v", rewrite.ChunkID, err)
		return validation, rewrite
	}
	revalidation := validator.Validate(ctx, rewrite.Original, corrected)
	if revalidation.Recommendation == Reject {
		return validation, rewrite
	}
	if len(validator.IssueSummaries(ctx, corrected)) > len(complaints) {
		return validation, rewrite
	}
	stats.FeedbackImprovements++
	rewrite.Rewritten = corrected
	return revalidation, rewrite
}

// assemble builds the final document. Accepted and flagged chunks carry their
// final text; a multi-block chunk collapses into its first block and the
// remaining blocks are dropped. Blocks in no decided chunk pass through
// unchanged.
func assemble(doc *ir.DocumentIR, decisions []ChunkDecision) *ir.DocumentIR {
	updates := make(map[int]string)
	for _, d := range decisions {
		if d.Decision != DecisionAccepted && d.Decision != DecisionFlagged {
			continue
		}
		for _, bi := range d.Chunk.BlockIndices {
			if bi == d.Chunk.BlockIndices[0] {
				updates[bi] = d.FinalText
			} else {
				updates[bi] = ""
			}
		}
	}

	blocks := make([]ir.TextBlock, 0, len(doc.Blocks))
	for i, b := range doc.Blocks {
		text, ok := updates[i]
		if !ok {
			blocks = append(blocks, b)
			continue
		}
		if text == "" {
			continue
		}
		blocks = append(blocks, ir.TextBlock{
			Ref:       b.Ref,
			StyleName: b.StyleName,
			Text:      text,
			Anchor:    b.Anchor,
		})
	}
	return &ir.DocumentIR{Title: doc.Title, Blocks: blocks, Metadata: doc.Metadata}
}
