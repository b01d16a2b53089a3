package holistic

import (
	"fmt"
	"strings"
)

// ReviewReport renders a human-readable markdown report of the pipeline run,
// leading with the items a human needs to look at.
func ReviewReport(result *Result) string {
	var b strings.Builder
	s := result.Stats

	b.WriteString("# Holistic Rewrite Review Report\n\n")
	b.WriteString("## Summary\n")
	fmt.Fprintf(&b, "- Total chunks: %d\n", s.TotalChunks)
	fmt.Fprintf(&b, "- Rewritable: %d\n", s.RewritableChunks)
	fmt.Fprintf(&b, "- Accepted: %d\n", s.Accepted)
	fmt.Fprintf(&b, "- Rejected: %d\n", s.Rejected)
	fmt.Fprintf(&b, "- Flagged for review: %d\n", s.Flagged)
	fmt.Fprintf(&b, "- Word count: %d to %d\n", s.WordsOriginal, s.WordsFinal)
	fmt.Fprintf(&b, "- Processing time: %.1fs\n", s.TotalTime.Seconds())
	if s.FeedbackRetries > 0 {
		fmt.Fprintf(&b, "- Feedback retries: %d (%d adopted)\n", s.FeedbackRetries, s.FeedbackImprovements)
	}
	b.WriteString("\n")

	var flagged, rejected, accepted []ChunkDecision
	for _, d := range result.Decisions {
		switch {
		case d.Decision == DecisionFlagged:
			flagged = append(flagged, d)
		case d.Decision == DecisionRejected:
			rejected = append(rejected, d)
		case d.Decision == DecisionAccepted && d.Chunk.IsRewritable:
			accepted = append(accepted, d)
		}
	}

	if len(flagged) > 0 {
		b.WriteString("## Items Requiring Review\n\n")
		for _, d := range flagged {
			fmt.Fprintf(&b, "### %s (%s)\n", d.Chunk.ID, d.Chunk.SectionTitle)
			fmt.Fprintf(&b, "**Reason:** %s\n\n", d.Validation.Summary)
			b.WriteString("**Original:**\n")
			fmt.Fprintf(&b, "> %s\n\n", d.Chunk.Text)
			b.WriteString("**Proposed rewrite:**\n")
			fmt.Fprintf(&b, "> %s\n\n---\n\n", d.Rewrite.Rewritten)
		}
	}

	if len(rejected) > 0 {
		b.WriteString("## Rejected Rewrites (kept original)\n\n")
		for i, d := range rejected {
			if i >= 10 {
				fmt.Fprintf(&b, "(%d more omitted)\n", len(rejected)-10)
				break
			}
			fmt.Fprintf(&b, "### %s\n", d.Chunk.ID)
			fmt.Fprintf(&b, "**Reason:** %s\n", d.Validation.Summary)
			if d.Rewrite.Err != nil {
				fmt.Fprintf(&b, "**Rewrite error:** %v\n", d.Rewrite.Err)
			}
			b.WriteString("\n")
		}
	}

	if len(accepted) > 0 {
		b.WriteString("## Sample Accepted Rewrites\n\n")
		for i, d := range accepted {
			if i >= 5 {
				break
			}
			fmt.Fprintf(&b, "### %s (%s)\n\n", d.Chunk.ID, d.Chunk.SectionTitle)
			b.WriteString("**Original:**\n")
			fmt.Fprintf(&b, "> %s\n\n", clip(d.Chunk.Text, 300))
			b.WriteString("**Rewritten:**\n")
			fmt.Fprintf(&b, "> %s\n\n---\n\n", clip(d.Rewrite.Rewritten, 300))
		}
	}

	return b.String()
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
