package propose

import (
	"context"
	"log"
	"strings"

	"redpen/internal/editop"
	"redpen/internal/ir"
	"redpen/internal/lint"
	"redpen/internal/llm"
)

// LLMOptions configures the LLM proposer.
type LLMOptions struct {
	Batch llm.BatchOptions
}

// FromLLM turns prose-quality findings into replace_span proposals by asking
// the model to rewrite the offending sentence. Every proposal is high risk and
// requires review; the applier rejects it anyway if the block text moved under
// it between proposal and apply.
func FromLLM(ctx context.Context, client llm.Client, doc *ir.DocumentIR, findings []ir.Finding, opts LLMOptions) []editop.EditOp {
	type candidate struct {
		finding  ir.Finding
		block    *ir.TextBlock
		sentence string
		issue    llm.IssueType
	}

	var candidates []candidate
	seen := make(map[string]bool)
	for _, f := range findings {
		issue, ok := issueFor(f.RuleID)
		if !ok {
			continue
		}
		block := resolveBlock(doc, f)
		if block == nil {
			continue
		}
		sentence := extractSentence(block.Text, f.Before)
		if sentence == "" {
			continue
		}
		key := dedupeKey(block.Anchor, sentence)
		if seen[key] {
			continue
		}
		seen[key] = true
		candidates = append(candidates, candidate{finding: f, block: block, sentence: sentence, issue: issue})
	}
	if len(candidates) == 0 {
		return nil
	}

	reqs := make([]llm.RewriteRequest, len(candidates))
	for i, c := range candidates {
		reqs[i] = llm.RewriteRequest{
			Index:    i,
			ID:       c.block.Anchor,
			System:   llm.SentenceSystemPrompt,
			User:     llm.BuildSentencePrompt(c.issue, c.sentence, c.block.Text),
			Original: c.sentence,
		}
	}
	results := llm.RunBatch(ctx, client, reqs, opts.Batch)

	var ops []editop.EditOp
	for i, res := range results {
		c := candidates[i]
		if !res.Success {
			continue
		}
		after := strings.TrimSpace(res.Text)
		if after == "" || after == c.sentence {
			continue
		}
		start := strings.Index(c.block.Text, c.sentence)
		if start < 0 {
			log.Printf("llm proposal dropped: sentence no longer present in block %s", c.block.Anchor)
			continue
		}
		end := start + len(c.sentence)
		ops = append(ops, editop.EditOp{
			ID: editop.StableID("llm", c.finding.RuleID, c.block.Anchor,
				c.sentence),
			Op: editop.ReplaceSpan,
			Target: editop.SpanTarget(c.block.Anchor, c.block.Ref.DocIndex,
				c.block.Ref.BlockType, start, end, 1),
			Intent:         "prose_rewrite",
			Engine:         editop.EngineLLM,
			RuleID:         c.finding.RuleID,
			Rationale:      c.finding.Message,
			Before:         c.sentence,
			After:          after,
			Confidence:     0.85,
			RequiresReview: true,
			RiskTier:       ir.RiskHigh,
			Status:         editop.Proposed,
		})
	}
	return ops
}

func issueFor(ruleID string) (llm.IssueType, bool) {
	switch ruleID {
	case lint.RuleRunOn:
		return llm.IssueRunOn, true
	case lint.RuleThroatClearing:
		return llm.IssueThroatClearing, true
	}
	return llm.IssueFromRuleID(ruleID)
}

func resolveBlock(doc *ir.DocumentIR, f ir.Finding) *ir.TextBlock {
	if f.Ref != nil {
		if b := doc.BlockByRef(*f.Ref); b != nil {
			return b
		}
	}
	if anchor := f.Details["anchor"]; anchor != "" {
		return doc.BlockByAnchor(anchor)
	}
	return nil
}

// extractSentence maps a finding fragment back to a full sentence of the
// current block text. Linter matches are often sub-sentence fragments; the
// rewrite prompt wants the whole sentence.
func extractSentence(blockText, fragment string) string {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return ""
	}
	for _, s := range lint.SplitSentences(blockText) {
		if strings.Contains(s, fragment) || strings.Contains(fragment, s) {
			return s
		}
	}
	// Fragment spans a sentence boundary or whitespace differs. Fall back
	// to the fragment itself when the block still contains it verbatim.
	if strings.Contains(blockText, fragment) {
		return fragment
	}
	return ""
}

func dedupeKey(anchor, sentence string) string {
	if len(sentence) > 50 {
		sentence = sentence[:50]
	}
	return anchor + "|" + sentence
}
