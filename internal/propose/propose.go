// Package propose turns findings and rules into edit operations against the
// document IR. Three proposers feed the applier: the deterministic rule
// proposer here, the external-linter proposer (internal/vale), and the LLM
// proposer in llm.go.
package propose

import (
	"fmt"
	"regexp"
	"strings"

	"redpen/internal/editop"
	"redpen/internal/ir"
	"redpen/internal/rules"
)

// FromRules emits one replace_span op per rule occurrence per block. Op ids
// are content-derived, so proposing twice over identical input yields
// identical ids. A rule whose search term sits inside any protected term is
// skipped entirely so protected terms are never partially mangled.
func FromRules(doc *ir.DocumentIR, rs []rules.ReplacementRule, protectedTerms []string) []editop.EditOp {
	var ops []editop.EditOp
	compiled := make([]*regexp.Regexp, len(rs))
	for i, r := range rs {
		if overlapsProtected(r.Search, protectedTerms) {
			continue
		}
		compiled[i] = compileRule(r)
	}
	for bi := range doc.Blocks {
		block := &doc.Blocks[bi]
		for ri, r := range rs {
			re := compiled[ri]
			if re == nil {
				continue
			}
			for occ, m := range re.FindAllStringIndex(block.Text, -1) {
				occurrence := occ + 1
				before := block.Text[m[0]:m[1]]
				ops = append(ops, editop.EditOp{
					ID: editop.StableID(r.ID, block.Anchor,
						fmt.Sprint(m[0]), fmt.Sprint(m[1]), fmt.Sprint(occurrence)),
					Op: editop.ReplaceSpan,
					Target: editop.SpanTarget(block.Anchor, block.Ref.DocIndex,
						block.Ref.BlockType, m[0], m[1], occurrence),
					Intent:         r.Category,
					Engine:         editop.EngineRule,
					RuleID:         r.ID,
					Rationale:      r.Rationale,
					Before:         before,
					After:          r.Replace,
					Confidence:     1.0,
					RequiresReview: r.RequiresReview,
					RiskTier:       r.RiskTier,
					Status:         editop.Proposed,
				})
			}
		}
	}
	return ops
}

func overlapsProtected(search string, protectedTerms []string) bool {
	s := strings.ToLower(search)
	for _, t := range protectedTerms {
		if strings.Contains(strings.ToLower(t), s) {
			return true
		}
	}
	return false
}

func compileRule(r rules.ReplacementRule) *regexp.Regexp {
	pattern := regexp.QuoteMeta(r.Search)
	if r.WholeWord {
		pattern = `\b` + pattern + `\b`
	}
	if r.Insensitive() {
		pattern = `(?i)` + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil
	}
	return re
}
