package holistic

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"redpen/internal/apply"
	"redpen/internal/editop"
	"redpen/internal/ir"
	"redpen/internal/lint"
	"redpen/internal/propose"
	"redpen/internal/rules"
	"redpen/internal/vale"
	"redpen/internal/verify"
)

// PolishConfig configures the deterministic style pass run after assembly.
// Per-chunk validation misses issues that only emerge once chunks are joined
// back together; this pass catches those.
type PolishConfig struct {
	StylePack      *rules.Pack
	ProsePack      *rules.Pack
	ProtectedTerms []string
	Linter         *vale.Runner
	// ReportOnly collects findings without mutating the document.
	ReportOnly bool
}

// PolishResult is the outcome of the style polish pass.
type PolishResult struct {
	InputIR  *ir.DocumentIR
	OutputIR *ir.DocumentIR
	Findings []ir.Finding
	EditOps  []editop.EditOp
	Applied  int
	Rejected int
	Summary  string
}

// RunStylePolish lints the reassembled document and lands the deterministic
// fixes, leaving LLM-rewritten prose otherwise untouched.
func RunStylePolish(ctx context.Context, doc *ir.DocumentIR, cfg PolishConfig) *PolishResult {
	log.Printf("starting style polish pass")

	var findings []ir.Finding
	if cfg.StylePack != nil {
		findings = append(findings, lint.Document(doc, cfg.StylePack)...)
	}
	findings = append(findings, lint.ProseCandidates(doc)...)

	var linterOps []editop.EditOp
	if cfg.Linter != nil {
		lf, lo, err := cfg.Linter.Run(ctx, doc)
		if err != nil {
			log.Printf("style polish: linter failed: %v", err)
		} else {
			findings = append(findings, lf...)
			linterOps = lo
		}
	}

	if cfg.ReportOnly {
		return &PolishResult{
			InputIR:  doc,
			OutputIR: doc,
			Findings: findings,
			Summary:  fmt.Sprintf("Report only: %d findings (no changes applied)", len(findings)),
		}
	}

	var replacements []rules.ReplacementRule
	if cfg.StylePack != nil {
		replacements = append(replacements, cfg.StylePack.ReplacementRules...)
	}
	if cfg.ProsePack != nil {
		replacements = append(replacements, cfg.ProsePack.ReplacementRules...)
	}
	ops := propose.FromRules(doc, replacements, cfg.ProtectedTerms)
	ops = append(ops, linterOps...)

	ops = apply.EditOps(doc, ops, apply.DefaultOptions(nil))
	findings = append(findings, verify.Ops(ops, cfg.ProtectedTerms)...)

	counts := editop.CountByStatus(ops)
	applied, rejected := counts[editop.Applied], counts[editop.Rejected]
	summary := "No style issues found or all were already correct"
	if applied > 0 {
		summary = fmt.Sprintf("Applied %d style fixes (%d rejected)", applied, rejected)
	}
	log.Printf("style polish complete: %d applied, %d rejected", applied, rejected)

	return &PolishResult{
		InputIR:  doc,
		OutputIR: doc,
		Findings: findings,
		EditOps:  ops,
		Applied:  applied,
		Rejected: rejected,
		Summary:  summary,
	}
}

// PolishReport renders the style polish pass as markdown for the run bundle.
func PolishReport(res *PolishResult) string {
	var b strings.Builder
	b.WriteString("## Style Polish Report\n\n")
	b.WriteString("| Metric | Value |\n|--------|-------|\n")
	fmt.Fprintf(&b, "| Findings | %d |\n", len(res.Findings))
	fmt.Fprintf(&b, "| Edits Applied | %d |\n", res.Applied)
	fmt.Fprintf(&b, "| Edits Rejected | %d |\n\n", res.Rejected)

	if res.Applied > 0 {
		b.WriteString("### Applied Fixes\n\n")
		shown := 0
		for _, op := range res.EditOps {
			if op.Status != editop.Applied {
				continue
			}
			if shown == 20 {
				fmt.Fprintf(&b, "- and %d more\n", res.Applied-20)
				break
			}
			fmt.Fprintf(&b, "- **%s**: `%s` to `%s`\n", op.Intent, clip(op.Before, 50), clip(op.After, 50))
			shown++
		}
		b.WriteString("\n")
	}

	if len(res.Findings) > 0 {
		byCategory := make(map[string][]ir.Finding)
		for _, f := range res.Findings {
			cat := f.Category
			if cat == "" {
				cat = "other"
			}
			byCategory[cat] = append(byCategory[cat], f)
		}
		cats := make([]string, 0, len(byCategory))
		for cat := range byCategory {
			cats = append(cats, cat)
		}
		sort.Strings(cats)

		b.WriteString("### Findings by Category\n\n")
		for _, cat := range cats {
			fs := byCategory[cat]
			fmt.Fprintf(&b, "**%s** (%d)\n", cat, len(fs))
			for i, f := range fs {
				if i == 5 {
					fmt.Fprintf(&b, "  - and %d more\n", len(fs)-5)
					break
				}
				fmt.Fprintf(&b, "  - [%s] %s\n", f.Severity, f.Message)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}
