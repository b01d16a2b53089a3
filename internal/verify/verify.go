// Package verify checks that applied edits preserved the document's
// factual skeleton: numbers, citations, normative keywords, protected terms,
// and coarse structure.
package verify

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"redpen/internal/editop"
	"redpen/internal/ir"
	"redpen/internal/lint"
)

var (
	numberRe   = regexp.MustCompile(`\$\d+(?:\.\d+)?|\b\d+(?:\.\d+)?%?`)
	citationRe = regexp.MustCompile(`\[\d+\]|\(\d{4}\)|et al\.`)

	// Compound forms first so SHALL NOT is never counted as a bare SHALL.
	// The boundaries keep SHALLOW and MAYBE out of the counts.
	normativeRe = regexp.MustCompile(`\b(?:SHALL NOT|MUST NOT|SHOULD NOT|SHALL|MUST|SHOULD|MAY|REQUIRED|RECOMMENDED|OPTIONAL)\b`)
)

// protectedScanCap bounds the block-by-term scan on pathological documents.
const protectedScanCap = 2000

// featureSet is the invariant content of a text fragment.
type featureSet struct {
	numbers   map[string]int
	citations map[string]int
	normative map[string]int
}

func extractFeatures(text string) featureSet {
	fs := featureSet{
		numbers:   map[string]int{},
		citations: map[string]int{},
		normative: map[string]int{},
	}
	for _, m := range numberRe.FindAllString(text, -1) {
		fs.numbers[m]++
	}
	for _, m := range citationRe.FindAllString(text, -1) {
		fs.citations[m]++
	}
	for _, m := range normativeRe.FindAllString(text, -1) {
		fs.normative[m]++
	}
	return fs
}

// changed returns the keys whose counts differ between before and after.
// Both directions count: an invented number is as suspect as a dropped one.
func changed(before, after map[string]int) []string {
	var out []string
	for k, n := range before {
		if after[k] != n {
			out = append(out, k)
		}
	}
	for k := range after {
		if _, ok := before[k]; !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// lostProtectedTerm reports the first protected term present in before but
// absent from after. The scan is capped and stops at the first loss; one
// broken term is enough to fail the op.
func lostProtectedTerm(before, after string, terms []string) (string, bool) {
	if len(before) > protectedScanCap {
		before = before[:protectedScanCap]
	}
	for _, term := range terms {
		if strings.TrimSpace(term) == "" {
			continue
		}
		if strings.Contains(before, term) && !strings.Contains(after, term) {
			return term, true
		}
	}
	return "", false
}

// Ops checks every applied edit operation for invariant damage, comparing the
// text the proposer saw against the text it wrote. Numbers, citations, and
// normative keywords must match as sets; no protected term may disappear.
// Each violation is a critical finding carrying the offending op id, and is
// also recorded on the op itself.
func Ops(ops []editop.EditOp, protectedTerms []string) []ir.Finding {
	var findings []ir.Finding
	for i := range ops {
		op := &ops[i]
		if op.Status != editop.Applied {
			continue
		}
		before := extractFeatures(op.Before)
		after := extractFeatures(op.After)

		for _, check := range []struct {
			rule    string
			what    string
			changed []string
		}{
			{"verify.numbers_preserved", "number", changed(before.numbers, after.numbers)},
			{"verify.citations_preserved", "citation", changed(before.citations, after.citations)},
			{"verify.normative_preserved", "normative keyword", changed(before.normative, after.normative)},
		} {
			if len(check.changed) == 0 {
				continue
			}
			op.SetVerification(check.rule, "failed")
			findings = append(findings, ir.Finding{
				RuleID:   check.rule,
				Severity: ir.SeverityCritical,
				Category: lint.CategoryInvariant,
				Message:  fmt.Sprintf("Edit changed %s set: %s", check.what, strings.Join(check.changed, ", ")),
				Before:   op.Before,
				After:    op.After,
				RiskTier: ir.RiskHigh,
				Details: map[string]string{
					"editop_id": op.ID,
					"anchor":    op.Target.Anchor,
					"changed":   strings.Join(check.changed, ", "),
				},
			})
		}

		if term, ok := lostProtectedTerm(op.Before, op.After, protectedTerms); ok {
			op.SetVerification("verify.protected_term_preserved", "failed")
			findings = append(findings, ir.Finding{
				RuleID:   "verify.protected_term_preserved",
				Severity: ir.SeverityCritical,
				Category: lint.CategoryInvariant,
				Message:  fmt.Sprintf("Edit dropped protected term %q.", term),
				Before:   op.Before,
				After:    op.After,
				RiskTier: ir.RiskHigh,
				Details: map[string]string{
					"editop_id": op.ID,
					"anchor":    op.Target.Anchor,
					"term":      term,
				},
			})
		}
	}
	return findings
}

// ProtectedTerms verifies no protected term lost occurrences between the
// original and edited documents. The scan is capped; documents large enough
// to hit the cap get a warning instead of silent truncation.
func ProtectedTerms(original, edited *ir.DocumentIR, terms []string) []ir.Finding {
	var findings []ir.Finding
	scans := 0
	for _, term := range terms {
		if strings.TrimSpace(term) == "" {
			continue
		}
		before := 0
		after := 0
		for i := range original.Blocks {
			before += strings.Count(original.Blocks[i].Text, term)
			scans++
		}
		for i := range edited.Blocks {
			after += strings.Count(edited.Blocks[i].Text, term)
			scans++
		}
		if after < before {
			findings = append(findings, ir.Finding{
				RuleID:   "verify.protected_term_preserved",
				Severity: ir.SeverityCritical,
				Category: lint.CategoryInvariant,
				Message:  fmt.Sprintf("Protected term %q occurs %d times, expected %d.", term, after, before),
				RiskTier: ir.RiskHigh,
				Details:  map[string]string{"term": term, "before": fmt.Sprint(before), "after": fmt.Sprint(after)},
			})
		}
		if scans >= protectedScanCap {
			findings = append(findings, ir.Finding{
				RuleID:   "verify.protected_term_scan_truncated",
				Severity: ir.SeverityWarning,
				Category: lint.CategoryInvariant,
				Message:  "Protected-term scan truncated on a very large document.",
				RiskTier: ir.RiskMedium,
			})
			break
		}
	}
	return findings
}

// Structure compares before/after structure inventories. A lost table is
// always critical; paragraph and heading counts tolerate small drops because
// legitimate edits may merge or empty blocks.
func Structure(before, after ir.StructureInventory) []ir.Finding {
	var findings []ir.Finding
	if after.TableCount < before.TableCount {
		findings = append(findings, ir.Finding{
			RuleID:   "verify.structure.tables",
			Severity: ir.SeverityCritical,
			Category: lint.CategoryStructure,
			Message:  fmt.Sprintf("Table count dropped from %d to %d.", before.TableCount, after.TableCount),
			RiskTier: ir.RiskHigh,
		})
	}
	if before.ParagraphCount-after.ParagraphCount > 5 {
		findings = append(findings, ir.Finding{
			RuleID:   "verify.structure.paragraphs",
			Severity: ir.SeverityWarning,
			Category: lint.CategoryStructure,
			Message:  fmt.Sprintf("Paragraph count dropped from %d to %d.", before.ParagraphCount, after.ParagraphCount),
			RiskTier: ir.RiskMedium,
		})
	}
	if len(before.Headings)-len(after.Headings) > 3 {
		findings = append(findings, ir.Finding{
			RuleID:   "verify.structure.headings",
			Severity: ir.SeverityWarning,
			Category: lint.CategoryStructure,
			Message:  fmt.Sprintf("Heading count dropped from %d to %d.", len(before.Headings), len(after.Headings)),
			RiskTier: ir.RiskMedium,
		})
	}
	for _, flag := range []struct {
		name          string
		before, after bool
	}{
		{"abstract", before.HasAbstract, after.HasAbstract},
		{"references", before.HasReferences, after.HasReferences},
		{"authors", before.HasAuthors, after.HasAuthors},
	} {
		if flag.before && !flag.after {
			findings = append(findings, ir.Finding{
				RuleID:   "verify.structure." + flag.name,
				Severity: ir.SeverityCritical,
				Category: lint.CategoryStructure,
				Message:  fmt.Sprintf("Document lost its %s section.", flag.name),
				RiskTier: ir.RiskHigh,
			})
		}
	}
	return findings
}

// Run is the full post-apply verification battery.
func Run(original, edited *ir.DocumentIR, ops []editop.EditOp, protectedTerms []string, before, after ir.StructureInventory) []ir.Finding {
	findings := Ops(ops, protectedTerms)
	findings = append(findings, ProtectedTerms(original, edited, protectedTerms)...)
	findings = append(findings, Structure(before, after)...)
	return findings
}
