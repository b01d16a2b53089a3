// Package lint implements the deterministic document checks: house-style
// structure checks and the prose-quality candidate detector whose findings
// feed the LLM proposer.
package lint

import (
	"fmt"
	"regexp"
	"strings"

	"redpen/internal/ir"
	"redpen/internal/rules"
)

// Finding categories used across the pipeline.
const (
	CategoryStyle     = "house_style"
	CategoryProse     = "prose_quality"
	CategoryStructure = "structure"
	CategoryInvariant = "invariant"
)

// Prose-candidate rule ids consumed by the LLM proposer.
const (
	RuleRunOn          = "prose.runon_or_complex"
	RuleThroatClearing = "prose.throat_clearing_opening"
)

var (
	figureCaptionRe = regexp.MustCompile(`\bFigure\s+(\d+)(?:[^-\d]|$)`)
	tableCaptionRe  = regexp.MustCompile(`\bTable\s+(\d+)(?:[^-\d]|$)`)

	throatClearingRes = []*regexp.Regexp{
		regexp.MustCompile(`^As has been`),
		regexp.MustCompile(`^It is important to note that\b`),
		regexp.MustCompile(`^It should be noted that\b`),
		regexp.MustCompile(`^The fact that\b`),
	}

	clauseMarkers = []string{
		" which ", " that ", " because ", " although ", " whereas ",
		" while ", " since ", " if ", " when ",
	}
)

// Document runs the house-style checks configured in the rule pack.
func Document(doc *ir.DocumentIR, pack *rules.Pack) []ir.Finding {
	var findings []ir.Finding

	maxWords := pack.Validators.Title.MaxWords
	if maxWords <= 0 {
		maxWords = 7
	}
	if doc.Title != "" {
		wc := len(strings.Fields(doc.Title))
		if wc > maxWords {
			findings = append(findings, ir.Finding{
				RuleID:   "style.title.too_long",
				Severity: ir.SeverityWarning,
				Category: CategoryStyle,
				Message:  fmt.Sprintf("Title exceeds %d words (found %d).", maxWords, wc),
				Before:   doc.Title,
				RiskTier: ir.RiskMedium,
				Details:  map[string]string{"max_words": fmt.Sprint(maxWords), "word_count": fmt.Sprint(wc)},
			})
		}
	}

	whole := strings.ToLower(doc.FullText())
	for _, sec := range pack.Validators.RequiredSections {
		name := strings.TrimSpace(sec.Name)
		if name == "" || strings.Contains(whole, strings.ToLower(name)) {
			continue
		}
		sev, tier := ir.SeverityWarning, ir.RiskMedium
		if strings.EqualFold(sec.Severity, "critical") {
			sev, tier = ir.SeverityCritical, ir.RiskHigh
		}
		findings = append(findings, ir.Finding{
			RuleID:   "style.required_section.missing",
			Severity: sev,
			Category: CategoryStyle,
			Message:  fmt.Sprintf("Missing section: %s", name),
			RiskTier: tier,
			Details:  map[string]string{"section": name},
		})
	}

	findings = append(findings, captionFindings(doc)...)
	findings = append(findings, capitalizationFindings(doc, pack)...)
	return findings
}

func captionFindings(doc *ir.DocumentIR) []ir.Finding {
	var findings []ir.Finding
	for i := range doc.Blocks {
		b := &doc.Blocks[i]
		for _, hit := range figureCaptionRe.FindAllStringIndex(b.Text, -1) {
			findings = append(findings, captionFinding(b, hit,
				"style.captions.figure_format",
				"Figure caption should use Chapter-Figure format (e.g., Figure 3-1)."))
		}
		for _, hit := range tableCaptionRe.FindAllStringIndex(b.Text, -1) {
			findings = append(findings, captionFinding(b, hit,
				"style.captions.table_format",
				"Table caption should use Chapter-Table format (e.g., Table 3-1)."))
		}
	}
	return findings
}

func captionFinding(b *ir.TextBlock, hit []int, ruleID, msg string) ir.Finding {
	ref := b.Ref
	return ir.Finding{
		RuleID:   ruleID,
		Severity: ir.SeverityWarning,
		Category: CategoryStyle,
		Message:  msg,
		Ref:      &ref,
		Before:   snippet(b.Text, hit[0], hit[1]),
		RiskTier: ir.RiskLow,
		Details:  map[string]string{"anchor": b.Anchor},
	}
}

func capitalizationFindings(doc *ir.DocumentIR, pack *rules.Pack) []ir.Finding {
	cfg := pack.Validators.Capitalization
	if !cfg.CommonNounLowercase || cfg.CommonNoun == "" {
		return nil
	}
	pattern := `(?i)\b(a|an|the)\s+` + regexp.QuoteMeta(cfg.CommonNoun) + `\b`
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil
	}
	var findings []ir.Finding
	for i := range doc.Blocks {
		b := &doc.Blocks[i]
		for _, hit := range re.FindAllStringIndex(b.Text, -1) {
			match := b.Text[hit[0]:hit[1]]
			// Only flag the capitalized form, and never the proper-noun
			// exception (e.g. an organization name that embeds the term).
			if match == strings.ToLower(match) {
				continue
			}
			if cfg.ProperException != "" && strings.HasPrefix(b.Text[hit[0]:], properPrefix(match, cfg.ProperException)) {
				continue
			}
			ref := b.Ref
			findings = append(findings, ir.Finding{
				RuleID:   "style.capitalization.common_noun",
				Severity: ir.SeverityInfo,
				Category: CategoryStyle,
				Message:  fmt.Sprintf("Common noun %q should be lowercase (except proper nouns).", cfg.CommonNoun),
				Ref:      &ref,
				Before:   snippet(b.Text, hit[0], hit[1]),
				RiskTier: ir.RiskLow,
				Details:  map[string]string{"anchor": b.Anchor},
			})
		}
	}
	return findings
}

func properPrefix(match, exception string) string {
	// The article stays; the exception replaces the common-noun tail.
	fields := strings.Fields(match)
	if len(fields) < 2 {
		return exception
	}
	return fields[0] + " " + exception
}

func snippet(text string, start, end int) string {
	lo := start - 25
	if lo < 0 {
		lo = 0
	}
	hi := end + 25
	if hi > len(text) {
		hi = len(text)
	}
	return text[lo:hi]
}

// SplitSentences splits text after sentence-final punctuation followed by
// whitespace, keeping the punctuation with its sentence.
func SplitSentences(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i < len(trimmed); i++ {
		c := trimmed[i]
		if c != '.' && c != '!' && c != '?' {
			continue
		}
		j := i + 1
		for j < len(trimmed) && (trimmed[j] == ' ' || trimmed[j] == '\t' || trimmed[j] == '\n') {
			j++
		}
		if j > i+1 {
			if s := strings.TrimSpace(trimmed[start : i+1]); s != "" {
				out = append(out, s)
			}
			start = j
			i = j - 1
		}
	}
	if start < len(trimmed) {
		if s := strings.TrimSpace(trimmed[start:]); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func subordinateClauseCount(s string) int {
	lower := " " + strings.ToLower(s) + " "
	count := 0
	for _, m := range clauseMarkers {
		count += strings.Count(lower, m)
	}
	count += strings.Count(s, ",") / 2
	return count
}

// ProseCandidates flags sentences worth an LLM rewrite: run-on or overly
// complex sentences, and throat-clearing openers.
func ProseCandidates(doc *ir.DocumentIR) []ir.Finding {
	var findings []ir.Finding
	for i := range doc.Blocks {
		b := &doc.Blocks[i]
		if strings.TrimSpace(b.Text) == "" {
			continue
		}
		for _, s := range SplitSentences(b.Text) {
			wc := len(strings.Fields(s))
			if wc < 6 {
				continue
			}
			cc := subordinateClauseCount(s)
			if wc > 35 || cc > 2 {
				tier := ir.RiskMedium
				if wc > 55 {
					tier = ir.RiskHigh
				}
				ref := b.Ref
				findings = append(findings, ir.Finding{
					RuleID:   RuleRunOn,
					Severity: ir.SeverityWarning,
					Category: CategoryProse,
					Message:  fmt.Sprintf("Possible run-on/complex sentence (words=%d, clauses~=%d).", wc, cc),
					Ref:      &ref,
					Before:   s,
					RiskTier: tier,
					Details:  map[string]string{"words": fmt.Sprint(wc), "clause_estimate": fmt.Sprint(cc), "anchor": b.Anchor},
				})
			}
			for _, re := range throatClearingRes {
				if re.MatchString(s) {
					ref := b.Ref
					findings = append(findings, ir.Finding{
						RuleID:   RuleThroatClearing,
						Severity: ir.SeverityInfo,
						Category: CategoryProse,
						Message:  "Throat-clearing / pompous opening.",
						Ref:      &ref,
						Before:   s,
						RiskTier: ir.RiskLow,
						Details:  map[string]string{"anchor": b.Anchor},
					})
					break
				}
			}
		}
	}
	return findings
}
