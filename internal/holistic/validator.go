package holistic

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"redpen/internal/vale"
)

// Recommendation is the validator's verdict on one rewrite.
type Recommendation string

const (
	Accept Recommendation = "accept"
	Review Recommendation = "review"
	Reject Recommendation = "reject"
)

// CheckResult is one validation check outcome.
type CheckResult struct {
	Name     string
	Passed   bool
	Severity string
	Details  string
}

// ValidationResult is the full verdict for a rewrite.
type ValidationResult struct {
	Passed         bool
	Checks         []CheckResult
	Recommendation Recommendation
	Summary        string
}

// ValidatorConfig configures the rewrite validator.
type ValidatorConfig struct {
	ProtectedTerms []string
	Linter         *vale.Runner
}

// Validator checks that a rewrite preserved the invariant content of its
// original. The external linter acts as a guardrail here, not a detector:
// its errors veto a rewrite instead of proposing edits.
type Validator struct {
	cfg ValidatorConfig
}

func NewValidator(cfg ValidatorConfig) *Validator {
	return &Validator{cfg: cfg}
}

var (
	numberPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b\d+\.?\d*%?\b`),
		regexp.MustCompile(`\b\d+(?:,\d{3})+\b`),
		regexp.MustCompile(`\$[\d,]+\.?\d*\b`),
		regexp.MustCompile(`\b5G\b`),
	}
	citationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Figure\s+\d+[-\x{2013}]\d+`),
		regexp.MustCompile(`(?i)Table\s+\d+[-\x{2013}]\d+`),
		regexp.MustCompile(`(?i)Section\s+\d+(?:\.\d+)*`),
		regexp.MustCompile(`\[\d+\]`),
	}
)

func extractSet(text string, patterns []*regexp.Regexp) map[string]bool {
	out := make(map[string]bool)
	for _, re := range patterns {
		for _, m := range re.FindAllString(text, -1) {
			out[m] = true
		}
	}
	return out
}

func missingFrom(orig, rewritten map[string]bool) []string {
	var out []string
	for k := range orig {
		if !rewritten[k] {
			out = append(out, k)
		}
	}
	return out
}

func (v *Validator) checkNumbers(original, rewritten string) CheckResult {
	orig := extractSet(original, numberPatterns)
	missing := missingFrom(orig, extractSet(rewritten, numberPatterns))
	if len(missing) == 0 {
		return CheckResult{Name: "numbers_preserved", Passed: true, Severity: "info",
			Details: fmt.Sprintf("All %d numbers preserved", len(orig))}
	}
	return CheckResult{Name: "numbers_preserved", Passed: false, Severity: "error",
		Details: "Missing numbers: " + strings.Join(missing, ", ")}
}

func (v *Validator) checkCitations(original, rewritten string) CheckResult {
	orig := extractSet(original, citationPatterns)
	if len(orig) == 0 {
		return CheckResult{Name: "citations_preserved", Passed: true, Severity: "info",
			Details: "No citations to preserve"}
	}
	missing := missingFrom(orig, extractSet(rewritten, citationPatterns))
	if len(missing) == 0 {
		return CheckResult{Name: "citations_preserved", Passed: true, Severity: "info",
			Details: fmt.Sprintf("All %d citations preserved", len(orig))}
	}
	return CheckResult{Name: "citations_preserved", Passed: false, Severity: "error",
		Details: "Missing citations: " + strings.Join(missing, ", ")}
}

// termsIn skips terms of two characters or fewer: the model may legitimately
// spell out "IT" as "Information Technology", and short terms false-positive
// inside ordinary words anyway.
func (v *Validator) termsIn(text string) map[string]bool {
	found := make(map[string]bool)
	lower := strings.ToLower(text)
	for _, term := range v.cfg.ProtectedTerms {
		if len(term) <= 2 {
			continue
		}
		if strings.Contains(lower, strings.ToLower(term)) {
			found[term] = true
		}
	}
	return found
}

func (v *Validator) checkProtectedTerms(original, rewritten string) CheckResult {
	orig := v.termsIn(original)
	if len(orig) == 0 {
		return CheckResult{Name: "terms_preserved", Passed: true, Severity: "info",
			Details: "No protected terms in original"}
	}
	missing := missingFrom(orig, v.termsIn(rewritten))
	if len(missing) == 0 {
		return CheckResult{Name: "terms_preserved", Passed: true, Severity: "info",
			Details: fmt.Sprintf("All %d protected terms preserved", len(orig))}
	}
	return CheckResult{Name: "terms_preserved", Passed: false, Severity: "error",
		Details: "Missing terms: " + strings.Join(missing, ", ")}
}

// checkLength never fails; the length change is recorded for the report.
func (v *Validator) checkLength(original, rewritten string) CheckResult {
	origWords := len(strings.Fields(original))
	newWords := len(strings.Fields(rewritten))
	if origWords == 0 {
		return CheckResult{Name: "length_reasonable", Passed: true, Severity: "info", Details: "Empty original"}
	}
	ratio := float64(newWords) / float64(origWords)
	change := fmt.Sprintf("%d to %d", origWords, newWords)
	if ratio < 1 {
		change += fmt.Sprintf(" (%.0f%% shorter)", (1-ratio)*100)
	} else if ratio > 1 {
		change += fmt.Sprintf(" (%.0f%% longer)", (ratio-1)*100)
	}
	return CheckResult{Name: "length_reasonable", Passed: true, Severity: "info", Details: change}
}

func (v *Validator) checkLinter(ctx context.Context, rewritten string) CheckResult {
	if v.cfg.Linter == nil {
		return CheckResult{Name: "linter_critical", Passed: true, Severity: "info", Details: "Linter disabled"}
	}
	alerts, err := v.cfg.Linter.IssuesFor(ctx, rewritten)
	if err != nil {
		log.Printf("linter validation skipped: %v", err)
		return CheckResult{Name: "linter_critical", Passed: true, Severity: "info", Details: "Linter unavailable"}
	}
	var errors, warnings []string
	for _, a := range alerts {
		switch a.Severity {
		case "error":
			errors = append(errors, a.Check)
		case "warning":
			warnings = append(warnings, a.Check)
		}
	}
	if len(errors) > 0 {
		return CheckResult{Name: "linter_critical", Passed: false, Severity: "error",
			Details: fmt.Sprintf("%d linter errors: %s", len(errors), strings.Join(head(errors, 3), ", "))}
	}
	if len(warnings) > 0 {
		return CheckResult{Name: "linter_critical", Passed: true, Severity: "warning",
			Details: fmt.Sprintf("%d linter warnings", len(warnings))}
	}
	return CheckResult{Name: "linter_critical", Passed: true, Severity: "info", Details: "No linter issues"}
}

func (v *Validator) checkNotIdentical(original, rewritten string) CheckResult {
	if strings.Join(strings.Fields(original), " ") == strings.Join(strings.Fields(rewritten), " ") {
		return CheckResult{Name: "changes_made", Passed: true, Severity: "info",
			Details: "No changes made (original returned unchanged)"}
	}
	return CheckResult{Name: "changes_made", Passed: true, Severity: "info", Details: "Changes detected"}
}

func head(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}

// Validate runs the full check battery and reduces to a recommendation: any
// failed error-severity check rejects the rewrite, any warning-severity check
// sends it to review, otherwise it is accepted.
func (v *Validator) Validate(ctx context.Context, original, rewritten string) ValidationResult {
	checks := []CheckResult{
		v.checkNumbers(original, rewritten),
		v.checkCitations(original, rewritten),
		v.checkProtectedTerms(original, rewritten),
		v.checkLength(original, rewritten),
		v.checkLinter(ctx, rewritten),
		v.checkNotIdentical(original, rewritten),
	}

	var firstError, firstWarning *CheckResult
	errorCount, warningCount := 0, 0
	for i := range checks {
		c := &checks[i]
		if !c.Passed && c.Severity == "error" {
			errorCount++
			if firstError == nil {
				firstError = c
			}
		}
		if c.Severity == "warning" {
			warningCount++
			if firstWarning == nil {
				firstWarning = c
			}
		}
	}

	switch {
	case errorCount > 0:
		return ValidationResult{
			Passed:         false,
			Checks:         checks,
			Recommendation: Reject,
			Summary:        fmt.Sprintf("REJECT: %d critical errors (%s)", errorCount, firstError.Details),
		}
	case warningCount > 0:
		return ValidationResult{
			Passed:         true,
			Checks:         checks,
			Recommendation: Review,
			Summary:        fmt.Sprintf("REVIEW: %d warnings (%s)", warningCount, firstWarning.Details),
		}
	default:
		return ValidationResult{
			Passed:         true,
			Checks:         checks,
			Recommendation: Accept,
			Summary:        "ACCEPT: All checks passed",
		}
	}
}

// IssueSummaries renders linter complaints about a rewrite for the feedback
// correction prompt.
func (v *Validator) IssueSummaries(ctx context.Context, text string) []string {
	if v.cfg.Linter == nil {
		return nil
	}
	alerts, err := v.cfg.Linter.IssuesFor(ctx, text)
	if err != nil {
		return nil
	}
	var out []string
	for _, a := range alerts {
		if a.Severity == "warning" || a.Severity == "error" {
			out = append(out, fmt.Sprintf("%s: %s (%q)", a.Check, a.Message, a.Match))
		}
	}
	return out
}
