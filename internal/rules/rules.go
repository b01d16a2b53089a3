// Package rules loads the YAML rule packs that drive the deterministic
// proposer: replacement rules, validator thresholds, protected terms, and the
// capability checklist asserted before a run starts.
package rules

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ReplacementRule is one deterministic search/replace record.
type ReplacementRule struct {
	ID              string `yaml:"id"`
	Category        string `yaml:"category"`
	Rationale       string `yaml:"rationale"`
	Search          string `yaml:"search"`
	Replace         string `yaml:"replace"`
	CaseInsensitive *bool  `yaml:"case_insensitive"`
	WholeWord       bool   `yaml:"whole_word"`
	RequiresReview  bool   `yaml:"requires_review"`
	RiskTier        string `yaml:"risk_tier"`
}

// Insensitive reports the case sensitivity of the rule; unset means
// case-insensitive, matching the pack file convention.
func (r ReplacementRule) Insensitive() bool {
	return r.CaseInsensitive == nil || *r.CaseInsensitive
}

// RequiredSection names a section the linter expects to find.
type RequiredSection struct {
	Name     string `yaml:"name"`
	Severity string `yaml:"severity"`
}

// TitleValidator bounds title length.
type TitleValidator struct {
	MaxWords int `yaml:"max_words"`
}

// CapitalizationValidator toggles capitalization lint checks.
type CapitalizationValidator struct {
	CommonNounLowercase bool   `yaml:"common_noun_lowercase"`
	CommonNoun          string `yaml:"common_noun"`
	ProperException     string `yaml:"proper_exception"`
}

// Validators is the lint configuration carried by a rule pack.
type Validators struct {
	Title            TitleValidator          `yaml:"title"`
	RequiredSections []RequiredSection       `yaml:"required_sections"`
	Capitalization   CapitalizationValidator `yaml:"capitalization"`
}

// Pack is one loaded rule file.
type Pack struct {
	Capabilities     []string          `yaml:"capabilities"`
	Validators       Validators        `yaml:"validators"`
	ReplacementRules []ReplacementRule `yaml:"replacement_rules"`
}

// LoadPack reads and parses a YAML rule pack.
func LoadPack(path string) (*Pack, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule pack: %w", err)
	}
	var p Pack
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("parse rule pack %s: %w", path, err)
	}
	for i, r := range p.ReplacementRules {
		if r.ID == "" || r.Search == "" {
			return nil, fmt.Errorf("rule pack %s: replacement rule %d missing id or search", path, i)
		}
		if r.RiskTier == "" {
			p.ReplacementRules[i].RiskTier = "low"
		}
		if r.Category == "" {
			p.ReplacementRules[i].Category = "general"
		}
	}
	return &p, nil
}

type protectedTermsFile struct {
	ProtectedTerms []string `yaml:"protected_terms"`
}

// LoadProtectedTerms reads the protected-terms YAML and returns the terms
// deduplicated and sorted.
func LoadProtectedTerms(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read protected terms: %w", err)
	}
	var f protectedTermsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse protected terms %s: %w", path, err)
	}
	seen := make(map[string]bool, len(f.ProtectedTerms))
	terms := make([]string, 0, len(f.ProtectedTerms))
	for _, t := range f.ProtectedTerms {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		terms = append(terms, t)
	}
	sort.Strings(terms)
	return terms, nil
}

// ChecklistResult reports rule-pack completeness.
type ChecklistResult struct {
	OK      bool     `json:"ok"`
	Missing []string `json:"missing"`
	Notes   []string `json:"notes"`
}

// requiredCapabilities a style rule pack must declare before a run starts.
var requiredCapabilities = []string{
	"style.title.max_words",
	"style.required_sections",
	"style.captions.figure_table_format",
	"style.capitalization.common_noun",
	"protected_terms.enabled",
	"outputs.bundle.clean_redline_changelog",
	"representation.editops",
	"verification.invariants",
	"verification.structure_inventory",
}

// CheckCoverage asserts the pack declares every required capability.
func CheckCoverage(p *Pack) ChecklistResult {
	declared := make(map[string]bool, len(p.Capabilities))
	for _, c := range p.Capabilities {
		declared[c] = true
	}
	var missing []string
	for _, c := range requiredCapabilities {
		if !declared[c] {
			missing = append(missing, c)
		}
	}
	res := ChecklistResult{OK: len(missing) == 0, Missing: missing}
	if res.OK {
		res.Notes = append(res.Notes, "All core style, representation, and verification capabilities present.")
	} else {
		res.Notes = append(res.Notes, "Missing capabilities should be added to the rule pack and covered by tests.")
	}
	return res
}
