package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadPack_AppliesDefaults(t *testing.T) {
	path := writeYAML(t, "pack.yml", `
replacement_rules:
  - id: r1
    search: utilize
    replace: use
  - id: r2
    search: e-mail
    replace: email
    risk_tier: medium
    category: house_style
`)
	pack, err := LoadPack(path)
	require.NoError(t, err)
	require.Len(t, pack.ReplacementRules, 2)

	assert.Equal(t, "low", pack.ReplacementRules[0].RiskTier)
	assert.Equal(t, "general", pack.ReplacementRules[0].Category)
	assert.True(t, pack.ReplacementRules[0].Insensitive())
	assert.Equal(t, "medium", pack.ReplacementRules[1].RiskTier)
	assert.Equal(t, "house_style", pack.ReplacementRules[1].Category)
}

func TestLoadPack_RejectsRuleWithoutSearch(t *testing.T) {
	path := writeYAML(t, "pack.yml", `
replacement_rules:
  - id: r1
    replace: use
`)
	_, err := LoadPack(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing id or search")
}

func TestLoadPack_MissingFile(t *testing.T) {
	_, err := LoadPack(filepath.Join(t.TempDir(), "absent.yml"))
	assert.Error(t, err)
}

func TestReplacementRule_Insensitive(t *testing.T) {
	yes, no := true, false
	assert.True(t, ReplacementRule{}.Insensitive())
	assert.True(t, ReplacementRule{CaseInsensitive: &yes}.Insensitive())
	assert.False(t, ReplacementRule{CaseInsensitive: &no}.Insensitive())
}

func TestLoadProtectedTerms_DedupesAndSorts(t *testing.T) {
	path := writeYAML(t, "terms.yml", `
protected_terms:
  - TM Forum
  - 3GPP
  - "  TM Forum  "
  - ""
  - Kubernetes
`)
	terms, err := LoadProtectedTerms(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"3GPP", "Kubernetes", "TM Forum"}, terms)
}

func TestCheckCoverage(t *testing.T) {
	full := &Pack{Capabilities: []string{
		"style.title.max_words",
		"style.required_sections",
		"style.captions.figure_table_format",
		"style.capitalization.common_noun",
		"protected_terms.enabled",
		"outputs.bundle.clean_redline_changelog",
		"representation.editops",
		"verification.invariants",
		"verification.structure_inventory",
	}}
	res := CheckCoverage(full)
	assert.True(t, res.OK)
	assert.Empty(t, res.Missing)

	partial := &Pack{Capabilities: []string{"style.title.max_words"}}
	res = CheckCoverage(partial)
	assert.False(t, res.OK)
	assert.Contains(t, res.Missing, "verification.invariants")
}
