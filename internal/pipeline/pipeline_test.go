package pipeline

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redpen/internal/docx"
	"redpen/internal/history"
)

const fixtureDocumentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:pPr><w:pStyle w:val="Title"/></w:pPr><w:r><w:t>Edge Deployment Guide</w:t></w:r></w:p>
<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>Abstract</w:t></w:r></w:p>
<w:p><w:r><w:t>In order to deploy the platform, operators follow the documented procedure.</w:t></w:r></w:p>
<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>References</w:t></w:r></w:p>
<w:p><w:r><w:t>See the project handbook.</w:t></w:r></w:p>
</w:body>
</w:document>`

func writeFixtureDocx(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "guide.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	entries := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`,
		"word/document.xml": fixtureDocumentXML,
	}
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func writeFixtureRules(t *testing.T, dir string) (style, prose, terms string) {
	t.Helper()
	style = filepath.Join(dir, "style_rules.yml")
	require.NoError(t, os.WriteFile(style, []byte(`
capabilities:
  - style.title.max_words
  - style.required_sections
  - style.captions.figure_table_format
  - style.capitalization.common_noun
  - protected_terms.enabled
  - outputs.bundle.clean_redline_changelog
  - representation.editops
  - verification.invariants
  - verification.structure_inventory
validators:
  title:
    max_words: 7
  required_sections:
    - name: Abstract
      severity: warning
    - name: References
      severity: warning
replacement_rules:
  - id: style.spelling.email
    search: e-mail
    replace: email
`), 0o644))

	prose = filepath.Join(dir, "prose_rules.yml")
	require.NoError(t, os.WriteFile(prose, []byte(`
replacement_rules:
  - id: prose.wordiness.in_order_to
    search: in order to
    replace: to
    category: prose_quality
`), 0o644))

	terms = filepath.Join(dir, "protected_terms.yml")
	require.NoError(t, os.WriteFile(terms, []byte(`
protected_terms:
  - TM Forum
`), 0o644))
	return style, prose, terms
}

func TestRun_SafeModeProducesBundle(t *testing.T) {
	dir := t.TempDir()
	input := writeFixtureDocx(t, dir)
	style, prose, terms := writeFixtureRules(t, dir)
	historyDB := filepath.Join(dir, "history.db")

	result, err := Run(context.Background(), Options{
		InputPath:          input,
		OutDir:             filepath.Join(dir, "out"),
		Mode:               ModeSafe,
		StyleRulesPath:     style,
		ProseRulesPath:     prose,
		ProtectedTermsPath: terms,
		HistoryDB:          historyDB,
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	// Bundle artifacts are in place.
	assert.FileExists(t, result.CleanPath)
	stem := "guide"
	assert.FileExists(t, filepath.Join(result.BundleDir, stem+".original.docx"))
	assert.FileExists(t, filepath.Join(result.BundleDir, stem+".changelog.json"))
	assert.FileExists(t, filepath.Join(result.BundleDir, stem+".changelog.txt"))
	assert.FileExists(t, filepath.Join(result.BundleDir, "pipeline_report.json"))

	// The wordiness fix landed in the clean document, sentence case intact.
	clean, _, err := docx.Extract(result.CleanPath)
	require.NoError(t, err)
	var bodyText string
	for _, b := range clean.Blocks {
		if b.Ref.DocIndex == 2 {
			bodyText = b.Text
		}
	}
	assert.Equal(t, "To deploy the platform, operators follow the documented procedure.", bodyText)

	// The changelog reflects the applied op.
	require.NotNil(t, result.Changelog)
	assert.GreaterOrEqual(t, result.Changelog.Stats["editops_applied"], 1)
	assert.True(t, result.Changelog.Checklist.OK)
	assert.False(t, result.ReviewNeeded)

	// The run is on the audit trail.
	store, err := history.Open(historyDB)
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.RecentRuns(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, result.RunID, runs[0].ID)
	assert.Equal(t, ModeSafe, runs[0].Mode)
}

func TestRun_UnknownModeFails(t *testing.T) {
	_, err := Run(context.Background(), Options{Mode: "aggressive"})
	assert.Error(t, err)
}

func TestRun_EmptyModeDefaultsToSafe(t *testing.T) {
	dir := t.TempDir()
	input := writeFixtureDocx(t, dir)
	style, prose, terms := writeFixtureRules(t, dir)

	result, err := Run(context.Background(), Options{
		InputPath:          input,
		OutDir:             filepath.Join(dir, "out"),
		StyleRulesPath:     style,
		ProseRulesPath:     prose,
		ProtectedTermsPath: terms,
	})
	require.NoError(t, err)
	assert.Contains(t, result.BundleDir, "guide_")
}
