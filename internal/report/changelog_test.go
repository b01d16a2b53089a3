package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redpen/internal/editop"
	"redpen/internal/ir"
	"redpen/internal/redline"
	"redpen/internal/rules"
)

func sampleChangelog() *Changelog {
	return &Changelog{
		TimestampUTC: "2026-08-27T12:00:00Z",
		RunID:        "run-1",
		Artifacts: Artifacts{
			OriginalDocx: "doc.original.docx",
			CleanDocx:    "doc.clean.docx",
		},
		Checklist: rules.ChecklistResult{OK: false, Missing: []string{"verification.invariants"}},
		Redline:   redline.Result{Backend: "text_diff", Status: "generated", Message: "unified diff fallback"},
		Stats:     map[string]int{"editops_applied": 4, "editops_total": 6, "findings_total": 2},
		Findings: []ir.Finding{{
			RuleID: "style.title.too_long", Severity: ir.SeverityWarning,
			Category: "house_style", Message: "Title exceeds 7 words.",
		}},
		EditOps: []editop.EditOp{{
			RuleID: "prose.wordiness.in_order_to", Intent: "prose_quality",
			Status: editop.Applied, Target: editop.Target{Anchor: "abc123"},
		}},
	}
}

func TestRenderText(t *testing.T) {
	text := sampleChangelog().RenderText()

	assert.Contains(t, text, "Review Bundle 2026-08-27T12:00:00Z")
	assert.Contains(t, text, "- Original: doc.original.docx")
	assert.Contains(t, text, "- Redline:  [not generated]")
	assert.Contains(t, text, "- Missing: verification.invariants")
	assert.Contains(t, text, "- Backend: text_diff")
	assert.Contains(t, text, "- editops_applied: 4")
	assert.Contains(t, text, "[WARNING] house_style style.title.too_long")
	assert.Contains(t, text, "- applied: prose.wordiness.in_order_to (prose_quality) @ anchor=abc123")
}

func TestRenderText_StatsAreSorted(t *testing.T) {
	text := sampleChangelog().RenderText()

	i := strings.Index(text, "editops_applied")
	j := strings.Index(text, "editops_total")
	k := strings.Index(text, "findings_total")
	assert.True(t, i < j && j < k)
}

func TestWriteJSONAndText(t *testing.T) {
	dir := t.TempDir()
	c := sampleChangelog()

	jsonPath := filepath.Join(dir, "changelog.json")
	require.NoError(t, c.WriteJSON(jsonPath))

	raw, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var decoded Changelog
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, c.RunID, decoded.RunID)
	assert.Equal(t, c.Stats, decoded.Stats)

	textPath := filepath.Join(dir, "changelog.txt")
	require.NoError(t, c.WriteText(textPath))
	rawText, err := os.ReadFile(textPath)
	require.NoError(t, err)
	assert.Equal(t, c.RenderText(), string(rawText))
}
