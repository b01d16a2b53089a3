package vale

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redpen/internal/editop"
	"redpen/internal/ir"
)

func testBlock(text string) *ir.TextBlock {
	return &ir.TextBlock{
		Ref:    ir.BlockRef{BlockType: ir.Paragraph, DocIndex: 3},
		Text:   text,
		Anchor: ir.Anchor("", text, ""),
	}
}

func alert(check, severity, message, match string) Alert {
	return Alert{Check: check, Severity: severity, Message: message, Match: match}
}

func TestProposeOp_UsesReplaceActionParams(t *testing.T) {
	r := &Runner{}
	block := testBlock("We should utilize the service mesh here.")
	a := alert("Redpen.Wordy", "warning", "Prefer simpler wording.", "utilize")
	a.Action.Name = "replace"
	a.Action.Params = []string{"use"}

	op, ok := r.proposeOp(block, a)
	require.True(t, ok)
	assert.Equal(t, "utilize", op.Before)
	assert.Equal(t, "use", op.After)
	assert.Equal(t, "utilize", block.Text[op.Target.SpanStart:op.Target.SpanEnd])
	assert.Equal(t, editop.EngineVale, op.Engine)
	assert.Equal(t, "vale.Redpen.Wordy", op.RuleID)
	assert.True(t, op.RequiresReview)
}

func TestProposeOp_ExtractsQuotedTailFromMessage(t *testing.T) {
	r := &Runner{}
	block := testBlock("We should utilize the mesh.")
	a := alert("Redpen.Wordy", "warning", "Consider using 'use'.", "utilize")

	op, ok := r.proposeOp(block, a)
	require.True(t, ok)
	assert.Equal(t, "utilize", op.Before)
	assert.Equal(t, "use", op.After)
}

func TestProposeOp_QuotedTailEqualToMatchIsDropped(t *testing.T) {
	r := &Runner{}
	block := testBlock("This is very important.")
	a := alert("write-good.Weasel", "warning", "Consider removing 'very'.", "very")

	_, ok := r.proposeOp(block, a)
	assert.False(t, ok)
}

func TestProposeOp_NoReplacementNoOp(t *testing.T) {
	r := &Runner{}
	block := testBlock("The design was considered by the team.")

	_, ok := r.proposeOp(block, alert("Redpen.Passive", "warning", "Avoid passive voice.", "was considered"))
	assert.False(t, ok)

	_, ok = r.proposeOp(block, alert("Redpen.Passive", "warning", "No match given.", ""))
	assert.False(t, ok)
}

func TestProposeOp_MatchMissingFromBlock(t *testing.T) {
	r := &Runner{}
	block := testBlock("Completely different text.")
	a := alert("Redpen.Wordy", "warning", "Prefer 'use'.", "utilize")

	_, ok := r.proposeOp(block, a)
	assert.False(t, ok)
}

func TestProposeOp_ErrorSeverityNeedsNoReview(t *testing.T) {
	r := &Runner{}
	block := testBlock("We should utilize the mesh.")
	a := alert("Redpen.Banned", "error", "Use 'use'.", "utilize")

	op, ok := r.proposeOp(block, a)
	require.True(t, ok)
	assert.False(t, op.RequiresReview)
	assert.Equal(t, ir.RiskHigh, op.RiskTier)
}

func TestMapSeverity(t *testing.T) {
	assert.Equal(t, ir.SeverityCritical, mapSeverity("error"))
	assert.Equal(t, ir.SeverityWarning, mapSeverity("warning"))
	assert.Equal(t, ir.SeverityInfo, mapSeverity("suggestion"))
}

func TestNew_MissingBinaryErrors(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	if _, err := os.Stat("/usr/local/bin/vale"); err == nil {
		t.Skip("vale installed system-wide")
	}
	if _, err := os.Stat("/opt/homebrew/bin/vale"); err == nil {
		t.Skip("vale installed system-wide")
	}
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestWriteDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteDefaultConfig(dir)
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "StylesPath = styles")
	assert.Contains(t, string(raw), "MinAlertLevel = suggestion")
}
