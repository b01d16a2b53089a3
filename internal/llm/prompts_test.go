package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueFromRuleID(t *testing.T) {
	issue, ok := IssueFromRuleID("vale.Redpen.PassiveVoice")
	require.True(t, ok)
	assert.Equal(t, IssuePassiveVoice, issue)

	issue, ok = IssueFromRuleID("Redpen.Hedging")
	require.True(t, ok)
	assert.Equal(t, IssueWeakLanguage, issue)

	_, ok = IssueFromRuleID("Redpen.Spelling")
	assert.False(t, ok)
}

func TestBuildSentencePrompt_ContextHandling(t *testing.T) {
	withCtx := BuildSentencePrompt(IssueRunOn, "The sentence.", "Surrounding paragraph.")
	assert.Contains(t, withCtx, "Surrounding paragraph.")
	assert.Contains(t, withCtx, "The sentence.")

	// Throat-clearing and abstract-start templates work on the sentence
	// alone.
	noCtx := BuildSentencePrompt(IssueThroatClearing, "It should be noted that X.", "ignored context")
	assert.NotContains(t, noCtx, "ignored context")
	assert.Contains(t, noCtx, "It should be noted that X.")

	noCtx = BuildSentencePrompt(IssueAbstractStart, "It is clear that X.", "ignored context")
	assert.NotContains(t, noCtx, "ignored context")
}

func TestBuildSentencePrompt_TruncatesLongContext(t *testing.T) {
	long := make([]byte, 2000)
	for i := range long {
		long[i] = 'x'
	}
	prompt := BuildSentencePrompt(IssueJargon, "Sentence.", string(long))
	assert.Less(t, len(prompt), 1200)
}

func TestBuildHolisticPrompt(t *testing.T) {
	full := BuildHolisticPrompt("Architecture", "before text", "the paragraph", "after text",
		"- TM Forum", "MEC", "(none)")
	assert.Contains(t, full, "Section: Architecture")
	assert.Contains(t, full, "REWRITE THIS PARAGRAPH")
	assert.Contains(t, full, "the paragraph")
	assert.Contains(t, full, "- TM Forum")

	minimal := BuildHolisticPrompt("", "", "just this", "", "", "", "")
	assert.Contains(t, minimal, "just this")
	assert.NotContains(t, minimal, "REWRITE THIS PARAGRAPH")
}

func TestBuildFeedbackPrompt(t *testing.T) {
	prompt := BuildFeedbackPrompt("The text body.", []string{"passive voice on line 2", "jargon: leverage"})
	assert.Contains(t, prompt, "- passive voice on line 2")
	assert.Contains(t, prompt, "- jargon: leverage")
	assert.Contains(t, prompt, "The text body.")
}
