package propose

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redpen/internal/editop"
	"redpen/internal/ir"
	"redpen/internal/rules"
)

func testDoc(texts ...string) *ir.DocumentIR {
	doc := &ir.DocumentIR{}
	for i, text := range texts {
		prev, next := "", ""
		if i > 0 {
			prev = texts[i-1]
		}
		if i+1 < len(texts) {
			next = texts[i+1]
		}
		doc.Blocks = append(doc.Blocks, ir.TextBlock{
			Ref:    ir.BlockRef{BlockType: ir.Paragraph, DocIndex: i, TypeIndex: i},
			Text:   text,
			Anchor: ir.Anchor(prev, text, next),
		})
	}
	return doc
}

func TestFromRules_ProposalIsIdempotent(t *testing.T) {
	doc := testDoc("We did this in order to test, and again in order to verify.")
	rs := []rules.ReplacementRule{{ID: "prose.wordiness.in_order_to", Search: "in order to", Replace: "to"}}

	first := FromRules(doc, rs, nil)
	second := FromRules(doc, rs, nil)

	require.Len(t, first, 2)
	require.Len(t, second, 2)
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
	assert.NotEqual(t, first[0].ID, first[1].ID)
	assert.Equal(t, 1, first[0].Target.Occurrence)
	assert.Equal(t, 2, first[1].Target.Occurrence)
}

func TestFromRules_SpanMatchesBeforeText(t *testing.T) {
	doc := testDoc("Please utilize the API.")
	rs := []rules.ReplacementRule{{ID: "r1", Search: "utilize", Replace: "use", WholeWord: true}}

	ops := FromRules(doc, rs, nil)
	require.Len(t, ops, 1)

	op := ops[0]
	assert.Equal(t, editop.Proposed, op.Status)
	assert.Equal(t, editop.EngineRule, op.Engine)
	assert.Equal(t, "utilize", doc.Blocks[0].Text[op.Target.SpanStart:op.Target.SpanEnd])
	assert.Equal(t, "utilize", op.Before)
	assert.Equal(t, "use", op.After)
}

func TestFromRules_SkipsRulesInsideProtectedTerms(t *testing.T) {
	doc := testDoc("The Data Distribution Service uses distribution lists.")
	rs := []rules.ReplacementRule{{ID: "r1", Search: "Distribution", Replace: "spread"}}

	ops := FromRules(doc, rs, []string{"Data Distribution Service"})
	assert.Empty(t, ops)
}

func TestFromRules_WholeWordDoesNotMatchSubstrings(t *testing.T) {
	doc := testDoc("The reuse of reusable code.")
	rs := []rules.ReplacementRule{{ID: "r1", Search: "use", Replace: "usage", WholeWord: true}}

	ops := FromRules(doc, rs, nil)
	assert.Empty(t, ops)
}

func TestFromRules_CaseSensitivityDefaultsToInsensitive(t *testing.T) {
	doc := testDoc("Utilize this. utilize that.")
	rs := []rules.ReplacementRule{{ID: "r1", Search: "utilize", Replace: "use", WholeWord: true}}

	ops := FromRules(doc, rs, nil)
	assert.Len(t, ops, 2)

	sensitive := false
	rs[0].CaseInsensitive = &sensitive
	ops = FromRules(doc, rs, nil)
	assert.Len(t, ops, 1)
}
