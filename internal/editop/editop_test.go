package editop

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"redpen/internal/ir"
)

func TestStableID_DeterministicAndOrderSensitive(t *testing.T) {
	a := StableID("rule", "anchor", "3", "7", "1")
	b := StableID("rule", "anchor", "3", "7", "1")
	c := StableID("anchor", "rule", "3", "7", "1")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 12)
}

func TestTarget_HasSpan(t *testing.T) {
	assert.True(t, SpanTarget("a", 0, ir.Paragraph, 3, 7, 1).HasSpan())
	assert.False(t, BlockTarget("a", 0, ir.Paragraph).HasSpan())
}

func TestCountByStatus(t *testing.T) {
	ops := []EditOp{
		{Status: Applied}, {Status: Applied}, {Status: Rejected}, {Status: Proposed},
	}
	counts := CountByStatus(ops)
	assert.Equal(t, 2, counts[Applied])
	assert.Equal(t, 1, counts[Rejected])
	assert.Equal(t, 1, counts[Proposed])
}

func TestSetVerification_AllocatesLazily(t *testing.T) {
	var op EditOp
	op.SetVerification("reason", "before_mismatch")
	assert.Equal(t, "before_mismatch", op.Verification["reason"])
}
