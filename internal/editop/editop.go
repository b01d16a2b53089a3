// Package editop defines the typed, auditable edit operation that all
// proposers emit and the applier consumes.
package editop

import (
	"encoding/hex"
	"strings"

	"github.com/zeebo/blake3"

	"redpen/internal/ir"
)

// OpKind is the operation variant.
type OpKind string

const (
	ReplaceSpan  OpKind = "replace_span"
	ReplaceBlock OpKind = "replace_block"
	Noop         OpKind = "noop"
	ProposedOnly OpKind = "proposed_only"
)

// Status is the lifecycle state. An op is created as Proposed, consumed
// exactly once by the applier, and never mutated afterward except for
// verification details appended by id.
type Status string

const (
	Proposed Status = "proposed"
	Applied  Status = "applied"
	Rejected Status = "rejected"
	Failed   Status = "failed"
)

// Engines that produce edit operations.
const (
	EngineRule  = "deterministic_rule"
	EngineVale  = "vale"
	EngineLLM   = "llm_proposal"
	EngineHuman = "human"
)

// NoSpan marks an absent span offset in a Target.
const NoSpan = -1

// Target addresses the location of an edit. Span offsets are only valid
// against the block text as it existed when the target was computed; the
// applier verifies the exact substring still matches before mutating.
type Target struct {
	Anchor     string       `json:"anchor"`
	DocIndex   int          `json:"doc_index"`
	BlockType  ir.BlockType `json:"block_type"`
	SpanStart  int          `json:"span_start"`
	SpanEnd    int          `json:"span_end"`
	Occurrence int          `json:"occurrence,omitempty"`
}

// HasSpan reports whether both span offsets are present.
func (t Target) HasSpan() bool {
	return t.SpanStart != NoSpan && t.SpanEnd != NoSpan
}

// BlockTarget addresses a whole block.
func BlockTarget(anchor string, docIndex int, bt ir.BlockType) Target {
	return Target{Anchor: anchor, DocIndex: docIndex, BlockType: bt, SpanStart: NoSpan, SpanEnd: NoSpan}
}

// SpanTarget addresses a character range inside a block.
func SpanTarget(anchor string, docIndex int, bt ir.BlockType, start, end, occurrence int) Target {
	return Target{Anchor: anchor, DocIndex: docIndex, BlockType: bt, SpanStart: start, SpanEnd: end, Occurrence: occurrence}
}

// EditOp is one proposed textual change. Before holds the exact text the
// proposer saw, so the original is always recoverable from the op itself.
type EditOp struct {
	ID             string            `json:"id"`
	Op             OpKind            `json:"op"`
	Target         Target            `json:"target"`
	Intent         string            `json:"intent"`
	Engine         string            `json:"engine"`
	RuleID         string            `json:"rule_id"`
	Rationale      string            `json:"rationale"`
	Before         string            `json:"before"`
	After          string            `json:"after"`
	Confidence     float64           `json:"confidence,omitempty"`
	RequiresReview bool              `json:"requires_review"`
	RiskTier       string            `json:"risk_tier"`
	Verification   map[string]string `json:"verification,omitempty"`
	Status         Status            `json:"status"`
}

// SetVerification records a verification detail, allocating lazily.
func (o *EditOp) SetVerification(key, value string) {
	if o.Verification == nil {
		o.Verification = make(map[string]string, 1)
	}
	o.Verification[key] = value
}

const idHexLen = 12

// StableID derives a content-addressed op id from its parts, so repeated
// proposal runs over identical input produce identical ids.
func StableID(parts ...string) string {
	sum := blake3.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])[:idHexLen]
}

// CountByStatus tallies ops per lifecycle state.
func CountByStatus(ops []EditOp) map[Status]int {
	counts := make(map[Status]int, 4)
	for _, op := range ops {
		counts[op.Status]++
	}
	return counts
}
