// Package apply deterministically lands a batch of edit operations on a
// document IR, resolving per-block ordering and rejecting stale edits.
package apply

import (
	"regexp"
	"sort"
	"strings"

	"redpen/internal/editop"
	"redpen/internal/ir"
)

// Options controls the post-application cleanup passes.
type Options struct {
	// NormalizeWhitespace collapses doubled spaces left by replacements.
	NormalizeWhitespace bool
	// OrganizationNames are canonical spellings restored if a rule-based
	// lowercasing pass demoted them.
	OrganizationNames []string
	// CapitalizeSentenceStarts restores the uppercase letter at sentence
	// starts after lowercasing rules ran.
	CapitalizeSentenceStarts bool
}

// DefaultOptions enables every cleanup pass.
func DefaultOptions(orgNames []string) Options {
	return Options{
		NormalizeWhitespace:      true,
		OrganizationNames:        orgNames,
		CapitalizeSentenceStarts: true,
	}
}

// EditOps mutates doc in place, applying every spatially valid,
// content-matching edit, and returns ops with finalized statuses. Span edits
// within a block are applied highest offset first so earlier offsets stay
// valid while the string length changes. An op whose anchor matches no block
// is left in status proposed.
func EditOps(doc *ir.DocumentIR, ops []editop.EditOp, opts Options) []editop.EditOp {
	byAnchor := make(map[string][]int)
	for i := range ops {
		byAnchor[ops[i].Target.Anchor] = append(byAnchor[ops[i].Target.Anchor], i)
	}

	for bi := range doc.Blocks {
		block := &doc.Blocks[bi]
		indices := byAnchor[block.Anchor]
		if len(indices) == 0 {
			continue
		}

		var spanIdx []int
		for _, i := range indices {
			if ops[i].Op == editop.ReplaceSpan && ops[i].Target.HasSpan() {
				spanIdx = append(spanIdx, i)
			}
		}
		sort.SliceStable(spanIdx, func(a, b int) bool {
			return ops[spanIdx[a]].Target.SpanStart > ops[spanIdx[b]].Target.SpanStart
		})

		text := block.Text
		for _, i := range spanIdx {
			op := &ops[i]
			start, end := op.Target.SpanStart, op.Target.SpanEnd
			if start < 0 || end > len(text) || start >= end {
				op.Status = editop.Failed
				op.SetVerification("reason", "span_out_of_range")
				continue
			}
			if text[start:end] != op.Before {
				op.Status = editop.Rejected
				op.SetVerification("reason", "before_mismatch")
				continue
			}
			text = text[:start] + op.After + text[end:]
			op.Status = editop.Applied
		}
		block.Text = runCleanupPasses(text, opts)

		for _, i := range indices {
			op := &ops[i]
			if op.Op != editop.ReplaceBlock {
				continue
			}
			if block.Text != op.Before {
				op.Status = editop.Rejected
				op.SetVerification("reason", "block_before_mismatch")
				continue
			}
			block.Text = op.After
			op.Status = editop.Applied
		}
	}
	return ops
}

var multiSpaceRe = regexp.MustCompile(`  +`)

// runCleanupPasses applies the idempotent post-processing transformations
// once per block per apply cycle.
func runCleanupPasses(text string, opts Options) string {
	if opts.NormalizeWhitespace {
		text = multiSpaceRe.ReplaceAllString(text, " ")
		text = strings.ReplaceAll(text, " .", ".")
		text = strings.ReplaceAll(text, " ,", ",")
	}
	for _, name := range opts.OrganizationNames {
		text = restoreCapitalization(text, name)
	}
	if opts.CapitalizeSentenceStarts {
		text = capitalizeSentenceStarts(text)
	}
	return text
}

// restoreCapitalization re-capitalizes occurrences of an organization name
// that a lowercasing rule demoted. Matching is exact-length and
// case-insensitive; the canonical spelling replaces the demoted form.
func restoreCapitalization(text, canonical string) string {
	if canonical == "" || canonical == strings.ToLower(canonical) {
		return text
	}
	lower := strings.ToLower(text)
	needle := strings.ToLower(canonical)
	var b strings.Builder
	pos := 0
	for {
		idx := strings.Index(lower[pos:], needle)
		if idx < 0 {
			b.WriteString(text[pos:])
			break
		}
		abs := pos + idx
		b.WriteString(text[pos:abs])
		if text[abs:abs+len(canonical)] != canonical && isWordBoundary(text, abs, abs+len(canonical)) {
			b.WriteString(canonical)
		} else {
			b.WriteString(text[abs : abs+len(canonical)])
		}
		pos = abs + len(canonical)
	}
	return b.String()
}

func isWordBoundary(text string, start, end int) bool {
	if start > 0 && isWordByte(text[start-1]) {
		return false
	}
	if end < len(text) && isWordByte(text[end]) {
		return false
	}
	return true
}

func isWordByte(c byte) bool {
	return c == '_' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// capitalizeSentenceStarts uppercases the first letter of the block and of
// every sentence following terminal punctuation plus whitespace. A heuristic
// guard: abbreviations like "e.g. " are miscapitalized, which upstream rules
// never produce.
func capitalizeSentenceStarts(text string) string {
	b := []byte(text)
	pending := false // saw terminal punctuation
	armed := true    // punctuation was followed by whitespace (or block start)
	for i := 0; i < len(b); i++ {
		c := b[i]
		switch {
		case c == '.' || c == '!' || c == '?':
			pending = true
			armed = false
		case c == ' ' || c == '\t' || c == '\n':
			if pending {
				armed = true
			}
		default:
			if armed && c >= 'a' && c <= 'z' {
				b[i] = c - 'a' + 'A'
			}
			pending = false
			armed = false
		}
	}
	return string(b)
}
