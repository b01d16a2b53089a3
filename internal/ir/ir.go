// Package ir defines the block-level intermediate representation of a
// document, independent of the underlying file format. Every pipeline stage
// operates on this representation; the docx adapter converts to and from it.
package ir

import (
	"encoding/hex"
	"strings"

	"github.com/zeebo/blake3"
)

// BlockType distinguishes the two block kinds the pipeline edits.
type BlockType string

const (
	Paragraph BlockType = "paragraph"
	Heading   BlockType = "heading"
)

// BlockRef addresses a block by position: its index in the original document
// traversal plus its index among blocks of the same type.
type BlockRef struct {
	BlockType BlockType `json:"block_type"`
	DocIndex  int       `json:"doc_index"`
	TypeIndex int       `json:"type_index"`
}

// TextBlock is one unit of document text. The anchor is computed once at
// extraction time and never recomputed, so it identifies the block that
// originally occupied this position, not whatever text now lives in the slot.
type TextBlock struct {
	Ref       BlockRef `json:"ref"`
	StyleName string   `json:"style_name"`
	Text      string   `json:"text"`
	Anchor    string   `json:"anchor"`
}

// DocumentIR is the ordered block sequence for one document. Blocks are
// replaced in place, never reordered; deletion is represented as empty text
// and filtered at emission time.
type DocumentIR struct {
	Title    string            `json:"title"`
	Blocks   []TextBlock       `json:"blocks"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// AnchorIndex builds a lookup from anchor to block position. Anchors are not
// guaranteed unique; on collision the first occurrence wins.
func (d *DocumentIR) AnchorIndex() map[string]int {
	idx := make(map[string]int, len(d.Blocks))
	for i, b := range d.Blocks {
		if _, ok := idx[b.Anchor]; !ok {
			idx[b.Anchor] = i
		}
	}
	return idx
}

// BlockByRef finds the block matching the given type and document index.
func (d *DocumentIR) BlockByRef(ref BlockRef) *TextBlock {
	for i := range d.Blocks {
		b := &d.Blocks[i]
		if b.Ref.BlockType == ref.BlockType && b.Ref.DocIndex == ref.DocIndex {
			return b
		}
	}
	return nil
}

// BlockByAnchor finds the first block carrying the given anchor.
func (d *DocumentIR) BlockByAnchor(anchor string) *TextBlock {
	for i := range d.Blocks {
		if d.Blocks[i].Anchor == anchor {
			return &d.Blocks[i]
		}
	}
	return nil
}

// FullText joins all block text with blank lines, in document order.
func (d *DocumentIR) FullText() string {
	parts := make([]string, 0, len(d.Blocks))
	for _, b := range d.Blocks {
		parts = append(parts, b.Text)
	}
	return strings.Join(parts, "\n\n")
}

// StructureInventory is a coarse census of document structure, taken before
// and after a run to detect gross structural damage.
type StructureInventory struct {
	Headings       []string `json:"headings"`
	HeadingStyles  []string `json:"heading_styles"`
	ParagraphCount int      `json:"paragraph_count"`
	TableCount     int      `json:"table_count"`
	HasAbstract    bool     `json:"has_abstract"`
	HasReferences  bool     `json:"has_references"`
	HasAuthors     bool     `json:"has_authors"`
}

const (
	anchorTextLimit     = 500
	anchorNeighborLimit = 120
	anchorHexLen        = 16
)

// NormalizeSpace collapses runs of whitespace into single spaces and trims.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// Anchor derives the content-addressed identifier for a block from its own
// normalized text and that of its neighbors. Collisions are accepted as a
// low-probability risk.
func Anchor(prevText, text, nextText string) string {
	seed := truncate(NormalizeSpace(prevText), anchorNeighborLimit) + "\n" +
		truncate(NormalizeSpace(text), anchorTextLimit) + "\n" +
		truncate(NormalizeSpace(nextText), anchorNeighborLimit)
	sum := blake3.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])[:anchorHexLen]
}
