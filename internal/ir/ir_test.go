package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnchor_StableUnderWhitespaceNoise(t *testing.T) {
	a := Anchor("previous paragraph", "the   body  text", "next paragraph")
	b := Anchor("previous  paragraph", "the body text", "next  paragraph")
	assert.Equal(t, a, b)
	assert.Len(t, a, 16)
}

func TestAnchor_ChangesWithNeighbors(t *testing.T) {
	a := Anchor("one", "body", "two")
	b := Anchor("one", "body", "three")
	assert.NotEqual(t, a, b)
}

func TestAnchorIndex_FirstOccurrenceWinsOnCollision(t *testing.T) {
	doc := &DocumentIR{Blocks: []TextBlock{
		{Anchor: "aaa", Text: "first"},
		{Anchor: "bbb", Text: "second"},
		{Anchor: "aaa", Text: "third"},
	}}
	idx := doc.AnchorIndex()
	assert.Equal(t, 0, idx["aaa"])
	assert.Equal(t, 1, idx["bbb"])
}

func TestBlockByRef(t *testing.T) {
	doc := &DocumentIR{Blocks: []TextBlock{
		{Ref: BlockRef{BlockType: Heading, DocIndex: 0}, Text: "Title"},
		{Ref: BlockRef{BlockType: Paragraph, DocIndex: 1}, Text: "Body"},
	}}

	b := doc.BlockByRef(BlockRef{BlockType: Paragraph, DocIndex: 1})
	require.NotNil(t, b)
	assert.Equal(t, "Body", b.Text)

	assert.Nil(t, doc.BlockByRef(BlockRef{BlockType: Paragraph, DocIndex: 9}))
}

func TestFullText_JoinsInDocumentOrder(t *testing.T) {
	doc := &DocumentIR{Blocks: []TextBlock{
		{Text: "one"}, {Text: "two"},
	}}
	assert.Equal(t, "one\n\ntwo", doc.FullText())
}

func TestNormalizeSpace(t *testing.T) {
	assert.Equal(t, "a b c", NormalizeSpace("  a \t b\n c  "))
}
