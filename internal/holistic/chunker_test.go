package holistic

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redpen/internal/ir"
)

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("word%d", i)
	}
	return strings.Join(parts, " ")
}

func blockDoc(blocks ...ir.TextBlock) *ir.DocumentIR {
	for i := range blocks {
		blocks[i].Ref.DocIndex = i
	}
	return &ir.DocumentIR{Blocks: blocks}
}

func para(text string) ir.TextBlock {
	return ir.TextBlock{Ref: ir.BlockRef{BlockType: ir.Paragraph}, Text: text}
}

func heading(text string) ir.TextBlock {
	return ir.TextBlock{Ref: ir.BlockRef{BlockType: ir.Heading}, Text: text}
}

// assertPartition checks every block index lands in exactly one chunk.
func assertPartition(t *testing.T, chunks []Chunk, blockCount int) {
	t.Helper()
	seen := make(map[int]int)
	for _, c := range chunks {
		for _, bi := range c.BlockIndices {
			seen[bi]++
		}
	}
	require.Len(t, seen, blockCount)
	for bi, n := range seen {
		assert.Equal(t, 1, n, "block %d appears in %d chunks", bi, n)
	}
}

func TestChunkByParagraph(t *testing.T) {
	doc := blockDoc(
		heading("Overview"),
		para("Too short to rewrite."),
		para(words(25)),
	)

	res, err := ChunkDocument(doc, StrategyParagraph)
	require.NoError(t, err)
	require.Len(t, res.Chunks, 3)
	assertPartition(t, res.Chunks, 3)

	assert.False(t, res.Chunks[0].IsRewritable)
	assert.False(t, res.Chunks[1].IsRewritable)
	assert.True(t, res.Chunks[2].IsRewritable)
	assert.Equal(t, "Overview", res.Chunks[2].SectionTitle)
	assert.Equal(t, 25, res.TotalRewritableWords)
}

func TestChunkDocument_EmptyStrategyDefaultsToParagraph(t *testing.T) {
	res, err := ChunkDocument(blockDoc(para(words(30))), "")
	require.NoError(t, err)
	assert.Equal(t, StrategyParagraph, res.Strategy)
}

func TestChunkDocument_UnknownStrategy(t *testing.T) {
	_, err := ChunkDocument(blockDoc(para("x")), "sentence")
	assert.Error(t, err)
}

func TestChunkBySection(t *testing.T) {
	doc := blockDoc(
		heading("First"),
		para(words(12)),
		para(words(13)),
		heading("Second"),
		para(words(30)),
	)

	res, err := ChunkDocument(doc, StrategySection)
	require.NoError(t, err)
	require.Len(t, res.Chunks, 2)

	first := res.Chunks[0]
	assert.Equal(t, []int{1, 2}, first.BlockIndices)
	assert.Equal(t, "First", first.SectionTitle)
	assert.True(t, first.IsRewritable)

	second := res.Chunks[1]
	assert.Equal(t, []int{4}, second.BlockIndices)
	assert.Equal(t, "Second", second.SectionTitle)
	// The last section has nothing after it.
	assert.Empty(t, second.ContextAfter)
}

func TestChunkAdaptive_GroupsUpToWordCap(t *testing.T) {
	doc := blockDoc(
		heading("Body"),
		para(words(150)),
		para(words(150)),
		para(words(40)),
	)

	res, err := ChunkDocument(doc, StrategyAdaptive)
	require.NoError(t, err)
	assertPartition(t, res.Chunks, 4)

	require.Len(t, res.Chunks, 3)
	assert.Equal(t, "heading_0000", res.Chunks[0].ID)
	assert.False(t, res.Chunks[0].IsRewritable)

	// 150+150 exceeds the cap, so the second paragraph starts a new group
	// and the 40-word paragraph joins it.
	assert.Equal(t, []int{1}, res.Chunks[1].BlockIndices)
	assert.Equal(t, []int{2, 3}, res.Chunks[2].BlockIndices)
	assert.True(t, res.Chunks[1].IsRewritable)
	assert.True(t, res.Chunks[2].IsRewritable)
}

func TestContextBracketedByHeadings(t *testing.T) {
	doc := blockDoc(
		para("Front matter before the section starts."),
		heading("Deployment"),
		para("Lead paragraph of the section."),
		para(words(25)),
	)

	res, err := ChunkDocument(doc, StrategyParagraph)
	require.NoError(t, err)

	ctx := res.Chunks[3].ContextBefore
	assert.Contains(t, ctx, "[Deployment]")
	assert.Contains(t, ctx, "Lead paragraph of the section.")
	assert.NotContains(t, ctx, "Front matter")
}

func TestContextBefore_TruncatesToWordBudget(t *testing.T) {
	doc := blockDoc(
		para(words(300)),
		para(words(25)),
	)

	res, err := ChunkDocument(doc, StrategyParagraph)
	require.NoError(t, err)

	before := res.Chunks[1].ContextBefore
	assert.LessOrEqual(t, len(strings.Fields(before)), 100)
	// The tail of the long paragraph is kept, not its head.
	assert.Contains(t, before, "word299")
	assert.NotContains(t, before, "word0 ")
}
