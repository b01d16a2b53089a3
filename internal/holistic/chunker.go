// Package holistic implements the whole-document rewrite pipeline: chunking,
// cross-chunk acronym tracking, concurrent rewriting, rewrite validation, and
// the orchestrator that ties them together.
package holistic

import (
	"fmt"
	"strings"

	"redpen/internal/ir"
)

// ChunkStrategy selects how the document is partitioned into rewrite units.
type ChunkStrategy string

const (
	StrategyParagraph ChunkStrategy = "paragraph"
	StrategySection   ChunkStrategy = "section"
	StrategyAdaptive  ChunkStrategy = "adaptive"
)

const (
	// Blocks shorter than this are left alone.
	minWordsForRewrite = 20
	// Target ceiling for adaptive chunks.
	maxWordsPerChunk = 200
	// Context window on each side of a chunk.
	contextWords = 100
)

// Chunk is one rewritable unit. BlockIndices index into the document's block
// slice; every block index appears in exactly one chunk.
type Chunk struct {
	ID            string
	BlockIndices  []int
	Text          string
	ContextBefore string
	ContextAfter  string
	SectionTitle  string
	WordCount     int
	IsRewritable  bool
}

// ChunkingResult is the full partition plus summary stats.
type ChunkingResult struct {
	Chunks               []Chunk
	TotalRewritableWords int
	TotalChunks          int
	Strategy             ChunkStrategy
}

// ChunkDocument partitions the document with the given strategy.
func ChunkDocument(doc *ir.DocumentIR, strategy ChunkStrategy) (ChunkingResult, error) {
	var chunks []Chunk
	switch strategy {
	case StrategyParagraph, "":
		strategy = StrategyParagraph
		chunks = chunkByParagraph(doc)
	case StrategySection:
		chunks = chunkBySection(doc)
	case StrategyAdaptive:
		chunks = chunkAdaptive(doc)
	default:
		return ChunkingResult{}, fmt.Errorf("unknown chunk strategy: %s", strategy)
	}
	rewritableWords := 0
	for _, c := range chunks {
		if c.IsRewritable {
			rewritableWords += c.WordCount
		}
	}
	return ChunkingResult{
		Chunks:               chunks,
		TotalRewritableWords: rewritableWords,
		TotalChunks:          len(chunks),
		Strategy:             strategy,
	}, nil
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

// sectionTitle finds the most recent heading before the block.
func sectionTitle(blocks []ir.TextBlock, idx int) string {
	for i := idx - 1; i >= 0; i-- {
		if blocks[i].Ref.BlockType == ir.Heading {
			return blocks[i].Text
		}
	}
	return "Introduction"
}

// contextText walks outward from the chunk collecting up to contextWords
// words. A heading brackets the walk: it is included (marked) and the walk
// stops, so context never leaks across section boundaries.
func contextText(blocks []ir.TextBlock, startIdx, endIdx int, before bool) string {
	var parts []string
	words := 0

	appendBlock := func(i int) bool {
		b := blocks[i]
		if b.Ref.BlockType == ir.Heading {
			parts = append(parts, "["+b.Text+"]")
			return false
		}
		fields := strings.Fields(b.Text)
		if words+len(fields) > contextWords {
			remaining := contextWords - words
			if remaining > 0 {
				if before {
					parts = append(parts, strings.Join(fields[len(fields)-remaining:], " "))
				} else {
					parts = append(parts, strings.Join(fields[:remaining], " "))
				}
			}
			return false
		}
		parts = append(parts, b.Text)
		words += len(fields)
		return true
	}

	if before {
		for i := startIdx - 1; i >= 0; i-- {
			if !appendBlock(i) {
				break
			}
		}
		for l, r := 0, len(parts)-1; l < r; l, r = l+1, r-1 {
			parts[l], parts[r] = parts[r], parts[l]
		}
	} else {
		for i := endIdx; i < len(blocks); i++ {
			if !appendBlock(i) {
				break
			}
		}
	}
	return strings.Join(parts, " ")
}

// chunkByParagraph emits one chunk per block. The most granular strategy and
// the safest for validation, at the cost of cross-paragraph coherence.
func chunkByParagraph(doc *ir.DocumentIR) []Chunk {
	blocks := doc.Blocks
	chunks := make([]Chunk, 0, len(blocks))
	for i := range blocks {
		b := &blocks[i]
		wc := wordCount(b.Text)
		chunks = append(chunks, Chunk{
			ID:            fmt.Sprintf("chunk_%04d", i),
			BlockIndices:  []int{i},
			Text:          b.Text,
			ContextBefore: contextText(blocks, i, i+1, true),
			ContextAfter:  contextText(blocks, i, i+1, false),
			SectionTitle:  sectionTitle(blocks, i),
			WordCount:     wc,
			IsRewritable:  b.Ref.BlockType == ir.Paragraph && wc >= minWordsForRewrite,
		})
	}
	return chunks
}

// chunkBySection groups blocks heading-to-heading. Better coherence, but a bad
// rewrite damages more content at once. Headings themselves are not part of
// any section chunk.
func chunkBySection(doc *ir.DocumentIR) []Chunk {
	blocks := doc.Blocks
	var chunks []Chunk
	var current []int
	title := "Introduction"

	emit := func(contextAfter bool) {
		if len(current) == 0 {
			return
		}
		texts := make([]string, len(current))
		for i, j := range current {
			texts[i] = blocks[j].Text
		}
		text := strings.Join(texts, " ")
		wc := wordCount(text)
		after := ""
		if contextAfter {
			after = contextText(blocks, current[0], current[len(current)-1]+1, false)
		}
		chunks = append(chunks, Chunk{
			ID:            fmt.Sprintf("section_%04d", len(chunks)),
			BlockIndices:  append([]int(nil), current...),
			Text:          text,
			ContextBefore: contextText(blocks, current[0], current[len(current)-1]+1, true),
			ContextAfter:  after,
			SectionTitle:  title,
			WordCount:     wc,
			IsRewritable:  wc >= minWordsForRewrite,
		})
		current = nil
	}

	for i := range blocks {
		if blocks[i].Ref.BlockType == ir.Heading {
			emit(true)
			title = blocks[i].Text
			continue
		}
		current = append(current, i)
	}
	emit(false)
	return chunks
}

// chunkAdaptive groups small paragraphs up to maxWordsPerChunk and breaks at
// headings, emitting each heading as its own non-rewritable chunk.
func chunkAdaptive(doc *ir.DocumentIR) []Chunk {
	blocks := doc.Blocks
	var chunks []Chunk
	var current []int
	currentWords := 0
	section := "Introduction"

	emit := func() {
		if len(current) == 0 {
			return
		}
		texts := make([]string, len(current))
		for i, j := range current {
			texts[i] = blocks[j].Text
		}
		text := strings.Join(texts, " ")
		chunks = append(chunks, Chunk{
			ID:            fmt.Sprintf("adaptive_%04d", len(chunks)),
			BlockIndices:  append([]int(nil), current...),
			Text:          text,
			ContextBefore: contextText(blocks, current[0], current[len(current)-1]+1, true),
			ContextAfter:  contextText(blocks, current[0], current[len(current)-1]+1, false),
			SectionTitle:  section,
			WordCount:     currentWords,
			IsRewritable:  currentWords >= minWordsForRewrite,
		})
		current = nil
		currentWords = 0
	}

	for i := range blocks {
		b := &blocks[i]
		wc := wordCount(b.Text)
		if b.Ref.BlockType == ir.Heading {
			emit()
			section = b.Text
			chunks = append(chunks, Chunk{
				ID:           fmt.Sprintf("heading_%04d", len(chunks)),
				BlockIndices: []int{i},
				Text:         b.Text,
				SectionTitle: b.Text,
				WordCount:    wc,
				IsRewritable: false,
			})
			continue
		}
		if currentWords+wc > maxWordsPerChunk && len(current) > 0 {
			emit()
		}
		current = append(current, i)
		currentWords += wc
	}
	emit()
	return chunks
}
