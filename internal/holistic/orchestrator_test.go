package holistic

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redpen/internal/llm"
)

// scriptedClient answers based on which chunk text appears in the prompt.
type scriptedClient struct {
	rewrites map[string]string
	err      error
}

func (s *scriptedClient) Rewrite(ctx context.Context, req llm.Request) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	for original, rewritten := range s.rewrites {
		if strings.Contains(req.User, original) {
			return rewritten, nil
		}
	}
	return "", errors.New("no scripted answer for prompt")
}

func fastConfig() Config {
	return Config{
		ChunkStrategy: StrategyParagraph,
		Rewrite:       RewriteConfig{Concurrency: 1, MaxRetries: 0},
	}
}

func TestRun_AcceptedRewriteLandsInFinalDocument(t *testing.T) {
	original := words(22) + " and the cluster serves 42 tenants."
	rewritten := "Serving 42 tenants, the cluster " + words(22) + "."
	doc := blockDoc(heading("Capacity"), para(original))
	client := &scriptedClient{rewrites: map[string]string{original: rewritten}}

	result, err := Run(context.Background(), doc, client, fastConfig())
	require.NoError(t, err)

	require.Len(t, result.FinalIR.Blocks, 2)
	assert.Equal(t, "Capacity", result.FinalIR.Blocks[0].Text)
	assert.Equal(t, rewritten, result.FinalIR.Blocks[1].Text)

	assert.Equal(t, 2, result.Stats.TotalChunks)
	assert.Equal(t, 1, result.Stats.RewritableChunks)
	assert.Equal(t, 2, result.Stats.Accepted)
	assert.Zero(t, result.Stats.Rejected)
	assert.False(t, result.ReviewNeeded)
}

func TestRun_FailedRewriteKeepsOriginalAsRejected(t *testing.T) {
	original := words(25)
	doc := blockDoc(para(original))
	client := &scriptedClient{err: errors.New("provider unavailable")}

	result, err := Run(context.Background(), doc, client, fastConfig())
	require.NoError(t, err)

	require.Len(t, result.Decisions, 1)
	assert.Equal(t, DecisionRejected, result.Decisions[0].Decision)
	assert.Equal(t, original, result.FinalIR.Blocks[0].Text)
	assert.Equal(t, 1, result.Stats.Rejected)
}

func TestRun_InvariantLossRejectsRewrite(t *testing.T) {
	original := words(20) + " with exactly 500 nodes."
	doc := blockDoc(para(original))
	client := &scriptedClient{rewrites: map[string]string{original: "A rewrite that forgot the node count entirely, despite instructions."}}

	result, err := Run(context.Background(), doc, client, fastConfig())
	require.NoError(t, err)

	assert.Equal(t, DecisionRejected, result.Decisions[0].Decision)
	assert.Equal(t, original, result.FinalIR.Blocks[0].Text)
	assert.Equal(t, Reject, result.Decisions[0].Validation.Recommendation)
}

func TestRun_ShortBlocksPassThroughUntouched(t *testing.T) {
	doc := blockDoc(para("Too short to rewrite."))
	client := &scriptedClient{err: errors.New("must not be called")}

	result, err := Run(context.Background(), doc, client, fastConfig())
	require.NoError(t, err)

	assert.Equal(t, "Too short to rewrite.", result.FinalIR.Blocks[0].Text)
	assert.Equal(t, 1, result.Stats.Accepted)
	assert.Zero(t, result.Stats.RewritableChunks)
}

func TestRun_MultiBlockChunkCollapsesIntoFirstBlock(t *testing.T) {
	p1, p2 := words(15), words(16)
	merged := "One merged paragraph replacing both originals with tighter and far more readable prose for everyone."
	doc := blockDoc(para(p1), para(p2))
	client := &scriptedClient{rewrites: map[string]string{p1: merged}}

	cfg := fastConfig()
	cfg.ChunkStrategy = StrategyAdaptive

	result, err := Run(context.Background(), doc, client, cfg)
	require.NoError(t, err)

	require.Len(t, result.FinalIR.Blocks, 1)
	assert.Equal(t, merged, result.FinalIR.Blocks[0].Text)
	assert.Equal(t, doc.Blocks[0].Ref, result.FinalIR.Blocks[0].Ref)
}
