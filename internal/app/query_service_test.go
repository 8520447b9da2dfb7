package app

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumerag/internal/chunker"
	"resumerag/internal/vectorstore"
)

type fakeGenerator struct {
	answer  string
	persona string
	prompt  string
	calls   int
}

func (f *fakeGenerator) Generate(ctx context.Context, persona, prompt string) (string, error) {
	f.calls++
	f.persona = persona
	f.prompt = prompt
	return f.answer, nil
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 2, 3}, []float32{1, 2, 3}), 1e-6)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.InDelta(t, -1.0, cosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-6)
	assert.Zero(t, cosineSimilarity([]float32{0, 0}, []float32{1, 2}))
	assert.Zero(t, cosineSimilarity([]float32{1, 2}, []float32{1, 2, 3}))
	assert.Zero(t, cosineSimilarity(nil, nil))
}

func TestRankKeepsTopKStable(t *testing.T) {
	coll := &vectorstore.Collection{
		Texts: []string{"a", "b", "c", "d"},
		Vectors: [][]float32{
			{1, 0},
			{0, 1},
			{1, 0},
			{1, 1},
		},
	}
	coll.IDs = []string{"0", "1", "2", "3"}
	coll.Metadata = make([]vectorstore.ChunkMeta, 4)

	matches := rank(coll, []float32{1, 0}, 3)
	require.Len(t, matches, 3)
	// "a" and "c" tie at 1.0; stable sort keeps chunk order
	assert.Equal(t, "a", matches[0].Text)
	assert.Equal(t, "c", matches[1].Text)
	assert.Equal(t, "d", matches[2].Text)
}

func newQueryHarness(t *testing.T, embedder Embedder, gen Generator) (*QueryService, *IndexService, *vectorstore.Store) {
	t.Helper()
	vectors, err := vectorstore.New(t.TempDir())
	require.NoError(t, err)
	idx := NewIndexService(newFakeDocs(), &fakeConvs{}, &fakeMessages{}, vectors, embedder, chunker.New(), 3)
	return NewQueryService(vectors, embedder, gen, 3), idx, vectors
}

func TestQueryNotIndexed(t *testing.T) {
	gen := &fakeGenerator{answer: "should not be called"}
	svc, _, _ := newQueryHarness(t, &fakeEmbedder{}, gen)

	result, err := svc.Query(context.Background(), 1, "missing", "What skills?", nil)
	require.NoError(t, err)
	assert.False(t, result.Indexed)
	assert.Empty(t, result.Answer)
	assert.Zero(t, result.Confidence)
	assert.Zero(t, gen.calls, "generator must not run without indexed chunks")
}

func TestQueryRejectsEmptyQuestion(t *testing.T) {
	svc, _, _ := newQueryHarness(t, &fakeEmbedder{}, &fakeGenerator{})

	_, err := svc.Query(context.Background(), 1, "doc", "   ", nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Query(context.Background(), 1, "", "question", nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Query(context.Background(), 1, "a/../b", "question", nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestQueryAnswersFromBestMatches(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"chunk about go":     {1, 0, 0},
		"chunk about java":   {0, 1, 0},
		"chunk about sql":    {0, 0, 1},
		"chunk about devops": {0.5, 0.5, 0},
		"go experience?":     {0.9, 0.1, 0},
	}}
	gen := &fakeGenerator{answer: "Five years of Go. What role are you hiring for?"}
	svc, _, vectors := newQueryHarness(t, embedder, gen)

	key := vectorstore.Key{OwnerID: 1, DocumentID: "resume"}
	texts := []string{"chunk about go", "chunk about java", "chunk about sql", "chunk about devops"}
	ids := make([]string, len(texts))
	vecs := make([][]float32, len(texts))
	metas := make([]vectorstore.ChunkMeta, len(texts))
	for i, text := range texts {
		ids[i] = text
		vecs[i] = embedder.vectors[text]
		metas[i] = vectorstore.ChunkMeta{Ordinal: i, Length: len(text)}
	}
	require.NoError(t, vectors.Rebuild(key, ids, texts, vecs, metas))

	result, err := svc.Query(context.Background(), 1, "resume", "go experience?", nil)
	require.NoError(t, err)

	assert.True(t, result.Indexed)
	assert.Equal(t, gen.answer, result.Answer)
	require.Len(t, result.Matches, 3)
	assert.Equal(t, "chunk about go", result.Matches[0].Text)
	assert.Equal(t, result.Matches[0].Score, result.Confidence)
	assert.Greater(t, result.Confidence, float32(0))

	assert.Contains(t, gen.prompt, "chunk about go")
	assert.Contains(t, gen.prompt, "Question: go experience?")
	assert.NotContains(t, gen.prompt, "chunk about sql", "lowest match stays out of the context")
	assert.Contains(t, gen.persona, "resume")
}

func TestQueryIncludesHistoryTranscript(t *testing.T) {
	gen := &fakeGenerator{answer: "ok"}
	svc, idx, _ := newQueryHarness(t, &fakeEmbedder{}, gen)

	_, err := idx.Index(context.Background(), IndexInput{OwnerID: 1, DocumentID: "d", Content: "Python, Go, 5 years backend experience."})
	require.NoError(t, err)

	history := []HistoryMessage{
		{Content: "What languages?", FromSystem: false},
		{Content: "Python and Go.", FromSystem: true},
	}
	result, err := svc.Query(context.Background(), 1, "d", "How many years?", history)
	require.NoError(t, err)
	assert.True(t, result.Indexed)

	assert.Contains(t, gen.prompt, "User: What languages?")
	assert.Contains(t, gen.prompt, "Assistant: Python and Go.")
	userIdx := strings.Index(gen.prompt, "User: What languages?")
	questionIdx := strings.Index(gen.prompt, "Question: How many years?")
	assert.Less(t, userIdx, questionIdx, "history precedes the current question")
}

func TestQueryEmptyGenerationIsNotAnError(t *testing.T) {
	gen := &fakeGenerator{answer: ""}
	svc, idx, _ := newQueryHarness(t, &fakeEmbedder{}, gen)

	_, err := idx.Index(context.Background(), IndexInput{OwnerID: 1, DocumentID: "d", Content: "some resume"})
	require.NoError(t, err)

	result, err := svc.Query(context.Background(), 1, "d", "anything?", nil)
	require.NoError(t, err)
	assert.True(t, result.Indexed)
	assert.Empty(t, result.Answer)
}

func TestQueryAfterDeleteReportsNotIndexed(t *testing.T) {
	gen := &fakeGenerator{answer: "answer"}
	svc, idx, _ := newQueryHarness(t, &fakeEmbedder{}, gen)
	ctx := context.Background()

	_, err := idx.Index(ctx, IndexInput{OwnerID: 1, DocumentID: "d", Content: "Python, Go, 5 years backend experience."})
	require.NoError(t, err)
	require.NoError(t, idx.Delete(ctx, 1, "d"))

	result, err := svc.Query(ctx, 1, "d", "What skills?", nil)
	require.NoError(t, err)
	assert.False(t, result.Indexed)
}
