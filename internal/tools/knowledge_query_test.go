package tools

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sirchmunk/internal/cluster"
)

type fakeEmbedder struct {
	vector []float32
}

func (f *fakeEmbedder) Embed(ctx context.Context, chunks []string) ([][]float32, error) {
	out := make([][]float32, len(chunks))
	for i := range chunks {
		out[i] = f.vector
	}
	return out, nil
}

func TestKnowledgeQuery_ReturnsFormattedMarkdown(t *testing.T) {
	dir := t.TempDir()
	store, err := cluster.Open(filepath.Join(dir, "c.mpk"), filepath.Join(dir, "c.idx"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	c := *cluster.NewCluster("c1")
	c.Name = "widget facts"
	c.Content = []string{"widgets are round and blue"}
	require.NoError(t, store.Insert(c))
	store.PutEmbedding("c1", cluster.NewEmbeddingRecord([]float32{1, 0}, "m", "widget facts"))

	tool := &KnowledgeQuery{Store: store, Embedder: &fakeEmbedder{vector: []float32{1, 0}}}
	args, _ := json.Marshal(knowledgeQueryArgs{Query: "tell me about widgets", Limit: 3})

	res, err := tool.Call(context.Background(), args)
	require.NoError(t, err)
	assert.Contains(t, res.Text, "widget facts")
	assert.Contains(t, res.Text, "round and blue")
}

func TestKnowledgeQuery_NoHitsReturnsSafeMessage(t *testing.T) {
	dir := t.TempDir()
	store, err := cluster.Open(filepath.Join(dir, "c.mpk"), filepath.Join(dir, "c.idx"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	tool := &KnowledgeQuery{Store: store, Embedder: &fakeEmbedder{vector: []float32{1, 0}}}
	args, _ := json.Marshal(knowledgeQueryArgs{Query: "anything", Limit: 3})

	res, err := tool.Call(context.Background(), args)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Metadata["hits"])
}
