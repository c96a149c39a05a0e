package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchSimilarClusters_RanksByCosineSimilarity(t *testing.T) {
	s := tempStore(t)

	near := *NewCluster("near")
	far := *NewCluster("far")
	require.NoError(t, s.Insert(near))
	require.NoError(t, s.Insert(far))

	s.PutEmbedding("near", NewEmbeddingRecord([]float32{1, 0, 0}, "test-model", "near text"))
	s.PutEmbedding("far", NewEmbeddingRecord([]float32{0, 1, 0}, "test-model", "far text"))

	results, err := s.SearchSimilarClusters([]float32{1, 0, 0}, 5, 0.5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "near", results[0].ID)
}

func TestSearchSimilarClusters_IgnoresDeletedClusters(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.Insert(*NewCluster("c1")))
	s.PutEmbedding("c1", NewEmbeddingRecord([]float32{1, 0}, "m", "text"))
	require.NoError(t, s.DeleteBatch([]string{"c1"}))

	results, err := s.SearchSimilarClusters([]float32{1, 0}, 5, 0.0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestEmbeddingStale_DetectsTextChange(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.Insert(*NewCluster("c1")))
	assert.True(t, s.EmbeddingStale("c1", "v1"))

	s.PutEmbedding("c1", NewEmbeddingRecord([]float32{1}, "m", "v1"))
	assert.False(t, s.EmbeddingStale("c1", "v1"))
	assert.True(t, s.EmbeddingStale("c1", "v2"))
}
