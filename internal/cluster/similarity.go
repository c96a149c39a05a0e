package cluster

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"time"

	"sirchmunk/internal/llm"
)

// PutEmbedding stores rec under id, used for subsequent SearchSimilarClusters
// calls. It is not part of the append log — embeddings live only in memory
// and are written to neither the data file nor the index, so a reopened
// Store starts with none (kept out of the .mpk record so re-embedding never
// requires a compaction).
func (s *Store) PutEmbedding(id string, rec EmbeddingRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.embeddings[id] = rec
}

// TextHash returns the content-addressed key PutEmbedding callers use to
// detect a cluster's text changed since it was last embedded.
func TextHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:16]
}

type scoredCluster struct {
	cluster Cluster
	score   float64
}

// SearchSimilarClusters ranks live clusters with a stored embedding by
// cosine similarity to queryEmbedding, keeping those at or above threshold
// and returning at most topK, highest score first.
func (s *Store) SearchSimilarClusters(queryEmbedding []float32, topK int, threshold float64) ([]Cluster, error) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.embeddings))
	for id := range s.embeddings {
		if _, live := s.index[id]; live {
			ids = append(ids, id)
		}
	}
	embeddings := make(map[string]EmbeddingRecord, len(ids))
	for _, id := range ids {
		embeddings[id] = s.embeddings[id]
	}
	s.mu.RUnlock()

	var scored []scoredCluster
	for _, id := range ids {
		sim := llm.CosineSimilarity(queryEmbedding, embeddings[id].Vector)
		if float64(sim) < threshold {
			continue
		}
		c, ok, err := s.Get(id)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		scored = append(scored, scoredCluster{cluster: c, score: float64(sim)})
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	if topK > 0 && len(scored) > topK {
		scored = scored[:topK]
	}

	out := make([]Cluster, len(scored))
	for i, sc := range scored {
		out[i] = sc.cluster
	}
	return out, nil
}

// EmbeddingStale reports whether text's hash no longer matches the embedding
// recorded under id, or no embedding exists yet.
func (s *Store) EmbeddingStale(id, text string) bool {
	s.mu.RLock()
	rec, ok := s.embeddings[id]
	s.mu.RUnlock()
	if !ok {
		return true
	}
	return rec.TextHash != TextHash(text)
}

// NewEmbeddingRecord builds the EmbeddingRecord PutEmbedding expects, stamped
// with the current time and the text's content hash.
func NewEmbeddingRecord(vector []float32, model, text string) EmbeddingRecord {
	return EmbeddingRecord{
		Vector:    vector,
		Model:     model,
		Timestamp: time.Now(),
		TextHash:  TextHash(text),
	}
}
