// Package cluster implements ClusterStore: an append-log data file plus an
// offset index, holding persisted KnowledgeCluster records with an
// embedding column for cosine-similarity reuse lookups.
package cluster

import "time"

// AbstractionLevel classifies how general a cluster's knowledge is. Set once
// at construction — KnowledgeCluster never exposes a setter for it.
type AbstractionLevel string

const (
	AbstractionLevelUnset   AbstractionLevel = ""
	AbstractionLevelConcept AbstractionLevel = "concept"
	AbstractionLevelPattern AbstractionLevel = "pattern"
	AbstractionLevelFact    AbstractionLevel = "fact"
)

// Lifecycle is a cluster's maturity state.
type Lifecycle string

const (
	LifecycleEmerging   Lifecycle = "emerging"
	LifecycleStable     Lifecycle = "stable"
	LifecycleContested  Lifecycle = "contested"
	LifecycleDeprecated Lifecycle = "deprecated"
)

// SnippetMeta locates a snippet's byte range within its source document.
type SnippetMeta struct {
	Range    [2]int `msgpack:"range"`
	HitCount int    `msgpack:"hit_count"`
}

// Snippet is one scored excerpt backing an EvidenceUnit.
type Snippet struct {
	Content string      `msgpack:"content"`
	Score   float64     `msgpack:"score"`
	Meta    SnippetMeta `msgpack:"meta"`
}

// EvidenceUnit is one file's contribution of evidence toward a query.
type EvidenceUnit struct {
	DocID         string    `msgpack:"doc_id"`
	FileOrURL     string    `msgpack:"file_or_url"`
	Summary       string    `msgpack:"summary"`
	IsFound       bool      `msgpack:"is_found"`
	Snippets      []Snippet `msgpack:"snippets"`
	ExtractedAt   time.Time `msgpack:"extracted_at"`
	ConflictGroup []string  `msgpack:"conflict_group"`
}

// MaxQueriesPerCluster is the fallback bound on KnowledgeCluster.Queries
// when a caller doesn't supply a configured cap — spec.md §6.5's
// MAX_QUERIES_PER_CLUSTER default. Callers should normally pass the
// configured value to AppendQuery rather than rely on this default.
const MaxQueriesPerCluster = 20

// MaxSearchResultsPerCluster bounds KnowledgeCluster.SearchResults the same
// way — the original never caps this list, but an unbounded append-only
// list inside an append-log record would grow every record forever.
const MaxSearchResultsPerCluster = 50

// Cluster is the persisted KnowledgeCluster entity.
type Cluster struct {
	ID             string           `msgpack:"id"`
	Name           string           `msgpack:"name"`
	Description    []string         `msgpack:"description"`
	Content        []string         `msgpack:"content"`
	Queries        []string         `msgpack:"queries"`
	SearchResults  []string         `msgpack:"search_results"`
	Scripts        []string         `msgpack:"scripts"`
	Resources      []string         `msgpack:"resources"`
	Patterns       []string         `msgpack:"patterns"`
	Constraints    []string         `msgpack:"constraints"`
	Evidences      []EvidenceUnit   `msgpack:"evidences"`
	Confidence     float64          `msgpack:"confidence"`
	AbstractionLvl AbstractionLevel `msgpack:"abstraction_level"`
	LandmarkPotential float64       `msgpack:"landmark_potential"`
	Hotness        float64          `msgpack:"hotness"`
	LifecycleState Lifecycle        `msgpack:"lifecycle"`
	CreateTime     time.Time        `msgpack:"create_time"`
	LastModified   time.Time        `msgpack:"last_modified"`
	Version        uint32           `msgpack:"version"`
	RelatedClusters []string        `msgpack:"related_clusters"`
}

// EmbeddingRecord is the auxiliary keyed table parallel to a Cluster record,
// holding its reuse-lookup embedding.
type EmbeddingRecord struct {
	Vector    []float32 `msgpack:"embedding_vector"`
	Model     string    `msgpack:"embedding_model"`
	Timestamp time.Time `msgpack:"embedding_timestamp"`
	TextHash  string    `msgpack:"embedding_text_hash"`
}

// AppendQuery appends query to Queries with FIFO eviction beyond max, and is
// a no-op if query already appears (dedup). max <= 0 falls back to
// MaxQueriesPerCluster.
func (c *Cluster) AppendQuery(query string, max int) {
	if max <= 0 {
		max = MaxQueriesPerCluster
	}
	for _, q := range c.Queries {
		if q == query {
			return
		}
	}
	c.Queries = append(c.Queries, query)
	if len(c.Queries) > max {
		c.Queries = c.Queries[len(c.Queries)-max:]
	}
}

// AppendSearchResult appends a synthesized answer with FIFO eviction beyond
// MaxSearchResultsPerCluster.
func (c *Cluster) AppendSearchResult(result string) {
	c.SearchResults = append(c.SearchResults, result)
	if len(c.SearchResults) > MaxSearchResultsPerCluster {
		c.SearchResults = c.SearchResults[len(c.SearchResults)-MaxSearchResultsPerCluster:]
	}
}

// BumpHotness increases hotness by delta, capped at 1.0.
func (c *Cluster) BumpHotness(delta float64) {
	c.Hotness += delta
	if c.Hotness > 1.0 {
		c.Hotness = 1.0
	}
}

// NewCluster instantiates a fresh cluster with the construction-time
// defaults KnowledgeBase.build applies: lifecycle emerging, version 1,
// hotness and confidence both 0.5.
func NewCluster(id string) *Cluster {
	now := time.Now()
	return &Cluster{
		ID:             id,
		Confidence:     0.5,
		Hotness:        0.5,
		LifecycleState: LifecycleEmerging,
		CreateTime:     now,
		LastModified:   now,
		Version:        1,
	}
}
