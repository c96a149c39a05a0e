package agentic

import (
	"context"
	"strings"
	"time"

	"sirchmunk/internal/cluster"
)

// phase0 is the cluster-reuse short-circuit: embed the query, search the
// store for a cosine-similar cluster, and if one is found, bump it and
// return its content directly — skipping phases 1-5 entirely.
func (e *Engine) phase0(ctx context.Context, query string, opts Options) (Result, bool, error) {
	vectors, err := e.Embedder.Embed(ctx, []string{query})
	if err != nil || len(vectors) == 0 {
		return Result{}, false, err
	}

	hits, err := e.Store.SearchSimilarClusters(vectors[0], opts.TopKClusters, opts.ClusterThreshold)
	if err != nil || len(hits) == 0 {
		return Result{}, false, err
	}

	c := hits[0]
	c.AppendQuery(query, opts.MaxQueriesPerCluster)
	c.BumpHotness(0.1)
	c.LastModified = time.Now()

	combined := strings.Join(c.Queries, " | ")
	if vecs, embErr := e.Embedder.Embed(ctx, []string{combined}); embErr == nil && len(vecs) > 0 {
		e.Store.PutEmbedding(c.ID, cluster.NewEmbeddingRecord(vecs[0], e.EmbedModel, combined))
	}
	if err := e.Store.Insert(c); err != nil {
		return Result{}, false, err
	}

	answer := strings.Join(c.Content, "\n")
	if answer == "" {
		answer = strings.Join(c.Description, " ")
	}
	result := Result{
		Answer:    answer,
		ClusterID: c.ID,
		FromReuse: true,
	}
	if opts.ReturnCluster {
		result.Cluster = &c
	}
	return result, true, nil
}
