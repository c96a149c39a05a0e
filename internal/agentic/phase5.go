package agentic

import (
	"context"
	"strings"
	"time"

	"sirchmunk/internal/cluster"
	"sirchmunk/internal/speccache"
)

// phase5 appends the query to the cluster's FIFO history and schedules the
// embedding-refresh-and-persist step as a background, fire-and-forget task.
// Nothing here blocks the caller's response.
func (e *Engine) phase5(query string, c *cluster.Cluster, opts Options) {
	if c == nil {
		return
	}
	c.AppendQuery(query, opts.MaxQueriesPerCluster)

	go e.saveClusterWithEmbedding(c)
	go e.saveSpecContext(c, opts.Paths)
}

func (e *Engine) saveClusterWithEmbedding(c *cluster.Cluster) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if e.Embedder != nil {
		combined := strings.Join(append(append([]string{}, c.Queries...), c.Content...), " | ")
		if vecs, err := e.Embedder.Embed(ctx, []string{combined}); err == nil && len(vecs) > 0 {
			e.Store.PutEmbedding(c.ID, cluster.NewEmbeddingRecord(vecs[0], e.EmbedModel, combined))
		}
	}
	_ = e.Store.Insert(*c)
}

func (e *Engine) saveSpecContext(c *cluster.Cluster, searchPaths []string) {
	if e.SpecCache == nil || len(searchPaths) == 0 {
		return
	}
	files := make([]string, 0, len(c.Evidences))
	for _, ev := range c.Evidences {
		if ev.FileOrURL != "" {
			files = append(files, ev.FileOrURL)
		}
	}
	e.SpecCache.SaveContext(searchPaths, speccache.Entry{
		Summary:       strings.Join(c.Content, "\n"),
		FilesRead:     files,
		SearchHistory: c.Queries,
	})
}
