package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"sirchmunk/internal/cluster"
	"sirchmunk/internal/llm"
)

const defaultKnowledgeQueryLimit = 3

// KnowledgeQuery implements the knowledge_query tool: a cosine-similarity
// search over the ClusterStore's embedding column, formatted to markdown.
// It records zero approximate retrieval tokens — the cost is one embedding
// call, not an LLM completion.
type KnowledgeQuery struct {
	Store     *cluster.Store
	Embedder  llm.Embedder
	Model     string
	Threshold float64
}

type knowledgeQueryArgs struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

func (t *KnowledgeQuery) Name() string { return "knowledge_query" }

func (t *KnowledgeQuery) JSONSchema() map[string]any {
	return map[string]any{
		"description": "Search cached knowledge clusters for a semantically similar prior result before doing fresh retrieval.",
		"parameters": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{"type": "string"},
				"limit": map[string]any{"type": "integer", "default": defaultKnowledgeQueryLimit},
			},
			"required": []string{"query"},
		},
	}
}

func (t *KnowledgeQuery) Call(ctx context.Context, raw json.RawMessage) (Result, error) {
	var args knowledgeQueryArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return Result{}, fmt.Errorf("knowledge_query: parse arguments: %w", err)
	}
	if strings.TrimSpace(args.Query) == "" {
		return Result{}, fmt.Errorf("knowledge_query: query is required")
	}
	limit := args.Limit
	if limit <= 0 {
		limit = defaultKnowledgeQueryLimit
	}

	vectors, err := t.Embedder.Embed(ctx, []string{args.Query})
	if err != nil {
		return Result{}, fmt.Errorf("knowledge_query: embed query: %w", err)
	}

	threshold := t.Threshold
	if threshold <= 0 {
		threshold = 0.82
	}

	matches, err := t.Store.SearchSimilarClusters(vectors[0], limit, threshold)
	if err != nil {
		return Result{}, fmt.Errorf("knowledge_query: search: %w", err)
	}

	if len(matches) == 0 {
		return Result{
			Text:     "no cached clusters matched this query",
			Metadata: map[string]any{"hits": 0},
		}, nil
	}

	var sb strings.Builder
	ids := make([]string, 0, len(matches))
	for _, c := range matches {
		ids = append(ids, c.ID)
		fmt.Fprintf(&sb, "## %s\n", c.Name)
		if len(c.Description) > 0 {
			sb.WriteString(strings.Join(c.Description, " "))
			sb.WriteString("\n")
		}
		if len(c.Content) > 0 {
			sb.WriteString(strings.Join(c.Content, "\n"))
			sb.WriteString("\n")
		}
		if len(c.SearchResults) > 0 {
			sb.WriteString("Prior answers:\n")
			for _, r := range c.SearchResults {
				fmt.Fprintf(&sb, "- %s\n", r)
			}
		}
		sb.WriteString("\n")
	}

	return Result{
		Text:     strings.TrimSpace(sb.String()),
		Metadata: map[string]any{"hits": len(matches), "cluster_ids": ids},
	}, nil
}
