package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"sirchmunk/internal/grepretriever"
	"sirchmunk/internal/searchctx"
)

const (
	defaultKeywordMaxDepth     = 8
	defaultKeywordMaxResults   = 40
	defaultKeywordSnippetChars = 300
)

// KeywordSearch implements the keyword_search tool: per-term literal
// lexical search, TF×IDF ranked, with keyword-diverse snippet selection so
// a multi-term query doesn't let one common term starve the others.
type KeywordSearch struct {
	Retriever *grepretriever.Retriever
	Paths     []string
	Ctx       *searchctx.Context
	MaxDepth  int
	MaxResults int
}

type keywordSearchArgs struct {
	Keywords []string `json:"keywords"`
}

func (t *KeywordSearch) Name() string { return "keyword_search" }

func (t *KeywordSearch) JSONSchema() map[string]any {
	return map[string]any{
		"description": "Literal lexical search across the search paths for one or more keywords.",
		"parameters": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"keywords": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "string"},
				},
			},
			"required": []string{"keywords"},
		},
	}
}

func (t *KeywordSearch) Call(ctx context.Context, raw json.RawMessage) (Result, error) {
	var args keywordSearchArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return Result{}, fmt.Errorf("keyword_search: parse arguments: %w", err)
	}
	if len(args.Keywords) == 0 {
		return Result{Text: "No keywords provided."}, nil
	}

	maxDepth := t.MaxDepth
	if maxDepth <= 0 {
		maxDepth = defaultKeywordMaxDepth
	}
	maxResults := t.MaxResults
	if maxResults <= 0 {
		maxResults = defaultKeywordMaxResults
	}

	opts := grepretriever.Options{Literal: true, MaxDepth: maxDepth}
	files, err := t.Retriever.SearchTerms(ctx, args.Keywords, t.Paths, opts)
	if err != nil {
		return Result{}, fmt.Errorf("keyword_search: %w", err)
	}

	idf := buildIDF(files, args.Keywords)
	ranked := grepretriever.Rank(files, idf, len(args.Keywords))
	ranked = grepretriever.Dedup(ranked)
	if len(ranked) > maxResults {
		ranked = ranked[:maxResults]
	}

	if t.Ctx != nil {
		for _, f := range ranked {
			t.Ctx.MarkFileRead(f.Path)
		}
	}

	text := formatKeywordResults(ranked)
	discoveredPaths := make([]string, 0, len(ranked))
	for _, f := range ranked {
		discoveredPaths = append(discoveredPaths, f.Path)
	}

	return Result{
		Text: text,
		Metadata: map[string]any{
			"discovered_paths": discoveredPaths,
			"file_count":       len(ranked),
		},
	}, nil
}

// buildIDF computes a simple inverse-document-frequency weight per keyword:
// log(1 + totalFiles/(1 + docsContainingTerm)), so rarer terms across the result
// set weigh more heavily in Rank's scoring.
func buildIDF(files []grepretriever.FileMatches, keywords []string) map[string]float64 {
	docCount := make(map[string]int)
	for _, f := range files {
		seen := make(map[string]bool)
		for _, m := range f.Matches {
			for _, sm := range m.Submatches {
				term := strings.ToLower(sm.Match.Text)
				if !seen[term] {
					docCount[term]++
					seen[term] = true
				}
			}
		}
	}
	idf := make(map[string]float64, len(keywords))
	total := float64(len(files))
	if total == 0 {
		total = 1
	}
	for _, kw := range keywords {
		term := strings.ToLower(kw)
		idf[term] = math.Log(1 + total/float64(1+docCount[term]))
	}
	return idf
}

// formatKeywordResults renders `[path]\n  Lxxx: snippet` blocks, selecting
// snippets keyword-diversely: matches are grouped by the term that produced
// them and round-robined so every queried term contributes at least one
// snippet when possible. Falls back to score order when matches carry no
// term tag. Snippets are deduped by line text.
func formatKeywordResults(files []grepretriever.FileMatches) string {
	var sb strings.Builder
	for _, f := range files {
		fmt.Fprintf(&sb, "[%s]\n", f.Path)
		for _, m := range diverseSnippets(f.Matches, 5) {
			snippet := m.Text
			if len(snippet) > defaultKeywordSnippetChars {
				snippet = snippet[:defaultKeywordSnippetChars]
			}
			fmt.Fprintf(&sb, "  L%d: %s\n", m.LineNumber, strings.TrimSpace(snippet))
		}
	}
	return strings.TrimSpace(sb.String())
}

func diverseSnippets(matches []grepretriever.Match, limit int) []grepretriever.Match {
	byTerm := make(map[string][]grepretriever.Match)
	var termOrder []string
	hasTerms := false
	for _, m := range matches {
		if m.Term != "" {
			hasTerms = true
		}
		if _, ok := byTerm[m.Term]; !ok {
			termOrder = append(termOrder, m.Term)
		}
		byTerm[m.Term] = append(byTerm[m.Term], m)
	}

	if !hasTerms {
		sorted := make([]grepretriever.Match, len(matches))
		copy(sorted, matches)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })
		return dedupeByText(sorted, limit)
	}

	for _, term := range termOrder {
		sort.SliceStable(byTerm[term], func(i, j int) bool {
			return byTerm[term][i].Score > byTerm[term][j].Score
		})
	}

	var out []grepretriever.Match
	seen := make(map[string]bool)
	idx := make(map[string]int)
	for len(out) < limit {
		progressed := false
		for _, term := range termOrder {
			if len(out) >= limit {
				break
			}
			pool := byTerm[term]
			i := idx[term]
			for i < len(pool) && seen[strings.TrimSpace(pool[i].Text)] {
				i++
			}
			if i >= len(pool) {
				idx[term] = i
				continue
			}
			out = append(out, pool[i])
			seen[strings.TrimSpace(pool[i].Text)] = true
			idx[term] = i + 1
			progressed = true
		}
		if !progressed {
			break
		}
	}
	return out
}

func dedupeByText(matches []grepretriever.Match, limit int) []grepretriever.Match {
	var out []grepretriever.Match
	seen := make(map[string]bool)
	for _, m := range matches {
		key := strings.TrimSpace(m.Text)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, m)
		if len(out) >= limit {
			break
		}
	}
	return out
}
