package agentic

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"sirchmunk/internal/llm"
	"sirchmunk/internal/scanner"
	"sirchmunk/internal/searchctx"
)

// phase1Result holds the four probing tasks' outcomes. Every field defaults
// safely to empty when its task errors, per the failure model's "never
// fails the whole session" rule.
type phase1Result struct {
	idf          map[string]float64
	keywords     []string
	scan         scanner.Result
	clusterPaths []string
	hint         string
}

// phase1 launches the four probing tasks together and awaits all of them.
func (e *Engine) phase1(ctx context.Context, query string, opts Options, sctx *searchctx.Context) phase1Result {
	var p1 phase1Result
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if sctx.IsBudgetExceeded() {
			return nil
		}
		idf, keywords, usage, err := e.extractKeywords(gctx, query)
		sctx.AddLLMTokens(searchctx.Usage{
			PromptTokens:     usage.PromptTokens,
			CompletionTokens: usage.CompletionTokens,
			TotalTokens:      usage.TotalTokens,
		})
		if err != nil {
			return nil // safe default: empty idf/keywords
		}
		p1.idf = idf
		p1.keywords = keywords
		return nil
	})

	g.Go(func() error {
		scanResult, err := e.Scanner.Scan(gctx, opts.Paths)
		if err != nil {
			return nil
		}
		p1.scan = scanResult
		return nil
	})

	g.Go(func() error {
		if e.Embedder == nil || e.Store == nil {
			return nil
		}
		vectors, err := e.Embedder.Embed(gctx, []string{query})
		if err != nil || len(vectors) == 0 {
			return nil
		}
		hits, err := e.Store.SearchSimilarClusters(vectors[0], opts.TopKClusters, opts.ClusterThreshold)
		if err != nil {
			return nil
		}
		var paths []string
		for _, c := range hits {
			for _, ev := range c.Evidences {
				if ev.FileOrURL == "" {
					continue
				}
				if _, statErr := os.Stat(ev.FileOrURL); statErr == nil {
					paths = append(paths, ev.FileOrURL)
				}
			}
		}
		p1.clusterPaths = paths
		return nil
	})

	g.Go(func() error {
		if e.SpecCache == nil {
			return nil
		}
		p1.hint = e.SpecCache.LoadContext(opts.Paths, defaultSpecCacheHours)
		return nil
	})

	_ = g.Wait() // every branch swallows its own error; nothing to propagate
	return p1
}

var keywordLinePattern = regexp.MustCompile(`(?m)^\s*[-*]\s*(.+)$`)

// extractKeywords asks the model for keywords at two granularity levels —
// broad topic terms, then specific identifiers/phrases — and merges both
// into one deduplicated list plus a simple IDF weighting by extraction
// order (earlier, broader terms weigh less than later, more specific ones).
func (e *Engine) extractKeywords(ctx context.Context, query string) (map[string]float64, []string, llm.Usage, error) {
	prompt := fmt.Sprintf(
		"Query: %s\n\n"+
			"List search keywords in two tiers, one per line, prefixed with '-':\n"+
			"Tier 1 (broad topic terms), then Tier 2 (specific identifiers, names, or exact phrases).\n"+
			"Return only the list, no other commentary.",
		query,
	)
	resp, err := e.Provider.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, llm.ChatOptions{Model: e.Model})
	if err != nil {
		return nil, nil, resp.Usage, err
	}

	matches := keywordLinePattern.FindAllStringSubmatch(resp.Content, -1)
	var keywords []string
	seen := make(map[string]bool)
	for _, m := range matches {
		kw := strings.TrimSpace(m[1])
		kw = strings.Trim(kw, "\"'")
		if kw == "" || seen[strings.ToLower(kw)] {
			continue
		}
		seen[strings.ToLower(kw)] = true
		keywords = append(keywords, kw)
	}
	if len(keywords) == 0 {
		keywords = fallbackKeywords(query)
	}

	idf := make(map[string]float64, len(keywords))
	n := float64(len(keywords))
	for i, kw := range keywords {
		// later (more specific) terms get a higher weight
		idf[strings.ToLower(kw)] = 1.0 + float64(i)/n
	}
	return idf, keywords, resp.Usage, nil
}

var wordPattern = regexp.MustCompile(`[A-Za-z0-9_]{3,}`)

// fallbackKeywords derives a crude keyword list directly from the query
// when the model's response couldn't be parsed, so phase 2 always has
// something to search with.
func fallbackKeywords(query string) []string {
	return wordPattern.FindAllString(query, -1)
}
