package agentic

import (
	"context"
	"encoding/json"

	"golang.org/x/sync/errgroup"

	"sirchmunk/internal/scanner"
	"sirchmunk/internal/searchctx"
	"sirchmunk/internal/tools"
)

// phase2Result holds the two retrieval tasks' discovered paths.
type phase2Result struct {
	keywordPaths []string
	dirScanPaths []string
}

// phase2 runs keyword_search and DirectoryScanner.Rank concurrently over
// phase 1's outputs.
func (e *Engine) phase2(ctx context.Context, query string, opts Options, p1 phase1Result, sctx *searchctx.Context) phase2Result {
	var p2 phase2Result
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if len(p1.keywords) == 0 {
			return nil
		}
		tool := &tools.KeywordSearch{Retriever: e.Retriever, Paths: opts.Paths}
		args, err := json.Marshal(map[string]any{"keywords": p1.keywords})
		if err != nil {
			return nil
		}
		res, err := tool.Call(gctx, args)
		if err != nil {
			return nil
		}
		p2.keywordPaths = discoveredPaths(res.Metadata)
		return nil
	})

	g.Go(func() error {
		if len(p1.scan.Candidates) == 0 || sctx.IsBudgetExceeded() {
			return nil
		}
		ranked, err := e.Scanner.Rank(gctx, query, p1.scan, opts.TopKFiles)
		sctx.AddLLMTokens(searchctx.Usage{
			PromptTokens:     ranked.Usage.PromptTokens,
			CompletionTokens: ranked.Usage.CompletionTokens,
			TotalTokens:      ranked.Usage.TotalTokens,
		})
		if err != nil {
			return nil
		}
		var paths []string
		for _, c := range ranked.RankedCandidates {
			if c.Relevance == scanner.RelevanceHigh {
				paths = append(paths, c.Path)
			}
		}
		p2.dirScanPaths = paths
		return nil
	})

	_ = g.Wait()
	return p2
}

func discoveredPaths(metadata map[string]any) []string {
	raw, ok := metadata["discovered_paths"]
	if !ok {
		return nil
	}
	if paths, ok := raw.([]string); ok {
		return paths
	}
	return nil
}
