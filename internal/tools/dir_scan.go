package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"sirchmunk/internal/scanner"
)

const defaultDirScanTopK = 20

// DirScan implements the dir_scan tool: delegate to DirectoryScanner,
// caching the walk so repeated calls within a session only rank, never
// re-walk the filesystem.
type DirScan struct {
	Scanner *scanner.Scanner
	Paths   []string

	once       sync.Once
	scanResult scanner.Result
	scanErr    error
}

type dirScanArgs struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

func (t *DirScan) Name() string { return "dir_scan" }

func (t *DirScan) JSONSchema() map[string]any {
	return map[string]any{
		"description": "Walk the search paths and ask the model to triage the most relevant files for a query.",
		"parameters": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{"type": "string"},
				"top_k": map[string]any{"type": "integer", "default": defaultDirScanTopK},
			},
			"required": []string{"query"},
		},
	}
}

func (t *DirScan) Call(ctx context.Context, raw json.RawMessage) (Result, error) {
	var args dirScanArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return Result{}, fmt.Errorf("dir_scan: parse arguments: %w", err)
	}
	if strings.TrimSpace(args.Query) == "" {
		return Result{}, fmt.Errorf("dir_scan: query is required")
	}
	topK := args.TopK
	if topK <= 0 {
		topK = defaultDirScanTopK
	}

	t.once.Do(func() {
		t.scanResult, t.scanErr = t.Scanner.Scan(ctx, t.Paths)
	})
	if t.scanErr != nil {
		return Result{}, fmt.Errorf("dir_scan: scan: %w", t.scanErr)
	}

	ranked, err := t.Scanner.Rank(ctx, args.Query, t.scanResult, topK)
	if err != nil {
		return Result{}, fmt.Errorf("dir_scan: rank: %w", err)
	}

	text, paths := formatDirScanResults(ranked.RankedCandidates)
	return Result{
		Text: text,
		Metadata: map[string]any{
			"discovered_paths": paths,
			"total_files":      ranked.TotalFiles,
		},
	}, nil
}

func formatDirScanResults(candidates []scanner.Candidate) (string, []string) {
	var sb strings.Builder
	paths := make([]string, 0, len(candidates))
	for _, c := range candidates {
		paths = append(paths, c.Path)
		fmt.Fprintf(&sb, "[%s] relevance=%s\n", c.Path, c.Relevance)
		if c.Reason != "" {
			fmt.Fprintf(&sb, "  reason: %s\n", c.Reason)
		}
		if c.ContentLoaded && c.Relevance == scanner.RelevanceHigh {
			fmt.Fprintf(&sb, "  content:\n%s\n", c.FullContent)
		} else if c.Preview != "" {
			fmt.Fprintf(&sb, "  preview: %s\n", c.Preview)
		}
	}
	return strings.TrimSpace(sb.String()), paths
}
