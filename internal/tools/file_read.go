package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sirchmunk/internal/extract"
	"sirchmunk/internal/searchctx"
)

const defaultMaxCharsPerFile = 30000

// FileRead implements the file_read tool: reads one or more files, skipping
// any already consumed this session, truncating each to MaxChars, and
// marking every path it reads as consumed.
type FileRead struct {
	Ctx      *searchctx.Context
	MaxChars int
}

type fileReadArgs struct {
	FilePaths []string `json:"file_paths"`
}

func (t *FileRead) Name() string { return "file_read" }

func (t *FileRead) JSONSchema() map[string]any {
	return map[string]any{
		"description": "Read the full content of one or more files discovered earlier in this session.",
		"parameters": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"file_paths": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "string"},
				},
			},
			"required": []string{"file_paths"},
		},
	}
}

func (t *FileRead) Call(ctx context.Context, raw json.RawMessage) (Result, error) {
	if t.Ctx != nil && t.Ctx.IsBudgetExceeded() {
		return Result{Text: "token budget exceeded; no files were read"}, nil
	}

	var args fileReadArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return Result{}, fmt.Errorf("file_read: parse arguments: %w", err)
	}
	if len(args.FilePaths) == 0 {
		return Result{}, fmt.Errorf("file_read: at least one file path is required")
	}

	maxChars := t.MaxChars
	if maxChars <= 0 {
		maxChars = defaultMaxCharsPerFile
	}

	var sb strings.Builder
	read := make([]string, 0, len(args.FilePaths))
	skipped := make([]string, 0)

	for _, p := range args.FilePaths {
		canonical := canonicalize(p)
		if t.Ctx != nil && t.Ctx.IsFileRead(canonical) {
			skipped = append(skipped, canonical)
			continue
		}

		content, err := readFile(ctx, canonical)
		if err != nil {
			content = fmt.Sprintf("error reading file: %s", err.Error())
		} else if len(content) > maxChars {
			content = content[:maxChars]
		}

		if sb.Len() > 0 {
			sb.WriteString("\n\n---\n\n")
		}
		fmt.Fprintf(&sb, "[%s]\n%s", canonical, content)

		if t.Ctx != nil {
			t.Ctx.MarkFileRead(canonical)
		}
		read = append(read, canonical)
	}

	return Result{
		Text: sb.String(),
		Metadata: map[string]any{
			"files_read":    read,
			"files_skipped": skipped,
		},
	}, nil
}

// canonicalize normalizes path separators and resolves to an absolute path
// string, matching SearchContext's string-equal file-dedup convention.
func canonicalize(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(abs)
}

func readFile(ctx context.Context, path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if extract.IsTextFamily(ext) {
		raw, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		return string(raw), nil
	}
	res, err := extract.Extract(ctx, path)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", path, err)
	}
	return res.Text, nil
}
