// Package extract implements the per-file content-extraction collaborator:
// given a path, produce a unicode text rendering plus whatever metadata the
// format exposes cheaply (title, author, page count). Callers are
// DirectoryScanner, the file_read tool, the knowledge builder and the
// agentic DocQA branch.
package extract

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"
)

// Metadata holds the format-specific fields DirectoryScanner's FileCandidate
// wants populated cheaply during the walk.
type Metadata struct {
	Title     string
	Author    string
	PageCount int
	Encoding  string
	LineCount int
}

// Result is the outcome of extracting one file: Text is the full unicode
// rendering; Meta carries whatever the format could cheaply surface.
type Result struct {
	Text string
	Meta Metadata
}

// textFamilyExtensions lists extensions read directly as UTF-8/byte content
// rather than through a format-specific extractor.
var textFamilyExtensions = map[string]bool{
	".txt": true, ".md": true, ".go": true, ".py": true, ".js": true, ".ts": true,
	".json": true, ".yaml": true, ".yml": true, ".toml": true, ".ini": true,
	".c": true, ".cpp": true, ".h": true, ".hpp": true, ".rs": true, ".java": true,
	".rb": true, ".sh": true, ".sql": true, ".css": true, ".csv": true, ".xml": true,
	".log": true, ".cfg": true, ".conf": true,
}

// IsTextFamily reports whether ext (including the leading dot) is read
// directly rather than through a binary-format extractor.
func IsTextFamily(ext string) bool {
	return textFamilyExtensions[strings.ToLower(ext)]
}

// Extract dispatches on path's extension to the matching format collaborator.
// Per-file failures are the caller's to swallow — the failure model treats
// extraction errors as "drop this file", never as a session failure.
func Extract(ctx context.Context, path string) (Result, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".pdf":
		return extractPDF(path)
	case ".xlsx", ".xlsm":
		return extractXLSX(path)
	case ".html", ".htm":
		return extractHTML(path)
	default:
		return extractPlainText(path)
	}
}

func extractPlainText(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("extract: open %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	peek, _ := r.Peek(512 * 1024)
	if isBinary(peek) {
		return Result{}, fmt.Errorf("extract: %s: not a text-family file", path)
	}

	var sb strings.Builder
	lineCount := 0
	for {
		line, err := r.ReadString('\n')
		if line != "" {
			sb.WriteString(line)
			lineCount++
		}
		if err != nil {
			break
		}
	}
	text := sb.String()
	title := firstHeading(text)
	return Result{
		Text: text,
		Meta: Metadata{Title: title, Encoding: "utf-8", LineCount: lineCount},
	}, nil
}

func isBinary(buf []byte) bool {
	if len(buf) == 0 {
		return false
	}
	if strings.ContainsRune(string(buf), '\x00') {
		return true
	}
	ct := http.DetectContentType(buf)
	return !strings.HasPrefix(ct, "text/") && ct != "application/json"
}

// firstHeading looks at the first handful of lines for a Markdown-style
// heading or a short title-case first line, the same cheap heuristic the
// scanner uses to populate FileCandidate.Title without a full parse.
func firstHeading(text string) string {
	lines := strings.SplitN(text, "\n", 20)
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		if strings.HasPrefix(l, "#") {
			return strings.TrimSpace(strings.TrimLeft(l, "# "))
		}
		if len(l) < 120 {
			return l
		}
		return ""
	}
	return ""
}

func extractPDF(path string) (Result, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("extract: open pdf %s: %w", path, err)
	}
	defer f.Close()

	var sb strings.Builder
	pages := r.NumPage()
	for i := 1; i <= pages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	text := sb.String()
	title := firstHeading(text)
	return Result{
		Text: text,
		Meta: Metadata{Title: title, PageCount: pages},
	}, nil
}

func extractXLSX(path string) (Result, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("extract: open xlsx %s: %w", path, err)
	}
	defer f.Close()

	var sb strings.Builder
	sheets := f.GetSheetList()
	for _, sheet := range sheets {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		sb.WriteString("# ")
		sb.WriteString(sheet)
		sb.WriteString("\n")
		for _, row := range rows {
			sb.WriteString(strings.Join(row, "\t"))
			sb.WriteString("\n")
		}
	}

	props, _ := f.GetDocProps()
	meta := Metadata{PageCount: len(sheets)}
	if props != nil {
		meta.Title = props.Title
		meta.Author = props.Creator
	}
	return Result{Text: sb.String(), Meta: meta}, nil
}

func extractHTML(path string) (Result, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("extract: read html %s: %w", path, err)
	}
	text, err := md.ConvertString(string(raw))
	if err != nil {
		return Result{}, fmt.Errorf("extract: convert html %s: %w", path, err)
	}
	return Result{
		Text: text,
		Meta: Metadata{Title: firstHeading(text)},
	}, nil
}
