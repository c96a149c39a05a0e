package agentic

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sirchmunk/internal/extract"
	"sirchmunk/internal/llm"
	"sirchmunk/internal/searchctx"
)

const (
	maxDocFiles        = 10
	directLoadMaxChars = 60_000
)

// detectDocIntent runs a one-shot LLM probe classifying query as a
// whole-document operation (summarize, translate, compare, …) rather than a
// targeted retrieval question. On a positive classification it also
// collects the candidate files the DocQA branch should load: each path in
// opts.Paths, plus the immediate (non-recursive) children of any directory
// path.
func (e *Engine) detectDocIntent(ctx context.Context, query string, opts Options) (bool, []string) {
	prompt := fmt.Sprintf(
		"Query: %s\n\n"+
			"Does this ask to operate on one or more whole documents (summarize, translate, compare, "+
			"rewrite, etc.) rather than look up a specific fact? Answer with exactly one word: yes or no.",
		query,
	)
	resp, err := e.Provider.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, llm.ChatOptions{Model: e.Model})
	if err != nil {
		return false, nil
	}
	answer := strings.ToLower(strings.TrimSpace(resp.Content))
	if !strings.HasPrefix(answer, "yes") {
		return false, nil
	}

	var files []string
	for _, p := range opts.Paths {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			continue
		}
		for _, ent := range entries {
			if ent.IsDir() {
				continue
			}
			files = append(files, filepath.Join(p, ent.Name()))
			if len(files) >= maxDocFiles {
				break
			}
		}
		if len(files) >= maxDocFiles {
			break
		}
	}
	if len(files) > maxDocFiles {
		files = files[:maxDocFiles]
	}
	return true, files
}

// answerDocQuery extracts each candidate file's text and feeds it whole to
// the LLM when the combined size fits directLoadMaxChars, otherwise samples
// 40% head / 40% middle / 20% tail per file — bypassing retrieval entirely.
func (e *Engine) answerDocQuery(ctx context.Context, query string, files []string, sctx *searchctx.Context) (string, error) {
	if len(files) == 0 {
		return "", fmt.Errorf("docqa: no candidate files")
	}

	type doc struct {
		path string
		text string
	}
	docs := make([]doc, 0, len(files))
	total := 0
	for _, f := range files {
		res, err := extract.Extract(ctx, f)
		if err != nil {
			continue
		}
		docs = append(docs, doc{path: f, text: res.Text})
		total += len(res.Text)
		sctx.MarkFileRead(f)
	}
	if len(docs) == 0 {
		return "", fmt.Errorf("docqa: no files could be extracted")
	}

	var sb strings.Builder
	if total <= directLoadMaxChars {
		for _, d := range docs {
			fmt.Fprintf(&sb, "[%s]\n%s\n\n", d.path, d.text)
		}
	} else {
		perFile := directLoadMaxChars / len(docs)
		for _, d := range docs {
			fmt.Fprintf(&sb, "[%s]\n%s\n\n", d.path, sampleHeadMiddleTail(d.text, perFile))
		}
	}

	prompt := fmt.Sprintf("User request: %s\n\nDocument content:\n%s\n\nRespond directly to the request.", query, sb.String())
	resp, err := e.Provider.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, llm.ChatOptions{Model: e.Model})
	if err != nil {
		return "", fmt.Errorf("docqa: answer llm call: %w", err)
	}
	sctx.AddLLMTokens(searchctx.Usage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	})
	return resp.Content, nil
}

// sampleHeadMiddleTail takes 40% of budget from the document's head, 40%
// from its middle, and 20% from its tail, preserving reading order.
func sampleHeadMiddleTail(text string, budget int) string {
	if len(text) <= budget {
		return text
	}
	headLen := budget * 2 / 5
	midLen := budget * 2 / 5
	tailLen := budget - headLen - midLen

	head := text[:headLen]

	midStart := (len(text) - midLen) / 2
	if midStart < headLen {
		midStart = headLen
	}
	midEnd := midStart + midLen
	if midEnd > len(text) {
		midEnd = len(text)
	}
	mid := text[midStart:midEnd]

	tailStart := len(text) - tailLen
	if tailStart < midEnd {
		tailStart = midEnd
	}
	tail := text[tailStart:]

	return head + "\n...\n" + mid + "\n...\n" + tail
}
