// Package searchctx implements SearchContext: the per-session state shared
// read-only (via snapshot into prompt text) across a single search call's
// concurrent tasks — token budget, file-dedup set, and retrieval logs.
package searchctx

import (
	"fmt"
	"sync"
	"time"
)

// Usage is one LLM call's reported token accounting.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Total returns TotalTokens, falling back to the prompt+completion sum when
// the caller's usage report omitted it.
func (u Usage) Total() int {
	if u.TotalTokens > 0 {
		return u.TotalTokens
	}
	return u.PromptTokens + u.CompletionTokens
}

// RetrievalLog records one tool invocation's approximate cost for the
// session summary.
type RetrievalLog struct {
	ToolName    string
	ApproxTokens int
	Timestamp   time.Time
	Metadata    map[string]any
}

// Context is the per-session state SearchContext specifies. All mutating
// methods are safe for concurrent use — the five-phase pipeline's parallel
// branches each log against the same Context.
type Context struct {
	MaxTokenBudget uint32
	MaxLoops       uint32
	StartTime      time.Time

	mu             sync.Mutex
	totalLLMTokens uint32
	llmUsages      []Usage
	readFileIDs    map[string]struct{}
	retrievalLogs  []RetrievalLog
	searchHistory  []string
	loopCount      uint32
}

// New constructs a Context for one search session.
func New(maxTokenBudget, maxLoops uint32) *Context {
	return &Context{
		MaxTokenBudget: maxTokenBudget,
		MaxLoops:       maxLoops,
		StartTime:      time.Now(),
		readFileIDs:    make(map[string]struct{}),
	}
}

// AddLLMTokens records a usage report. Enforcement is advisory: a late
// report is still recorded even after the budget has already been flagged
// exceeded by a prior call.
func (c *Context) AddLLMTokens(u Usage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.llmUsages = append(c.llmUsages, u)
	c.totalLLMTokens += uint32(u.Total())
}

// IsBudgetExceeded reports whether total recorded tokens exceed the budget.
func (c *Context) IsBudgetExceeded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalLLMTokens > c.MaxTokenBudget
}

// BudgetRemaining returns the tokens left before the budget is exceeded, or
// 0 if already exceeded.
func (c *Context) BudgetRemaining() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.totalLLMTokens >= c.MaxTokenBudget {
		return 0
	}
	return c.MaxTokenBudget - c.totalLLMTokens
}

// MarkFileRead records path (expected already canonicalized by the caller)
// as consumed for this session.
func (c *Context) MarkFileRead(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readFileIDs[path] = struct{}{}
}

// IsFileRead reports whether path has already been consumed this session.
// Comparison is string-equal on the canonical path, not filesystem identity.
func (c *Context) IsFileRead(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.readFileIDs[path]
	return ok
}

// AddLog appends a retrieval-cost log entry.
func (c *Context) AddLog(tool string, approxTokens int, metadata map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.retrievalLogs = append(c.retrievalLogs, RetrievalLog{
		ToolName:     tool,
		ApproxTokens: approxTokens,
		Timestamp:    time.Now(),
		Metadata:     metadata,
	})
}

// AddSearch appends query to the session's search history.
func (c *Context) AddSearch(query string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.searchHistory = append(c.searchHistory, query)
}

// IncrementLoop advances the ReAct loop counter by one.
func (c *Context) IncrementLoop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loopCount++
}

// IsLoopLimitReached reports whether loopCount has reached MaxLoops.
func (c *Context) IsLoopLimitReached() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loopCount >= c.MaxLoops
}

// LoopCount returns the current loop counter.
func (c *Context) LoopCount() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loopCount
}

// TotalLLMTokens returns the running token total.
func (c *Context) TotalLLMTokens() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalLLMTokens
}

// FilesRead returns a snapshot of the canonical paths consumed this session.
func (c *Context) FilesRead() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.readFileIDs))
	for p := range c.readFileIDs {
		out = append(out, p)
	}
	return out
}

// SearchHistory returns a snapshot of queries issued this session.
func (c *Context) SearchHistory() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.searchHistory))
	copy(out, c.searchHistory)
	return out
}

// RetrievalLogs returns a snapshot of the session's retrieval log entries.
func (c *Context) RetrievalLogs() []RetrievalLog {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]RetrievalLog, len(c.retrievalLogs))
	copy(out, c.retrievalLogs)
	return out
}

// Summary renders the one-line session digest used in logs and SpecCache.
func (c *Context) Summary() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fmt.Sprintf(
		"llm_tokens=%d/%d loops=%d/%d files_read=%d queries=%d elapsed=%s",
		c.totalLLMTokens, c.MaxTokenBudget,
		c.loopCount, c.MaxLoops,
		len(c.readFileIDs), len(c.searchHistory),
		time.Since(c.StartTime).Round(time.Millisecond),
	)
}
