package searchctx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddLLMTokens_TotalsAcrossUsages(t *testing.T) {
	ctx := New(1000, 5)
	ctx.AddLLMTokens(Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15})
	ctx.AddLLMTokens(Usage{PromptTokens: 20, CompletionTokens: 10})

	require.Equal(t, uint32(15+30), ctx.TotalLLMTokens())
}

func TestIsBudgetExceeded(t *testing.T) {
	ctx := New(20, 5)
	assert.False(t, ctx.IsBudgetExceeded())
	ctx.AddLLMTokens(Usage{TotalTokens: 25})
	assert.True(t, ctx.IsBudgetExceeded())
	assert.Equal(t, uint32(0), ctx.BudgetRemaining())
}

func TestBudgetExceeded_StillRecordsLateUsage(t *testing.T) {
	ctx := New(10, 5)
	ctx.AddLLMTokens(Usage{TotalTokens: 15})
	require.True(t, ctx.IsBudgetExceeded())
	ctx.AddLLMTokens(Usage{TotalTokens: 5})
	assert.Equal(t, uint32(20), ctx.TotalLLMTokens())
}

func TestFileDedup_StringEquality(t *testing.T) {
	ctx := New(100, 5)
	ctx.MarkFileRead("/abs/path/a.txt")
	assert.True(t, ctx.IsFileRead("/abs/path/a.txt"))
	assert.False(t, ctx.IsFileRead("/abs/path/b.txt"))
}

func TestLoopLimit(t *testing.T) {
	ctx := New(100, 2)
	assert.False(t, ctx.IsLoopLimitReached())
	ctx.IncrementLoop()
	assert.False(t, ctx.IsLoopLimitReached())
	ctx.IncrementLoop()
	assert.True(t, ctx.IsLoopLimitReached())
}

func TestSummaryIncludesKeyCounters(t *testing.T) {
	ctx := New(100, 5)
	ctx.AddLLMTokens(Usage{TotalTokens: 10})
	ctx.AddSearch("hello world")
	ctx.MarkFileRead("/a.txt")

	s := ctx.Summary()
	assert.Contains(t, s, "llm_tokens=10/100")
	assert.Contains(t, s, "loops=0/5")
	assert.Contains(t, s, "files_read=1")
	assert.Contains(t, s, "queries=1")
}
