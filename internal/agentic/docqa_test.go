package agentic

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sirchmunk/internal/llm"
	"sirchmunk/internal/searchctx"
)

type scriptedChatProvider struct {
	response string
	err      error
}

func (p *scriptedChatProvider) Chat(ctx context.Context, msgs []llm.Message, opts llm.ChatOptions) (llm.Response, error) {
	if p.err != nil {
		return llm.Response{}, p.err
	}
	return llm.Response{Content: p.response, Usage: llm.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}}, nil
}

func (p *scriptedChatProvider) ChatStream(ctx context.Context, msgs []llm.Message, opts llm.ChatOptions, onDelta llm.StreamFunc) (llm.Response, error) {
	return p.Chat(ctx, msgs, opts)
}

func TestSampleHeadMiddleTail_ShortTextReturnedWhole(t *testing.T) {
	text := "short text"
	assert.Equal(t, text, sampleHeadMiddleTail(text, 1000))
}

func TestSampleHeadMiddleTail_LongTextProducesThreeSections(t *testing.T) {
	text := strings.Repeat("a", 1000) + strings.Repeat("b", 1000) + strings.Repeat("c", 1000)
	out := sampleHeadMiddleTail(text, 300)
	assert.True(t, strings.HasPrefix(out, "aaa"))
	assert.True(t, strings.HasSuffix(out, "ccc"))
	assert.Contains(t, out, "\n...\n")
	assert.Less(t, len(out), len(text))
}

func TestDetectDocIntent_PositiveClassificationCollectsFiles(t *testing.T) {
	dir := t.TempDir()
	f1 := filepath.Join(dir, "a.txt")
	f2 := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(f1, []byte("alpha"), 0o644))
	require.NoError(t, os.WriteFile(f2, []byte("beta"), 0o644))

	e := &Engine{Provider: &scriptedChatProvider{response: "yes, this is a summarize request"}, Model: "test"}
	isDoc, files := e.detectDocIntent(context.Background(), "summarize these notes", Options{Paths: []string{dir}})
	assert.True(t, isDoc)
	assert.Len(t, files, 2)
}

func TestDetectDocIntent_NegativeClassificationReturnsNoFiles(t *testing.T) {
	e := &Engine{Provider: &scriptedChatProvider{response: "no"}, Model: "test"}
	isDoc, files := e.detectDocIntent(context.Background(), "what port does the server listen on?", Options{Paths: []string{t.TempDir()}})
	assert.False(t, isDoc)
	assert.Nil(t, files)
}

func TestAnswerDocQuery_DirectLoadSmallFiles(t *testing.T) {
	dir := t.TempDir()
	f1 := filepath.Join(dir, "doc.txt")
	require.NoError(t, os.WriteFile(f1, []byte("the quick brown fox"), 0o644))

	e := &Engine{Provider: &scriptedChatProvider{response: "it is about a fox"}, Model: "test"}
	sctx := searchctx.New(50_000, 8)
	answer, err := e.answerDocQuery(context.Background(), "what is this about?", []string{f1}, sctx)
	require.NoError(t, err)
	assert.Equal(t, "it is about a fox", answer)
	assert.True(t, sctx.IsFileRead(f1))
	assert.Equal(t, uint32(15), sctx.TotalLLMTokens())
}

func TestAnswerDocQuery_NoFilesErrors(t *testing.T) {
	e := &Engine{Provider: &scriptedChatProvider{response: "x"}, Model: "test"}
	sctx := searchctx.New(50_000, 8)
	_, err := e.answerDocQuery(context.Background(), "q", nil, sctx)
	assert.Error(t, err)
}
