package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sirchmunk/internal/llm"
	"sirchmunk/internal/scanner"
)

type fakeDirScanProvider struct {
	response llm.Response
}

func (f *fakeDirScanProvider) Chat(ctx context.Context, msgs []llm.Message, opts llm.ChatOptions) (llm.Response, error) {
	return f.response, nil
}

func (f *fakeDirScanProvider) ChatStream(ctx context.Context, msgs []llm.Message, opts llm.ChatOptions, onDelta llm.StreamFunc) (llm.Response, error) {
	return f.response, nil
}

func TestDirScan_ScansOnceAcrossRepeatedCalls(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("# Notes\nsome content"), 0o644))

	provider := &fakeDirScanProvider{response: llm.Response{
		Content: `[{"path":"notes.txt","relevance":"high","reason":"on topic"}]`,
	}}
	s := scanner.New(provider, "test-model")
	tool := &DirScan{Scanner: s, Paths: []string{dir}}

	args, _ := json.Marshal(dirScanArgs{Query: "notes", TopK: 5})

	res1, err := tool.Call(context.Background(), args)
	require.NoError(t, err)
	assert.Contains(t, res1.Text, "notes.txt")

	res2, err := tool.Call(context.Background(), args)
	require.NoError(t, err)
	assert.Contains(t, res2.Text, "notes.txt")
}
