package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sirchmunk/internal/searchctx"
)

func TestFileRead_SkipsAlreadyReadPaths(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "note.txt")
	require.NoError(t, os.WriteFile(p, []byte("hello world"), 0o644))

	sctx := searchctx.New(100000, 10)
	tool := &FileRead{Ctx: sctx}

	args, _ := json.Marshal(fileReadArgs{FilePaths: []string{p}})
	res, err := tool.Call(context.Background(), args)
	require.NoError(t, err)
	assert.Contains(t, res.Text, "hello world")

	res2, err := tool.Call(context.Background(), args)
	require.NoError(t, err)
	assert.Contains(t, res2.Metadata["files_skipped"], canonicalize(p))
}

func TestFileRead_AbortsWhenBudgetExceeded(t *testing.T) {
	sctx := searchctx.New(10, 10)
	sctx.AddLLMTokens(searchctx.Usage{TotalTokens: 50})
	tool := &FileRead{Ctx: sctx}

	args, _ := json.Marshal(fileReadArgs{FilePaths: []string{"whatever.txt"}})
	res, err := tool.Call(context.Background(), args)
	require.NoError(t, err)
	assert.Contains(t, res.Text, "budget exceeded")
}

func TestFileRead_TruncatesToMaxChars(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "big.txt")
	require.NoError(t, os.WriteFile(p, []byte(string(make([]byte, 500))), 0o644))

	tool := &FileRead{MaxChars: 10}
	args, _ := json.Marshal(fileReadArgs{FilePaths: []string{p}})
	res, err := tool.Call(context.Background(), args)
	require.NoError(t, err)
	assert.Less(t, len(res.Text), 100)
}
